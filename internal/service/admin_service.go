package service

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/reservation"
)

const AdminServiceName = "ewuhub.admin.v1.AdminService"

type AdminServer interface {
	ListPenalties(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdatePenaltyStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOpeningHours(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateOpeningHours(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAuditLogs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetUserActive(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func adminMethod(name string, h func(AdminServer) structHandler) grpc.MethodDesc {
	return unaryMethod(AdminServiceName, name, func(srv any) structHandler {
		return h(srv.(AdminServer))
	})
}

var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		adminMethod("ListPenalties", func(s AdminServer) structHandler { return s.ListPenalties }),
		adminMethod("UpdatePenaltyStatus", func(s AdminServer) structHandler { return s.UpdatePenaltyStatus }),
		adminMethod("ListOpeningHours", func(s AdminServer) structHandler { return s.ListOpeningHours }),
		adminMethod("UpdateOpeningHours", func(s AdminServer) structHandler { return s.UpdateOpeningHours }),
		adminMethod("ListAuditLogs", func(s AdminServer) structHandler { return s.ListAuditLogs }),
		adminMethod("SetUserActive", func(s AdminServer) structHandler { return s.SetUserActive }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ewuhub/admin/v1/admin.proto",
}

type AdminService struct {
	admin *reservation.Admin
}

var _ AdminServer = (*AdminService)(nil)

func NewAdminService(admin *reservation.Admin) *AdminService {
	return &AdminService{admin: admin}
}

func (s *AdminService) ListPenalties(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := newRequest(req)
	page, size := r.page()
	p, err := s.admin.ListPenalties(ctx, actor, model.PenaltyStatus(r.str("status")), page, size)
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]any, len(p.Items))
	for i, pen := range p.Items {
		items[i] = penaltyFields(pen)
	}
	return reply(pageFields(p, items))
}

// UpdatePenaltyStatus: {penalty_id, status}.
func (s *AdminService) UpdatePenaltyStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := newRequest(req)
	id, err := r.id("penalty_id")
	if err != nil {
		return nil, err
	}
	st, err := r.required("status")
	if err != nil {
		return nil, err
	}
	p, err := s.admin.UpdatePenaltyStatus(ctx, actor, id, model.PenaltyStatus(st))
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"penalty": penaltyFields(*p)})
}

func (s *AdminService) ListOpeningHours(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	week, err := s.admin.ListOpeningHours(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	days := make([]any, len(week))
	for i, d := range week {
		days[i] = dayHoursFields(d)
	}
	return reply(map[string]any{"days": days})
}

// UpdateOpeningHours: {days: [{weekday, open, close, closed}]}.
func (s *AdminService) UpdateOpeningHours(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	values := newRequest(req).fields["days"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, status.Error(codes.InvalidArgument, "days is required")
	}

	days := make([]calendar.DayHours, len(values))
	for i, v := range values {
		d := newRequest(v.GetStructValue())
		days[i] = calendar.DayHours{
			Weekday: time.Weekday(d.int("weekday", -1)),
			Closed:  d.boolean("closed"),
		}
		if days[i].Closed {
			continue
		}
		if days[i].Open, err = calendar.ParseClock(d.str("open")); err != nil {
			return nil, toStatus(err)
		}
		if days[i].Close, err = calendar.ParseClock(d.str("close")); err != nil {
			return nil, toStatus(err)
		}
	}

	if err := s.admin.UpdateOpeningHours(ctx, actor, days); err != nil {
		return nil, toStatus(err)
	}
	return s.ListOpeningHours(ctx, nil)
}

// ListAuditLogs: {action?, page?, page_size?}.
func (s *AdminService) ListAuditLogs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := newRequest(req)
	page, size := r.page()
	p, err := s.admin.ListAuditLogs(ctx, actor, model.AuditAction(r.str("action")), page, size)
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]any, len(p.Items))
	for i, a := range p.Items {
		if items[i], err = auditFields(a); err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
	}
	return reply(pageFields(p, items))
}

// SetUserActive: {user_id, active}.
func (s *AdminService) SetUserActive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := newRequest(req)
	id, err := r.id("user_id")
	if err != nil {
		return nil, err
	}
	active := r.boolean("active")
	if err := s.admin.SetUserActive(ctx, actor, id, active); err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"user_id": id.String(), "active": active})
}
