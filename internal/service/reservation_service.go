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

const ReservationServiceName = "ewuhub.reservation.v1.ReservationService"

// ReservationServer is the handler set of ReservationServiceDesc.
type ReservationServer interface {
	FindAvailable(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReserveSeats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReserveEquipment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReserveRoom(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMyBookings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDayBookings(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func reservationMethod(name string, h func(ReservationServer) structHandler) grpc.MethodDesc {
	return unaryMethod(ReservationServiceName, name, func(srv any) structHandler {
		return h(srv.(ReservationServer))
	})
}

var ReservationServiceDesc = grpc.ServiceDesc{
	ServiceName: ReservationServiceName,
	HandlerType: (*ReservationServer)(nil),
	Methods: []grpc.MethodDesc{
		reservationMethod("FindAvailable", func(s ReservationServer) structHandler { return s.FindAvailable }),
		reservationMethod("ReserveSeats", func(s ReservationServer) structHandler { return s.ReserveSeats }),
		reservationMethod("ReserveEquipment", func(s ReservationServer) structHandler { return s.ReserveEquipment }),
		reservationMethod("ReserveRoom", func(s ReservationServer) structHandler { return s.ReserveRoom }),
		reservationMethod("CancelBooking", func(s ReservationServer) structHandler { return s.CancelBooking }),
		reservationMethod("CheckIn", func(s ReservationServer) structHandler { return s.CheckIn }),
		reservationMethod("ListMyBookings", func(s ReservationServer) structHandler { return s.ListMyBookings }),
		reservationMethod("ListDayBookings", func(s ReservationServer) structHandler { return s.ListDayBookings }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ewuhub/reservation/v1/reservation.proto",
}

type ReservationService struct {
	svc *reservation.Service
	now func() time.Time
}

var _ ReservationServer = (*ReservationService)(nil)

func NewReservationService(svc *reservation.Service) *ReservationService {
	return &ReservationService{svc: svc, now: time.Now}
}

// FindAvailable: {kind, start, end, equipment_type?, room?} → {available, busy}.
func (s *ReservationService) FindAvailable(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	r := newRequest(req)
	start, end, err := r.window()
	if err != nil {
		return nil, err
	}

	var pool []model.Resource
	switch kind := model.ResourceKind(r.str("kind")); kind {
	case model.ResourceKindLibrarySeat:
		pool, err = s.svc.SeatPool(ctx)
	case model.ResourceKindEquipmentUnit:
		pool, err = s.svc.EquipmentPool(ctx, r.str("equipment_type"), r.str("room"))
	case model.ResourceKindRoom:
		pool, err = s.svc.RoomPool(ctx)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown kind %q", kind)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	free, busy, err := s.svc.Partition(ctx, pool, start, end)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{
		"available": resourceList(free),
		"busy":      resourceList(busy),
	})
}

// ReserveSeats: {resource_ids, start, end}; all seats or none.
func (s *ReservationService) ReserveSeats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := newRequest(req)
	ids, err := r.ids("resource_ids")
	if err != nil {
		return nil, err
	}
	start, end, err := r.window()
	if err != nil {
		return nil, err
	}
	res, err := s.svc.Reserve(ctx, actor, reservation.SpecificOf(model.ResourceKindLibrarySeat, ids...), start, end)
	if err != nil {
		return nil, toStatus(err)
	}
	return reservationReply(res)
}

// ReserveEquipment: {equipment_type, room?, count, start, end}; units are
// auto-assigned.
func (s *ReservationService) ReserveEquipment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := newRequest(req)
	typ, err := r.required("equipment_type")
	if err != nil {
		return nil, err
	}
	start, end, err := r.window()
	if err != nil {
		return nil, err
	}
	pool, err := s.svc.EquipmentPool(ctx, typ, r.str("room"))
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.svc.Reserve(ctx, actor, reservation.AutoAssign(pool, r.int("count", 1)), start, end)
	if err != nil {
		return nil, toStatus(err)
	}
	return reservationReply(res)
}

// ReserveRoom: {room_code, start, end}. Faculty and admins only.
func (s *ReservationService) ReserveRoom(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.Is(calendar.RoleFaculty, calendar.RoleAdmin) {
		return nil, toStatus(reservation.ErrNotAuthorized)
	}
	r := newRequest(req)
	code, err := r.required("room_code")
	if err != nil {
		return nil, err
	}
	start, end, err := r.window()
	if err != nil {
		return nil, err
	}
	room, err := s.svc.RoomByCode(ctx, code)
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.svc.Reserve(ctx, actor, reservation.SpecificOf(model.ResourceKindRoom, room.ID), start, end)
	if err != nil {
		return nil, toStatus(err)
	}
	return reservationReply(res)
}

func reservationReply(res *reservation.Reservation) (*structpb.Struct, error) {
	m := map[string]any{"bookings": bookingList(res.Bookings)}
	if res.Group != nil {
		m["group_id"] = res.Group.ID.String()
	}
	return reply(m)
}

// CancelBooking: {booking_id}.
func (s *ReservationService) CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := newRequest(req).id("booking_id")
	if err != nil {
		return nil, err
	}
	b, err := s.svc.Cancel(ctx, actor, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"booking": bookingFields(*b)})
}

// CheckIn: {code}. Staff and admins only.
func (s *ReservationService) CheckIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	code, err := newRequest(req).required("code")
	if err != nil {
		return nil, err
	}
	b, err := s.svc.CheckIn(ctx, actor, code, s.now())
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"booking": bookingFields(*b)})
}

// ListMyBookings: {page?, page_size?}.
func (s *ReservationService) ListMyBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	page, size := newRequest(req).page()
	p, err := s.svc.ListMyBookings(ctx, actor, page, size)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(pageFields(p, bookingList(p.Items)))
}

// ListDayBookings: {day (RFC3339, any instant of the day), page?, page_size?}.
func (s *ReservationService) ListDayBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := newRequest(req)
	day := s.now()
	if r.has("day") {
		if day, err = r.time("day"); err != nil {
			return nil, err
		}
	}
	page, size := r.page()
	p, err := s.svc.ListDayBookings(ctx, actor, day, page, size)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(pageFields(p, bookingList(p.Items)))
}
