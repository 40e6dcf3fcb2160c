package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
)

// request reads typed fields out of a google.protobuf.Struct. Missing keys
// read as zero values; malformed ones become InvalidArgument.
type request struct {
	fields map[string]*structpb.Value
}

func newRequest(s *structpb.Struct) request {
	return request{fields: s.GetFields()}
}

func (r request) has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

func (r request) str(key string) string {
	return strings.TrimSpace(r.fields[key].GetStringValue())
}

func (r request) required(key string) (string, error) {
	v := r.str(key)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

func (r request) id(key string) (uuid.UUID, error) {
	v, err := r.required(key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s: invalid uuid", key)
	}
	return id, nil
}

func (r request) ids(key string) ([]uuid.UUID, error) {
	values := r.fields[key].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	out := make([]uuid.UUID, len(values))
	for i, v := range values {
		id, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d]: invalid uuid", key, i)
		}
		out[i] = id
	}
	return out, nil
}

// time parses an RFC3339 timestamp.
func (r request) time(key string) (time.Time, error) {
	v, err := r.required(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s: expected RFC3339", key)
	}
	return t, nil
}

func (r request) window() (start, end time.Time, err error) {
	if start, err = r.time("start"); err != nil {
		return
	}
	end, err = r.time("end")
	return
}

func (r request) int(key string, def int) int {
	if !r.has(key) {
		return def
	}
	return int(r.fields[key].GetNumberValue())
}

func (r request) boolean(key string) bool {
	return r.fields[key].GetBoolValue()
}

func (r request) page() (int, int) {
	return r.int("page", 1), r.int("page_size", calendar.DefaultPageSize)
}

func reply(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func rfc3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return rfc3339(*t)
}

func resourceFields(r model.Resource) map[string]any {
	m := map[string]any{
		"id":     r.ID.String(),
		"kind":   string(r.Kind),
		"code":   r.Code,
		"label":  r.Label,
		"active": r.Active,
	}
	if r.TableNo != nil {
		m["table_no"] = *r.TableNo
	}
	if r.EquipmentType != "" {
		m["equipment_type"] = r.EquipmentType
	}
	if r.Room != "" {
		m["room"] = r.Room
	}
	return m
}

func resourceList(rs []model.Resource) []any {
	out := make([]any, len(rs))
	for i, r := range rs {
		out[i] = resourceFields(r)
	}
	return out
}

func bookingFields(b model.Booking) map[string]any {
	m := map[string]any{
		"id":            b.ID.String(),
		"resource_id":   b.ResourceID.String(),
		"booked_by":     b.BookedBy.String(),
		"booked_for":    b.BookedFor.String(),
		"start":         rfc3339(b.StartAt),
		"end":           rfc3339(b.EndAt),
		"status":        string(b.Status),
		"checked_in_at": optTime(b.CheckedInAt),
		"cancelled_at":  optTime(b.CancelledAt),
	}
	if b.GroupID != nil {
		m["group_id"] = b.GroupID.String()
	}
	if b.AttendanceCode != nil {
		m["attendance_code"] = *b.AttendanceCode
	}
	if b.Resource != nil {
		m["resource"] = resourceFields(*b.Resource)
	}
	return m
}

func bookingList(bs []model.Booking) []any {
	out := make([]any, len(bs))
	for i, b := range bs {
		out[i] = bookingFields(b)
	}
	return out
}

func pageFields[T any](p calendar.Page[T], items []any) map[string]any {
	return map[string]any{
		"items":     items,
		"page":      p.Page,
		"page_size": p.PageSize,
		"total":     p.Total,
		"has_next":  p.HasNext,
		"has_prev":  p.HasPrev,
	}
}

func userFields(u model.User, role model.RoleCode) map[string]any {
	if role == "" {
		role = model.RoleStudent
	}
	return map[string]any{
		"id":         u.ID.String(),
		"email":      u.Email,
		"full_name":  u.FullName,
		"student_id": u.StudentID,
		"active":     u.Active,
		"role":       string(role),
	}
}

func userList(us []repository.UserWithRole) []any {
	out := make([]any, len(us))
	for i, u := range us {
		out[i] = userFields(u.User, u.Role)
	}
	return out
}

func penaltyFields(p model.Penalty) map[string]any {
	return map[string]any{
		"id":         p.ID.String(),
		"booking_id": p.BookingID.String(),
		"user_id":    p.UserID.String(),
		"reason":     string(p.Reason),
		"amount":     p.Amount,
		"status":     string(p.Status),
		"created_at": rfc3339(p.CreatedAt),
	}
}

func dayHoursFields(d calendar.DayHours) map[string]any {
	m := map[string]any{
		"weekday": int(d.Weekday),
		"closed":  d.Closed,
	}
	if !d.Closed {
		m["open"] = d.Open.String()
		m["close"] = d.Close.String()
	}
	return m
}

func auditFields(a model.AuditLog) (map[string]any, error) {
	m := map[string]any{
		"id":         a.ID.String(),
		"action":     string(a.Action),
		"created_at": rfc3339(a.CreatedAt),
	}
	if a.UserID != nil {
		m["user_id"] = a.UserID.String()
	}
	if len(a.Payload) > 0 && string(a.Payload) != "null" {
		payload := &structpb.Struct{}
		if err := payload.UnmarshalJSON(a.Payload); err != nil {
			return nil, fmt.Errorf("audit %s payload: %w", a.ID, err)
		}
		m["payload"] = payload.AsMap()
	}
	return m, nil
}
