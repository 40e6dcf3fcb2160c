package httpapi

import (
	"time"

	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

type resourceView struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Code          string `json:"code"`
	Label         string `json:"label"`
	TableNo       *int   `json:"table_no,omitempty"`
	EquipmentType string `json:"equipment_type,omitempty"`
	Room          string `json:"room,omitempty"`
}

func toResourceView(r model.Resource) resourceView {
	return resourceView{
		ID:            r.ID.String(),
		Kind:          string(r.Kind),
		Code:          r.Code,
		Label:         r.Label,
		TableNo:       r.TableNo,
		EquipmentType: r.EquipmentType,
		Room:          r.Room,
	}
}

func toResourceViews(rs []model.Resource) []resourceView {
	out := make([]resourceView, len(rs))
	for i, r := range rs {
		out[i] = toResourceView(r)
	}
	return out
}

type bookingView struct {
	ID             string        `json:"id"`
	ResourceID     string        `json:"resource_id"`
	GroupID        *string       `json:"group_id,omitempty"`
	BookedFor      string        `json:"booked_for"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	Status         string        `json:"status"`
	AttendanceCode *string       `json:"attendance_code,omitempty"`
	CheckedInAt    *time.Time    `json:"checked_in_at,omitempty"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`
	Resource       *resourceView `json:"resource,omitempty"`
}

func toBookingView(b model.Booking) bookingView {
	v := bookingView{
		ID:             b.ID.String(),
		ResourceID:     b.ResourceID.String(),
		BookedFor:      b.BookedFor.String(),
		Start:          b.StartAt.UTC(),
		End:            b.EndAt.UTC(),
		Status:         string(b.Status),
		AttendanceCode: b.AttendanceCode,
		CheckedInAt:    b.CheckedInAt,
		CancelledAt:    b.CancelledAt,
	}
	if b.GroupID != nil {
		g := b.GroupID.String()
		v.GroupID = &g
	}
	if b.Resource != nil {
		r := toResourceView(*b.Resource)
		v.Resource = &r
	}
	return v
}

func toBookingViews(bs []model.Booking) []bookingView {
	out := make([]bookingView, len(bs))
	for i, b := range bs {
		out[i] = toBookingView(b)
	}
	return out
}

type pageView[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	HasNext  bool `json:"has_next"`
	HasPrev  bool `json:"has_prev"`
}

func toPageView[S, T any](p calendar.Page[S], conv func([]S) []T) pageView[T] {
	return pageView[T]{
		Items:    conv(p.Items),
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    p.Total,
		HasNext:  p.HasNext,
		HasPrev:  p.HasPrev,
	}
}
