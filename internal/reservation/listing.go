package reservation

import (
	"context"
	"time"

	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

// ListMyBookings pages through the bookings made for actor, newest first.
func (s *Service) ListMyBookings(ctx context.Context, actor calendar.Actor, page, size int) (calendar.Page[model.Booking], error) {
	page, size = calendar.NormalizePage(page, size)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	items, total, err := s.bookings.ListByUser(ctx, actor.UserID, size, calendar.Offset(page, size))
	if err != nil {
		return calendar.Page[model.Booking]{}, queryErr("list my bookings", err)
	}
	return calendar.PageOf(items, page, size, total), nil
}

// ListDayBookings pages through bookings starting on the campus-local day
// containing day. Staff and admins only.
func (s *Service) ListDayBookings(ctx context.Context, actor calendar.Actor, day time.Time, page, size int) (calendar.Page[model.Booking], error) {
	if !actor.Is(calendar.RoleStaff, calendar.RoleAdmin) {
		return calendar.Page[model.Booking]{}, ErrNotAuthorized
	}
	page, size = calendar.NormalizePage(page, size)

	local := day.In(s.policy.Location)
	y, m, d := local.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, s.policy.Location)
	to := from.AddDate(0, 0, 1)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	items, total, err := s.bookings.ListByRange(ctx, from, to, size, calendar.Offset(page, size))
	if err != nil {
		return calendar.Page[model.Booking]{}, queryErr("list day bookings", err)
	}
	return calendar.PageOf(items, page, size, total), nil
}
