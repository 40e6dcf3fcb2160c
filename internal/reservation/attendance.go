package reservation

import (
	"context"
	"strings"
	"time"

	"github.com/auntor69/ewu-hub-3.0/internal/audit"
	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/logging"
	"github.com/auntor69/ewu-hub-3.0/internal/metrics"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
)

// CheckIn marks the booking holding code as arrived. Staff and admins only.
//
// Accepted from start-CheckInOpensBefore up to start+CheckInGrace
// inclusive; each way of failing has its own error.
func (s *Service) CheckIn(ctx context.Context, actor calendar.Actor, code string, now time.Time) (*model.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.CheckIn")
	defer span.End()

	b, err := s.checkIn(ctx, actor, code, now)
	s.metrics.CheckIns.WithLabelValues(checkInOutcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.log.Info().
		Str(logging.BookingID, b.ID.String()).
		Str(logging.UserID, actor.UserID.String()).
		Msg("checked in")
	uid := actor.UserID
	s.record(ctx, audit.Entry{
		UserID: &uid,
		Action: model.AuditActionBookingCheckIn,
		Payload: map[string]any{
			"booking_id": b.ID.String(),
			"booked_for": b.BookedFor.String(),
		},
		At: now,
	})
	return b, nil
}

func (s *Service) checkIn(ctx context.Context, actor calendar.Actor, code string, now time.Time) (*model.Booking, error) {
	if !actor.Is(calendar.RoleStaff, calendar.RoleAdmin) {
		return nil, ErrNotAuthorized
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInvalidCode
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b, err := s.bookings.FindByAttendanceCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCode
		}
		return nil, queryErr("check in", err)
	}
	if err := checkInState(b.Status); err != nil {
		return nil, err
	}

	if now.Sub(b.StartAt) > s.policy.CheckInGrace {
		return nil, ErrCheckInWindowExpired
	}
	if now.Before(b.StartAt.Add(-s.policy.CheckInOpensBefore)) {
		return nil, ErrCheckInNotOpen
	}

	ok, err := s.bookings.Transition(ctx, b.ID, model.BookingStatusConfirmed, model.BookingStatusArrived, now)
	if err != nil {
		return nil, writeErr("check in", err)
	}
	if !ok {
		// Lost a race; report what the booking turned into.
		cur, err := s.bookings.GetByID(ctx, b.ID)
		if err != nil {
			return nil, queryErr("check in", err)
		}
		if err := checkInState(cur.Status); err != nil {
			return nil, err
		}
		return nil, ErrBookingNotActive
	}

	at := now.UTC()
	b.Status = model.BookingStatusArrived
	b.CheckedInAt = &at
	return b, nil
}

func checkInState(status model.BookingStatus) error {
	switch status {
	case model.BookingStatusConfirmed:
		return nil
	case model.BookingStatusArrived:
		return ErrAlreadyCheckedIn
	}
	return ErrBookingNotActive
}

func checkInOutcome(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	switch err {
	case ErrInvalidCode:
		return "invalid_code"
	case ErrCheckInWindowExpired:
		return "expired"
	case ErrCheckInNotOpen:
		return "not_open"
	case ErrAlreadyCheckedIn:
		return "already_checked_in"
	case ErrBookingNotActive:
		return "not_active"
	}
	return metrics.OutcomeRejected
}

const sweepBatch = 200

// SweepNoShows moves confirmed bookings whose check-in grace elapsed before
// now to no_show and records the kind's penalty with each. It returns the
// number of bookings swept.
func (s *Service) SweepNoShows(ctx context.Context, now time.Time) (int, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.SweepNoShows")
	defer span.End()

	cutoff := now.Add(-s.policy.CheckInGrace)
	swept := 0
	for {
		qctx, cancel := s.withTimeout(ctx)
		overdue, err := s.bookings.ListOverdueConfirmed(qctx, cutoff, sweepBatch)
		cancel()
		if err != nil {
			return swept, queryErr("sweep no-shows", err)
		}

		for i := range overdue {
			moved, err := s.markNoShow(ctx, &overdue[i], now)
			if err != nil {
				return swept, err
			}
			if moved {
				swept++
			}
		}
		if len(overdue) < sweepBatch {
			break
		}
	}

	if swept > 0 {
		s.metrics.NoShows.Add(float64(swept))
		s.log.Info().Int(logging.Count, swept).Msg("no-shows swept")
	}
	return swept, nil
}

func (s *Service) markNoShow(ctx context.Context, b *model.Booking, now time.Time) (bool, error) {
	var kind model.ResourceKind
	if b.Resource != nil {
		kind = b.Resource.Kind
	}

	var penalty *model.Penalty
	if fee := s.policy.rules(kind).NoShowFee; fee > 0 {
		penalty = &model.Penalty{
			UserID: b.BookedFor,
			Reason: model.PenaltyReasonNoShow,
			Amount: fee,
			Status: model.PenaltyStatusPending,
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	moved, err := s.bookings.MarkNoShow(ctx, b.ID, penalty)
	if err != nil {
		return false, writeErr("mark no-show", err)
	}
	if !moved {
		return false, nil
	}

	payload := map[string]any{
		"booking_id": b.ID.String(),
		"kind":       kind,
	}
	if penalty != nil {
		payload["penalty_id"] = penalty.ID.String()
		payload["amount"] = penalty.Amount
	}
	uid := b.BookedFor
	s.record(ctx, audit.Entry{UserID: &uid, Action: model.AuditActionBookingNoShow, Payload: payload, At: now})
	return true, nil
}
