package reservation

import (
	"context"

	"github.com/google/uuid"

	"github.com/auntor69/ewu-hub-3.0/internal/audit"
	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/logging"
	"github.com/auntor69/ewu-hub-3.0/internal/metrics"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
)

// Cancel cancels a confirmed booking owned by actor, up to the cutoff of its
// resource kind before start.
func (s *Service) Cancel(ctx context.Context, actor calendar.Actor, bookingID uuid.UUID) (*model.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Cancel")
	defer span.End()

	b, err := s.cancel(ctx, actor, bookingID)
	s.metrics.Cancellations.WithLabelValues(cancelOutcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.log.Info().
		Str(logging.BookingID, b.ID.String()).
		Str(logging.UserID, actor.UserID.String()).
		Msg("booking cancelled")
	payload := map[string]any{"booking_id": b.ID.String()}
	if b.GroupID != nil {
		payload["group_id"] = b.GroupID.String()
	}
	uid := actor.UserID
	s.record(ctx, audit.Entry{UserID: &uid, Action: model.AuditActionBookingCancel, Payload: payload})
	return b, nil
}

func (s *Service) cancel(ctx context.Context, actor calendar.Actor, bookingID uuid.UUID) (*model.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, ErrBookingNotFound
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrBookingNotFound
		}
		return nil, queryErr("cancel", err)
	}
	if b.BookedBy != actor.UserID {
		return nil, ErrNotAuthorized
	}
	if err := cancelState(b.Status); err != nil {
		return nil, err
	}

	now := s.now()
	var kind model.ResourceKind
	if b.Resource != nil {
		kind = b.Resource.Kind
	}
	if deadline := b.StartAt.Add(-s.policy.rules(kind).CancelCutoff); now.After(deadline) {
		return nil, ErrCancellationWindowClosed
	}

	ok, err := s.bookings.Transition(ctx, b.ID, model.BookingStatusConfirmed, model.BookingStatusCancelled, now)
	if err != nil {
		return nil, writeErr("cancel", err)
	}
	if !ok {
		cur, err := s.bookings.GetByID(ctx, b.ID)
		if err != nil {
			return nil, queryErr("cancel", err)
		}
		if err := cancelState(cur.Status); err != nil {
			return nil, err
		}
		return nil, ErrBookingNotActive
	}

	at := now.UTC()
	b.Status = model.BookingStatusCancelled
	b.CancelledAt = &at
	return b, nil
}

func cancelState(status model.BookingStatus) error {
	switch status {
	case model.BookingStatusConfirmed:
		return nil
	case model.BookingStatusCancelled:
		return ErrAlreadyCancelled
	}
	return ErrBookingNotActive
}

func cancelOutcome(err error) string {
	switch err {
	case nil:
		return metrics.OutcomeOK
	case ErrAlreadyCancelled:
		return "already_cancelled"
	case ErrCancellationWindowClosed:
		return "window_closed"
	case ErrNotAuthorized:
		return "not_authorized"
	}
	return metrics.OutcomeRejected
}
