package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/auntor69/ewu-hub-3.0/internal/audit"
	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/logging"
	"github.com/auntor69/ewu-hub-3.0/internal/metrics"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
)

// Selection is what Reserve books: either specific resources chosen by the
// user, or count resources auto-assigned from a pool.
type Selection struct {
	ids   []uuid.UUID
	pool  []model.Resource
	count int
	auto  bool
	// Required kind of every selected resource; empty accepts any one kind.
	kind model.ResourceKind
}

// Specific selects exactly ids; any of them being taken fails the whole
// reservation.
func Specific(ids ...uuid.UUID) Selection {
	return Selection{ids: ids}
}

// SpecificOf is Specific restricted to resources of kind.
func SpecificOf(kind model.ResourceKind, ids ...uuid.UUID) Selection {
	return Selection{ids: ids, kind: kind}
}

// AutoAssign books the first count free resources of pool, in pool order.
func AutoAssign(pool []model.Resource, count int) Selection {
	return Selection{pool: pool, count: count, auto: true}
}

// Reservation is the outcome of Reserve. Group is nil for one booking.
type Reservation struct {
	Group    *model.BookingGroup
	Bookings []model.Booking
}

// Reserve re-checks availability and writes the bookings in one storage
// transaction. More than one booking share a booking group.
func (s *Service) Reserve(ctx context.Context, actor calendar.Actor, sel Selection, start, end time.Time) (*Reservation, error) {
	started := s.now()
	ctx, span := s.tracer.Start(ctx, "reservation.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("auto_assign", sel.auto),
		attribute.String("actor", actor.UserID.String()),
	)

	res, kind, err := s.reserve(ctx, actor, sel, start, end)
	s.metrics.ReserveDuration.Observe(s.now().Sub(started).Seconds())
	s.metrics.Reservations.WithLabelValues(string(kind), reserveOutcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserve")
		s.log.Debug().Err(err).Str(logging.UserID, actor.UserID.String()).Msg("reserve rejected")
		return nil, err
	}

	s.metrics.BookingsCreated.WithLabelValues(string(kind)).Add(float64(len(res.Bookings)))
	s.recordCreate(ctx, actor, kind, res)
	return res, nil
}

func (s *Service) reserve(ctx context.Context, actor calendar.Actor, sel Selection, start, end time.Time) (*Reservation, model.ResourceKind, error) {
	if actor.UserID == uuid.Nil {
		return nil, "", ErrNotAuthorized
	}
	window, err := calendar.NewWindow(start, end)
	if err != nil {
		return nil, "", err
	}
	if window.Start.Before(s.now()) {
		return nil, "", fmt.Errorf("%w: window starts in the past", ErrInvalidWindow)
	}

	candidates, err := s.candidates(ctx, sel)
	if err != nil {
		return nil, "", err
	}
	kind := candidates[0].Kind
	for _, r := range candidates[1:] {
		if r.Kind != kind {
			return nil, kind, fmt.Errorf("%w: mixed resource kinds", ErrInvalidSelection)
		}
	}
	if sel.kind != "" && kind != sel.kind {
		return nil, kind, fmt.Errorf("%w: expected %s, got %s", ErrInvalidSelection, sel.kind, kind)
	}
	if err := s.checkRules(ctx, kind, window); err != nil {
		return nil, kind, err
	}

	ids := resourceIDs(candidates)
	for attempt := 1; ; attempt++ {
		res, err := s.write(ctx, actor, sel, candidates, window)
		if errors.Is(err, repository.ErrAttendanceCodeTaken) && attempt < s.policy.CodeRetries {
			s.log.Warn().Int("attempt", attempt).Msg("attendance code collision, regenerating")
			continue
		}
		if err == nil {
			return res, kind, nil
		}
		switch {
		case errors.Is(err, ErrResourceNoLongerAvailable),
			errors.Is(err, ErrInsufficientAvailability):
			return nil, kind, err
		case errors.Is(err, repository.ErrOverlap):
			// Only reachable when the exclusion constraint caught a writer
			// the row locks did not serialise against.
			return nil, kind, &UnavailableError{ResourceIDs: ids}
		}
		return nil, kind, writeErr("reserve", err)
	}
}

// candidates resolves the selection into resources, in selection order.
func (s *Service) candidates(ctx context.Context, sel Selection) ([]model.Resource, error) {
	if sel.auto {
		if sel.count < 1 {
			return nil, fmt.Errorf("%w: count must be positive", ErrInvalidSelection)
		}
		if len(sel.pool) == 0 {
			return nil, &InsufficientError{Requested: sel.count, Available: 0}
		}
		// a unit listed twice must not be booked twice
		pool := make([]model.Resource, 0, len(sel.pool))
		seen := make(map[uuid.UUID]struct{}, len(sel.pool))
		for _, r := range sel.pool {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			pool = append(pool, r)
		}
		return pool, nil
	}

	if len(sel.ids) == 0 {
		return nil, fmt.Errorf("%w: no resources selected", ErrInvalidSelection)
	}
	seen := make(map[uuid.UUID]struct{}, len(sel.ids))
	for _, id := range sel.ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: resource %s selected twice", ErrInvalidSelection, id)
		}
		seen[id] = struct{}{}
	}

	qctx, cancel := s.withTimeout(ctx)
	defer cancel()
	found, err := s.resources.ListByIDs(qctx, sel.ids)
	if err != nil {
		return nil, queryErr("resolve selection", err)
	}
	byID := make(map[uuid.UUID]model.Resource, len(found))
	for _, r := range found {
		if r.Active {
			byID[r.ID] = r
		}
	}
	out := make([]model.Resource, len(sel.ids))
	for i, id := range sel.ids {
		r, ok := byID[id]
		if !ok {
			return nil, ErrResourceNotFound
		}
		out[i] = r
	}
	return out, nil
}

// checkRules applies the per-kind policy that needs no booking data.
func (s *Service) checkRules(ctx context.Context, kind model.ResourceKind, window calendar.TimeRange) error {
	rules := s.policy.rules(kind)
	if rules.MaxDuration > 0 && window.Duration() > rules.MaxDuration {
		return fmt.Errorf("%w: %s allows at most %s", ErrWindowTooLong, kind, rules.MaxDuration)
	}
	if !rules.EnforceOpeningHours || s.hours == nil {
		return nil
	}

	week, err := s.openingHours(ctx)
	if err != nil {
		return err
	}
	if !calendar.WithinOpeningHours(window, week, s.policy.Location) {
		return ErrOutsideOpeningHours
	}
	return nil
}

func (s *Service) openingHours(ctx context.Context) ([]calendar.DayHours, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.hours.List(ctx)
	if err != nil {
		return nil, queryErr("opening hours", err)
	}
	week := make([]calendar.DayHours, 0, len(rows))
	for _, row := range rows {
		day, err := DayHoursFromModel(row)
		if err != nil {
			s.log.Warn().Err(err).Int("weekday", row.Weekday).Msg("skipping malformed opening hours")
			continue
		}
		week = append(week, day)
	}
	return week, nil
}

// write runs the locked re-check and the insert in one transaction.
func (s *Service) write(
	ctx context.Context,
	actor calendar.Actor,
	sel Selection,
	candidates []model.Resource,
	window calendar.TimeRange,
) (*Reservation, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	plan := func(active []model.BookingInterval) (*model.BookingGroup, []model.Booking, error) {
		free, busy := partition(candidates, window, active)

		var chosen []model.Resource
		if sel.auto {
			if len(free) < sel.count {
				return nil, nil, &InsufficientError{Requested: sel.count, Available: len(free)}
			}
			chosen = free[:sel.count]
		} else {
			if len(busy) > 0 {
				return nil, nil, &UnavailableError{ResourceIDs: resourceIDs(busy)}
			}
			chosen = candidates
		}

		bookings := make([]model.Booking, len(chosen))
		for i, r := range chosen {
			code, err := s.newCode()
			if err != nil {
				return nil, nil, err
			}
			bookings[i] = model.Booking{
				ResourceID:     r.ID,
				BookedBy:       actor.UserID,
				BookedFor:      actor.UserID,
				StartAt:        window.Start.UTC(),
				EndAt:          window.End.UTC(),
				Status:         model.BookingStatusConfirmed,
				AttendanceCode: &code,
			}
		}

		var group *model.BookingGroup
		if len(bookings) > 1 {
			group = &model.BookingGroup{CreatedBy: actor.UserID}
		}
		return group, bookings, nil
	}

	group, bookings, err := s.bookings.CreateBatch(ctx, resourceIDs(candidates), window.Start, plan)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]model.Resource, len(candidates))
	for _, r := range candidates {
		byID[r.ID] = r
	}
	for i := range bookings {
		r := byID[bookings[i].ResourceID]
		bookings[i].Resource = &r
	}
	return &Reservation{Group: group, Bookings: bookings}, nil
}

func (s *Service) recordCreate(ctx context.Context, actor calendar.Actor, kind model.ResourceKind, res *Reservation) {
	ids := make([]string, len(res.Bookings))
	for i, b := range res.Bookings {
		ids[i] = b.ID.String()
	}
	payload := map[string]any{
		"kind":        kind,
		"count":       len(res.Bookings),
		"booking_ids": ids,
		"start_at":    res.Bookings[0].StartAt,
		"end_at":      res.Bookings[0].EndAt,
	}
	ev := s.log.Info().
		Str(logging.UserID, actor.UserID.String()).
		Str(logging.Kind, string(kind)).
		Int(logging.Count, len(res.Bookings))
	if res.Group != nil {
		payload["group_id"] = res.Group.ID.String()
		ev = ev.Str(logging.GroupID, res.Group.ID.String())
	}
	ev.Msg("reservation created")

	uid := actor.UserID
	s.record(ctx, audit.Entry{UserID: &uid, Action: model.AuditActionBookingCreate, Payload: payload})
}

func reserveOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrResourceNoLongerAvailable), errors.Is(err, ErrInsufficientAvailability):
		return metrics.OutcomeConflict
	case errors.Is(err, ErrUpstreamQuery), errors.Is(err, ErrUpstreamWrite):
		return metrics.OutcomeUpstreamErr
	}
	return metrics.OutcomeRejected
}
