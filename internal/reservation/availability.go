package reservation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
)

// FindAvailable returns the resources of pool with no active booking
// overlapping [start, end), in pool order. It is a snapshot, not a hold.
func (s *Service) FindAvailable(ctx context.Context, pool []model.Resource, start, end time.Time) ([]model.Resource, error) {
	free, _, err := s.Partition(ctx, pool, start, end)
	return free, err
}

// Partition splits pool into free and busy for [start, end), both in pool
// order.
func (s *Service) Partition(ctx context.Context, pool []model.Resource, start, end time.Time) (free, busy []model.Resource, err error) {
	window, err := calendar.NewWindow(start, end)
	if err != nil {
		return nil, nil, err
	}

	ctx, span := s.tracer.Start(ctx, "reservation.Partition")
	defer span.End()
	span.SetAttributes(attribute.Int("pool.size", len(pool)))

	if len(pool) == 0 {
		return []model.Resource{}, []model.Resource{}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	active, err := s.bookings.ActiveIntervals(ctx, resourceIDs(pool), window.Start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "active intervals")
		return nil, nil, queryErr("find available", err)
	}

	free, busy = partition(pool, window, active)
	span.SetAttributes(attribute.Int("free", len(free)))
	return free, busy, nil
}

// partition is shared by the availability view and the locked re-check.
func partition(pool []model.Resource, window calendar.TimeRange, active []model.BookingInterval) (free, busy []model.Resource) {
	taken := make(map[uuid.UUID]bool)
	for _, iv := range active {
		if taken[iv.ResourceID] {
			continue
		}
		if calendar.Overlaps(window, calendar.TimeRange{Start: iv.StartAt, End: iv.EndAt}) {
			taken[iv.ResourceID] = true
		}
	}

	free = make([]model.Resource, 0, len(pool))
	busy = make([]model.Resource, 0)
	for _, r := range pool {
		if taken[r.ID] {
			busy = append(busy, r)
		} else {
			free = append(free, r)
		}
	}
	return free, busy
}

func resourceIDs(pool []model.Resource) []uuid.UUID {
	ids := make([]uuid.UUID, len(pool))
	for i, r := range pool {
		ids[i] = r.ID
	}
	return ids
}

// SeatPool returns every active library seat ordered by code.
func (s *Service) SeatPool(ctx context.Context) ([]model.Resource, error) {
	return s.kindPool(ctx, model.ResourceKindLibrarySeat)
}

// RoomPool returns every active room ordered by code.
func (s *Service) RoomPool(ctx context.Context) ([]model.Resource, error) {
	return s.kindPool(ctx, model.ResourceKindRoom)
}

func (s *Service) kindPool(ctx context.Context, kind model.ResourceKind) ([]model.Resource, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pool, err := s.resources.ListByKind(ctx, kind)
	if err != nil {
		return nil, queryErr(string(kind)+" pool", err)
	}
	return pool, nil
}

// EquipmentPool returns active units of equipmentType, optionally limited
// to one room.
func (s *Service) EquipmentPool(ctx context.Context, equipmentType, room string) ([]model.Resource, error) {
	if strings.TrimSpace(equipmentType) == "" {
		return nil, ErrInvalidSelection
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pool, err := s.resources.ListEquipment(ctx, equipmentType, strings.TrimSpace(room))
	if err != nil {
		return nil, queryErr("equipment pool", err)
	}
	return pool, nil
}

// RoomByCode resolves an active room.
func (s *Service) RoomByCode(ctx context.Context, code string) (*model.Resource, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	r, err := s.resources.GetByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrResourceNotFound
		}
		return nil, queryErr("room by code", err)
	}
	if r.Kind != model.ResourceKindRoom || !r.Active {
		return nil, ErrResourceNotFound
	}
	return r, nil
}
