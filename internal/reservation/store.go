package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
)

// BookingStore is the booking persistence the core needs. Implemented by
// repository.GormBookingRepository.
type BookingStore interface {
	ActiveIntervals(ctx context.Context, resourceIDs []uuid.UUID, notBefore time.Time) ([]model.BookingInterval, error)
	CreateBatch(ctx context.Context, resourceIDs []uuid.UUID, notBefore time.Time, plan repository.Planner) (*model.BookingGroup, []model.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	FindByAttendanceCode(ctx context.Context, code string) (*model.Booking, error)
	Transition(ctx context.Context, id uuid.UUID, from, to model.BookingStatus, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Booking, int64, error)
	ListByRange(ctx context.Context, from, to time.Time, limit, offset int) ([]model.Booking, int64, error)
	ListOverdueConfirmed(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error)
	MarkNoShow(ctx context.Context, id uuid.UUID, penalty *model.Penalty) (bool, error)
}

// ResourceStore resolves resource pools.
type ResourceStore interface {
	GetByCode(ctx context.Context, code string) (*model.Resource, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Resource, error)
	ListByKind(ctx context.Context, kind model.ResourceKind) ([]model.Resource, error)
	ListEquipment(ctx context.Context, equipmentType, room string) ([]model.Resource, error)
}

// OpeningHoursStore reads the weekly opening hours.
type OpeningHoursStore interface {
	List(ctx context.Context) ([]model.OpeningHours, error)
}

var (
	_ BookingStore      = (*repository.GormBookingRepository)(nil)
	_ ResourceStore     = (*repository.GormResourceRepository)(nil)
	_ OpeningHoursStore = (*repository.GormOpeningHoursRepository)(nil)
)
