package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

// Planner runs inside the insert transaction, after the candidate resource
// rows are locked, with the active intervals of those resources. It returns
// the group (nil for none) and the bookings to insert; an error aborts the
// transaction and is returned as is.
type Planner func(active []model.BookingInterval) (*model.BookingGroup, []model.Booking, error)

type BookingRepository interface {
	// ActiveIntervals returns (resource, start, end) of confirmed/arrived
	// bookings on resourceIDs that end after notBefore.
	ActiveIntervals(ctx context.Context, resourceIDs []uuid.UUID, notBefore time.Time) ([]model.BookingInterval, error)
	// CreateBatch locks resourceIDs, hands their active intervals ending
	// after notBefore to plan and inserts what plan returns. Either every row
	// is written or none is.
	CreateBatch(
		ctx context.Context,
		resourceIDs []uuid.UUID,
		notBefore time.Time,
		plan Planner,
	) (*model.BookingGroup, []model.Booking, error)
	// GetByID returns a booking with its resource.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// FindByAttendanceCode returns the booking carrying code, any status.
	FindByAttendanceCode(ctx context.Context, code string) (*model.Booking, error)
	// Transition moves a booking from one status to another only if it is
	// still in from; at is stamped into checked_in_at or cancelled_at.
	Transition(ctx context.Context, id uuid.UUID, from, to model.BookingStatus, at time.Time) (bool, error)
	// ListByUser lists bookings made for a user, newest start first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Booking, int64, error)
	// ListByRange lists bookings starting inside [from, to), earliest first.
	ListByRange(ctx context.Context, from, to time.Time, limit, offset int) ([]model.Booking, int64, error)
	// ListOverdueConfirmed lists confirmed bookings that started before cutoff.
	ListOverdueConfirmed(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error)
	// MarkNoShow moves a confirmed booking to no_show and records penalty
	// (when non-nil) in the same transaction.
	MarkNoShow(ctx context.Context, id uuid.UUID, penalty *model.Penalty) (bool, error)
}

// GORM implementation.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) ActiveIntervals(
	ctx context.Context,
	resourceIDs []uuid.UUID,
	notBefore time.Time,
) ([]model.BookingInterval, error) {
	return activeIntervals(r.db.WithContext(ctx), resourceIDs, notBefore)
}

func activeIntervals(tx *gorm.DB, resourceIDs []uuid.UUID, notBefore time.Time) ([]model.BookingInterval, error) {
	if len(resourceIDs) == 0 {
		return []model.BookingInterval{}, nil
	}
	var out []model.BookingInterval
	err := tx.Model(&model.Booking{}).
		Select("resource_id, start_at, end_at").
		Where("resource_id IN ?", resourceIDs).
		Where("status IN ?", model.ActiveBookingStatuses).
		Where("end_at > ?", notBefore.UTC()).
		Order("start_at ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormBookingRepository) CreateBatch(
	ctx context.Context,
	resourceIDs []uuid.UUID,
	notBefore time.Time,
	plan Planner,
) (*model.BookingGroup, []model.Booking, error) {
	if len(resourceIDs) == 0 {
		return nil, nil, errors.New("create batch: no resources")
	}
	ids := sortedUnique(resourceIDs)

	var (
		group    *model.BookingGroup
		bookings []model.Booking
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialises writers per resource. Sorted ids keep lock order
		// deadlock-free; sqlite ignores the clause and has a single writer.
		var locked []model.Resource
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id IN ?", ids).
			Order("id").
			Find(&locked).Error; err != nil {
			return fmt.Errorf("lock resources: %w", err)
		}

		active, err := activeIntervals(tx, ids, notBefore)
		if err != nil {
			return fmt.Errorf("recheck intervals: %w", err)
		}

		group, bookings, err = plan(active)
		if err != nil {
			return err
		}
		if len(bookings) == 0 {
			return errors.New("create batch: plan returned no bookings")
		}

		if err := ensureCodesFree(tx, bookings); err != nil {
			return err
		}

		if group != nil {
			if err := tx.Create(group).Error; err != nil {
				return fmt.Errorf("create group: %w", err)
			}
		}
		for i := range bookings {
			if group != nil {
				bookings[i].GroupID = &group.ID
			}
			bookings[i].StartAt = bookings[i].StartAt.UTC()
			bookings[i].EndAt = bookings[i].EndAt.UTC()
			if err := tx.Omit(clause.Associations).Create(&bookings[i]).Error; err != nil {
				return classifyWriteError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return group, bookings, nil
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return out
}

func ensureCodesFree(tx *gorm.DB, bookings []model.Booking) error {
	codes := make([]string, 0, len(bookings))
	seen := make(map[string]struct{}, len(bookings))
	for _, b := range bookings {
		if b.AttendanceCode == nil {
			continue
		}
		if _, dup := seen[*b.AttendanceCode]; dup {
			return ErrAttendanceCodeTaken
		}
		seen[*b.AttendanceCode] = struct{}{}
		codes = append(codes, *b.AttendanceCode)
	}
	if len(codes) == 0 {
		return nil
	}

	var taken int64
	if err := tx.Model(&model.Booking{}).Where("attendance_code IN ?", codes).Count(&taken).Error; err != nil {
		return fmt.Errorf("check attendance codes: %w", err)
	}
	if taken > 0 {
		return ErrAttendanceCodeTaken
	}
	return nil
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).Preload("Resource").First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepository) FindByAttendanceCode(ctx context.Context, code string) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).Preload("Resource").First(&b, "attendance_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepository) Transition(
	ctx context.Context,
	id uuid.UUID,
	from, to model.BookingStatus,
	at time.Time,
) (bool, error) {
	return transition(r.db.WithContext(ctx), id, from, to, at)
}

func transition(tx *gorm.DB, id uuid.UUID, from, to model.BookingStatus, at time.Time) (bool, error) {
	update := map[string]any{
		"status": to,
	}
	switch to {
	case model.BookingStatusArrived:
		update["checked_in_at"] = at.UTC()
	case model.BookingStatusCancelled:
		update["cancelled_at"] = at.UTC()
	}

	res := tx.Model(&model.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(update)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormBookingRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]model.Booking, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("booked_for = ?", userID)
	return listPage(q, "start_at DESC", limit, offset)
}

func (r *GormBookingRepository) ListByRange(
	ctx context.Context,
	from, to time.Time,
	limit, offset int,
) ([]model.Booking, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("start_at >= ? AND start_at < ?", from.UTC(), to.UTC())
	return listPage(q, "start_at ASC", limit, offset)
}

func listPage(q *gorm.DB, order string, limit, offset int) ([]model.Booking, int64, error) {
	var (
		bookings []model.Booking
		total    int64
	)
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Preload("Resource").Order(order).Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *GormBookingRepository) ListOverdueConfirmed(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error) {
	q := r.db.WithContext(ctx).
		Preload("Resource").
		Where("status = ? AND start_at < ?", model.BookingStatusConfirmed, cutoff.UTC()).
		Order("start_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.Booking
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormBookingRepository) MarkNoShow(ctx context.Context, id uuid.UUID, penalty *model.Penalty) (bool, error) {
	var moved bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := transition(tx, id, model.BookingStatusConfirmed, model.BookingStatusNoShow, time.Time{})
		if err != nil {
			return err
		}
		moved = ok
		if !ok || penalty == nil {
			return nil
		}
		penalty.BookingID = id
		return tx.Omit(clause.Associations).Create(penalty).Error
	})
	if err != nil {
		return false, err
	}
	return moved, nil
}
