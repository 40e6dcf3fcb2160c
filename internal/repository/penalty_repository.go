package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

type PenaltyRepository interface {
	Create(ctx context.Context, p *model.Penalty) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Penalty, error)
	// UpdateStatus sets the status and returns the updated row.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PenaltyStatus) (*model.Penalty, error)
	// List returns penalties newest first, optionally filtered by status.
	List(ctx context.Context, status model.PenaltyStatus, limit, offset int) ([]model.Penalty, int64, error)
}

type GormPenaltyRepository struct {
	db *gorm.DB
}

func NewGormPenaltyRepository(db *gorm.DB) *GormPenaltyRepository {
	return &GormPenaltyRepository{db: db}
}

func (r *GormPenaltyRepository) Create(ctx context.Context, p *model.Penalty) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *GormPenaltyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Penalty, error) {
	var p model.Penalty
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormPenaltyRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status model.PenaltyStatus,
) (*model.Penalty, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Penalty{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *GormPenaltyRepository) List(
	ctx context.Context,
	status model.PenaltyStatus,
	limit, offset int,
) ([]model.Penalty, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Penalty{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var out []model.Penalty
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
