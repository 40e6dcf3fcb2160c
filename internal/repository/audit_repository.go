package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

type AuditRepository interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	// List returns entries newest first, optionally filtered by action.
	List(ctx context.Context, action model.AuditAction, limit, offset int) ([]model.AuditLog, int64, error)
}

type GormAuditRepository struct {
	db *gorm.DB
}

func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Insert(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormAuditRepository) List(
	ctx context.Context,
	action model.AuditAction,
	limit, offset int,
) ([]model.AuditLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if action != "" {
		q = q.Where("action = ?", action)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var out []model.AuditLog
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
