package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

type OpeningHoursRepository interface {
	// List returns the configured weekdays, Sunday first.
	List(ctx context.Context) ([]model.OpeningHours, error)
	// Upsert replaces the rows of the given weekdays in one transaction.
	Upsert(ctx context.Context, days []model.OpeningHours) error
}

type GormOpeningHoursRepository struct {
	db *gorm.DB
}

func NewGormOpeningHoursRepository(db *gorm.DB) *GormOpeningHoursRepository {
	return &GormOpeningHoursRepository{db: db}
}

func (r *GormOpeningHoursRepository) List(ctx context.Context) ([]model.OpeningHours, error) {
	var out []model.OpeningHours
	if err := r.db.WithContext(ctx).Order("weekday ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormOpeningHoursRepository) Upsert(ctx context.Context, days []model.OpeningHours) error {
	if len(days) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range days {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "weekday"}},
				DoUpdates: clause.AssignmentColumns([]string{"open", "close", "closed", "updated_at"}),
			}).Create(&days[i]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
