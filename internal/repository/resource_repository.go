package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

type ResourceRepository interface {
	// Create registers a resource (admin seeding).
	Create(ctx context.Context, r *model.Resource) error
	// GetByID returns one resource.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	// GetByCode returns one resource by its human code.
	GetByCode(ctx context.Context, code string) (*model.Resource, error)
	// ListByIDs returns the resources found among ids, in the order of ids.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Resource, error)
	// ListByKind returns active resources of a kind ordered by code.
	ListByKind(ctx context.Context, kind model.ResourceKind) ([]model.Resource, error)
	// ListEquipment returns active equipment units of a type, optionally in one room.
	ListEquipment(ctx context.Context, equipmentType, room string) ([]model.Resource, error)
}

type GormResourceRepository struct {
	db *gorm.DB
}

func NewGormResourceRepository(db *gorm.DB) *GormResourceRepository {
	return &GormResourceRepository{db: db}
}

func (r *GormResourceRepository) Create(ctx context.Context, res *model.Resource) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *GormResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	var res model.Resource
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *GormResourceRepository) GetByCode(ctx context.Context, code string) (*model.Resource, error) {
	var res model.Resource
	if err := r.db.WithContext(ctx).First(&res, "code = ?", strings.TrimSpace(code)).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *GormResourceRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Resource, error) {
	if len(ids) == 0 {
		return []model.Resource{}, nil
	}
	var found []model.Resource
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]model.Resource, len(found))
	for _, res := range found {
		byID[res.ID] = res
	}
	out := make([]model.Resource, 0, len(found))
	for _, id := range ids {
		if res, ok := byID[id]; ok {
			out = append(out, res)
			delete(byID, id)
		}
	}
	return out, nil
}

func (r *GormResourceRepository) ListByKind(ctx context.Context, kind model.ResourceKind) ([]model.Resource, error) {
	var out []model.Resource
	err := r.db.WithContext(ctx).
		Where("kind = ? AND active = ?", kind, true).
		Order("code ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormResourceRepository) ListEquipment(ctx context.Context, equipmentType, room string) ([]model.Resource, error) {
	q := r.db.WithContext(ctx).
		Where("kind = ? AND active = ?", model.ResourceKindEquipmentUnit, true).
		Where("LOWER(equipment_type) = ?", strings.ToLower(strings.TrimSpace(equipmentType)))
	if room != "" {
		q = q.Where("room = ?", room)
	}

	var out []model.Resource
	if err := q.Order("code ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
