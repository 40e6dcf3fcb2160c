package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

// UserWithRole pairs a user row with its single role.
type UserWithRole struct {
	User model.User
	Role model.RoleCode
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertUser creates the user on first sight of email, otherwise refreshes
	// the profile fields. New users start active.
	UpsertUser(ctx context.Context, email, fullName, studentID string) (*model.User, error)
	SetRole(ctx context.Context, userID uuid.UUID, role model.RoleCode) error
	GetRole(ctx context.Context, userID uuid.UUID) (model.RoleCode, error)
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error
	// List returns users ordered by email, optionally filtered by role.
	List(ctx context.Context, role model.RoleCode, limit, offset int) ([]UserWithRole, int64, error)
	// FindAccount backs calendar.ValidateActor.
	FindAccount(ctx context.Context, id uuid.UUID) (*calendar.Account, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	n := normalizeEmail(email)
	if n == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", n).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) UpsertUser(ctx context.Context, email, fullName, studentID string) (*model.User, error) {
	email = normalizeEmail(email)
	var u model.User
	tx := r.db.WithContext(ctx).Where("email = ?", email).First(&u)
	if tx.Error != nil {
		if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, tx.Error
		}
		u = model.User{
			Email:     email,
			FullName:  fullName,
			StudentID: studentID,
			Active:    true,
		}
		if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
			return nil, err
		}
		return &u, nil
	}

	updates := map[string]any{}
	if fullName != "" {
		updates["full_name"] = fullName
	}
	if studentID != "" {
		updates["student_id"] = studentID
	}
	if len(updates) == 0 {
		return &u, nil
	}
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, u.ID)
}

func (r *GormUserRepository) SetRole(ctx context.Context, userID uuid.UUID, code model.RoleCode) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role model.Role
		if err := tx.Where("code = ?", code).First(&role).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			role = model.Role{Code: code, Name: string(code)}
			if err := tx.Create(&role).Error; err != nil {
				return err
			}
		}

		// single role policy
		if err := tx.Where("user_id = ?", userID).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Create(&model.UserRole{RoleID: role.ID, UserID: userID}).Error
	})
}

func (r *GormUserRepository) GetRole(ctx context.Context, userID uuid.UUID) (model.RoleCode, error) {
	var code string
	err := r.db.WithContext(ctx).
		Model(&model.UserRole{}).
		Select("roles.code").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ?", userID).
		Limit(1).
		Scan(&code).Error
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", gorm.ErrRecordNotFound
	}
	return model.RoleCode(code), nil
}

func (r *GormUserRepository) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormUserRepository) List(ctx context.Context, role model.RoleCode, limit, offset int) ([]UserWithRole, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if role != "" {
		q = q.Where("id IN (?)",
			r.db.Model(&model.UserRole{}).
				Select("user_roles.user_id").
				Joins("JOIN roles ON roles.id = user_roles.role_id").
				Where("roles.code = ?", role))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var users []model.User
	if err := q.Order("email ASC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	if len(users) == 0 {
		return []UserWithRole{}, total, nil
	}

	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	var rows []struct {
		UserID uuid.UUID
		Code   string
	}
	err := r.db.WithContext(ctx).
		Model(&model.UserRole{}).
		Select("user_roles.user_id, roles.code").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	roles := make(map[uuid.UUID]model.RoleCode, len(rows))
	for _, row := range rows {
		roles[row.UserID] = model.RoleCode(row.Code)
	}

	out := make([]UserWithRole, len(users))
	for i, u := range users {
		out[i] = UserWithRole{User: u, Role: roles[u.ID]}
		if out[i].Role == "" {
			out[i].Role = model.RoleStudent
		}
	}
	return out, total, nil
}

func (r *GormUserRepository) FindAccount(ctx context.Context, id uuid.UUID) (*calendar.Account, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, calendar.ErrUserNotFound
		}
		return nil, err
	}
	role, err := r.GetRole(ctx, id)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	return &calendar.Account{
		ID:     u.ID,
		Role:   calendar.Role(role),
		Active: u.Active,
	}, nil
}
