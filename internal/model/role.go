package model

import "github.com/google/uuid"

type RoleCode string

const (
	RoleStudent RoleCode = "student"
	RoleFaculty RoleCode = "faculty"
	RoleStaff   RoleCode = "staff"
	RoleAdmin   RoleCode = "admin"
)

// Valid reports whether c is one of the known roles.
func (c RoleCode) Valid() bool {
	switch c {
	case RoleStudent, RoleFaculty, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// roles
type Role struct {
	ID   int64    `gorm:"primaryKey;autoIncrement"`
	Code RoleCode `gorm:"type:varchar(32);not null;uniqueIndex"`
	Name string   `gorm:"type:varchar(255)"`
}

// user_roles: composite PK, one role per user.
type UserRole struct {
	RoleID int64     `gorm:"primaryKey;index"`
	UserID uuid.UUID `gorm:"type:uuid;primaryKey;index"`

	Role *Role `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
