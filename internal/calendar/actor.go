package calendar

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrUserNotFound  = errors.New("user not found")
	ErrUserInactive  = errors.New("user is inactive")
)

// Role of an acting user.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Account is what the store knows about a user.
type Account struct {
	ID     uuid.UUID
	Role   Role
	Active bool
}

// Actor is the validated identity passed explicitly into every operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// Is reports whether the actor holds one of roles.
func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// AccountStore is the user lookup behind ValidateActor. Backed by the user
// repository in production and by a fake in tests.
type AccountStore interface {
	FindAccount(ctx context.Context, id uuid.UUID) (*Account, error)
}

// ValidateActor:
//   - rejects the nil id;
//   - loads the account;
//   - rejects deactivated accounts;
//   - returns the actor to thread through the call.
func ValidateActor(ctx context.Context, store AccountStore, id uuid.UUID) (Actor, error) {
	if id == uuid.Nil {
		return Actor{}, ErrInvalidUserID
	}

	acc, err := store.FindAccount(ctx, id)
	if err != nil {
		return Actor{}, err
	}
	if acc == nil {
		return Actor{}, ErrUserNotFound
	}
	if !acc.Active {
		return Actor{}, ErrUserInactive
	}
	if acc.Role == "" {
		acc.Role = RoleStudent
	}

	return Actor{UserID: acc.ID, Role: acc.Role}, nil
}
