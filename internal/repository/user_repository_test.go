package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
)

func TestUpsertUser(t *testing.T) {
	repo := NewGormUserRepository(newTestDB(t))

	u, err := repo.UpsertUser(ctx, "  Alice@EWU.edu ", "Alice", "2021-1-60-001")
	require.NoError(t, err)
	assert.Equal(t, "alice@ewu.edu", u.Email)
	assert.True(t, u.Active)

	again, err := repo.UpsertUser(ctx, "alice@ewu.edu", "Alice Rahman", "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Alice Rahman", again.FullName)
	assert.Equal(t, "2021-1-60-001", again.StudentID)

	found, err := repo.FindByEmail(ctx, "ALICE@ewu.edu")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = repo.FindByEmail(ctx, " ")
	assert.True(t, IsNotFound(err))
}

func TestRolesAndAccounts(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewGormUserRepository(gdb)
	alice := seedUser(t, gdb, "alice@ewu.edu")
	bob := seedUser(t, gdb, "bob@ewu.edu")

	_, err := repo.GetRole(ctx, alice.ID)
	assert.True(t, IsNotFound(err))

	require.NoError(t, repo.SetRole(ctx, alice.ID, model.RoleStaff))
	require.NoError(t, repo.SetRole(ctx, alice.ID, model.RoleAdmin))
	role, err := repo.GetRole(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)

	acc, err := repo.FindAccount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, calendar.RoleAdmin, acc.Role)
	assert.True(t, acc.Active)

	// No role row yet: ValidateActor falls back to student.
	actor, err := calendar.ValidateActor(ctx, repo, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, calendar.RoleStudent, actor.Role)

	require.NoError(t, repo.SetActive(ctx, bob.ID, false))
	_, err = calendar.ValidateActor(ctx, repo, bob.ID)
	assert.ErrorIs(t, err, calendar.ErrUserInactive)

	_, err = calendar.ValidateActor(ctx, repo, uuid.New())
	assert.ErrorIs(t, err, calendar.ErrUserNotFound)

	assert.True(t, IsNotFound(repo.SetActive(ctx, uuid.New(), true)))
}

func TestListUsers(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewGormUserRepository(gdb)
	carol := seedUser(t, gdb, "carol@ewu.edu")
	seedUser(t, gdb, "alice@ewu.edu")
	seedUser(t, gdb, "bob@ewu.edu")
	require.NoError(t, repo.SetRole(ctx, carol.ID, model.RoleFaculty))

	all, total, err := repo.List(ctx, "", 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 2)
	assert.Equal(t, "alice@ewu.edu", all[0].User.Email)
	assert.Equal(t, model.RoleStudent, all[0].Role)

	faculty, total, err := repo.List(ctx, model.RoleFaculty, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, faculty, 1)
	assert.Equal(t, carol.ID, faculty[0].User.ID)
	assert.Equal(t, model.RoleFaculty, faculty[0].Role)
}
