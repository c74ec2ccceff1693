package repo_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	u := mustCreateUser(t, r, true)

	byID, err := r.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, byID.Username)
	assert.True(t, byID.IsStaff)

	byName, err := r.users.GetByUsername(ctx, u.Username)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, u.PasswordHash, byName.PasswordHash)
}

func TestUserRepo_Create_DuplicateUsername(t *testing.T) {
	r := newTestRepos(t)
	u := mustCreateUser(t, r, false)

	_, err := r.users.Create(context.Background(), domain.User{
		Username:     u.Username,
		Email:        unique("other") + "@example.com",
		PasswordHash: "x",
	})

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserRepo_GetByUsername_NotFound(t *testing.T) {
	r := newTestRepos(t)

	_, err := r.users.GetByUsername(context.Background(), unique("ghost"))

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	r := newTestRepos(t)

	_, err := r.users.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_Exists(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	u := mustCreateUser(t, r, false)

	taken, err := r.users.UsernameExists(ctx, u.Username)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = r.users.EmailExists(ctx, strings.ToUpper(u.Email))
	require.NoError(t, err)
	assert.True(t, taken, "email comparison ignores case")

	taken, err = r.users.UsernameExists(ctx, unique("free"))
	require.NoError(t, err)
	assert.False(t, taken)
}
