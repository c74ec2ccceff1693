package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/repo"
	"github.com/pkordes/culture-map/backend/testutil"
)

// testRepos bundles every repo backed by the same transaction, so tests can
// build full hierarchies (user → tag → object) that are rolled back together.
type testRepos struct {
	users   repo.UserRepo
	tags    repo.TagRepo
	objects repo.ObjectRepo
}

func newTestRepos(t *testing.T) testRepos {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return testRepos{
		users:   repo.NewUserRepo(tx),
		tags:    repo.NewTagRepo(tx),
		objects: repo.NewObjectRepo(tx),
	}
}

// unique returns prefix with a short random suffix so fixtures never collide
// with rows left behind by seeding.
func unique(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func mustCreateUser(t *testing.T, r testRepos, staff bool) domain.User {
	t.Helper()
	name := unique("user")
	u, err := r.users.Create(context.Background(), domain.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "$2a$10$fixturehashfixturehashfixturehashfixturehashfixtur",
		IsStaff:      staff,
	})
	require.NoError(t, err, "create fixture user")
	return u
}

func mustCreateTag(t *testing.T, r testRepos, name string) domain.Tag {
	t.Helper()
	n := unique(name)
	tag, err := r.tags.Upsert(context.Background(), n, n, "")
	require.NoError(t, err, "create fixture tag")
	return tag
}

// objectFixture returns a valid pending object authored by author.
func objectFixture(author domain.User, tags ...domain.Tag) domain.CulturalObject {
	return domain.CulturalObject{
		Title:       unique("Lutsk Castle"),
		Description: "Gothic castle of Lubart",
		Latitude:    50.7393,
		Longitude:   25.3237,
		Status:      domain.StatusPending,
		AuthorID:    author.ID,
		Tags:        tags,
	}
}

func mustCreateObject(t *testing.T, r testRepos, obj domain.CulturalObject) domain.CulturalObject {
	t.Helper()
	got, err := r.objects.Create(context.Background(), obj)
	require.NoError(t, err, "create fixture object")
	return got
}

func ids(objs []domain.CulturalObject) []uuid.UUID {
	out := make([]uuid.UUID, len(objs))
	for i, o := range objs {
		out[i] = o.ID
	}
	return out
}
