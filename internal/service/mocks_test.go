package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/policy"
	"github.com/pkordes/culture-map/backend/internal/repo"
)

// mockTagRepo is a hand-written test double for repo.TagRepo.
// Each method is a function field; set only the ones your test needs.
type mockTagRepo struct {
	upsert   func(ctx context.Context, name, slug, icon string) (domain.Tag, error)
	list     func(ctx context.Context) ([]domain.Tag, error)
	getByID  func(ctx context.Context, id uuid.UUID) (domain.Tag, error)
	getByIDs func(ctx context.Context, ids []uuid.UUID) ([]domain.Tag, error)
}

func (m *mockTagRepo) Upsert(ctx context.Context, name, slug, icon string) (domain.Tag, error) {
	return m.upsert(ctx, name, slug, icon)
}
func (m *mockTagRepo) List(ctx context.Context) ([]domain.Tag, error) {
	return m.list(ctx)
}
func (m *mockTagRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Tag, error) {
	return m.getByID(ctx, id)
}
func (m *mockTagRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Tag, error) {
	return m.getByIDs(ctx, ids)
}

// compile-time check: mockTagRepo must satisfy repo.TagRepo.
var _ repo.TagRepo = (*mockTagRepo)(nil)

// knownTags returns a mockTagRepo whose GetByIDs resolves only the given tags.
func knownTags(tags ...domain.Tag) *mockTagRepo {
	return &mockTagRepo{
		getByIDs: func(_ context.Context, ids []uuid.UUID) ([]domain.Tag, error) {
			var out []domain.Tag
			for _, id := range ids {
				for _, t := range tags {
					if t.ID == id {
						out = append(out, t)
					}
				}
			}
			return out, nil
		},
	}
}

// mockUserRepo is a hand-written test double for repo.UserRepo.
type mockUserRepo struct {
	create         func(ctx context.Context, u domain.User) (domain.User, error)
	getByID        func(ctx context.Context, id uuid.UUID) (domain.User, error)
	getByUsername  func(ctx context.Context, username string) (domain.User, error)
	usernameExists func(ctx context.Context, username string) (bool, error)
	emailExists    func(ctx context.Context, email string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	return m.create(ctx, u)
}
func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return m.getByID(ctx, id)
}
func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return m.getByUsername(ctx, username)
}
func (m *mockUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return m.usernameExists(ctx, username)
}
func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return m.emailExists(ctx, email)
}

var _ repo.UserRepo = (*mockUserRepo)(nil)

// fakeObjectRepo is an in-memory repo.ObjectRepo. Unlike the function-field
// mocks it keeps state, so a test can create, update, and archive a record
// and observe the result through the same visibility rules the SQL applies.
type fakeObjectRepo struct {
	mu      sync.Mutex
	objects map[uuid.UUID]domain.CulturalObject
	order   []uuid.UUID
	now     func() time.Time
	writes  int
}

func newFakeObjectRepo() *fakeObjectRepo {
	return &fakeObjectRepo{
		objects: map[uuid.UUID]domain.CulturalObject{},
		now:     func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) },
	}
}

var _ repo.ObjectRepo = (*fakeObjectRepo)(nil)

// seed stores obj as-is, assigning an ID if it has none. Seeding an existing
// ID overwrites the record in place.
func (f *fakeObjectRepo) seed(obj domain.CulturalObject) domain.CulturalObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj.ID == uuid.Nil {
		obj.ID = uuid.New()
	}
	if _, exists := f.objects[obj.ID]; !exists {
		f.order = append(f.order, obj.ID)
	}
	f.objects[obj.ID] = obj
	return obj
}

func (f *fakeObjectRepo) get(id uuid.UUID) domain.CulturalObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[id]
}

func (f *fakeObjectRepo) Create(_ context.Context, obj domain.CulturalObject) (domain.CulturalObject, error) {
	obj.CreatedAt = f.now()
	obj.UpdatedAt = obj.CreatedAt
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return f.seed(obj), nil
}

func (f *fakeObjectRepo) GetByID(_ context.Context, id uuid.UUID) (domain.CulturalObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[id]
	if !ok {
		return domain.CulturalObject{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *fakeObjectRepo) GetVisible(_ context.Context, vis policy.Visibility, id uuid.UUID) (domain.CulturalObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[id]
	if !ok || !vis.Allows(o) {
		return domain.CulturalObject{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *fakeObjectRepo) List(_ context.Context, vis policy.Visibility, flt domain.ObjectFilter, p domain.PaginationParams) ([]domain.CulturalObject, int64, error) {
	return f.page(p, func(o domain.CulturalObject) bool {
		return vis.Allows(o) && matchesFilter(o, flt)
	})
}

func (f *fakeObjectRepo) ListByAuthor(_ context.Context, authorID uuid.UUID, p domain.PaginationParams) ([]domain.CulturalObject, int64, error) {
	return f.page(p, func(o domain.CulturalObject) bool {
		return o.AuthorID == authorID && o.Status != domain.StatusArchived
	})
}

func (f *fakeObjectRepo) page(p domain.PaginationParams, keep func(domain.CulturalObject) bool) ([]domain.CulturalObject, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.CulturalObject
	for _, id := range f.order {
		if o := f.objects[id]; keep(o) {
			all = append(all, o)
		}
	}
	total := int64(len(all))
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit, len(all))
	return all[start:end], total, nil
}

func matchesFilter(o domain.CulturalObject, f domain.ObjectFilter) bool {
	if len(f.TagIDs) > 0 {
		hit := false
		for _, want := range f.TagIDs {
			for _, have := range o.TagIDs() {
				if want == have {
					hit = true
				}
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func (f *fakeObjectRepo) Update(_ context.Context, obj domain.CulturalObject, replaceTags bool) (domain.CulturalObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.objects[obj.ID]
	if !ok || cur.Status == domain.StatusArchived {
		return domain.CulturalObject{}, domain.ErrNotFound
	}
	if !replaceTags {
		obj.Tags = cur.Tags
	}
	obj.UpdatedAt = f.now()
	f.objects[obj.ID] = obj
	f.writes++
	return obj, nil
}

func (f *fakeObjectRepo) Transition(_ context.Context, ids []uuid.UUID, from, to domain.Status, archivedAt *time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		o, ok := f.objects[id]
		if !ok || o.Status != from {
			continue
		}
		o.Status = to
		o.ArchivedAt = archivedAt
		f.objects[id] = o
		n++
	}
	if n > 0 {
		f.writes++
	}
	return n, nil
}

func (f *fakeObjectRepo) ExportRows(_ context.Context) ([]domain.ExportRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := []domain.ExportRow{}
	for _, id := range f.order {
		o := f.objects[id]
		rows = append(rows, domain.ExportRow{ObjectID: id.String(), Title: o.Title, Status: o.Status, ArchivedAt: o.ArchivedAt})
	}
	return rows, nil
}

func (f *fakeObjectRepo) CountByStatus(_ context.Context) (map[domain.Status]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[domain.Status]int64{}
	for _, o := range f.objects {
		counts[o.Status]++
	}
	return counts, nil
}
