// Package seed fills a development database with tags, a test user and
// randomly placed cultural objects.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// Fixtures is the static part of the seed data.
type Fixtures struct {
	Tags   []TagFixture `yaml:"tags"`
	User   UserFixture  `yaml:"user"`
	Titles []string     `yaml:"titles"`
}

type TagFixture struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
	Icon string `yaml:"icon"`
}

type UserFixture struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// LoadFixtures parses the embedded fixtures.yaml.
func LoadFixtures() (Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(fixturesYAML, &fx); err != nil {
		return Fixtures{}, fmt.Errorf("seed.LoadFixtures: %w", err)
	}
	if len(fx.Tags) == 0 {
		return Fixtures{}, errors.New("seed.LoadFixtures: no tags defined")
	}
	return fx, nil
}

// Seeded objects fall inside this box, a margin inside the accepted bounds.
const (
	minLat, maxLat = 44.5, 52.0
	minLon, maxLon = 22.5, 40.0
)

// TagEnsurer creates a tag unless one with the same slug exists.
// *service.TagService satisfies it.
type TagEnsurer interface {
	Ensure(ctx context.Context, name, slug, icon string) (domain.Tag, error)
}

// UserStore is the subset of repo.UserRepo the seeder needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

// ObjectStore is the subset of repo.ObjectRepo the seeder needs.
type ObjectStore interface {
	Create(ctx context.Context, obj domain.CulturalObject) (domain.CulturalObject, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int64, error)
}

// Stats summarises a seeding run.
type Stats struct {
	Tags           int
	UserCreated    bool
	ObjectsCreated int
	ByStatus       map[domain.Status]int64
}

// Seeder writes fixtures through the repos. It is admin tooling: objects are
// written with their final status directly rather than through the catalog's
// create rule.
type Seeder struct {
	tags    TagEnsurer
	users   UserStore
	objects ObjectStore
	fx      Fixtures
	rnd     *rand.Rand
	log     *slog.Logger
}

// New constructs a Seeder. rnd drives titles, coordinates, tags and statuses;
// pass a fixed seed for a reproducible data set.
func New(tags TagEnsurer, users UserStore, objects ObjectStore, fx Fixtures, rnd *rand.Rand, log *slog.Logger) *Seeder {
	if log == nil {
		log = slog.Default()
	}
	return &Seeder{tags: tags, users: users, objects: objects, fx: fx, rnd: rnd, log: log}
}

// Run ensures the tags and the test user exist, then creates count objects.
// Tags and the user are idempotent; objects are added on every run.
func (s *Seeder) Run(ctx context.Context, count int) (Stats, error) {
	var stats Stats

	tags := make([]domain.Tag, 0, len(s.fx.Tags))
	for _, tf := range s.fx.Tags {
		tag, err := s.tags.Ensure(ctx, tf.Name, tf.Slug, tf.Icon)
		if err != nil {
			return stats, fmt.Errorf("seed.Run: tag %q: %w", tf.Slug, err)
		}
		tags = append(tags, tag)
	}
	stats.Tags = len(tags)
	s.log.InfoContext(ctx, "tags ensured", "count", len(tags))

	user, created, err := s.ensureUser(ctx)
	if err != nil {
		return stats, err
	}
	stats.UserCreated = created

	for i := range count {
		obj := s.randomObject(i, user.ID, tags)
		if _, err := s.objects.Create(ctx, obj); err != nil {
			return stats, fmt.Errorf("seed.Run: object %d: %w", i+1, err)
		}
		stats.ObjectsCreated++
		if (i+1)%10 == 0 {
			s.log.InfoContext(ctx, "objects created", "done", i+1, "total", count)
		}
	}

	stats.ByStatus, err = s.objects.CountByStatus(ctx)
	if err != nil {
		return stats, fmt.Errorf("seed.Run: %w", err)
	}
	return stats, nil
}

func (s *Seeder) ensureUser(ctx context.Context) (domain.User, bool, error) {
	u := s.fx.User
	existing, err := s.users.GetByUsername(ctx, u.Username)
	if err == nil {
		s.log.InfoContext(ctx, "test user already exists", "username", u.Username)
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, false, fmt.Errorf("seed.Run: user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("seed.Run: hash: %w", err)
	}
	created, err := s.users.Create(ctx, domain.User{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return domain.User{}, false, fmt.Errorf("seed.Run: user: %w", err)
	}
	s.log.InfoContext(ctx, "test user created", "username", u.Username)
	return created, true, nil
}

// randomObject builds the i-th object. The first len(Titles) objects use the
// sample titles; three in four are approved, the rest pending.
func (s *Seeder) randomObject(i int, authorID uuid.UUID, tags []domain.Tag) domain.CulturalObject {
	title := fmt.Sprintf("Тестовий об'єкт #%d", i+1)
	if i < len(s.fx.Titles) {
		title = s.fx.Titles[i]
	}
	lat := round6(minLat + s.rnd.Float64()*(maxLat-minLat))
	lon := round6(minLon + s.rnd.Float64()*(maxLon-minLon))

	status := domain.StatusApproved
	if s.rnd.IntN(4) == 0 {
		status = domain.StatusPending
	}

	n := 1 + s.rnd.IntN(min(3, len(tags)))
	picked := make([]domain.Tag, 0, n)
	for _, idx := range s.rnd.Perm(len(tags))[:n] {
		picked = append(picked, tags[idx])
	}

	return domain.CulturalObject{
		Title:       title,
		Description: fmt.Sprintf("Тестовий культурний об'єкт. Координати: %.6f, %.6f.", lat, lon),
		Latitude:    lat,
		Longitude:   lon,
		Status:      status,
		AuthorID:    authorID,
		Tags:        picked,
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
