package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

// TagRepo defines the persistence operations for Tags.
type TagRepo interface {
	// Upsert inserts a tag by slug, or returns the existing tag if the slug
	// already exists. The name and icon of the first creator are preserved.
	Upsert(ctx context.Context, name, slug, icon string) (domain.Tag, error)

	// List returns all tags ordered by name.
	List(ctx context.Context) ([]domain.Tag, error)

	// GetByID retrieves a tag by primary key.
	// Returns domain.ErrNotFound if no tag with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Tag, error)

	// GetByIDs returns the tags that exist among ids, in no particular order.
	// Missing ids are silently skipped; callers compare lengths.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Tag, error)
}

// pgTagRepo is the Postgres implementation of TagRepo.
type pgTagRepo struct {
	db db
}

// NewTagRepo constructs a TagRepo backed by the provided db connection.
func NewTagRepo(db db) TagRepo {
	return &pgTagRepo{db: db}
}

// Upsert inserts a tag or returns the existing row on slug conflict.
// DO UPDATE SET slug = EXCLUDED.slug makes RETURNING fire on conflict too;
// DO NOTHING would return no row. A clash on name alone surfaces as
// domain.ErrConflict.
func (r *pgTagRepo) Upsert(ctx context.Context, name, slug, icon string) (domain.Tag, error) {
	const q = `
		INSERT INTO tags (name, slug, icon)
		VALUES (@name, @slug, @icon)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id, name, slug, icon, created_at`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"name": name, "slug": slug, "icon": icon})
	result, err := scanTag(row)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("repo.TagRepo.Upsert: %w", mapConstraintError(err))
	}
	return result, nil
}

// List returns all tags ordered by name.
func (r *pgTagRepo) List(ctx context.Context) ([]domain.Tag, error) {
	const q = `
		SELECT id, name, slug, icon, created_at
		FROM tags
		ORDER BY name`

	tags, err := r.query(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.List: %w", err)
	}
	return tags, nil
}

// GetByID retrieves a single tag.
func (r *pgTagRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Tag, error) {
	const q = `
		SELECT id, name, slug, icon, created_at
		FROM tags
		WHERE id = @id`

	result, err := scanTag(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Tag{}, fmt.Errorf("repo.TagRepo.GetByID: %w", err)
	}
	return result, nil
}

// GetByIDs loads every existing tag among ids with one query.
func (r *pgTagRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Tag, error) {
	if len(ids) == 0 {
		return []domain.Tag{}, nil
	}
	const q = `
		SELECT id, name, slug, icon, created_at
		FROM tags
		WHERE id = ANY(@ids::uuid[])`

	tags, err := r.query(ctx, q, pgx.NamedArgs{"ids": uuidStrings(ids)})
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.GetByIDs: %w", err)
	}
	return tags, nil
}

func (r *pgTagRepo) query(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Tag, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if args == nil {
		rows, err = r.db.Query(ctx, q)
	} else {
		rows, err = r.db.Query(ctx, q, args)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return tags, nil
}

// scanTag maps a single database row into a domain.Tag.
func scanTag(s scanner) (domain.Tag, error) {
	var (
		t  domain.Tag
		id pgtype.UUID
	)
	err := s.Scan(&id, &t.Name, &t.Slug, &t.Icon, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tag{}, domain.ErrNotFound
		}
		return domain.Tag{}, err
	}
	t.ID = uuid.UUID(id.Bytes)
	return t, nil
}
