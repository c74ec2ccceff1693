package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/policy"
)

// ObjectRepo defines the persistence operations for cultural objects and
// their tag associations.
// The service layer depends on this interface, not the Postgres implementation.
type ObjectRepo interface {
	// Create inserts a new object with its tags in one transaction and returns
	// the persisted record.
	Create(ctx context.Context, obj domain.CulturalObject) (domain.CulturalObject, error)

	// GetByID retrieves a record regardless of status.
	// Returns domain.ErrNotFound if no record with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.CulturalObject, error)

	// GetVisible retrieves a record only if it falls inside vis.
	// Returns domain.ErrNotFound otherwise, without saying why.
	GetVisible(ctx context.Context, vis policy.Visibility, id uuid.UUID) (domain.CulturalObject, error)

	// List returns one page of records inside vis that match f, newest first,
	// plus the total number of matches.
	List(ctx context.Context, vis policy.Visibility, f domain.ObjectFilter, p domain.PaginationParams) ([]domain.CulturalObject, int64, error)

	// ListByAuthor returns one page of the author's non-archived records,
	// newest first, plus the total.
	ListByAuthor(ctx context.Context, authorID uuid.UUID, p domain.PaginationParams) ([]domain.CulturalObject, int64, error)

	// Update overwrites the mutable fields and status of a non-archived record.
	// When replaceTags is true the tag association is replaced wholesale.
	// Returns domain.ErrNotFound if the record is missing or archived.
	Update(ctx context.Context, obj domain.CulturalObject, replaceTags bool) (domain.CulturalObject, error)

	// Transition moves every record in ids whose status is from to status to,
	// writing only status and archived_at. Returns the number of rows moved.
	Transition(ctx context.Context, ids []uuid.UUID, from, to domain.Status, archivedAt *time.Time) (int64, error)

	// ExportRows returns one flat row per record, archived ones included.
	ExportRows(ctx context.Context) ([]domain.ExportRow, error)

	// CountByStatus returns the number of records in each status. Statuses
	// with no records are present with a zero count.
	CountByStatus(ctx context.Context) (map[domain.Status]int64, error)
}

// pgObjectRepo is the Postgres implementation of ObjectRepo.
type pgObjectRepo struct {
	db db
}

// NewObjectRepo constructs an ObjectRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewObjectRepo(db db) ObjectRepo {
	return &pgObjectRepo{db: db}
}

const objectSelect = `
		SELECT o.id, o.title, o.description, o.latitude::float8, o.longitude::float8,
		       o.status, o.author_id, u.username,
		       o.wikipedia_url, o.official_website, o.google_maps_url,
		       o.created_at, o.updated_at, o.archived_at
		FROM cultural_objects o
		JOIN users u ON u.id = o.author_id`

// visibilityClause renders vis as a SQL condition over alias o, adding any
// parameters it needs to args.
func visibilityClause(vis policy.Visibility, args pgx.NamedArgs) string {
	switch vis.Scope {
	case policy.ScopeStaff:
		return "o.status <> 'archived'"
	case policy.ScopeSubject:
		args["subject_id"] = vis.SubjectID
		return "o.status <> 'archived' AND (o.status = 'approved' OR o.author_id = @subject_id)"
	default:
		return "o.status = 'approved'"
	}
}

// filterClauses renders f as extra SQL conditions. Tag membership uses EXISTS
// so an object linked to several requested tags is returned once.
func filterClauses(f domain.ObjectFilter, args pgx.NamedArgs) []string {
	var conds []string
	if len(f.TagIDs) > 0 {
		args["tag_ids"] = uuidStrings(f.TagIDs)
		conds = append(conds, `EXISTS (
			SELECT 1 FROM object_tags ft
			WHERE ft.object_id = o.id AND ft.tag_id = ANY(@tag_ids::uuid[]))`)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args["search"] = "%" + likeEscape(s) + "%"
		conds = append(conds, "(o.title ILIKE @search OR o.description ILIKE @search)")
	}
	return conds
}

// Create inserts the object row, links its tags, and re-reads the full record.
func (r *pgObjectRepo) Create(ctx context.Context, obj domain.CulturalObject) (domain.CulturalObject, error) {
	const q = `
		INSERT INTO cultural_objects
		    (title, description, latitude, longitude, status, author_id,
		     wikipedia_url, official_website, google_maps_url)
		VALUES (@title, @description, @latitude, @longitude, @status, @author_id,
		        @wikipedia_url, @official_website, @google_maps_url)
		RETURNING id`

	var result domain.CulturalObject
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		args := pgx.NamedArgs{
			"title":            obj.Title,
			"description":      obj.Description,
			"latitude":         obj.Latitude,
			"longitude":        obj.Longitude,
			"status":           string(obj.Status),
			"author_id":        obj.AuthorID,
			"wikipedia_url":    obj.WikipediaURL, // nil becomes NULL
			"official_website": obj.OfficialWebsite,
			"google_maps_url":  obj.GoogleMapsURL,
		}
		var id pgtype.UUID
		if err := tx.QueryRow(ctx, q, args).Scan(&id); err != nil {
			return err
		}
		objectID := uuid.UUID(id.Bytes)

		if err := linkTags(ctx, tx, objectID, obj.TagIDs()); err != nil {
			return err
		}

		var err error
		result, err = getByID(ctx, tx, objectID)
		return err
	})
	if err != nil {
		return domain.CulturalObject{}, fmt.Errorf("repo.ObjectRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a record by primary key, whatever its status.
func (r *pgObjectRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.CulturalObject, error) {
	result, err := getByID(ctx, r.db, id)
	if err != nil {
		return domain.CulturalObject{}, fmt.Errorf("repo.ObjectRepo.GetByID: %w", err)
	}
	return result, nil
}

func getByID(ctx context.Context, q db, id uuid.UUID) (domain.CulturalObject, error) {
	row := q.QueryRow(ctx, objectSelect+` WHERE o.id = @id`, pgx.NamedArgs{"id": id})
	obj, err := scanObject(row)
	if err != nil {
		return domain.CulturalObject{}, err
	}
	objs := []domain.CulturalObject{obj}
	if err := attachTags(ctx, q, objs); err != nil {
		return domain.CulturalObject{}, err
	}
	return objs[0], nil
}

// GetVisible retrieves a record through the caller's visibility predicate.
func (r *pgObjectRepo) GetVisible(ctx context.Context, vis policy.Visibility, id uuid.UUID) (domain.CulturalObject, error) {
	args := pgx.NamedArgs{"id": id}
	q := objectSelect + ` WHERE o.id = @id AND ` + visibilityClause(vis, args)

	obj, err := scanObject(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.CulturalObject{}, fmt.Errorf("repo.ObjectRepo.GetVisible: %w", err)
	}
	objs := []domain.CulturalObject{obj}
	if err := attachTags(ctx, r.db, objs); err != nil {
		return domain.CulturalObject{}, fmt.Errorf("repo.ObjectRepo.GetVisible: tags: %w", err)
	}
	return objs[0], nil
}

// List returns one page of visible records matching f.
func (r *pgObjectRepo) List(ctx context.Context, vis policy.Visibility, f domain.ObjectFilter, p domain.PaginationParams) ([]domain.CulturalObject, int64, error) {
	args := pgx.NamedArgs{}
	conds := append([]string{visibilityClause(vis, args)}, filterClauses(f, args)...)
	where := " WHERE " + strings.Join(conds, " AND ")

	objs, total, err := r.page(ctx, where, args, p)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ObjectRepo.List: %w", err)
	}
	return objs, total, nil
}

// ListByAuthor returns one page of the author's pending and approved records.
func (r *pgObjectRepo) ListByAuthor(ctx context.Context, authorID uuid.UUID, p domain.PaginationParams) ([]domain.CulturalObject, int64, error) {
	args := pgx.NamedArgs{"author_id": authorID}
	where := " WHERE o.author_id = @author_id AND o.status <> 'archived'"

	objs, total, err := r.page(ctx, where, args, p)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ObjectRepo.ListByAuthor: %w", err)
	}
	return objs, total, nil
}

// page runs the count and the page query for a WHERE clause built by the caller.
func (r *pgObjectRepo) page(ctx context.Context, where string, args pgx.NamedArgs, p domain.PaginationParams) ([]domain.CulturalObject, int64, error) {
	var total int64
	countQ := `SELECT count(*) FROM cultural_objects o` + where
	if err := r.db.QueryRow(ctx, countQ, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	args["limit"] = p.Limit
	args["offset"] = p.Offset()
	q := objectSelect + where + `
		ORDER BY o.created_at DESC, o.id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	objs := []domain.CulturalObject{}
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		objs = append(objs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows: %w", err)
	}

	if err := attachTags(ctx, r.db, objs); err != nil {
		return nil, 0, fmt.Errorf("tags: %w", err)
	}
	return objs, total, nil
}

// Update writes fields, status, and optionally tags in one transaction.
// The status guard keeps a concurrently archived row from being revived.
func (r *pgObjectRepo) Update(ctx context.Context, obj domain.CulturalObject, replaceTags bool) (domain.CulturalObject, error) {
	const q = `
		UPDATE cultural_objects
		SET title            = @title,
		    description      = @description,
		    latitude         = @latitude,
		    longitude        = @longitude,
		    status           = @status,
		    wikipedia_url    = @wikipedia_url,
		    official_website = @official_website,
		    google_maps_url  = @google_maps_url,
		    updated_at       = now()
		WHERE id = @id AND status <> 'archived'`

	var result domain.CulturalObject
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, pgx.NamedArgs{
			"id":               obj.ID,
			"title":            obj.Title,
			"description":      obj.Description,
			"latitude":         obj.Latitude,
			"longitude":        obj.Longitude,
			"status":           string(obj.Status),
			"wikipedia_url":    obj.WikipediaURL,
			"official_website": obj.OfficialWebsite,
			"google_maps_url":  obj.GoogleMapsURL,
		})
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}

		if replaceTags {
			if _, err := tx.Exec(ctx, `DELETE FROM object_tags WHERE object_id = @id`, pgx.NamedArgs{"id": obj.ID}); err != nil {
				return fmt.Errorf("clear tags: %w", err)
			}
			if err := linkTags(ctx, tx, obj.ID, obj.TagIDs()); err != nil {
				return err
			}
		}

		result, err = getByID(ctx, tx, obj.ID)
		return err
	})
	if err != nil {
		return domain.CulturalObject{}, fmt.Errorf("repo.ObjectRepo.Update: %w", err)
	}
	return result, nil
}

// Transition is a single UPDATE of status and archived_at guarded by the
// current status, so moving a record that already left from is a no-op.
func (r *pgObjectRepo) Transition(ctx context.Context, ids []uuid.UUID, from, to domain.Status, archivedAt *time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const q = `
		UPDATE cultural_objects
		SET status = @to, archived_at = @archived_at
		WHERE id = ANY(@ids::uuid[]) AND status = @from`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"ids":         uuidStrings(ids),
		"from":        string(from),
		"to":          string(to),
		"archived_at": archivedAt,
	})
	if err != nil {
		return 0, fmt.Errorf("repo.ObjectRepo.Transition: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ExportRows returns every record with its tag slugs aggregated in slug order.
func (r *pgObjectRepo) ExportRows(ctx context.Context) ([]domain.ExportRow, error) {
	const q = `
		SELECT o.id, o.title, o.status, u.username,
		       o.latitude::float8, o.longitude::float8,
		       o.created_at, o.updated_at, o.archived_at,
		       COALESCE(array_agg(t.slug ORDER BY t.slug) FILTER (WHERE t.slug IS NOT NULL), '{}')
		FROM cultural_objects o
		JOIN users u ON u.id = o.author_id
		LEFT JOIN object_tags ot ON ot.object_id = o.id
		LEFT JOIN tags t ON t.id = ot.tag_id
		GROUP BY o.id, u.username
		ORDER BY o.created_at DESC, o.id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.ObjectRepo.ExportRows: %w", err)
	}
	defer rows.Close()

	out := []domain.ExportRow{}
	for rows.Next() {
		var (
			row    domain.ExportRow
			id     pgtype.UUID
			status string
		)
		if err := rows.Scan(&id, &row.Title, &status, &row.AuthorUsername,
			&row.Latitude, &row.Longitude,
			&row.CreatedAt, &row.UpdatedAt, &row.ArchivedAt, &row.Tags); err != nil {
			return nil, fmt.Errorf("repo.ObjectRepo.ExportRows: scan: %w", err)
		}
		row.ObjectID = uuid.UUID(id.Bytes).String()
		row.Status = domain.Status(status)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ObjectRepo.ExportRows: rows: %w", err)
	}
	return out, nil
}

// CountByStatus groups every record by status.
func (r *pgObjectRepo) CountByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	const q = `SELECT status, count(*) FROM cultural_objects GROUP BY status`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.ObjectRepo.CountByStatus: %w", err)
	}
	defer rows.Close()

	counts := map[domain.Status]int64{
		domain.StatusPending:  0,
		domain.StatusApproved: 0,
		domain.StatusArchived: 0,
	}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("repo.ObjectRepo.CountByStatus: scan: %w", err)
		}
		counts[domain.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ObjectRepo.CountByStatus: rows: %w", err)
	}
	return counts, nil
}

// linkTags inserts one object_tags row per tag id.
func linkTags(ctx context.Context, q db, objectID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	const stmt = `
		INSERT INTO object_tags (object_id, tag_id)
		SELECT @object_id, unnest(@tag_ids::uuid[])
		ON CONFLICT DO NOTHING`

	if _, err := q.Exec(ctx, stmt, pgx.NamedArgs{"object_id": objectID, "tag_ids": uuidStrings(tagIDs)}); err != nil {
		return fmt.Errorf("link tags: %w", err)
	}
	return nil
}

// attachTags loads the tags of every object in objs with one query and
// assigns them in name order. Objects without tags get an empty slice.
func attachTags(ctx context.Context, q db, objs []domain.CulturalObject) error {
	if len(objs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(objs))
	index := make(map[uuid.UUID]int, len(objs))
	for i := range objs {
		ids[i] = objs[i].ID
		index[objs[i].ID] = i
		objs[i].Tags = []domain.Tag{}
	}

	const stmt = `
		SELECT ot.object_id, t.id, t.name, t.slug, t.icon, t.created_at
		FROM object_tags ot
		JOIN tags t ON t.id = ot.tag_id
		WHERE ot.object_id = ANY(@ids::uuid[])
		ORDER BY t.name`

	rows, err := q.Query(ctx, stmt, pgx.NamedArgs{"ids": uuidStrings(ids)})
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			objectID pgtype.UUID
			tagID    pgtype.UUID
			t        domain.Tag
		)
		if err := rows.Scan(&objectID, &tagID, &t.Name, &t.Slug, &t.Icon, &t.CreatedAt); err != nil {
			return err
		}
		t.ID = uuid.UUID(tagID.Bytes)
		i := index[uuid.UUID(objectID.Bytes)]
		objs[i].Tags = append(objs[i].Tags, t)
	}
	return rows.Err()
}

// scanObject maps a row produced by objectSelect into a domain.CulturalObject.
func scanObject(s scanner) (domain.CulturalObject, error) {
	var (
		o        domain.CulturalObject
		id       pgtype.UUID
		authorID pgtype.UUID
		status   string
	)
	err := s.Scan(&id, &o.Title, &o.Description, &o.Latitude, &o.Longitude,
		&status, &authorID, &o.AuthorUsername,
		&o.WikipediaURL, &o.OfficialWebsite, &o.GoogleMapsURL,
		&o.CreatedAt, &o.UpdatedAt, &o.ArchivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CulturalObject{}, domain.ErrNotFound
		}
		return domain.CulturalObject{}, err
	}
	o.ID = uuid.UUID(id.Bytes)
	o.AuthorID = uuid.UUID(authorID.Bytes)
	o.Status = domain.Status(status)
	if !o.Status.Valid() {
		return domain.CulturalObject{}, fmt.Errorf("scan object %s: unknown status %q", o.ID, status)
	}
	return o, nil
}
