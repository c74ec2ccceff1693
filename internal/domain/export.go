package domain

import "time"

// ExportRow is a single row in the staff catalog export.
// It is a flat, denormalized view: one row per object, archived ones included.
//
// Tags is a slice of slugs for the object, ordered alphabetically.
// Callers that need a joined string (e.g. CSV) should join with "|".
type ExportRow struct {
	ObjectID       string
	Title          string
	Status         Status
	AuthorUsername string
	Latitude       float64
	Longitude      float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ArchivedAt     *time.Time // nil unless archived

	Tags []string
}
