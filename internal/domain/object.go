// Package domain contains the core data types for the CultureMap API.
// This package has no dependencies beyond uuid and is imported by every other
// internal package (policy, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the moderation state of a CulturalObject.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusArchived Status = "archived"
)

// Valid reports whether s is one of the three known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusArchived:
		return true
	}
	return false
}

// CulturalObject is a geotagged heritage-site record.
// ArchivedAt is non-nil exactly when Status is StatusArchived.
type CulturalObject struct {
	ID              uuid.UUID
	Title           string
	Description     string
	Latitude        float64
	Longitude       float64
	Status          Status
	AuthorID        uuid.UUID
	AuthorUsername  string
	Tags            []Tag
	WikipediaURL    *string
	OfficialWebsite *string
	GoogleMapsURL   *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ArchivedAt      *time.Time
}

// TagIDs returns the ids of the object's tags in their current order.
func (o CulturalObject) TagIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(o.Tags))
	for i, t := range o.Tags {
		ids[i] = t.ID
	}
	return ids
}

// ObjectInput is a create or update payload. Nil fields were not supplied.
// Status and author are intentionally absent: they are never taken from a
// caller's payload.
type ObjectInput struct {
	Title           *string
	Description     *string
	Latitude        *float64
	Longitude       *float64
	TagIDs          *[]uuid.UUID
	WikipediaURL    *string
	OfficialWebsite *string
	GoogleMapsURL   *string
}

// ObjectFilter narrows a listing. Filters are intersected with the caller's
// visible set and with each other.
type ObjectFilter struct {
	// TagIDs keeps objects linked to at least one of the given tags.
	TagIDs []uuid.UUID
	// Search is a case-insensitive substring matched against title and description.
	Search string
}

// ArchiveConfirmation is returned by a successful archive.
type ArchiveConfirmation struct {
	ID         uuid.UUID
	Status     Status
	ArchivedAt time.Time
}
