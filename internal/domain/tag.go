package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a category that cultural objects reference (Castle, Church, Museum...).
// Tags are global and created by administrators only; objects never own them.
// Name and Slug are each unique. Slug is derived from Name when not supplied
// and is never regenerated afterwards.
type Tag struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Icon      string
	CreatedAt time.Time
}
