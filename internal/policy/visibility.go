// Package policy holds the pure rules that decide what a caller may see and
// change in the catalog. Nothing here touches storage: the repo layer turns a
// Visibility into SQL, and the service layer applies the transition rules.
package policy

import (
	"github.com/google/uuid"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

// Scope is the variant of a Visibility.
type Scope int

const (
	// ScopeAnonymous sees approved records only.
	ScopeAnonymous Scope = iota
	// ScopeSubject sees approved records plus its own, whatever their status.
	ScopeSubject
	// ScopeStaff sees every record regardless of author.
	ScopeStaff
)

func (s Scope) String() string {
	switch s {
	case ScopeSubject:
		return "subject"
	case ScopeStaff:
		return "staff"
	default:
		return "anonymous"
	}
}

// Visibility is the queryable subset of records for one caller.
// Archived records are outside every Visibility.
type Visibility struct {
	Scope     Scope
	SubjectID uuid.UUID // set only for ScopeSubject
}

// VisibleSet computes the Visibility for caller. Staff is checked first, then
// authenticated subjects, then anonymous.
func VisibleSet(caller domain.Caller) Visibility {
	switch {
	case caller.IsStaff():
		return Visibility{Scope: ScopeStaff}
	case !caller.IsAnonymous():
		return Visibility{Scope: ScopeSubject, SubjectID: caller.ID}
	default:
		return Visibility{Scope: ScopeAnonymous}
	}
}

// Allows evaluates the predicate against a single record.
func (v Visibility) Allows(o domain.CulturalObject) bool {
	if o.Status == domain.StatusArchived {
		return false
	}
	switch v.Scope {
	case ScopeStaff:
		return true
	case ScopeSubject:
		return o.Status == domain.StatusApproved || o.AuthorID == v.SubjectID
	default:
		return o.Status == domain.StatusApproved
	}
}

// OwnedBy reports whether caller authored o. Anonymous callers own nothing.
func OwnedBy(caller domain.Caller, o domain.CulturalObject) bool {
	return !caller.IsAnonymous() && o.AuthorID == caller.ID
}
