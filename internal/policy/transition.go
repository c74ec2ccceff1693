package policy

import (
	"time"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

// CanCreate rejects anonymous callers. Any authenticated caller may submit.
func CanCreate(caller domain.Caller) error {
	if caller.IsAnonymous() {
		return domain.ErrUnauthenticated
	}
	return nil
}

// CanModify decides whether caller may update or archive o.
// The record is assumed to be already located through the caller's
// Visibility, so a refusal here is a permission failure, not a miss.
func CanModify(caller domain.Caller, o domain.CulturalObject) error {
	if caller.IsAnonymous() {
		return domain.ErrUnauthenticated
	}
	if caller.IsStaff() || OwnedBy(caller, o) {
		return nil
	}
	return domain.ErrForbidden
}

// CanModerate guards the administrator-only operations (approve, restore, export).
func CanModerate(caller domain.Caller) error {
	if caller.IsAnonymous() {
		return domain.ErrUnauthenticated
	}
	if !caller.IsStaff() {
		return domain.ErrForbidden
	}
	return nil
}

// NextStatus is the status an update leaves behind. A non-staff edit of an
// approved record sends it back to review; every other edit keeps the
// current status. Updates never take a status from the payload.
func NextStatus(current domain.Status, callerIsStaff bool) domain.Status {
	if current == domain.StatusApproved && !callerIsStaff {
		return domain.StatusPending
	}
	return current
}

// CanTransition reports whether the explicit moderation operations may move
// a record from one status to another:
//
//	pending  -> approved   (approve)
//	approved -> pending    (non-staff edit)
//	pending, approved -> archived (archive)
//	archived -> pending    (restore)
//
// archived -> approved does not exist, and same-state moves are no-ops.
func CanTransition(from, to domain.Status) bool {
	switch to {
	case domain.StatusApproved:
		return from == domain.StatusPending
	case domain.StatusPending:
		return from == domain.StatusApproved || from == domain.StatusArchived
	case domain.StatusArchived:
		return from == domain.StatusPending || from == domain.StatusApproved
	}
	return false
}

// ArchivedAtFor returns the archived_at value that accompanies status to:
// now when entering archived, nil otherwise.
func ArchivedAtFor(to domain.Status, now time.Time) *time.Time {
	if to != domain.StatusArchived {
		return nil
	}
	ts := now.UTC()
	return &ts
}

// Archive returns o moved to archived with archived_at set to now, and true.
// An already archived record is returned unchanged with false.
func Archive(o domain.CulturalObject, now time.Time) (domain.CulturalObject, bool) {
	if !CanTransition(o.Status, domain.StatusArchived) {
		return o, false
	}
	o.Status = domain.StatusArchived
	o.ArchivedAt = ArchivedAtFor(domain.StatusArchived, now)
	return o, true
}
