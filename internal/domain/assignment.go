package domain

import "time"

// CoordinatorAssignment scopes a coordinator to a block. A nil BlockID
// is a wildcard: it grants access to every block and to reports whose
// location is general.
type CoordinatorAssignment struct {
	ID            string
	CoordinatorID string
	BlockID       *string
	CreatedAt     time.Time
}

// IsWildcard reports whether the assignment covers all locations.
func (a CoordinatorAssignment) IsWildcard() bool {
	return a.BlockID == nil
}

// Covers reports whether the assignment grants access to the given
// report location.
func (a CoordinatorAssignment) Covers(loc Location) bool {
	if a.IsWildcard() {
		return true
	}
	return loc.IsSpecific() && *a.BlockID == *loc.BlockID
}
