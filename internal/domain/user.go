package domain

import "time"

// Role enumerates the closed set of actor roles. Authorization is
// matched exhaustively on this enum, never on raw strings.
type Role string

const (
	RoleReporter        Role = "REPORTER"
	RoleCoordinator     Role = "COORDINATOR"
	RoleElectricalFixer Role = "ELECTRICAL_FIXER"
	RoleMechanicalFixer Role = "MECHANICAL_FIXER"
	RoleAdmin           Role = "ADMIN"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleReporter, RoleCoordinator, RoleElectricalFixer, RoleMechanicalFixer, RoleAdmin:
		return true
	}
	return false
}

// IsFixer reports whether the role performs repairs.
func (r Role) IsFixer() bool {
	return r == RoleElectricalFixer || r == RoleMechanicalFixer
}

// Specialty returns the repair category a fixer role handles. The
// second return is false for non-fixer roles.
func (r Role) Specialty() (Category, bool) {
	switch r {
	case RoleElectricalFixer:
		return CategoryElectrical, true
	case RoleMechanicalFixer:
		return CategoryMechanical, true
	}
	return "", false
}

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for anyone who interacts with reports.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the identity context supplied to every core operation. The
// core never authenticates; it only authorizes against this.
type Actor struct {
	ID   string
	Role Role
}
