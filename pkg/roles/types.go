package roles

import (
	"time"

	"github.com/platinummonkey/gatehouse/pkg/policy"
)

// SyncMode declares how identity-provider claims affect a role's stored
// assignments.
type SyncMode string

const (
	// SyncForce mirrors claims into assignments: claimed roles are added
	// and previously synced roles that are no longer claimed are removed.
	SyncForce SyncMode = "force"
	// SyncImport adds assignments for claimed roles but never removes them.
	SyncImport SyncMode = "import"
	// SyncIgnore leaves assignments untouched by claims.
	SyncIgnore SyncMode = "ignore"
)

// Valid reports whether the mode is one of the three known values.
func (m SyncMode) Valid() bool {
	return m == SyncForce || m == SyncImport || m == SyncIgnore
}

// Role is a named policy holder. Role names are unique; each role owns
// exactly one policy document.
type Role struct {
	Name      string        `json:"name"`
	Policy    policy.Policy `json:"policy"`
	Immutable bool          `json:"immutable"`
	SyncMode  SyncMode      `json:"sync_mode"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Assignment binds a principal to a role, optionally until an expiry.
type Assignment struct {
	PrincipalID string     `json:"principal_id"`
	RoleName    string     `json:"role_name"`
	AssignedBy  string     `json:"assigned_by"`
	AssignedAt  time.Time  `json:"assigned_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the assignment has lapsed at the given time.
// Expired assignments are treated as absent everywhere.
func (a Assignment) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}
