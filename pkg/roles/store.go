package roles

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRoleNotFound means a referenced role does not exist.
	ErrRoleNotFound = errors.New("role not found")

	// ErrRoleNotHeldByOwner means a token assignment names a role the
	// token's owner does not hold.
	ErrRoleNotHeldByOwner = errors.New("role not held by token owner")
)

// AssignmentStore persists role assignments.
type AssignmentStore interface {
	// ListAssignments returns every stored assignment for the principal,
	// including expired ones. Callers filter on Assignment.Expired.
	ListAssignments(ctx context.Context, principalID string) ([]Assignment, error)

	// UpsertAssignment creates the assignment or refreshes an existing one
	// for the same (principal, role) pair.
	UpsertAssignment(ctx context.Context, a Assignment) error

	// DeleteAssignment removes the assignment if present.
	DeleteAssignment(ctx context.Context, principalID, roleName string) error
}

// Catalog exposes the role definitions relevant to resolution.
type Catalog interface {
	// RoleModes returns the sync mode of every defined role, keyed by role
	// name.
	RoleModes(ctx context.Context) (map[string]SyncMode, error)
}

// OwnerLookupFunc maps a token principal id to its owning principal id. It
// returns "" for principals that are not tokens.
type OwnerLookupFunc func(ctx context.Context, principalID string) (string, error)

// SubsetStore wraps an AssignmentStore and rejects writes that would grant a
// token principal a role its owner does not actively hold. Reads pass
// through. Narrowing a token below its owner is always permitted.
type SubsetStore struct {
	inner   AssignmentStore
	ownerOf OwnerLookupFunc
}

// NewSubsetStore wraps the store with the owner-subset write check.
func NewSubsetStore(inner AssignmentStore, ownerOf OwnerLookupFunc) *SubsetStore {
	return &SubsetStore{inner: inner, ownerOf: ownerOf}
}

func (s *SubsetStore) ListAssignments(ctx context.Context, principalID string) ([]Assignment, error) {
	return s.inner.ListAssignments(ctx, principalID)
}

func (s *SubsetStore) UpsertAssignment(ctx context.Context, a Assignment) error {
	owner, err := s.ownerOf(ctx, a.PrincipalID)
	if err != nil {
		return err
	}
	if owner == "" {
		return s.inner.UpsertAssignment(ctx, a)
	}

	held, err := s.inner.ListAssignments(ctx, owner)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, h := range held {
		if h.RoleName == a.RoleName && !h.Expired(now) {
			return s.inner.UpsertAssignment(ctx, a)
		}
	}
	return ErrRoleNotHeldByOwner
}

func (s *SubsetStore) DeleteAssignment(ctx context.Context, principalID, roleName string) error {
	return s.inner.DeleteAssignment(ctx, principalID, roleName)
}
