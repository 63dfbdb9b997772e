package roles

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/wildcard"
)

// assignedByClaims marks assignments created by claims reconciliation, so
// force-mode removal only touches what the sync itself wrote.
const assignedByClaims = "claims-sync"

const lockStripes = 64

// DefaultRoles are the roles every principal receives in addition to stored
// assignments.
type DefaultRoles struct {
	// Authenticated applies to every principal with an identity.
	Authenticated []string
	// Anonymous applies to requests with no identity at all.
	Anonymous []string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithForceGrantsAll makes every force-mode role apply to all authenticated
// principals regardless of claims. The default treats force as per-principal
// claims mirroring.
func WithForceGrantsAll() ResolverOption {
	return func(r *Resolver) { r.forceGrantsAll = true }
}

// Resolver reconciles identity-provider claims with stored assignments and
// produces the role set for a principal.
type Resolver struct {
	store    AssignmentStore
	catalog  Catalog
	defaults DefaultRoles

	forceGrantsAll bool

	// Per-principal locks, striped by fnv hash of the principal id.
	locks [lockStripes]sync.Mutex
}

// NewResolver creates a resolver over the given assignment store and role
// catalog.
func NewResolver(store AssignmentStore, catalog Catalog, defaults DefaultRoles, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, catalog: catalog, defaults: defaults}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveRoles returns the sorted set of role names that apply to the
// principal. For principals carrying claims it first reconciles stored
// assignments with those claims, so the returned set always reflects the
// session that made the request. Any store or catalog failure is returned to
// the caller; resolution never degrades to a partial role set.
func (r *Resolver) ResolveRoles(ctx context.Context, principal auth.Principal) ([]string, error) {
	if !principal.Authenticated() {
		return sortedSet(r.defaults.Anonymous, nil), nil
	}

	lock := &r.locks[stripe(principal.ID)]
	lock.Lock()
	defer lock.Unlock()

	modes, err := r.catalog.RoleModes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load role catalog: %w", err)
	}

	if err := r.reconcile(ctx, principal, modes); err != nil {
		return nil, err
	}

	stored, err := r.store.ListAssignments(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	now := time.Now()
	names := make([]string, 0, len(stored)+len(r.defaults.Authenticated))
	for _, a := range stored {
		if !a.Expired(now) {
			names = append(names, a.RoleName)
		}
	}
	if r.forceGrantsAll {
		for name, mode := range modes {
			if mode == SyncForce {
				names = append(names, name)
			}
		}
	}
	return sortedSet(names, r.defaults.Authenticated), nil
}

// reconcile applies the principal's claims to the assignment store. Claims
// add assignments for force and import roles; force roles whose claim has
// disappeared are removed, but only if reconciliation created them in the
// first place. Unchanged claims cause no writes.
func (r *Resolver) reconcile(ctx context.Context, principal auth.Principal, modes map[string]SyncMode) error {
	if len(principal.ClaimsRoles) == 0 && !hasForceMode(modes) {
		return nil
	}

	stored, err := r.store.ListAssignments(ctx, principal.ID)
	if err != nil {
		return fmt.Errorf("failed to list assignments: %w", err)
	}

	now := time.Now()
	active := make(map[string]Assignment, len(stored))
	for _, a := range stored {
		if !a.Expired(now) {
			active[a.RoleName] = a
		}
	}

	claimed := claimedRoles(principal.ClaimsRoles, modes)

	for name := range claimed {
		mode := modes[name]
		if mode != SyncForce && mode != SyncImport {
			continue
		}
		if _, ok := active[name]; ok {
			continue
		}
		a := Assignment{
			PrincipalID: principal.ID,
			RoleName:    name,
			AssignedBy:  assignedByClaims,
			AssignedAt:  now,
		}
		if err := r.store.UpsertAssignment(ctx, a); err != nil {
			return fmt.Errorf("failed to sync role %q: %w", name, err)
		}
	}

	for name, a := range active {
		if modes[name] != SyncForce {
			continue
		}
		if _, ok := claimed[name]; ok {
			continue
		}
		if a.AssignedBy != assignedByClaims {
			continue
		}
		if err := r.store.DeleteAssignment(ctx, principal.ID, name); err != nil {
			return fmt.Errorf("failed to unsync role %q: %w", name, err)
		}
	}

	return nil
}

// claimedRoles expands claim patterns against the known role names. A claim
// may name a role exactly or match several through wildcards confined to ":"
// segments. The wildcard must sit directly against the separator: "team:*"
// matches "team:lead", but "team-*" never matches "team-lead" because the
// star does not touch a ":". Claims that carve up role names on anything
// other than ":" need to list the roles exactly.
func claimedRoles(claims []string, modes map[string]SyncMode) map[string]struct{} {
	out := make(map[string]struct{})
	for _, claim := range claims {
		for name := range modes {
			if wildcard.Match(claim, name, ':') {
				out[name] = struct{}{}
			}
		}
	}
	return out
}

func hasForceMode(modes map[string]SyncMode) bool {
	for _, m := range modes {
		if m == SyncForce {
			return true
		}
	}
	return false
}

func stripe(principalID string) int {
	h := fnv.New32a()
	h.Write([]byte(principalID))
	return int(h.Sum32() % lockStripes)
}

// sortedSet merges, deduplicates and sorts role names.
func sortedSet(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
