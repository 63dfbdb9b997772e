// Package roles manages role definitions, per-principal role assignments, and
// the synchronization between identity-provider claims and stored
// assignments.
//
// # Roles and Sync Modes
//
// Every role owns exactly one policy document and declares how claims from
// the identity provider affect its assignments:
//
//	SyncForce  - claims are the source of truth; assignments are added when
//	             claimed and removed when no longer claimed
//	SyncImport - claims add assignments but never remove them
//	SyncIgnore - claims have no effect; assignments are managed explicitly
//
// # Resolution
//
// Resolver.ResolveRoles turns a principal into the set of role names whose
// policies participate in an authorization decision. Resolution reconciles
// claims against stored assignments first, then reads the stored state, so a
// decision always reflects the claims that arrived with the request.
// Reconciliation is idempotent: a principal whose claims have not changed
// causes no writes.
//
// Concurrent resolutions for the same principal are serialized on a striped
// lock so reconciliation never races with itself.
//
// # Built-in Roles
//
// Builtins() returns the roles seeded at startup: gatehouse-admin,
// gatehouse-user, gatehouse-team-lead and gatehouse-anonymous. Built-in roles
// are immutable; their policies cannot be replaced through the API.
package roles
