package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/authz"
	"github.com/platinummonkey/gatehouse/pkg/policy"
	"github.com/platinummonkey/gatehouse/pkg/roles"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Minimal sqlite twin of the postgres schema.
	_, err = db.Exec(`
		CREATE TABLE roles (
			name TEXT PRIMARY KEY,
			policy TEXT NOT NULL DEFAULT '{"statements":[]}',
			immutable INTEGER NOT NULL DEFAULT 0,
			sync_mode TEXT NOT NULL DEFAULT 'ignore',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE role_assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			principal_id TEXT NOT NULL,
			role_name TEXT NOT NULL,
			assigned_by TEXT NOT NULL DEFAULT '',
			assigned_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP,
			UNIQUE(principal_id, role_name)
		);

		CREATE TABLE access_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			principal_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			token_hash TEXT NOT NULL UNIQUE,
			token_prefix TEXT NOT NULL,
			name TEXT NOT NULL,
			expires_at TIMESTAMP,
			last_used_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			revoked_at TIMESTAMP
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test tables: %v", err)
	}

	return db
}

func testPolicy(actions ...string) policy.Policy {
	return policy.Policy{Statements: []policy.Statement{{
		Effect:    policy.EffectAllow,
		Actions:   actions,
		Resources: []string{"*"},
	}}}
}

func TestStore_RoleCRUD(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	role := &roles.Role{
		Name:     "team-alpha",
		Policy:   testPolicy("workflow:*"),
		SyncMode: roles.SyncForce,
	}

	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if role.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set after creation")
	}

	retrieved, err := store.GetRole(ctx, "team-alpha")
	if err != nil {
		t.Fatalf("GetRole failed: %v", err)
	}
	if retrieved.SyncMode != roles.SyncForce {
		t.Errorf("SyncMode = %q, want force", retrieved.SyncMode)
	}
	if len(retrieved.Policy.Statements) != 1 || retrieved.Policy.Statements[0].Actions[0] != "workflow:*" {
		t.Errorf("Policy round trip failed: %+v", retrieved.Policy)
	}

	// Replace the policy
	if err := store.PutPolicy(ctx, "team-alpha", testPolicy("dataset:Read")); err != nil {
		t.Fatalf("PutPolicy failed: %v", err)
	}
	p, err := store.GetPolicy(ctx, "team-alpha")
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if p.Statements[0].Actions[0] != "dataset:Read" {
		t.Errorf("policy not updated: %+v", p)
	}

	list, err := store.ListRoles(ctx)
	if err != nil {
		t.Fatalf("ListRoles failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListRoles returned %d roles, want 1", len(list))
	}

	if err := store.DeleteRole(ctx, "team-alpha"); err != nil {
		t.Fatalf("DeleteRole failed: %v", err)
	}
	if _, err := store.GetRole(ctx, "team-alpha"); !errors.Is(err, roles.ErrRoleNotFound) {
		t.Errorf("GetRole after delete error = %v, want ErrRoleNotFound", err)
	}
}

func TestStore_ImmutableRoles(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	role := &roles.Role{
		Name:      "gatehouse-admin",
		Policy:    testPolicy("*:*"),
		Immutable: true,
		SyncMode:  roles.SyncImport,
	}
	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	if err := store.PutPolicy(ctx, "gatehouse-admin", testPolicy("workflow:Read")); !errors.Is(err, authz.ErrImmutableRole) {
		t.Errorf("PutPolicy error = %v, want ErrImmutableRole", err)
	}
	if err := store.DeleteRole(ctx, "gatehouse-admin"); !errors.Is(err, authz.ErrImmutableRole) {
		t.Errorf("DeleteRole error = %v, want ErrImmutableRole", err)
	}

	// The policy must be unchanged.
	p, err := store.GetPolicy(ctx, "gatehouse-admin")
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if p.Statements[0].Actions[0] != "*:*" {
		t.Errorf("immutable policy was modified: %+v", p)
	}
}

func TestStore_PolicyNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)

	if _, err := store.GetPolicy(context.Background(), "ghost"); !errors.Is(err, authz.ErrPolicyNotFound) {
		t.Errorf("GetPolicy error = %v, want ErrPolicyNotFound", err)
	}
	if err := store.PutPolicy(context.Background(), "ghost", testPolicy("workflow:Read")); !errors.Is(err, roles.ErrRoleNotFound) {
		t.Errorf("PutPolicy error = %v, want ErrRoleNotFound", err)
	}
}

func TestStore_Assignments(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	past := time.Now().Add(-time.Hour).UTC()
	base := roles.Assignment{
		PrincipalID: "user-1",
		RoleName:    "team-alpha",
		AssignedBy:  "admin",
		AssignedAt:  time.Now().UTC(),
		ExpiresAt:   &past,
	}
	if err := store.UpsertAssignment(ctx, base); err != nil {
		t.Fatalf("UpsertAssignment failed: %v", err)
	}

	got, err := store.ListAssignments(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(got) != 1 || got[0].ExpiresAt == nil {
		t.Fatalf("ListAssignments = %+v, want 1 expiring assignment", got)
	}

	// Re-upserting without an expiry clears the old one.
	refreshed := base
	refreshed.ExpiresAt = nil
	refreshed.AssignedBy = "claims-sync"
	if err := store.UpsertAssignment(ctx, refreshed); err != nil {
		t.Fatalf("UpsertAssignment (refresh) failed: %v", err)
	}

	got, err = store.ListAssignments(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("refresh created a duplicate row: %+v", got)
	}
	if got[0].ExpiresAt != nil {
		t.Error("refresh should have cleared the expiry")
	}
	if got[0].AssignedBy != "claims-sync" {
		t.Errorf("AssignedBy = %q, want claims-sync", got[0].AssignedBy)
	}

	if err := store.DeleteAssignment(ctx, "user-1", "team-alpha"); err != nil {
		t.Fatalf("DeleteAssignment failed: %v", err)
	}
	got, _ = store.ListAssignments(ctx, "user-1")
	if len(got) != 0 {
		t.Errorf("assignment not deleted: %+v", got)
	}

	// Deleting an absent assignment is not an error.
	if err := store.DeleteAssignment(ctx, "user-1", "team-alpha"); err != nil {
		t.Errorf("DeleteAssignment (absent) failed: %v", err)
	}
}

func TestStore_Tokens(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	token := &auth.Token{
		PrincipalID: "token:abc",
		OwnerID:     "user-1",
		TokenHash:   "deadbeef",
		TokenPrefix: "gh_deadbee",
		Name:        "ci token",
	}
	if err := store.CreateToken(ctx, token); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if token.ID == 0 {
		t.Error("Expected token ID to be set after creation")
	}

	got, err := store.GetTokenByHash(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("GetTokenByHash failed: %v", err)
	}
	if got.PrincipalID != "token:abc" || got.OwnerID != "user-1" {
		t.Errorf("GetTokenByHash = %+v", got)
	}
	if !got.Active(time.Now()) {
		t.Error("fresh token should be active")
	}

	owner, err := store.OwnerOf(ctx, "token:abc")
	if err != nil {
		t.Fatalf("OwnerOf failed: %v", err)
	}
	if owner != "user-1" {
		t.Errorf("OwnerOf = %q, want user-1", owner)
	}

	// Interactive principals are not tokens.
	owner, err = store.OwnerOf(ctx, "user-1")
	if err != nil || owner != "" {
		t.Errorf("OwnerOf(user-1) = %q, %v, want empty and nil", owner, err)
	}

	if err := store.TouchToken(ctx, token.ID); err != nil {
		t.Fatalf("TouchToken failed: %v", err)
	}
	if err := store.RevokeToken(ctx, token.ID); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}

	got, err = store.GetTokenByHash(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("GetTokenByHash after revoke failed: %v", err)
	}
	if got.RevokedAt == nil || got.LastUsedAt == nil {
		t.Errorf("expected revoked_at and last_used_at set: %+v", got)
	}
	if got.Active(time.Now()) {
		t.Error("revoked token should be inactive")
	}

	list, err := store.ListTokensByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListTokensByOwner failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListTokensByOwner returned %d tokens, want 1", len(list))
	}
}

func TestStore_Bootstrap(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)

	if err := store.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	modes, err := store.RoleModes(ctx)
	if err != nil {
		t.Fatalf("RoleModes failed: %v", err)
	}
	for _, name := range []string{roles.RoleAdmin, roles.RoleUser, roles.RoleTeamLead, roles.RoleAnonymous} {
		if _, ok := modes[name]; !ok {
			t.Errorf("built-in role %q not seeded", name)
		}
	}

	p, err := store.GetPolicy(ctx, roles.RoleAdmin)
	if err != nil {
		t.Fatalf("GetPolicy(admin) failed: %v", err)
	}
	if len(p.Statements) == 0 {
		t.Error("admin policy is empty")
	}

	// Re-running must not clobber anything, even after a manual change to
	// a mutable row alongside the builtins.
	if err := store.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap (again) failed: %v", err)
	}
	list, err := store.ListRoles(ctx)
	if err != nil {
		t.Fatalf("ListRoles failed: %v", err)
	}
	if len(list) != 4 {
		t.Errorf("ListRoles returned %d roles after double bootstrap, want 4", len(list))
	}
}
