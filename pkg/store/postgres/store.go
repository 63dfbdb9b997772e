package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/authz"
	"github.com/platinummonkey/gatehouse/pkg/policy"
	"github.com/platinummonkey/gatehouse/pkg/roles"
)

// Store handles role, assignment and token persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new store over an open connection pool
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRole creates a new role with its policy document
func (s *Store) CreateRole(ctx context.Context, role *roles.Role) error {
	policyJSON, err := role.Policy.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}

	query := `
		INSERT INTO roles (name, policy, immutable, sync_mode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`

	now := time.Now()
	if _, err := s.db.ExecContext(ctx, query,
		role.Name,
		string(policyJSON),
		role.Immutable,
		string(role.SyncMode),
		now,
	); err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// GetRole retrieves a role by name
func (s *Store) GetRole(ctx context.Context, name string) (*roles.Role, error) {
	query := `
		SELECT name, policy, immutable, sync_mode, created_at, updated_at
		FROM roles
		WHERE name = $1
	`

	var role roles.Role
	var policyJSON string
	var syncMode string

	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&role.Name,
		&policyJSON,
		&role.Immutable,
		&syncMode,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("role %q: %w", name, roles.ErrRoleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	p, err := policy.Parse([]byte(policyJSON))
	if err != nil {
		return nil, fmt.Errorf("stored policy for role %q is corrupt: %w", name, err)
	}
	role.Policy = *p
	role.SyncMode = roles.SyncMode(syncMode)

	return &role, nil
}

// ListRoles returns all roles ordered by name
func (s *Store) ListRoles(ctx context.Context) ([]roles.Role, error) {
	query := `
		SELECT name, policy, immutable, sync_mode, created_at, updated_at
		FROM roles
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var out []roles.Role
	for rows.Next() {
		var role roles.Role
		var policyJSON, syncMode string
		if err := rows.Scan(&role.Name, &policyJSON, &role.Immutable, &syncMode, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		p, err := policy.Parse([]byte(policyJSON))
		if err != nil {
			return nil, fmt.Errorf("stored policy for role %q is corrupt: %w", role.Name, err)
		}
		role.Policy = *p
		role.SyncMode = roles.SyncMode(syncMode)
		out = append(out, role)
	}
	return out, rows.Err()
}

// DeleteRole removes a custom role. Built-in roles cannot be deleted.
func (s *Store) DeleteRole(ctx context.Context, name string) error {
	immutable, err := s.roleImmutable(ctx, name)
	if err != nil {
		return err
	}
	if immutable {
		return fmt.Errorf("role %q: %w", name, authz.ErrImmutableRole)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM roles WHERE name = $1", name); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

// RoleModes returns the sync mode of every role. Implements roles.Catalog.
func (s *Store) RoleModes(ctx context.Context) (map[string]roles.SyncMode, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, sync_mode FROM roles")
	if err != nil {
		return nil, fmt.Errorf("failed to query role modes: %w", err)
	}
	defer rows.Close()

	modes := make(map[string]roles.SyncMode)
	for rows.Next() {
		var name, mode string
		if err := rows.Scan(&name, &mode); err != nil {
			return nil, fmt.Errorf("failed to scan role mode: %w", err)
		}
		modes[name] = roles.SyncMode(mode)
	}
	return modes, rows.Err()
}

// GetPolicy loads the policy document owned by a role. Implements
// authz.PolicyStore.
func (s *Store) GetPolicy(ctx context.Context, roleName string) (*policy.Policy, error) {
	var policyJSON string
	err := s.db.QueryRowContext(ctx, "SELECT policy FROM roles WHERE name = $1", roleName).Scan(&policyJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("role %q: %w", roleName, authz.ErrPolicyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	p, err := policy.Parse([]byte(policyJSON))
	if err != nil {
		return nil, fmt.Errorf("stored policy for role %q is corrupt: %w", roleName, err)
	}
	return p, nil
}

// PutPolicy replaces the policy document of an existing mutable role.
func (s *Store) PutPolicy(ctx context.Context, roleName string, p policy.Policy) error {
	immutable, err := s.roleImmutable(ctx, roleName)
	if err != nil {
		return err
	}
	if immutable {
		return fmt.Errorf("role %q: %w", roleName, authz.ErrImmutableRole)
	}

	policyJSON, err := p.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE roles SET policy = $1, updated_at = $2 WHERE name = $3",
		string(policyJSON), time.Now(), roleName,
	)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("role %q: %w", roleName, roles.ErrRoleNotFound)
	}
	return nil
}

func (s *Store) roleImmutable(ctx context.Context, name string) (bool, error) {
	var immutable bool
	err := s.db.QueryRowContext(ctx, "SELECT immutable FROM roles WHERE name = $1", name).Scan(&immutable)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("role %q: %w", name, roles.ErrRoleNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return immutable, nil
}

// ListAssignments returns every assignment for the principal, expired
// included. Implements roles.AssignmentStore.
func (s *Store) ListAssignments(ctx context.Context, principalID string) ([]roles.Assignment, error) {
	query := `
		SELECT principal_id, role_name, assigned_by, assigned_at, expires_at
		FROM role_assignments
		WHERE principal_id = $1
		ORDER BY role_name
	`

	rows, err := s.db.QueryContext(ctx, query, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []roles.Assignment
	for rows.Next() {
		var a roles.Assignment
		var expiresAt sql.NullTime
		if err := rows.Scan(&a.PrincipalID, &a.RoleName, &a.AssignedBy, &a.AssignedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			a.ExpiresAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertAssignment creates or refreshes an assignment. A refresh clears any
// previous expiry unless the new assignment carries one.
func (s *Store) UpsertAssignment(ctx context.Context, a roles.Assignment) error {
	query := `
		INSERT INTO role_assignments (principal_id, role_name, assigned_by, assigned_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (principal_id, role_name) DO UPDATE
		SET assigned_by = excluded.assigned_by,
		    assigned_at = excluded.assigned_at,
		    expires_at = excluded.expires_at
	`

	assignedAt := a.AssignedAt
	if assignedAt.IsZero() {
		assignedAt = time.Now()
	}

	var expiresAt interface{}
	if a.ExpiresAt != nil {
		expiresAt = *a.ExpiresAt
	}

	if _, err := s.db.ExecContext(ctx, query, a.PrincipalID, a.RoleName, a.AssignedBy, assignedAt, expiresAt); err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}
	return nil
}

// DeleteAssignment removes an assignment if present.
func (s *Store) DeleteAssignment(ctx context.Context, principalID, roleName string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM role_assignments WHERE principal_id = $1 AND role_name = $2",
		principalID, roleName,
	)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

// CreateToken stores a personal access token record
func (s *Store) CreateToken(ctx context.Context, t *auth.Token) error {
	query := `
		INSERT INTO access_tokens (principal_id, owner_id, token_hash, token_prefix, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	var expiresAt interface{}
	if t.ExpiresAt != nil {
		expiresAt = *t.ExpiresAt
	}

	err := s.db.QueryRowContext(ctx, query,
		t.PrincipalID, t.OwnerID, t.TokenHash, t.TokenPrefix, t.Name, expiresAt, now,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	t.CreatedAt = now
	return nil
}

// GetTokenByHash looks up a token by its SHA256 hash
func (s *Store) GetTokenByHash(ctx context.Context, hash string) (*auth.Token, error) {
	query := `
		SELECT id, principal_id, owner_id, token_hash, token_prefix, name,
		       expires_at, last_used_at, created_at, revoked_at
		FROM access_tokens
		WHERE token_hash = $1
	`
	return s.scanToken(s.db.QueryRowContext(ctx, query, hash))
}

// ListTokensByOwner returns every token created by an owner, newest first
func (s *Store) ListTokensByOwner(ctx context.Context, ownerID string) ([]auth.Token, error) {
	query := `
		SELECT id, principal_id, owner_id, token_hash, token_prefix, name,
		       expires_at, last_used_at, created_at, revoked_at
		FROM access_tokens
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var out []auth.Token
	for rows.Next() {
		t, err := s.scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// RevokeToken marks a token revoked
func (s *Store) RevokeToken(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE access_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL",
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// TouchToken records token usage
func (s *Store) TouchToken(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE access_tokens SET last_used_at = $1 WHERE id = $2",
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch token: %w", err)
	}
	return nil
}

// OwnerOf maps a token principal id to its owner. It returns "" for
// principals that are not tokens, which makes it usable as a
// roles.OwnerLookupFunc.
func (s *Store) OwnerOf(ctx context.Context, principalID string) (string, error) {
	if !strings.HasPrefix(principalID, "token:") {
		return "", nil
	}
	var owner string
	err := s.db.QueryRowContext(ctx,
		"SELECT owner_id FROM access_tokens WHERE principal_id = $1", principalID,
	).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("token principal %q has no token record", principalID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up token owner: %w", err)
	}
	return owner, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanToken(row rowScanner) (*auth.Token, error) {
	var t auth.Token
	var expiresAt, lastUsedAt, revokedAt sql.NullTime

	err := row.Scan(
		&t.ID, &t.PrincipalID, &t.OwnerID, &t.TokenHash, &t.TokenPrefix, &t.Name,
		&expiresAt, &lastUsedAt, &t.CreatedAt, &revokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("token not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}

	if expiresAt.Valid {
		v := expiresAt.Time
		t.ExpiresAt = &v
	}
	if lastUsedAt.Valid {
		v := lastUsedAt.Time
		t.LastUsedAt = &v
	}
	if revokedAt.Valid {
		v := revokedAt.Time
		t.RevokedAt = &v
	}
	return &t, nil
}

// Bootstrap seeds the built-in roles, leaving existing rows untouched.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, role := range roles.Builtins() {
		policyJSON, err := role.Policy.Marshal()
		if err != nil {
			return fmt.Errorf("failed to marshal built-in policy %q: %w", role.Name, err)
		}

		query := `
			INSERT INTO roles (name, policy, immutable, sync_mode, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (name) DO NOTHING
		`
		if _, err := s.db.ExecContext(ctx, query,
			role.Name, string(policyJSON), role.Immutable, string(role.SyncMode), time.Now(),
		); err != nil {
			return fmt.Errorf("failed to seed built-in role %q: %w", role.Name, err)
		}
	}
	return nil
}
