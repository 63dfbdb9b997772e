package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/gatehouse/pkg/authz"
	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
	"github.com/platinummonkey/gatehouse/pkg/policy"
	"github.com/platinummonkey/gatehouse/pkg/roles"
)

// CreateRoleRequest defines a new role with its policy document.
type CreateRoleRequest struct {
	Name     string         `json:"name"`
	Policy   policy.Policy  `json:"policy"`
	SyncMode roles.SyncMode `json:"sync_mode,omitempty"`
}

// createRole handles POST /v1/roles
func (s *Server) createRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}
	if roles.IsBuiltin(req.Name) {
		httputil.WriteConflict(w, "role name is reserved for a built-in role")
		return
	}
	if req.SyncMode == "" {
		req.SyncMode = roles.SyncIgnore
	}
	if !req.SyncMode.Valid() {
		httputil.WriteBadRequest(w, "invalid sync_mode")
		return
	}
	if err := req.Policy.Validate(s.registry); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	role := &roles.Role{
		Name:     req.Name,
		Policy:   req.Policy,
		SyncMode: req.SyncMode,
	}
	if err := s.roleStore.CreateRole(r.Context(), role); err != nil {
		s.logger.WithError(err).Error("Failed to create role")
		httputil.WriteInternalError(w, errors.New("failed to create role"))
		return
	}

	// Cached denials may exist for a role that did not exist before, and a
	// stale external entry may survive a delete-and-recreate of the name.
	s.invalidatePolicy(r.Context(), req.Name)
	s.authorizer.InvalidateAll()

	httputil.WriteCreated(w, role)
}

// invalidatePolicy purges one role from the external policy cache, if any.
// Failures are logged, not surfaced: the entry expires on its TTL.
func (s *Server) invalidatePolicy(ctx context.Context, roleName string) {
	if s.policyCache == nil {
		return
	}
	if err := s.policyCache.Invalidate(ctx, roleName); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate cached policy")
	}
}

// listRoles handles GET /v1/roles
func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	list, err := s.roleStore.ListRoles(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to list roles")
		httputil.WriteInternalError(w, errors.New("failed to list roles"))
		return
	}
	httputil.WriteSuccess(w, list)
}

// getRole handles GET /v1/roles/{name}
func (s *Server) getRole(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	role, err := s.roleStore.GetRole(r.Context(), name)
	if err != nil {
		if errors.Is(err, roles.ErrRoleNotFound) {
			httputil.WriteNotFoundError(w, "role not found")
			return
		}
		s.logger.WithError(err).Error("Failed to get role")
		httputil.WriteInternalError(w, errors.New("failed to get role"))
		return
	}
	httputil.WriteSuccess(w, role)
}

// deleteRole handles DELETE /v1/roles/{name}
func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	if err := s.roleStore.DeleteRole(r.Context(), name); err != nil {
		switch {
		case errors.Is(err, roles.ErrRoleNotFound):
			httputil.WriteNotFoundError(w, "role not found")
		case errors.Is(err, authz.ErrImmutableRole):
			httputil.WriteConflict(w, "built-in roles cannot be deleted")
		default:
			s.logger.WithError(err).Error("Failed to delete role")
			httputil.WriteInternalError(w, errors.New("failed to delete role"))
		}
		return
	}

	// The deleted role's policy may still sit in the external cache; a
	// decision made from it would revive a role that no longer exists.
	s.invalidatePolicy(r.Context(), name)
	s.authorizer.InvalidateAll()
	httputil.WriteNoContent(w)
}

// putRolePolicy handles PUT /v1/roles/{name}/policy
func (s *Server) putRolePolicy(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	var doc policy.Policy
	if !httputil.ParseJSONOrError(w, r, &doc) {
		return
	}

	// PutPolicy validates against the registry and purges the decision cache.
	if err := s.authorizer.PutPolicy(r.Context(), name, doc); err != nil {
		switch {
		case errors.Is(err, roles.ErrRoleNotFound):
			httputil.WriteNotFoundError(w, "role not found")
		case errors.Is(err, authz.ErrImmutableRole):
			httputil.WriteConflict(w, "built-in role policies cannot be changed")
		case errors.Is(err, policy.ErrUnknownAction),
			errors.Is(err, policy.ErrInvalidEffect),
			errors.Is(err, policy.ErrEmptyStatement):
			httputil.WriteBadRequest(w, err.Error())
		default:
			s.logger.WithError(err).Error("Failed to store policy")
			httputil.WriteInternalError(w, errors.New("failed to store policy"))
		}
		return
	}

	httputil.WriteNoContent(w)
}

// AssignRoleRequest optionally bounds an assignment's lifetime.
type AssignRoleRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// listPrincipalRoles handles GET /v1/principals/{id}/roles
func (s *Server) listPrincipalRoles(w http.ResponseWriter, r *http.Request) {
	principalID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	assignments, err := s.assignments.ListAssignments(r.Context(), principalID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list assignments")
		httputil.WriteInternalError(w, errors.New("failed to list assignments"))
		return
	}
	httputil.WriteSuccess(w, assignments)
}

// putAssignment handles PUT /v1/principals/{id}/roles/{role}
func (s *Server) putAssignment(w http.ResponseWriter, r *http.Request) {
	principalID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	roleName, ok := httputil.ParsePathStringOrError(w, r, "role")
	if !ok {
		return
	}

	var req AssignRoleRequest
	if r.ContentLength > 0 && !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if _, err := s.roleStore.GetRole(r.Context(), roleName); err != nil {
		if errors.Is(err, roles.ErrRoleNotFound) {
			httputil.WriteNotFoundError(w, "role not found")
			return
		}
		s.logger.WithError(err).Error("Failed to look up role")
		httputil.WriteInternalError(w, errors.New("failed to look up role"))
		return
	}

	assignment := roles.Assignment{
		PrincipalID: principalID,
		RoleName:    roleName,
		AssignedBy:  contextkeys.GetPrincipal(r.Context()).ID,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := s.assignments.UpsertAssignment(r.Context(), assignment); err != nil {
		if errors.Is(err, roles.ErrRoleNotHeldByOwner) {
			httputil.WriteConflict(w, "token principals may only hold roles their owner holds")
			return
		}
		s.logger.WithError(err).Error("Failed to upsert assignment")
		httputil.WriteInternalError(w, errors.New("failed to upsert assignment"))
		return
	}

	s.authorizer.InvalidatePrincipal(principalID)
	httputil.WriteNoContent(w)
}

// deleteAssignment handles DELETE /v1/principals/{id}/roles/{role}
func (s *Server) deleteAssignment(w http.ResponseWriter, r *http.Request) {
	principalID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	roleName, ok := httputil.ParsePathStringOrError(w, r, "role")
	if !ok {
		return
	}

	if err := s.assignments.DeleteAssignment(r.Context(), principalID, roleName); err != nil {
		s.logger.WithError(err).Error("Failed to delete assignment")
		httputil.WriteInternalError(w, errors.New("failed to delete assignment"))
		return
	}

	s.authorizer.InvalidatePrincipal(principalID)
	httputil.WriteNoContent(w)
}
