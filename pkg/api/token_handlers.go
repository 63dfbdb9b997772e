package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
)

// CreateTokenRequest mints a new personal access token for the caller.
type CreateTokenRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateTokenResponse carries the plaintext token. This is the only time it
// is ever returned; only the hash is stored.
type CreateTokenResponse struct {
	Token  string      `json:"token"`
	Record *auth.Token `json:"record"`
}

// createToken handles POST /v1/tokens
func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	principal := contextkeys.GetPrincipal(r.Context())
	if principal.Kind == auth.KindServiceToken {
		httputil.WriteForbidden(w, "tokens cannot create tokens")
		return
	}

	var req CreateTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		httputil.WriteBadRequest(w, "expires_at must be in the future")
		return
	}

	plaintext, hash, prefix, err := s.tokenGen.GenerateToken()
	if err != nil {
		s.logger.WithError(err).Error("Failed to generate token")
		httputil.WriteInternalError(w, errors.New("failed to generate token"))
		return
	}

	token := &auth.Token{
		PrincipalID: auth.NewTokenPrincipalID(),
		OwnerID:     principal.ID,
		TokenHash:   hash,
		TokenPrefix: prefix,
		Name:        req.Name,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := s.tokens.CreateToken(r.Context(), token); err != nil {
		s.logger.WithError(err).Error("Failed to store token")
		httputil.WriteInternalError(w, errors.New("failed to store token"))
		return
	}

	httputil.WriteCreated(w, CreateTokenResponse{Token: plaintext, Record: token})
}

// listTokens handles GET /v1/tokens
func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	principal := contextkeys.GetPrincipal(r.Context())

	tokens, err := s.tokens.ListTokensByOwner(r.Context(), principal.ID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list tokens")
		httputil.WriteInternalError(w, errors.New("failed to list tokens"))
		return
	}
	httputil.WriteSuccess(w, tokens)
}

// revokeToken handles DELETE /v1/tokens/{id}. Only the owner may revoke.
func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	principal := contextkeys.GetPrincipal(r.Context())

	owned, err := s.tokens.ListTokensByOwner(r.Context(), principal.ID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list tokens")
		httputil.WriteInternalError(w, errors.New("failed to revoke token"))
		return
	}

	var target *auth.Token
	for i := range owned {
		if owned[i].ID == id {
			target = &owned[i]
			break
		}
	}
	if target == nil {
		httputil.WriteNotFoundError(w, "token not found")
		return
	}

	if err := s.tokens.RevokeToken(r.Context(), id); err != nil {
		s.logger.WithError(err).Error("Failed to revoke token")
		httputil.WriteInternalError(w, errors.New("failed to revoke token"))
		return
	}

	// A revoked token can no longer authenticate; drop any cached decisions
	// made under its principal.
	s.authorizer.InvalidatePrincipal(target.PrincipalID)
	httputil.WriteNoContent(w)
}
