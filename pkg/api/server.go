package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/policy"
	"github.com/platinummonkey/gatehouse/pkg/registry"
	"github.com/platinummonkey/gatehouse/pkg/roles"
)

const (
	headerPrincipalID    = "X-Principal-ID"
	headerPrincipalRoles = "X-Principal-Roles"

	maxRequestBody = 1 << 20 // 1MB
)

// Authorizer makes decisions and owns decision-cache invalidation. It is
// implemented by authz.Service.
type Authorizer interface {
	Authorize(ctx context.Context, principal auth.Principal, path, method string) policy.Decision
	Check(ctx context.Context, principal auth.Principal, actions []string, resource string) policy.Decision
	PutPolicy(ctx context.Context, roleName string, p policy.Policy) error
	InvalidatePrincipal(principalID string)
	InvalidateAll()
}

// RoleStore persists role definitions.
type RoleStore interface {
	CreateRole(ctx context.Context, role *roles.Role) error
	GetRole(ctx context.Context, name string) (*roles.Role, error)
	ListRoles(ctx context.Context) ([]roles.Role, error)
	DeleteRole(ctx context.Context, name string) error
}

// PolicyInvalidator drops a role's cached policy from an external policy
// cache. *rediscache.PolicyCache satisfies it.
type PolicyInvalidator interface {
	Invalidate(ctx context.Context, roleName string) error
}

// TokenStore persists personal access tokens.
type TokenStore interface {
	CreateToken(ctx context.Context, t *auth.Token) error
	GetTokenByHash(ctx context.Context, hash string) (*auth.Token, error)
	ListTokensByOwner(ctx context.Context, ownerID string) ([]auth.Token, error)
	RevokeToken(ctx context.Context, id int64) error
	TouchToken(ctx context.Context, id int64) error
}

// Server is the decision service's HTTP surface: the authorize endpoint plus
// role, assignment and token management.
type Server struct {
	router      *mux.Router
	registry    *registry.Registry
	authorizer  Authorizer
	roleStore   RoleStore
	assignments roles.AssignmentStore
	tokens      TokenStore
	tokenGen    *auth.TokenGenerator
	policyCache PolicyInvalidator
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *observability.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics enables per-endpoint HTTP metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithPolicyInvalidator wires the external policy cache so that role writes
// purge its entries alongside the in-process decision cache.
func WithPolicyInvalidator(inv PolicyInvalidator) Option {
	return func(s *Server) { s.policyCache = inv }
}

// NewServer creates the API server and wires all routes.
func NewServer(reg *registry.Registry, authorizer Authorizer, roleStore RoleStore, assignments roles.AssignmentStore, tokens TokenStore, opts ...Option) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		registry:    reg,
		authorizer:  authorizer,
		roleStore:   roleStore,
		assignments: assignments,
		tokens:      tokens,
		tokenGen:    auth.NewTokenGenerator(),
		logger:      observability.NewLogger(observability.InfoLevel, os.Stdout),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.ContentTypeMiddleware)
	s.router.Use(httputil.MaxBytesMiddleware(maxRequestBody))
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}
	s.router.Use(s.principalMiddleware)

	// Decision endpoint. Unguarded: any caller may ask for a decision about
	// the principal their identity headers describe.
	s.router.HandleFunc("/v1/authorize", s.authorize).Methods("POST")

	// Role and policy management
	s.router.HandleFunc("/v1/roles", s.protected(s.createRole)).Methods("POST")
	s.router.HandleFunc("/v1/roles", s.protected(s.listRoles)).Methods("GET")
	s.router.HandleFunc("/v1/roles/{name}", s.protected(s.getRole)).Methods("GET")
	s.router.HandleFunc("/v1/roles/{name}", s.protected(s.deleteRole)).Methods("DELETE")
	s.router.HandleFunc("/v1/roles/{name}/policy", s.protected(s.putRolePolicy)).Methods("PUT")

	// Assignment management
	s.router.HandleFunc("/v1/principals/{id}/roles", s.protected(s.listPrincipalRoles)).Methods("GET")
	s.router.HandleFunc("/v1/principals/{id}/roles/{role}", s.protected(s.putAssignment)).Methods("PUT")
	s.router.HandleFunc("/v1/principals/{id}/roles/{role}", s.protected(s.deleteAssignment)).Methods("DELETE")

	// Token management
	s.router.HandleFunc("/v1/tokens", s.protected(s.createToken)).Methods("POST")
	s.router.HandleFunc("/v1/tokens", s.protected(s.listTokens)).Methods("GET")
	s.router.HandleFunc("/v1/tokens/{id}", s.protected(s.revokeToken)).Methods("DELETE")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// recoveryMiddleware converts handler panics into 500 responses instead of
// dropping the connection.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := observability.MustRecover(recover()); err != nil {
				s.logger.WithError(err).WithField("path", r.URL.Path).Error("Panic in request handler")
				httputil.WriteInternalError(w, errors.New("internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// principalMiddleware establishes the request principal. A Bearer token
// authenticates as the token's synthetic principal; otherwise identity
// headers set by the upstream session validator are trusted. Requests with
// neither proceed as anonymous.
func (s *Server) principalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			principal, ok := s.authenticateToken(w, r, strings.TrimPrefix(header, "Bearer "))
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(contextkeys.WithPrincipal(r.Context(), principal)))
			return
		}

		if id := r.Header.Get(headerPrincipalID); id != "" {
			principal := auth.Principal{ID: id, Kind: auth.KindInteractive}
			if rolesHeader := r.Header.Get(headerPrincipalRoles); rolesHeader != "" {
				for _, claim := range strings.Split(rolesHeader, ",") {
					if claim = strings.TrimSpace(claim); claim != "" {
						principal.ClaimsRoles = append(principal.ClaimsRoles, claim)
					}
				}
			}
			next.ServeHTTP(w, r.WithContext(contextkeys.WithPrincipal(r.Context(), principal)))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authenticateToken resolves a presented access token to its principal. A
// token that is malformed, unknown, expired or revoked fails the request
// outright rather than downgrading to anonymous.
func (s *Server) authenticateToken(w http.ResponseWriter, r *http.Request, token string) (auth.Principal, bool) {
	if err := s.tokenGen.ValidateTokenFormat(token); err != nil {
		httputil.WriteUnauthorized(w, "malformed access token")
		return auth.Principal{}, false
	}

	stored, err := s.tokens.GetTokenByHash(r.Context(), s.tokenGen.HashToken(token))
	if err != nil {
		httputil.WriteUnauthorized(w, "invalid access token")
		return auth.Principal{}, false
	}
	if !stored.Active(time.Now()) {
		httputil.WriteUnauthorized(w, "access token expired or revoked")
		return auth.Principal{}, false
	}

	// Best effort last-used tracking; a failed touch never fails the request.
	if err := s.tokens.TouchToken(r.Context(), stored.ID); err != nil {
		s.logger.WithError(err).Warn("Failed to update token last_used_at")
	}

	return auth.Principal{
		ID:      stored.PrincipalID,
		Kind:    auth.KindServiceToken,
		OwnerID: stored.OwnerID,
	}, true
}

// protected guards a management handler with the decision engine itself: the
// route's path and method resolve through the action registry like any other
// request.
func (s *Server) protected(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := contextkeys.GetPrincipal(r.Context())

		decision := s.authorizer.Authorize(r.Context(), principal, r.URL.Path, r.Method)
		if !decision.Allowed {
			if !principal.Authenticated() {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			httputil.WriteForbidden(w, string(decision.Reason))
			return
		}

		h(w, r)
	}
}
