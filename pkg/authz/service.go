package authz

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/policy"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

const (
	defaultCacheSize    = 10000
	defaultCacheTTL     = 30 * time.Second
	defaultStoreTimeout = 2 * time.Second
)

// RoleResolver produces the role set for a principal. *roles.Resolver
// satisfies it.
type RoleResolver interface {
	ResolveRoles(ctx context.Context, principal auth.Principal) ([]string, error)
}

// PolicyStore loads and stores role policy documents. GetPolicy returns
// ErrPolicyNotFound for roles without a policy; PutPolicy returns
// ErrImmutableRole for built-in roles.
type PolicyStore interface {
	GetPolicy(ctx context.Context, roleName string) (*policy.Policy, error)
	PutPolicy(ctx context.Context, roleName string, p policy.Policy) error
}

// Option configures a Service.
type Option func(*Service)

// WithCache sizes the decision cache and sets its TTL. A size of 0 disables
// caching.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheSize = size
		s.cacheTTL = ttl
	}
}

// WithStoreTimeout bounds how long one decision may wait on the backing
// stores.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) { s.storeTimeout = d }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *observability.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service makes authorization decisions.
type Service struct {
	registry *registry.Registry
	resolver RoleResolver
	store    PolicyStore

	cache     *expirable.LRU[string, policy.Decision]
	cacheSize int
	cacheTTL  time.Duration

	storeTimeout time.Duration

	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates a decision service over the given registry, resolver and
// policy store.
func NewService(reg *registry.Registry, resolver RoleResolver, store PolicyStore, opts ...Option) *Service {
	s := &Service{
		registry:     reg,
		resolver:     resolver,
		store:        store,
		cacheSize:    defaultCacheSize,
		cacheTTL:     defaultCacheTTL,
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize > 0 {
		s.cache = expirable.NewLRU[string, policy.Decision](s.cacheSize, nil, s.cacheTTL)
	}
	return s
}

// Authorize decides whether the principal may perform the request described
// by path and method. A path that maps to no registered action is denied
// with ReasonNoActionMapping.
func (s *Service) Authorize(ctx context.Context, principal auth.Principal, path, method string) policy.Decision {
	actions := s.registry.Resolve(path, method)
	if len(actions) == 0 {
		d := policy.Decision{Reason: policy.ReasonNoActionMapping}
		s.observe(d, 0)
		return d
	}
	resource := s.registry.DeriveResource(path, actions[0])
	return s.Check(ctx, principal, actions, resource)
}

// Check decides whether the principal may perform the already-resolved action
// set against the resource. The decision is allowed only when every action is
// allowed.
func (s *Service) Check(ctx context.Context, principal auth.Principal, actions []string, resource string) policy.Decision {
	start := time.Now()

	key := cacheKey(principal.ID, actions, resource)
	if s.cache != nil {
		if d, ok := s.cache.Get(key); ok {
			if s.metrics != nil {
				s.metrics.DecisionCacheHitsTotal.Inc()
			}
			return d
		}
		if s.metrics != nil {
			s.metrics.DecisionCacheMissesTotal.Inc()
		}
	}

	tctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	roleNames, err := s.resolver.ResolveRoles(tctx, principal)
	if err != nil {
		return s.failClosed(ctx, principal, "role resolution failed", err, start)
	}

	policies := make([]policy.Policy, 0, len(roleNames))
	for _, name := range roleNames {
		p, err := s.store.GetPolicy(tctx, name)
		if errors.Is(err, ErrPolicyNotFound) {
			// An assignment may reference a deleted role; it simply
			// contributes nothing.
			continue
		}
		if err != nil {
			return s.failClosed(ctx, principal, "policy load failed", err, start)
		}
		policies = append(policies, *p)
	}

	d := policy.Evaluate(actions, resource, policies)
	if s.cache != nil {
		s.cache.Add(key, d)
	}
	s.observe(d, time.Since(start))
	return d
}

// PutPolicy validates and stores the policy for a role, then drops all cached
// decisions. Built-in roles reject the write with ErrImmutableRole.
func (s *Service) PutPolicy(ctx context.Context, roleName string, p policy.Policy) error {
	if err := p.Validate(s.registry); err != nil {
		return err
	}
	if err := s.store.PutPolicy(ctx, roleName, p); err != nil {
		return err
	}
	s.InvalidateAll()
	return nil
}

// InvalidatePrincipal drops every cached decision for one principal, for use
// after an assignment change.
func (s *Service) InvalidatePrincipal(principalID string) {
	if s.cache == nil {
		return
	}
	prefix := principalID + "\x00"
	for _, key := range s.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Remove(key)
		}
	}
}

// InvalidateAll drops the whole decision cache.
func (s *Service) InvalidateAll() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// failClosed turns a store or resolver error into an uncached denial. A
// deadline hit maps to its own reason so operators can tell slow stores from
// broken ones.
func (s *Service) failClosed(ctx context.Context, principal auth.Principal, msg string, err error, start time.Time) policy.Decision {
	reason := policy.ReasonPrincipalResolution
	if errors.Is(err, context.DeadlineExceeded) {
		reason = policy.ReasonStoreTimeout
	}
	if s.logger != nil {
		s.logger.WithError(err).
			WithField("principal_id", principal.ID).
			WithField("reason", string(reason)).
			Error(msg)
	}
	d := policy.Decision{Reason: reason}
	s.observe(d, time.Since(start))
	return d
}

func (s *Service) observe(d policy.Decision, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	s.metrics.ObserveDecision(outcome, string(d.Reason), elapsed)
}

// cacheKey joins the decision inputs with NUL separators, which cannot occur
// in principal ids, action names or resource identifiers.
func cacheKey(principalID string, actions []string, resource string) string {
	var b strings.Builder
	b.WriteString(principalID)
	b.WriteByte(0)
	for i, a := range actions {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a)
	}
	b.WriteByte(0)
	b.WriteString(resource)
	return b.String()
}
