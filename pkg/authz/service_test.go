package authz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/policy"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

type fakeResolver struct {
	mu    sync.Mutex
	roles map[string][]string
	err   error
	calls int
}

func (f *fakeResolver) ResolveRoles(ctx context.Context, principal auth.Principal) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.roles[principal.ID], nil
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePolicyStore struct {
	mu       sync.Mutex
	policies map[string]policy.Policy
	getErr   error
	putErr   error
	puts     int
}

func (f *fakePolicyStore) GetPolicy(ctx context.Context, roleName string) (*policy.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.policies[roleName]
	if !ok {
		return nil, fmt.Errorf("role %q: %w", roleName, ErrPolicyNotFound)
	}
	return &p, nil
}

func (f *fakePolicyStore) PutPolicy(ctx context.Context, roleName string, p policy.Policy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	if f.policies == nil {
		f.policies = make(map[string]policy.Policy)
	}
	f.policies[roleName] = p
	return nil
}

func allowWorkflows() policy.Policy {
	return policy.Policy{Statements: []policy.Statement{{
		Effect:    policy.EffectAllow,
		Actions:   []string{"workflow:*"},
		Resources: []string{"*"},
	}}}
}

func denyCancel(resource string) policy.Policy {
	return policy.Policy{Statements: []policy.Statement{{
		Effect:    policy.EffectDeny,
		Actions:   []string{"workflow:Cancel"},
		Resources: []string{resource},
	}}}
}

func newTestService(t *testing.T, resolver *fakeResolver, store *fakePolicyStore, opts ...Option) *Service {
	t.Helper()
	return NewService(registry.Default(), resolver, store, opts...)
}

func TestAuthorize_Allow(t *testing.T) {
	resolver := &fakeResolver{roles: map[string][]string{"user-1": {"ops"}}}
	store := &fakePolicyStore{policies: map[string]policy.Policy{"ops": allowWorkflows()}}
	svc := newTestService(t, resolver, store)

	d := svc.Authorize(context.Background(), auth.Principal{ID: "user-1"}, "/api/workflow/abc123/cancel", "POST")

	assert.True(t, d.Allowed)
	assert.Equal(t, policy.ReasonAllowed, d.Reason)
}

func TestAuthorize_UnmappedPath(t *testing.T) {
	resolver := &fakeResolver{}
	store := &fakePolicyStore{}
	svc := newTestService(t, resolver, store)

	d := svc.Authorize(context.Background(), auth.Principal{ID: "user-1"}, "/api/nonexistent", "GET")

	assert.False(t, d.Allowed)
	assert.Equal(t, policy.ReasonNoActionMapping, d.Reason)
	assert.Zero(t, resolver.callCount(), "unmapped paths should never reach the resolver")
}

func TestAuthorize_DenyWins(t *testing.T) {
	resolver := &fakeResolver{roles: map[string][]string{"user-1": {"ops", "restricted"}}}
	store := &fakePolicyStore{policies: map[string]policy.Policy{
		"ops":        allowWorkflows(),
		"restricted": denyCancel("*"),
	}}
	svc := newTestService(t, resolver, store)

	d := svc.Authorize(context.Background(), auth.Principal{ID: "user-1"}, "/api/workflow/abc123/cancel", "POST")

	assert.False(t, d.Allowed)
	assert.Equal(t, policy.ReasonExplicitDeny, d.Reason)
}

func TestAuthorize_WorkflowScopedDeny(t *testing.T) {
	resolver := &fakeResolver{roles: map[string][]string{"user-1": {"ops", "restricted"}}}
	store := &fakePolicyStore{policies: map[string]policy.Policy{
		"ops":        allowWorkflows(),
		"restricted": denyCancel("workflow/abc123"),
	}}
	svc := newTestService(t, resolver, store)

	// The path derives resource workflow/abc123, so a deny written in that
	// form must bite.
	d := svc.Authorize(context.Background(), auth.Principal{ID: "user-1"}, "/api/workflow/abc123/cancel", "POST")
	require.False(t, d.Allowed)
	assert.Equal(t, policy.ReasonExplicitDeny, d.Reason)

	// A different workflow is untouched by the scoped deny.
	d = svc.Authorize(context.Background(), auth.Principal{ID: "user-1"}, "/api/workflow/def456/cancel", "POST")
	assert.True(t, d.Allowed)
}

func TestCheck_MissingRolePolicySkipped(t *testing.T) {
	resolver := &fakeResolver{roles: map[string][]string{"user-1": {"ghost-role", "ops"}}}
	store := &fakePolicyStore{policies: map[string]policy.Policy{"ops": allowWorkflows()}}
	svc := newTestService(t, resolver, store)

	d := svc.Check(context.Background(), auth.Principal{ID: "user-1"}, []string{"workflow:Read"}, "pool/prod")

	assert.True(t, d.Allowed)
}

func TestCheck_ResolverFailureDeniesUncached(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("connection refused")}
	store := &fakePolicyStore{policies: map[string]policy.Policy{"ops": allowWorkflows()}}
	svc := newTestService(t, resolver, store)

	principal := auth.Principal{ID: "user-1"}
	d := svc.Check(context.Background(), principal, []string{"workflow:Read"}, "pool/prod")
	require.False(t, d.Allowed)
	assert.Equal(t, policy.ReasonPrincipalResolution, d.Reason)

	// The store recovers; the next check must re-evaluate instead of
	// serving the error denial from cache.
	resolver.mu.Lock()
	resolver.err = nil
	resolver.roles = map[string][]string{"user-1": {"ops"}}
	resolver.mu.Unlock()

	d = svc.Check(context.Background(), principal, []string{"workflow:Read"}, "pool/prod")
	assert.True(t, d.Allowed)
}

func TestCheck_TimeoutReason(t *testing.T) {
	resolver := &fakeResolver{err: fmt.Errorf("resolving roles: %w", context.DeadlineExceeded)}
	store := &fakePolicyStore{}
	svc := newTestService(t, resolver, store)

	d := svc.Check(context.Background(), auth.Principal{ID: "user-1"}, []string{"workflow:Read"}, "pool/prod")

	assert.False(t, d.Allowed)
	assert.Equal(t, policy.ReasonStoreTimeout, d.Reason)
}

func TestCheck_PolicyLoadFailureDenies(t *testing.T) {
	resolver := &fakeResolver{roles: map[string][]string{"user-1": {"ops"}}}
	store := &fakePolicyStore{getErr: errors.New("relation does not exist")}
	svc := newTestService(t, resolver, store)

	d := svc.Check(context.Background(), auth.Principal{ID: "user-1"}, []string{"workflow:Read"}, "pool/prod")

	assert.False(t, d.Allowed)
	assert.Equal(t, policy.ReasonPrincipalResolution, d.Reason)
}

func TestCheck_CachesDecisions(t *testing.T) {
	resolver := &fakeResolver{roles: map[string][]string{"user-1": {"ops"}}}
	store := &fakePolicyStore{policies: map[string]policy.Policy{"ops": allowWorkflows()}}
	svc := newTestService(t, resolver, store, WithCache(100, time.Minute))

	principal := auth.Principal{ID: "user-1"}
	for i := 0; i < 5; i++ {
		d := svc.Check(context.Background(), principal, []string{"workflow:Read"}, "pool/prod")
		require.True(t, d.Allowed)
	}

	assert.Equal(t, 1, resolver.callCount(), "repeat checks should hit the cache")
}

func TestCheck_CacheKeyedByPrincipalActionsResource(t *testing.T) {
	resolver := &fakeResolver{roles: map[string][]string{
		"user-1": {"ops"},
		"user-2": {},
	}}
	store := &fakePolicyStore{policies: map[string]policy.Policy{"ops": allowWorkflows()}}
	svc := newTestService(t, resolver, store, WithCache(100, time.Minute))

	ctx := context.Background()
	d1 := svc.Check(ctx, auth.Principal{ID: "user-1"}, []string{"workflow:Read"}, "pool/prod")
	d2 := svc.Check(ctx, auth.Principal{ID: "user-2"}, []string{"workflow:Read"}, "pool/prod")

	assert.True(t, d1.Allowed)
	assert.False(t, d2.Allowed, "a different principal must not share cache entries")
	assert.Equal(t, 2, resolver.callCount())
}

func TestPutPolicy_ValidatesAgainstRegistry(t *testing.T) {
	resolver := &fakeResolver{}
	store := &fakePolicyStore{}
	svc := newTestService(t, resolver, store)

	bad := policy.Policy{Statements: []policy.Statement{{
		Effect:  policy.EffectAllow,
		Actions: []string{"wrkflow:Read"},
	}}}
	err := svc.PutPolicy(context.Background(), "ops", bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, policy.ErrUnknownAction)
	assert.Zero(t, store.puts, "invalid policies must not reach the store")
}

func TestPutPolicy_PurgesCache(t *testing.T) {
	resolver := &fakeResolver{roles: map[string][]string{"user-1": {"ops"}}}
	store := &fakePolicyStore{policies: map[string]policy.Policy{"ops": allowWorkflows()}}
	svc := newTestService(t, resolver, store, WithCache(100, time.Minute))

	ctx := context.Background()
	principal := auth.Principal{ID: "user-1"}

	d := svc.Check(ctx, principal, []string{"workflow:Cancel"}, "workflow/abc123")
	require.True(t, d.Allowed)

	// Tighten the policy; the cached allow must not survive.
	err := svc.PutPolicy(ctx, "ops", denyCancel("workflow/abc123"))
	require.NoError(t, err)

	d = svc.Check(ctx, principal, []string{"workflow:Cancel"}, "workflow/abc123")
	assert.False(t, d.Allowed)
	assert.Equal(t, policy.ReasonExplicitDeny, d.Reason)
}

func TestPutPolicy_ImmutableRole(t *testing.T) {
	resolver := &fakeResolver{}
	store := &fakePolicyStore{putErr: ErrImmutableRole}
	svc := newTestService(t, resolver, store)

	err := svc.PutPolicy(context.Background(), "gatehouse-admin", allowWorkflows())
	assert.ErrorIs(t, err, ErrImmutableRole)
}

func TestInvalidatePrincipal(t *testing.T) {
	resolver := &fakeResolver{roles: map[string][]string{
		"user-1": {"ops"},
		"user-2": {"ops"},
	}}
	store := &fakePolicyStore{policies: map[string]policy.Policy{"ops": allowWorkflows()}}
	svc := newTestService(t, resolver, store, WithCache(100, time.Minute))

	ctx := context.Background()
	svc.Check(ctx, auth.Principal{ID: "user-1"}, []string{"workflow:Read"}, "pool/prod")
	svc.Check(ctx, auth.Principal{ID: "user-2"}, []string{"workflow:Read"}, "pool/prod")
	require.Equal(t, 2, resolver.callCount())

	svc.InvalidatePrincipal("user-1")

	svc.Check(ctx, auth.Principal{ID: "user-1"}, []string{"workflow:Read"}, "pool/prod")
	svc.Check(ctx, auth.Principal{ID: "user-2"}, []string{"workflow:Read"}, "pool/prod")
	assert.Equal(t, 3, resolver.callCount(), "only user-1's entries should have been dropped")
}

func TestCheck_CacheDisabled(t *testing.T) {
	resolver := &fakeResolver{roles: map[string][]string{"user-1": {"ops"}}}
	store := &fakePolicyStore{policies: map[string]policy.Policy{"ops": allowWorkflows()}}
	svc := newTestService(t, resolver, store, WithCache(0, time.Minute))

	ctx := context.Background()
	principal := auth.Principal{ID: "user-1"}
	svc.Check(ctx, principal, []string{"workflow:Read"}, "pool/prod")
	svc.Check(ctx, principal, []string{"workflow:Read"}, "pool/prod")

	assert.Equal(t, 2, resolver.callCount())
}
