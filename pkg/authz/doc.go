// Package authz is the decision point of the Gatehouse engine. It composes
// the action registry, role resolution and policy evaluation into a single
// Authorize call, and fronts the whole pipeline with a TTL-bounded decision
// cache.
//
// # Decision Flow
//
//	svc := authz.NewService(reg, resolver, store,
//		authz.WithCache(10000, 30*time.Second),
//		authz.WithStoreTimeout(2*time.Second),
//	)
//	decision := svc.Authorize(ctx, principal, "/api/workflow/abc123/cancel", "POST")
//
// Authorize resolves the request to semantic actions, derives the resource
// identifier, resolves the principal's roles, loads the role policies and
// evaluates them. Every failure along the way produces a denial with a
// machine-readable reason; the service never fails open.
//
// Error-caused denials (store timeouts, resolution failures) are returned but
// never cached, so a recovered store serves correct decisions immediately.
//
// # Policy Writes
//
// PutPolicy validates the document against the action registry before it is
// stored and purges the decision cache afterwards, keeping the staleness
// window to the cache TTL for reads that raced the write.
package authz
