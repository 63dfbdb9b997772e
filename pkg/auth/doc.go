// Package auth defines the principal model and personal access token
// primitives for the Gatehouse authorization engine.
//
// # Principals
//
// A Principal is anything that can be the subject of an authorization
// decision: an interactive user carrying identity-provider role claims, or a
// service token acting with its own role assignments.
//
//	p := auth.Principal{
//		ID:          "user-1234",
//		Kind:        auth.KindInteractive,
//		ClaimsRoles: []string{"gatehouse-user", "team-alpha:*"},
//	}
//
// # Personal Access Tokens
//
// Tokens are generated with 256 bits of entropy and stored only as SHA256
// hashes. The plaintext is shown exactly once at creation.
//
//	generator := auth.NewTokenGenerator()
//	token, hash, prefix, err := generator.GenerateToken()
//	// token:  gh_[base64url(32 random bytes)] (display once)
//	// hash:   SHA256(token) (store)
//	// prefix: gh_xxxxxxxx (for listing)
//
// Each token is treated as its own principal with an independent role
// assignment set, keyed by a synthetic principal id. Role resolution and
// policy evaluation never distinguish token principals from interactive ones.
//
// # Related Packages
//
//   - pkg/roles: role resolution and assignment reconciliation
//   - pkg/authz: the decision service
package auth
