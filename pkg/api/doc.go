// Package api provides the HTTP REST API server for the gatehouse decision service.
//
// # Overview
//
// This package implements the HTTP layer that exposes the authorization
// engine: the decision endpoint queried by the edge proxy plus the
// management endpoints for roles, policies, role assignments and personal
// access tokens.
//
// # Architecture
//
// The API is built on gorilla/mux and organized into handler groups:
//
//   - Authorization: POST /v1/authorize answers Allow/Deny for a path/method
//     pair or an explicit action set
//   - Role Management: Create, list, inspect and delete roles; replace a
//     role's policy document
//   - Assignment Management: Grant and revoke roles per principal, with
//     optional expiry
//   - Token Management: Mint, list and revoke personal access tokens
//
// # Identity
//
// Session validation happens upstream. The server derives the request
// principal from either a Bearer access token (resolved against the token
// store) or the X-Principal-ID / X-Principal-Roles headers set by the
// session validator. Requests carrying neither evaluate as anonymous.
//
// Management endpoints are guarded by the decision engine itself: each
// route's path and method resolve to rbac:Read / rbac:Write (or auth:Token)
// actions through the same registry used for proxied traffic.
//
// # Key Types
//
// Server is the main API server:
//
//	server := api.NewServer(reg, service, store, assignments, store)
//	http.ListenAndServe(":8080", server)
//
// # Related Packages
//
//   - pkg/authz: Decision service behind the Authorizer interface
//   - pkg/registry: Path/method to action resolution
//   - pkg/store/postgres: Role, assignment and token persistence
package api
