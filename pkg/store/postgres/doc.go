// Package postgres persists roles, policies, assignments and personal access
// tokens in PostgreSQL.
//
// The Store satisfies authz.PolicyStore, roles.AssignmentStore and
// roles.Catalog, so one connection pool backs the whole decision path.
// Policies are stored as JSONB in their wire format and parsed on read.
//
// RunMigrations applies the schema idempotently at startup; Bootstrap then
// seeds the built-in roles without touching existing rows.
package postgres
