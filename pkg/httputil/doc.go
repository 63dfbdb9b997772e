// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error
// responses, parameter parsing, and common HTTP middleware patterns used by
// the API surface.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, decision)
//	httputil.WriteCreated(w, role)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteUnauthorized(w, "Token expired")
//	httputil.WriteForbidden(w, "Insufficient permissions")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req AuthorizeRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	name, ok := httputil.ParsePathStringOrError(w, r, "name")
//
// Query parameters:
//
//	owner := httputil.ParseQueryString(r, "owner", "")
//	includePolicy, err := httputil.ParseQueryBool(r, "include_policy", false)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.ContentTypeMiddleware,
//		httputil.MaxBytesMiddleware(1*1024*1024), // 1MB
//	)
//
// # Related Packages
//
//   - pkg/api: HTTP handlers built on these helpers
//   - pkg/contextkeys: Context keys used by RequestIDMiddleware
package httputil
