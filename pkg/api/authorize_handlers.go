package api

import (
	"net/http"

	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
)

// AuthorizeRequest asks for a decision. Either a path/method pair (resolved
// through the action registry) or an explicit action set with a resource
// scope must be supplied.
type AuthorizeRequest struct {
	Path     string   `json:"path,omitempty"`
	Method   string   `json:"method,omitempty"`
	Actions  []string `json:"actions,omitempty"`
	Resource string   `json:"resource,omitempty"`
}

// authorize handles POST /v1/authorize. It always answers 200 with the
// decision; Allow versus Deny lives in the body, not the status code.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	var req AuthorizeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	principal := contextkeys.GetPrincipal(r.Context())

	if len(req.Actions) > 0 {
		httputil.WriteSuccess(w, s.authorizer.Check(r.Context(), principal, req.Actions, req.Resource))
		return
	}

	if req.Path == "" || req.Method == "" {
		httputil.WriteBadRequest(w, "either actions or both path and method are required")
		return
	}

	httputil.WriteSuccess(w, s.authorizer.Authorize(r.Context(), principal, req.Path, req.Method))
}
