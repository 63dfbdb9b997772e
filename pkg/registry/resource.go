package registry

import "strings"

// DeriveResource extracts the scoped resource identifier for an action from
// the request path. Derivation is pure string slicing against the path
// segments; it never consults storage. Scoping depends on the action's
// resource type:
//
//   - dataset and config resources are self-scoped: "bucket/{id}", "config/{id}"
//   - workflow resources are self-scoped: "workflow/{id}"; Create is
//     pool-scoped from the path: "pool/{name}"
//   - internal resources are backend-scoped: "backend/{id}"
//   - auth token paths targeting another user are user-scoped: "user/{id}"
//   - everything else returns "" (action-only check, no resource scope)
func (r *Registry) DeriveResource(path, action string) string {
	parts := strings.Split(strings.TrimPrefix(normalizePath(path), "/"), "/")

	sep := strings.IndexByte(action, ':')
	if sep < 0 {
		return ""
	}
	resourceType := action[:sep]
	verb := action[sep+1:]

	switch resourceType {
	case resourceTypeDataset:
		if verb == "List" {
			return ""
		}
		return "bucket/" + segmentAfter(parts, "bucket")

	case resourceTypeConfig:
		// The URL uses "configs" (plural); the scope prefix stays "config".
		return "config/" + segmentAfter(parts, "configs")

	case resourceTypeWorkflow:
		if verb == "List" {
			return ""
		}
		if verb == "Create" {
			// /api/pool/{pool}/workflow
			return "pool/" + segmentAfter(parts, "pool")
		}
		return deriveWorkflowID(parts)

	case resourceTypeInternal:
		switch verb {
		case "Operator":
			// /api/agent/{listener|worker}/{node}
			for i, part := range parts {
				if part == "agent" && i+2 < len(parts) && parts[i+2] != "" {
					return "backend/" + parts[i+2]
				}
			}
			return "backend/*"
		case "Logger":
			// /api/logger/workflow/{workflow}/ctrl/{backend}
			return "backend/" + segmentAfter(parts, "ctrl")
		case "Router":
			// /api/router/{op}/{workflow}/backend/{backend}
			return "backend/" + segmentAfter(parts, "backend")
		}
		return ""

	case resourceTypeAuth:
		// User-scoped token paths: /api/auth/user/{user}/access_token[/*]
		if verb == "Token" {
			for i, part := range parts {
				if part == "auth" && i+1 < len(parts) && parts[i+1] == "user" {
					return "user/" + segmentAfter(parts, "user")
				}
			}
		}
		return ""

	default:
		return ""
	}
}

// deriveWorkflowID slices the workflow identifier out of the path. Workflow
// endpoints carry the id right after the "workflow" segment; router exec and
// portforward endpoints carry it as /api/router/{op}/{workflow_id}/client/*.
// Router webserver traffic names no workflow and stays unscoped.
func deriveWorkflowID(parts []string) string {
	for i, part := range parts {
		if part != "router" || i+1 >= len(parts) {
			continue
		}
		next := parts[i+1]
		if next == "webserver" {
			return ""
		}
		if (next == "exec" || next == "portforward") && i+2 < len(parts) && parts[i+2] != "" {
			return "workflow/" + parts[i+2]
		}
		break
	}
	return "workflow/" + segmentAfter(parts, "workflow")
}

// segmentAfter returns the path segment following the first occurrence of
// marker, or "*" when there is none.
func segmentAfter(parts []string, marker string) string {
	for i, part := range parts {
		if part == marker && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1]
		}
	}
	return "*"
}
