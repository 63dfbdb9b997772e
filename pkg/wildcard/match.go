package wildcard

import "strings"

// Match reports whether pattern matches candidate. sep is the separator of a
// two-part token (':' for actions, '/' for resources and paths); pass 0 for
// plain prefix matching with no separator semantics.
//
// Rules, in order:
//   - An empty pattern matches nothing.
//   - An exact match always succeeds.
//   - "*" alone matches any candidate.
//   - With a separator, "*<sep>*" is also universal, "prefix<sep>*" matches
//     any candidate starting with "prefix<sep>", and "*<sep>suffix" matches
//     any candidate ending with "<sep>suffix". The wildcard never crosses the
//     separator.
//   - Without a separator, a trailing "*" matches any candidate sharing the
//     literal prefix.
func Match(pattern, candidate string, sep byte) bool {
	if pattern == "" {
		return false
	}
	if pattern == candidate {
		return true
	}
	if pattern == "*" {
		return true
	}

	if sep != 0 {
		s := string(sep)
		if pattern == "*"+s+"*" {
			return true
		}
		if strings.HasSuffix(pattern, s+"*") {
			// Keep the separator in the prefix so "workflow:*" cannot
			// match "workflow-extra:Read".
			prefix := pattern[:len(pattern)-1]
			return len(candidate) > len(prefix) && strings.HasPrefix(candidate, prefix)
		}
		if strings.HasPrefix(pattern, "*"+s) {
			suffix := pattern[1:]
			return len(candidate) > len(suffix) && strings.HasSuffix(candidate, suffix)
		}
		return false
	}

	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(candidate, pattern[:len(pattern)-1])
	}
	return false
}

// MatchAction reports whether a policy action pattern matches a semantic
// action of the form "type:Verb".
func MatchAction(pattern, action string) bool {
	return Match(pattern, action, ':')
}

// MatchResource reports whether a policy resource pattern matches a resolved
// resource identifier of the form "type/id".
//
// An empty resource means the request carries no resource scope and matches
// any pattern. A resolved resource may itself end in "/*" when the concrete
// identifier could not be determined; a pattern naming a concrete identifier
// under the same type matches such a resource.
func MatchResource(pattern, resource string) bool {
	if resource == "" {
		return true
	}
	if pattern == resource {
		return true
	}
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return strings.HasPrefix(resource, prefix+"/")
	}
	if strings.HasSuffix(resource, "/*") {
		resourcePrefix := strings.TrimSuffix(resource, "/*")
		return strings.HasPrefix(pattern, resourcePrefix+"/")
	}
	return false
}

// MatchPath reports whether a slash-segmented endpoint pattern matches a
// request path. Segments equal to "*" match any single segment; a trailing
// "/*" matches one or more remaining segments, so "/api/workflow/*" matches
// "/api/workflow/abc" and "/api/workflow/abc/cancel" but not "/api/workflow".
func MatchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}

	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")

	if strings.HasSuffix(pattern, "/*") {
		prefixLen := len(patternParts) - 1
		if len(pathParts) <= prefixLen {
			return false
		}
		return segmentsMatch(patternParts[:prefixLen], pathParts[:prefixLen])
	}

	if len(patternParts) != len(pathParts) {
		return false
	}
	return segmentsMatch(patternParts, pathParts)
}

func segmentsMatch(patternParts, pathParts []string) bool {
	for i, p := range patternParts {
		if p != "*" && p != pathParts[i] {
			return false
		}
	}
	return true
}

// MatchMethod reports whether an HTTP method is covered by a pattern's method
// set. "*" covers every method; comparison is case-insensitive.
func MatchMethod(method string, allowed []string) bool {
	for _, m := range allowed {
		if m == "*" || strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
