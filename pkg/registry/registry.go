package registry

import (
	"sort"
	"strings"

	"github.com/platinummonkey/gatehouse/pkg/wildcard"
)

// EndpointPattern defines one API endpoint shape an action covers.
type EndpointPattern struct {
	Path    string
	Methods []string
}

// Table maps semantic actions to the endpoint patterns that express them.
type Table map[string][]EndpointPattern

// compiledPattern is a pre-processed endpoint pattern for fast matching.
type compiledPattern struct {
	action       string
	rawPath      string
	parts        []string // pre-split path segments
	methods      []string
	hasTrailWild bool
	specificity  int // higher = more specific, used for result ordering
}

// Registry resolves request paths to semantic actions. It is immutable after
// construction and safe for concurrent use without locking.
type Registry struct {
	table    Table
	patterns []*compiledPattern // sorted most specific first
	actions  []string           // sorted action names
}

// New builds a Registry from an action table.
func New(table Table) *Registry {
	r := &Registry{table: table}
	for action, patterns := range table {
		r.actions = append(r.actions, action)
		for _, ep := range patterns {
			r.patterns = append(r.patterns, compile(action, ep))
		}
	}
	sort.Strings(r.actions)
	sort.SliceStable(r.patterns, func(i, j int) bool {
		if r.patterns[i].specificity != r.patterns[j].specificity {
			return r.patterns[i].specificity > r.patterns[j].specificity
		}
		return r.patterns[i].rawPath < r.patterns[j].rawPath
	})
	return r
}

// Default builds a Registry from the built-in action table.
func Default() *Registry {
	return New(DefaultTable())
}

func compile(action string, ep EndpointPattern) *compiledPattern {
	parts := strings.Split(ep.Path, "/")

	specificity := 0
	exact := true
	for i, part := range parts {
		if part == "*" {
			exact = false
		} else if part != "" {
			specificity += 10 - i // earlier literal segments are more specific
		}
	}
	if exact {
		specificity += 100
	}

	return &compiledPattern{
		action:       action,
		rawPath:      ep.Path,
		parts:        parts,
		methods:      ep.Methods,
		hasTrailWild: strings.HasSuffix(ep.Path, "/*"),
		specificity:  specificity,
	}
}

// Resolve returns every action whose endpoint pattern matches the request,
// most specific first and deduplicated. The empty result means the endpoint
// is unmapped; the caller must treat it as a deny, never an error.
func (r *Registry) Resolve(path, method string) []string {
	path = normalizePath(path)
	method = strings.ToUpper(method)
	pathParts := strings.Split(path, "/")

	var actions []string
	seen := make(map[string]struct{})
	for _, cp := range r.patterns {
		if !wildcard.MatchMethod(method, cp.methods) {
			continue
		}
		if !matchParts(pathParts, cp) {
			continue
		}
		if _, dup := seen[cp.action]; dup {
			continue
		}
		seen[cp.action] = struct{}{}
		actions = append(actions, cp.action)
	}
	return actions
}

// matchParts checks pre-split request segments against a compiled pattern.
func matchParts(pathParts []string, cp *compiledPattern) bool {
	if cp.hasTrailWild {
		// The trailing wildcard must consume at least one segment.
		prefixLen := len(cp.parts) - 1
		if len(pathParts) <= prefixLen {
			return false
		}
		return segmentsEqual(cp.parts[:prefixLen], pathParts[:prefixLen])
	}
	if len(cp.parts) != len(pathParts) {
		return false
	}
	return segmentsEqual(cp.parts, pathParts)
}

func segmentsEqual(patternParts, pathParts []string) bool {
	for i, p := range patternParts {
		if p != "*" && p != pathParts[i] {
			return false
		}
	}
	return true
}

// normalizePath strips any query string and a trailing slash.
func normalizePath(path string) string {
	if i := strings.Index(path, "?"); i != -1 {
		path = path[:i]
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// Actions returns all registered action names, sorted.
func (r *Registry) Actions() []string {
	out := make([]string, len(r.actions))
	copy(out, r.actions)
	return out
}

// Validate reports whether an action pattern refers to at least one
// registered action. Policy writes use it to reject unknown actions at load
// time, never at evaluation time.
func (r *Registry) Validate(action string) bool {
	if action == "*" || action == "*:*" {
		return true
	}
	if _, ok := r.table[action]; ok {
		return true
	}
	if strings.HasSuffix(action, ":*") || strings.HasPrefix(action, "*:") {
		for _, registered := range r.actions {
			if wildcard.MatchAction(action, registered) {
				return true
			}
		}
	}
	return false
}
