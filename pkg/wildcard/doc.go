// Package wildcard implements the single pattern-matching primitive shared by
// the action registry, the policy evaluator, and role reconciliation.
//
// Patterns are matched literally except for a wildcard segment. A trailing
// wildcard ("prefix*" or "prefix/*") greedily consumes the remainder of the
// candidate, including nested path segments. For two-part tokens the wildcard
// is confined to its own side of the separator: "workflow:*" matches every
// workflow action but never "workflow-extra:Read", and "*:Read" matches Read
// on every resource type. The bare pattern "*" is universal.
//
// Matching is case-sensitive (except for HTTP methods), requires no regex
// engine, and runs in O(pattern length) per candidate.
package wildcard
