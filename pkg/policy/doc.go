// Package policy defines the IAM-style policy document model and the pure
// evaluation function at the heart of the authorization engine.
//
// A policy is an unordered collection of statements, each pairing an effect
// (Allow or Deny) with action patterns and resource patterns. Evaluation is a
// pure function of the resolved action set, the target resource, and the
// policies contributed by the principal's roles: it performs no I/O, holds no
// state, and is safe to call concurrently without locks.
//
// Two properties are load-bearing and hold regardless of statement order
// within or across policies:
//
//   - Deny dominance: any matching Deny statement overrides every matching
//     Allow statement for the same action and resource.
//   - Implicit deny: an action no Allow statement matches is denied.
//
// The JSON wire format is stable for interop:
//
//	{"statements": [{"effect": "Allow", "actions": ["workflow:*"], "resources": ["*"]}]}
package policy
