package policy

import (
	"encoding/json"
	"fmt"
)

// Effect is the outcome a statement contributes when it matches.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// Valid reports whether the effect is one of the two known values.
func (e Effect) Valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// Statement pairs an effect with the action patterns and resource patterns it
// applies to. Statements are immutable once loaded for an evaluation.
type Statement struct {
	Effect    Effect   `json:"effect"`
	Actions   []string `json:"actions"`
	Resources []string `json:"resources,omitempty"`
}

// Policy is an order-irrelevant collection of statements owned by exactly one
// role.
type Policy struct {
	Statements []Statement `json:"statements"`
}

// Parse decodes a policy document from its JSON wire format and checks its
// structure. Pattern validation against the action registry is a separate,
// registry-aware step (see Policy.Validate).
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid policy document: %w", err)
	}
	for i, st := range p.Statements {
		if !st.Effect.Valid() {
			return nil, fmt.Errorf("%w: statement %d has effect %q", ErrInvalidEffect, i, st.Effect)
		}
		if len(st.Actions) == 0 {
			return nil, fmt.Errorf("%w: statement %d has no actions", ErrEmptyStatement, i)
		}
		for _, action := range st.Actions {
			if action == "" {
				return nil, fmt.Errorf("%w: statement %d has an empty action", ErrEmptyStatement, i)
			}
		}
	}
	return &p, nil
}

// Marshal encodes the policy in its JSON wire format.
func (p *Policy) Marshal() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy: %w", err)
	}
	return data, nil
}

// Reason explains a decision outcome.
type Reason string

const (
	// ReasonAllowed means every resolved action was allowed by policy.
	ReasonAllowed Reason = "allowed"
	// ReasonExplicitDeny means a Deny statement matched.
	ReasonExplicitDeny Reason = "explicit_deny"
	// ReasonImplicitDeny means no Allow statement matched a resolved action.
	ReasonImplicitDeny Reason = "implicit_deny"
	// ReasonNoActionMapping means the request path and method resolved to no
	// registered action. This is the designed outcome for unmapped endpoints,
	// not an error.
	ReasonNoActionMapping Reason = "no_action_mapping"
	// ReasonPrincipalResolution means the principal's roles or policies could
	// not be loaded; evaluation fails closed.
	ReasonPrincipalResolution Reason = "principal_resolution_failure"
	// ReasonStoreTimeout means a backing store exceeded its deadline;
	// evaluation fails closed.
	ReasonStoreTimeout Reason = "store_timeout"
)

// Decision is the result of one authorization check. Decisions are ephemeral
// and cacheable; they are never persisted.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Action   string `json:"action,omitempty"`
	Resource string `json:"resource,omitempty"`
	Reason   Reason `json:"reason"`
}
