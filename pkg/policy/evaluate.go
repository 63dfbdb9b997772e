package policy

import "github.com/platinummonkey/gatehouse/pkg/wildcard"

// Evaluate decides whether every action in the resolved set is permitted on
// the resource by the union of the given policies.
//
// For each action, all Deny statements across all policies are checked first;
// any match short-circuits the whole evaluation with an explicit deny. Only
// then are Allow statements consulted, and an action no Allow statement
// matches denies immediately. Allow is returned only when every action in the
// set was individually allowed.
//
// Evaluate is a pure function of its inputs and safe for concurrent use.
func Evaluate(actions []string, resource string, policies []Policy) Decision {
	if len(actions) == 0 {
		return Decision{Reason: ReasonNoActionMapping}
	}

	for _, action := range actions {
		for _, p := range policies {
			for _, st := range p.Statements {
				if st.Effect == EffectDeny && st.matches(action, resource) {
					return Decision{
						Allowed:  false,
						Action:   action,
						Resource: resource,
						Reason:   ReasonExplicitDeny,
					}
				}
			}
		}

		allowed := false
		for _, p := range policies {
			for _, st := range p.Statements {
				if st.Effect == EffectAllow && st.matches(action, resource) {
					allowed = true
					break
				}
			}
			if allowed {
				break
			}
		}
		if !allowed {
			return Decision{
				Allowed:  false,
				Action:   action,
				Resource: resource,
				Reason:   ReasonImplicitDeny,
			}
		}
	}

	return Decision{
		Allowed:  true,
		Action:   actions[0],
		Resource: resource,
		Reason:   ReasonAllowed,
	}
}

// matches reports whether the statement covers the action and resource. A
// statement with no resource patterns only covers unscoped requests; an
// unscoped policy never grants access to a scoped resource.
func (st Statement) matches(action, resource string) bool {
	actionMatched := false
	for _, pattern := range st.Actions {
		if wildcard.MatchAction(pattern, action) {
			actionMatched = true
			break
		}
	}
	if !actionMatched {
		return false
	}

	if len(st.Resources) == 0 {
		return resource == ""
	}
	for _, pattern := range st.Resources {
		if wildcard.MatchResource(pattern, resource) {
			return true
		}
	}
	return false
}
