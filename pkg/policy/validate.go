package policy

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction means a statement references an action pattern that
	// matches nothing in the action registry. Policies are validated at write
	// time so that typos surface immediately instead of silently never
	// matching.
	ErrUnknownAction = errors.New("policy references unregistered action")

	// ErrInvalidEffect means a statement's effect is neither Allow nor Deny.
	ErrInvalidEffect = errors.New("invalid statement effect")

	// ErrEmptyStatement means a statement carries no action patterns.
	ErrEmptyStatement = errors.New("statement has no actions")
)

// ActionValidator reports whether an action pattern refers to at least one
// registered action. *registry.Registry satisfies it.
type ActionValidator interface {
	Validate(action string) bool
}

// Validate checks every statement's action patterns against the registry.
// It is called on policy writes, never on the evaluation hot path.
func (p *Policy) Validate(reg ActionValidator) error {
	for i, st := range p.Statements {
		if !st.Effect.Valid() {
			return fmt.Errorf("%w: statement %d has effect %q", ErrInvalidEffect, i, st.Effect)
		}
		if len(st.Actions) == 0 {
			return fmt.Errorf("%w: statement %d", ErrEmptyStatement, i)
		}
		for _, action := range st.Actions {
			if !reg.Validate(action) {
				return fmt.Errorf("%w: %q in statement %d", ErrUnknownAction, action, i)
			}
		}
	}
	return nil
}
