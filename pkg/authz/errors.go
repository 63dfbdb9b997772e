package authz

import "errors"

var (
	// ErrPolicyNotFound means no policy exists for a role name. During
	// evaluation this skips the role instead of failing the decision; an
	// assignment can legitimately outlive its role.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrImmutableRole means a write targeted a built-in role.
	ErrImmutableRole = errors.New("role is immutable")
)
