package auth

import "time"

// Kind distinguishes how a principal authenticates.
type Kind string

const (
	// KindInteractive is a human user authenticated through the identity
	// provider, carrying role claims in their session.
	KindInteractive Kind = "interactive"
	// KindServiceToken is a personal access token acting as its own
	// principal with an independent role assignment set.
	KindServiceToken Kind = "service_token"
)

// Principal is the subject of an authorization decision.
type Principal struct {
	// ID uniquely identifies the principal. Interactive users carry their
	// identity-provider subject; token principals carry a synthetic id
	// minted at token creation.
	ID string `json:"id"`

	Kind Kind `json:"kind"`

	// OwnerID is set for token principals and names the interactive
	// principal that created the token.
	OwnerID string `json:"owner_id,omitempty"`

	// ClaimsRoles are the role names or role name patterns asserted by the
	// identity provider for this session. Empty for token principals.
	ClaimsRoles []string `json:"claims_roles,omitempty"`
}

// Authenticated reports whether the principal carries an identity. An
// unauthenticated request evaluates with the anonymous defaults only.
func (p Principal) Authenticated() bool {
	return p.ID != ""
}

// Token is a stored personal access token. The plaintext is never persisted;
// lookups go through the SHA256 hash.
type Token struct {
	ID          int64      `json:"id"`
	PrincipalID string     `json:"principal_id"`
	OwnerID     string     `json:"owner_id"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the token may still authenticate at the given time.
func (t *Token) Active(now time.Time) bool {
	if t.RevokedAt != nil {
		return false
	}
	if t.ExpiresAt != nil && !t.ExpiresAt.After(now) {
		return false
	}
	return true
}
