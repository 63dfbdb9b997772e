package roles

import (
	"github.com/platinummonkey/gatehouse/pkg/policy"
	"github.com/platinummonkey/gatehouse/pkg/registry"
)

// Built-in role names. These roles are seeded at startup and cannot be
// modified through the API.
const (
	RoleAdmin     = "gatehouse-admin"
	RoleUser      = "gatehouse-user"
	RoleTeamLead  = "gatehouse-team-lead"
	RoleAnonymous = "gatehouse-anonymous"
)

// Builtins returns the built-in role set. The returned roles are fresh
// copies; callers may not mutate shared state through them.
func Builtins() []Role {
	return []Role{
		{
			Name:      RoleAdmin,
			Immutable: true,
			SyncMode:  SyncImport,
			Policy: policy.Policy{Statements: []policy.Statement{
				{
					Effect:    policy.EffectAllow,
					Actions:   []string{"*:*"},
					Resources: []string{"*"},
				},
				{
					// Backend-to-backend traffic authenticates with service
					// tokens, never with an admin's credentials.
					Effect:    policy.EffectDeny,
					Actions:   []string{"internal:*"},
					Resources: []string{"*"},
				},
			}},
		},
		{
			Name:      RoleUser,
			Immutable: true,
			SyncMode:  SyncImport,
			Policy: policy.Policy{Statements: []policy.Statement{
				{
					Effect: policy.EffectAllow,
					Actions: []string{
						"workflow:*",
						"dataset:*",
						"app:*",
						registry.ActionConfigRead,
						registry.ActionPoolList,
						registry.ActionResourcesRead,
						"credentials:*",
						"profile:*",
					},
					Resources: []string{"*"},
				},
				{
					Effect:  policy.EffectAllow,
					Actions: []string{"auth:*", "system:*", "profile:*", "credentials:*"},
				},
			}},
		},
		{
			Name:      RoleTeamLead,
			Immutable: true,
			SyncMode:  SyncImport,
			Policy: policy.Policy{Statements: []policy.Statement{
				{
					Effect: policy.EffectAllow,
					Actions: []string{
						"workflow:*",
						"dataset:*",
						"app:*",
						"config:*",
						"pool:*",
						registry.ActionResourcesRead,
						registry.ActionUserList,
						"credentials:*",
						"profile:*",
					},
					Resources: []string{"*"},
				},
				{
					Effect:  policy.EffectAllow,
					Actions: []string{"auth:*", "system:*", "user:*", "config:*", "pool:*", "profile:*", "credentials:*"},
				},
			}},
		},
		{
			Name:      RoleAnonymous,
			Immutable: true,
			SyncMode:  SyncIgnore,
			Policy: policy.Policy{Statements: []policy.Statement{
				{
					Effect:  policy.EffectAllow,
					Actions: []string{registry.ActionAuthLogin, registry.ActionAuthRefresh, "system:*"},
				},
			}},
		},
	}
}

// IsBuiltin reports whether the name belongs to a built-in role.
func IsBuiltin(name string) bool {
	switch name {
	case RoleAdmin, RoleUser, RoleTeamLead, RoleAnonymous:
		return true
	}
	return false
}
