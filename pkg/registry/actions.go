package registry

// Resource type string values (untyped for use in const concatenation)
const (
	resourceTypeSystem      = "system"
	resourceTypeAuth        = "auth"
	resourceTypeUser        = "user"
	resourceTypePool        = "pool"
	resourceTypeCredentials = "credentials"
	resourceTypeApp         = "app"
	resourceTypeResources   = "resources"
	resourceTypeDataset     = "dataset"
	resourceTypeConfig      = "config"
	resourceTypeProfile     = "profile"
	resourceTypeWorkflow    = "workflow"
	resourceTypeInternal    = "internal"
	resourceTypeRBAC        = "rbac"
)

// Action constants for compile-time safety. An action is the semantic
// permission an endpoint requires, independent of its URL shape.
const (
	// Workflow actions
	ActionWorkflowCreate      = resourceTypeWorkflow + ":Create"
	ActionWorkflowList        = resourceTypeWorkflow + ":List"
	ActionWorkflowRead        = resourceTypeWorkflow + ":Read"
	ActionWorkflowUpdate      = resourceTypeWorkflow + ":Update"
	ActionWorkflowDelete      = resourceTypeWorkflow + ":Delete"
	ActionWorkflowCancel      = resourceTypeWorkflow + ":Cancel"
	ActionWorkflowExec        = resourceTypeWorkflow + ":Exec"
	ActionWorkflowPortForward = resourceTypeWorkflow + ":PortForward"

	// Dataset actions
	ActionDatasetList   = resourceTypeDataset + ":List"
	ActionDatasetRead   = resourceTypeDataset + ":Read"
	ActionDatasetWrite  = resourceTypeDataset + ":Write"
	ActionDatasetDelete = resourceTypeDataset + ":Delete"

	// Credentials actions
	ActionCredentialsCreate = resourceTypeCredentials + ":Create"
	ActionCredentialsRead   = resourceTypeCredentials + ":Read"
	ActionCredentialsUpdate = resourceTypeCredentials + ":Update"
	ActionCredentialsDelete = resourceTypeCredentials + ":Delete"

	// Pool actions
	ActionPoolList = resourceTypePool + ":List"

	// Profile actions
	ActionProfileRead   = resourceTypeProfile + ":Read"
	ActionProfileUpdate = resourceTypeProfile + ":Update"

	// User actions
	ActionUserList = resourceTypeUser + ":List"

	// App actions
	ActionAppCreate = resourceTypeApp + ":Create"
	ActionAppRead   = resourceTypeApp + ":Read"
	ActionAppUpdate = resourceTypeApp + ":Update"
	ActionAppDelete = resourceTypeApp + ":Delete"

	// Resources actions
	ActionResourcesRead = resourceTypeResources + ":Read"

	// Config actions
	ActionConfigRead   = resourceTypeConfig + ":Read"
	ActionConfigUpdate = resourceTypeConfig + ":Update"

	// Auth actions
	ActionAuthLogin   = resourceTypeAuth + ":Login"
	ActionAuthRefresh = resourceTypeAuth + ":Refresh"
	ActionAuthToken   = resourceTypeAuth + ":Token"

	// System actions (public)
	ActionSystemHealth  = resourceTypeSystem + ":Health"
	ActionSystemVersion = resourceTypeSystem + ":Version"

	// Internal actions (restricted to backend components)
	ActionInternalOperator = resourceTypeInternal + ":Operator"
	ActionInternalLogger   = resourceTypeInternal + ":Logger"
	ActionInternalRouter   = resourceTypeInternal + ":Router"

	// RBAC management actions (role, policy and assignment administration)
	ActionRBACRead  = resourceTypeRBAC + ":Read"
	ActionRBACWrite = resourceTypeRBAC + ":Write"
)

// DefaultTable returns the authoritative mapping of actions to API endpoint
// patterns. The same path may appear under several actions with different
// methods, and patterns may overlap; Resolve returns the union.
func DefaultTable() Table {
	return Table{
		ActionWorkflowCreate: {
			{Path: "/api/pool/*/workflow", Methods: []string{"POST"}},
		},
		ActionWorkflowList: {
			{Path: "/api/workflow", Methods: []string{"GET"}},
			{Path: "/api/task", Methods: []string{"GET"}},
			{Path: "/api/tag", Methods: []string{"GET"}},
		},
		ActionWorkflowRead: {
			{Path: "/api/workflow/*", Methods: []string{"GET"}},
		},
		ActionWorkflowUpdate: {
			{Path: "/api/workflow/*", Methods: []string{"PUT", "PATCH"}},
		},
		ActionWorkflowDelete: {
			{Path: "/api/workflow/*", Methods: []string{"DELETE"}},
		},
		ActionWorkflowCancel: {
			{Path: "/api/workflow/*/cancel", Methods: []string{"POST"}},
		},
		ActionWorkflowExec: {
			{Path: "/api/workflow/*/exec", Methods: []string{"POST", "WEBSOCKET"}},
			{Path: "/api/router/exec/*/client/*", Methods: []string{"*"}},
		},
		ActionWorkflowPortForward: {
			{Path: "/api/workflow/*/portforward/*", Methods: []string{"*"}},
			{Path: "/api/router/portforward/*/client/*", Methods: []string{"*"}},
			{Path: "/api/router/webserver/*", Methods: []string{"GET"}},
		},

		ActionPoolList: {
			{Path: "/api/pool", Methods: []string{"GET"}},
			{Path: "/api/pool_quota", Methods: []string{"GET"}},
		},

		ActionDatasetList: {
			{Path: "/api/bucket", Methods: []string{"GET"}},
		},
		ActionDatasetRead: {
			{Path: "/api/bucket/*", Methods: []string{"GET"}},
		},
		ActionDatasetWrite: {
			{Path: "/api/bucket/*", Methods: []string{"POST", "PUT"}},
		},
		ActionDatasetDelete: {
			{Path: "/api/bucket/*", Methods: []string{"DELETE"}},
		},

		ActionCredentialsCreate: {
			{Path: "/api/credentials", Methods: []string{"POST"}},
		},
		ActionCredentialsRead: {
			{Path: "/api/credentials", Methods: []string{"GET"}},
			{Path: "/api/credentials/*", Methods: []string{"GET"}},
		},
		ActionCredentialsUpdate: {
			{Path: "/api/credentials/*", Methods: []string{"PUT", "PATCH"}},
		},
		ActionCredentialsDelete: {
			{Path: "/api/credentials/*", Methods: []string{"DELETE"}},
		},

		ActionProfileRead: {
			{Path: "/api/profile/settings", Methods: []string{"GET"}},
		},
		ActionProfileUpdate: {
			{Path: "/api/profile/settings", Methods: []string{"POST"}},
		},

		ActionUserList: {
			{Path: "/api/users", Methods: []string{"GET"}},
		},

		ActionAppCreate: {
			{Path: "/api/app", Methods: []string{"POST"}},
		},
		ActionAppRead: {
			{Path: "/api/app", Methods: []string{"GET"}},
			{Path: "/api/app/*", Methods: []string{"GET"}},
		},
		ActionAppUpdate: {
			{Path: "/api/app/*", Methods: []string{"PUT", "PATCH"}},
		},
		ActionAppDelete: {
			{Path: "/api/app/*", Methods: []string{"DELETE"}},
		},

		ActionResourcesRead: {
			{Path: "/api/resources", Methods: []string{"GET"}},
			{Path: "/api/resources/*", Methods: []string{"GET"}},
		},

		ActionConfigRead: {
			{Path: "/api/configs", Methods: []string{"GET"}},
			{Path: "/api/configs/*", Methods: []string{"GET"}},
		},
		ActionConfigUpdate: {
			{Path: "/api/configs/*", Methods: []string{"PUT", "PATCH"}},
		},

		ActionAuthLogin: {
			{Path: "/api/auth/login", Methods: []string{"GET"}},
			{Path: "/api/auth/keys", Methods: []string{"GET"}},
		},
		ActionAuthRefresh: {
			{Path: "/api/auth/jwt/refresh_token", Methods: []string{"*"}},
			{Path: "/api/auth/jwt/access_token", Methods: []string{"*"}},
		},
		ActionAuthToken: {
			{Path: "/api/auth/access_token", Methods: []string{"*"}},
			{Path: "/api/auth/access_token/*", Methods: []string{"*"}},
			{Path: "/api/auth/user/*/access_token", Methods: []string{"*"}},
			{Path: "/api/auth/user/*/access_token/*", Methods: []string{"*"}},
			{Path: "/v1/tokens", Methods: []string{"*"}},
			{Path: "/v1/tokens/*", Methods: []string{"*"}},
		},

		ActionRBACRead: {
			{Path: "/v1/roles", Methods: []string{"GET"}},
			{Path: "/v1/roles/*", Methods: []string{"GET"}},
			{Path: "/v1/principals/*/roles", Methods: []string{"GET"}},
		},
		ActionRBACWrite: {
			{Path: "/v1/roles", Methods: []string{"POST"}},
			{Path: "/v1/roles/*", Methods: []string{"DELETE"}},
			{Path: "/v1/roles/*/policy", Methods: []string{"PUT"}},
			{Path: "/v1/principals/*/roles/*", Methods: []string{"PUT", "DELETE"}},
		},

		ActionSystemHealth: {
			{Path: "/health", Methods: []string{"*"}},
		},
		ActionSystemVersion: {
			{Path: "/api/version", Methods: []string{"*"}},
			{Path: "/client/version", Methods: []string{"*"}},
		},

		ActionInternalOperator: {
			{Path: "/api/agent/listener/*", Methods: []string{"*"}},
			{Path: "/api/agent/worker/*", Methods: []string{"*"}},
		},
		ActionInternalLogger: {
			{Path: "/api/logger/workflow/*/ctrl/*", Methods: []string{"*"}},
		},
		ActionInternalRouter: {
			{Path: "/api/router/*/*/backend/*", Methods: []string{"*"}},
		},
	}
}
