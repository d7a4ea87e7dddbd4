// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package policy

// Well-known paths. Exported as constants rather than built dynamically so
// callers outside this package (role templates, authz token assembly) can
// reference a node without a catalog lookup failing at runtime on a typo.
const (
	PathAPIIAMUsers       = "api:iam:users"
	PathAPIIAMUsersRead   = "api:iam:users:read"
	PathAPIIAMUsersUpdate = "api:iam:users:update"
	PathAPIIAMUsersDelete = "api:iam:users:delete"

	PathAPIAuth            = "api:auth"
	PathAPIAuthMe          = "api:auth:me"
	PathAPIAuthLogout      = "api:auth:logout"
	PathAPIAuthRefresh     = "api:auth:refresh"
	PathAPIAuthAPIKeys     = "api:auth:api_keys"
	PathAPIAuthAPIKeysRead  = "api:auth:api_keys:_read"
	PathAPIAuthAPIKeysWrite = "api:auth:api_keys:_write"

	PathPlatformManageTenants = "platform:manage_tenants"
	PathPlatformManageAdmins  = "platform:manage_admins"
	PathPlatformViewAudit     = "platform:view_audit"
	PathPlatformBootstrap     = "platform:bootstrap"
	PathControlPlaneLogin     = "control_plane:login"

	PathTenantManageUsers    = "tenant:manage_users"
	PathTenantManageClients  = "tenant:manage_clients"
	PathTenantManageSettings = "tenant:manage_settings"
	PathTenantViewUsers      = "tenant:view_users"
	PathTenantView           = "tenant:view"
	PathTenantViewAudit      = "tenant:view_audit"

	PathUserReadProfile    = "user:read_profile"
	PathUserWriteProfile   = "user:write_profile"
	PathUserChangePassword = "user:change_password"
	PathUserManageSessions = "user:manage_sessions"

	PathClientTokenIntrospect = "client:token_introspect"
	PathClientTokenRevoke     = "client:token_revoke"
)

// DefaultCatalogSpecs is the catalog shipped by this module. It combines the
// identity-provider surface (`api:...`, matching the literal example tree in
// the evaluator's own documentation) with the flat permission set the
// platform/tenant/user/client subsystems used before roles carried
// parameterized scope templates. Every old flat permission string above is
// now a path to an assignable leaf in this tree.
var DefaultCatalogSpecs = []NodeSpec{
	{
		Identifier: "api",
		Children: []NodeSpec{
			{
				Identifier: "iam",
				Children: []NodeSpec{
					{
						Identifier: "users",
						Parameters: []string{"userId"},
						Children: []NodeSpec{
							{Identifier: "read", AccessCategory: Read},
							{Identifier: "update", AccessCategory: Write},
							{Identifier: "delete", AccessCategory: Write},
						},
					},
				},
			},
			{
				Identifier: "auth",
				Parameters: []string{"userId"},
				Children: []NodeSpec{
					{Identifier: "me", AccessCategory: Read},
					{Identifier: "logout", AccessCategory: Write},
					{Identifier: "refresh", AccessCategory: Write},
					{
						Identifier: "api_keys",
						Children: []NodeSpec{
							{Identifier: segmentRead, AccessCategory: Read},
							{Identifier: segmentWrite, AccessCategory: Write},
						},
					},
				},
			},
		},
	},
	{
		Identifier: "platform",
		Children: []NodeSpec{
			{Identifier: "manage_tenants", AccessCategory: Write},
			{Identifier: "manage_admins", AccessCategory: Write},
			{Identifier: "view_audit", AccessCategory: Read},
			{Identifier: "bootstrap", AccessCategory: Write},
		},
	},
	{
		Identifier: "control_plane",
		Children: []NodeSpec{
			{Identifier: "login", AccessCategory: Write},
		},
	},
	{
		Identifier: "tenant",
		Parameters: []string{"tenantId"},
		Children: []NodeSpec{
			{Identifier: "manage_users", AccessCategory: Write},
			{Identifier: "manage_clients", AccessCategory: Write},
			{Identifier: "manage_settings", AccessCategory: Write},
			{Identifier: "view_users", AccessCategory: Read},
			{Identifier: "view", AccessCategory: Read},
			{Identifier: "view_audit", AccessCategory: Read},
		},
	},
	{
		Identifier: "user",
		Parameters: []string{"userId"},
		Children: []NodeSpec{
			{Identifier: "read_profile", AccessCategory: Read},
			{Identifier: "write_profile", AccessCategory: Write},
			{Identifier: "change_password", AccessCategory: Write},
			{Identifier: "manage_sessions", AccessCategory: Write},
		},
	},
	{
		Identifier: "client",
		Parameters: []string{"clientId"},
		Children: []NodeSpec{
			{Identifier: "token_introspect", AccessCategory: Read},
			{Identifier: "token_revoke", AccessCategory: Write},
		},
	},
}

// defaultCatalog is the process-wide immutable singleton described by the
// evaluator's concurrency model (§5): constructed once at init, read by any
// number of evaluators without coordination.
var defaultCatalog = NewCatalog(DefaultCatalogSpecs)

// DefaultCatalog returns the process-wide permission catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}
