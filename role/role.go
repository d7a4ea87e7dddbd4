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

// Package role implements the Role & Scope Template model: a role is a
// named bundle of scope-directive templates with placeholders, bound to
// concrete parameter values at assignment time to produce the scope
// directives an evaluation actually sees. See package rbac for what happens
// with the result.
package role

import (
	"context"
	"errors"
	"time"
)

// ErrSystemRoleImmutable is returned by admin operations that would rename,
// retemplate, or delete a system role (§3.4: "Static (system) roles are
// immutable and cannot be renamed, retemplated, or deleted").
var ErrSystemRoleImmutable = errors.New("role: system role is immutable")

// ErrRoleNotFound is returned by a RoleRepository lookup that found no
// matching row.
var ErrRoleNotFound = errors.New("role: not found")

// EnsureMutable returns ErrSystemRoleImmutable if r is a system role. Admin
// surfaces (update/delete) must call this before writing.
func EnsureMutable(r *Role) error {
	if r != nil && r.IsSystem {
		return ErrSystemRoleImmutable
	}
	return nil
}

// -----------------------------------------------------------------------------
// Role Name Constants
// These are the canonical codes for roles stored in the database. Lookup by
// code is case-insensitive (see ParseRoleClaim / RoleRepository.GetByCodes).
// -----------------------------------------------------------------------------

const (
	RolePlatformAdmin = "platform_admin"
	RoleTenantOwner   = "tenant_owner"
	RoleTenantAdmin   = "tenant_admin"
	RoleTenantMember  = "tenant_member"
)

// RoleID constants (seeded UUIDs from the initial migration).
const (
	RoleIDPlatformAdmin = "00000000-0000-0000-0000-000000000001"
	RoleIDTenantOwner   = "00000000-0000-0000-0000-000000000002"
	RoleIDTenantAdmin   = "00000000-0000-0000-0000-000000000003"
	RoleIDMember        = "00000000-0000-0000-0000-000000000004"
)

// ActorType identifies the kind of actor a token/assignment belongs to.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorClient ActorType = "client"
	ActorSystem ActorType = "system"
)

// Scope defines the level at which a role is assigned.
type Scope string

const (
	ScopePlatform Scope = "platform"
	ScopeTenant   Scope = "tenant"
	ScopeClient   Scope = "client"
)

// Binding is one `key=value` entry of a ScopeTemplate. A literal binding
// always emits Literal; a placeholder binding looks Placeholder up in the
// values passed to Expand.
type Binding struct {
	Key           string `json:"key"`
	Literal       string `json:"literal,omitempty"`
	Placeholder   string `json:"placeholder,omitempty"`
	IsPlaceholder bool   `json:"is_placeholder,omitempty"`
}

func literal(key, value string) Binding {
	return Binding{Key: key, Literal: value}
}

func placeholder(key string) Binding {
	return Binding{Key: key, Placeholder: key, IsPlaceholder: true}
}

// ScopeTemplate is an unbound scope directive: an action and path plus a
// list of parameter bindings, some of which are placeholders to be filled
// in from an assignment's parameter values.
type ScopeTemplate struct {
	Action   Action    `json:"action"`
	Path     string    `json:"path"`
	Bindings []Binding `json:"bindings,omitempty"`
}

// Action mirrors policy.Action without importing policy into the template
// literals below, keeping this file readable as a flat table; Expand
// converts it when building the directive.
type Action int

const (
	Allow Action = iota
	Deny
)

func (a Action) String() string {
	if a == Deny {
		return "deny"
	}
	return "allow"
}

func allowTemplate(path string, bindings ...Binding) ScopeTemplate {
	return ScopeTemplate{Action: Allow, Path: path, Bindings: bindings}
}

// Role is a named, scoped bundle of scope templates. Code is the
// case-insensitive identifier carried inline in a `role` claim (§3.6); Name
// is the human-readable label shown in an admin UI.
type Role struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Scope          Scope           `json:"scope"`
	Description    string          `json:"description"`
	IsSystem       bool            `json:"is_system"`
	ScopeTemplates []ScopeTemplate `json:"scope_templates"`
}

// RequiredParameters returns the union of every placeholder name across the
// role's scope templates, deduplicated. This is the role's declared
// "parameters" set (§3.4) — it is derived rather than stored, since it must
// always agree with the templates that actually use it.
func (r *Role) RequiredParameters() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tmpl := range r.ScopeTemplates {
		for _, b := range tmpl.Bindings {
			if !b.IsPlaceholder {
				continue
			}
			if _, ok := seen[b.Placeholder]; ok {
				continue
			}
			seen[b.Placeholder] = struct{}{}
			out = append(out, b.Placeholder)
		}
	}
	return out
}

// Assignment represents a role granted to a user at a specific scope, with
// the concrete parameter values that fill in its role's scope templates.
type Assignment struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	RoleID          string            `json:"role_id"`
	Scope           Scope             `json:"scope"`
	ScopeContextID  *string           `json:"scope_context_id,omitempty"`
	ParameterValues map[string]string `json:"parameter_values,omitempty"`
	GrantedAt       time.Time         `json:"granted_at"`
	GrantedBy       string            `json:"granted_by"`
}

// RoleRepository is the repository contract consumed by the evaluator's
// callers (spec §6.3): role definitions are looked up by code at claim
// evaluation time and by ID on the admin surface.
type RoleRepository interface {
	GetByID(ctx context.Context, id string) (*Role, error)
	GetByCode(ctx context.Context, code string, scope Scope) (*Role, error)
	GetByCodes(ctx context.Context, codes []string) ([]*Role, error)
	List(ctx context.Context, scope *Scope) ([]*Role, error)
	Create(ctx context.Context, role *Role) error
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id string) error
}

// AssignmentRepository defines the interface for RBAC assignments.
type AssignmentRepository interface {
	ListForUser(ctx context.Context, userID string) ([]*Assignment, error)
	Grant(ctx context.Context, assignment *Assignment) error
	Revoke(ctx context.Context, userID, roleID string, scope Scope, scopeContextID *string) error
	ListByRole(ctx context.Context, roleID string, scope Scope, scopeContextID *string) ([]string, error)
	CheckExists(ctx context.Context, roleID string, scope Scope, scopeContextID *string) (bool, error)
	DeleteByContextID(ctx context.Context, scope Scope, contextID string) error
}

// -----------------------------------------------------------------------------
// Default role definitions
// -----------------------------------------------------------------------------

// PlatformAdminTemplates grants both global wildcards: a platform admin can
// read and write anything.
var PlatformAdminTemplates = []ScopeTemplate{
	allowTemplate("_read"),
	allowTemplate("_write"),
}

// TenantOwnerTemplates grants full tenant management plus self-service
// profile access for the assignee.
var TenantOwnerTemplates = []ScopeTemplate{
	allowTemplate("tenant:manage_users", placeholder("tenantId")),
	allowTemplate("tenant:manage_clients", placeholder("tenantId")),
	allowTemplate("tenant:manage_settings", placeholder("tenantId")),
	allowTemplate("tenant:view_users", placeholder("tenantId")),
	allowTemplate("tenant:view", placeholder("tenantId")),
	allowTemplate("tenant:view_audit", placeholder("tenantId")),
	allowTemplate("user:read_profile", placeholder("userId")),
	allowTemplate("user:write_profile", placeholder("userId")),
	allowTemplate("user:change_password", placeholder("userId")),
	allowTemplate("user:manage_sessions", placeholder("userId")),
}

// TenantAdminTemplates is TenantOwnerTemplates without manage_settings.
var TenantAdminTemplates = []ScopeTemplate{
	allowTemplate("tenant:manage_users", placeholder("tenantId")),
	allowTemplate("tenant:manage_clients", placeholder("tenantId")),
	allowTemplate("tenant:view_users", placeholder("tenantId")),
	allowTemplate("tenant:view", placeholder("tenantId")),
	allowTemplate("tenant:view_audit", placeholder("tenantId")),
	allowTemplate("user:read_profile", placeholder("userId")),
	allowTemplate("user:write_profile", placeholder("userId")),
	allowTemplate("user:change_password", placeholder("userId")),
	allowTemplate("user:manage_sessions", placeholder("userId")),
}

// TenantMemberTemplates is read-only tenant visibility plus self-service
// profile access, no session management.
var TenantMemberTemplates = []ScopeTemplate{
	allowTemplate("tenant:view", placeholder("tenantId")),
	allowTemplate("user:read_profile", placeholder("userId")),
	allowTemplate("user:write_profile", placeholder("userId")),
	allowTemplate("user:change_password", placeholder("userId")),
}

// Defaults is the set of roles seeded into a fresh deployment.
var Defaults = []*Role{
	{
		ID:             RoleIDPlatformAdmin,
		Code:           RolePlatformAdmin,
		Name:           "Platform Administrator",
		Scope:          ScopePlatform,
		Description:    "Full platform access, read and write.",
		IsSystem:       true,
		ScopeTemplates: PlatformAdminTemplates,
	},
	{
		ID:             RoleIDTenantOwner,
		Code:           RoleTenantOwner,
		Name:           "Tenant Owner",
		Scope:          ScopeTenant,
		Description:    "Full control of a tenant plus self-service profile access.",
		IsSystem:       true,
		ScopeTemplates: TenantOwnerTemplates,
	},
	{
		ID:             RoleIDTenantAdmin,
		Code:           RoleTenantAdmin,
		Name:           "Tenant Administrator",
		Scope:          ScopeTenant,
		Description:    "Tenant administration short of settings changes.",
		IsSystem:       true,
		ScopeTemplates: TenantAdminTemplates,
	},
	{
		ID:             RoleIDMember,
		Code:           RoleTenantMember,
		Name:           "Tenant Member",
		Scope:          ScopeTenant,
		Description:    "Basic tenant membership with self-service profile access.",
		IsSystem:       true,
		ScopeTemplates: TenantMemberTemplates,
	},
}

// SeedRoles returns a fresh copy of Defaults for a repository's initial
// migration/seed step.
func SeedRoles() []*Role {
	out := make([]*Role, len(Defaults))
	copy(out, Defaults)
	return out
}
