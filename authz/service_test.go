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

package authz

import (
	"context"
	"fmt"
	"testing"

	"github.com/opentrusty/opentrusty-core/project"
	"github.com/opentrusty/opentrusty-core/rbac"
	"github.com/opentrusty/opentrusty-core/role"
)

type mockProjectRepo struct {
	project.ProjectRepository
}

func (m *mockProjectRepo) ListByUser(ctx context.Context, userID string) ([]*project.Project, error) {
	return []*project.Project{{ID: "p1", Name: "Project 1"}}, nil
}

type mockRoleRepo struct {
	role.RoleRepository
	byID   map[string]*role.Role
	byCode map[string]*role.Role
}

func newMockRoleRepo(roles ...*role.Role) *mockRoleRepo {
	m := &mockRoleRepo{byID: map[string]*role.Role{}, byCode: map[string]*role.Role{}}
	for _, r := range roles {
		m.byID[r.ID] = r
		m.byCode[r.Code] = r
	}
	return m
}

func (m *mockRoleRepo) GetByID(ctx context.Context, id string) (*role.Role, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

func (m *mockRoleRepo) GetByCodes(ctx context.Context, codes []string) ([]*role.Role, error) {
	var out []*role.Role
	for _, c := range codes {
		if r, ok := m.byCode[c]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockAssignmentRepo struct {
	role.AssignmentRepository
	assignments []*role.Assignment
}

func (m *mockAssignmentRepo) ListForUser(ctx context.Context, userID string) ([]*role.Assignment, error) {
	var res []*role.Assignment
	for _, a := range m.assignments {
		if a.UserID == userID {
			res = append(res, a)
		}
	}
	return res, nil
}

func newTestService(roleRepo role.RoleRepository, assignments role.AssignmentRepository) *Service {
	return NewService(rbac.New(nil), roleRepo, assignments, &mockProjectRepo{}, nil, nil)
}

func TestHasPermissionLegacyVersionGrantsUnconditionally(t *testing.T) {
	svc := newTestService(newMockRoleRepo(), &mockAssignmentRepo{})

	tests := []struct {
		name    string
		version string
	}{
		{"absent rbac_version", ""},
		{"explicit version 1", RBACVersionLegacy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := ClaimSet{Subject: "u1", RBACVersion: tt.version}
			ok, err := svc.HasPermission(context.Background(), claims, "tenant:manage_users;tenantId=T1")
			if err != nil {
				t.Fatalf("HasPermission: %v", err)
			}
			if !ok {
				t.Errorf("legacy token should be granted unconditionally")
			}
		})
	}
}

func TestHasPermissionLegacyVersionRejectsUnknownIdentifier(t *testing.T) {
	svc := newTestService(newMockRoleRepo(), &mockAssignmentRepo{})
	claims := ClaimSet{Subject: "u1", RBACVersion: RBACVersionLegacy}
	ok, err := svc.HasPermission(context.Background(), claims, "not:a:real:path")
	if err != nil {
		t.Fatalf("HasPermission: %v", err)
	}
	if ok {
		t.Errorf("an unknown identifier must be denied even for legacy tokens")
	}
}

func TestHasPermissionEvaluatesScopeClaim(t *testing.T) {
	svc := newTestService(newMockRoleRepo(), &mockAssignmentRepo{})
	claims := ClaimSet{
		Subject:     "u1",
		RBACVersion: RBACVersionCurrent,
		Scope:       "allow;tenant:view;tenantId=T1",
	}

	tests := []struct {
		id   string
		want bool
	}{
		{"tenant:view;tenantId=T1", true},
		{"tenant:view;tenantId=T2", false},
		{"tenant:manage_users;tenantId=T1", false},
	}
	for _, tt := range tests {
		ok, err := svc.HasPermission(context.Background(), claims, tt.id)
		if err != nil {
			t.Fatalf("HasPermission(%q): %v", tt.id, err)
		}
		if ok != tt.want {
			t.Errorf("HasPermission(%q) = %v, want %v", tt.id, ok, tt.want)
		}
	}
}

func TestHasPermissionExpandsRoleClaims(t *testing.T) {
	owner := &role.Role{ID: "r1", Code: role.RoleTenantOwner, Name: "Tenant Owner", ScopeTemplates: role.TenantOwnerTemplates}
	svc := newTestService(newMockRoleRepo(owner), &mockAssignmentRepo{})

	claims := ClaimSet{
		Subject:     "u1",
		RBACVersion: RBACVersionCurrent,
		Roles:       []string{role.RoleTenantOwner + ";tenantId=T1;userId=u1"},
	}

	ok, err := svc.HasPermission(context.Background(), claims, "tenant:manage_settings;tenantId=T1")
	if err != nil {
		t.Fatalf("HasPermission: %v", err)
	}
	if !ok {
		t.Errorf("tenant owner role claim should grant tenant:manage_settings for its own tenant")
	}

	ok, err = svc.HasPermission(context.Background(), claims, "tenant:manage_settings;tenantId=T2")
	if err != nil {
		t.Fatalf("HasPermission: %v", err)
	}
	if ok {
		t.Errorf("role-granted directive must not leak to a different tenantId")
	}
}

func TestHasPermissionUnderProvisionedRoleClaimNarrows(t *testing.T) {
	owner := &role.Role{ID: "r1", Code: role.RoleTenantOwner, Name: "Tenant Owner", ScopeTemplates: role.TenantOwnerTemplates}
	svc := newTestService(newMockRoleRepo(owner), &mockAssignmentRepo{})

	// userId is missing, so every template needing it should be skipped
	// rather than the whole claim failing.
	claims := ClaimSet{
		Subject:     "u1",
		RBACVersion: RBACVersionCurrent,
		Roles:       []string{role.RoleTenantOwner + ";tenantId=T1"},
	}

	ok, err := svc.HasPermission(context.Background(), claims, "tenant:view;tenantId=T1")
	if err != nil || !ok {
		t.Errorf("tenant-scoped grant should still apply: ok=%v err=%v", ok, err)
	}

	ok, err = svc.HasPermission(context.Background(), claims, "user:read_profile;userId=u1")
	if err != nil {
		t.Fatalf("HasPermission: %v", err)
	}
	if ok {
		t.Errorf("user-scoped grant needing the missing userId must not be expanded")
	}
}

func TestHasPermissionUnknownRoleCodeDropped(t *testing.T) {
	svc := newTestService(newMockRoleRepo(), &mockAssignmentRepo{})
	claims := ClaimSet{
		Subject:     "u1",
		RBACVersion: RBACVersionCurrent,
		Roles:       []string{"nonexistent_role;tenantId=T1"},
	}
	ok, err := svc.HasPermission(context.Background(), claims, "tenant:view;tenantId=T1")
	if err != nil {
		t.Fatalf("HasPermission: %v", err)
	}
	if ok {
		t.Errorf("a role claim referencing an unknown code must not grant anything")
	}
}

func TestHasPermissionMalformedDirectivesAreDropped(t *testing.T) {
	svc := newTestService(newMockRoleRepo(), &mockAssignmentRepo{})
	claims := ClaimSet{
		Subject:     "u1",
		RBACVersion: RBACVersionCurrent,
		Scope:       "garbage allow;tenant:view;tenantId=T1",
	}
	ok, err := svc.HasPermission(context.Background(), claims, "tenant:view;tenantId=T1")
	if err != nil {
		t.Fatalf("HasPermission: %v", err)
	}
	if !ok {
		t.Errorf("a malformed token alongside a valid one should not block the valid directive")
	}
}

func TestHasAny(t *testing.T) {
	svc := newTestService(newMockRoleRepo(), &mockAssignmentRepo{})
	claims := ClaimSet{
		Subject:     "u1",
		RBACVersion: RBACVersionCurrent,
		Scope:       "allow;tenant:view;tenantId=T1",
	}

	ok, err := svc.HasAny(context.Background(), claims, []string{"tenant:manage_users;tenantId=T1", "tenant:view;tenantId=T1"})
	if err != nil || !ok {
		t.Errorf("HasAny should be true when at least one identifier is granted: ok=%v err=%v", ok, err)
	}

	ok, err = svc.HasAny(context.Background(), claims, []string{"tenant:manage_users;tenantId=T1"})
	if err != nil || ok {
		t.Errorf("HasAny should be false when none are granted: ok=%v err=%v", ok, err)
	}

	ok, err = svc.HasAny(context.Background(), claims, nil)
	if err != nil || ok {
		t.Errorf("HasAny on an empty set should be false: ok=%v err=%v", ok, err)
	}
}

func TestHasAll(t *testing.T) {
	svc := newTestService(newMockRoleRepo(), &mockAssignmentRepo{})
	claims := ClaimSet{
		Subject:     "u1",
		RBACVersion: RBACVersionCurrent,
		Scope:       "allow;tenant:view;tenantId=T1 allow;tenant:view_users;tenantId=T1",
	}

	ok, err := svc.HasAll(context.Background(), claims, []string{"tenant:view;tenantId=T1", "tenant:view_users;tenantId=T1"})
	if err != nil || !ok {
		t.Errorf("HasAll should be true when all are granted: ok=%v err=%v", ok, err)
	}

	ok, err = svc.HasAll(context.Background(), claims, []string{"tenant:view;tenantId=T1", "tenant:manage_users;tenantId=T1"})
	if err != nil || ok {
		t.Errorf("HasAll should be false when any is missing: ok=%v err=%v", ok, err)
	}

	ok, err = svc.HasAll(context.Background(), claims, nil)
	if err != nil || ok {
		t.Errorf("HasAll on an empty set should be false: ok=%v err=%v", ok, err)
	}
}

func TestDenyWinsOverRoleGrant(t *testing.T) {
	owner := &role.Role{ID: "r1", Code: role.RoleTenantOwner, Name: "Tenant Owner", ScopeTemplates: role.TenantOwnerTemplates}
	svc := newTestService(newMockRoleRepo(owner), &mockAssignmentRepo{})

	claims := ClaimSet{
		Subject:     "u1",
		RBACVersion: RBACVersionCurrent,
		Roles:       []string{role.RoleTenantOwner + ";tenantId=T1;userId=u1"},
		Scope:       "deny;tenant:manage_settings;tenantId=T1",
	}

	ok, err := svc.HasPermission(context.Background(), claims, "tenant:manage_settings;tenantId=T1")
	if err != nil {
		t.Fatalf("HasPermission: %v", err)
	}
	if ok {
		t.Errorf("an explicit deny in the scope claim must override a role-granted allow")
	}
}

func TestValidateIdentifiersAndResolve(t *testing.T) {
	svc := newTestService(newMockRoleRepo(), &mockAssignmentRepo{})

	if !svc.ValidateIdentifiers([]string{"tenant:view;tenantId=T1", "user:read_profile;userId=u1"}) {
		t.Errorf("ValidateIdentifiers should accept assignable identifiers")
	}
	if svc.ValidateIdentifiers([]string{"not:a:real:path"}) {
		t.Errorf("ValidateIdentifiers should reject an unknown path")
	}
	if svc.ValidateIdentifiers([]string{"tenant"}) {
		t.Errorf("ValidateIdentifiers should reject a container path")
	}

	nodes := svc.Resolve([]string{"tenant:view;tenantId=T1", "garbage", "not:a:real:path"})
	if len(nodes) != 1 {
		t.Fatalf("Resolve() = %d nodes, want 1", len(nodes))
	}
	if nodes[0].Path != "tenant:view" {
		t.Errorf("Resolve()[0].Path = %q, want tenant:view", nodes[0].Path)
	}
}

func TestGetUserRoleAssignments(t *testing.T) {
	owner := &role.Role{ID: "r1", Code: role.RoleTenantOwner, Name: "Tenant Owner"}
	roleRepo := newMockRoleRepo(owner)
	assignmentRepo := &mockAssignmentRepo{assignments: []*role.Assignment{
		{UserID: "u1", RoleID: "r1", Scope: role.ScopeTenant, ScopeContextID: stringPtr("T1")},
		{UserID: "u1", RoleID: "missing", Scope: role.ScopeTenant, ScopeContextID: stringPtr("T2")},
	}}
	svc := newTestService(roleRepo, assignmentRepo)

	got, err := svc.GetUserRoleAssignments(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUserRoleAssignments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetUserRoleAssignments() = %d entries, want 2", len(got))
	}
	if got[0].RoleName != "Tenant Owner" {
		t.Errorf("RoleName = %q, want Tenant Owner", got[0].RoleName)
	}
	if got[1].RoleName != "unknown" {
		t.Errorf("RoleName for a missing role should fall back to %q, got %q", "unknown", got[1].RoleName)
	}
}

func TestGuardReservedClaim(t *testing.T) {
	for _, claimType := range []string{"sub", "name", "jti", "iat", "scope", "role", "rbac_version", "SCOPE"} {
		if err := GuardReservedClaim(claimType); err == nil {
			t.Errorf("GuardReservedClaim(%q) = nil, want error", claimType)
		}
	}
	if err := GuardReservedClaim("email"); err != nil {
		t.Errorf("GuardReservedClaim(email) = %v, want nil", err)
	}
}

func stringPtr(s string) *string {
	return &s
}
