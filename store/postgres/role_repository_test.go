// Copyright 2026 The OpenTrusty Authors
// SPDX-License-Identifier: MIT

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/opentrusty/opentrusty-core/role"
)

func TestRoleRepository(t *testing.T) {
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewRoleRepository(db)

	r := &role.Role{
		ID:          "00000000-0000-0000-0000-000000000201",
		Code:        "platform_editor",
		Name:        "Platform Editor",
		Scope:       role.ScopePlatform,
		Description: "Can manage tenants",
		ScopeTemplates: []role.ScopeTemplate{
			{Action: role.Allow, Path: "platform:manage_tenants"},
		},
	}

	t.Run("Create and Get", func(t *testing.T) {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("failed to create role: %v", err)
		}

		got, err := repo.GetByID(ctx, r.ID)
		if err != nil {
			t.Fatalf("failed to get role: %v", err)
		}
		if got.Name != r.Name {
			t.Errorf("expected name %s, got %s", r.Name, got.Name)
		}
		if len(got.ScopeTemplates) != 1 || got.ScopeTemplates[0].Path != "platform:manage_tenants" {
			t.Errorf("expected one scope template for platform:manage_tenants, got %v", got.ScopeTemplates)
		}
	})

	t.Run("GetByCode", func(t *testing.T) {
		got, err := repo.GetByCode(ctx, "PLATFORM_EDITOR", r.Scope)
		if err != nil {
			t.Fatalf("failed to get role by code: %v", err)
		}
		if got.ID != r.ID {
			t.Errorf("expected ID %s, got %s", r.ID, got.ID)
		}
	})

	t.Run("GetByCodes", func(t *testing.T) {
		got, err := repo.GetByCodes(ctx, []string{"platform_editor", "nonexistent"})
		if err != nil {
			t.Fatalf("failed to get roles by codes: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 matching role, got %d", len(got))
		}
	})

	t.Run("List", func(t *testing.T) {
		roles, err := repo.List(ctx, nil)
		if err != nil {
			t.Fatalf("failed to list roles: %v", err)
		}
		if len(roles) == 0 {
			t.Errorf("expected at least one role")
		}
	})

	t.Run("Update", func(t *testing.T) {
		r.Description = "Updated description"
		if err := repo.Update(ctx, r); err != nil {
			t.Fatalf("failed to update role: %v", err)
		}

		got, err := repo.GetByID(ctx, r.ID)
		if err != nil {
			t.Fatalf("failed to get role: %v", err)
		}
		if got.Description != "Updated description" {
			t.Errorf("expected updated description, got %s", got.Description)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, r.ID); err != nil {
			t.Fatalf("failed to delete role: %v", err)
		}

		_, err := repo.GetByID(ctx, r.ID)
		if !errors.Is(err, role.ErrRoleNotFound) {
			t.Errorf("expected ErrRoleNotFound after delete, got %v", err)
		}
	})

	t.Run("system roles are immutable", func(t *testing.T) {
		admin := role.Defaults[0]
		err := repo.Update(ctx, &role.Role{ID: admin.ID, Name: "renamed"})
		if !errors.Is(err, role.ErrSystemRoleImmutable) {
			t.Errorf("Update(system role) = %v, want ErrSystemRoleImmutable", err)
		}
		if err := repo.Delete(ctx, admin.ID); !errors.Is(err, role.ErrSystemRoleImmutable) {
			t.Errorf("Delete(system role) = %v, want ErrSystemRoleImmutable", err)
		}
	})
}
