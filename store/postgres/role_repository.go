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

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/opentrusty/opentrusty-core/role"
)

// RoleRepository implements role.RoleRepository. A role's scope templates
// are stored as a single JSONB column rather than a join table — the
// template list is read as a whole on every lookup and never queried by
// its individual bindings, so normalizing it would only add joins no
// caller needs.
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository.
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func scanRole(scan func(dest ...any) error) (*role.Role, error) {
	var ro role.Role
	var scopeStr string
	var templatesJSON []byte

	if err := scan(&ro.ID, &ro.Code, &ro.Name, &scopeStr, &ro.Description, &ro.IsSystem, &templatesJSON); err != nil {
		return nil, err
	}
	ro.Scope = role.Scope(scopeStr)
	if len(templatesJSON) > 0 {
		if err := json.Unmarshal(templatesJSON, &ro.ScopeTemplates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scope_templates: %w", err)
		}
	}
	return &ro, nil
}

// Create creates a new role.
func (r *RoleRepository) Create(ctx context.Context, ro *role.Role) error {
	templatesJSON, err := json.Marshal(ro.ScopeTemplates)
	if err != nil {
		return fmt.Errorf("failed to marshal scope_templates: %w", err)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO rbac_roles (
			id, code, name, scope, description, is_system, scope_templates, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`, ro.ID, ro.Code, ro.Name, string(ro.Scope), ro.Description, ro.IsSystem, templatesJSON)
	if err != nil {
		return fmt.Errorf("failed to insert role: %w", err)
	}
	return nil
}

// GetByID retrieves a role by ID.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*role.Role, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT id, code, name, scope, COALESCE(description, ''), is_system, scope_templates
		FROM rbac_roles
		WHERE id = $1
	`, id)

	ro, err := scanRole(row.Scan)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, role.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return ro, nil
}

// GetByCode retrieves a role by its case-insensitive code and scope.
func (r *RoleRepository) GetByCode(ctx context.Context, code string, scope role.Scope) (*role.Role, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT id, code, name, scope, COALESCE(description, ''), is_system, scope_templates
		FROM rbac_roles
		WHERE lower(code) = lower($1) AND scope = $2
	`, code, string(scope))

	ro, err := scanRole(row.Scan)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, role.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return ro, nil
}

// GetByCodes retrieves every role matching any of codes, case-insensitively.
// Unmatched codes are silently omitted from the result — the evaluator's
// claim-extraction pipeline treats an unresolvable role claim as "grants
// nothing", not an error.
func (r *RoleRepository) GetByCodes(ctx context.Context, codes []string) ([]*role.Role, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(codes))
	for i, c := range codes {
		lowered[i] = strings.ToLower(c)
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT id, code, name, scope, COALESCE(description, ''), is_system, scope_templates
		FROM rbac_roles
		WHERE lower(code) = ANY($1)
	`, lowered)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var roles []*role.Role
	for rows.Next() {
		ro, err := scanRole(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, ro)
	}
	return roles, rows.Err()
}

// List retrieves all roles, optionally filtered by scope.
func (r *RoleRepository) List(ctx context.Context, scope *role.Scope) ([]*role.Role, error) {
	query := `
		SELECT id, code, name, scope, COALESCE(description, ''), is_system, scope_templates
		FROM rbac_roles
	`
	var args []any
	if scope != nil {
		query += " WHERE scope = $1"
		args = append(args, string(*scope))
	}
	query += " ORDER BY name ASC"

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*role.Role
	for rows.Next() {
		ro, err := scanRole(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, ro)
	}
	return roles, rows.Err()
}

// Update updates a role's name, description, and scope templates. System
// roles are immutable (§3.4); callers must check role.EnsureMutable before
// calling this, but Update re-derives the guard from the stored row so a
// stale in-memory Role can't bypass it.
func (r *RoleRepository) Update(ctx context.Context, ro *role.Role) error {
	existing, err := r.GetByID(ctx, ro.ID)
	if err != nil {
		return err
	}
	if err := role.EnsureMutable(existing); err != nil {
		return err
	}

	templatesJSON, err := json.Marshal(ro.ScopeTemplates)
	if err != nil {
		return fmt.Errorf("failed to marshal scope_templates: %w", err)
	}

	result, err := r.db.pool.Exec(ctx, `
		UPDATE rbac_roles SET name = $2, description = $3, scope_templates = $4, updated_at = NOW()
		WHERE id = $1
	`, ro.ID, ro.Name, ro.Description, templatesJSON)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return role.ErrRoleNotFound
	}
	return nil
}

// Delete deletes a role. System roles are immutable and cannot be deleted.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := role.EnsureMutable(existing); err != nil {
		return err
	}

	result, err := r.db.pool.Exec(ctx, `DELETE FROM rbac_roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return role.ErrRoleNotFound
	}
	return nil
}
