// Copyright 2026 The OpenTrusty Authors
// SPDX-License-Identifier: MIT

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/opentrusty/opentrusty-core/role"
)

// SetupTestDB creates a connection to the test database and runs migrations.
func SetupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("TEST_DB_PORT")
	if port == "" {
		port = "5434" // Default port in docker-compose.test.yml
	}

	cfg := Config{
		Host:         host,
		Port:         port,
		User:         "opentrusty",
		Password:     "opentrusty_test_password",
		Database:     "opentrusty_test",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 10,
	}

	ctx := context.Background()
	db, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	// Clean up before starting (in case previous run failed badly)
	tables := []string{
		"audit_events",
		"sessions",
		"rbac_assignments",
		"rbac_roles",
		"oauth2_clients",
		"authorization_codes",
		"tenant_members",
		"projects",
		"credentials",
		"users",
		"tenants",
	}
	for _, table := range tables {
		// Errors are ignored so a schema that is not yet created does not fail setup
		_, _ = db.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
	}

	// Run initial schema
	if err := db.Migrate(ctx, InitialSchema); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Seed RBAC (Permissions & Roles)
	if err := seedRBAC(ctx, db); err != nil {
		db.Close()
		t.Fatalf("failed to seed RBAC: %v", err)
	}

	cleanup := func() {
		// Clean up tables
		for _, table := range tables {
			_, _ = db.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		}
		db.Close()
	}

	return db, cleanup
}

// seedRBAC inserts the system role defaults (§3.4) directly, bypassing
// RoleRepository.Create so that ON CONFLICT (id) DO NOTHING lets repeated
// setups against the same database skip roles that are already present.
func seedRBAC(ctx context.Context, db *DB) error {
	for _, ro := range role.SeedRoles() {
		templatesJSON, err := json.Marshal(ro.ScopeTemplates)
		if err != nil {
			return fmt.Errorf("failed to marshal scope_templates for %s: %w", ro.Code, err)
		}
		_, err = db.pool.Exec(ctx, `
			INSERT INTO rbac_roles (id, code, name, scope, description, is_system, scope_templates, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			ON CONFLICT (id) DO NOTHING
		`, ro.ID, ro.Code, ro.Name, string(ro.Scope), ro.Description, ro.IsSystem, templatesJSON)
		if err != nil {
			return fmt.Errorf("failed to seed role %s: %w", ro.Code, err)
		}
	}
	return nil
}
