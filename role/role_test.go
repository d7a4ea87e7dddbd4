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

package role

import (
	"errors"
	"testing"
)

func TestRequiredParameters(t *testing.T) {
	tests := []struct {
		name string
		role *Role
		want []string
	}{
		{"platform admin has no placeholders", &Role{ScopeTemplates: PlatformAdminTemplates}, nil},
		{
			"tenant owner requires tenantId and userId",
			&Role{ScopeTemplates: TenantOwnerTemplates},
			[]string{"tenantId", "userId"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.role.RequiredParameters()
			if len(got) != len(tt.want) {
				t.Fatalf("RequiredParameters() = %v, want %v", got, tt.want)
			}
			seen := make(map[string]bool)
			for _, p := range got {
				seen[p] = true
			}
			for _, p := range tt.want {
				if !seen[p] {
					t.Errorf("RequiredParameters() = %v, missing %q", got, p)
				}
			}
		})
	}
}

func TestEnsureMutableRejectsSystemRoles(t *testing.T) {
	for _, r := range Defaults {
		if err := EnsureMutable(r); !errors.Is(err, ErrSystemRoleImmutable) {
			t.Errorf("EnsureMutable(%q) = %v, want ErrSystemRoleImmutable", r.Code, err)
		}
	}

	custom := &Role{Code: "custom_role", IsSystem: false}
	if err := EnsureMutable(custom); err != nil {
		t.Errorf("EnsureMutable(non-system role) = %v, want nil", err)
	}
}

func TestSeedRolesReturnsIndependentCopy(t *testing.T) {
	seeded := SeedRoles()
	if len(seeded) != len(Defaults) {
		t.Fatalf("SeedRoles() returned %d roles, want %d", len(seeded), len(Defaults))
	}
	seeded[0] = &Role{Code: "mutated"}
	if Defaults[0].Code == "mutated" {
		t.Errorf("mutating the slice returned by SeedRoles must not affect Defaults")
	}
}

func TestDefaultRoleCodesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range Defaults {
		if seen[r.Code] {
			t.Errorf("duplicate default role code %q", r.Code)
		}
		seen[r.Code] = true
	}
}
