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

	"github.com/opentrusty/opentrusty-core/policy"
)

func TestExpandSubstitutesPlaceholders(t *testing.T) {
	tmpl := allowTemplate("tenant:view", placeholder("tenantId"))
	d, err := Expand(tmpl, map[string]string{"tenantId": "T1"})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want, _ := policy.ParseDirective("allow;tenant:view;tenantId=T1")
	if d.Action != want.Action || d.Path != want.Path {
		t.Fatalf("Expand() = %+v, want %+v", d, want)
	}
	if v, ok := d.Parameters.Get("tenantId"); !ok || v != "T1" {
		t.Errorf("Expand() parameters = %v, want tenantId=T1", d.Parameters)
	}
}

func TestExpandMissingPlaceholderFails(t *testing.T) {
	tmpl := allowTemplate("tenant:view", placeholder("tenantId"))
	_, err := Expand(tmpl, map[string]string{})
	var missing *MissingParameterError
	if !errors.As(err, &missing) {
		t.Fatalf("Expand(missing) = %v, want *MissingParameterError", err)
	}
	if missing.Name != "tenantId" {
		t.Errorf("MissingParameterError.Name = %q, want tenantId", missing.Name)
	}
}

func TestExpandAllSkipsUnderProvisionedTemplates(t *testing.T) {
	r := &Role{ScopeTemplates: TenantOwnerTemplates}

	// Only tenantId is provided; every template also needing userId must be
	// skipped rather than failing the whole expansion (§4.4 fallthrough
	// policy).
	directives := ExpandAll(r, map[string]string{"tenantId": "T1"})
	if len(directives) == 0 {
		t.Fatalf("ExpandAll() returned no directives")
	}
	for _, d := range directives {
		for _, k := range d.Parameters.Keys() {
			if k == "userId" {
				t.Fatalf("ExpandAll() emitted a directive needing userId despite it being absent: %v", d)
			}
		}
	}

	full := ExpandAll(r, map[string]string{"tenantId": "T1", "userId": "U1"})
	if len(full) != len(TenantOwnerTemplates) {
		t.Errorf("ExpandAll() with full parameters = %d directives, want %d", len(full), len(TenantOwnerTemplates))
	}
}

func TestExpandAllPlatformAdminNeedsNoParameters(t *testing.T) {
	r := &Role{ScopeTemplates: PlatformAdminTemplates}
	directives := ExpandAll(r, nil)
	if len(directives) != 2 {
		t.Fatalf("ExpandAll(platform admin) = %d directives, want 2", len(directives))
	}
}

func TestParseRoleClaim(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"code only", "tenant_owner", false},
		{"code with params", "tenant_owner;tenantId=T1;userId=U1", false},
		{"empty", "", true},
		{"duplicate param", "tenant_owner;tenantId=T1;tenantId=T2", true},
		{"malformed param", "tenant_owner;tenantId", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoleClaim(tt.raw)
			if tt.wantErr != (err != nil) {
				t.Errorf("ParseRoleClaim(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestParseRoleClaimExtractsBindings(t *testing.T) {
	b, err := ParseRoleClaim("TENANT_OWNER;tenantId=T1;userId=U1")
	if err != nil {
		t.Fatalf("ParseRoleClaim: %v", err)
	}
	if b.Code != "TENANT_OWNER" {
		t.Errorf("Code = %q, want TENANT_OWNER (code is returned verbatim)", b.Code)
	}
	if b.Parameters["tenantId"] != "T1" || b.Parameters["userId"] != "U1" {
		t.Errorf("Parameters = %v, want tenantId=T1 userId=U1", b.Parameters)
	}
}

func TestEqualCodeCaseInsensitive(t *testing.T) {
	if !EqualCode("Tenant_Owner", "tenant_owner") {
		t.Errorf("EqualCode should be case-insensitive")
	}
	if EqualCode("tenant_owner", "tenant_admin") {
		t.Errorf("EqualCode should distinguish different codes")
	}
}
