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

package rbac

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/opentrusty/opentrusty-core/policy"
)

func mustDirectives(t *testing.T, raw ...string) []policy.ScopeDirective {
	t.Helper()
	var out []policy.ScopeDirective
	for _, r := range raw {
		d, err := policy.ParseDirective(r)
		if err != nil {
			t.Fatalf("ParseDirective(%q): %v", r, err)
		}
		out = append(out, d)
	}
	return out
}

func mustIdentifier(t *testing.T, raw string) policy.ParsedIdentifier {
	t.Helper()
	id, err := policy.ParseIdentifier(raw)
	if err != nil {
		t.Fatalf("ParseIdentifier(%q): %v", raw, err)
	}
	return id
}

// TestScenarios pins down the literal S1-S7 scenarios from the evaluator
// documentation against the default catalog.
func TestScenarios(t *testing.T) {
	ev := New(policy.DefaultCatalog())

	tests := []struct {
		name       string
		directives []string
		request    string
		want       bool
	}{
		{"S1", []string{"allow;api:iam:users:read;userId=U1"}, "api:iam:users:read;userId=U1", true},
		{"S2", []string{"allow;api:iam:users:read;userId=U1"}, "api:iam:users:read;userId=U2", false},
		{"S3", []string{"allow;_read;userId=U1"}, "api:iam:users:read;userId=U1", true},
		{"S4", []string{"allow;_read;userId=U1"}, "api:iam:users:update;userId=U1", false},
		{"S5", []string{"allow;_read", "allow;_write"}, "api:iam:users:delete;userId=X", true},
		{"S6", []string{"allow;_write;userId=U", "deny;api:auth:refresh;userId=U"}, "api:auth:refresh;userId=U", false},
		{"S7", []string{"allow;api:auth:refresh;userId=U"}, "api:auth:me;userId=U", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directives := mustDirectives(t, tt.directives...)
			req := mustIdentifier(t, tt.request)
			got := ev.EvaluateIdentifier(directives, req)
			if got != tt.want {
				t.Errorf("Evaluate(%v, %q) = %v, want %v", tt.directives, tt.request, got, tt.want)
			}
		})
	}
}

func TestScopedWildcardLocality(t *testing.T) {
	ev := New(policy.DefaultCatalog())
	directives := mustDirectives(t, "allow;api:iam:users:_read")

	allow := mustIdentifier(t, "api:iam:users:read;userId=U1")
	if !ev.EvaluateIdentifier(directives, allow) {
		t.Errorf("scoped read wildcard should permit a read leaf under its subtree")
	}

	deny := mustIdentifier(t, "api:iam:users:update;userId=U1")
	if ev.EvaluateIdentifier(directives, deny) {
		t.Errorf("scoped read wildcard must not permit a write leaf under its subtree")
	}

	sibling := mustIdentifier(t, "api:auth:me;userId=U1")
	if ev.EvaluateIdentifier(directives, sibling) {
		t.Errorf("scoped wildcard must not affect paths outside its subtree")
	}
}

func TestLiteralWildcardLeafTakesPrecedence(t *testing.T) {
	ev := New(policy.DefaultCatalog())

	allow := mustDirectives(t, "allow;api:auth:api_keys:_read")
	readLeaf := mustIdentifier(t, "api:auth:api_keys:_read")
	if !ev.EvaluateIdentifier(allow, readLeaf) {
		t.Fatalf("literal api_keys:_read leaf should match itself exactly")
	}
	writeLeaf := mustIdentifier(t, "api:auth:api_keys:_write")
	if ev.EvaluateIdentifier(allow, writeLeaf) {
		t.Fatalf("literal api_keys:_read leaf must not grant the sibling write leaf")
	}
}

func TestAccessTokenCannotRefresh(t *testing.T) {
	ev := New(policy.DefaultCatalog())
	// mirrors §6.4: access tokens carry the user's scopes plus an explicit
	// deny on refresh.
	directives := mustDirectives(t,
		"allow;_read;userId=U",
		"allow;_write;userId=U",
		"deny;api:auth:refresh;userId=U",
	)
	req := mustIdentifier(t, "api:auth:refresh;userId=U")
	if ev.EvaluateIdentifier(directives, req) {
		t.Fatalf("access token must not be usable where api:auth:refresh is required")
	}
}

func TestRefreshTokenOnlyRefreshes(t *testing.T) {
	ev := New(policy.DefaultCatalog())
	directives := mustDirectives(t, "allow;api:auth:refresh;userId=U")

	refresh := mustIdentifier(t, "api:auth:refresh;userId=U")
	if !ev.EvaluateIdentifier(directives, refresh) {
		t.Fatalf("refresh token should be usable for its own refresh operation")
	}

	other := mustIdentifier(t, "api:auth:me;userId=U")
	if ev.EvaluateIdentifier(directives, other) {
		t.Fatalf("refresh token must not grant unrelated operations")
	}
}

func TestEmptyDirectiveSetDenies(t *testing.T) {
	ev := New(policy.DefaultCatalog())
	req := mustIdentifier(t, "api:auth:me;userId=U")
	if ev.EvaluateIdentifier(nil, req) {
		t.Fatalf("empty directive set must evaluate to false")
	}
}

func TestUnknownPathDenies(t *testing.T) {
	ev := New(policy.DefaultCatalog())
	directives := mustDirectives(t, "allow;_read")
	got := ev.Evaluate(directives, "api:does:not:exist", policy.Parameters{})
	if got {
		t.Fatalf("a request path absent from the catalog must evaluate to false")
	}
}

func TestContainerWithUnspecifiedAccess(t *testing.T) {
	ev := New(policy.DefaultCatalog())

	// api:iam:users is a container (Unspecified) — only a hierarchical
	// container directive or a wildcard whose category includes
	// Unspecified can match it directly.
	global := mustDirectives(t, "allow;_read")
	container := mustIdentifier(t, "api:iam:users")
	if !ev.EvaluateIdentifier(global, container) {
		t.Fatalf("global read wildcard should match an Unspecified container")
	}

	narrow := mustDirectives(t, "allow;api:iam:users:read")
	if ev.EvaluateIdentifier(narrow, container) {
		t.Fatalf("a leaf-scoped allow must not grant its own parent container")
	}

	ancestorAllow := mustDirectives(t, "allow;api:iam")
	if !ev.EvaluateIdentifier(ancestorAllow, container) {
		t.Fatalf("an ancestor container directive should match a descendant container")
	}
}

func TestDenyWinsRegardlessOfOrder(t *testing.T) {
	ev := New(policy.DefaultCatalog())
	req := mustIdentifier(t, "api:iam:users:read;userId=U1")

	orderings := [][]string{
		{"allow;api:iam:users:read;userId=U1", "deny;api:iam:users:read;userId=U1"},
		{"deny;api:iam:users:read;userId=U1", "allow;api:iam:users:read;userId=U1"},
	}
	for _, raw := range orderings {
		directives := mustDirectives(t, raw...)
		if ev.EvaluateIdentifier(directives, req) {
			t.Fatalf("deny must win regardless of directive order: %v", raw)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	raw := []string{
		"allow;api:iam:users:read;userId=U1",
		"deny;api:auth:refresh;userId=U2",
		"allow;_read",
	}
	directives := mustDirectives(t, raw...)
	for i, d := range directives {
		got := policy.FormatDirective(d)
		if got != raw[i] {
			t.Errorf("FormatDirective(ParseDirective(%q)) = %q, want %q", raw[i], got, raw[i])
		}
		reparsed, err := policy.ParseDirective(got)
		if err != nil {
			t.Fatalf("reparse %q: %v", got, err)
		}
		if diff := cmp.Diff(d, reparsed, cmp.AllowUnexported(policy.Parameters{})); diff != "" {
			t.Errorf("parse/format round-trip mismatch (-want +got):\n%s", diff)
		}
	}
}
