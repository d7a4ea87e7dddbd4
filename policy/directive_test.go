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

import (
	"errors"
	"testing"
)

func TestParseDirective(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"allow no params", "allow;api:auth:me", nil},
		{"deny with params", "deny;api:auth:refresh;userId=U1", nil},
		{"unknown action", "grant;api:auth:me", ErrMalformedDirective},
		{"missing path", "allow", ErrMalformedDirective},
		{"empty path", "allow;", ErrMalformedDirective},
		{"duplicate param", "allow;api:auth:me;userId=U1;userId=U2", ErrDuplicateParameter},
		{"case sensitive action", "Allow;api:auth:me", ErrMalformedDirective},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDirective(tt.raw)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ParseDirective(%q) = %v, want nil", tt.raw, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseDirective(%q) = %v, want errors.Is(%v)", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestFormatDirectiveRoundTrip(t *testing.T) {
	raw := "deny;api:auth:refresh;userId=U1"
	d, err := ParseDirective(raw)
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	if got := FormatDirective(d); got != raw {
		t.Errorf("FormatDirective round-trip = %q, want %q", got, raw)
	}
}

func TestCanonicalDirectiveSortsParameters(t *testing.T) {
	d, err := ParseDirective("allow;api:iam:users:read;userId=U1;tenantId=T1")
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	if got, want := CanonicalDirective(d), "allow;api:iam:users:read;tenantId=T1;userId=U1"; got != want {
		t.Errorf("CanonicalDirective = %q, want %q", got, want)
	}
}

func TestTryParseDirective(t *testing.T) {
	if _, ok := TryParseDirective("allow;api:auth:me"); !ok {
		t.Errorf("TryParseDirective should accept a well-formed directive")
	}
	if _, ok := TryParseDirective("not-a-directive"); ok {
		t.Errorf("TryParseDirective should reject a malformed directive")
	}
}

func TestParseDirectives(t *testing.T) {
	claim := "allow;_read;userId=U1 deny;api:auth:refresh;userId=U1"
	directives, err := ParseDirectives(claim)
	if err != nil {
		t.Fatalf("ParseDirectives: %v", err)
	}
	if len(directives) != 2 {
		t.Fatalf("len(directives) = %d, want 2", len(directives))
	}
	if got := FormatDirectives(directives); got != claim {
		t.Errorf("FormatDirectives round-trip = %q, want %q", got, claim)
	}
}

func TestIsRootWildcard(t *testing.T) {
	d, _ := ParseDirective("allow;_read")
	if !d.IsRootWildcard() {
		t.Errorf("allow;_read should be a root wildcard")
	}
	d2, _ := ParseDirective("allow;api:auth:api_keys:_read")
	if d2.IsRootWildcard() {
		t.Errorf("allow;api:auth:api_keys:_read is not a root wildcard")
	}
}

func TestTrailingWildcardCategory(t *testing.T) {
	d, _ := ParseDirective("allow;api:iam:users:_write")
	cat, prefix, ok := d.TrailingWildcardCategory()
	if !ok {
		t.Fatalf("expected trailing wildcard")
	}
	if cat != Write {
		t.Errorf("category = %v, want Write", cat)
	}
	wantPrefix := []string{"api", "iam", "users"}
	if len(prefix) != len(wantPrefix) {
		t.Fatalf("prefix = %v, want %v", prefix, wantPrefix)
	}
	for i := range wantPrefix {
		if prefix[i] != wantPrefix[i] {
			t.Errorf("prefix[%d] = %q, want %q", i, prefix[i], wantPrefix[i])
		}
	}

	plain, _ := ParseDirective("allow;api:auth:me")
	if _, _, ok := plain.TrailingWildcardCategory(); ok {
		t.Errorf("plain path must not report a trailing wildcard")
	}
}
