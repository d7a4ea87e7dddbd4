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

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"empty", "", ErrMalformedIdentifier},
		{"bare path", "api:iam:users:read", nil},
		{"with params", "api:iam:users:read;userId=U1", nil},
		{"duplicate param", "api:iam:users:read;userId=U1;userId=U2", ErrDuplicateParameter},
		{"malformed param", "api:iam:users:read;userId", ErrMalformedIdentifier},
		{"empty segment", "api::users", ErrMalformedIdentifier},
		{"bracket segment rejected", "api:iam:users:[userId=U1]", ErrMalformedIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIdentifier(tt.raw)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ParseIdentifier(%q) = %v, want nil", tt.raw, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseIdentifier(%q) = %v, want errors.Is(%v)", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestTryParseIdentifierNeverPanics(t *testing.T) {
	inputs := []string{"", ";;;", "a:b:c;k=v", "[", "]", ";=", "a;="}
	for _, in := range inputs {
		_, _ = TryParseIdentifier(in)
	}
}

func TestFormatIdentifierRoundTrip(t *testing.T) {
	raw := "api:iam:users:read;userId=U1;tenantId=T1"
	id, err := ParseIdentifier(raw)
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	got := FormatIdentifier(id)
	if got != raw {
		t.Errorf("FormatIdentifier round-trip = %q, want %q", got, raw)
	}
}

func TestCanonicalIdentifierSortsParameters(t *testing.T) {
	id, err := ParseIdentifier("api:iam:users:read;tenantId=T1;userId=U1")
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	reordered, err := ParseIdentifier("api:iam:users:read;userId=U1;tenantId=T1")
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	if got, want := CanonicalIdentifier(id), "api:iam:users:read;tenantId=T1;userId=U1"; got != want {
		t.Errorf("CanonicalIdentifier = %q, want %q", got, want)
	}
	if CanonicalIdentifier(id) != CanonicalIdentifier(reordered) {
		t.Errorf("CanonicalIdentifier must not depend on parse order: %q vs %q", CanonicalIdentifier(id), CanonicalIdentifier(reordered))
	}
}

func TestResolveValidatesParameters(t *testing.T) {
	cat := DefaultCatalog()

	id, err := ParseIdentifier("api:iam:users:read;userId=U1")
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	if _, err := id.Resolve(cat); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	bad, err := ParseIdentifier("api:iam:users:read;bogus=1")
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	_, err = bad.Resolve(cat)
	var invalidParam *InvalidParameterError
	if !errors.As(err, &invalidParam) {
		t.Fatalf("Resolve(bad param) = %v, want *InvalidParameterError", err)
	}

	unknown, err := ParseIdentifier("api:does:not:exist")
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	_, err = unknown.Resolve(cat)
	if !errors.Is(err, ErrUnknownPath) {
		t.Fatalf("Resolve(unknown path) = %v, want ErrUnknownPath", err)
	}
}

func TestResolveRootWildcardAcceptsAnyParameters(t *testing.T) {
	cat := DefaultCatalog()

	for _, raw := range []string{"_read", "_write", "_read;userId=U1", "_write;tenantId=T1;userId=U1"} {
		id, err := ParseIdentifier(raw)
		if err != nil {
			t.Fatalf("ParseIdentifier(%q): %v", raw, err)
		}
		n, err := id.Resolve(cat)
		if err != nil {
			t.Fatalf("Resolve(%q) = %v, want nil (root wildcards accept any parameters)", raw, err)
		}
		if !n.Assignable() {
			t.Errorf("Resolve(%q) node must be assignable", raw)
		}
	}

	readNode, err := ParseIdentifier("_read")
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	n, err := readNode.Resolve(cat)
	if err != nil {
		t.Fatalf("Resolve(_read): %v", err)
	}
	if n.AccessCategory != Read {
		t.Errorf("Resolve(_read).AccessCategory = %v, want Read", n.AccessCategory)
	}

	writeNode, err := ParseIdentifier("_write")
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	n, err = writeNode.Resolve(cat)
	if err != nil {
		t.Fatalf("Resolve(_write): %v", err)
	}
	if n.AccessCategory != Write {
		t.Errorf("Resolve(_write).AccessCategory = %v, want Write", n.AccessCategory)
	}
}

func TestParametersPreservesInsertionOrder(t *testing.T) {
	var p Parameters
	p.Set("b", "2")
	p.Set("a", "1")
	p.Set("b", "20")

	keys := p.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("Keys() = %v, want [b a]", keys)
	}
	if v, _ := p.Get("b"); v != "20" {
		t.Errorf("Get(b) = %q, want 20 (overwrite keeps new value)", v)
	}
}
