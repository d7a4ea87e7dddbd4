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
	"fmt"
	"sort"
	"strings"
)

// Action is the grant/revoke verb of a scope directive.
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

func parseAction(s string) (Action, bool) {
	switch s {
	case "allow":
		return Allow, true
	case "deny":
		return Deny, true
	default:
		return 0, false
	}
}

// ScopeDirective is one `action;path;k=v;...` entry of a role's scope list
// or a token's `scope` claim. It carries no reference to a Catalog —
// resolving it against one, and deciding whether it matches a request, is
// the evaluator's job (package rbac).
type ScopeDirective struct {
	Action     Action
	Path       string
	Segments   []string
	Parameters Parameters
}

// ParseDirective parses raw against the directive grammar:
// `(allow|deny);path(;key=value)*`.
func ParseDirective(raw string) (ScopeDirective, error) {
	parts := strings.Split(raw, ";")
	if len(parts) < 2 {
		return ScopeDirective{}, fmt.Errorf("%w: %q", ErrMalformedDirective, raw)
	}

	action, ok := parseAction(parts[0])
	if !ok {
		return ScopeDirective{}, fmt.Errorf("%w: unknown action %q", ErrMalformedDirective, parts[0])
	}

	path := parts[1]
	if path == "" {
		return ScopeDirective{}, fmt.Errorf("%w: empty path in %q", ErrMalformedDirective, raw)
	}
	segments := splitPath(path)
	for _, seg := range segments {
		if seg == "" {
			return ScopeDirective{}, fmt.Errorf("%w: empty path segment in %q", ErrMalformedDirective, raw)
		}
	}

	params := Parameters{}
	for _, kv := range parts[2:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return ScopeDirective{}, fmt.Errorf("%w: malformed parameter %q", ErrMalformedDirective, kv)
		}
		if _, exists := params.Get(key); exists {
			return ScopeDirective{}, fmt.Errorf("%w: %q in %q", ErrDuplicateParameter, key, raw)
		}
		params.Set(key, value)
	}

	return ScopeDirective{Action: action, Path: path, Segments: segments, Parameters: params}, nil
}

// TryParseDirective is ParseDirective but reports ok=false instead of an
// error. The evaluator's claim-extraction pipeline uses this: a malformed
// directive inside a token's scope claim must not abort the whole check
// (§7), it simply contributes nothing.
func TryParseDirective(raw string) (ScopeDirective, bool) {
	d, err := ParseDirective(raw)
	return d, err == nil
}

// ParseDirectives parses a whitespace-separated scope claim (the form a
// `scope` claim or a role's scope-template list takes once rendered to
// strings) into individual directives, in order.
func ParseDirectives(claim string) ([]ScopeDirective, error) {
	fields := strings.Fields(claim)
	out := make([]ScopeDirective, 0, len(fields))
	for _, f := range fields {
		d, err := ParseDirective(f)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// FormatDirective renders d back to its wire form.
func FormatDirective(d ScopeDirective) string {
	var b strings.Builder
	b.WriteString(d.Action.String())
	b.WriteByte(';')
	b.WriteString(d.Path)
	d.Parameters.Range(func(k, v string) {
		b.WriteByte(';')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	})
	return b.String()
}

// FormatDirectives joins directives into a single whitespace-separated
// scope claim.
func FormatDirectives(directives []ScopeDirective) string {
	parts := make([]string, len(directives))
	for i, d := range directives {
		parts[i] = FormatDirective(d)
	}
	return strings.Join(parts, " ")
}

// CanonicalDirective renders d with its parameters sorted by key, per §4.3
// ("format(d): inverse, with parameters sorted by key"). FormatDirective
// preserves insertion order instead, which is what the round-trip property
// (§8.7) actually needs for directives parsed from already-canonical wire
// strings; CanonicalDirective is for producing a fresh, comparable
// rendering (e.g. deduplication, audit logging).
func CanonicalDirective(d ScopeDirective) string {
	keys := append([]string{}, d.Parameters.Keys()...)
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(d.Action.String())
	b.WriteByte(';')
	b.WriteString(d.Path)
	for _, k := range keys {
		v, _ := d.Parameters.Get(k)
		b.WriteByte(';')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

// IsRootWildcard reports whether the directive's path is exactly the
// reserved global wildcard ("_read" or "_write") with no other segments.
func (d ScopeDirective) IsRootWildcard() bool {
	return len(d.Segments) == 1 && (d.Segments[0] == segmentRead || d.Segments[0] == segmentWrite)
}

// TrailingWildcardCategory reports the AccessCategory a scoped wildcard
// suffix (`path:_read` / `path:_write`) selects, and the path segments with
// that suffix stripped. ok is false if the directive does not end in a
// reserved wildcard segment at all (including the root wildcard case,
// which callers should check separately via IsRootWildcard).
func (d ScopeDirective) TrailingWildcardCategory() (cat AccessCategory, prefix []string, ok bool) {
	if len(d.Segments) < 2 {
		return 0, nil, false
	}
	last := d.Segments[len(d.Segments)-1]
	switch last {
	case segmentRead:
		return Read, d.Segments[:len(d.Segments)-1], true
	case segmentWrite:
		return Write, d.Segments[:len(d.Segments)-1], true
	default:
		return 0, nil, false
	}
}
