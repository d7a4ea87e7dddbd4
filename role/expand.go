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
	"fmt"
	"strings"

	"github.com/opentrusty/opentrusty-core/policy"
)

// ErrMalformedRoleClaim means a `role` claim token did not match the
// `CODE;k=v;...` grammar.
var ErrMalformedRoleClaim = errors.New("role: malformed role claim")

// MissingParameterError reports a placeholder binding whose value was
// absent (or empty) in the values supplied to Expand.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("role: missing parameter %q", e.Name)
}

func (e *MissingParameterError) Is(target error) bool {
	_, ok := target.(*MissingParameterError)
	return ok
}

// Expand binds template's placeholders against values and returns the
// resulting concrete scope directive. It fails with *MissingParameterError
// if any placeholder's value is absent or empty.
func Expand(template ScopeTemplate, values map[string]string) (policy.ScopeDirective, error) {
	var b strings.Builder
	b.WriteString(template.Action.String())
	b.WriteByte(';')
	b.WriteString(template.Path)

	for _, bind := range template.Bindings {
		val := bind.Literal
		if bind.IsPlaceholder {
			v, ok := values[bind.Placeholder]
			if !ok || v == "" {
				return policy.ScopeDirective{}, &MissingParameterError{Name: bind.Placeholder}
			}
			val = v
		}
		b.WriteByte(';')
		b.WriteString(bind.Key)
		b.WriteByte('=')
		b.WriteString(val)
	}

	d, err := policy.ParseDirective(b.String())
	if err != nil {
		return policy.ScopeDirective{}, fmt.Errorf("role: expanded template produced invalid directive: %w", err)
	}
	return d, nil
}

// requiredParameters returns the placeholder names a template needs.
func requiredParameters(template ScopeTemplate) []string {
	var out []string
	for _, b := range template.Bindings {
		if b.IsPlaceholder {
			out = append(out, b.Placeholder)
		}
	}
	return out
}

func satisfied(template ScopeTemplate, values map[string]string) bool {
	for _, name := range requiredParameters(template) {
		v, ok := values[name]
		if !ok || v == "" {
			return false
		}
	}
	return true
}

// ExpandAll expands every template in role.ScopeTemplates whose required
// parameters are fully present in values. Templates that are
// under-provisioned are silently skipped rather than failing the whole
// role — an under-provisioned assignment should narrow what it grants, not
// deny service entirely.
func ExpandAll(r *Role, values map[string]string) []policy.ScopeDirective {
	var out []policy.ScopeDirective
	for _, tmpl := range r.ScopeTemplates {
		if !satisfied(tmpl, values) {
			continue
		}
		d, err := Expand(tmpl, values)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

// RoleBinding is a parsed `role` claim occurrence: a role code plus the
// parameter values this particular assignment binds.
type RoleBinding struct {
	Code       string
	Parameters map[string]string
}

// ParseRoleClaim parses one `role` claim token: `CODE;k=v;...`. The code is
// matched case-insensitively against stored role codes by callers; it is
// returned here exactly as written.
func ParseRoleClaim(raw string) (RoleBinding, error) {
	if raw == "" {
		return RoleBinding{}, fmt.Errorf("%w: empty claim", ErrMalformedRoleClaim)
	}
	parts := strings.Split(raw, ";")
	code := parts[0]
	if code == "" {
		return RoleBinding{}, fmt.Errorf("%w: empty code in %q", ErrMalformedRoleClaim, raw)
	}

	params := make(map[string]string, len(parts)-1)
	for _, kv := range parts[1:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return RoleBinding{}, fmt.Errorf("%w: malformed parameter %q", ErrMalformedRoleClaim, kv)
		}
		if _, exists := params[key]; exists {
			return RoleBinding{}, fmt.Errorf("%w: duplicate parameter %q in %q", ErrMalformedRoleClaim, key, raw)
		}
		params[key] = value
	}

	return RoleBinding{Code: code, Parameters: params}, nil
}

// EqualCode reports whether two role codes refer to the same role,
// case-insensitively.
func EqualCode(a, b string) bool {
	return strings.EqualFold(a, b)
}
