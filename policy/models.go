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

// Package policy implements the hierarchical permission tree, the
// identifier grammar used to address a node in it, and the scope
// directive wire format that grants or denies access to a node.
//
// It does not decide anything by itself: matching a directive against a
// request lives in package rbac, and role-driven directive expansion lives
// in package role. policy only knows what permissions exist and how to
// parse the strings that refer to them.
package policy

import (
	"errors"
	"fmt"
)

// Ingress errors. These fail fast at the edge (token issuance, admin
// identifier validation) rather than surface as an ordinary "denied"
// result from an evaluation.
var (
	// ErrMalformedIdentifier means the identifier string did not match the
	// path(;k=v)* grammar.
	ErrMalformedIdentifier = errors.New("policy: malformed identifier")

	// ErrMalformedDirective means a scope directive string did not match
	// the action;path(;k=v)* grammar.
	ErrMalformedDirective = errors.New("policy: malformed scope directive")

	// ErrUnknownPath means the canonical path of an identifier is not in
	// the catalog.
	ErrUnknownPath = errors.New("policy: unknown permission path")

	// ErrUnassignablePermission means a path resolves to a node whose
	// access category is Unspecified (a pure container); containers cannot
	// be granted directly.
	ErrUnassignablePermission = errors.New("policy: permission is not assignable")

	// ErrDuplicateParameter means the same parameter key appeared twice in
	// one identifier or directive.
	ErrDuplicateParameter = errors.New("policy: duplicate parameter")
)

// InvalidParameterError reports a parameter key that is not declared by the
// target node's parameter hierarchy or reachable parameter set.
type InvalidParameterError struct {
	Name string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("policy: invalid parameter %q", e.Name)
}

// Is lets callers match with errors.Is against the zero-value sentinel
// shape without caring about the offending parameter name.
func (e *InvalidParameterError) Is(target error) bool {
	_, ok := target.(*InvalidParameterError)
	return ok
}
