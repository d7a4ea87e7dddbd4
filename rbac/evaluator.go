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

// Package rbac implements the scope-directive evaluator: given a merged set
// of allow/deny directives (already expanded from a token's scope claim and
// its role assignments) and a requested permission, it decides whether the
// request is allowed.
//
// The evaluator is pure and stateless — it holds only a reference to the
// immutable policy.Catalog and never caches a decision. Every exported
// method is safe to call from any number of goroutines concurrently.
package rbac

import (
	"strings"

	"github.com/opentrusty/opentrusty-core/policy"
)

// Evaluator answers has_permission-style questions against a fixed catalog.
type Evaluator struct {
	catalog *policy.Catalog
}

// New returns an Evaluator backed by cat. Passing nil uses
// policy.DefaultCatalog().
func New(cat *policy.Catalog) *Evaluator {
	if cat == nil {
		cat = policy.DefaultCatalog()
	}
	return &Evaluator{catalog: cat}
}

// Catalog returns the catalog this evaluator was built with.
func (e *Evaluator) Catalog() *policy.Catalog {
	return e.catalog
}

// Evaluate is the C5 scope evaluator. It returns true iff some directive in
// directives allows path/params and no directive denies it. An unknown
// path, or an empty directive set, evaluates to false — it never errors,
// matching the evaluator's pure-function contract; rejecting a malformed or
// unassignable request identifier earlier is the caller's job (see
// EvaluateIdentifier and package authz).
func (e *Evaluator) Evaluate(directives []policy.ScopeDirective, path string, params policy.Parameters) bool {
	reqNode, ok := e.catalog.Lookup(path)
	if !ok {
		return false
	}

	var allowed, denied bool
	for _, d := range directives {
		if denied {
			break // deny already decided; an allow found later cannot undo it.
		}
		if !e.pathMatches(d, reqNode) {
			continue
		}
		if !paramsCompatible(d, params) {
			continue
		}
		switch d.Action {
		case policy.Deny:
			denied = true
		case policy.Allow:
			allowed = true
		}
	}
	return allowed && !denied
}

// EvaluateIdentifier is Evaluate for an already-parsed request identifier.
func (e *Evaluator) EvaluateIdentifier(directives []policy.ScopeDirective, id policy.ParsedIdentifier) bool {
	return e.Evaluate(directives, id.Path, id.Parameters)
}

// pathMatches implements §4.5.1 of the evaluator contract: the six ways a
// directive's path can match a request node.
func (e *Evaluator) pathMatches(d policy.ScopeDirective, reqNode *policy.Node) bool {
	if d.IsRootWildcard() {
		cat := wildcardCategory(d.Segments[0])
		return reqNode.AccessCategory == cat || reqNode.AccessCategory == policy.Unspecified
	}

	// A literal catalog path (exact match, or an ordinary ancestor
	// container) takes precedence over wildcard-suffix interpretation —
	// this is what lets api:auth:api_keys:_read exist as its own
	// assignable leaf rather than being read as a wildcard over
	// api:auth:api_keys.
	if dNode, ok := e.catalog.Lookup(d.Path); ok {
		if dNode == reqNode {
			return true
		}
		return isDescendant(dNode, reqNode)
	}

	if wcat, prefix, ok := d.TrailingWildcardCategory(); ok {
		xNode, found := e.catalog.Lookup(strings.Join(prefix, ":"))
		if !found {
			return false
		}
		if xNode == reqNode || isDescendant(xNode, reqNode) {
			return reqNode.AccessCategory == wcat
		}
	}

	return false
}

func wildcardCategory(segment string) policy.AccessCategory {
	if segment == "_write" {
		return policy.Write
	}
	return policy.Read
}

func isDescendant(ancestor, node *policy.Node) bool {
	if ancestor.Path == "" {
		return node.Path != ""
	}
	return strings.HasPrefix(node.Path, ancestor.Path+":")
}

// paramsCompatible implements §4.5.2: every parameter the directive names
// must be present in the request with an identical value. Extra request
// parameters, and directives with no parameters at all, are always
// compatible.
func paramsCompatible(d policy.ScopeDirective, reqParams policy.Parameters) bool {
	for _, k := range d.Parameters.Keys() {
		dv, _ := d.Parameters.Get(k)
		rv, ok := reqParams.Get(k)
		if !ok || rv != dv {
			return false
		}
	}
	return true
}
