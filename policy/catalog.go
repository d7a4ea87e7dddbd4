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
	"slices"
	"sort"
	"strings"
)

// NodeSpec declares one node of the permission tree. Children are declared
// inline so a whole subtree reads as one literal in permissions.go.
type NodeSpec struct {
	Identifier     string
	AccessCategory AccessCategory
	Parameters     []string
	Children       []NodeSpec
}

// Catalog is the built, queryable permission tree. It is immutable once
// constructed and safe for concurrent use by any number of evaluators.
type Catalog struct {
	root      *Node
	byPath    map[string]*Node
	assignable []*Node
}

// NewCatalog builds a Catalog from a top-level list of NodeSpecs. It panics
// on a malformed registry (duplicate path, reserved identifier misuse)
// because the registry is a compile-time artifact of this module, not
// untrusted input — the same contract the teacher's permissions.go package
// var blocks rely on (a bad constant is a programming error, not a runtime
// condition to recover from).
func NewCatalog(specs []NodeSpec) *Catalog {
	root := &Node{Identifier: "", Path: ""}
	c := &Catalog{root: root, byPath: make(map[string]*Node)}

	for _, spec := range specs {
		c.addChild(root, spec)
	}

	for _, n := range c.byPath {
		if n.Assignable() {
			c.assignable = append(c.assignable, n)
		}
	}

	return c
}

func (c *Catalog) addChild(parent *Node, spec NodeSpec) *Node {
	if spec.Identifier == "" {
		panic("policy: NodeSpec with empty identifier")
	}
	if (spec.Identifier == segmentRead || spec.Identifier == segmentWrite) && len(spec.Children) != 0 {
		panic(fmt.Sprintf("policy: reserved segment %q cannot have children", spec.Identifier))
	}

	path := spec.Identifier
	if parent.Path != "" {
		path = parent.Path + ":" + spec.Identifier
	}
	if _, exists := c.byPath[path]; exists {
		panic(fmt.Sprintf("policy: duplicate catalog path %q", path))
	}

	hierarchy := append([]string{}, parent.ParameterHierarchy...)
	for _, p := range spec.Parameters {
		if !slices.Contains(hierarchy, p) {
			hierarchy = append(hierarchy, p)
		}
	}

	n := &Node{
		Identifier:         spec.Identifier,
		Path:               path,
		Parent:             parent,
		AccessCategory:     spec.AccessCategory,
		Parameters:         spec.Parameters,
		ParameterHierarchy: hierarchy,
	}
	parent.Children = append(parent.Children, n)
	c.byPath[path] = n

	for _, childSpec := range spec.Children {
		c.addChild(n, childSpec)
	}

	n.ReachableParameters = computeReachable(n)

	return n
}

// computeReachable gathers every parameter declared by n or any descendant
// that is not itself (or under) a reserved _read/_write child. Reachability
// is what lets a request parameter on a container node ("userId" on
// api:iam) be accepted even though the parameter is formally declared on
// its users child.
func computeReachable(n *Node) map[string]struct{} {
	set := make(map[string]struct{}, len(n.Parameters))
	for _, p := range n.Parameters {
		set[p] = struct{}{}
	}
	for _, child := range n.Children {
		if child.IsWildcardSegment() {
			continue
		}
		for p := range computeReachable(child) {
			set[p] = struct{}{}
		}
	}
	return set
}

// Lookup resolves a colon-separated path to its Node. ok is false if no such
// path was registered.
func (c *Catalog) Lookup(path string) (*Node, bool) {
	n, ok := c.byPath[path]
	return n, ok
}

// MustLookup is Lookup but panics on miss; intended for package-init-time
// callers that reference their own registered paths.
func (c *Catalog) MustLookup(path string) *Node {
	n, ok := c.byPath[path]
	if !ok {
		panic(fmt.Sprintf("policy: catalog has no node %q", path))
	}
	return n
}

// Root returns the synthetic root node. Its Children are the top-level
// permission groups.
func (c *Catalog) Root() *Node {
	return c.root
}

// Assignable returns every node in the catalog whose AccessCategory is not
// Unspecified, in no particular order.
func (c *Catalog) Assignable() []*Node {
	out := make([]*Node, len(c.assignable))
	copy(out, c.assignable)
	return out
}

// AssignableIdentifiers returns the path of every assignable node, sorted
// lexicographically, for enumeration APIs (e.g. listing grantable
// permissions in an admin UI).
func (c *Catalog) AssignableIdentifiers() []string {
	out := make([]string, len(c.assignable))
	for i, n := range c.assignable {
		out[i] = n.Path
	}
	sort.Strings(out)
	return out
}

// splitPath is the single place that defines how a catalog path string is
// tokenized into segments. Both identifier and directive parsing route
// through this so the grammar cannot drift between the two.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ":")
}
