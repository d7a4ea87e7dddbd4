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

import "testing"

func TestDefaultCatalogLookup(t *testing.T) {
	cat := DefaultCatalog()

	tests := []struct {
		path    string
		wantCat AccessCategory
	}{
		{PathAPIIAMUsersRead, Read},
		{PathAPIIAMUsersUpdate, Write},
		{PathAPIIAMUsersDelete, Write},
		{PathAPIAuthMe, Read},
		{PathAPIAuthLogout, Write},
		{PathAPIAuthRefresh, Write},
		{PathAPIAuthAPIKeysRead, Read},
		{PathAPIAuthAPIKeysWrite, Write},
		{PathAPIIAMUsers, Unspecified},
	}
	for _, tt := range tests {
		n, ok := cat.Lookup(tt.path)
		if !ok {
			t.Fatalf("Lookup(%q) not found", tt.path)
		}
		if n.AccessCategory != tt.wantCat {
			t.Errorf("Lookup(%q).AccessCategory = %v, want %v", tt.path, n.AccessCategory, tt.wantCat)
		}
	}
}

func TestParameterHierarchy(t *testing.T) {
	cat := DefaultCatalog()
	n, ok := cat.Lookup(PathAPIIAMUsersRead)
	if !ok {
		t.Fatalf("Lookup(%q) not found", PathAPIIAMUsersRead)
	}
	found := false
	for _, p := range n.ParameterHierarchy {
		if p == "userId" {
			found = true
		}
	}
	if !found {
		t.Errorf("ParameterHierarchy for %q = %v, want to contain userId", PathAPIIAMUsersRead, n.ParameterHierarchy)
	}
}

func TestReachableParametersSkipsWildcardChildren(t *testing.T) {
	cat := DefaultCatalog()
	apiKeys, ok := cat.Lookup(PathAPIAuthAPIKeys)
	if !ok {
		t.Fatalf("Lookup(%q) not found", PathAPIAuthAPIKeys)
	}
	// api_keys declares no parameters of its own and its only children are
	// the reserved _read/_write leaves, which must not contribute to its
	// reachable set.
	if len(apiKeys.ReachableParameters) != 0 {
		t.Errorf("ReachableParameters for %q = %v, want empty", PathAPIAuthAPIKeys, apiKeys.ReachableParameters)
	}
}

func TestAssignableExcludesContainers(t *testing.T) {
	cat := DefaultCatalog()
	for _, n := range cat.Assignable() {
		if n.AccessCategory == Unspecified {
			t.Errorf("Assignable() returned container node %q", n.Path)
		}
	}
	usersContainer, ok := cat.Lookup(PathAPIIAMUsers)
	if !ok {
		t.Fatalf("Lookup(%q) not found", PathAPIIAMUsers)
	}
	if usersContainer.Assignable() {
		t.Errorf("%q should not be assignable", PathAPIIAMUsers)
	}
}

func TestAssignableIdentifiersSorted(t *testing.T) {
	cat := DefaultCatalog()
	ids := cat.AssignableIdentifiers()
	if len(ids) == 0 {
		t.Fatalf("AssignableIdentifiers() returned no paths")
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("AssignableIdentifiers() not sorted at %d: %q >= %q", i, ids[i-1], ids[i])
		}
	}
	for _, id := range ids {
		n, ok := cat.Lookup(id)
		if !ok || !n.Assignable() {
			t.Errorf("AssignableIdentifiers() included non-assignable path %q", id)
		}
	}
}

func TestNewCatalogPanicsOnDuplicatePath(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate catalog path")
		}
	}()
	NewCatalog([]NodeSpec{
		{Identifier: "a", Children: []NodeSpec{{Identifier: "b", AccessCategory: Read}}},
		{Identifier: "a", Children: []NodeSpec{{Identifier: "b", AccessCategory: Write}}},
	})
}
