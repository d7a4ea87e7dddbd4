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

package postgres

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/opentrusty/opentrusty-core/role"
)

// CachedRoleRepository wraps a RoleRepository with a bounded in-memory cache
// of role *definitions*, keyed by ID and by lower-cased code+scope. It never
// caches an evaluation decision — only the role row a decision would need to
// look up — so a cache hit here changes nothing about how rbac.Evaluator
// decides anything.
type CachedRoleRepository struct {
	inner  *RoleRepository
	byID   *lru.Cache[string, *role.Role]
	byCode *lru.Cache[string, *role.Role]
}

// NewCachedRoleRepository wraps repo with an LRU cache holding up to size
// entries per lookup key (ID and code are cached separately).
func NewCachedRoleRepository(repo *RoleRepository, size int) (*CachedRoleRepository, error) {
	if size <= 0 {
		size = 256
	}
	byID, err := lru.New[string, *role.Role](size)
	if err != nil {
		return nil, err
	}
	byCode, err := lru.New[string, *role.Role](size)
	if err != nil {
		return nil, err
	}
	return &CachedRoleRepository{inner: repo, byID: byID, byCode: byCode}, nil
}

func codeKey(code string, scope role.Scope) string {
	return strings.ToLower(code) + "|" + string(scope)
}

// GetByID returns the cached role if present, otherwise delegates and caches
// the result.
func (c *CachedRoleRepository) GetByID(ctx context.Context, id string) (*role.Role, error) {
	if r, ok := c.byID.Get(id); ok {
		return r, nil
	}
	r, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.byID.Add(id, r)
	c.byCode.Add(codeKey(r.Code, r.Scope), r)
	return r, nil
}

// GetByCode returns the cached role if present, otherwise delegates and
// caches the result.
func (c *CachedRoleRepository) GetByCode(ctx context.Context, code string, scope role.Scope) (*role.Role, error) {
	key := codeKey(code, scope)
	if r, ok := c.byCode.Get(key); ok {
		return r, nil
	}
	r, err := c.inner.GetByCode(ctx, code, scope)
	if err != nil {
		return nil, err
	}
	c.byCode.Add(key, r)
	c.byID.Add(r.ID, r)
	return r, nil
}

// GetByCodes resolves each code individually through the cache. This is a
// batch convenience on top of the single-item cache, not a third cache
// dimension — the claim-extraction pipeline (§4.6) is the only caller that
// needs many codes at once, and it tolerates partial results.
func (c *CachedRoleRepository) GetByCodes(ctx context.Context, codes []string) ([]*role.Role, error) {
	var out []*role.Role
	var misses []string
	seen := make(map[string]bool)
	for _, code := range codes {
		found := false
		for _, scope := range []role.Scope{role.ScopePlatform, role.ScopeTenant, role.ScopeClient} {
			if r, ok := c.byCode.Get(codeKey(code, scope)); ok {
				if !seen[r.ID] {
					seen[r.ID] = true
					out = append(out, r)
				}
				found = true
			}
		}
		if !found {
			misses = append(misses, code)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}
	fetched, err := c.inner.GetByCodes(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, r := range fetched {
		c.byID.Add(r.ID, r)
		c.byCode.Add(codeKey(r.Code, r.Scope), r)
		if !seen[r.ID] {
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// List always goes straight to storage — it is an admin-surface listing
// operation, not a lookup this cache is meant to serve.
func (c *CachedRoleRepository) List(ctx context.Context, scope *role.Scope) ([]*role.Role, error) {
	return c.inner.List(ctx, scope)
}

// Create delegates and does not populate the cache; the next lookup will
// fill it lazily.
func (c *CachedRoleRepository) Create(ctx context.Context, ro *role.Role) error {
	return c.inner.Create(ctx, ro)
}

// Update delegates, then evicts any stale cached copy of this role so the
// next lookup re-reads the new definition instead of serving a stale hit.
func (c *CachedRoleRepository) Update(ctx context.Context, ro *role.Role) error {
	if err := c.inner.Update(ctx, ro); err != nil {
		return err
	}
	c.invalidate(ro)
	return nil
}

// Delete delegates, then evicts any cached copy of this role.
func (c *CachedRoleRepository) Delete(ctx context.Context, id string) error {
	existing, lookupErr := c.inner.GetByID(ctx, id)
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.byID.Remove(id)
	if lookupErr == nil {
		c.byCode.Remove(codeKey(existing.Code, existing.Scope))
	}
	return nil
}

func (c *CachedRoleRepository) invalidate(ro *role.Role) {
	c.byID.Remove(ro.ID)
	c.byCode.Remove(codeKey(ro.Code, ro.Scope))
}
