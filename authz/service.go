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

// Package authz implements the C6 Permission Service: the orchestrator that
// turns a token's claims into a has_permission-style answer. It owns none of
// the evaluation logic itself (that's package rbac) and none of the
// directive/identifier grammar (that's package policy) — its job is claim
// extraction, role resolution, and the legacy rbac_version fallback.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opentrusty/opentrusty-core/audit"
	"github.com/opentrusty/opentrusty-core/policy"
	"github.com/opentrusty/opentrusty-core/project"
	"github.com/opentrusty/opentrusty-core/rbac"
	"github.com/opentrusty/opentrusty-core/role"
)

// RBAC version claim values (§4.6 step 5). A token carrying no rbac_version
// claim at all is treated the same as RBACVersionLegacy.
const (
	RBACVersionLegacy  = "1"
	RBACVersionCurrent = "2"
)

// ErrReservedClaim is returned by GuardReservedClaim for a claim type the
// token-mutation surface must never add, remove, or overwrite directly.
var ErrReservedClaim = errors.New("authz: claim type is reserved")

// reservedClaimTypes are claim types whose values this package derives or
// that identify the subject; an external TokenService must not let callers
// mutate them through a generic "set claim" API (§4.6): the subject
// identifier, the display name, the JWT standard `sub`/`jti`/`iat` claims,
// and the `scope` claim (alterable only via explicit scopesToAdd/
// scopesToRemove parameters, never a generic claim mutation).
var reservedClaimTypes = map[string]bool{
	"sub":          true,
	"name":         true,
	"jti":          true,
	"iat":          true,
	"scope":        true,
	"role":         true,
	"rbac_version": true,
}

// GuardReservedClaim returns ErrReservedClaim if claimType is one a
// mutation API must refuse to touch directly.
func GuardReservedClaim(claimType string) error {
	if reservedClaimTypes[strings.ToLower(claimType)] {
		return fmt.Errorf("%w: %q", ErrReservedClaim, claimType)
	}
	return nil
}

// ClaimSet is the subset of an already-validated token's claims the
// permission service consumes. Verifying the token itself (signature,
// expiry, issuer) is the caller's job; by the time a ClaimSet reaches this
// package it is assumed trustworthy.
type ClaimSet struct {
	Subject     string
	Scope       string   // space-separated scope directives (§6.1)
	Roles       []string // each a "CODE;k=v;..." occurrence (§3.6), repeatable claim
	RBACVersion string   // "1" (or empty) is legacy, "2" triggers full evaluation
}

func isLegacy(version string) bool {
	return version == "" || version == RBACVersionLegacy
}

// UserRoleAssignment represents a role assigned to a user with scope.
type UserRoleAssignment struct {
	RoleID   string  `json:"role_id"`
	RoleName string  `json:"role_name"`
	Scope    string  `json:"scope"`
	Context  *string `json:"context,omitempty"`
}

// ProjectInfo represents simplified project information for external systems.
type ProjectInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UserInfoClaims represents the claims to be returned in the userinfo endpoint.
type UserInfoClaims struct {
	Roles    []string       `json:"roles"`
	Projects []*ProjectInfo `json:"projects"`
}

// Service is the C6 Permission Service. It holds no mutable state of its
// own — every call resolves a ClaimSet's roles and scope fresh, since a
// cached decision could outlive a revoked role assignment.
type Service struct {
	evaluator   *rbac.Evaluator
	roleRepo    role.RoleRepository
	assignments role.AssignmentRepository
	projectRepo project.ProjectRepository
	auditLogger audit.Logger
	metrics     *Metrics
}

// NewService builds a Service. A nil evaluator is replaced by one over the
// default catalog (rbac.New(nil)). auditLogger and
// metrics are optional; pass nil for either to skip that integration.
func NewService(
	evaluator *rbac.Evaluator,
	roleRepo role.RoleRepository,
	assignments role.AssignmentRepository,
	projectRepo project.ProjectRepository,
	auditLogger audit.Logger,
	metrics *Metrics,
) *Service {
	if evaluator == nil {
		evaluator = rbac.New(nil)
	}
	return &Service{
		evaluator:   evaluator,
		roleRepo:    roleRepo,
		assignments: assignments,
		projectRepo: projectRepo,
		auditLogger: auditLogger,
		metrics:     metrics,
	}
}

// ValidateIdentifiers reports whether every id in ids parses and resolves to
// an assignable catalog node. Used by admin surfaces before persisting a
// scope claim or scope template that references them.
func (s *Service) ValidateIdentifiers(ids []string) bool {
	for _, raw := range ids {
		if _, _, ok := s.resolveRequest(raw); !ok {
			return false
		}
	}
	return true
}

// Resolve parses and resolves every id in ids against the catalog,
// discarding any that are malformed or not assignable.
func (s *Service) Resolve(ids []string) []*policy.Node {
	var out []*policy.Node
	for _, raw := range ids {
		_, node, ok := s.resolveRequest(raw)
		if !ok {
			continue
		}
		out = append(out, node)
	}
	return out
}

// resolveRequest parses raw as an identifier and resolves it against the
// evaluator's catalog, requiring the result to be assignable. A malformed
// identifier or an unassignable/unknown path both report ok=false — neither
// is an error the caller needs to see, since "not a real permission" and
// "not granted" collapse to the same denial.
func (s *Service) resolveRequest(raw string) (policy.ParsedIdentifier, *policy.Node, bool) {
	parsed, err := policy.ParseIdentifier(raw)
	if err != nil {
		return policy.ParsedIdentifier{}, nil, false
	}
	node, err := parsed.Resolve(s.evaluator.Catalog())
	if err != nil || !node.Assignable() {
		return policy.ParsedIdentifier{}, nil, false
	}
	return parsed, node, true
}

// evaluationContext is the per-call result of claim extraction: either the
// legacy short-circuit applies, or directives holds the merged, expanded
// set of scope directives to evaluate against. Computing this once per
// Has*-call lets HasAny/HasAll check many identifiers without repeating the
// role repository round trip per identifier.
type evaluationContext struct {
	legacy     bool
	directives []policy.ScopeDirective
}

func (s *Service) prepare(ctx context.Context, claims ClaimSet) (evaluationContext, error) {
	if err := ctx.Err(); err != nil {
		return evaluationContext{}, fmt.Errorf("authz: %w", err)
	}
	if isLegacy(claims.RBACVersion) {
		return evaluationContext{legacy: true}, nil
	}
	directives, err := s.extractDirectives(ctx, claims)
	if err != nil {
		return evaluationContext{}, err
	}
	return evaluationContext{directives: directives}, nil
}

// extractDirectives runs the claim-extraction pipeline of §4.6 steps 1-4: it
// tolerantly parses the scope claim's directives, tolerantly parses each
// role claim occurrence, fetches the matching role definitions in one
// repository call, and expands each binding against its role's templates.
// A malformed individual token is dropped with a warning log, never an
// error; only a repository failure (or ctx cancellation) aborts the whole
// extraction.
func (s *Service) extractDirectives(ctx context.Context, claims ClaimSet) ([]policy.ScopeDirective, error) {
	var directives []policy.ScopeDirective

	for _, tok := range strings.Fields(claims.Scope) {
		d, ok := policy.TryParseDirective(tok)
		if !ok {
			slog.WarnContext(ctx, "authz: dropping malformed scope directive", "token", tok)
			continue
		}
		directives = append(directives, d)
	}

	var bindings []role.RoleBinding
	seen := make(map[string]struct{})
	var codes []string
	for _, raw := range claims.Roles {
		b, err := role.ParseRoleClaim(raw)
		if err != nil {
			slog.WarnContext(ctx, "authz: dropping malformed role claim", "claim", raw, "error", err)
			continue
		}
		bindings = append(bindings, b)
		key := strings.ToLower(b.Code)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			codes = append(codes, b.Code)
		}
	}

	if len(codes) == 0 || s.roleRepo == nil {
		return directives, nil
	}

	roles, err := s.roleRepo.GetByCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("authz: resolve roles: %w", err)
	}
	byCode := make(map[string]*role.Role, len(roles))
	for _, r := range roles {
		byCode[strings.ToLower(r.Code)] = r
	}

	for _, b := range bindings {
		r, ok := byCode[strings.ToLower(b.Code)]
		if !ok {
			// Claim references a role code no longer defined; drop it
			// rather than failing the whole check (§7).
			continue
		}
		directives = append(directives, role.ExpandAll(r, b.Parameters)...)
	}

	return directives, nil
}

func (s *Service) decide(ec evaluationContext, id policy.ParsedIdentifier) bool {
	if ec.legacy {
		return true
	}
	return s.evaluator.EvaluateIdentifier(ec.directives, id)
}

// HasPermission answers whether claims grants id.
func (s *Service) HasPermission(ctx context.Context, claims ClaimSet, id string) (bool, error) {
	parsed, _, ok := s.resolveRequest(id)
	if !ok {
		s.metrics.recordRejected()
		return false, nil
	}

	ec, err := s.prepare(ctx, claims)
	if err != nil {
		return false, err
	}

	allowed := s.decide(ec, parsed)
	s.observe(ctx, claims, id, allowed, ec.legacy)
	return allowed, nil
}

// HasAny answers whether claims grants at least one identifier in ids.
func (s *Service) HasAny(ctx context.Context, claims ClaimSet, ids []string) (bool, error) {
	ec, err := s.prepare(ctx, claims)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		parsed, _, ok := s.resolveRequest(id)
		if !ok {
			continue
		}
		if s.decide(ec, parsed) {
			s.observe(ctx, claims, id, true, ec.legacy)
			return true, nil
		}
	}
	return false, nil
}

// HasAll answers whether claims grants every identifier in ids. An empty
// ids slice answers false — there is nothing to have been granted.
func (s *Service) HasAll(ctx context.Context, claims ClaimSet, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	ec, err := s.prepare(ctx, claims)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		parsed, _, ok := s.resolveRequest(id)
		if !ok {
			s.observe(ctx, claims, id, false, ec.legacy)
			return false, nil
		}
		if !s.decide(ec, parsed) {
			s.observe(ctx, claims, id, false, ec.legacy)
			return false, nil
		}
	}
	return true, nil
}

// observe records metrics and, for denied non-legacy decisions, an audit
// event. Legacy grants are not audited as evaluations — they never reached
// the evaluator — but they still count in metrics under the "legacy" label.
func (s *Service) observe(ctx context.Context, claims ClaimSet, id string, allowed, legacy bool) {
	s.metrics.recordDecision(allowed, legacy)
	if legacy || allowed {
		return
	}
	slog.WarnContext(ctx, "authz: permission denied", "subject", claims.Subject, "permission", id)
	if s.auditLogger == nil {
		return
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionDenied,
		ActorID:  claims.Subject,
		Resource: audit.ResourceRole,
		TargetID: id,
		Metadata: map[string]any{"permission": id},
	})
}

// GetUserRoles retrieves all unique role names for a user across all scopes.
func (s *Service) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	assignments, err := s.assignments.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user assignments: %w", err)
	}

	roleMap := make(map[string]bool)
	for _, a := range assignments {
		r, err := s.roleRepo.GetByID(ctx, a.RoleID)
		if err != nil {
			continue
		}
		roleMap[r.Name] = true
	}

	roleNames := make([]string, 0, len(roleMap))
	for name := range roleMap {
		roleNames = append(roleNames, name)
	}

	return roleNames, nil
}

// GetUserRoleAssignments retrieves all role assignments for a user with details.
func (s *Service) GetUserRoleAssignments(ctx context.Context, userID string) ([]UserRoleAssignment, error) {
	assignments, err := s.assignments.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user assignments: %w", err)
	}

	var result []UserRoleAssignment
	for _, a := range assignments {
		r, err := s.roleRepo.GetByID(ctx, a.RoleID)
		name := "unknown"
		if err == nil {
			name = r.Name
		}
		result = append(result, UserRoleAssignment{
			RoleID:   a.RoleID,
			RoleName: name,
			Scope:    string(a.Scope),
			Context:  a.ScopeContextID,
		})
	}

	return result, nil
}

// GetUserProjects retrieves all projects a user has access to.
func (s *Service) GetUserProjects(ctx context.Context, userID string) ([]*project.Project, error) {
	return s.projectRepo.ListByUser(ctx, userID)
}

// BuildUserInfoClaims builds the authorization claims for a user.
func (s *Service) BuildUserInfoClaims(ctx context.Context, userID string) (*UserInfoClaims, error) {
	roles, err := s.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	projects, err := s.GetUserProjects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user projects: %w", err)
	}

	projectInfos := make([]*ProjectInfo, 0, len(projects))
	for _, p := range projects {
		projectInfos = append(projectInfos, &ProjectInfo{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
		})
	}

	return &UserInfoClaims{
		Roles:    roles,
		Projects: projectInfos,
	}, nil
}
