// Package authz is the C2 scope & isolation gate: it checks that a caller's
// token carries a required scope and, where a request is bound to a
// workspace (the token's "tid" claim), that the path's resource actually
// belongs to that workspace. Grounded on the teacher's
// authority.AccessController.Authorize (single entry point taking a
// structured input, returning an *apierrors.Error on denial) adapted from
// k8s Role/RoleVerb matching to scope-string membership.
package authz

import (
	"context"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/identity"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

// Principal is the resolved identity of an authenticated request, set by
// whichever authenticator ran (OAuth bearer, PAT). For a PAT, tid is the
// workspace the PAT was issued in.
type Principal struct {
	UserID      string
	WorkspaceID string // "tid" claim; empty means "not workspace-bound"
	Scopes      map[string]struct{}
}

func (p Principal) HasScope(scope string) bool {
	_, ok := p.Scopes[scope]
	return ok
}

// Gate is the C2 authorization check: RequireScope asserts scope
// membership; RequireWorkspace additionally asserts tid isolation when the
// principal's token is workspace-bound (spec §4.2).
type Gate struct {
	store    store.Store
	identity *identity.Service
}

func NewGate(s store.Store, idsvc *identity.Service) *Gate {
	return &Gate{store: s, identity: idsvc}
}

// RequireScope fails closed: a principal with no matching scope is denied
// regardless of role.
func RequireScope(p Principal, scope string) error {
	if !p.HasScope(scope) {
		return apierrors.NewAuthorization("missing required scope: " + scope)
	}
	return nil
}

// RequireWorkspace enforces tid isolation: a workspace-bound token (tid set)
// may only act on the workspace it was minted for; PATs are bound the same
// way. A token without a tid is not isolation bound and passes through to
// the role check below.
func (g *Gate) RequireWorkspace(p Principal, workspaceID string) error {
	if p.WorkspaceID != "" && p.WorkspaceID != workspaceID {
		return apierrors.NewAuthorization("token is not valid for this workspace")
	}
	return nil
}

// RequireWorkspaceRole additionally checks the caller's membership rank.
func (g *Gate) RequireWorkspaceRole(ctx context.Context, p Principal, workspaceID string, min model.WorkspaceRole) error {
	if err := g.RequireWorkspace(p, workspaceID); err != nil {
		return err
	}
	m, err := g.store.GetWorkspaceMembership(ctx, workspaceID, p.UserID)
	if err != nil {
		if _, ok := err.(store.ErrNotFound); ok {
			return apierrors.NewAuthorization("not a member of this workspace")
		}
		return err
	}
	if !m.Role.AtLeast(min) {
		return apierrors.NewAuthorization("insufficient workspace role")
	}
	return nil
}

// HideAsNotFound converts an authorization-denied error into NotFound. Spec
// §4.1: all authorization failures on existence-sensitive reads MUST return
// "not found", not "forbidden", so a caller probing file/model/version IDs
// across tenants can't distinguish "doesn't exist" from "exists, denied."
// Non-authorization errors (including NotFound from the lookup itself) pass
// through unchanged.
func HideAsNotFound(err error) error {
	apiErr, ok := err.(*apierrors.Error)
	if !ok || apiErr.Code != apierrors.CodeAuthorization {
		return err
	}
	return apierrors.NewNotFound("not found")
}

// RequireProjectRole resolves the caller's effective ProjectRole (explicit
// membership, else derived from workspace role) and checks it against min.
// It also binds isolation via the project's owning workspace.
func (g *Gate) RequireProjectRole(ctx context.Context, p Principal, projectID string, min model.ProjectRole) error {
	proj, err := g.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := g.RequireWorkspace(p, proj.WorkspaceID); err != nil {
		return err
	}
	role, ok, err := g.identity.ResolveProjectRole(ctx, p.UserID, projectID)
	if err != nil {
		return err
	}
	if !ok || !role.AtLeast(min) {
		return apierrors.NewAuthorization("insufficient project role")
	}
	return nil
}
