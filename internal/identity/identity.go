// Package identity implements C1: users, workspaces, projects, memberships
// and the workspace-invite flow. Grounded on the teacher's
// authority.AccessController (pkg/handlers/authority/access_controller.go)
// for the shape of a store-backed service object exposing role-resolution
// as its central method, adapted from k8s Role/RoleVerb matching to the
// hierarchical WorkspaceRole/ProjectRole ranks in internal/model.
package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/config"
	"github.com/ifcserve/hub/internal/cryptoutil"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/notify"
	"github.com/ifcserve/hub/internal/store"
)

// Service is the store-backed C1 authority. A single instance is
// constructed at server startup and handed to the HTTP layer.
type Service struct {
	store store.Store
	mail  *notify.Mailer
}

func NewService(s store.Store, mail *notify.Mailer) *Service {
	return &Service{store: s, mail: mail}
}

// ResolveProjectRole implements the role-derivation algorithm (spec §3/§4.1):
// an explicit ProjectMembership always wins; absent one, a WorkspaceRole of
// Owner or Admin derives ProjectAdmin, Member derives Viewer, and Guest (or
// no membership at all) derives no access.
func (s *Service) ResolveProjectRole(ctx context.Context, userID, projectID string) (model.ProjectRole, bool, error) {
	proj, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return "", false, err
	}

	if pm, err := s.store.GetProjectMembership(ctx, projectID, userID); err == nil {
		return pm.Role, true, nil
	} else if _, ok := err.(store.ErrNotFound); !ok {
		return "", false, err
	}

	wm, err := s.store.GetWorkspaceMembership(ctx, proj.WorkspaceID, userID)
	if err != nil {
		if _, ok := err.(store.ErrNotFound); ok {
			return "", false, nil
		}
		return "", false, err
	}

	switch {
	case wm.Role.AtLeast(model.RoleAdmin):
		return model.ProjectRoleProjectAdmin, true, nil
	case wm.Role.AtLeast(model.RoleMember):
		return model.ProjectRoleViewer, true, nil
	default:
		return "", false, nil
	}
}

// CreateWorkspace creates a workspace and makes the creator its first Owner,
// satisfying the invariant that a workspace always has at least one Owner.
func (s *Service) CreateWorkspace(ctx context.Context, name, description, creatorUserID string) (*model.Workspace, error) {
	now := time.Now().UTC()
	w := &model.Workspace{
		ID: uuid.NewString(), Name: name, Description: description,
		CreatedAt: now, UpdatedAt: now,
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.CreateWorkspace(ctx, w); err != nil {
			return err
		}
		return tx.CreateWorkspaceMembership(ctx, &model.WorkspaceMembership{
			ID: uuid.NewString(), WorkspaceID: w.ID, UserID: creatorUserID,
			Role: model.RoleOwner, CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// UpdateMemberRole changes a membership's role, rejecting a demotion that
// would leave the workspace without any Owner.
func (s *Service) UpdateMemberRole(ctx context.Context, workspaceID, userID string, newRole model.WorkspaceRole) error {
	current, err := s.store.GetWorkspaceMembership(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if current.Role == model.RoleOwner && newRole != model.RoleOwner {
		if err := s.requireAnotherOwner(ctx, workspaceID); err != nil {
			return err
		}
	}
	return s.store.UpdateWorkspaceMembershipRole(ctx, workspaceID, userID, newRole)
}

// RemoveMember removes a membership, subject to the same last-Owner guard.
func (s *Service) RemoveMember(ctx context.Context, workspaceID, userID string) error {
	current, err := s.store.GetWorkspaceMembership(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if current.Role == model.RoleOwner {
		if err := s.requireAnotherOwner(ctx, workspaceID); err != nil {
			return err
		}
	}
	return s.store.DeleteWorkspaceMembership(ctx, workspaceID, userID)
}

// requireAnotherOwner returns a CodeInvalidState error unless the workspace
// has at least 2 Owners right now (i.e. the caller's demotion/removal would
// still leave one behind).
func (s *Service) requireAnotherOwner(ctx context.Context, workspaceID string) error {
	n, err := s.store.CountOwners(ctx, workspaceID)
	if err != nil {
		return err
	}
	if n < 2 {
		return apierrors.NewInvalidState("workspace must retain at least one Owner")
	}
	return nil
}

func (s *Service) CreateProject(ctx context.Context, workspaceID, name, description string) (*model.Project, error) {
	now := time.Now().UTC()
	p := &model.Project{
		ID: uuid.NewString(), WorkspaceID: workspaceID, Name: name, Description: description,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateInvite issues a workspace invite and emails it, if a mailer is
// configured. Supplements the spec's named-but-unmodeled
// POST /workspaces/invites/{token}/accept endpoint (SPEC_FULL.md §3/§4).
func (s *Service) CreateInvite(ctx context.Context, workspaceID, email string, role model.WorkspaceRole, invitedByUserID, acceptURLPrefix string) (*model.WorkspaceInvite, error) {
	token, err := cryptoutil.RandomToken(24)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	inv := &model.WorkspaceInvite{
		ID: uuid.NewString(), WorkspaceID: workspaceID, Email: email, Role: role,
		Token: token, InvitedByUserID: invitedByUserID, Status: model.InvitePending,
		CreatedAt: now, ExpiresAt: now.Add(config.InviteTTL()),
	}
	if err := s.store.CreateInvite(ctx, inv); err != nil {
		return nil, err
	}
	if s.mail != nil {
		ws, err := s.store.GetWorkspace(ctx, workspaceID)
		if err == nil {
			_ = s.mail.SendWorkspaceInvite(email, ws.Name, acceptURLPrefix+token)
		}
	}
	return inv, nil
}

// ListInvites returns every invite issued for a workspace, pending or not
// (SPEC_FULL.md §6: "GET /workspaces/{id}/invites").
func (s *Service) ListInvites(ctx context.Context, workspaceID string) ([]*model.WorkspaceInvite, error) {
	return s.store.ListInvites(ctx, workspaceID)
}

// AcceptInvite redeems a pending, unexpired invite into a membership for
// userID. Accepting twice, or after expiry, fails with CodeInvalidState; a
// pending invite for a user who is already a member fails with CodeConflict.
func (s *Service) AcceptInvite(ctx context.Context, token, userID string) (*model.WorkspaceMembership, error) {
	inv, err := s.store.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.Status != model.InvitePending {
		return nil, apierrors.NewInvalidState("invite is no longer pending")
	}
	if time.Now().UTC().After(inv.ExpiresAt) {
		inv.Status = model.InviteExpired
		_ = s.store.UpdateInvite(ctx, inv)
		return nil, apierrors.NewInvalidState("invite has expired")
	}
	if _, err := s.store.GetWorkspaceMembership(ctx, inv.WorkspaceID, userID); err == nil {
		return nil, apierrors.NewConflict("user is already a member of this workspace")
	} else if _, ok := err.(store.ErrNotFound); !ok {
		return nil, err
	}

	var m *model.WorkspaceMembership
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		m = &model.WorkspaceMembership{
			ID: uuid.NewString(), WorkspaceID: inv.WorkspaceID, UserID: userID,
			Role: inv.Role, CreatedAt: time.Now().UTC(),
		}
		if err := tx.CreateWorkspaceMembership(ctx, m); err != nil {
			return err
		}
		inv.Status = model.InviteAccepted
		return tx.UpdateInvite(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
