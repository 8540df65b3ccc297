package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store/memstore"
)

func TestResolveProjectRoleExplicitMembershipWins(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewService(st, nil)

	require.NoError(t, st.CreateProject(ctx, &model.Project{ID: "p1", WorkspaceID: "ws1"}))
	require.NoError(t, st.CreateWorkspaceMembership(ctx, &model.WorkspaceMembership{
		ID: "wm1", WorkspaceID: "ws1", UserID: "u1", Role: model.RoleGuest,
	}))
	require.NoError(t, st.CreateProjectMembership(ctx, &model.ProjectMembership{
		ID: "pm1", ProjectID: "p1", UserID: "u1", Role: model.ProjectRoleEditor,
	}))

	role, ok, err := svc.ResolveProjectRole(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.ProjectRoleEditor, role)
}

func TestResolveProjectRoleDerivedFromWorkspace(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewService(st, nil)
	require.NoError(t, st.CreateProject(ctx, &model.Project{ID: "p1", WorkspaceID: "ws1"}))

	cases := []struct {
		wsRole   model.WorkspaceRole
		wantRole model.ProjectRole
		wantOK   bool
	}{
		{model.RoleOwner, model.ProjectRoleProjectAdmin, true},
		{model.RoleAdmin, model.ProjectRoleProjectAdmin, true},
		{model.RoleMember, model.ProjectRoleViewer, true},
		{model.RoleGuest, "", false},
	}
	for i, c := range cases {
		userID := string(rune('a' + i))
		require.NoError(t, st.CreateWorkspaceMembership(ctx, &model.WorkspaceMembership{
			ID: userID, WorkspaceID: "ws1", UserID: userID, Role: c.wsRole,
		}))
		role, ok, err := svc.ResolveProjectRole(ctx, userID, "p1")
		require.NoError(t, err)
		assert.Equal(t, c.wantOK, ok, "role %s", c.wsRole)
		assert.Equal(t, c.wantRole, role, "role %s", c.wsRole)
	}
}

func TestResolveProjectRoleNoMembershipAtAll(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewService(st, nil)
	require.NoError(t, st.CreateProject(ctx, &model.Project{ID: "p1", WorkspaceID: "ws1"}))

	_, ok, err := svc.ResolveProjectRole(ctx, "stranger", "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLastOwnerInvariantBlocksDemotion(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewService(st, nil)

	ws, err := svc.CreateWorkspace(ctx, "acme", "", "owner-1")
	require.NoError(t, err)

	err = svc.UpdateMemberRole(ctx, ws.ID, "owner-1", model.RoleAdmin)
	require.Error(t, err)
	apiErr, ok := err.(*apierrors.Error)
	require.True(t, ok)
	assert.Equal(t, apierrors.CodeInvalidState, apiErr.Code)
}

func TestLastOwnerInvariantAllowsDemotionWithAnotherOwner(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewService(st, nil)

	ws, err := svc.CreateWorkspace(ctx, "acme", "", "owner-1")
	require.NoError(t, err)
	require.NoError(t, st.CreateWorkspaceMembership(ctx, &model.WorkspaceMembership{
		ID: "wm2", WorkspaceID: ws.ID, UserID: "owner-2", Role: model.RoleOwner,
	}))

	require.NoError(t, svc.UpdateMemberRole(ctx, ws.ID, "owner-1", model.RoleMember))
}

func TestAcceptInviteIsOneShot(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewService(st, nil)

	ws, err := svc.CreateWorkspace(ctx, "acme", "", "owner-1")
	require.NoError(t, err)

	inv, err := svc.CreateInvite(ctx, ws.ID, "new@user.test", model.RoleMember, "owner-1", "https://app/invites/")
	require.NoError(t, err)

	_, err = svc.AcceptInvite(ctx, inv.Token, "new-user")
	require.NoError(t, err)

	_, err = svc.AcceptInvite(ctx, inv.Token, "new-user")
	require.Error(t, err, "accepting the same invite twice must fail")
}
