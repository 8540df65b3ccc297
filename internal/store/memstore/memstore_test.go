package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func TestMarkCodeUsedIsOneShot(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateAuthorizationCode(ctx, &model.OAuthAuthorizationCode{
		CodeValue: "code-1", ExpiresAt: time.Now().Add(time.Minute),
	}))

	ok, err := s.MarkCodeUsed(ctx, "code-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkCodeUsed(ctx, "code-1")
	require.NoError(t, err)
	assert.False(t, ok, "a second consume of the same code must not succeed")
}

func TestRevokeFamilyRevokesEveryLiveToken(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, hash := range []string{"h1", "h2", "h3"} {
		require.NoError(t, s.CreateRefreshToken(ctx, &model.RefreshToken{
			TokenHash: hash, FamilyID: "fam-1", ExpiresAt: time.Now().Add(time.Hour),
		}))
	}
	// revoke h2 individually first, reuse detection should still sweep it without error
	ok, err := s.RevokeRefreshToken(ctx, "h2")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.RevokeFamily(ctx, "fam-1"))

	for _, hash := range []string{"h1", "h2", "h3"} {
		tok, err := s.GetRefreshTokenByHash(ctx, hash)
		require.NoError(t, err)
		assert.NotNil(t, tok.RevokedAt, "token %s should be revoked", hash)
	}
}

func TestCountOwnersAndMembershipLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateWorkspaceMembership(ctx, &model.WorkspaceMembership{
		ID: "m1", WorkspaceID: "ws-1", UserID: "u1", Role: model.RoleOwner,
	}))
	require.NoError(t, s.CreateWorkspaceMembership(ctx, &model.WorkspaceMembership{
		ID: "m2", WorkspaceID: "ws-1", UserID: "u2", Role: model.RoleMember,
	}))

	n, err := s.CountOwners(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.UpdateWorkspaceMembershipRole(ctx, "ws-1", "u2", model.RoleOwner))
	n, err = s.CountOwners(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSoftDeleteFileRejectsDoubleDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateFile(ctx, &model.File{ID: "f1", ProjectID: "p1", SizeBytes: 10}))

	require.NoError(t, s.SoftDeleteFile(ctx, "f1"))
	err := s.SoftDeleteFile(ctx, "f1")
	assert.Error(t, err, "deleting an already-deleted file must fail")
}

func TestUsageForProjectExcludesDeleted(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateFile(ctx, &model.File{ID: "f1", ProjectID: "p1", SizeBytes: 100}))
	require.NoError(t, s.CreateFile(ctx, &model.File{ID: "f2", ProjectID: "p1", SizeBytes: 200}))
	require.NoError(t, s.SoftDeleteFile(ctx, "f2"))

	count, total, err := s.UsageForProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(100), total)
}

func TestListFilesPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 25; i++ {
		require.NoError(t, s.CreateFile(ctx, &model.File{
			ID: string(rune('a' + i)), ProjectID: "p1",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	files, total, err := s.ListFiles(ctx, "p1", nil, nil, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, files, 20, "default page size clamps to 20")
}
