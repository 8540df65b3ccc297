package pat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifcserve/hub/internal/store/memstore"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := NewService(s)

	raw, pat, err := svc.Issue(ctx, "ws1", "user1", "CI token", "", []string{"files:read"}, nil, "127.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	got, err := svc.Verify(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, pat.ID, got.ID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := NewService(s)

	raw, _, err := svc.Issue(ctx, "ws1", "user1", "CI token", "", nil, nil, "")
	require.NoError(t, err)

	tampered := raw[:len(raw)-1] + "x"
	_, err = svc.Verify(ctx, tampered)
	require.Error(t, err)
}

func TestVerifyRejectsRevoked(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := NewService(s)

	raw, pat, err := svc.Issue(ctx, "ws1", "user1", "CI token", "", nil, nil, "")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pat.ID, "user1", "", false))

	_, err = svc.Verify(ctx, raw)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := NewService(s)

	past := time.Now().UTC().Add(-time.Hour)
	raw, _, err := svc.Issue(ctx, "ws1", "user1", "CI token", "", nil, &past, "")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, raw)
	require.Error(t, err)
}

func TestIssueRejectsExcessiveExpiry(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := NewService(s)

	farFuture := time.Now().UTC().AddDate(10, 0, 0)
	_, _, err := svc.Issue(ctx, "ws1", "user1", "CI token", "", nil, &farFuture, "")
	require.Error(t, err)
}
