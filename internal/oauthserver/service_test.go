package oauthserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifcserve/hub/internal/cryptoutil"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store/memstore"
)

func newTestService(t *testing.T) (*Service, *model.OAuthApp) {
	t.Helper()
	s := memstore.New()
	issuer, err := NewIssuer([]byte("test-signing-key-0123456789abcdef"))
	require.NoError(t, err)
	svc := NewService(s, issuer)

	app := &model.OAuthApp{
		ID: "app1", WorkspaceID: "ws1", Name: "Test App", ClientType: model.ClientPublic,
		ClientID: "client1", RedirectURIs: []string{"https://example.com/cb"},
		AllowedScopes: map[string]struct{}{"files:read": {}, "files:write": {}},
		IsEnabled:     true,
	}
	require.NoError(t, s.CreateOAuthApp(context.Background(), app))
	return svc, app
}

func TestAuthorizeAndExchangeHappyPath(t *testing.T) {
	ctx := context.Background()
	svc, app := newTestService(t)

	verifier := "test-verifier-0123456789abcdefghijklmno"
	challenge := cryptoutil.S256Challenge(verifier)

	code, err := svc.Authorize(ctx, AuthorizeRequest{
		ClientID: app.ClientID, RedirectURI: "https://example.com/cb",
		ResponseType: "code",
		Scope: "files:read", UserID: "user1", WorkspaceID: "ws1",
		CodeChallenge: challenge, CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)
	require.NotEmpty(t, code)

	resp, err := svc.ExchangeAuthorizationCode(ctx, app.ClientID, "", code, "https://example.com/cb", verifier)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "files:read", resp.Scope)

	verified, err := svc.issuer.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user1", verified.UserID)
	assert.Equal(t, "ws1", verified.WorkspaceID)
}

func TestExchangeRejectsCodeReuse(t *testing.T) {
	ctx := context.Background()
	svc, app := newTestService(t)
	verifier := "test-verifier-0123456789abcdefghijklmno"
	challenge := cryptoutil.S256Challenge(verifier)

	code, err := svc.Authorize(ctx, AuthorizeRequest{
		ClientID: app.ClientID, RedirectURI: "https://example.com/cb",
		ResponseType: "code",
		Scope: "files:read", UserID: "user1", WorkspaceID: "ws1",
		CodeChallenge: challenge, CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)

	_, err = svc.ExchangeAuthorizationCode(ctx, app.ClientID, "", code, "https://example.com/cb", verifier)
	require.NoError(t, err)

	_, err = svc.ExchangeAuthorizationCode(ctx, app.ClientID, "", code, "https://example.com/cb", verifier)
	require.Error(t, err)
}

func TestExchangeRejectsBadVerifier(t *testing.T) {
	ctx := context.Background()
	svc, app := newTestService(t)
	challenge := cryptoutil.S256Challenge("real-verifier-0123456789abcdefghijklmno")

	code, err := svc.Authorize(ctx, AuthorizeRequest{
		ClientID: app.ClientID, RedirectURI: "https://example.com/cb",
		ResponseType: "code",
		Scope: "files:read", UserID: "user1", WorkspaceID: "ws1",
		CodeChallenge: challenge, CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)

	_, err = svc.ExchangeAuthorizationCode(ctx, app.ClientID, "", code, "https://example.com/cb", "wrong-verifier")
	require.Error(t, err)
}

func TestRefreshGrantRotatesAndDetectsReuse(t *testing.T) {
	ctx := context.Background()
	svc, app := newTestService(t)
	verifier := "test-verifier-0123456789abcdefghijklmno"
	challenge := cryptoutil.S256Challenge(verifier)

	code, err := svc.Authorize(ctx, AuthorizeRequest{
		ClientID: app.ClientID, RedirectURI: "https://example.com/cb",
		ResponseType: "code",
		Scope: "files:read", UserID: "user1", WorkspaceID: "ws1",
		CodeChallenge: challenge, CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)
	first, err := svc.ExchangeAuthorizationCode(ctx, app.ClientID, "", code, "https://example.com/cb", verifier)
	require.NoError(t, err)

	second, err := svc.RefreshGrant(ctx, app.ClientID, "", first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Reusing the now-rotated-away first token must revoke the family and
	// fail even the otherwise-valid second token.
	_, err = svc.RefreshGrant(ctx, app.ClientID, "", first.RefreshToken)
	require.Error(t, err)

	_, err = svc.RefreshGrant(ctx, app.ClientID, "", second.RefreshToken)
	require.Error(t, err)
}

func TestConfidentialClientRequiresSecret(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	issuer, err := NewIssuer([]byte("test-signing-key-0123456789abcdef"))
	require.NoError(t, err)
	svc := NewService(s, issuer)

	hash, err := cryptoutil.HashSecret("app-secret-value")
	require.NoError(t, err)
	app := &model.OAuthApp{
		ID: "app2", WorkspaceID: "ws1", Name: "Confidential App", ClientType: model.ClientConfidential,
		ClientID: "client2", ClientSecretHash: hash.Encode(),
		RedirectURIs:  []string{"https://example.com/cb"},
		AllowedScopes: map[string]struct{}{"files:read": {}},
		IsEnabled:     true,
	}
	require.NoError(t, s.CreateOAuthApp(ctx, app))

	verifier := "test-verifier-0123456789abcdefghijklmno"
	challenge := cryptoutil.S256Challenge(verifier)
	code, err := svc.Authorize(ctx, AuthorizeRequest{
		ClientID: app.ClientID, RedirectURI: "https://example.com/cb",
		ResponseType: "code",
		Scope: "files:read", UserID: "user1", WorkspaceID: "ws1",
		CodeChallenge: challenge, CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)

	_, err = svc.ExchangeAuthorizationCode(ctx, app.ClientID, "wrong-secret", code, "https://example.com/cb", verifier)
	require.Error(t, err)

	_, err = svc.ExchangeAuthorizationCode(ctx, app.ClientID, "app-secret-value", code, "https://example.com/cb", verifier)
	require.NoError(t, err)
}
