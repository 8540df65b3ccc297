// Package oauthserver implements C3: the OAuth 2.1 authorization-code grant
// with mandatory PKCE, confidential-client secret verification, and
// refresh-token rotation with reuse-detection family revocation. Grounded
// on the teacher's authority package for its TokenInterface-style service
// object and klog.ErrorS logging idiom (pkg/handlers/authority/sso_token.go,
// token_refresher.go), adapted from SSO delegation to the service acting as
// its own authorization server.
package oauthserver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/audit"
	"github.com/ifcserve/hub/internal/config"
	"github.com/ifcserve/hub/internal/cryptoutil"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

type Service struct {
	store  store.Store
	issuer *Issuer
}

func NewService(s store.Store, issuer *Issuer) *Service {
	return &Service{store: s, issuer: issuer}
}

// AuthorizeRequest is the parsed /oauth/authorize query.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	CodeChallenge        string
	CodeChallengeMethod string
	UserID              string // resolved from the caller's session before this call
	WorkspaceID         string
}

// Authorize validates the request against the registered app and issues a
// one-shot authorization code. Validation order follows spec §4.3 exactly:
// (a) client_id and (b) redirect_uri are checked first and their failures
// are never redirectable (an unregistered redirect_uri must not become an
// open redirect for the error itself); every failure from (c) onward is
// redirectable, since by then the caller's redirect_uri is known good.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (code string, err error) {
	app, err := s.store.GetOAuthAppByClientID(ctx, req.ClientID)
	if err != nil {
		return "", apierrors.NewOAuthError("invalid_request", 400, "unknown client")
	}
	if !app.IsEnabled {
		return "", apierrors.NewOAuthError("invalid_request", 400, "client is disabled")
	}
	if !containsURI(app.RedirectURIs, req.RedirectURI) {
		return "", apierrors.NewOAuthError("invalid_request", 400, "redirect_uri not registered")
	}

	if req.ResponseType != "code" {
		return "", apierrors.NewOAuthRedirectError("unsupported_response_type", 400, "response_type must be code")
	}

	method := model.PKCEMethod(req.CodeChallengeMethod)
	if method == "" {
		method = model.PKCES256
	}
	if req.CodeChallenge == "" {
		return "", apierrors.NewOAuthRedirectError("invalid_request", 400, "code_challenge is required")
	}

	scopes := splitScopes(req.Scope)
	for _, sc := range scopes {
		if _, ok := app.AllowedScopes[sc]; !ok {
			return "", apierrors.NewOAuthRedirectError("invalid_scope", 400, "scope not granted to client: "+sc)
		}
	}

	value, err := cryptoutil.RandomToken(32)
	if err != nil {
		return "", apierrors.NewTransient("failed to generate authorization code", err)
	}
	now := time.Now().UTC()
	ac := &model.OAuthAuthorizationCode{
		CodeValue: value, AppID: app.ID, UserID: req.UserID, WorkspaceID: req.WorkspaceID,
		RedirectURI: req.RedirectURI, Scopes: scopes, PKCEChallenge: req.CodeChallenge,
		PKCEMethod: method, ExpiresAt: now.Add(config.AuthorizationCodeTTL()), CreatedAt: now,
	}
	if err := s.store.CreateAuthorizationCode(ctx, ac); err != nil {
		return "", err
	}
	return value, nil
}

// TokenResponse is the OAuth token-endpoint success body (RFC 6749 §5.1
// field names).
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope"`
}

// ExchangeAuthorizationCode implements grant_type=authorization_code: one-
// shot code consumption, PKCE verification, redirect_uri equality check,
// and confidential-client secret verification, all inside one transaction
// so a losing concurrent redeem never mints tokens (spec §4.3/§5).
func (s *Service) ExchangeAuthorizationCode(ctx context.Context, clientID, clientSecret, code, redirectURI, verifier string) (*TokenResponse, error) {
	var resp *TokenResponse
	// grantErr carries a rejection found after MarkCodeUsed; the closure
	// returns nil for it so the transaction commits and the code stays used.
	var grantErr error
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		app, err := tx.GetOAuthAppByClientID(ctx, clientID)
		if err != nil {
			return apierrors.NewOAuthError("invalid_client", 400, "unknown client")
		}
		if err := s.verifyClientSecret(app, clientSecret); err != nil {
			return err
		}

		ac, err := tx.GetAuthorizationCode(ctx, code)
		if err != nil {
			return apierrors.NewOAuthError("invalid_grant", 400, "unknown authorization code")
		}
		ok, err := tx.MarkCodeUsed(ctx, code)
		if err != nil {
			return err
		}
		if !ok {
			// Already consumed, by this call or a concurrent one: the code
			// is burned either way per spec's one-shot requirement.
			return apierrors.NewOAuthError("invalid_grant", 400, "authorization code already used")
		}
		if ac.AppID != app.ID || ac.RedirectURI != redirectURI {
			grantErr = apierrors.NewOAuthError("invalid_grant", 400, "authorization code does not match client/redirect_uri")
			return nil
		}
		if time.Now().UTC().After(ac.ExpiresAt) {
			grantErr = apierrors.NewOAuthError("invalid_grant", 400, "authorization code expired")
			return nil
		}
		if err := validatePKCE(ac.PKCEMethod, ac.PKCEChallenge, verifier); err != nil {
			grantErr = err
			return nil
		}

		access, expiry, err := s.issuer.Mint(ac.UserID, app.ID, ac.WorkspaceID, ac.Scopes)
		if err != nil {
			return err
		}
		refresh, err := s.issueRefreshToken(ctx, tx, app.ID, ac.UserID, ac.WorkspaceID, ac.Scopes, "", "")
		if err != nil {
			return err
		}
		if err := audit.RecordOAuthAppEvent(ctx, tx, app.ID, model.OAuthAppRefreshIssued, ac.UserID, "", nil); err != nil {
			klog.ErrorS(err, "failed to record oauth refresh-issued audit event", "app", app.ID)
		}
		resp = &TokenResponse{
			AccessToken: access, TokenType: "Bearer",
			ExpiresIn: int(time.Until(expiry).Seconds()), RefreshToken: refresh,
			Scope: joinScopes(ac.Scopes),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if grantErr != nil {
		return nil, grantErr
	}
	return resp, nil
}

// RefreshGrant implements grant_type=refresh_token with rotation and reuse
// detection: redeeming a token that is not the live head of its family
// (already rotated, or revoked) revokes every token in that family and
// fails the request (spec §4.3/§9).
func (s *Service) RefreshGrant(ctx context.Context, clientID, clientSecret, presented string) (*TokenResponse, error) {
	var resp *TokenResponse
	// reuseErr carries a reuse rejection; the closure returns nil for it so
	// the transaction commits the RevokeFamily update.
	var reuseErr error
	hash := cryptoutil.SHA256Hex(presented)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		app, err := tx.GetOAuthAppByClientID(ctx, clientID)
		if err != nil {
			return apierrors.NewOAuthError("invalid_client", 400, "unknown client")
		}
		if err := s.verifyClientSecret(app, clientSecret); err != nil {
			return err
		}

		rt, err := tx.GetRefreshTokenByHash(ctx, hash)
		if err != nil {
			return apierrors.NewOAuthError("invalid_grant", 400, "unknown refresh token")
		}
		if rt.RevokedAt != nil {
			// Reuse of an already-revoked token: assume compromise and burn
			// the whole lineage, not just this one.
			if revErr := tx.RevokeFamily(ctx, rt.FamilyID); revErr != nil {
				klog.ErrorS(revErr, "failed to revoke refresh token family on reuse", "family", rt.FamilyID)
			}
			reuseErr = apierrors.NewOAuthError("invalid_grant", 400, "refresh token reuse detected, session revoked")
			return nil
		}
		if time.Now().UTC().After(rt.ExpiresAt) {
			return apierrors.NewOAuthError("invalid_grant", 400, "refresh token expired")
		}
		revoked, err := tx.RevokeRefreshToken(ctx, hash)
		if err != nil {
			return err
		}
		if !revoked {
			// Lost a race with a concurrent refresh of the same token: the
			// other call already rotated it, so this one is reuse too.
			if revErr := tx.RevokeFamily(ctx, rt.FamilyID); revErr != nil {
				klog.ErrorS(revErr, "failed to revoke refresh token family on race", "family", rt.FamilyID)
			}
			reuseErr = apierrors.NewOAuthError("invalid_grant", 400, "refresh token reuse detected, session revoked")
			return nil
		}

		access, expiry, err := s.issuer.Mint(rt.UserID, app.ID, rt.WorkspaceID, rt.Scopes)
		if err != nil {
			return err
		}
		next, err := s.issueRefreshToken(ctx, tx, app.ID, rt.UserID, rt.WorkspaceID, rt.Scopes, rt.FamilyID, hash)
		if err != nil {
			return err
		}
		resp = &TokenResponse{
			AccessToken: access, TokenType: "Bearer",
			ExpiresIn: int(time.Until(expiry).Seconds()), RefreshToken: next,
			Scope: joinScopes(rt.Scopes),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if reuseErr != nil {
		return nil, reuseErr
	}
	return resp, nil
}

// Revoke implements RFC 7009 token revocation for a refresh token, revoking
// its whole family so a logout invalidates every descendant too.
func (s *Service) Revoke(ctx context.Context, presented string) error {
	hash := cryptoutil.SHA256Hex(presented)
	rt, err := s.store.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if _, ok := err.(store.ErrNotFound); ok {
			return nil // RFC 7009: unknown token is not an error
		}
		return err
	}
	return s.store.RevokeFamily(ctx, rt.FamilyID)
}

func (s *Service) issueRefreshToken(ctx context.Context, tx store.Store, appID, userID, workspaceID string, scopes []string, familyID, previousHash string) (string, error) {
	secret, err := cryptoutil.RandomToken(32)
	if err != nil {
		return "", apierrors.NewTransient("failed to generate refresh token", err)
	}
	if familyID == "" {
		familyID = uuid.NewString()
	}
	now := time.Now().UTC()
	rt := &model.RefreshToken{
		TokenHash: cryptoutil.SHA256Hex(secret), AppID: appID, UserID: userID, WorkspaceID: workspaceID,
		Scopes: scopes, FamilyID: familyID, PreviousHash: previousHash,
		ExpiresAt: now.Add(30 * 24 * time.Hour), CreatedAt: now, LastRotatedAt: now,
	}
	if err := tx.CreateRefreshToken(ctx, rt); err != nil {
		return "", err
	}
	return secret, nil
}

// verifyClientSecret enforces confidential-client secret checks (spec
// §4.3): public clients present no secret and rely on PKCE alone; a
// confidential client's presented secret must PBKDF2-verify.
func (s *Service) verifyClientSecret(app *model.OAuthApp, presented string) error {
	if app.ClientType != model.ClientConfidential {
		return nil
	}
	if presented == "" {
		return apierrors.NewOAuthError("invalid_client", 401, "client secret required")
	}
	stored, err := cryptoutil.DecodePBKDF2Hash(app.ClientSecretHash)
	if err != nil {
		return apierrors.NewOAuthError("invalid_client", 401, "client misconfigured")
	}
	if !cryptoutil.VerifySecret(presented, stored) {
		return apierrors.NewOAuthError("invalid_client", 401, "invalid client secret")
	}
	return nil
}

func containsURI(uris []string, candidate string) bool {
	for _, u := range uris {
		if u == candidate {
			return true
		}
	}
	return false
}
