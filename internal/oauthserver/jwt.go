package oauthserver

import (
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/config"
)

// accessClaims is the access-token payload, matching spec §4.2/§4.3's
// literal claim set: "tid" (workspace), "scp" (space-joined scopes),
// "client_id" (the OAuthApp), plus the standard sub/iat/exp/jti.
type accessClaims struct {
	jwt.Claims
	WorkspaceID string `json:"tid,omitempty"`
	Scopes      string `json:"scp"`
	ClientID    string `json:"client_id"`
}

const issuer = "ifchub"

// Issuer mints and verifies HS256 access tokens with go-jose. There is no
// complete pack repo that signs JWTs; go-jose is the ecosystem's standard
// JOSE library (see DESIGN.md) and its jwt subpackage is used the same way
// any claims-based JWT library would be.
type Issuer struct {
	signer jose.Signer
	key    []byte
}

func NewIssuer(signingKey []byte) (*Issuer, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: signingKey},
		(&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return nil, err
	}
	return &Issuer{signer: signer, key: signingKey}, nil
}

// NewIssuerFromConfig builds an Issuer from the package-level config store.
func NewIssuerFromConfig() (*Issuer, error) {
	return NewIssuer(config.JWTSigningKey())
}

// Mint issues a signed access token for (userID, appID, workspaceID, scopes).
func (i *Issuer) Mint(userID, appID, workspaceID string, scopes []string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiry := now.Add(config.AccessTokenTTL())
	claims := accessClaims{
		Claims: jwt.Claims{
			Subject:  userID,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(expiry),
			ID:       uuid.NewString(),
		},
		WorkspaceID: workspaceID,
		Scopes:      joinScopes(scopes),
		ClientID:    appID,
	}
	raw, err := jwt.Signed(i.signer).Claims(claims).Serialize()
	if err != nil {
		return "", time.Time{}, err
	}
	return raw, expiry, nil
}

// Verified is the decoded, validated form of an access token.
type Verified struct {
	UserID      string
	AppID       string
	WorkspaceID string
	Scopes      []string
	Expiry      time.Time
}

// Verify parses and validates a bearer token, enforcing issuer and expiry.
func (i *Issuer) Verify(raw string) (*Verified, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, apierrors.NewAuthentication("malformed access token")
	}
	var claims accessClaims
	if err := tok.Claims(i.key, &claims); err != nil {
		return nil, apierrors.NewAuthentication("invalid access token signature")
	}
	if err := claims.Validate(jwt.Expected{Issuer: issuer, Time: time.Now().UTC()}); err != nil {
		return nil, apierrors.NewAuthentication("access token expired or invalid")
	}
	var expiry time.Time
	if claims.Expiry != nil {
		expiry = claims.Expiry.Time()
	}
	return &Verified{
		UserID: claims.Subject, AppID: claims.ClientID, WorkspaceID: claims.WorkspaceID,
		Scopes: splitScopes(claims.Scopes), Expiry: expiry,
	}, nil
}
