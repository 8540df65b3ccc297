package httpapi

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/oauthserver"
)

// authorize implements GET /oauth/authorize. Spec §4.3/§6: 302 to the
// caller's redirect_uri with ?code=&state= on success; 302 with ?error=
// once a redirect_uri has been validated, else a 400 JSON body.
func (d *Deps) authorize(c *gin.Context) {
	p := principalFrom(c)
	req := oauthserver.AuthorizeRequest{
		ClientID:            c.Query("client_id"),
		RedirectURI:         c.Query("redirect_uri"),
		ResponseType:        c.Query("response_type"),
		Scope:               c.Query("scope"),
		State:               c.Query("state"),
		CodeChallenge:       c.Query("code_challenge"),
		CodeChallengeMethod: c.Query("code_challenge_method"),
		UserID:              p.UserID,
		WorkspaceID:         p.WorkspaceID,
	}

	code, err := d.OAuth.Authorize(c.Request.Context(), req)
	if err != nil {
		apiErr := apierrors.AsAPIError(err)
		if !apiErr.OAuthRedirectable {
			c.JSON(apiErr.HTTPStatus, gin.H{"error": apiErr.OAuthCode, "error_description": apiErr.Sanitized()})
			return
		}
		c.Redirect(http.StatusFound, redirectWithParams(req.RedirectURI, map[string]string{
			"error":             apiErr.OAuthCode,
			"error_description": apiErr.Sanitized(),
			"state":             req.State,
		}))
		return
	}

	c.Redirect(http.StatusFound, redirectWithParams(req.RedirectURI, map[string]string{
		"code":  code,
		"state": req.State,
	}))
}

func redirectWithParams(base string, params map[string]string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// token implements POST /oauth/token, form-encoded, dispatching on
// grant_type per spec §4.3.
func (d *Deps) token(c *gin.Context) (interface{}, error) {
	clientID := c.PostForm("client_id")
	clientSecret := c.PostForm("client_secret")

	var resp *oauthserver.TokenResponse
	var err error
	switch c.PostForm("grant_type") {
	case "authorization_code":
		resp, err = d.OAuth.ExchangeAuthorizationCode(c.Request.Context(), clientID, clientSecret,
			c.PostForm("code"), c.PostForm("redirect_uri"), c.PostForm("code_verifier"))
	case "refresh_token":
		resp, err = d.OAuth.RefreshGrant(c.Request.Context(), clientID, clientSecret, c.PostForm("refresh_token"))
	default:
		return nil, apierrors.NewOAuthError("unsupported_grant_type", http.StatusBadRequest, "unsupported grant_type")
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// revokeToken implements POST /oauth/revoke (RFC 7009): always 200.
func (d *Deps) revokeToken(c *gin.Context) (interface{}, error) {
	_ = d.OAuth.Revoke(c.Request.Context(), c.PostForm("token"))
	return gin.H{}, nil
}
