package pgstore

import (
	"context"
	"encoding/json"
	"time"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

// oauthAppRow mirrors model.OAuthApp with the column shapes sqlx can scan
// directly: pq.StringArray for the redirect URI list, a JSON text blob for
// the scope set.
type oauthAppRow struct {
	ID               string         `db:"id"`
	WorkspaceID      string         `db:"workspace_id"`
	Name             string         `db:"name"`
	Description      string         `db:"description"`
	ClientType       string         `db:"client_type"`
	ClientID         string         `db:"client_id"`
	ClientSecretHash string         `db:"client_secret_hash"`
	RedirectURIs     pq.StringArray `db:"redirect_uris"`
	AllowedScopes    string         `db:"allowed_scopes"`
	IsEnabled        bool           `db:"is_enabled"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	CreatedByUserID  string         `db:"created_by_user_id"`
}

func (r oauthAppRow) toModel() *model.OAuthApp {
	scopes := map[string]struct{}{}
	var list []string
	_ = json.Unmarshal([]byte(r.AllowedScopes), &list)
	for _, s := range list {
		scopes[s] = struct{}{}
	}
	return &model.OAuthApp{
		ID: r.ID, WorkspaceID: r.WorkspaceID, Name: r.Name, Description: r.Description,
		ClientType: model.ClientType(r.ClientType), ClientID: r.ClientID,
		ClientSecretHash: r.ClientSecretHash, RedirectURIs: []string(r.RedirectURIs),
		AllowedScopes: scopes, IsEnabled: r.IsEnabled,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, CreatedByUserID: r.CreatedByUserID,
	}
}

func scopesJSON(scopes map[string]struct{}) (string, error) {
	list := make([]string, 0, len(scopes))
	for s := range scopes {
		list = append(list, s)
	}
	b, err := json.Marshal(list)
	return string(b), err
}

func (c *Client) CreateOAuthApp(ctx context.Context, a *model.OAuthApp) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	scopesJ, err := scopesJSON(a.AllowedScopes)
	if err != nil {
		return err
	}
	q, args, err := psql.Insert("oauth_apps").
		Columns("id", "workspace_id", "name", "description", "client_type", "client_id",
			"client_secret_hash", "redirect_uris", "allowed_scopes", "is_enabled",
			"created_at", "updated_at", "created_by_user_id").
		Values(a.ID, a.WorkspaceID, a.Name, a.Description, a.ClientType, a.ClientID,
			a.ClientSecretHash, pq.StringArray(a.RedirectURIs), scopesJ, a.IsEnabled,
			a.CreatedAt, a.UpdatedAt, a.CreatedByUserID).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) oauthAppCols() []string {
	return []string{"id", "workspace_id", "name", "description", "client_type", "client_id",
		"client_secret_hash", "redirect_uris", "allowed_scopes", "is_enabled",
		"created_at", "updated_at", "created_by_user_id"}
}

func (c *Client) getOAuthApp(ctx context.Context, where sqrl.Sqlizer) (*model.OAuthApp, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.oauthAppCols()...).From("oauth_apps").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	var row oauthAppRow
	if err := c.db.GetContext(ctx, &row, q, args...); err != nil {
		return nil, scanNotFound(err, "oauth app")
	}
	return row.toModel(), nil
}

func (c *Client) GetOAuthAppByClientID(ctx context.Context, clientID string) (*model.OAuthApp, error) {
	return c.getOAuthApp(ctx, sqrl.Eq{"client_id": clientID})
}

func (c *Client) GetOAuthApp(ctx context.Context, id string) (*model.OAuthApp, error) {
	return c.getOAuthApp(ctx, sqrl.Eq{"id": id})
}

func (c *Client) UpdateOAuthApp(ctx context.Context, a *model.OAuthApp) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	scopesJ, err := scopesJSON(a.AllowedScopes)
	if err != nil {
		return err
	}
	q, args, err := psql.Update("oauth_apps").
		Set("name", a.Name).Set("description", a.Description).
		Set("client_secret_hash", a.ClientSecretHash).
		Set("redirect_uris", pq.StringArray(a.RedirectURIs)).
		Set("allowed_scopes", scopesJ).Set("is_enabled", a.IsEnabled).
		Set("updated_at", a.UpdatedAt).
		Where(sqrl.Eq{"id": a.ID}).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) ListOAuthApps(ctx context.Context, workspaceID string) ([]*model.OAuthApp, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.oauthAppCols()...).From("oauth_apps").
		Where(sqrl.Eq{"workspace_id": workspaceID}).OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, err
	}
	var rows []oauthAppRow
	if err := c.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]*model.OAuthApp, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

type authCodeRow struct {
	CodeValue     string     `db:"code_value"`
	AppID         string     `db:"app_id"`
	UserID        string     `db:"user_id"`
	WorkspaceID   string     `db:"workspace_id"`
	RedirectURI   string     `db:"redirect_uri"`
	Scopes        string     `db:"scopes"`
	PKCEChallenge string     `db:"pkce_challenge"`
	PKCEMethod    string     `db:"pkce_method"`
	UsedAt        *time.Time `db:"used_at"`
	ExpiresAt     time.Time  `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

func (r authCodeRow) toModel() *model.OAuthAuthorizationCode {
	var scopes []string
	_ = json.Unmarshal([]byte(r.Scopes), &scopes)
	return &model.OAuthAuthorizationCode{
		CodeValue: r.CodeValue, AppID: r.AppID, UserID: r.UserID, WorkspaceID: r.WorkspaceID,
		RedirectURI: r.RedirectURI, Scopes: scopes, PKCEChallenge: r.PKCEChallenge,
		PKCEMethod: model.PKCEMethod(r.PKCEMethod), UsedAt: r.UsedAt,
		ExpiresAt: r.ExpiresAt, CreatedAt: r.CreatedAt,
	}
}

func (c *Client) CreateAuthorizationCode(ctx context.Context, ac *model.OAuthAuthorizationCode) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	scopesJ, err := json.Marshal(ac.Scopes)
	if err != nil {
		return err
	}
	q, args, err := psql.Insert("oauth_authorization_codes").
		Columns("code_value", "app_id", "user_id", "workspace_id", "redirect_uri", "scopes",
			"pkce_challenge", "pkce_method", "expires_at", "created_at").
		Values(ac.CodeValue, ac.AppID, ac.UserID, ac.WorkspaceID, ac.RedirectURI, string(scopesJ),
			ac.PKCEChallenge, ac.PKCEMethod, ac.ExpiresAt, ac.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetAuthorizationCode(ctx context.Context, code string) (*model.OAuthAuthorizationCode, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("code_value", "app_id", "user_id", "workspace_id", "redirect_uri",
		"scopes", "pkce_challenge", "pkce_method", "used_at", "expires_at", "created_at").
		From("oauth_authorization_codes").Where(sqrl.Eq{"code_value": code}).ToSql()
	if err != nil {
		return nil, err
	}
	var row authCodeRow
	if err := c.db.GetContext(ctx, &row, q, args...); err != nil {
		return nil, scanNotFound(err, "authorization code")
	}
	return row.toModel(), nil
}

// MarkCodeUsed consumes the code atomically: the WHERE used_at IS NULL guard
// means two concurrent redeems race on the UPDATE itself, not on a
// read-then-write, so exactly one sees rowsAffected==1.
func (c *Client) MarkCodeUsed(ctx context.Context, code string) (bool, error) {
	if err := c.requireDB(); err != nil {
		return false, err
	}
	q, args, err := psql.Update("oauth_authorization_codes").
		Set("used_at", time.Now().UTC()).
		Where(sqrl.Eq{"code_value": code}).
		Where("used_at IS NULL").ToSql()
	if err != nil {
		return false, err
	}
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type refreshTokenRow struct {
	TokenHash     string     `db:"token_hash"`
	AppID         string     `db:"app_id"`
	UserID        string     `db:"user_id"`
	WorkspaceID   string     `db:"workspace_id"`
	Scopes        string     `db:"scopes"`
	FamilyID      string     `db:"family_id"`
	PreviousHash  string     `db:"previous_hash"`
	RevokedAt     *time.Time `db:"revoked_at"`
	ExpiresAt     time.Time  `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	LastRotatedAt time.Time  `db:"last_rotated_at"`
}

func (r refreshTokenRow) toModel() *model.RefreshToken {
	var scopes []string
	_ = json.Unmarshal([]byte(r.Scopes), &scopes)
	return &model.RefreshToken{
		TokenHash: r.TokenHash, AppID: r.AppID, UserID: r.UserID, WorkspaceID: r.WorkspaceID,
		Scopes: scopes, FamilyID: r.FamilyID, PreviousHash: r.PreviousHash,
		RevokedAt: r.RevokedAt, ExpiresAt: r.ExpiresAt, CreatedAt: r.CreatedAt,
		LastRotatedAt: r.LastRotatedAt,
	}
}

func (c *Client) CreateRefreshToken(ctx context.Context, t *model.RefreshToken) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	scopesJ, err := json.Marshal(t.Scopes)
	if err != nil {
		return err
	}
	q, args, err := psql.Insert("oauth_refresh_tokens").
		Columns("token_hash", "app_id", "user_id", "workspace_id", "scopes", "family_id",
			"previous_hash", "expires_at", "created_at", "last_rotated_at").
		Values(t.TokenHash, t.AppID, t.UserID, t.WorkspaceID, string(scopesJ), t.FamilyID,
			t.PreviousHash, t.ExpiresAt, t.CreatedAt, t.LastRotatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetRefreshTokenByHash(ctx context.Context, hash string) (*model.RefreshToken, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("token_hash", "app_id", "user_id", "workspace_id", "scopes",
		"family_id", "previous_hash", "revoked_at", "expires_at", "created_at", "last_rotated_at").
		From("oauth_refresh_tokens").Where(sqrl.Eq{"token_hash": hash}).ToSql()
	if err != nil {
		return nil, err
	}
	var row refreshTokenRow
	if err := c.db.GetContext(ctx, &row, q, args...); err != nil {
		return nil, scanNotFound(err, "refresh token")
	}
	return row.toModel(), nil
}

func (c *Client) RevokeRefreshToken(ctx context.Context, hash string) (bool, error) {
	if err := c.requireDB(); err != nil {
		return false, err
	}
	q, args, err := psql.Update("oauth_refresh_tokens").
		Set("revoked_at", time.Now().UTC()).
		Where(sqrl.Eq{"token_hash": hash}).
		Where("revoked_at IS NULL").ToSql()
	if err != nil {
		return false, err
	}
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeFamily revokes every still-live token in a refresh-token family in
// one statement; invoked on reuse detection (spec §4.3/§5).
func (c *Client) RevokeFamily(ctx context.Context, familyID string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Update("oauth_refresh_tokens").
		Set("revoked_at", time.Now().UTC()).
		Where(sqrl.Eq{"family_id": familyID}).
		Where("revoked_at IS NULL").ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

var _ store.OAuth = (*Client)(nil)
