package pgstore

import (
	"context"
	"encoding/json"
	"time"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

type patRow struct {
	ID          string     `db:"id"`
	WorkspaceID string     `db:"workspace_id"`
	UserID      string     `db:"user_id"`
	Name        string     `db:"name"`
	Description string     `db:"description"`
	TokenPrefix string     `db:"token_prefix"`
	TokenHash   string     `db:"token_hash"`
	Scopes      string     `db:"scopes"`
	IsRevoked   bool       `db:"is_revoked"`
	RevokedAt   *time.Time `db:"revoked_at"`
	ExpiresAt   *time.Time `db:"expires_at"`
	LastUsedAt  *time.Time `db:"last_used_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (r patRow) toModel() *model.PersonalAccessToken {
	var scopes []string
	_ = json.Unmarshal([]byte(r.Scopes), &scopes)
	return &model.PersonalAccessToken{
		ID: r.ID, WorkspaceID: r.WorkspaceID, UserID: r.UserID, Name: r.Name,
		Description: r.Description, TokenPrefix: r.TokenPrefix, TokenHash: r.TokenHash,
		Scopes: scopes, IsRevoked: r.IsRevoked, RevokedAt: r.RevokedAt,
		ExpiresAt: r.ExpiresAt, LastUsedAt: r.LastUsedAt, CreatedAt: r.CreatedAt,
	}
}

func (c *Client) patCols() []string {
	return []string{"id", "workspace_id", "user_id", "name", "description", "token_prefix",
		"token_hash", "scopes", "is_revoked", "revoked_at", "expires_at", "last_used_at", "created_at"}
}

func (c *Client) CreatePAT(ctx context.Context, p *model.PersonalAccessToken) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	scopesJ, err := json.Marshal(p.Scopes)
	if err != nil {
		return err
	}
	q, args, err := psql.Insert("personal_access_tokens").
		Columns("id", "workspace_id", "user_id", "name", "description", "token_prefix",
			"token_hash", "scopes", "is_revoked", "expires_at", "created_at").
		Values(p.ID, p.WorkspaceID, p.UserID, p.Name, p.Description, p.TokenPrefix,
			p.TokenHash, string(scopesJ), p.IsRevoked, p.ExpiresAt, p.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) getPAT(ctx context.Context, where sqrl.Sqlizer) (*model.PersonalAccessToken, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.patCols()...).From("personal_access_tokens").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	var row patRow
	if err := c.db.GetContext(ctx, &row, q, args...); err != nil {
		return nil, scanNotFound(err, "personal access token")
	}
	return row.toModel(), nil
}

func (c *Client) GetPATByPrefix(ctx context.Context, prefix string) (*model.PersonalAccessToken, error) {
	return c.getPAT(ctx, sqrl.Eq{"token_prefix": prefix})
}

func (c *Client) GetPAT(ctx context.Context, id string) (*model.PersonalAccessToken, error) {
	return c.getPAT(ctx, sqrl.Eq{"id": id})
}

func (c *Client) ListPATsForUser(ctx context.Context, workspaceID, userID string) ([]*model.PersonalAccessToken, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.patCols()...).From("personal_access_tokens").
		Where(sqrl.Eq{"workspace_id": workspaceID, "user_id": userID}).
		OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}
	var rows []patRow
	if err := c.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]*model.PersonalAccessToken, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (c *Client) UpdatePAT(ctx context.Context, p *model.PersonalAccessToken) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Update("personal_access_tokens").
		Set("name", p.Name).Set("description", p.Description).
		Set("is_revoked", p.IsRevoked).Set("revoked_at", p.RevokedAt).
		Where(sqrl.Eq{"id": p.ID}).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) TouchPATLastUsed(ctx context.Context, id string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Update("personal_access_tokens").
		Set("last_used_at", time.Now().UTC()).
		Where(sqrl.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

var _ store.PAT = (*Client)(nil)
