package pgstore

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func (c *Client) inviteCols() []string {
	return []string{"id", "workspace_id", "email", "role", "token", "invited_by_user_id",
		"status", "created_at", "expires_at"}
}

func (c *Client) CreateInvite(ctx context.Context, i *model.WorkspaceInvite) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Insert("workspace_invites").Columns(c.inviteCols()...).
		Values(i.ID, i.WorkspaceID, i.Email, i.Role, i.Token, i.InvitedByUserID,
			i.Status, i.CreatedAt, i.ExpiresAt).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetInviteByToken(ctx context.Context, token string) (*model.WorkspaceInvite, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.inviteCols()...).From("workspace_invites").
		Where(sqrl.Eq{"token": token}).ToSql()
	if err != nil {
		return nil, err
	}
	var i model.WorkspaceInvite
	if err := c.db.GetContext(ctx, &i, q, args...); err != nil {
		return nil, scanNotFound(err, "workspace invite")
	}
	return &i, nil
}

func (c *Client) UpdateInvite(ctx context.Context, i *model.WorkspaceInvite) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Update("workspace_invites").
		Set("status", i.Status).
		Where(sqrl.Eq{"id": i.ID}).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) ListInvites(ctx context.Context, workspaceID string) ([]*model.WorkspaceInvite, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.inviteCols()...).From("workspace_invites").
		Where(sqrl.Eq{"workspace_id": workspaceID}).OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}
	var out []*model.WorkspaceInvite
	if err := c.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

var _ store.Invites = (*Client)(nil)
