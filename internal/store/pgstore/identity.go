package pgstore

import (
	"context"
	"time"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func (c *Client) CreateUser(ctx context.Context, u *model.User) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Insert("users").
		Columns("id", "subject", "email", "display_name", "created_at").
		Values(u.ID, u.Subject, u.Email, u.DisplayName, u.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return c.getUser(ctx, sqrl.Eq{"id": id})
}

func (c *Client) GetUserBySubject(ctx context.Context, subject string) (*model.User, error) {
	return c.getUser(ctx, sqrl.Eq{"subject": subject})
}

func (c *Client) getUser(ctx context.Context, where sqrl.Sqlizer) (*model.User, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("id", "subject", "email", "display_name", "created_at", "last_login_at").
		From("users").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := c.db.GetContext(ctx, &u, q, args...); err != nil {
		return nil, scanNotFound(err, "user")
	}
	return &u, nil
}

func (c *Client) TouchLastLogin(ctx context.Context, userID string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Update("users").
		Set("last_login_at", time.Now().UTC()).
		Where(sqrl.Eq{"id": userID}).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) CreateWorkspace(ctx context.Context, w *model.Workspace) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Insert("workspaces").
		Columns("id", "name", "description", "created_at", "updated_at").
		Values(w.ID, w.Name, w.Description, w.CreatedAt, w.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("id", "name", "description", "created_at", "updated_at").
		From("workspaces").Where(sqrl.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var w model.Workspace
	if err := c.db.GetContext(ctx, &w, q, args...); err != nil {
		return nil, scanNotFound(err, "workspace")
	}
	return &w, nil
}

func (c *Client) UpdateWorkspace(ctx context.Context, w *model.Workspace) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Update("workspaces").
		Set("name", w.Name).Set("description", w.Description).Set("updated_at", w.UpdatedAt).
		Where(sqrl.Eq{"id": w.ID}).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) ListWorkspacesForUser(ctx context.Context, userID string) ([]*model.Workspace, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("w.id", "w.name", "w.description", "w.created_at", "w.updated_at").
		From("workspaces w").
		Join("workspace_memberships m ON m.workspace_id = w.id").
		Where(sqrl.Eq{"m.user_id": userID}).
		OrderBy("w.name ASC").ToSql()
	if err != nil {
		return nil, err
	}
	var out []*model.Workspace
	if err := c.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateWorkspaceMembership(ctx context.Context, m *model.WorkspaceMembership) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Insert("workspace_memberships").
		Columns("id", "workspace_id", "user_id", "role", "created_at").
		Values(m.ID, m.WorkspaceID, m.UserID, m.Role, m.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetWorkspaceMembership(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMembership, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("id", "workspace_id", "user_id", "role", "created_at").
		From("workspace_memberships").
		Where(sqrl.Eq{"workspace_id": workspaceID, "user_id": userID}).ToSql()
	if err != nil {
		return nil, err
	}
	var m model.WorkspaceMembership
	if err := c.db.GetContext(ctx, &m, q, args...); err != nil {
		return nil, scanNotFound(err, "workspace membership")
	}
	return &m, nil
}

func (c *Client) UpdateWorkspaceMembershipRole(ctx context.Context, workspaceID, userID string, role model.WorkspaceRole) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Update("workspace_memberships").
		Set("role", role).
		Where(sqrl.Eq{"workspace_id": workspaceID, "user_id": userID}).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) DeleteWorkspaceMembership(ctx context.Context, workspaceID, userID string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Delete("workspace_memberships").
		Where(sqrl.Eq{"workspace_id": workspaceID, "user_id": userID}).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) ListWorkspaceMemberships(ctx context.Context, workspaceID string) ([]*model.WorkspaceMembership, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("id", "workspace_id", "user_id", "role", "created_at").
		From("workspace_memberships").
		Where(sqrl.Eq{"workspace_id": workspaceID}).
		OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, err
	}
	var out []*model.WorkspaceMembership
	if err := c.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CountOwners(ctx context.Context, workspaceID string) (int, error) {
	if err := c.requireDB(); err != nil {
		return 0, err
	}
	q, args, err := psql.Select("COUNT(*)").From("workspace_memberships").
		Where(sqrl.Eq{"workspace_id": workspaceID, "role": model.RoleOwner}).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := c.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Client) CreateProject(ctx context.Context, p *model.Project) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Insert("projects").
		Columns("id", "workspace_id", "name", "description", "created_at", "updated_at").
		Values(p.ID, p.WorkspaceID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetProject(ctx context.Context, id string) (*model.Project, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("id", "workspace_id", "name", "description", "created_at", "updated_at").
		From("projects").Where(sqrl.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var p model.Project
	if err := c.db.GetContext(ctx, &p, q, args...); err != nil {
		return nil, scanNotFound(err, "project")
	}
	return &p, nil
}

func (c *Client) UpdateProject(ctx context.Context, p *model.Project) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Update("projects").
		Set("name", p.Name).Set("description", p.Description).Set("updated_at", p.UpdatedAt).
		Where(sqrl.Eq{"id": p.ID}).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) ListProjects(ctx context.Context, workspaceID string) ([]*model.Project, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("id", "workspace_id", "name", "description", "created_at", "updated_at").
		From("projects").Where(sqrl.Eq{"workspace_id": workspaceID}).
		OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, err
	}
	var out []*model.Project
	if err := c.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProjectMembership(ctx context.Context, m *model.ProjectMembership) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Insert("project_memberships").
		Columns("id", "project_id", "user_id", "role", "created_at").
		Values(m.ID, m.ProjectID, m.UserID, m.Role, m.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetProjectMembership(ctx context.Context, projectID, userID string) (*model.ProjectMembership, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("id", "project_id", "user_id", "role", "created_at").
		From("project_memberships").
		Where(sqrl.Eq{"project_id": projectID, "user_id": userID}).ToSql()
	if err != nil {
		return nil, err
	}
	var m model.ProjectMembership
	if err := c.db.GetContext(ctx, &m, q, args...); err != nil {
		return nil, scanNotFound(err, "project membership")
	}
	return &m, nil
}

func (c *Client) ListProjectMemberships(ctx context.Context, projectID string) ([]*model.ProjectMembership, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select("id", "project_id", "user_id", "role", "created_at").
		From("project_memberships").Where(sqrl.Eq{"project_id": projectID}).
		OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, err
	}
	var out []*model.ProjectMembership
	if err := c.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

var _ store.Identity = (*Client)(nil)
