package pgstore

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func (c *Client) fileCols() []string {
	return []string{"id", "project_id", "name", "content_type", "size_bytes", "checksum",
		"kind", "category", "storage_provider", "storage_key", "is_deleted", "created_at", "deleted_at"}
}

func (c *Client) CreateFile(ctx context.Context, f *model.File) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Insert("files").
		Columns(c.fileCols()...).
		Values(f.ID, f.ProjectID, f.Name, f.ContentType, f.SizeBytes, f.Checksum,
			f.Kind, f.Category, f.StorageProvider, f.StorageKey, f.IsDeleted, f.CreatedAt, f.DeletedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetFile(ctx context.Context, id string) (*model.File, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.fileCols()...).From("files").Where(sqrl.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var f model.File
	if err := c.db.GetContext(ctx, &f, q, args...); err != nil {
		return nil, scanNotFound(err, "file")
	}
	return &f, nil
}

func (c *Client) ListFiles(ctx context.Context, projectID string, kind *model.FileKind, category *model.FileCategory, f store.Filter) ([]*model.File, int, error) {
	if err := c.requireDB(); err != nil {
		return nil, 0, err
	}
	where := sqrl.And{sqrl.Eq{"project_id": projectID}, sqrl.Eq{"is_deleted": false}}
	if kind != nil {
		where = append(where, sqrl.Eq{"kind": *kind})
	}
	if category != nil {
		where = append(where, sqrl.Eq{"category": *category})
	}

	countQ, countArgs, err := psql.Select("COUNT(*)").From("files").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := c.db.GetContext(ctx, &total, countQ, countArgs...); err != nil {
		return nil, 0, err
	}

	limit, offset := paginate(f)
	q, args, err := psql.Select(c.fileCols()...).From("files").Where(where).
		OrderBy("created_at DESC").Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var rows []*model.File
	if err := c.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (c *Client) SoftDeleteFile(ctx context.Context, id string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Update("files").
		Set("is_deleted", true).Set("deleted_at", sqrl.Expr("now()")).
		Where(sqrl.Eq{"id": id}).Where(sqrl.Eq{"is_deleted": false}).ToSql()
	if err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound{What: "file (or already deleted)"}
	}
	return nil
}

func (c *Client) usage(ctx context.Context, where sqrl.Sqlizer) (int, int64, error) {
	if err := c.requireDB(); err != nil {
		return 0, 0, err
	}
	q, args, err := psql.Select("COUNT(*)", "COALESCE(SUM(size_bytes), 0)").From("files").Where(where).ToSql()
	if err != nil {
		return 0, 0, err
	}
	var row struct {
		Count int   `db:"count"`
		Total int64 `db:"coalesce"`
	}
	if err := c.db.GetContext(ctx, &row, q, args...); err != nil {
		return 0, 0, err
	}
	return row.Count, row.Total, nil
}

func (c *Client) UsageForProject(ctx context.Context, projectID string) (int, int64, error) {
	return c.usage(ctx, sqrl.Eq{"project_id": projectID, "is_deleted": false})
}

func (c *Client) UsageForWorkspace(ctx context.Context, workspaceID string) (int, int64, error) {
	if err := c.requireDB(); err != nil {
		return 0, 0, err
	}
	q, args, err := psql.Select("COUNT(*)", "COALESCE(SUM(f.size_bytes), 0)").
		From("files f").Join("projects p ON p.id = f.project_id").
		Where(sqrl.Eq{"p.workspace_id": workspaceID, "f.is_deleted": false}).ToSql()
	if err != nil {
		return 0, 0, err
	}
	var row struct {
		Count int   `db:"count"`
		Total int64 `db:"coalesce"`
	}
	if err := c.db.GetContext(ctx, &row, q, args...); err != nil {
		return 0, 0, err
	}
	return row.Count, row.Total, nil
}

func (c *Client) modelCols() []string {
	return []string{"id", "project_id", "name", "description", "created_at"}
}

func (c *Client) CreateModel(ctx context.Context, m *model.Model) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Insert("models").Columns(c.modelCols()...).
		Values(m.ID, m.ProjectID, m.Name, m.Description, m.CreatedAt).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetModel(ctx context.Context, id string) (*model.Model, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.modelCols()...).From("models").Where(sqrl.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var m model.Model
	if err := c.db.GetContext(ctx, &m, q, args...); err != nil {
		return nil, scanNotFound(err, "model")
	}
	return &m, nil
}

func (c *Client) ListModels(ctx context.Context, projectID string) ([]*model.Model, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.modelCols()...).From("models").
		Where(sqrl.Eq{"project_id": projectID}).OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, err
	}
	var out []*model.Model
	if err := c.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) modelVersionCols() []string {
	return []string{"id", "model_id", "version_number", "ifc_file_id", "status",
		"wexbim_file_id", "properties_file_id", "error_message", "processed_at", "created_at"}
}

func (c *Client) CreateModelVersion(ctx context.Context, v *model.ModelVersion) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Insert("model_versions").Columns(c.modelVersionCols()...).
		Values(v.ID, v.ModelID, v.VersionNumber, v.IfcFileID, v.Status,
			v.WexBimFileID, v.PropertiesFileID, v.ErrorMessage, v.ProcessedAt, v.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetModelVersion(ctx context.Context, id string) (*model.ModelVersion, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.modelVersionCols()...).From("model_versions").
		Where(sqrl.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var v model.ModelVersion
	if err := c.db.GetContext(ctx, &v, q, args...); err != nil {
		return nil, scanNotFound(err, "model version")
	}
	return &v, nil
}

func (c *Client) ListModelVersions(ctx context.Context, modelID string, f store.Filter) ([]*model.ModelVersion, int, error) {
	if err := c.requireDB(); err != nil {
		return nil, 0, err
	}
	where := sqrl.Eq{"model_id": modelID}
	countQ, countArgs, err := psql.Select("COUNT(*)").From("model_versions").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := c.db.GetContext(ctx, &total, countQ, countArgs...); err != nil {
		return nil, 0, err
	}

	limit, offset := paginate(f)
	q, args, err := psql.Select(c.modelVersionCols()...).From("model_versions").Where(where).
		OrderBy("version_number DESC").Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var out []*model.ModelVersion
	if err := c.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (c *Client) NextVersionNumber(ctx context.Context, modelID string) (int, error) {
	if err := c.requireDB(); err != nil {
		return 0, err
	}
	q, args, err := psql.Select("COALESCE(MAX(version_number), 0) + 1").
		From("model_versions").Where(sqrl.Eq{"model_id": modelID}).ToSql()
	if err != nil {
		return 0, err
	}
	var next int
	if err := c.db.GetContext(ctx, &next, q, args...); err != nil {
		return 0, err
	}
	return next, nil
}

func (c *Client) UpdateModelVersion(ctx context.Context, v *model.ModelVersion) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Update("model_versions").
		Set("status", v.Status).
		Set("wexbim_file_id", v.WexBimFileID).
		Set("properties_file_id", v.PropertiesFileID).
		Set("error_message", v.ErrorMessage).
		Set("processed_at", v.ProcessedAt).
		Where(sqrl.Eq{"id": v.ID}).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

var _ store.Catalog = (*Client)(nil)
