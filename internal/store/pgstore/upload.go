package pgstore

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func (c *Client) uploadCols() []string {
	return []string{"id", "project_id", "file_name", "content_type", "expected_size_bytes",
		"status", "upload_mode", "temp_storage_key", "direct_upload_url", "committed_file_id",
		"created_at", "expires_at"}
}

func (c *Client) CreateUploadSession(ctx context.Context, s *model.UploadSession) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Insert("upload_sessions").
		Columns(c.uploadCols()...).
		Values(s.ID, s.ProjectID, s.FileName, s.ContentType, s.ExpectedSizeBytes,
			s.Status, s.UploadMode, s.TempStorageKey, s.DirectUploadURL, s.CommittedFileID,
			s.CreatedAt, s.ExpiresAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) GetUploadSession(ctx context.Context, id string) (*model.UploadSession, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	q, args, err := psql.Select(c.uploadCols()...).From("upload_sessions").
		Where(sqrl.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var s model.UploadSession
	if err := c.db.GetContext(ctx, &s, q, args...); err != nil {
		return nil, scanNotFound(err, "upload session")
	}
	return &s, nil
}

func (c *Client) UpdateUploadSession(ctx context.Context, s *model.UploadSession) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	q, args, err := psql.Update("upload_sessions").
		Set("status", s.Status).
		Set("temp_storage_key", s.TempStorageKey).
		Set("direct_upload_url", s.DirectUploadURL).
		Set("committed_file_id", s.CommittedFileID).
		Set("expires_at", s.ExpiresAt).
		Where(sqrl.Eq{"id": s.ID}).ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

var _ store.Upload = (*Client)(nil)
