package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/authz"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/upload"
)

type reserveUploadRequest struct {
	FileName          string             `json:"fileName" binding:"required"`
	ContentType       string             `json:"contentType"`
	ExpectedSizeBytes int64              `json:"expectedSizeBytes"`
	Category          model.FileCategory `json:"category" binding:"required"`
	PreferDirectUpload bool              `json:"preferDirectUpload"`
}

func (d *Deps) reserveUpload(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	projectID := c.Param("projectID")
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleEditor); err != nil {
		return nil, err
	}
	if err := authz.RequireScope(p, "files:write"); err != nil {
		return nil, err
	}

	var req reserveUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}

	return d.Upload.Reserve(c.Request.Context(), upload.ReserveRequest{
		ProjectID:          projectID,
		FileName:           req.FileName,
		ContentType:        req.ContentType,
		ExpectedSizeBytes:  req.ExpectedSizeBytes,
		Category:           req.Category,
		RequestDirectBlob:  req.PreferDirectUpload,
	})
}

// uploadSessionProject resolves an upload session's owning project, so the
// content/commit handlers can authorize against it the same way the
// reservation itself was authorized.
func (d *Deps) uploadSessionProject(c *gin.Context, sessionID string) (string, error) {
	sess, err := d.Store.GetUploadSession(c.Request.Context(), sessionID)
	if err != nil {
		return "", err
	}
	return sess.ProjectID, nil
}

func (d *Deps) uploadContent(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	projectID, err := d.uploadSessionProject(c, c.Param("uploadID"))
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleEditor); err != nil {
		return nil, err
	}
	if err := authz.RequireScope(p, "files:write"); err != nil {
		return nil, err
	}
	if err := d.Upload.UploadContent(c.Request.Context(), c.Param("uploadID"), c.Request.Body); err != nil {
		return nil, err
	}
	return gin.H{}, nil
}

type commitUploadRequest struct {
	Checksum string             `json:"checksum" binding:"required"`
	Kind     model.FileKind     `json:"kind" binding:"required"`
	Category model.FileCategory `json:"category" binding:"required"`
}

func (d *Deps) commitUpload(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	projectID, err := d.uploadSessionProject(c, c.Param("uploadID"))
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleEditor); err != nil {
		return nil, err
	}
	if err := authz.RequireScope(p, "files:write"); err != nil {
		return nil, err
	}
	var req commitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}
	return d.Upload.Commit(c.Request.Context(), c.Param("uploadID"), req.Checksum, req.Kind, req.Category)
}
