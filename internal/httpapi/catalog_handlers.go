package httpapi

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/authz"
	"github.com/ifcserve/hub/internal/model"
)

func (d *Deps) listFiles(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	projectID := c.Param("projectID")
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleViewer); err != nil {
		return nil, authz.HideAsNotFound(err)
	}

	var kind *model.FileKind
	if v := c.Query("kind"); v != "" {
		k := model.FileKind(v)
		kind = &k
	}
	var category *model.FileCategory
	if v := c.Query("category"); v != "" {
		cat := model.FileCategory(v)
		category = &cat
	}

	files, total, err := d.Catalog.ListFiles(c.Request.Context(), projectID, kind, category, paginationFrom(c))
	if err != nil {
		return nil, err
	}
	return gin.H{"files": files, "total": total}, nil
}

func (d *Deps) getFile(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	f, err := d.Catalog.GetFile(c.Request.Context(), c.Param("fileID"))
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, f.ProjectID, model.ProjectRoleViewer); err != nil {
		return nil, authz.HideAsNotFound(err)
	}
	return f, nil
}

func (d *Deps) downloadFile(c *gin.Context) {
	p := principalFrom(c)
	f, err := d.Catalog.GetFile(c.Request.Context(), c.Param("fileID"))
	if err != nil {
		apierrors.AbortWithApiError(c, err)
		return
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, f.ProjectID, model.ProjectRoleViewer); err != nil {
		apierrors.AbortWithApiError(c, authz.HideAsNotFound(err))
		return
	}
	rc, rec, err := d.Catalog.Download(c.Request.Context(), c.Param("fileID"))
	if err != nil {
		apierrors.AbortWithApiError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Content-Disposition", `attachment; filename="`+rec.Name+`"`)
	c.DataFromReader(200, rec.SizeBytes, rec.ContentType, rc, nil)
}

func (d *Deps) deleteFile(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	f, err := d.Catalog.GetFile(c.Request.Context(), c.Param("fileID"))
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, f.ProjectID, model.ProjectRoleEditor); err != nil {
		return nil, err
	}
	if err := authz.RequireScope(p, "files:write"); err != nil {
		return nil, err
	}
	if err := d.Catalog.SoftDelete(c.Request.Context(), c.Param("fileID")); err != nil {
		return nil, err
	}
	return gin.H{}, nil
}

func (d *Deps) usageForProject(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	projectID := c.Param("projectID")
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleViewer); err != nil {
		return nil, authz.HideAsNotFound(err)
	}
	return d.Catalog.UsageForProject(c.Request.Context(), projectID)
}

type createModelRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (d *Deps) createModel(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	projectID := c.Param("projectID")
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleEditor); err != nil {
		return nil, err
	}
	if err := authz.RequireScope(p, "models:write"); err != nil {
		return nil, err
	}
	var req createModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}
	return d.Catalog.CreateModel(c.Request.Context(), projectID, req.Name, req.Description)
}

func (d *Deps) listModels(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	projectID := c.Param("projectID")
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleViewer); err != nil {
		return nil, authz.HideAsNotFound(err)
	}
	return d.Catalog.ListModels(c.Request.Context(), projectID)
}

func (d *Deps) getModel(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	m, err := d.Catalog.GetModel(c.Request.Context(), c.Param("modelID"))
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, m.ProjectID, model.ProjectRoleViewer); err != nil {
		return nil, authz.HideAsNotFound(err)
	}
	return m, nil
}

// modelVersionProject resolves the owning project for a model version, the
// shared first step of every version/wexbim/properties/element read below.
func (d *Deps) modelVersionProject(c *gin.Context, versionID string) (*model.ModelVersion, string, error) {
	v, err := d.Catalog.GetModelVersion(c.Request.Context(), versionID)
	if err != nil {
		return nil, "", err
	}
	m, err := d.Catalog.GetModel(c.Request.Context(), v.ModelID)
	if err != nil {
		return nil, "", err
	}
	return v, m.ProjectID, nil
}

type createModelVersionRequest struct {
	IfcFileID string `json:"ifcFileId" binding:"required"`
}

func (d *Deps) createModelVersion(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	m, err := d.Catalog.GetModel(c.Request.Context(), c.Param("modelID"))
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, m.ProjectID, model.ProjectRoleEditor); err != nil {
		return nil, err
	}
	if err := authz.RequireScope(p, "models:write"); err != nil {
		return nil, err
	}
	var req createModelVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}
	return d.Catalog.CreateModelVersion(c.Request.Context(), m.ID, req.IfcFileID)
}

func (d *Deps) listModelVersions(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	m, err := d.Catalog.GetModel(c.Request.Context(), c.Param("modelID"))
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, m.ProjectID, model.ProjectRoleViewer); err != nil {
		return nil, authz.HideAsNotFound(err)
	}
	versions, total, err := d.Catalog.ListModelVersions(c.Request.Context(), m.ID, paginationFrom(c))
	if err != nil {
		return nil, err
	}
	return gin.H{"versions": versions, "total": total}, nil
}

func (d *Deps) getModelVersion(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	v, projectID, err := d.modelVersionProject(c, c.Param("versionID"))
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleViewer); err != nil {
		return nil, authz.HideAsNotFound(err)
	}
	return v, nil
}

func (d *Deps) downloadWexBim(c *gin.Context) {
	p := principalFrom(c)
	_, projectID, err := d.modelVersionProject(c, c.Param("versionID"))
	if err != nil {
		apierrors.AbortWithApiError(c, err)
		return
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleViewer); err != nil {
		apierrors.AbortWithApiError(c, authz.HideAsNotFound(err))
		return
	}
	rc, rec, err := d.Catalog.DownloadWexBim(c.Request.Context(), c.Param("versionID"))
	if err != nil {
		apierrors.AbortWithApiError(c, err)
		return
	}
	defer rc.Close()
	streamArtifact(c, rc, rec)
}

// downloadPropertiesArtifact streams the raw extracted-properties blob: the
// JSON summary that the ExtractProperties job stores under
// "artifacts/<modelId>/<fileId>.properties.json" and names
// "<versionId>.properties.json" (not a .properties.db file). It is distinct
// from the "/properties" read projection below which queries the parsed rows.
func (d *Deps) downloadPropertiesArtifact(c *gin.Context) {
	p := principalFrom(c)
	_, projectID, err := d.modelVersionProject(c, c.Param("versionID"))
	if err != nil {
		apierrors.AbortWithApiError(c, err)
		return
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleViewer); err != nil {
		apierrors.AbortWithApiError(c, authz.HideAsNotFound(err))
		return
	}
	rc, rec, err := d.Catalog.DownloadProperties(c.Request.Context(), c.Param("versionID"))
	if err != nil {
		apierrors.AbortWithApiError(c, err)
		return
	}
	defer rc.Close()
	streamArtifact(c, rc, rec)
}

func streamArtifact(c *gin.Context, rc io.ReadCloser, rec *model.File) {
	c.Header("Content-Disposition", `attachment; filename="`+rec.Name+`"`)
	c.DataFromReader(200, rec.SizeBytes, rec.ContentType, rc, nil)
}

// listElements implements the "GET /modelversions/{id}/properties?..." read
// projection (SPEC_FULL.md §4/§6): a paginated, filterable list of this
// version's extracted IfcElement rows.
func (d *Deps) listElements(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	versionID := c.Param("versionID")
	_, projectID, err := d.modelVersionProject(c, versionID)
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleViewer); err != nil {
		return nil, authz.HideAsNotFound(err)
	}
	elements, total, err := d.Catalog.ListElements(c.Request.Context(), versionID,
		c.Query("globalId"), c.Query("typeName"), c.Query("name"), paginationFrom(c))
	if err != nil {
		return nil, err
	}
	return gin.H{"elements": elements, "total": total}, nil
}

// elementInVersion fetches an element and verifies it belongs to the
// model version named in the path, so a caller can't probe another
// tenant's element by ID once they've passed the path's own auth check.
func (d *Deps) elementInVersion(c *gin.Context, versionID, elementID string) (*model.IfcElement, error) {
	el, err := d.Catalog.GetElement(c.Request.Context(), elementID)
	if err != nil {
		return nil, err
	}
	if el.ModelVersionID != versionID {
		return nil, apierrors.NewNotFound("ifc element not found")
	}
	return el, nil
}

func (d *Deps) getElement(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	versionID := c.Param("versionID")
	_, projectID, err := d.modelVersionProject(c, versionID)
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleViewer); err != nil {
		return nil, authz.HideAsNotFound(err)
	}
	return d.elementInVersion(c, versionID, c.Param("elementID"))
}

func (d *Deps) listPropertySets(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	versionID := c.Param("versionID")
	_, projectID, err := d.modelVersionProject(c, versionID)
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleViewer); err != nil {
		return nil, authz.HideAsNotFound(err)
	}
	if _, err := d.elementInVersion(c, versionID, c.Param("elementID")); err != nil {
		return nil, err
	}
	return d.Catalog.ListPropertySetsForElement(c.Request.Context(), c.Param("elementID"))
}

func (d *Deps) listProperties(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	versionID := c.Param("versionID")
	elementID := c.Param("elementID")
	_, projectID, err := d.modelVersionProject(c, versionID)
	if err != nil {
		return nil, err
	}
	if err := d.Gate.RequireProjectRole(c.Request.Context(), p, projectID, model.ProjectRoleViewer); err != nil {
		return nil, authz.HideAsNotFound(err)
	}
	if _, err := d.elementInVersion(c, versionID, elementID); err != nil {
		return nil, err
	}
	sets, err := d.Catalog.ListPropertySetsForElement(c.Request.Context(), elementID)
	if err != nil {
		return nil, err
	}
	setID := c.Param("setID")
	found := false
	for _, s := range sets {
		if s.ID == setID {
			found = true
			break
		}
	}
	if !found {
		return nil, apierrors.NewNotFound("property set not found")
	}
	return d.Catalog.ListPropertiesForSet(c.Request.Context(), setID)
}
