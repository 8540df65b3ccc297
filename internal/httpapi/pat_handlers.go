package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/authz"
	"github.com/ifcserve/hub/internal/model"
)

type issuePATRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Scopes      []string   `json:"scopes" binding:"required"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type issuePATResponse struct {
	Token string                     `json:"token"`
	PAT   *model.PersonalAccessToken `json:"pat"`
}

func (d *Deps) issuePAT(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	if err := authz.RequireScope(p, "pats:write"); err != nil {
		return nil, err
	}
	workspaceID := c.Param("workspaceID")
	if err := d.Gate.RequireWorkspace(p, workspaceID); err != nil {
		return nil, err
	}

	var req issuePATRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}

	raw, rec, err := d.PAT.Issue(c.Request.Context(), workspaceID, p.UserID, req.Name, req.Description,
		req.Scopes, req.ExpiresAt, c.ClientIP())
	if err != nil {
		return nil, err
	}
	return issuePATResponse{Token: raw, PAT: rec}, nil
}

func (d *Deps) listPATs(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	if err := authz.RequireScope(p, "pats:read"); err != nil {
		return nil, err
	}
	workspaceID := c.Param("workspaceID")
	if err := d.Gate.RequireWorkspace(p, workspaceID); err != nil {
		return nil, err
	}
	return d.PAT.List(c.Request.Context(), workspaceID, p.UserID)
}

type updatePATRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// patOwnerOrAdmin loads the PAT named by the path and requires the caller
// either own it or administer its workspace, mirroring revokePAT's check.
func (d *Deps) patOwnerOrAdmin(c *gin.Context, p authz.Principal, patID string) (*model.PersonalAccessToken, bool, error) {
	rec, err := d.Store.GetPAT(c.Request.Context(), patID)
	if err != nil {
		return nil, false, err
	}
	byAdmin := rec.UserID != p.UserID
	if byAdmin {
		if err := d.Gate.RequireWorkspaceRole(c.Request.Context(), p, rec.WorkspaceID, model.RoleAdmin); err != nil {
			return nil, false, err
		}
	} else if err := d.Gate.RequireWorkspace(p, rec.WorkspaceID); err != nil {
		return nil, false, err
	}
	return rec, byAdmin, nil
}

func (d *Deps) updatePAT(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	if err := authz.RequireScope(p, "pats:write"); err != nil {
		return nil, err
	}
	rec, _, err := d.patOwnerOrAdmin(c, p, c.Param("patID"))
	if err != nil {
		return nil, err
	}
	var req updatePATRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}
	return d.PAT.UpdateMeta(c.Request.Context(), rec.ID, req.Name, req.Description, p.UserID, c.ClientIP())
}

func (d *Deps) listPATAuditLogs(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	if err := authz.RequireScope(p, "pats:read"); err != nil {
		return nil, err
	}
	if _, _, err := d.patOwnerOrAdmin(c, p, c.Param("patID")); err != nil {
		return nil, err
	}
	return d.PAT.ListAuditLogs(c.Request.Context(), c.Param("patID"))
}

func (d *Deps) revokePAT(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	if err := authz.RequireScope(p, "pats:write"); err != nil {
		return nil, err
	}
	rec, revokedByAdmin, err := d.patOwnerOrAdmin(c, p, c.Param("patID"))
	if err != nil {
		return nil, err
	}
	if err := d.PAT.Revoke(c.Request.Context(), rec.ID, p.UserID, c.ClientIP(), revokedByAdmin); err != nil {
		return nil, err
	}
	return gin.H{}, nil
}
