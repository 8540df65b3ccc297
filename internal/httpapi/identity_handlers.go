package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/authz"
	"github.com/ifcserve/hub/internal/model"
)

type createWorkspaceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (d *Deps) createWorkspace(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	var req createWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}
	return d.Identity.CreateWorkspace(c.Request.Context(), req.Name, req.Description, p.UserID)
}

type updateMemberRequest struct {
	Role model.WorkspaceRole `json:"role" binding:"required"`
}

func (d *Deps) updateMember(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	workspaceID := c.Param("workspaceID")
	if err := d.Gate.RequireWorkspaceRole(c.Request.Context(), p, workspaceID, model.RoleAdmin); err != nil {
		return nil, err
	}
	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}
	if err := d.Identity.UpdateMemberRole(c.Request.Context(), workspaceID, c.Param("userID"), req.Role); err != nil {
		return nil, err
	}
	return gin.H{}, nil
}

func (d *Deps) removeMember(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	workspaceID := c.Param("workspaceID")
	if err := d.Gate.RequireWorkspaceRole(c.Request.Context(), p, workspaceID, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := d.Identity.RemoveMember(c.Request.Context(), workspaceID, c.Param("userID")); err != nil {
		return nil, err
	}
	return gin.H{}, nil
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (d *Deps) createProject(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	workspaceID := c.Param("workspaceID")
	if err := d.Gate.RequireWorkspaceRole(c.Request.Context(), p, workspaceID, model.RoleMember); err != nil {
		return nil, err
	}
	if err := authz.RequireScope(p, "projects:write"); err != nil {
		return nil, err
	}
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}
	return d.Identity.CreateProject(c.Request.Context(), workspaceID, req.Name, req.Description)
}

type createInviteRequest struct {
	Email           string              `json:"email" binding:"required"`
	Role            model.WorkspaceRole `json:"role" binding:"required"`
	AcceptURLPrefix string              `json:"acceptUrlPrefix"`
}

func (d *Deps) createInvite(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	workspaceID := c.Param("workspaceID")
	if err := d.Gate.RequireWorkspaceRole(c.Request.Context(), p, workspaceID, model.RoleAdmin); err != nil {
		return nil, err
	}
	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}
	return d.Identity.CreateInvite(c.Request.Context(), workspaceID, req.Email, req.Role, p.UserID, req.AcceptURLPrefix)
}

func (d *Deps) listInvites(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	workspaceID := c.Param("workspaceID")
	if err := d.Gate.RequireWorkspaceRole(c.Request.Context(), p, workspaceID, model.RoleAdmin); err != nil {
		return nil, err
	}
	return d.Identity.ListInvites(c.Request.Context(), workspaceID)
}

func (d *Deps) acceptInvite(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	return d.Identity.AcceptInvite(c.Request.Context(), c.Param("token"), p.UserID)
}

func (d *Deps) usageForWorkspace(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	workspaceID := c.Param("workspaceID")
	if err := d.Gate.RequireWorkspace(p, workspaceID); err != nil {
		return nil, err
	}
	return d.Catalog.UsageForWorkspace(c.Request.Context(), workspaceID)
}
