package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/authz"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/oauthserver"
)

type registerAppRequest struct {
	Name          string            `json:"name" binding:"required"`
	Description   string            `json:"description"`
	ClientType    model.ClientType  `json:"clientType" binding:"required"`
	RedirectURIs  []string          `json:"redirectUris" binding:"required"`
	AllowedScopes []string          `json:"allowedScopes" binding:"required"`
}

type registerAppResponse struct {
	App          *model.OAuthApp `json:"app"`
	ClientSecret string          `json:"clientSecret,omitempty"`
}

func (d *Deps) registerApp(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	workspaceID := c.Param("workspaceID")
	if err := d.Gate.RequireWorkspaceRole(c.Request.Context(), p, workspaceID, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := authz.RequireScope(p, "oauth_apps:write"); err != nil {
		return nil, err
	}
	var req registerAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}
	app, secret, err := d.OAuth.RegisterApp(c.Request.Context(), oauthserver.RegisterAppRequest{
		WorkspaceID: workspaceID, Name: req.Name, Description: req.Description,
		ClientType: req.ClientType, RedirectURIs: req.RedirectURIs,
		AllowedScopes: req.AllowedScopes, CreatedByUserID: p.UserID,
	}, c.ClientIP())
	if err != nil {
		return nil, err
	}
	return registerAppResponse{App: app, ClientSecret: secret}, nil
}

func (d *Deps) listApps(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	workspaceID := c.Param("workspaceID")
	if err := d.Gate.RequireWorkspaceRole(c.Request.Context(), p, workspaceID, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := authz.RequireScope(p, "oauth_apps:read"); err != nil {
		return nil, err
	}
	return d.OAuth.ListApps(c.Request.Context(), workspaceID)
}

// appForWorkspace fetches an app and verifies it belongs to workspaceID,
// preventing an admin of one workspace from managing another's apps by ID.
func (d *Deps) appForWorkspace(c *gin.Context, appID string) (*model.OAuthApp, error) {
	app, err := d.OAuth.GetApp(c.Request.Context(), appID)
	if err != nil {
		return nil, err
	}
	p := principalFrom(c)
	if err := d.Gate.RequireWorkspaceRole(c.Request.Context(), p, app.WorkspaceID, model.RoleAdmin); err != nil {
		return nil, err
	}
	return app, nil
}

func (d *Deps) getApp(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	if err := authz.RequireScope(p, "oauth_apps:read"); err != nil {
		return nil, err
	}
	return d.appForWorkspace(c, c.Param("appID"))
}

type updateAppRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	RedirectURIs  []string `json:"redirectUris"`
	AllowedScopes []string `json:"allowedScopes"`
	IsEnabled     *bool    `json:"isEnabled"`
}

func (d *Deps) updateApp(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	if err := authz.RequireScope(p, "oauth_apps:write"); err != nil {
		return nil, err
	}
	app, err := d.appForWorkspace(c, c.Param("appID"))
	if err != nil {
		return nil, err
	}
	var req updateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apierrors.NewValidation(err.Error())
	}
	return d.OAuth.UpdateApp(c.Request.Context(), app.ID, oauthserver.UpdateAppRequest{
		Name: req.Name, Description: req.Description, RedirectURIs: req.RedirectURIs,
		AllowedScopes: req.AllowedScopes, IsEnabled: req.IsEnabled,
	}, p.UserID, c.ClientIP())
}

func (d *Deps) deleteApp(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	if err := authz.RequireScope(p, "oauth_apps:admin"); err != nil {
		return nil, err
	}
	app, err := d.appForWorkspace(c, c.Param("appID"))
	if err != nil {
		return nil, err
	}
	if err := d.OAuth.DeleteApp(c.Request.Context(), app.ID, p.UserID, c.ClientIP()); err != nil {
		return nil, err
	}
	return gin.H{}, nil
}

func (d *Deps) rotateAppSecret(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	if err := authz.RequireScope(p, "oauth_apps:admin"); err != nil {
		return nil, err
	}
	app, err := d.appForWorkspace(c, c.Param("appID"))
	if err != nil {
		return nil, err
	}
	updated, secret, err := d.OAuth.RotateSecret(c.Request.Context(), app.ID, p.UserID, c.ClientIP())
	if err != nil {
		return nil, err
	}
	return registerAppResponse{App: updated, ClientSecret: secret}, nil
}

func (d *Deps) listAppAuditLogs(c *gin.Context) (interface{}, error) {
	p := principalFrom(c)
	if err := authz.RequireScope(p, "oauth_apps:read"); err != nil {
		return nil, err
	}
	app, err := d.appForWorkspace(c, c.Param("appID"))
	if err != nil {
		return nil, err
	}
	return d.OAuth.ListAuditLogs(c.Request.Context(), "oauth_app", app.ID)
}
