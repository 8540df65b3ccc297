// Package httpapi wires the gin HTTP surface onto the domain services.
// Grounded on the teacher's handle(c, fn)/handleFunc dispatcher
// (SaFE/apiserver/pkg/handlers/cd/handler.go): a handler returns
// (interface{}, error) and handle() translates either into the response.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/authz"
	"github.com/ifcserve/hub/internal/catalog"
	"github.com/ifcserve/hub/internal/correlation"
	"github.com/ifcserve/hub/internal/identity"
	"github.com/ifcserve/hub/internal/oauthserver"
	"github.com/ifcserve/hub/internal/pat"
	"github.com/ifcserve/hub/internal/ratelimit"
	"github.com/ifcserve/hub/internal/store"
	"github.com/ifcserve/hub/internal/upload"
)

// Deps are the server-lifetime singletons the routes dispatch to.
type Deps struct {
	Store    store.Store
	Identity *identity.Service
	Gate     *authz.Gate
	OAuth    *oauthserver.Service
	Issuer   *oauthserver.Issuer
	PAT      *pat.Service
	Upload   *upload.Service
	Catalog  *catalog.Service

	ReserveLimiter *ratelimit.Limiter
	ContentLimiter *ratelimit.Limiter
	CommitLimiter  *ratelimit.Limiter

	Checkers map[string]correlation.Checker
}

type handleFunc func(*gin.Context) (interface{}, error)

// handle runs fn and writes its result, aborting with a translated error
// on failure. A nil result writes the status with no body; anything else
// is JSON-encoded.
func handle(c *gin.Context, fn handleFunc) {
	resp, err := fn(c)
	if err != nil {
		apierrors.AbortWithApiError(c, err)
		return
	}
	code := http.StatusOK
	if c.Writer.Status() > 0 {
		code = c.Writer.Status()
	}
	if resp == nil {
		c.Status(code)
		return
	}
	c.JSON(code, resp)
}

// NewRouter builds the full route tree.
func NewRouter(d *Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), correlation.Middleware())

	r.GET("/healthz", correlation.Handler(d.Checkers, defaultHealthTimeout))

	oauth := r.Group("/oauth")
	{
		oauth.GET("/authorize", d.authenticate(), d.authorize)
		oauth.POST("/token", func(c *gin.Context) { handle(c, d.token) })
		oauth.POST("/revoke", func(c *gin.Context) { handle(c, d.revokeToken) })
	}

	api := r.Group("/api/v1")
	api.Use(d.authenticate())
	{
		api.POST("/workspaces", func(c *gin.Context) { handle(c, d.createWorkspace) })
		api.POST("/workspaces/:workspaceID/members/:userID", func(c *gin.Context) { handle(c, d.updateMember) })
		api.DELETE("/workspaces/:workspaceID/members/:userID", func(c *gin.Context) { handle(c, d.removeMember) })
		api.POST("/workspaces/:workspaceID/projects", func(c *gin.Context) { handle(c, d.createProject) })
		api.POST("/workspaces/:workspaceID/invites", func(c *gin.Context) { handle(c, d.createInvite) })
		api.GET("/workspaces/:workspaceID/invites", func(c *gin.Context) { handle(c, d.listInvites) })
		api.POST("/workspaces/invites/:token/accept", func(c *gin.Context) { handle(c, d.acceptInvite) })
		api.GET("/workspaces/:workspaceID/usage", func(c *gin.Context) { handle(c, d.usageForWorkspace) })

		api.POST("/workspaces/:workspaceID/pats", func(c *gin.Context) { handle(c, d.issuePAT) })
		api.GET("/workspaces/:workspaceID/pats", func(c *gin.Context) { handle(c, d.listPATs) })
		api.PUT("/pats/:patID", func(c *gin.Context) { handle(c, d.updatePAT) })
		api.GET("/pats/:patID/audit-logs", func(c *gin.Context) { handle(c, d.listPATAuditLogs) })
		api.POST("/pats/:patID/revoke", func(c *gin.Context) { handle(c, d.revokePAT) })

		api.POST("/workspaces/:workspaceID/apps", func(c *gin.Context) { handle(c, d.registerApp) })
		api.GET("/workspaces/:workspaceID/apps", func(c *gin.Context) { handle(c, d.listApps) })
		api.GET("/apps/:appID", func(c *gin.Context) { handle(c, d.getApp) })
		api.PUT("/apps/:appID", func(c *gin.Context) { handle(c, d.updateApp) })
		api.DELETE("/apps/:appID", func(c *gin.Context) { handle(c, d.deleteApp) })
		api.POST("/apps/:appID/rotate-secret", func(c *gin.Context) { handle(c, d.rotateAppSecret) })
		api.GET("/apps/:appID/audit-logs", func(c *gin.Context) { handle(c, d.listAppAuditLogs) })

		api.POST("/projects/:projectID/uploads", d.rateLimited(func(d *Deps) *ratelimit.Limiter { return d.ReserveLimiter }), func(c *gin.Context) { handle(c, d.reserveUpload) })
		api.PUT("/uploads/:uploadID/content", d.rateLimited(func(d *Deps) *ratelimit.Limiter { return d.ContentLimiter }), func(c *gin.Context) { handle(c, d.uploadContent) })
		api.POST("/uploads/:uploadID/commit", d.rateLimited(func(d *Deps) *ratelimit.Limiter { return d.CommitLimiter }), func(c *gin.Context) { handle(c, d.commitUpload) })

		api.GET("/projects/:projectID/files", func(c *gin.Context) { handle(c, d.listFiles) })
		api.GET("/files/:fileID", func(c *gin.Context) { handle(c, d.getFile) })
		api.GET("/files/:fileID/download", func(c *gin.Context) { d.downloadFile(c) })
		api.DELETE("/files/:fileID", func(c *gin.Context) { handle(c, d.deleteFile) })
		api.GET("/projects/:projectID/usage", func(c *gin.Context) { handle(c, d.usageForProject) })

		api.POST("/projects/:projectID/models", func(c *gin.Context) { handle(c, d.createModel) })
		api.GET("/projects/:projectID/models", func(c *gin.Context) { handle(c, d.listModels) })
		api.GET("/models/:modelID", func(c *gin.Context) { handle(c, d.getModel) })

		api.POST("/models/:modelID/versions", func(c *gin.Context) { handle(c, d.createModelVersion) })
		api.GET("/models/:modelID/versions", func(c *gin.Context) { handle(c, d.listModelVersions) })
		api.GET("/modelversions/:versionID", func(c *gin.Context) { handle(c, d.getModelVersion) })
		api.GET("/modelversions/:versionID/wexbim", func(c *gin.Context) { d.downloadWexBim(c) })
		api.GET("/modelversions/:versionID/properties/artifact", func(c *gin.Context) { d.downloadPropertiesArtifact(c) })

		api.GET("/modelversions/:versionID/properties", func(c *gin.Context) { handle(c, d.listElements) })
		api.GET("/modelversions/:versionID/properties/elements/:elementID", func(c *gin.Context) { handle(c, d.getElement) })
		api.GET("/modelversions/:versionID/properties/elements/:elementID/propertysets", func(c *gin.Context) { handle(c, d.listPropertySets) })
		api.GET("/modelversions/:versionID/properties/elements/:elementID/propertysets/:setID/properties", func(c *gin.Context) { handle(c, d.listProperties) })
	}

	return r
}
