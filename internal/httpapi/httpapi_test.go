package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ifcserve/hub/internal/authz"
	"github.com/ifcserve/hub/internal/blob"
	"github.com/ifcserve/hub/internal/catalog"
	"github.com/ifcserve/hub/internal/config"
	"github.com/ifcserve/hub/internal/correlation"
	"github.com/ifcserve/hub/internal/identity"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/oauthserver"
	"github.com/ifcserve/hub/internal/pat"
	"github.com/ifcserve/hub/internal/ratelimit"
	"github.com/ifcserve/hub/internal/store/memstore"
	"github.com/ifcserve/hub/internal/upload"
)

func newTestDeps(t *testing.T) (*Deps, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.SetValue("ratelimit.reserve.permit_limit", 1000)
	config.SetValue("ratelimit.content.permit_limit", 1000)
	config.SetValue("ratelimit.commit.permit_limit", 1000)

	st := memstore.New()
	ctx := context.Background()
	require.NoError(t, st.CreateUser(ctx, &model.User{ID: "u1", Subject: "sub1", Email: "u1@example.com"}))
	require.NoError(t, st.CreateWorkspace(ctx, &model.Workspace{ID: "ws1", Name: "ws"}))
	require.NoError(t, st.CreateWorkspaceMembership(ctx, &model.WorkspaceMembership{
		ID: "wm1", WorkspaceID: "ws1", UserID: "u1", Role: model.RoleOwner,
	}))

	identitySvc := identity.NewService(st, nil)
	gate := authz.NewGate(st, identitySvc)

	issuer, err := oauthserver.NewIssuer([]byte("test-signing-key-0123456789abcdef"))
	require.NoError(t, err)
	oauthSvc := oauthserver.NewService(st, issuer)
	patSvc := pat.NewService(st)
	storage := blob.NewMemStorage()
	uploadSvc := upload.NewService(st, storage)
	catalogSvc := catalog.NewService(st, storage)

	raw, _, err := patSvc.Issue(ctx, "ws1", "u1", "test token", "", []string{
		"workspaces:read", "workspaces:write", "projects:read", "projects:write",
		"files:read", "files:write", "models:read", "models:write",
		"oauth_apps:read", "oauth_apps:write", "oauth_apps:admin",
	}, nil, "127.0.0.1")
	require.NoError(t, err)

	return &Deps{
		Store: st, Identity: identitySvc, Gate: gate, OAuth: oauthSvc, Issuer: issuer,
		PAT: patSvc, Upload: uploadSvc, Catalog: catalogSvc,
		ReserveLimiter: ratelimit.NewLimiter("UploadReserve"),
		ContentLimiter: ratelimit.NewLimiter("UploadContent"),
		CommitLimiter:  ratelimit.NewLimiter("UploadCommit"),
		Checkers:       nil,
	}, raw
}

func TestCreateProjectAndListFilesRoundTrip(t *testing.T) {
	deps, token := newTestDeps(t)
	router := NewRouter(deps)

	body, _ := json.Marshal(map[string]string{"name": "p1", "description": "first project"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces/ws1/projects", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var project model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &project))
	require.NotEmpty(t, project.ID)

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/projects/"+project.ID+"/files", nil)
	listReq.Header.Set("Authorization", "Bearer "+token)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)
}

func TestMissingBearerTokenIsRejected(t *testing.T) {
	deps, _ := newTestDeps(t)
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/p1/files", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthzServesWithoutAuth(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Checkers = map[string]correlation.Checker{"noop": func(ctx context.Context) error { return nil }}
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOAuthAppAdminLifecycle(t *testing.T) {
	deps, token := newTestDeps(t)
	router := NewRouter(deps)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/workspaces/ws1/apps", token, map[string]interface{}{
		"name":          "integration-app",
		"clientType":    "Confidential",
		"redirectUris":  []string{"https://example.com/cb"},
		"allowedScopes": []string{"files:read"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var registered registerAppResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	require.NotEmpty(t, registered.App.ID)
	require.NotEmpty(t, registered.ClientSecret)

	listRec := doJSON(t, router, http.MethodGet, "/api/v1/workspaces/ws1/apps", token, nil)
	require.Equal(t, http.StatusOK, listRec.Code)

	rotateRec := doJSON(t, router, http.MethodPost, "/api/v1/apps/"+registered.App.ID+"/rotate-secret", token, nil)
	require.Equal(t, http.StatusOK, rotateRec.Code)
	var rotated registerAppResponse
	require.NoError(t, json.Unmarshal(rotateRec.Body.Bytes(), &rotated))
	require.NotEqual(t, registered.ClientSecret, rotated.ClientSecret)

	auditRec := doJSON(t, router, http.MethodGet, "/api/v1/apps/"+registered.App.ID+"/audit-logs", token, nil)
	require.Equal(t, http.StatusOK, auditRec.Code)
}

func TestAcceptInviteTwiceIsInvalidState(t *testing.T) {
	deps, token := newTestDeps(t)
	ctx := context.Background()
	require.NoError(t, deps.Store.CreateUser(ctx, &model.User{ID: "u2", Subject: "sub2", Email: "u2@example.com"}))
	router := NewRouter(deps)

	inviteRec := doJSON(t, router, http.MethodPost, "/api/v1/workspaces/ws1/invites", token, map[string]interface{}{
		"email": "u2@example.com",
		"role":  model.RoleMember,
	})
	require.Equal(t, http.StatusOK, inviteRec.Code)
	var invite model.WorkspaceInvite
	require.NoError(t, json.Unmarshal(inviteRec.Body.Bytes(), &invite))

	_, u2Rec, err := deps.PAT.Issue(ctx, "ws1", "u2", "u2 token", "", []string{"workspaces:read"}, nil, "127.0.0.1")
	require.NoError(t, err)
	_ = u2Rec
	u2Token, _, err := deps.PAT.Issue(ctx, "ws1", "u2", "u2 token 2", "", []string{"workspaces:read"}, nil, "127.0.0.1")
	require.NoError(t, err)

	acceptReq := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces/invites/"+invite.Token+"/accept", nil)
	acceptReq.Header.Set("Authorization", "Bearer "+u2Token)
	acceptRec := httptest.NewRecorder()
	router.ServeHTTP(acceptRec, acceptReq)
	require.Equal(t, http.StatusOK, acceptRec.Code)

	secondReq := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces/invites/"+invite.Token+"/accept", nil)
	secondReq.Header.Set("Authorization", "Bearer "+u2Token)
	secondRec := httptest.NewRecorder()
	router.ServeHTTP(secondRec, secondReq)
	require.Equal(t, http.StatusBadRequest, secondRec.Code)
}

func TestCrossTenantModelVersionReadIsNotFound(t *testing.T) {
	deps, token := newTestDeps(t)
	ctx := context.Background()
	router := NewRouter(deps)

	projRec := doJSON(t, router, http.MethodPost, "/api/v1/workspaces/ws1/projects", token, map[string]string{"name": "p1"})
	require.Equal(t, http.StatusOK, projRec.Code)
	var project model.Project
	require.NoError(t, json.Unmarshal(projRec.Body.Bytes(), &project))

	modelRec := doJSON(t, router, http.MethodPost, "/api/v1/projects/"+project.ID+"/models", token, map[string]string{"name": "m1"})
	require.Equal(t, http.StatusOK, modelRec.Code)
	var mdl model.Model
	require.NoError(t, json.Unmarshal(modelRec.Body.Bytes(), &mdl))

	require.NoError(t, deps.Store.CreateFile(ctx, &model.File{
		ID: "f1", ProjectID: project.ID, Name: "a.ifc", Kind: model.FileKindSource,
		Category: model.CategoryIfc, StorageKey: "files/f1",
	}))
	versionRec := doJSON(t, router, http.MethodPost, "/api/v1/models/"+mdl.ID+"/versions", token, map[string]string{"ifcFileId": "f1"})
	require.Equal(t, http.StatusOK, versionRec.Code)
	var version model.ModelVersion
	require.NoError(t, json.Unmarshal(versionRec.Body.Bytes(), &version))

	require.NoError(t, deps.Store.CreateUser(ctx, &model.User{ID: "intruder", Subject: "sub-intruder", Email: "intruder@example.com"}))
	require.NoError(t, deps.Store.CreateWorkspace(ctx, &model.Workspace{ID: "ws2", Name: "ws2"}))
	require.NoError(t, deps.Store.CreateWorkspaceMembership(ctx, &model.WorkspaceMembership{
		ID: "wm2", WorkspaceID: "ws2", UserID: "intruder", Role: model.RoleOwner,
	}))
	intruderToken, _, err := deps.PAT.Issue(ctx, "ws2", "intruder", "intruder token", "",
		[]string{"models:read", "projects:read"}, nil, "127.0.0.1")
	require.NoError(t, err)

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/modelversions/"+version.ID, nil)
	getReq.Header.Set("Authorization", "Bearer "+intruderToken)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusNotFound, getRec.Code)
}
