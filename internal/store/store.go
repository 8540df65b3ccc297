// Package store defines the persistence boundary. The relational store
// itself is an external collaborator per spec §1/§6; everything upstream of
// this package talks only to these interfaces, never to SQL directly.
package store

import (
	"context"

	"github.com/ifcserve/hub/internal/model"
)

// ErrNotFound is returned by Get-style methods when a row is absent.
type ErrNotFound struct{ What string }

func (e ErrNotFound) Error() string { return e.What + " not found" }

// Filter holds the common listing controls used across the catalog.
type Filter struct {
	Page     int
	PageSize int
}

// Tx marks a unit of work that must commit/rollback atomically; §4.8/§5
// require authorization-code consumption, refresh-token rotation and audit
// writes to ride the same transaction as their triggering action.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the composite persistence interface. A single concrete
// implementation (internal/store/pgstore) backs it in production; tests use
// internal/store/memstore.
type Store interface {
	Identity
	OAuth
	PAT
	Upload
	Catalog
	Audit
	Invites
	Properties

	// WithTx runs fn inside a transaction. fn's store parameter is bound to
	// the transaction for the duration of the call.
	WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

// Identity covers C1: users, workspaces, memberships, projects.
type Identity interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserBySubject(ctx context.Context, subject string) (*model.User, error)
	TouchLastLogin(ctx context.Context, userID string) error

	CreateWorkspace(ctx context.Context, w *model.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*model.Workspace, error)
	UpdateWorkspace(ctx context.Context, w *model.Workspace) error
	ListWorkspacesForUser(ctx context.Context, userID string) ([]*model.Workspace, error)

	CreateWorkspaceMembership(ctx context.Context, m *model.WorkspaceMembership) error
	GetWorkspaceMembership(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMembership, error)
	UpdateWorkspaceMembershipRole(ctx context.Context, workspaceID, userID string, role model.WorkspaceRole) error
	DeleteWorkspaceMembership(ctx context.Context, workspaceID, userID string) error
	ListWorkspaceMemberships(ctx context.Context, workspaceID string) ([]*model.WorkspaceMembership, error)
	CountOwners(ctx context.Context, workspaceID string) (int, error)

	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	UpdateProject(ctx context.Context, p *model.Project) error
	ListProjects(ctx context.Context, workspaceID string) ([]*model.Project, error)

	CreateProjectMembership(ctx context.Context, m *model.ProjectMembership) error
	GetProjectMembership(ctx context.Context, projectID, userID string) (*model.ProjectMembership, error)
	ListProjectMemberships(ctx context.Context, projectID string) ([]*model.ProjectMembership, error)
}

// OAuth covers C3.
type OAuth interface {
	CreateOAuthApp(ctx context.Context, a *model.OAuthApp) error
	GetOAuthAppByClientID(ctx context.Context, clientID string) (*model.OAuthApp, error)
	GetOAuthApp(ctx context.Context, id string) (*model.OAuthApp, error)
	UpdateOAuthApp(ctx context.Context, a *model.OAuthApp) error
	ListOAuthApps(ctx context.Context, workspaceID string) ([]*model.OAuthApp, error)

	CreateAuthorizationCode(ctx context.Context, c *model.OAuthAuthorizationCode) error
	GetAuthorizationCode(ctx context.Context, code string) (*model.OAuthAuthorizationCode, error)
	// MarkCodeUsed consumes the code unconditionally (valid redeem or a
	// failed PKCE/redirect check: §4.3 requires one-shot semantics either
	// way). Must be a conditional UPDATE ... WHERE used_at IS NULL so
	// concurrent redeems pick exactly one winner (§5).
	MarkCodeUsed(ctx context.Context, code string) (bool, error)

	CreateRefreshToken(ctx context.Context, t *model.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (*model.RefreshToken, error)
	// RevokeRefreshToken marks a single token revoked conditionally
	// (WHERE revoked_at IS NULL), returning whether this call did the
	// revoking (false if already revoked by a racing request).
	RevokeRefreshToken(ctx context.Context, hash string) (bool, error)
	RevokeFamily(ctx context.Context, familyID string) error
}

// PAT covers C4.
type PAT interface {
	CreatePAT(ctx context.Context, p *model.PersonalAccessToken) error
	GetPATByPrefix(ctx context.Context, prefix string) (*model.PersonalAccessToken, error)
	GetPAT(ctx context.Context, id string) (*model.PersonalAccessToken, error)
	ListPATsForUser(ctx context.Context, workspaceID, userID string) ([]*model.PersonalAccessToken, error)
	UpdatePAT(ctx context.Context, p *model.PersonalAccessToken) error
	TouchPATLastUsed(ctx context.Context, id string) error
}

// Upload covers C5.
type Upload interface {
	CreateUploadSession(ctx context.Context, s *model.UploadSession) error
	GetUploadSession(ctx context.Context, id string) (*model.UploadSession, error)
	UpdateUploadSession(ctx context.Context, s *model.UploadSession) error
}

// Catalog covers C6/C7.
type Catalog interface {
	CreateFile(ctx context.Context, f *model.File) error
	GetFile(ctx context.Context, id string) (*model.File, error)
	ListFiles(ctx context.Context, projectID string, kind *model.FileKind, category *model.FileCategory, f Filter) ([]*model.File, int, error)
	SoftDeleteFile(ctx context.Context, id string) error
	UsageForProject(ctx context.Context, projectID string) (count int, totalBytes int64, err error)
	UsageForWorkspace(ctx context.Context, workspaceID string) (count int, totalBytes int64, err error)

	CreateModel(ctx context.Context, m *model.Model) error
	GetModel(ctx context.Context, id string) (*model.Model, error)
	ListModels(ctx context.Context, projectID string) ([]*model.Model, error)

	CreateModelVersion(ctx context.Context, v *model.ModelVersion) error
	GetModelVersion(ctx context.Context, id string) (*model.ModelVersion, error)
	ListModelVersions(ctx context.Context, modelID string, f Filter) ([]*model.ModelVersion, int, error)
	NextVersionNumber(ctx context.Context, modelID string) (int, error)
	UpdateModelVersion(ctx context.Context, v *model.ModelVersion) error
}

// Audit covers C8.
type Audit interface {
	AppendAudit(ctx context.Context, e *model.AuditLog) error
	ListAudit(ctx context.Context, subject, subjectID string, f Filter) ([]*model.AuditLog, int, error)
}

// Invites backs the workspace-invite supplement (SPEC_FULL §4 C1).
type Invites interface {
	CreateInvite(ctx context.Context, i *model.WorkspaceInvite) error
	GetInviteByToken(ctx context.Context, token string) (*model.WorkspaceInvite, error)
	UpdateInvite(ctx context.Context, i *model.WorkspaceInvite) error
	ListInvites(ctx context.Context, workspaceID string) ([]*model.WorkspaceInvite, error)
}

// Properties backs the IFC property-set projection endpoints.
type Properties interface {
	InsertElements(ctx context.Context, els []*model.IfcElement) error
	InsertPropertySets(ctx context.Context, ps []*model.IfcPropertySet) error
	InsertProperties(ctx context.Context, ps []*model.IfcProperty) error
	InsertQuantitySets(ctx context.Context, qs []*model.IfcQuantitySet) error
	InsertQuantities(ctx context.Context, qs []*model.IfcQuantity) error

	ListElements(ctx context.Context, modelVersionID string, globalID, typeName, name string, f Filter) ([]*model.IfcElement, int, error)
	GetElement(ctx context.Context, elementID string) (*model.IfcElement, error)
	ListPropertySetsForElement(ctx context.Context, elementID string) ([]*model.IfcPropertySet, error)
	ListPropertiesForSet(ctx context.Context, propertySetID string) ([]*model.IfcProperty, error)
}
