package oauthserver

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/audit"
	"github.com/ifcserve/hub/internal/cryptoutil"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

const (
	clientIDLen = 16
	secretLen   = 32
)

// RegisterAppRequest is the admin-surface ask to register a new client
// (spec §6: "OAuth-app admin ... CRUD").
type RegisterAppRequest struct {
	WorkspaceID     string
	Name            string
	Description     string
	ClientType      model.ClientType
	RedirectURIs    []string
	AllowedScopes   []string
	CreatedByUserID string
}

// RegisterApp creates an OAuthApp. Confidential clients get a freshly
// minted secret, returned exactly once (the same one-shot-reveal contract
// as internal/pat.Issue); Public clients get no secret at all, since
// they authenticate via PKCE alone.
func (s *Service) RegisterApp(ctx context.Context, req RegisterAppRequest, actorIP string) (app *model.OAuthApp, rawSecret string, err error) {
	clientID, err := cryptoutil.RandomToken(clientIDLen)
	if err != nil {
		return nil, "", apierrors.NewTransient("failed to generate client_id", err)
	}

	scopes := map[string]struct{}{}
	for _, sc := range req.AllowedScopes {
		scopes[sc] = struct{}{}
	}

	app = &model.OAuthApp{
		ID: uuid.NewString(), WorkspaceID: req.WorkspaceID, Name: req.Name,
		Description: req.Description, ClientType: req.ClientType, ClientID: clientID,
		RedirectURIs: req.RedirectURIs, AllowedScopes: scopes, IsEnabled: true,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(), CreatedByUserID: req.CreatedByUserID,
	}

	if req.ClientType == model.ClientConfidential {
		secret, err := cryptoutil.RandomToken(secretLen)
		if err != nil {
			return nil, "", apierrors.NewTransient("failed to generate client secret", err)
		}
		hash, err := cryptoutil.HashSecret(secret)
		if err != nil {
			return nil, "", apierrors.NewTransient("failed to hash client secret", err)
		}
		app.ClientSecretHash = hash.Encode()
		rawSecret = secret
	}

	if err := s.store.CreateOAuthApp(ctx, app); err != nil {
		return nil, "", err
	}
	if err := audit.RecordOAuthAppEvent(ctx, s.store, app.ID, model.OAuthAppCreated, req.CreatedByUserID, actorIP, map[string]interface{}{"name": req.Name}); err != nil {
		_ = err
	}
	return app, rawSecret, nil
}

func (s *Service) GetApp(ctx context.Context, id string) (*model.OAuthApp, error) {
	return s.store.GetOAuthApp(ctx, id)
}

func (s *Service) ListApps(ctx context.Context, workspaceID string) ([]*model.OAuthApp, error) {
	return s.store.ListOAuthApps(ctx, workspaceID)
}

// UpdateAppRequest carries the mutable subset of an OAuthApp's registration.
type UpdateAppRequest struct {
	Name          *string
	Description   *string
	RedirectURIs  []string
	AllowedScopes []string
	IsEnabled     *bool
}

// UpdateApp applies a partial update and records the matching audit event:
// Enabled/Disabled if IsEnabled toggled, Updated otherwise.
func (s *Service) UpdateApp(ctx context.Context, id string, req UpdateAppRequest, actorUserID, actorIP string) (*model.OAuthApp, error) {
	app, err := s.store.GetOAuthApp(ctx, id)
	if err != nil {
		return nil, err
	}
	eventType := model.OAuthAppUpdated
	if req.Name != nil {
		app.Name = *req.Name
	}
	if req.Description != nil {
		app.Description = *req.Description
	}
	if req.RedirectURIs != nil {
		app.RedirectURIs = req.RedirectURIs
	}
	if req.AllowedScopes != nil {
		scopes := map[string]struct{}{}
		for _, sc := range req.AllowedScopes {
			scopes[sc] = struct{}{}
		}
		app.AllowedScopes = scopes
	}
	if req.IsEnabled != nil && *req.IsEnabled != app.IsEnabled {
		app.IsEnabled = *req.IsEnabled
		if app.IsEnabled {
			eventType = model.OAuthAppEnabled
		} else {
			eventType = model.OAuthAppDisabled
		}
	}
	app.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateOAuthApp(ctx, app); err != nil {
		return nil, err
	}
	if err := audit.RecordOAuthAppEvent(ctx, s.store, app.ID, eventType, actorUserID, actorIP, nil); err != nil {
		_ = err
	}
	return app, nil
}

// RotateSecret replaces a Confidential app's client secret, invalidating
// the previous one immediately (spec §4.8 audit event OAuthAppSecretRotated).
func (s *Service) RotateSecret(ctx context.Context, id, actorUserID, actorIP string) (*model.OAuthApp, string, error) {
	app, err := s.store.GetOAuthApp(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if app.ClientType != model.ClientConfidential {
		return nil, "", apierrors.NewInvalidState("only Confidential clients carry a secret")
	}
	secret, err := cryptoutil.RandomToken(secretLen)
	if err != nil {
		return nil, "", apierrors.NewTransient("failed to generate client secret", err)
	}
	hash, err := cryptoutil.HashSecret(secret)
	if err != nil {
		return nil, "", apierrors.NewTransient("failed to hash client secret", err)
	}
	app.ClientSecretHash = hash.Encode()
	app.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateOAuthApp(ctx, app); err != nil {
		return nil, "", err
	}
	if err := audit.RecordOAuthAppEvent(ctx, s.store, app.ID, model.OAuthAppSecretRotated, actorUserID, actorIP, nil); err != nil {
		_ = err
	}
	return app, secret, nil
}

// DeleteApp disables the app rather than physically removing its row: its
// audit trail, refresh-token families, and authorization codes reference it
// by ID, and spec.md lists audit-log retention on app deletion as an
// explicit open question rather than asserting cascade-delete. Disabling
// blocks every future grant the same way a hard delete would.
func (s *Service) DeleteApp(ctx context.Context, id, actorUserID, actorIP string) error {
	app, err := s.store.GetOAuthApp(ctx, id)
	if err != nil {
		return err
	}
	app.IsEnabled = false
	app.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateOAuthApp(ctx, app); err != nil {
		return err
	}
	return audit.RecordOAuthAppEvent(ctx, s.store, app.ID, model.OAuthAppDeleted, actorUserID, actorIP, nil)
}

// ListAuditLogs returns the audit trail for an OAuthApp or a PAT, whichever
// subject is named (spec §6: "...audit-logs endpoints").
func (s *Service) ListAuditLogs(ctx context.Context, subject, subjectID string) ([]*model.AuditLog, error) {
	logs, _, err := s.store.ListAudit(ctx, subject, subjectID, store.Filter{Page: 1, PageSize: 200})
	return logs, err
}
