package memstore

import (
	"context"
	"time"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func (s *Store) CreateOAuthApp(ctx context.Context, a *model.OAuthApp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.oauthApps[a.ID] = &cp
	s.oauthByClient[a.ClientID] = a.ID
	return nil
}

func (s *Store) GetOAuthAppByClientID(ctx context.Context, clientID string) (*model.OAuthApp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.oauthByClient[clientID]
	if !ok {
		return nil, store.ErrNotFound{What: "oauth app"}
	}
	cp := *s.oauthApps[id]
	return &cp, nil
}

func (s *Store) GetOAuthApp(ctx context.Context, id string) (*model.OAuthApp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.oauthApps[id]
	if !ok {
		return nil, store.ErrNotFound{What: "oauth app"}
	}
	cp := *a
	return &cp, nil
}

func (s *Store) UpdateOAuthApp(ctx context.Context, a *model.OAuthApp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.oauthApps[a.ID]; !ok {
		return store.ErrNotFound{What: "oauth app"}
	}
	cp := *a
	s.oauthApps[a.ID] = &cp
	return nil
}

func (s *Store) ListOAuthApps(ctx context.Context, workspaceID string) ([]*model.OAuthApp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.OAuthApp
	for _, a := range s.oauthApps {
		if a.WorkspaceID == workspaceID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) CreateAuthorizationCode(ctx context.Context, c *model.OAuthAuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.authCodes[c.CodeValue] = &cp
	return nil
}

func (s *Store) GetAuthorizationCode(ctx context.Context, code string) (*model.OAuthAuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.authCodes[code]
	if !ok {
		return nil, store.ErrNotFound{What: "authorization code"}
	}
	cp := *c
	return &cp, nil
}

func (s *Store) MarkCodeUsed(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.authCodes[code]
	if !ok || c.UsedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	c.UsedAt = &now
	return true, nil
}

func (s *Store) CreateRefreshToken(ctx context.Context, t *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.refreshTokens[t.TokenHash] = &cp
	return nil
}

func (s *Store) GetRefreshTokenByHash(ctx context.Context, hash string) (*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.refreshTokens[hash]
	if !ok {
		return nil, store.ErrNotFound{What: "refresh token"}
	}
	cp := *t
	return &cp, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.refreshTokens[hash]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	return true, nil
}

func (s *Store) RevokeFamily(ctx context.Context, familyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, t := range s.refreshTokens {
		if t.FamilyID == familyID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

var _ store.OAuth = (*Store)(nil)
