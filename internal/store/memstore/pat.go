package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func (s *Store) CreatePAT(ctx context.Context, p *model.PersonalAccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.pats[p.ID] = &cp
	s.patsByPfx[p.TokenPrefix] = p.ID
	return nil
}

func (s *Store) GetPATByPrefix(ctx context.Context, prefix string) (*model.PersonalAccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.patsByPfx[prefix]
	if !ok {
		return nil, store.ErrNotFound{What: "personal access token"}
	}
	cp := *s.pats[id]
	return &cp, nil
}

func (s *Store) GetPAT(ctx context.Context, id string) (*model.PersonalAccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pats[id]
	if !ok {
		return nil, store.ErrNotFound{What: "personal access token"}
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListPATsForUser(ctx context.Context, workspaceID, userID string) ([]*model.PersonalAccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.PersonalAccessToken
	for _, p := range s.pats {
		if p.WorkspaceID == workspaceID && p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdatePAT(ctx context.Context, p *model.PersonalAccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pats[p.ID]; !ok {
		return store.ErrNotFound{What: "personal access token"}
	}
	cp := *p
	s.pats[p.ID] = &cp
	return nil
}

func (s *Store) TouchPATLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pats[id]
	if !ok {
		return store.ErrNotFound{What: "personal access token"}
	}
	now := time.Now().UTC()
	p.LastUsedAt = &now
	return nil
}

var _ store.PAT = (*Store)(nil)
