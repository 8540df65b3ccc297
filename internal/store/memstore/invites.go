package memstore

import (
	"context"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func (s *Store) CreateInvite(ctx context.Context, i *model.WorkspaceInvite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *i
	s.invites[i.Token] = &cp
	return nil
}

func (s *Store) GetInviteByToken(ctx context.Context, token string) (*model.WorkspaceInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.invites[token]
	if !ok {
		return nil, store.ErrNotFound{What: "workspace invite"}
	}
	cp := *i
	return &cp, nil
}

func (s *Store) UpdateInvite(ctx context.Context, i *model.WorkspaceInvite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invites[i.Token]; !ok {
		return store.ErrNotFound{What: "workspace invite"}
	}
	cp := *i
	s.invites[i.Token] = &cp
	return nil
}

func (s *Store) ListInvites(ctx context.Context, workspaceID string) ([]*model.WorkspaceInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.WorkspaceInvite
	for _, i := range s.invites {
		if i.WorkspaceID == workspaceID {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ store.Invites = (*Store)(nil)
