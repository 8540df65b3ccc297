package memstore

import (
	"context"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func (s *Store) CreateUploadSession(ctx context.Context, up *model.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *up
	s.uploads[up.ID] = &cp
	return nil
}

func (s *Store) GetUploadSession(ctx context.Context, id string) (*model.UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	up, ok := s.uploads[id]
	if !ok {
		return nil, store.ErrNotFound{What: "upload session"}
	}
	cp := *up
	return &cp, nil
}

func (s *Store) UpdateUploadSession(ctx context.Context, up *model.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.uploads[up.ID]; !ok {
		return store.ErrNotFound{What: "upload session"}
	}
	cp := *up
	s.uploads[up.ID] = &cp
	return nil
}

var _ store.Upload = (*Store)(nil)
