package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func (s *Store) CreateFile(ctx context.Context, f *model.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.files[f.ID] = &cp
	return nil
}

func (s *Store) GetFile(ctx context.Context, id string) (*model.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, store.ErrNotFound{What: "file"}
	}
	cp := *f
	return &cp, nil
}

func (s *Store) ListFiles(ctx context.Context, projectID string, kind *model.FileKind, category *model.FileCategory, f store.Filter) ([]*model.File, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*model.File
	for _, file := range s.files {
		if file.ProjectID != projectID || file.IsDeleted {
			continue
		}
		if kind != nil && file.Kind != *kind {
			continue
		}
		if category != nil && file.Category != *category {
			continue
		}
		cp := *file
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	limit, offset := clampPage(f)
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func clampPage(f store.Filter) (limit, offset int) {
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	switch {
	case size < 1:
		size = 20
	case size > 100:
		size = 100
	}
	return size, (page - 1) * size
}

func (s *Store) SoftDeleteFile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok || f.IsDeleted {
		return store.ErrNotFound{What: "file (or already deleted)"}
	}
	now := time.Now().UTC()
	f.IsDeleted = true
	f.DeletedAt = &now
	return nil
}

func (s *Store) UsageForProject(ctx context.Context, projectID string) (int, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	var total int64
	for _, f := range s.files {
		if f.ProjectID == projectID && !f.IsDeleted {
			n++
			total += f.SizeBytes
		}
	}
	return n, total, nil
}

func (s *Store) UsageForWorkspace(ctx context.Context, workspaceID string) (int, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	var total int64
	for _, f := range s.files {
		if f.IsDeleted {
			continue
		}
		p, ok := s.projects[f.ProjectID]
		if !ok || p.WorkspaceID != workspaceID {
			continue
		}
		n++
		total += f.SizeBytes
	}
	return n, total, nil
}

func (s *Store) CreateModel(ctx context.Context, m *model.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.models[m.ID] = &cp
	return nil
}

func (s *Store) GetModel(ctx context.Context, id string) (*model.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[id]
	if !ok {
		return nil, store.ErrNotFound{What: "model"}
	}
	cp := *m
	return &cp, nil
}

func (s *Store) ListModels(ctx context.Context, projectID string) ([]*model.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Model
	for _, m := range s.models {
		if m.ProjectID == projectID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateModelVersion(ctx context.Context, v *model.ModelVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.modelVersions[v.ID] = &cp
	return nil
}

func (s *Store) GetModelVersion(ctx context.Context, id string) (*model.ModelVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.modelVersions[id]
	if !ok {
		return nil, store.ErrNotFound{What: "model version"}
	}
	cp := *v
	return &cp, nil
}

func (s *Store) ListModelVersions(ctx context.Context, modelID string, f store.Filter) ([]*model.ModelVersion, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*model.ModelVersion
	for _, v := range s.modelVersions {
		if v.ModelID == modelID {
			cp := *v
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].VersionNumber > matched[j].VersionNumber })
	total := len(matched)
	limit, offset := clampPage(f)
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *Store) NextVersionNumber(ctx context.Context, modelID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, v := range s.modelVersions {
		if v.ModelID == modelID && v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max + 1, nil
}

func (s *Store) UpdateModelVersion(ctx context.Context, v *model.ModelVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modelVersions[v.ID]; !ok {
		return store.ErrNotFound{What: "model version"}
	}
	cp := *v
	s.modelVersions[v.ID] = &cp
	return nil
}

var _ store.Catalog = (*Store)(nil)
