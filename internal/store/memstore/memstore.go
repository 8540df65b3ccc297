// Package memstore is an in-memory store.Store used by unit tests across
// the module, standing in for pgstore without a live Postgres instance.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

// Store holds every entity in a map guarded by a single mutex. It is not
// meant to be fast, only to behave like the real thing for the invariants
// under test (role ranks, one-shot code consumption, refresh rotation).
type Store struct {
	mu sync.Mutex

	users        map[string]*model.User
	workspaces   map[string]*model.Workspace
	wsMembers    map[string]*model.WorkspaceMembership // key: workspaceID+"/"+userID
	projects     map[string]*model.Project
	projMembers  map[string]*model.ProjectMembership // key: projectID+"/"+userID
	invites      map[string]*model.WorkspaceInvite    // key: token

	oauthApps     map[string]*model.OAuthApp
	oauthByClient map[string]string // clientID -> appID
	authCodes     map[string]*model.OAuthAuthorizationCode
	refreshTokens map[string]*model.RefreshToken

	pats       map[string]*model.PersonalAccessToken
	patsByPfx  map[string]string // prefix -> id

	uploads map[string]*model.UploadSession

	files         map[string]*model.File
	models        map[string]*model.Model
	modelVersions map[string]*model.ModelVersion

	auditLogs []*model.AuditLog

	elements     map[string]*model.IfcElement
	propertySets map[string]*model.IfcPropertySet
	properties   map[string]*model.IfcProperty
	quantitySets map[string]*model.IfcQuantitySet
	quantities   map[string]*model.IfcQuantity
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:         map[string]*model.User{},
		workspaces:    map[string]*model.Workspace{},
		wsMembers:     map[string]*model.WorkspaceMembership{},
		projects:      map[string]*model.Project{},
		projMembers:   map[string]*model.ProjectMembership{},
		invites:       map[string]*model.WorkspaceInvite{},
		oauthApps:     map[string]*model.OAuthApp{},
		oauthByClient: map[string]string{},
		authCodes:     map[string]*model.OAuthAuthorizationCode{},
		refreshTokens: map[string]*model.RefreshToken{},
		pats:          map[string]*model.PersonalAccessToken{},
		patsByPfx:     map[string]string{},
		uploads:       map[string]*model.UploadSession{},
		files:         map[string]*model.File{},
		models:        map[string]*model.Model{},
		modelVersions: map[string]*model.ModelVersion{},
		elements:      map[string]*model.IfcElement{},
		propertySets:  map[string]*model.IfcPropertySet{},
		properties:    map[string]*model.IfcProperty{},
		quantitySets:  map[string]*model.IfcQuantitySet{},
		quantities:    map[string]*model.IfcQuantity{},
	}
}

// WithTx has no real transaction boundary in memory; it just serializes
// through the same mutex every other method uses, which is enough to trial
// the reuse-detection and one-shot-code call sites against.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, st store.Store) error) error {
	return fn(ctx, s)
}

func wsMemberKey(workspaceID, userID string) string { return workspaceID + "/" + userID }
func projMemberKey(projectID, userID string) string { return projectID + "/" + userID }

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound{What: "user"}
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserBySubject(ctx context.Context, subject string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Subject == subject {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound{What: "user"}
}

func (s *Store) TouchLastLogin(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound{What: "user"}
	}
	now := time.Now().UTC()
	u.LastLoginAt = &now
	return nil
}

func (s *Store) CreateWorkspace(ctx context.Context, w *model.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.workspaces[w.ID] = &cp
	return nil
}

func (s *Store) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workspaces[id]
	if !ok {
		return nil, store.ErrNotFound{What: "workspace"}
	}
	cp := *w
	return &cp, nil
}

func (s *Store) UpdateWorkspace(ctx context.Context, w *model.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[w.ID]; !ok {
		return store.ErrNotFound{What: "workspace"}
	}
	cp := *w
	s.workspaces[w.ID] = &cp
	return nil
}

func (s *Store) ListWorkspacesForUser(ctx context.Context, userID string) ([]*model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Workspace
	for _, m := range s.wsMembers {
		if m.UserID != userID {
			continue
		}
		if w, ok := s.workspaces[m.WorkspaceID]; ok {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateWorkspaceMembership(ctx context.Context, m *model.WorkspaceMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.wsMembers[wsMemberKey(m.WorkspaceID, m.UserID)] = &cp
	return nil
}

func (s *Store) GetWorkspaceMembership(ctx context.Context, workspaceID, userID string) (*model.WorkspaceMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.wsMembers[wsMemberKey(workspaceID, userID)]
	if !ok {
		return nil, store.ErrNotFound{What: "workspace membership"}
	}
	cp := *m
	return &cp, nil
}

func (s *Store) UpdateWorkspaceMembershipRole(ctx context.Context, workspaceID, userID string, role model.WorkspaceRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.wsMembers[wsMemberKey(workspaceID, userID)]
	if !ok {
		return store.ErrNotFound{What: "workspace membership"}
	}
	m.Role = role
	return nil
}

func (s *Store) DeleteWorkspaceMembership(ctx context.Context, workspaceID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wsMembers, wsMemberKey(workspaceID, userID))
	return nil
}

func (s *Store) ListWorkspaceMemberships(ctx context.Context, workspaceID string) ([]*model.WorkspaceMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.WorkspaceMembership
	for _, m := range s.wsMembers {
		if m.WorkspaceID == workspaceID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountOwners(ctx context.Context, workspaceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.wsMembers {
		if m.WorkspaceID == workspaceID && m.Role == model.RoleOwner {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrNotFound{What: "project"}
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpdateProject(ctx context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return store.ErrNotFound{What: "project"}
	}
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) ListProjects(ctx context.Context, workspaceID string) ([]*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Project
	for _, p := range s.projects {
		if p.WorkspaceID == workspaceID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateProjectMembership(ctx context.Context, m *model.ProjectMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.projMembers[projMemberKey(m.ProjectID, m.UserID)] = &cp
	return nil
}

func (s *Store) GetProjectMembership(ctx context.Context, projectID, userID string) (*model.ProjectMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.projMembers[projMemberKey(projectID, userID)]
	if !ok {
		return nil, store.ErrNotFound{What: "project membership"}
	}
	cp := *m
	return &cp, nil
}

func (s *Store) ListProjectMemberships(ctx context.Context, projectID string) ([]*model.ProjectMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ProjectMembership
	for _, m := range s.projMembers {
		if m.ProjectID == projectID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ store.Identity = (*Store)(nil)
var _ store.Store = (*Store)(nil)
