// Package catalog is C7: the file/model/modelVersion artifact catalog —
// listing, metadata lookup, streaming download, soft-delete, and usage
// aggregation. Grounded on the teacher's squirrel-backed list/count method
// pairs (dbclient's ListX/CountX contract already implemented in
// internal/store) with the download/usage semantics layered on top per
// spec.md §4.7.
package catalog

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/blob"
	"github.com/ifcserve/hub/internal/jobqueue"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

type Service struct {
	store   store.Store
	storage blob.Storage
	queue   *jobqueue.Queue
}

func NewService(s store.Store, storage blob.Storage) *Service {
	return &Service{store: s, storage: storage}
}

// SetQueue wires the async job queue a ModelVersion create enqueues onto
// (spec §4.6). Left nil, CreateModelVersion just inserts the Pending row —
// useful in tests that don't exercise the processing pipeline.
func (s *Service) SetQueue(q *jobqueue.Queue) { s.queue = q }

// ListFiles returns only non-deleted files for a project, ordered and
// paginated by the store layer.
func (s *Service) ListFiles(ctx context.Context, projectID string, kind *model.FileKind, category *model.FileCategory, f store.Filter) ([]*model.File, int, error) {
	return s.store.ListFiles(ctx, projectID, kind, category, f)
}

// GetFile returns file metadata even for a soft-deleted file; only
// download and list exclude deleted rows (spec §4.7).
func (s *Service) GetFile(ctx context.Context, id string) (*model.File, error) {
	return s.store.GetFile(ctx, id)
}

// Download streams a file's blob, rejecting soft-deleted files.
// Content-Type defaults to application/octet-stream when the row didn't
// record one, and the caller is expected to set
// Content-Disposition: attachment; filename=<name> from the returned name.
func (s *Service) Download(ctx context.Context, id string) (io.ReadCloser, *model.File, error) {
	f, err := s.store.GetFile(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if f.IsDeleted {
		return nil, nil, apierrors.NewNotFound("file not found")
	}
	r, err := s.storage.Get(ctx, f.StorageKey)
	if err != nil {
		return nil, nil, apierrors.NewNotFound("file content not found in storage")
	}
	if f.ContentType == "" {
		f.ContentType = "application/octet-stream"
	}
	return r, f, nil
}

// SoftDelete rejects a double-delete (spec §4.7).
func (s *Service) SoftDelete(ctx context.Context, id string) error {
	return s.store.SoftDeleteFile(ctx, id)
}

// Usage is the returned aggregation for a workspace or project.
type Usage struct {
	Count         int
	TotalBytes    int64
	CalculatedAt  time.Time
}

func (s *Service) UsageForProject(ctx context.Context, projectID string) (*Usage, error) {
	count, total, err := s.store.UsageForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Usage{Count: count, TotalBytes: total, CalculatedAt: time.Now().UTC()}, nil
}

func (s *Service) UsageForWorkspace(ctx context.Context, workspaceID string) (*Usage, error) {
	count, total, err := s.store.UsageForWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return &Usage{Count: count, TotalBytes: total, CalculatedAt: time.Now().UTC()}, nil
}

func (s *Service) CreateModel(ctx context.Context, projectID, name, description string) (*model.Model, error) {
	m := &model.Model{ID: uuid.NewString(), ProjectID: projectID, Name: name, Description: description, CreatedAt: time.Now().UTC()}
	if err := s.store.CreateModel(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) GetModel(ctx context.Context, id string) (*model.Model, error) {
	return s.store.GetModel(ctx, id)
}

func (s *Service) ListModels(ctx context.Context, projectID string) ([]*model.Model, error) {
	return s.store.ListModels(ctx, projectID)
}

// CreateModelVersion assigns the next monotonic version number and the
// initial Pending status (spec §3: ModelVersion.versionNumber starts at 1).
func (s *Service) CreateModelVersion(ctx context.Context, modelID, ifcFileID string) (*model.ModelVersion, error) {
	ifcFile, err := s.store.GetFile(ctx, ifcFileID)
	if err != nil {
		return nil, err
	}
	if ifcFile.IsDeleted {
		return nil, apierrors.NewInvalidState("ifcFileId references a deleted file")
	}
	if ifcFile.Category != model.CategoryIfc {
		return nil, apierrors.NewValidation("ifcFileId must reference a file in the Ifc category")
	}

	n, err := s.store.NextVersionNumber(ctx, modelID)
	if err != nil {
		return nil, err
	}
	v := &model.ModelVersion{
		ID: uuid.NewString(), ModelID: modelID, VersionNumber: n, IfcFileID: ifcFileID,
		Status: model.VersionPending, CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateModelVersion(ctx, v); err != nil {
		return nil, err
	}
	if s.queue != nil {
		s.queue.Enqueue(jobqueue.Job{
			ID: uuid.NewString(), Type: jobqueue.TypeIfcToWexBim,
			ProjectID: ifcFile.ProjectID, ModelVersionID: v.ID, FileID: ifcFileID,
			IdempotencyKey: v.ID + ":wexbim",
		})
		s.queue.Enqueue(jobqueue.Job{
			ID: uuid.NewString(), Type: jobqueue.TypeExtractProperties,
			ProjectID: ifcFile.ProjectID, ModelVersionID: v.ID, FileID: ifcFileID,
			IdempotencyKey: v.ID + ":properties",
		})
	}
	return v, nil
}

func (s *Service) GetModelVersion(ctx context.Context, id string) (*model.ModelVersion, error) {
	return s.store.GetModelVersion(ctx, id)
}

func (s *Service) ListModelVersions(ctx context.Context, modelID string, f store.Filter) ([]*model.ModelVersion, int, error) {
	return s.store.ListModelVersions(ctx, modelID, f)
}

// DownloadWexBim requires the version to be linked to a WexBim artifact
// and the artifact file to exist and not be deleted; any miss is a 404
// with no state change (spec §4.7).
func (s *Service) DownloadWexBim(ctx context.Context, versionID string) (io.ReadCloser, *model.File, error) {
	return s.downloadArtifact(ctx, versionID, func(v *model.ModelVersion) string { return v.WexBimFileID })
}

func (s *Service) DownloadProperties(ctx context.Context, versionID string) (io.ReadCloser, *model.File, error) {
	return s.downloadArtifact(ctx, versionID, func(v *model.ModelVersion) string { return v.PropertiesFileID })
}

func (s *Service) downloadArtifact(ctx context.Context, versionID string, fileIDOf func(*model.ModelVersion) string) (io.ReadCloser, *model.File, error) {
	v, err := s.store.GetModelVersion(ctx, versionID)
	if err != nil {
		return nil, nil, apierrors.NewNotFound("model version not found")
	}
	fileID := fileIDOf(v)
	if fileID == "" {
		return nil, nil, apierrors.NewNotFound("artifact not linked to this model version")
	}
	return s.Download(ctx, fileID)
}

func (s *Service) ListElements(ctx context.Context, modelVersionID, globalID, typeName, name string, f store.Filter) ([]*model.IfcElement, int, error) {
	return s.store.ListElements(ctx, modelVersionID, globalID, typeName, name, f)
}

func (s *Service) GetElement(ctx context.Context, elementID string) (*model.IfcElement, error) {
	return s.store.GetElement(ctx, elementID)
}

func (s *Service) ListPropertySetsForElement(ctx context.Context, elementID string) ([]*model.IfcPropertySet, error) {
	return s.store.ListPropertySetsForElement(ctx, elementID)
}

func (s *Service) ListPropertiesForSet(ctx context.Context, propertySetID string) ([]*model.IfcProperty, error) {
	return s.store.ListPropertiesForSet(ctx, propertySetID)
}
