package jobqueue

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ifcserve/hub/internal/blob"
	"github.com/ifcserve/hub/internal/ifcengine"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

// Handlers wires the IFC pipeline's two job types to the opaque translation
// engine, blob storage, and the catalog store: IfcToWexBim converts the
// uploaded IFC source into a wexBIM viewer artifact, ExtractProperties
// parses elements/property sets/quantities into the relational properties
// tables (spec §4.6/§4.7). Neither handler parses IFC itself — that's
// ifcengine.Engine's job, kept opaque per the spec's scope boundary.
type Handlers struct {
	store   store.Store
	storage blob.Storage
	engine  ifcengine.Engine
}

func NewHandlers(s store.Store, storage blob.Storage, engine ifcengine.Engine) *Handlers {
	return &Handlers{store: s, storage: storage, engine: engine}
}

func (h *Handlers) IfcToWexBim(ctx context.Context, job Job) error {
	return h.runStage(ctx, job, func(ctx context.Context, version *model.ModelVersion, src []byte) error {
		wexbim, err := h.engine.ToWexBim(ctx, bytes.NewReader(src))
		if err != nil {
			return err
		}
		fileID := uuid.NewString()
		key := "artifacts/" + version.ModelID + "/" + fileID + ".wexbim"
		if err := h.storage.Put(ctx, key, bytes.NewReader(wexbim), int64(len(wexbim)), "application/octet-stream"); err != nil {
			return err
		}
		file := &model.File{
			ID: fileID, ProjectID: job.ProjectID, Name: version.ID + ".wexbim",
			ContentType: "application/octet-stream", SizeBytes: int64(len(wexbim)),
			Kind: model.FileKindArtifact, Category: model.CategoryWexBim,
			StorageProvider: "blob", StorageKey: key, CreatedAt: time.Now().UTC(),
		}
		if err := h.store.CreateFile(ctx, file); err != nil {
			return err
		}
		version.WexBimFileID = file.ID
		return nil
	})
}

func (h *Handlers) ExtractProperties(ctx context.Context, job Job) error {
	return h.runStage(ctx, job, func(ctx context.Context, version *model.ModelVersion, src []byte) error {
		parsed, err := h.engine.ExtractProperties(ctx, version.ID, bytes.NewReader(src))
		if err != nil {
			return err
		}
		if err := h.persistProperties(ctx, parsed); err != nil {
			return err
		}

		summary, err := ifcengine.MarshalSummary(parsed)
		if err != nil {
			return err
		}
		fileID := uuid.NewString()
		key := "artifacts/" + version.ModelID + "/" + fileID + ".properties.json"
		if err := h.storage.Put(ctx, key, bytes.NewReader(summary), int64(len(summary)), "application/json"); err != nil {
			return err
		}
		file := &model.File{
			ID: fileID, ProjectID: job.ProjectID, Name: version.ID + ".properties.json",
			ContentType: "application/json", SizeBytes: int64(len(summary)),
			Kind: model.FileKindArtifact, Category: model.CategoryProperties,
			StorageProvider: "blob", StorageKey: key, CreatedAt: time.Now().UTC(),
		}
		if err := h.store.CreateFile(ctx, file); err != nil {
			return err
		}
		version.PropertiesFileID = file.ID
		return nil
	})
}

// runStage fetches the source IFC bytes, runs fn against the current
// version, and persists the resulting status transition. A stage failure
// marks the version Failed with the error recorded rather than leaving it
// stuck in Processing.
func (h *Handlers) runStage(ctx context.Context, job Job, fn func(ctx context.Context, version *model.ModelVersion, src []byte) error) error {
	version, err := h.store.GetModelVersion(ctx, job.ModelVersionID)
	if err != nil {
		return err
	}
	srcFile, err := h.store.GetFile(ctx, job.FileID)
	if err != nil {
		return err
	}
	r, err := h.storage.Get(ctx, srcFile.StorageKey)
	if err != nil {
		return err
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return err
	}

	if version.Status != model.VersionProcessing {
		version.Status = model.VersionProcessing
		if err := h.store.UpdateModelVersion(ctx, version); err != nil {
			return err
		}
	}

	if stageErr := fn(ctx, version, buf.Bytes()); stageErr != nil {
		version.Status = model.VersionFailed
		version.ErrorMessage = stageErr.Error()
		_ = h.store.UpdateModelVersion(ctx, version)
		return stageErr
	}

	if version.WexBimFileID != "" && version.PropertiesFileID != "" {
		version.Status = model.VersionReady
		now := time.Now().UTC()
		version.ProcessedAt = &now
	}
	return h.store.UpdateModelVersion(ctx, version)
}

// FailUnknownJobType records the terminal failure spec §4.6 step 3 mandates
// for a dequeued job whose type has no registered handler: the ModelVersion
// moves straight to Failed rather than being left stuck in Pending/Processing.
func (h *Handlers) FailUnknownJobType(ctx context.Context, job Job) error {
	version, err := h.store.GetModelVersion(ctx, job.ModelVersionID)
	if err != nil {
		return err
	}
	version.Status = model.VersionFailed
	version.ErrorMessage = "unknown job type"
	return h.store.UpdateModelVersion(ctx, version)
}

func (h *Handlers) persistProperties(ctx context.Context, parsed *ifcengine.Properties) error {
	if len(parsed.Elements) > 0 {
		if err := h.store.InsertElements(ctx, parsed.Elements); err != nil {
			return err
		}
	}
	if len(parsed.PropertySets) > 0 {
		if err := h.store.InsertPropertySets(ctx, parsed.PropertySets); err != nil {
			return err
		}
	}
	if len(parsed.Properties) > 0 {
		if err := h.store.InsertProperties(ctx, parsed.Properties); err != nil {
			return err
		}
	}
	if len(parsed.QuantitySets) > 0 {
		if err := h.store.InsertQuantitySets(ctx, parsed.QuantitySets); err != nil {
			return err
		}
	}
	if len(parsed.Quantities) > 0 {
		if err := h.store.InsertQuantities(ctx, parsed.Quantities); err != nil {
			return err
		}
	}
	return nil
}
