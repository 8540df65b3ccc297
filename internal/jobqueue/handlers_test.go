package jobqueue

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifcserve/hub/internal/blob"
	"github.com/ifcserve/hub/internal/ifcengine"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
	"github.com/ifcserve/hub/internal/store/memstore"
)

func TestHandlersPipelineReachesReady(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	storage := blob.NewMemStorage()
	h := NewHandlers(s, storage, ifcengine.StubEngine{})

	srcKey := "uploads/p1/src.ifc"
	require.NoError(t, storage.Put(ctx, srcKey, bytes.NewReader([]byte("ISO-10303-21;")), 13, "application/octet-stream"))
	srcFile := &model.File{ID: "f-src", ProjectID: "p1", Name: "house.ifc", Kind: model.FileKindSource, Category: model.CategoryIfc, StorageKey: srcKey, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateFile(ctx, srcFile))

	require.NoError(t, s.CreateModel(ctx, &model.Model{ID: "m1", ProjectID: "p1", Name: "House"}))
	version := &model.ModelVersion{ID: "v1", ModelID: "m1", VersionNumber: 1, IfcFileID: srcFile.ID, Status: model.VersionPending, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateModelVersion(ctx, version))

	job := Job{ID: "j1", Type: TypeIfcToWexBim, ProjectID: "p1", ModelVersionID: "v1", FileID: "f-src"}
	require.NoError(t, h.IfcToWexBim(ctx, job))

	job.Type = TypeExtractProperties
	require.NoError(t, h.ExtractProperties(ctx, job))

	got, err := s.GetModelVersion(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, model.VersionReady, got.Status)
	assert.NotEmpty(t, got.WexBimFileID)
	assert.NotEmpty(t, got.PropertiesFileID)
	assert.NotNil(t, got.ProcessedAt)

	elements, total, err := s.ListElements(ctx, "v1", "", "", "", store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, elements, 1)
}

func TestFailUnknownJobTypeMarksVersionFailed(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	h := NewHandlers(s, blob.NewMemStorage(), ifcengine.StubEngine{})

	require.NoError(t, s.CreateModel(ctx, &model.Model{ID: "m1", ProjectID: "p1", Name: "House"}))
	version := &model.ModelVersion{ID: "v1", ModelID: "m1", VersionNumber: 1, Status: model.VersionPending, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateModelVersion(ctx, version))

	require.NoError(t, h.FailUnknownJobType(ctx, Job{ID: "j1", Type: "Unregistered", ModelVersionID: "v1"}))

	got, err := s.GetModelVersion(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, model.VersionFailed, got.Status)
	assert.Equal(t, "unknown job type", got.ErrorMessage)
}
