package catalog

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifcserve/hub/internal/blob"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
	"github.com/ifcserve/hub/internal/store/memstore"
)

func TestDownloadExcludesDeletedFiles(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	storage := blob.NewMemStorage()
	svc := NewService(s, storage)

	require.NoError(t, storage.Put(ctx, "k1", bytes.NewReader([]byte("data")), 4, "application/octet-stream"))
	f := &model.File{ID: "f1", ProjectID: "p1", Name: "a.ifc", StorageKey: "k1", Category: model.CategoryIfc, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateFile(ctx, f))

	_, got, err := svc.Download(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "a.ifc", got.Name)

	require.NoError(t, svc.SoftDelete(ctx, "f1"))
	_, _, err = svc.Download(ctx, "f1")
	require.Error(t, err)

	// Metadata lookup still works post-delete.
	meta, err := svc.GetFile(ctx, "f1")
	require.NoError(t, err)
	assert.True(t, meta.IsDeleted)
}

func TestSoftDeleteRejectsDoubleDelete(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := NewService(s, blob.NewMemStorage())

	f := &model.File{ID: "f1", ProjectID: "p1", Name: "a.ifc", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateFile(ctx, f))
	require.NoError(t, svc.SoftDelete(ctx, "f1"))
	require.Error(t, svc.SoftDelete(ctx, "f1"))
}

func TestCreateModelVersionAssignsMonotonicNumbers(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := NewService(s, blob.NewMemStorage())

	ifcFile := &model.File{ID: "f1", ProjectID: "p1", Category: model.CategoryIfc, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateFile(ctx, ifcFile))

	m, err := svc.CreateModel(ctx, "p1", "House", "")
	require.NoError(t, err)

	v1, err := svc.CreateModelVersion(ctx, m.ID, "f1")
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNumber)
	assert.Equal(t, model.VersionPending, v1.Status)

	v2, err := svc.CreateModelVersion(ctx, m.ID, "f1")
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNumber)
}

func TestCreateModelVersionRejectsNonIfcCategory(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := NewService(s, blob.NewMemStorage())

	other := &model.File{ID: "f1", ProjectID: "p1", Category: model.CategoryOther, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateFile(ctx, other))
	m, err := svc.CreateModel(ctx, "p1", "House", "")
	require.NoError(t, err)

	_, err = svc.CreateModelVersion(ctx, m.ID, "f1")
	require.Error(t, err)
}

func TestDownloadWexBimMissesAre404NoStateChange(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := NewService(s, blob.NewMemStorage())

	ifcFile := &model.File{ID: "f1", ProjectID: "p1", Category: model.CategoryIfc, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateFile(ctx, ifcFile))
	m, err := svc.CreateModel(ctx, "p1", "House", "")
	require.NoError(t, err)
	v, err := svc.CreateModelVersion(ctx, m.ID, "f1")
	require.NoError(t, err)

	_, _, err = svc.DownloadWexBim(ctx, v.ID)
	require.Error(t, err)

	again, err := svc.GetModelVersion(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VersionPending, again.Status)
}

func TestUsageForProjectExcludesDeleted(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := NewService(s, blob.NewMemStorage())

	f1 := &model.File{ID: "f1", ProjectID: "p1", SizeBytes: 100, CreatedAt: time.Now().UTC()}
	f2 := &model.File{ID: "f2", ProjectID: "p1", SizeBytes: 200, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateFile(ctx, f1))
	require.NoError(t, s.CreateFile(ctx, f2))
	require.NoError(t, svc.SoftDelete(ctx, "f2"))

	usage, err := svc.UsageForProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Count)
	assert.EqualValues(t, 100, usage.TotalBytes)
}

func TestListFilesPagination(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := NewService(s, blob.NewMemStorage())

	for i := 0; i < 25; i++ {
		require.NoError(t, s.CreateFile(ctx, &model.File{ID: string(rune('a' + i)), ProjectID: "p1", CreatedAt: time.Now().UTC()}))
	}
	files, total, err := svc.ListFiles(ctx, "p1", nil, nil, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, files, 20)
}
