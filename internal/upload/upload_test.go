package upload

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifcserve/hub/internal/blob"
	"github.com/ifcserve/hub/internal/config"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store/memstore"
)

func TestReserveAndCommitServerProxyRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := blob.NewMemStorage()
	svc := NewService(memstore.New(), storage)

	content := []byte("hello ifc world")
	res, err := svc.Reserve(ctx, ReserveRequest{
		ProjectID: "p1", FileName: "model.ifc", ContentType: "application/octet-stream",
		ExpectedSizeBytes: int64(len(content)), Category: model.CategoryIfc,
	})
	require.NoError(t, err)
	assert.Empty(t, res.DirectUploadURL)
	assert.Equal(t, model.UploadModeServerProxy, res.Session.UploadMode)

	require.NoError(t, svc.UploadContent(ctx, res.Session.ID, bytes.NewReader(content)))

	file, err := svc.Commit(ctx, res.Session.ID, "", model.FileKindSource, model.CategoryIfc)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), file.SizeBytes)
	assert.NotEmpty(t, file.Checksum)
}

func TestDirectBlobFallsBackWhenUnsupported(t *testing.T) {
	ctx := context.Background()
	config.SetValue("storage.direct_upload", true)
	defer config.SetValue("storage.direct_upload", false)

	storage := blob.NewMemStorage() // PresignPut always unsupported
	svc := NewService(memstore.New(), storage)

	res, err := svc.Reserve(ctx, ReserveRequest{
		ProjectID: "p1", FileName: "model.ifc", ContentType: "application/octet-stream",
		ExpectedSizeBytes: 10, Category: model.CategoryIfc, RequestDirectBlob: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.UploadModeServerProxy, res.Session.UploadMode)
	assert.Empty(t, res.DirectUploadURL)
}

func TestCommitRejectsChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	storage := blob.NewMemStorage()
	svc := NewService(memstore.New(), storage)

	content := []byte("some bytes")
	res, err := svc.Reserve(ctx, ReserveRequest{
		ProjectID: "p1", FileName: "f.ifc", ContentType: "application/octet-stream",
		ExpectedSizeBytes: int64(len(content)), Category: model.CategoryIfc,
	})
	require.NoError(t, err)
	require.NoError(t, svc.UploadContent(ctx, res.Session.ID, bytes.NewReader(content)))

	_, err = svc.Commit(ctx, res.Session.ID, "not-the-real-checksum", model.FileKindSource, model.CategoryIfc)
	require.Error(t, err)
}

func TestReserveRejectsOversizedUpload(t *testing.T) {
	ctx := context.Background()
	storage := blob.NewMemStorage()
	svc := NewService(memstore.New(), storage)

	_, err := svc.Reserve(ctx, ReserveRequest{
		ProjectID: "p1", FileName: "huge.ifc", ContentType: "application/octet-stream",
		ExpectedSizeBytes: config.MaxUploadSizeBytes() + 1, Category: model.CategoryIfc,
	})
	require.Error(t, err)
}

func TestReserveAllowsOmittedExpectedSize(t *testing.T) {
	ctx := context.Background()
	storage := blob.NewMemStorage()
	svc := NewService(memstore.New(), storage)

	content := []byte("size unknown up front")
	res, err := svc.Reserve(ctx, ReserveRequest{
		ProjectID: "p1", FileName: "model.ifc", ContentType: "application/octet-stream",
		Category: model.CategoryIfc,
	})
	require.NoError(t, err)

	require.NoError(t, svc.UploadContent(ctx, res.Session.ID, bytes.NewReader(content)))
	file, err := svc.Commit(ctx, res.Session.ID, "", model.FileKindSource, model.CategoryIfc)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), file.SizeBytes)
}

func TestCommitRejectsSizeMismatch(t *testing.T) {
	ctx := context.Background()
	storage := blob.NewMemStorage()
	svc := NewService(memstore.New(), storage)

	content := []byte("some bytes")
	res, err := svc.Reserve(ctx, ReserveRequest{
		ProjectID: "p1", FileName: "f.ifc", ContentType: "application/octet-stream",
		ExpectedSizeBytes: int64(len(content)) + 5, Category: model.CategoryIfc,
	})
	require.NoError(t, err)
	require.NoError(t, svc.UploadContent(ctx, res.Session.ID, bytes.NewReader(content)))

	_, err = svc.Commit(ctx, res.Session.ID, "", model.FileKindSource, model.CategoryIfc)
	require.Error(t, err)
}

func TestSecondCommitOfCommittedSessionFails(t *testing.T) {
	ctx := context.Background()
	storage := blob.NewMemStorage()
	svc := NewService(memstore.New(), storage)

	content := []byte("hello ifc world")
	res, err := svc.Reserve(ctx, ReserveRequest{
		ProjectID: "p1", FileName: "model.ifc", ContentType: "application/octet-stream",
		ExpectedSizeBytes: int64(len(content)), Category: model.CategoryIfc,
	})
	require.NoError(t, err)
	require.NoError(t, svc.UploadContent(ctx, res.Session.ID, bytes.NewReader(content)))

	_, err = svc.Commit(ctx, res.Session.ID, "", model.FileKindSource, model.CategoryIfc)
	require.NoError(t, err)

	_, err = svc.Commit(ctx, res.Session.ID, "", model.FileKindSource, model.CategoryIfc)
	require.Error(t, err)
}
