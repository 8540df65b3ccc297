// Package blob is the storage-backend abstraction behind every file and
// upload-session byte range (spec §4.5/§4.6). Grounded on the sibling
// AMD-AGI-Primus-SaFE/Lens skills-repository module's pkg/storage package,
// the only place in the pack that drives aws-sdk-go-v2's S3 client end to
// end (config+credentials, PutObject/GetObject, presigned URLs).
package blob

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes one stored object, used by listing/usage reporting.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Storage is the upload pipeline's view of a content-addressable backend.
// ServerProxy uploads go through Put/Get; DirectToBlob sessions use
// PresignPut so the client talks to the backend directly (spec §4.5).
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Copy(ctx context.Context, srcKey, dstKey string) error

	// PresignGet returns a time-limited download URL, used for WexBim and
	// properties artifact downloads when the backend supports it.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)

	// PresignPut returns a time-limited upload URL for direct-to-blob
	// sessions (spec §4.5's DirectToBlob mode). Backends without presigned
	// PUT support (e.g. a local filesystem backend) return
	// ErrDirectUploadUnsupported so the caller falls back to ServerProxy.
	PresignPut(ctx context.Context, key string, expiry time.Duration, contentType string) (string, error)
}

// ErrDirectUploadUnsupported signals that a backend cannot hand out a
// presigned PUT URL; upload.Service.Reserve uses this to decide whether a
// DirectToBlob request must downgrade to ServerProxy (spec §4.5 edge case).
var ErrDirectUploadUnsupported = errDirectUploadUnsupported{}

type errDirectUploadUnsupported struct{}

func (errDirectUploadUnsupported) Error() string { return "backend does not support direct upload" }
