// Package upload implements C5: the resumable upload/commit state machine.
// A session moves Reserved -> Uploading -> Committed (or Expired/Failed),
// with storage-key derivation and size/checksum checks at commit time.
// Grounded on the teacher's job-manager state-transition style (explicit
// status enum + guard-then-update), adapted from job lifecycle to upload
// lifecycle.
package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/blob"
	"github.com/ifcserve/hub/internal/config"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

type Service struct {
	store   store.Store
	storage blob.Storage
}

func NewService(s store.Store, storage blob.Storage) *Service {
	return &Service{store: s, storage: storage}
}

// ReserveRequest is the client's upload-reservation ask.
type ReserveRequest struct {
	ProjectID         string
	FileName          string
	ContentType       string
	ExpectedSizeBytes int64
	Category          model.FileCategory
	RequestDirectBlob bool
}

// ReserveResult carries back whatever the client needs to proceed: either a
// presigned PUT URL (DirectToBlob) or nothing, meaning PUT the bytes to
// UploadContent instead (ServerProxy).
type ReserveResult struct {
	Session         *model.UploadSession
	DirectUploadURL string
}

// Reserve creates an upload session and, for DirectToBlob requests, asks
// the storage backend for a presigned PUT URL. If the backend can't
// presign (blob.ErrDirectUploadUnsupported), the session silently
// downgrades to ServerProxy mode (spec §4.5 edge case) rather than failing
// the reservation.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	if req.ExpectedSizeBytes < 0 {
		return nil, apierrors.NewValidation("expected_size_bytes must not be negative")
	}
	if req.ExpectedSizeBytes > 0 && req.ExpectedSizeBytes > config.MaxUploadSizeBytes() {
		return nil, apierrors.NewValidation("expected_size_bytes exceeds the maximum allowed upload size")
	}

	now := time.Now().UTC()
	sess := &model.UploadSession{
		ID: uuid.NewString(), ProjectID: req.ProjectID, FileName: req.FileName,
		ContentType: req.ContentType, ExpectedSizeBytes: req.ExpectedSizeBytes,
		Status: model.UploadReserved, UploadMode: model.UploadModeServerProxy,
		TempStorageKey: tempKey(req.ProjectID, uuid.NewString()),
		CreatedAt:      now, ExpiresAt: now.Add(config.UploadSessionTTL()),
	}

	result := &ReserveResult{Session: sess}
	if req.RequestDirectBlob && config.StorageSupportsDirectUpload() {
		url, err := s.storage.PresignPut(ctx, sess.TempStorageKey, config.UploadSessionTTL(), req.ContentType)
		switch {
		case err == nil:
			sess.UploadMode = model.UploadModeDirectToBlob
			sess.DirectUploadURL = url
			result.DirectUploadURL = url
		case errors.Is(err, blob.ErrDirectUploadUnsupported):
			// fall back to ServerProxy; sess already defaults to it.
		default:
			return nil, err
		}
	}

	if err := s.store.CreateUploadSession(ctx, sess); err != nil {
		return nil, err
	}
	return result, nil
}

// UploadContent streams bytes for a ServerProxy session. It is invalid for
// a DirectToBlob session, since the client talks to the backend directly
// in that mode (spec §4.5).
func (s *Service) UploadContent(ctx context.Context, sessionID string, r io.Reader) error {
	sess, err := s.store.GetUploadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UploadMode != model.UploadModeServerProxy {
		return apierrors.NewInvalidState("upload session is DirectToBlob, content must be PUT to the backend directly")
	}
	if sess.Status != model.UploadReserved && sess.Status != model.UploadUploading {
		return apierrors.NewInvalidState("upload session is not accepting content in its current state")
	}
	if s.isExpired(sess) {
		return s.expireAndFail(ctx, sess)
	}

	sess.Status = model.UploadUploading
	if err := s.store.UpdateUploadSession(ctx, sess); err != nil {
		return err
	}
	if err := s.storage.Put(ctx, sess.TempStorageKey, r, sess.ExpectedSizeBytes, sess.ContentType); err != nil {
		sess.Status = model.UploadFailed
		_ = s.store.UpdateUploadSession(ctx, sess)
		return apierrors.NewTransient("failed to store uploaded content", err)
	}
	return nil
}

// Commit finalizes a session: validates size/checksum against what was
// actually stored, moves the object from its temp key to the file's
// permanent storage key, creates the File row, and marks the session
// Committed. A lazily-discovered expiry at commit time fails the session
// instead of silently succeeding (spec §4.5 edge case).
func (s *Service) Commit(ctx context.Context, sessionID string, expectedChecksum string, kind model.FileKind, category model.FileCategory) (*model.File, error) {
	sess, err := s.store.GetUploadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == model.UploadCommitted {
		// Commits are idempotent only in the sense of not mutating state
		// twice: a second commit is a client bug and must surface as such
		// (spec §4.5/§8), not quietly hand back the already-committed file.
		return nil, apierrors.NewInvalidState("upload session is already committed")
	}
	if s.isExpired(sess) {
		return nil, s.expireAndFail(ctx, sess)
	}
	if sess.UploadMode == model.UploadModeServerProxy && sess.Status != model.UploadUploading {
		return nil, apierrors.NewInvalidState("no content has been uploaded for this session")
	}

	exists, err := s.storage.Exists(ctx, sess.TempStorageKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierrors.NewInvalidState("no object found at the session's storage key; did the direct upload complete?")
	}

	checksum, size, err := s.checksumAndSize(ctx, sess.TempStorageKey)
	if err != nil {
		return nil, err
	}
	if expectedChecksum != "" && checksum != expectedChecksum {
		sess.Status = model.UploadFailed
		_ = s.store.UpdateUploadSession(ctx, sess)
		return nil, apierrors.NewValidation("uploaded content checksum does not match the expected checksum")
	}
	if sess.ExpectedSizeBytes > 0 && size != sess.ExpectedSizeBytes {
		sess.Status = model.UploadFailed
		_ = s.store.UpdateUploadSession(ctx, sess)
		return nil, apierrors.NewValidation("uploaded content size does not match expected_size_bytes")
	}

	fileID := uuid.NewString()
	finalKey := fileKey(sess.ProjectID, fileID, sess.FileName)
	if err := s.storage.Copy(ctx, sess.TempStorageKey, finalKey); err != nil {
		return nil, apierrors.NewTransient("failed to finalize uploaded content", err)
	}
	_ = s.storage.Delete(ctx, sess.TempStorageKey)

	file := &model.File{
		ID: fileID, ProjectID: sess.ProjectID, Name: sess.FileName, ContentType: sess.ContentType,
		SizeBytes: size, Checksum: checksum, Kind: kind, Category: category,
		StorageProvider: "blob", StorageKey: finalKey, CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateFile(ctx, file); err != nil {
		return nil, err
	}

	sess.Status = model.UploadCommitted
	sess.CommittedFileID = file.ID
	if err := s.store.UpdateUploadSession(ctx, sess); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *Service) isExpired(sess *model.UploadSession) bool {
	return time.Now().UTC().After(sess.ExpiresAt) &&
		sess.Status != model.UploadCommitted && sess.Status != model.UploadExpired
}

func (s *Service) expireAndFail(ctx context.Context, sess *model.UploadSession) error {
	sess.Status = model.UploadExpired
	if err := s.store.UpdateUploadSession(ctx, sess); err != nil {
		return err
	}
	return apierrors.NewInvalidState("upload session has expired")
}

func (s *Service) checksumAndSize(ctx context.Context, key string) (checksum string, size int64, err error) {
	r, err := s.storage.Get(ctx, key)
	if err != nil {
		return "", 0, err
	}
	defer r.Close()
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, apierrors.NewTransient("failed to read stored object for checksum", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func tempKey(projectID, token string) string {
	return "tmp/" + projectID + "/" + token
}

func fileKey(projectID, fileID, name string) string {
	return "files/" + projectID + "/" + fileID + "/" + name
}
