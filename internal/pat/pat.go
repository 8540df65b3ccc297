// Package pat implements C4: Personal Access Tokens. A PAT is presented as
// ocpat_<prefix><secret>; the prefix is an indexed lookup key and the
// secret is PBKDF2-verified, mirroring the same issue/verify shape as
// internal/oauthserver's confidential-client secrets but for long-lived
// caller-held tokens instead of a client registration.
package pat

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ifcserve/hub/internal/apierrors"
	"github.com/ifcserve/hub/internal/audit"
	"github.com/ifcserve/hub/internal/config"
	"github.com/ifcserve/hub/internal/cryptoutil"
	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

const (
	tokenPrefix     = "ocpat_"
	prefixLen       = 8
	secretLen       = 32
)

type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Issue mints a new PAT for a user in a workspace, scoped to the requested
// scopes and an optional expiry capped at config.PATMaxExpiryDays (spec
// §4.4). The raw token is returned exactly once; only its hash is stored.
func (s *Service) Issue(ctx context.Context, workspaceID, userID, name, description string, scopes []string, expiresAt *time.Time, actorIP string) (raw string, pat *model.PersonalAccessToken, err error) {
	if expiresAt != nil {
		maxExpiry := time.Now().UTC().AddDate(0, 0, config.PATMaxExpiryDays())
		if expiresAt.After(maxExpiry) {
			return "", nil, apierrors.NewValidation("expires_at exceeds the maximum allowed PAT lifetime")
		}
	}

	prefix, err := cryptoutil.RandomToken(prefixLen)
	if err != nil {
		return "", nil, apierrors.NewTransient("failed to generate token prefix", err)
	}
	secret, err := cryptoutil.RandomToken(secretLen)
	if err != nil {
		return "", nil, apierrors.NewTransient("failed to generate token secret", err)
	}
	hash, err := cryptoutil.HashSecret(secret)
	if err != nil {
		return "", nil, apierrors.NewTransient("failed to hash token secret", err)
	}

	pat = &model.PersonalAccessToken{
		ID: uuid.NewString(), WorkspaceID: workspaceID, UserID: userID,
		Name: name, Description: description, TokenPrefix: prefix,
		TokenHash: hash.Encode(), Scopes: scopes, ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreatePAT(ctx, pat); err != nil {
		return "", nil, err
	}
	if err := audit.RecordPatEvent(ctx, s.store, pat.ID, model.PatCreated, userID, actorIP, map[string]interface{}{"name": name}); err != nil {
		// best effort: audit failure must not roll back a successful issue
		_ = err
	}
	return tokenPrefix + prefix + secret, pat, nil
}

// Verify parses a presented PAT, looks it up by prefix, and PBKDF2-verifies
// the secret. On success it best-effort touches LastUsedAt (spec §4.4) —
// failure to record that touch never fails the request.
func (s *Service) Verify(ctx context.Context, presented string) (*model.PersonalAccessToken, error) {
	// Issue stores the base64 encoding of prefixLen random bytes, so the
	// prefix on the wire is that encoding's length, not prefixLen.
	encodedPrefixLen := base64.RawURLEncoding.EncodedLen(prefixLen)
	rest, ok := strings.CutPrefix(presented, tokenPrefix)
	if !ok || len(rest) <= encodedPrefixLen {
		return nil, apierrors.NewAuthentication("malformed personal access token")
	}
	prefix, secret := rest[:encodedPrefixLen], rest[encodedPrefixLen:]

	p, err := s.store.GetPATByPrefix(ctx, prefix)
	if err != nil {
		return nil, apierrors.NewAuthentication("unknown personal access token")
	}
	if p.IsRevoked {
		return nil, apierrors.NewAuthentication("personal access token has been revoked")
	}
	if p.ExpiresAt != nil && time.Now().UTC().After(*p.ExpiresAt) {
		return nil, apierrors.NewAuthentication("personal access token has expired")
	}
	stored, err := cryptoutil.DecodePBKDF2Hash(p.TokenHash)
	if err != nil {
		return nil, apierrors.NewAuthentication("personal access token is malformed in storage")
	}
	if !cryptoutil.VerifySecret(secret, stored) {
		return nil, apierrors.NewAuthentication("invalid personal access token")
	}

	if err := s.store.TouchPATLastUsed(ctx, p.ID); err != nil {
		_ = err
	}
	return p, nil
}

// Revoke marks a PAT unusable. revokedByAdmin distinguishes a self-revoke
// from an administrative revoke for the audit trail.
func (s *Service) Revoke(ctx context.Context, id, actorUserID, actorIP string, revokedByAdmin bool) error {
	p, err := s.store.GetPAT(ctx, id)
	if err != nil {
		return err
	}
	if p.IsRevoked {
		return nil
	}
	now := time.Now().UTC()
	p.IsRevoked = true
	p.RevokedAt = &now
	if err := s.store.UpdatePAT(ctx, p); err != nil {
		return err
	}
	eventType := model.PatRevokedByUser
	if revokedByAdmin {
		eventType = model.PatRevokedByAdmin
	}
	if err := audit.RecordPatEvent(ctx, s.store, p.ID, eventType, actorUserID, actorIP, nil); err != nil {
		_ = err
	}
	return nil
}

// List returns a user's PATs within a workspace.
func (s *Service) List(ctx context.Context, workspaceID, userID string) ([]*model.PersonalAccessToken, error) {
	return s.store.ListPATsForUser(ctx, workspaceID, userID)
}

// UpdateMeta renames/redescribes a PAT. Rejected once the token is revoked
// (spec §4.4: "update name/description (rejected once revoked)").
func (s *Service) UpdateMeta(ctx context.Context, id, name, description, actorUserID, actorIP string) (*model.PersonalAccessToken, error) {
	p, err := s.store.GetPAT(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsRevoked {
		return nil, apierrors.NewInvalidState("cannot update a revoked personal access token")
	}
	p.Name = name
	p.Description = description
	if err := s.store.UpdatePAT(ctx, p); err != nil {
		return nil, err
	}
	if err := audit.RecordPatEvent(ctx, s.store, p.ID, model.PatUpdated, actorUserID, actorIP, nil); err != nil {
		_ = err
	}
	return p, nil
}

// ListAuditLogs returns this PAT's audit trail (spec §6: "...audit-logs endpoints").
func (s *Service) ListAuditLogs(ctx context.Context, id string) ([]*model.AuditLog, error) {
	logs, _, err := s.store.ListAudit(ctx, "pat", id, store.Filter{Page: 1, PageSize: 200})
	return logs, err
}
