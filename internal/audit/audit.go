// Package audit is C8: append-only audit logging for OAuth app and PAT
// lifecycle events. Each helper writes through whatever store.Store the
// caller passes: the refresh-issued event of a code exchange uses the
// exchange's transaction-bound store, while internal/pat and the OAuth app
// admin methods pass their plain store, so those rows are written outside
// the action's transaction and a failed audit write does not undo the action.
package audit

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

// IPFromRequest derives the caller's address: the first token of
// X-Forwarded-For if present, else the request's RemoteAddr.
func IPFromRequest(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	return r.RemoteAddr
}

// RecordOAuthAppEvent appends one oauth_app-subject audit row.
func RecordOAuthAppEvent(ctx context.Context, s store.Store, appID string, eventType model.OAuthAppEventType, actorUserID, ip string, details map[string]interface{}) error {
	return s.AppendAudit(ctx, &model.AuditLog{
		ID: uuid.NewString(), Subject: "oauth_app", SubjectID: appID,
		EventType: string(eventType), ActorUserID: actorUserID,
		Timestamp: time.Now().UTC(), Details: details, IPAddress: ip,
	})
}

// RecordPatEvent appends one pat-subject audit row.
func RecordPatEvent(ctx context.Context, s store.Store, patID string, eventType model.PatEventType, actorUserID, ip string, details map[string]interface{}) error {
	return s.AppendAudit(ctx, &model.AuditLog{
		ID: uuid.NewString(), Subject: "pat", SubjectID: patID,
		EventType: string(eventType), ActorUserID: actorUserID,
		Timestamp: time.Now().UTC(), Details: details, IPAddress: ip,
	})
}
