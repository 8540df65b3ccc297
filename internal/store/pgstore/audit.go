package pgstore

import (
	"context"
	"encoding/json"
	"time"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

type auditRow struct {
	ID          string    `db:"id"`
	Subject     string    `db:"subject"`
	SubjectID   string    `db:"subject_id"`
	EventType   string    `db:"event_type"`
	ActorUserID string    `db:"actor_user_id"`
	Timestamp   time.Time `db:"timestamp"`
	Details     string    `db:"details"`
	IPAddress   string    `db:"ip_address"`
}

// AppendAudit writes one row. Callers are expected to invoke this inside the
// same store.Tx as the action it records (spec §4.8): pass a Client obtained
// from WithTx, not the package-level one.
func (c *Client) AppendAudit(ctx context.Context, e *model.AuditLog) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	detailsJ, err := json.Marshal(e.Details)
	if err != nil {
		return err
	}
	q, args, err := psql.Insert("audit_logs").
		Columns("id", "subject", "subject_id", "event_type", "actor_user_id", "timestamp", "details", "ip_address").
		Values(e.ID, e.Subject, e.SubjectID, e.EventType, e.ActorUserID, e.Timestamp, string(detailsJ), e.IPAddress).
		ToSql()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, q, args...)
	return err
}

func (c *Client) ListAudit(ctx context.Context, subject, subjectID string, f store.Filter) ([]*model.AuditLog, int, error) {
	if err := c.requireDB(); err != nil {
		return nil, 0, err
	}
	where := sqrl.Eq{"subject": subject, "subject_id": subjectID}

	countQ, countArgs, err := psql.Select("COUNT(*)").From("audit_logs").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := c.db.GetContext(ctx, &total, countQ, countArgs...); err != nil {
		return nil, 0, err
	}

	limit, offset := paginate(f)
	q, args, err := psql.Select("id", "subject", "subject_id", "event_type", "actor_user_id", "timestamp", "details", "ip_address").
		From("audit_logs").Where(where).OrderBy("timestamp DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var rows []auditRow
	if err := c.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, err
	}
	out := make([]*model.AuditLog, 0, len(rows))
	for _, r := range rows {
		var details map[string]interface{}
		_ = json.Unmarshal([]byte(r.Details), &details)
		out = append(out, &model.AuditLog{
			ID: r.ID, Subject: r.Subject, SubjectID: r.SubjectID, EventType: r.EventType,
			ActorUserID: r.ActorUserID, Timestamp: r.Timestamp, Details: details, IPAddress: r.IPAddress,
		})
	}
	return out, total, nil
}

var _ store.Audit = (*Client)(nil)
