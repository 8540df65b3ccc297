package memstore

import (
	"context"
	"sort"

	"github.com/ifcserve/hub/internal/model"
	"github.com/ifcserve/hub/internal/store"
)

func (s *Store) AppendAudit(ctx context.Context, e *model.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.auditLogs = append(s.auditLogs, &cp)
	return nil
}

func (s *Store) ListAudit(ctx context.Context, subject, subjectID string, f store.Filter) ([]*model.AuditLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*model.AuditLog
	for _, e := range s.auditLogs {
		if e.Subject == subject && e.SubjectID == subjectID {
			cp := *e
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	total := len(matched)
	limit, offset := clampPage(f)
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

var _ store.Audit = (*Store)(nil)
