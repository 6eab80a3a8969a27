package sqlstore

import (
	"context"

	"internship/internal/model"
	"internship/internal/store"
)

// AppendHistory records one applied transition.
func (s *Store) AppendHistory(ctx context.Context, h model.HistoryEntry) error {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO request_history (id, request_id, from_status, to_status, action, actor_role, actor_id, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.RequestID, string(h.From), string(h.To), string(h.Action), string(h.ActorRole), h.ActorID, h.Reason, millis(h.At))
	if isUniqueViolation(err) {
		// redelivered event
		return nil
	}
	return store.Failure("append history", err)
}

// ListHistory returns a request's transitions oldest first.
func (s *Store) ListHistory(ctx context.Context, requestID string) ([]model.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, request_id, from_status, to_status, action, actor_role, actor_id, reason, occurred_at
		FROM request_history WHERE request_id = ? ORDER BY occurred_at, id
	`), requestID)
	if err != nil {
		return nil, store.Failure("list history", err)
	}
	defer rows.Close()

	out := []model.HistoryEntry{}
	for rows.Next() {
		var (
			h                      model.HistoryEntry
			from, to, action, role string
			at                     int64
		)
		if err := rows.Scan(&h.ID, &h.RequestID, &from, &to, &action, &role, &h.ActorID, &h.Reason, &at); err != nil {
			return nil, store.Failure("list history", err)
		}
		h.From, h.To = model.Status(from), model.Status(to)
		h.Action, h.ActorRole = model.Action(action), model.Role(role)
		h.At = fromMillis(at)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Failure("list history", err)
	}
	return out, nil
}
