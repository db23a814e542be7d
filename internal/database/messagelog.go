package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dispatchgw/dispatchgw/internal/database/models"
)

// messageLogRepo implements MessageLogRepository over SQLite.
type messageLogRepo struct {
	db *DB
}

// NewMessageLogRepository creates a new MessageLogRepository.
func NewMessageLogRepository(db *DB) MessageLogRepository {
	return &messageLogRepo{db: db}
}

// Insert stores a message log with insert-or-ignore semantics keyed on the
// composite (from, to, body, timestamp). Returns false when that tuple was
// already present.
func (r *messageLogRepo) Insert(ctx context.Context, msg *models.MessageLog) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages
		 (message_sid, from_number, to_number, body, timestamp, party_id, party_kind)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.MessageSID, msg.FromNumber, msg.ToNumber, msg.Body,
		msg.Timestamp, msg.PartyID, msg.PartyKind,
	)
	if err != nil {
		return false, fmt.Errorf("inserting message log: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("getting last insert id: %w", err)
	}
	msg.ID = id
	return true, nil
}

// ListRecent returns the most recent message logs, newest first, each
// joined against the directory for the resolved party's display name.
func (r *messageLogRepo) ListRecent(ctx context.Context, limit int) ([]models.MessageLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.message_sid, m.from_number, m.to_number, m.body,
		 m.timestamp, m.party_id, m.party_kind, m.created_at,
		 CASE m.party_kind WHEN 'driver' THEN d.name WHEN 'client' THEN c.name END AS party_name
		 FROM messages m
		 LEFT JOIN drivers d ON m.party_kind = 'driver' AND m.party_id = d.id
		 LEFT JOIN clients c ON m.party_kind = 'client' AND m.party_id = c.id
		 ORDER BY m.timestamp DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent message logs: %w", err)
	}
	defer rows.Close()

	var entries []models.MessageLogEntry
	for rows.Next() {
		var e models.MessageLogEntry
		if err := rows.Scan(&e.ID, &e.MessageSID, &e.FromNumber, &e.ToNumber, &e.Body,
			&e.Timestamp, &e.PartyID, &e.PartyKind, &e.CreatedAt, &e.PartyName); err != nil {
			return nil, fmt.Errorf("scanning message log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message log rows: %w", err)
	}

	return entries, nil
}

// DeleteOlderThan removes message logs with a timestamp before the cutoff.
func (r *messageLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired message logs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return n, nil
}
