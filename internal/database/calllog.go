package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dispatchgw/dispatchgw/internal/database/models"
)

// callLogRepo implements CallLogRepository over SQLite.
type callLogRepo struct {
	db *DB
}

// NewCallLogRepository creates a new CallLogRepository.
func NewCallLogRepository(db *DB) CallLogRepository {
	return &callLogRepo{db: db}
}

// Insert stores a call log with insert-or-ignore semantics keyed on the
// call SID. Returns false when the SID was already present.
func (r *callLogRepo) Insert(ctx context.Context, call *models.CallLog) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO call_logs
		 (call_sid, timestamp, from_number, to_number, status, duration, direction, party_id, party_kind)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		call.CallSID, call.Timestamp, call.FromNumber, call.ToNumber,
		call.Status, call.Duration, call.Direction, call.PartyID, call.PartyKind,
	)
	if err != nil {
		return false, fmt.Errorf("inserting call log: %w", err)
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
	call.ID = id
	return true, nil
}

// ListRecent returns the most recent call logs, newest first, each joined
// against the directory for the resolved party's display name.
func (r *callLogRepo) ListRecent(ctx context.Context, limit int) ([]models.CallLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cl.id, cl.call_sid, cl.timestamp, cl.from_number, cl.to_number,
		 cl.status, cl.duration, cl.direction, cl.party_id, cl.party_kind, cl.created_at,
		 CASE cl.party_kind WHEN 'driver' THEN d.name WHEN 'client' THEN c.name END AS party_name
		 FROM call_logs cl
		 LEFT JOIN drivers d ON cl.party_kind = 'driver' AND cl.party_id = d.id
		 LEFT JOIN clients c ON cl.party_kind = 'client' AND cl.party_id = c.id
		 ORDER BY cl.timestamp DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent call logs: %w", err)
	}
	defer rows.Close()

	var entries []models.CallLogEntry
	for rows.Next() {
		var e models.CallLogEntry
		if err := rows.Scan(&e.ID, &e.CallSID, &e.Timestamp, &e.FromNumber, &e.ToNumber,
			&e.Status, &e.Duration, &e.Direction, &e.PartyID, &e.PartyKind,
			&e.CreatedAt, &e.PartyName); err != nil {
			return nil, fmt.Errorf("scanning call log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating call log rows: %w", err)
	}

	return entries, nil
}

// DeleteOlderThan removes call logs with a timestamp before the cutoff.
func (r *callLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM call_logs WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired call logs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return n, nil
}
