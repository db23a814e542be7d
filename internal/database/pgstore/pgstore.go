// Package pgstore implements the database repositories over PostgreSQL,
// for deployments that keep the gateway's logs in the same database as
// the dispatch back office. The embedded SQLite store is the default.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dispatchgw/dispatchgw/internal/database"
	"github.com/dispatchgw/dispatchgw/internal/database/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements database.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New opens a PostgreSQL connection and runs pending migrations.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgresql: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgresql: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	slog.Info("postgresql store opened")
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Calls() database.CallLogRepository       { return &callLogRepo{db: s.db} }
func (s *Store) Messages() database.MessageLogRepository { return &messageLogRepo{db: s.db} }
func (s *Store) Parties() database.PartyRepository       { return &partyRepo{db: s.db} }

// migrate runs all pending SQL migration files in order.
func (s *Store) migrate() error {
	// Ensure schema_migrations table exists.
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version := strings.TrimSuffix(entry.Name(), ".sql")

		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = $1", version).Scan(&count)
		if err != nil {
			return fmt.Errorf("checking migration %s: %w", version, err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", version, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %s: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", version, err)
		}

		slog.Info("applied migration", "version", version)
	}

	return nil
}

// callLogRepo implements database.CallLogRepository over PostgreSQL.
type callLogRepo struct {
	db *sql.DB
}

func (r *callLogRepo) Insert(ctx context.Context, call *models.CallLog) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO call_logs
		 (call_sid, timestamp, from_number, to_number, status, duration, direction, party_id, party_kind)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (call_sid) DO NOTHING
		 RETURNING id`,
		call.CallSID, call.Timestamp, call.FromNumber, call.ToNumber,
		call.Status, call.Duration, call.Direction, call.PartyID, call.PartyKind,
	).Scan(&id)
	if err == sql.ErrNoRows {
		// Conflict: the call SID is already stored.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inserting call log: %w", err)
	}
	call.ID = id
	return true, nil
}

func (r *callLogRepo) ListRecent(ctx context.Context, limit int) ([]models.CallLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT cl.id, cl.call_sid, cl.timestamp, cl.from_number, cl.to_number,
		 cl.status, cl.duration, cl.direction, cl.party_id, cl.party_kind, cl.created_at,
		 CASE cl.party_kind WHEN 'driver' THEN d.name WHEN 'client' THEN c.name END AS party_name
		 FROM call_logs cl
		 LEFT JOIN drivers d ON cl.party_kind = 'driver' AND cl.party_id = d.id
		 LEFT JOIN clients c ON cl.party_kind = 'client' AND cl.party_id = c.id
		 ORDER BY cl.timestamp DESC LIMIT $1`, limit,
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

func (r *callLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM call_logs WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired call logs: %w", err)
	}
	return result.RowsAffected()
}

// messageLogRepo implements database.MessageLogRepository over PostgreSQL.
type messageLogRepo struct {
	db *sql.DB
}

func (r *messageLogRepo) Insert(ctx context.Context, msg *models.MessageLog) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO messages
		 (message_sid, from_number, to_number, body, timestamp, party_id, party_kind)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (from_number, to_number, body, timestamp) DO NOTHING
		 RETURNING id`,
		msg.MessageSID, msg.FromNumber, msg.ToNumber, msg.Body,
		msg.Timestamp, msg.PartyID, msg.PartyKind,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inserting message log: %w", err)
	}
	msg.ID = id
	return true, nil
}

func (r *messageLogRepo) ListRecent(ctx context.Context, limit int) ([]models.MessageLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.message_sid, m.from_number, m.to_number, m.body,
		 m.timestamp, m.party_id, m.party_kind, m.created_at,
		 CASE m.party_kind WHEN 'driver' THEN d.name WHEN 'client' THEN c.name END AS party_name
		 FROM messages m
		 LEFT JOIN drivers d ON m.party_kind = 'driver' AND m.party_id = d.id
		 LEFT JOIN clients c ON m.party_kind = 'client' AND m.party_id = c.id
		 ORDER BY m.timestamp DESC LIMIT $1`, limit,
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

func (r *messageLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired message logs: %w", err)
	}
	return result.RowsAffected()
}

// partyRepo implements database.PartyRepository over PostgreSQL.
type partyRepo struct {
	db *sql.DB
}

func (r *partyRepo) LookupDriver(ctx context.Context, phoneNumber string) (*models.Party, error) {
	return r.lookup(ctx, "drivers", models.PartyKindDriver, phoneNumber)
}

func (r *partyRepo) LookupClient(ctx context.Context, phoneNumber string) (*models.Party, error) {
	return r.lookup(ctx, "clients", models.PartyKindClient, phoneNumber)
}

func (r *partyRepo) lookup(ctx context.Context, table, kind, phoneNumber string) (*models.Party, error) {
	var p models.Party
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, phone_number, created_at FROM `+table+` WHERE phone_number = $1`,
		phoneNumber,
	).Scan(&p.ID, &p.Name, &p.PhoneNumber, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s by phone number: %w", kind, err)
	}
	p.Kind = kind
	return &p, nil
}

func (r *partyRepo) CreateDriver(ctx context.Context, p *models.Party) error {
	return r.create(ctx, "drivers", models.PartyKindDriver, p)
}

func (r *partyRepo) CreateClient(ctx context.Context, p *models.Party) error {
	return r.create(ctx, "clients", models.PartyKindClient, p)
}

func (r *partyRepo) create(ctx context.Context, table, kind string, p *models.Party) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO `+table+` (name, phone_number) VALUES ($1, $2) RETURNING id`,
		p.Name, p.PhoneNumber,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", kind, err)
	}
	p.Kind = kind
	return nil
}

func (r *partyRepo) ListDrivers(ctx context.Context) ([]models.Party, error) {
	return r.list(ctx, "drivers", models.PartyKindDriver)
}

func (r *partyRepo) ListClients(ctx context.Context) ([]models.Party, error) {
	return r.list(ctx, "clients", models.PartyKindClient)
}

func (r *partyRepo) list(ctx context.Context, table, kind string) ([]models.Party, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, phone_number, created_at FROM `+table+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", kind, err)
	}
	defer rows.Close()

	var parties []models.Party
	for rows.Next() {
		var p models.Party
		if err := rows.Scan(&p.ID, &p.Name, &p.PhoneNumber, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", kind, err)
		}
		p.Kind = kind
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", kind, err)
	}

	return parties, nil
}

// Interface checks.
var (
	_ database.Store = (*Store)(nil)
)
