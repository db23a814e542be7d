package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dispatchgw/dispatchgw/internal/database/models"
)

// partyRepo implements PartyRepository over SQLite.
type partyRepo struct {
	db *DB
}

// NewPartyRepository creates a new PartyRepository.
func NewPartyRepository(db *DB) PartyRepository {
	return &partyRepo{db: db}
}

// LookupDriver returns the driver with the given phone number, or nil if
// no driver matches.
func (r *partyRepo) LookupDriver(ctx context.Context, phoneNumber string) (*models.Party, error) {
	return r.lookup(ctx, "drivers", models.PartyKindDriver, phoneNumber)
}

// LookupClient returns the client with the given phone number, or nil if
// no client matches.
func (r *partyRepo) LookupClient(ctx context.Context, phoneNumber string) (*models.Party, error) {
	return r.lookup(ctx, "clients", models.PartyKindClient, phoneNumber)
}

func (r *partyRepo) lookup(ctx context.Context, table, kind, phoneNumber string) (*models.Party, error) {
	var p models.Party
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, phone_number, created_at FROM `+table+` WHERE phone_number = ?`,
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

// CreateDriver inserts a driver directory entry.
func (r *partyRepo) CreateDriver(ctx context.Context, p *models.Party) error {
	return r.create(ctx, "drivers", models.PartyKindDriver, p)
}

// CreateClient inserts a client directory entry.
func (r *partyRepo) CreateClient(ctx context.Context, p *models.Party) error {
	return r.create(ctx, "clients", models.PartyKindClient, p)
}

func (r *partyRepo) create(ctx context.Context, table, kind string, p *models.Party) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO `+table+` (name, phone_number) VALUES (?, ?)`,
		p.Name, p.PhoneNumber,
	)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", kind, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	p.ID = id
	p.Kind = kind
	return nil
}

// ListDrivers returns all driver directory entries.
func (r *partyRepo) ListDrivers(ctx context.Context) ([]models.Party, error) {
	return r.list(ctx, "drivers", models.PartyKindDriver)
}

// ListClients returns all client directory entries.
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
