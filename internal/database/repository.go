package database

import (
	"context"
	"time"

	"github.com/dispatchgw/dispatchgw/internal/database/models"
)

// CallLogRepository manages synced call records. Insert uses
// insert-or-ignore semantics keyed on the provider call SID: a duplicate
// insert is a silent no-op, never an error.
type CallLogRepository interface {
	// Insert stores a call log. Returns false when a row with the same
	// call SID already exists.
	Insert(ctx context.Context, call *models.CallLog) (bool, error)
	// ListRecent returns the most recent calls, newest first, each
	// annotated with the resolved party's display name when available.
	ListRecent(ctx context.Context, limit int) ([]models.CallLogEntry, error)
	// DeleteOlderThan removes calls with a timestamp before the cutoff
	// and returns the number of rows deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// MessageLogRepository manages synced SMS records. The dedupe key is the
// composite (from, to, body, timestamp) since the provider's listing API
// does not guarantee a stable message id.
type MessageLogRepository interface {
	Insert(ctx context.Context, msg *models.MessageLog) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]models.MessageLogEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PartyRepository is the phone-number-keyed party directory. Lookups
// return (nil, nil) when no entry matches. The directory is externally
// maintained; the create/list surface exists for provisioning and tests.
type PartyRepository interface {
	LookupDriver(ctx context.Context, phoneNumber string) (*models.Party, error)
	LookupClient(ctx context.Context, phoneNumber string) (*models.Party, error)
	CreateDriver(ctx context.Context, p *models.Party) error
	CreateClient(ctx context.Context, p *models.Party) error
	ListDrivers(ctx context.Context) ([]models.Party, error)
	ListClients(ctx context.Context) ([]models.Party, error)
}

// Store bundles the repositories a deployment provides. Both the embedded
// SQLite store and the Postgres store satisfy it.
type Store interface {
	Calls() CallLogRepository
	Messages() MessageLogRepository
	Parties() PartyRepository
	Close() error
}
