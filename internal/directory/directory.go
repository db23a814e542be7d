// Package directory resolves phone numbers against the dispatch party
// directory. The directory is read-only from the gateway's perspective;
// it is maintained by the back office.
package directory

import (
	"context"
	"log/slog"

	"github.com/dispatchgw/dispatchgw/internal/database"
	"github.com/dispatchgw/dispatchgw/internal/database/models"
)

// Directory looks up the party behind a phone number. Drivers are
// checked before clients; at most one of the two is attached to a record.
type Directory struct {
	parties database.PartyRepository
	logger  *slog.Logger
}

// New creates a Directory over the given party repository.
func New(parties database.PartyRepository, logger *slog.Logger) *Directory {
	return &Directory{
		parties: parties,
		logger:  logger.With("component", "directory"),
	}
}

// Resolve returns the party registered under the phone number, or nil if
// no driver or client matches. A repository failure is record-scoped: it
// is logged and the number resolves to nil rather than failing the
// caller's pass.
func (d *Directory) Resolve(ctx context.Context, phoneNumber string) *models.Party {
	if phoneNumber == "" {
		return nil
	}

	driver, err := d.parties.LookupDriver(ctx, phoneNumber)
	if err != nil {
		d.logger.Warn("driver lookup failed", "phone_number", phoneNumber, "error", err)
	} else if driver != nil {
		return driver
	}

	client, err := d.parties.LookupClient(ctx, phoneNumber)
	if err != nil {
		d.logger.Warn("client lookup failed", "phone_number", phoneNumber, "error", err)
		return nil
	}
	return client
}
