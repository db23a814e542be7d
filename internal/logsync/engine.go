// Package logsync periodically reconciles the provider's call and
// message history into local storage. Each pass fetches a single recent
// page and upserts it with insert-or-ignore semantics; convergence comes
// from periodic re-polling, not from exhaustive backfill.
package logsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dispatchgw/dispatchgw/internal/database"
	"github.com/dispatchgw/dispatchgw/internal/database/models"
	"github.com/dispatchgw/dispatchgw/internal/directory"
	"github.com/dispatchgw/dispatchgw/internal/provider"
)

// defaultPageSize bounds each sync pass to one provider page.
const defaultPageSize = 50

// Engine pulls provider history and merges it into the log store,
// resolving each record's originating number against the party directory.
type Engine struct {
	provider provider.Client
	calls    database.CallLogRepository
	messages database.MessageLogRepository
	dir      *directory.Directory
	pageSize int
	logger   *slog.Logger
}

// NewEngine creates a sync engine with the default page size.
func NewEngine(pc provider.Client, calls database.CallLogRepository, messages database.MessageLogRepository, dir *directory.Directory, logger *slog.Logger) *Engine {
	return &Engine{
		provider: pc,
		calls:    calls,
		messages: messages,
		dir:      dir,
		pageSize: defaultPageSize,
		logger:   logger.With("component", "logsync"),
	}
}

// SyncCalls fetches the most recent page of provider call records and
// upserts each one. Returns the number of newly inserted rows; records
// already stored are expected no-ops. A provider failure aborts the
// whole pass.
func (e *Engine) SyncCalls(ctx context.Context) (int, error) {
	records, err := e.provider.ListCalls(ctx, e.pageSize)
	if err != nil {
		return 0, fmt.Errorf("fetching call history: %w", err)
	}

	inserted := 0
	for _, rec := range records {
		call := &models.CallLog{
			CallSID:    rec.SID,
			Timestamp:  rec.StartTime,
			FromNumber: rec.From,
			ToNumber:   rec.To,
			Status:     rec.Status,
			Duration:   rec.Duration,
			Direction:  rec.Direction,
		}
		e.attachParty(ctx, rec.From, &call.PartyID, &call.PartyKind)

		ok, err := e.calls.Insert(ctx, call)
		if err != nil {
			return inserted, fmt.Errorf("storing call %s: %w", rec.SID, err)
		}
		if ok {
			inserted++
		}
	}

	e.logger.Info("call sync pass complete", "fetched", len(records), "inserted", inserted)
	return inserted, nil
}

// SyncMessages fetches the most recent page of provider SMS records and
// upserts each one. Returns the number of newly inserted rows.
func (e *Engine) SyncMessages(ctx context.Context) (int, error) {
	records, err := e.provider.ListMessages(ctx, e.pageSize)
	if err != nil {
		return 0, fmt.Errorf("fetching message history: %w", err)
	}

	inserted := 0
	for _, rec := range records {
		msg := &models.MessageLog{
			MessageSID: rec.SID,
			FromNumber: rec.From,
			ToNumber:   rec.To,
			Body:       rec.Body,
			Timestamp:  rec.DateSent,
		}
		e.attachParty(ctx, rec.From, &msg.PartyID, &msg.PartyKind)

		ok, err := e.messages.Insert(ctx, msg)
		if err != nil {
			return inserted, fmt.Errorf("storing message from %s: %w", rec.From, err)
		}
		if ok {
			inserted++
		}
	}

	e.logger.Info("message sync pass complete", "fetched", len(records), "inserted", inserted)
	return inserted, nil
}

// attachParty resolves the originating number and, when a party matches,
// sets the record's party reference. Exactly one of driver, client, or
// neither is attached.
func (e *Engine) attachParty(ctx context.Context, fromNumber string, partyID **int64, partyKind *string) {
	party := e.dir.Resolve(ctx, fromNumber)
	if party == nil {
		return
	}
	id := party.ID
	*partyID = &id
	*partyKind = party.Kind
}
