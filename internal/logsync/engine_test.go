package logsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dispatchgw/dispatchgw/internal/database"
	"github.com/dispatchgw/dispatchgw/internal/database/models"
	"github.com/dispatchgw/dispatchgw/internal/directory"
	"github.com/dispatchgw/dispatchgw/internal/provider"
)

// fakeProvider returns fixed pages or a fixed error.
type fakeProvider struct {
	calls    []provider.Call
	messages []provider.Message
	err      error
}

func (f *fakeProvider) ListCalls(_ context.Context, _ int) ([]provider.Call, error) {
	return f.calls, f.err
}

func (f *fakeProvider) ListMessages(_ context.Context, _ int) ([]provider.Message, error) {
	return f.messages, f.err
}

// failingParties fails every lookup to exercise record-scoped degradation.
type failingParties struct{}

func (failingParties) LookupDriver(context.Context, string) (*models.Party, error) {
	return nil, errors.New("directory unavailable")
}
func (failingParties) LookupClient(context.Context, string) (*models.Party, error) {
	return nil, errors.New("directory unavailable")
}
func (failingParties) CreateDriver(context.Context, *models.Party) error { return nil }
func (failingParties) CreateClient(context.Context, *models.Party) error { return nil }
func (failingParties) ListDrivers(context.Context) ([]models.Party, error) {
	return nil, nil
}
func (failingParties) ListClients(context.Context) ([]models.Party, error) {
	return nil, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestEngine(t *testing.T, pc provider.Client, parties database.PartyRepository) (*Engine, *database.DB) {
	t.Helper()
	db := openTestDB(t)
	logger := quietLogger()
	if parties == nil {
		parties = database.NewPartyRepository(db)
	}
	dir := directory.New(parties, logger)
	engine := NewEngine(pc,
		database.NewCallLogRepository(db),
		database.NewMessageLogRepository(db),
		dir, logger)
	return engine, db
}

func TestSyncCallsIdempotent(t *testing.T) {
	start := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)
	pc := &fakeProvider{
		calls: []provider.Call{
			{SID: "CA123", StartTime: start, From: "+15559998888", To: "+15550001111", Status: "completed", Duration: 42, Direction: "inbound"},
			{SID: "CA124", StartTime: start.Add(-time.Minute), From: "+15557654321", To: "+15550001111", Status: "no-answer", Direction: "inbound"},
		},
	}
	engine, db := newTestEngine(t, pc, nil)
	ctx := context.Background()

	inserted, err := engine.SyncCalls(ctx)
	if err != nil {
		t.Fatalf("first SyncCalls() error: %v", err)
	}
	if inserted != 2 {
		t.Errorf("first pass inserted = %d, want 2", inserted)
	}

	// A second pass over the unchanged provider page inserts nothing.
	inserted, err = engine.SyncCalls(ctx)
	if err != nil {
		t.Fatalf("second SyncCalls() error: %v", err)
	}
	if inserted != 0 {
		t.Errorf("second pass inserted = %d, want 0", inserted)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM call_logs").Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}
}

func TestSyncCallsResolvesDriverBeforeClient(t *testing.T) {
	start := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)
	pc := &fakeProvider{
		calls: []provider.Call{
			{SID: "CA200", StartTime: start, From: "+15551230001", To: "+15550001111"},
		},
	}
	engine, db := newTestEngine(t, pc, nil)
	ctx := context.Background()

	parties := database.NewPartyRepository(db)
	// The same number exists in both directories: the driver wins.
	if err := parties.CreateDriver(ctx, &models.Party{Name: "Alex Driver", PhoneNumber: "+15551230001"}); err != nil {
		t.Fatalf("CreateDriver() error: %v", err)
	}
	if err := parties.CreateClient(ctx, &models.Party{Name: "Acme Freight", PhoneNumber: "+15551230001"}); err != nil {
		t.Fatalf("CreateClient() error: %v", err)
	}

	if _, err := engine.SyncCalls(ctx); err != nil {
		t.Fatalf("SyncCalls() error: %v", err)
	}

	entries, err := database.NewCallLogRepository(db).ListRecent(ctx, 1)
	if err != nil {
		t.Fatalf("ListRecent() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].PartyKind != models.PartyKindDriver {
		t.Errorf("party kind = %q, want driver", entries[0].PartyKind)
	}
	if entries[0].PartyName == nil || *entries[0].PartyName != "Alex Driver" {
		t.Errorf("party name = %v, want Alex Driver", entries[0].PartyName)
	}
}

func TestSyncCallsProviderFailureAbortsPass(t *testing.T) {
	pc := &fakeProvider{err: errors.New("api unreachable")}
	engine, db := newTestEngine(t, pc, nil)

	if _, err := engine.SyncCalls(context.Background()); err == nil {
		t.Fatal("SyncCalls() error = nil, want provider failure")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM call_logs").Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 0 {
		t.Errorf("row count = %d, want 0 after aborted pass", count)
	}
}

func TestSyncCallsDirectoryFailureStillInserts(t *testing.T) {
	start := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)
	pc := &fakeProvider{
		calls: []provider.Call{
			{SID: "CA300", StartTime: start, From: "+15559998888", To: "+15550001111"},
		},
	}
	engine, db := newTestEngine(t, pc, failingParties{})

	inserted, err := engine.SyncCalls(context.Background())
	if err != nil {
		t.Fatalf("SyncCalls() error: %v", err)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1", inserted)
	}

	entries, err := database.NewCallLogRepository(db).ListRecent(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListRecent() error: %v", err)
	}
	if entries[0].PartyID != nil {
		t.Errorf("party id = %v, want nil when the directory fails", entries[0].PartyID)
	}
}

func TestSyncMessagesIdempotent(t *testing.T) {
	sent := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)
	pc := &fakeProvider{
		messages: []provider.Message{
			{SID: "SM1", DateSent: sent, From: "+15559998888", To: "+15550001111", Body: "eta 20 min"},
			{SID: "SM2", DateSent: sent.Add(time.Minute), From: "+15559998888", To: "+15550001111", Body: "arrived"},
		},
	}
	engine, _ := newTestEngine(t, pc, nil)
	ctx := context.Background()

	inserted, err := engine.SyncMessages(ctx)
	if err != nil {
		t.Fatalf("first SyncMessages() error: %v", err)
	}
	if inserted != 2 {
		t.Errorf("first pass inserted = %d, want 2", inserted)
	}

	inserted, err = engine.SyncMessages(ctx)
	if err != nil {
		t.Fatalf("second SyncMessages() error: %v", err)
	}
	if inserted != 0 {
		t.Errorf("second pass inserted = %d, want 0", inserted)
	}
}
