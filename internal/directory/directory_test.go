package directory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dispatchgw/dispatchgw/internal/database/models"
)

// stubParties serves fixed lookup results.
type stubParties struct {
	driver    *models.Party
	client    *models.Party
	driverErr error
	clientErr error
}

func (s *stubParties) LookupDriver(context.Context, string) (*models.Party, error) {
	return s.driver, s.driverErr
}
func (s *stubParties) LookupClient(context.Context, string) (*models.Party, error) {
	return s.client, s.clientErr
}
func (s *stubParties) CreateDriver(context.Context, *models.Party) error { return nil }
func (s *stubParties) CreateClient(context.Context, *models.Party) error { return nil }
func (s *stubParties) ListDrivers(context.Context) ([]models.Party, error) {
	return nil, nil
}
func (s *stubParties) ListClients(context.Context) ([]models.Party, error) {
	return nil, nil
}

func newTestDirectory(parties *stubParties) *Directory {
	return New(parties, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolveDriverWinsOverClient(t *testing.T) {
	d := newTestDirectory(&stubParties{
		driver: &models.Party{ID: 1, Name: "Alex Driver", Kind: models.PartyKindDriver},
		client: &models.Party{ID: 2, Name: "Acme Freight", Kind: models.PartyKindClient},
	})

	got := d.Resolve(context.Background(), "+15551230001")
	if got == nil || got.Kind != models.PartyKindDriver {
		t.Errorf("Resolve() = %v, want the driver entry", got)
	}
}

func TestResolveFallsThroughToClient(t *testing.T) {
	d := newTestDirectory(&stubParties{
		client: &models.Party{ID: 2, Name: "Acme Freight", Kind: models.PartyKindClient},
	})

	got := d.Resolve(context.Background(), "+15551230001")
	if got == nil || got.Kind != models.PartyKindClient {
		t.Errorf("Resolve() = %v, want the client entry", got)
	}
}

func TestResolveUnknownNumber(t *testing.T) {
	d := newTestDirectory(&stubParties{})
	if got := d.Resolve(context.Background(), "+15551230001"); got != nil {
		t.Errorf("Resolve() = %v, want nil for an unknown number", got)
	}
}

func TestResolveEmptyNumber(t *testing.T) {
	d := newTestDirectory(&stubParties{
		driver: &models.Party{ID: 1, Kind: models.PartyKindDriver},
	})
	if got := d.Resolve(context.Background(), ""); got != nil {
		t.Errorf("Resolve() = %v, want nil for an empty number", got)
	}
}

func TestResolveDriverErrorFallsThrough(t *testing.T) {
	d := newTestDirectory(&stubParties{
		driverErr: errors.New("db locked"),
		client:    &models.Party{ID: 2, Kind: models.PartyKindClient},
	})

	got := d.Resolve(context.Background(), "+15551230001")
	if got == nil || got.Kind != models.PartyKindClient {
		t.Errorf("Resolve() = %v, want the client despite the driver lookup failure", got)
	}
}

func TestResolveBothErrorsDegradeToNil(t *testing.T) {
	d := newTestDirectory(&stubParties{
		driverErr: errors.New("db locked"),
		clientErr: errors.New("db locked"),
	})
	if got := d.Resolve(context.Background(), "+15551230001"); got != nil {
		t.Errorf("Resolve() = %v, want nil when both lookups fail", got)
	}
}
