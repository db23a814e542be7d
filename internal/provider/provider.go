// Package provider talks to the cloud voice/SMS provider's REST API.
package provider

import (
	"context"
	"time"
)

// Call is one call record from the provider's listing API. SID is the
// provider's globally unique call id.
type Call struct {
	SID       string
	StartTime time.Time
	From      string
	To        string
	Status    string
	Duration  int // seconds
	Direction string
}

// Message is one SMS record from the provider's listing API. The SID is
// informational; the listing API does not guarantee it is stable, so it
// is not used as a dedupe key.
type Message struct {
	SID       string
	DateSent  time.Time
	From      string
	To        string
	Body      string
	Status    string
	Direction string
}

// Client is the provider query surface the sync engine consumes. Both
// listings return the most recent page, newest first, bounded by limit.
type Client interface {
	ListCalls(ctx context.Context, limit int) ([]Call, error)
	ListMessages(ctx context.Context, limit int) ([]Message, error)
}
