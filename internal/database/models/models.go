package models

import "time"

// Party kinds. The directory distinguishes drivers (field staff) from
// clients (customer companies).
const (
	PartyKindDriver = "driver"
	PartyKindClient = "client"
)

// Party is a phone-number-keyed directory entry. The directory is
// maintained by the dispatch back office; the gateway only reads it to
// annotate call and message logs.
type Party struct {
	ID          int64
	Name        string
	PhoneNumber string
	Kind        string // "driver" | "client"
	CreatedAt   time.Time
}

// CallLog is one synced or webhook-logged call. CallSID is the provider's
// unique call id and the dedupe key: a sync pass never creates two rows
// for the same SID.
type CallLog struct {
	ID         int64
	CallSID    string
	Timestamp  time.Time
	FromNumber string
	ToNumber   string
	Status     string
	Duration   int // seconds
	Direction  string
	PartyID    *int64
	PartyKind  string // "driver" | "client" | "" when unresolved
	CreatedAt  time.Time
}

// CallLogEntry is a CallLog annotated with the resolved party's display
// name for the UI query surface.
type CallLogEntry struct {
	CallLog
	PartyName *string
}

// MessageLog is one synced or webhook-logged SMS. The provider does not
// guarantee a stable message id across its listing API, so the dedupe key
// is the composite (from, to, body, timestamp).
type MessageLog struct {
	ID         int64
	MessageSID string // informational only, not the dedupe key
	FromNumber string
	ToNumber   string
	Body       string
	Timestamp  time.Time
	PartyID    *int64
	PartyKind  string
	CreatedAt  time.Time
}

// MessageLogEntry is a MessageLog annotated with the resolved party's
// display name.
type MessageLogEntry struct {
	MessageLog
	PartyName *string
}
