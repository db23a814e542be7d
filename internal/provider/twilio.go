package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// defaultBaseURL is the Twilio REST API endpoint.
const defaultBaseURL = "https://api.twilio.com"

// twilioTimeFormat is the timestamp format in Twilio JSON responses.
const twilioTimeFormat = time.RFC1123Z

// Twilio implements Client against the Twilio REST API using HTTP basic
// auth with the account SID and auth token.
type Twilio struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// TwilioOption configures the Twilio client.
type TwilioOption func(*Twilio)

// WithBaseURL overrides the API endpoint, primarily for tests.
func WithBaseURL(u string) TwilioOption {
	return func(t *Twilio) { t.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) TwilioOption {
	return func(t *Twilio) { t.httpClient = c }
}

// NewTwilio creates a Twilio REST client. Request deadlines come from the
// caller's context; the embedded HTTP client timeout is a backstop.
func NewTwilio(accountSID, authToken string, logger *slog.Logger, opts ...TwilioOption) *Twilio {
	t := &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "provider"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// twilioCall is the wire shape of one call in a Calls.json page. Numeric
// fields arrive as strings.
type twilioCall struct {
	SID       string `json:"sid"`
	StartTime string `json:"start_time"`
	From      string `json:"from"`
	To        string `json:"to"`
	Status    string `json:"status"`
	Duration  string `json:"duration"`
	Direction string `json:"direction"`
}

type twilioCallPage struct {
	Calls []twilioCall `json:"calls"`
}

type twilioMessage struct {
	SID       string `json:"sid"`
	DateSent  string `json:"date_sent"`
	From      string `json:"from"`
	To        string `json:"to"`
	Body      string `json:"body"`
	Status    string `json:"status"`
	Direction string `json:"direction"`
}

type twilioMessagePage struct {
	Messages []twilioMessage `json:"messages"`
}

// ListCalls fetches the most recent page of call records, newest first.
func (t *Twilio) ListCalls(ctx context.Context, limit int) ([]Call, error) {
	var page twilioCallPage
	if err := t.get(ctx, "Calls.json", limit, &page); err != nil {
		return nil, err
	}

	calls := make([]Call, 0, len(page.Calls))
	for _, c := range page.Calls {
		call := Call{
			SID:       c.SID,
			From:      c.From,
			To:        c.To,
			Status:    c.Status,
			Direction: c.Direction,
		}
		if ts, err := time.Parse(twilioTimeFormat, c.StartTime); err == nil {
			call.StartTime = ts
		} else {
			t.logger.Warn("unparseable call start time", "call_sid", c.SID, "start_time", c.StartTime)
		}
		if d, err := strconv.Atoi(c.Duration); err == nil {
			call.Duration = d
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// ListMessages fetches the most recent page of SMS records, newest first.
func (t *Twilio) ListMessages(ctx context.Context, limit int) ([]Message, error) {
	var page twilioMessagePage
	if err := t.get(ctx, "Messages.json", limit, &page); err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(page.Messages))
	for _, m := range page.Messages {
		msg := Message{
			SID:       m.SID,
			From:      m.From,
			To:        m.To,
			Body:      m.Body,
			Status:    m.Status,
			Direction: m.Direction,
		}
		if ts, err := time.Parse(twilioTimeFormat, m.DateSent); err == nil {
			msg.DateSent = ts
		} else {
			t.logger.Warn("unparseable message date", "message_sid", m.SID, "date_sent", m.DateSent)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// get fetches one resource page and decodes it into out.
func (t *Twilio) get(ctx context.Context, resource string, limit int, out any) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/%s", t.baseURL, t.accountSID, resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building provider request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)

	q := url.Values{}
	q.Set("PageSize", strconv.Itoa(limit))
	req.URL.RawQuery = q.Encode()

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: provider returned status %d", resource, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", resource, err)
	}
	return nil
}

// Interface check.
var _ Client = (*Twilio)(nil)
