package provider

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const (
	testAccountSID = "AC0000000000000000000000000000test"
	testAuthToken  = "token123"
)

func newTestTwilio(t *testing.T, handler http.HandlerFunc) *Twilio {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTwilio(testAccountSID, testAuthToken, logger, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestListCallsParsesPage(t *testing.T) {
	var gotPath, gotAuth, gotPageSize string
	client := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotPageSize = r.URL.Query().Get("PageSize")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"calls": [
			{"sid": "CA100", "start_time": "Mon, 13 Apr 2026 14:05:00 +0000", "from": "+15559998888", "to": "+15550001111", "status": "completed", "duration": "42", "direction": "inbound"},
			{"sid": "CA101", "start_time": "Mon, 13 Apr 2026 13:00:00 +0000", "from": "+15557654321", "to": "+15550001111", "status": "no-answer", "duration": "0", "direction": "inbound"}
		]}`)
	})

	calls, err := client.ListCalls(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListCalls() error: %v", err)
	}

	wantPath := "/2010-04-01/Accounts/" + testAccountSID + "/Calls.json"
	if gotPath != wantPath {
		t.Errorf("path = %q, want %q", gotPath, wantPath)
	}
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte(testAccountSID+":"+testAuthToken))
	if gotAuth != wantAuth {
		t.Errorf("authorization = %q, want basic auth with account credentials", gotAuth)
	}
	if gotPageSize != "50" {
		t.Errorf("PageSize = %q, want 50", gotPageSize)
	}

	if len(calls) != 2 {
		t.Fatalf("len(calls) = %d, want 2", len(calls))
	}
	want := time.Date(2026, time.April, 13, 14, 5, 0, 0, time.UTC)
	if !calls[0].StartTime.Equal(want) {
		t.Errorf("start time = %v, want %v", calls[0].StartTime, want)
	}
	if calls[0].Duration != 42 {
		t.Errorf("duration = %d, want 42", calls[0].Duration)
	}
	if calls[0].SID != "CA100" || calls[0].From != "+15559998888" || calls[0].Status != "completed" {
		t.Errorf("unexpected call fields: %+v", calls[0])
	}
}

func TestListCallsToleratesUnparseableFields(t *testing.T) {
	client := newTestTwilio(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"calls": [
			{"sid": "CA102", "start_time": "not a date", "from": "+15559998888", "to": "+15550001111", "status": "completed", "duration": "", "direction": "inbound"}
		]}`)
	})

	calls, err := client.ListCalls(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListCalls() error: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("len(calls) = %d, want 1", len(calls))
	}
	if !calls[0].StartTime.IsZero() {
		t.Errorf("start time = %v, want zero for unparseable input", calls[0].StartTime)
	}
	if calls[0].Duration != 0 {
		t.Errorf("duration = %d, want 0 for empty input", calls[0].Duration)
	}
}

func TestListMessagesParsesPage(t *testing.T) {
	var gotPath string
	client := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"messages": [
			{"sid": "SM100", "date_sent": "Mon, 13 Apr 2026 14:05:00 +0000", "from": "+15559998888", "to": "+15550001111", "body": "eta 20 min", "status": "received", "direction": "inbound"}
		]}`)
	})

	msgs, err := client.ListMessages(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListMessages() error: %v", err)
	}

	if !strings.HasSuffix(gotPath, "/Messages.json") {
		t.Errorf("path = %q, want Messages.json resource", gotPath)
	}
	if len(msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1", len(msgs))
	}
	if msgs[0].Body != "eta 20 min" {
		t.Errorf("body = %q, want original text", msgs[0].Body)
	}
	want := time.Date(2026, time.April, 13, 14, 5, 0, 0, time.UTC)
	if !msgs[0].DateSent.Equal(want) {
		t.Errorf("date sent = %v, want %v", msgs[0].DateSent, want)
	}
}

func TestNonOKStatusIsAnError(t *testing.T) {
	client := newTestTwilio(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"code": 20003, "message": "Authentication Error"}`, http.StatusUnauthorized)
	})

	if _, err := client.ListCalls(context.Background(), 50); err == nil {
		t.Error("ListCalls() error = nil, want error on 401")
	}
	if _, err := client.ListMessages(context.Background(), 50); err == nil {
		t.Error("ListMessages() error = nil, want error on 401")
	}
}
