package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// handleToken mints a provider access token for the operator softphone.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	identity, signed, err := s.tokens.Generate()
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"identity": identity,
		"token":    signed,
	})
}

// clientStatusRequest is the presence heartbeat from the softphone.
type clientStatusRequest struct {
	Identity  string `json:"identity"`
	Connected bool   `json:"connected"`
}

// handleClientStatus records the softphone's presence signal. Updates may
// arrive out of causal order; last write wins.
func (s *Server) handleClientStatus(w http.ResponseWriter, r *http.Request) {
	var req clientStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity := req.Identity
	if identity == "" {
		identity = s.cfg.OperatorIdentity
	}

	s.tracker.Set(identity, req.Connected)
	s.logger.Info("client presence updated", "identity", identity, "connected", req.Connected)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "updated",
		"connected": req.Connected,
	})
}

// defaultLogLimit caps the UI query surface.
const defaultLogLimit = 10

// maxLogLimit is the largest page the UI may request.
const maxLogLimit = 100

// handleCallLogs returns the most recent call logs, annotated with the
// resolved party's display name.
func (s *Server) handleCallLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))

	entries, err := s.store.Calls().ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing call logs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch call logs")
		return
	}

	out := make([]callLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, callLogResponse{
			CallSID:    e.CallSID,
			Timestamp:  e.Timestamp.UTC(),
			FromNumber: e.FromNumber,
			ToNumber:   e.ToNumber,
			Status:     e.Status,
			Duration:   e.Duration,
			Direction:  e.Direction,
			PartyKind:  e.PartyKind,
			PartyName:  e.PartyName,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleMessageLogs returns the most recent message logs, annotated with
// the resolved party's display name.
func (s *Server) handleMessageLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))

	entries, err := s.store.Messages().ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing message logs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	out := make([]messageLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, messageLogResponse{
			FromNumber: e.FromNumber,
			ToNumber:   e.ToNumber,
			Body:       e.Body,
			Timestamp:  e.Timestamp.UTC(),
			PartyKind:  e.PartyKind,
			PartyName:  e.PartyName,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultLogLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultLogLimit
	}
	if n > maxLogLimit {
		return maxLogLimit
	}
	return n
}

// callLogResponse is the JSON shape of one call log row.
type callLogResponse struct {
	CallSID    string    `json:"call_sid"`
	Timestamp  time.Time `json:"timestamp"`
	FromNumber string    `json:"from_number"`
	ToNumber   string    `json:"to_number"`
	Status     string    `json:"status"`
	Duration   int       `json:"duration"`
	Direction  string    `json:"direction"`
	PartyKind  string    `json:"party_kind,omitempty"`
	PartyName  *string   `json:"party_name,omitempty"`
}

// messageLogResponse is the JSON shape of one message log row.
type messageLogResponse struct {
	FromNumber string    `json:"from_number"`
	ToNumber   string    `json:"to_number"`
	Body       string    `json:"body"`
	Timestamp  time.Time `json:"timestamp"`
	PartyKind  string    `json:"party_kind,omitempty"`
	PartyName  *string   `json:"party_name,omitempty"`
}
