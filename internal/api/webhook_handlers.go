package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dispatchgw/dispatchgw/internal/database/models"
	"github.com/dispatchgw/dispatchgw/internal/routing"
)

// handleVoice is the inbound call webhook. It logs the call, runs the
// routing decision, and answers with TwiML. The directive depends only
// on presence, config, and the request, so a rendering is returned even
// when log storage is unavailable.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.Warn("malformed voice webhook", "error", err)
		s.renderClosed(w)
		return
	}

	req := routing.Request{
		To:        r.PostFormValue("To"),
		From:      r.PostFormValue("From"),
		Direction: r.PostFormValue("Direction"),
	}

	s.logger.Info("voice webhook received",
		"call_sid", r.PostFormValue("CallSid"),
		"to", req.To,
		"from", req.From,
		"call_status", r.PostFormValue("CallStatus"),
	)

	// Best-effort webhook-time logging. The sync engine will pick the
	// call up later if this insert fails; the same SID converges to one
	// row either way.
	s.logWebhookCall(r)

	present := s.tracker.IsPresent(s.cfg.OperatorIdentity)
	directive := routing.Decide(req, time.Now(), present, s.routingConfig())

	doc, err := s.renderer.RenderVoice(directive)
	if err != nil {
		s.logger.Error("rendering voice response failed", "error", err)
		s.renderClosed(w)
		return
	}
	writeXML(w, http.StatusOK, doc)
}

// logWebhookCall stores the webhook's call event through the same
// insert-or-ignore path the sync engine uses.
func (s *Server) logWebhookCall(r *http.Request) {
	sid := r.PostFormValue("CallSid")
	if sid == "" {
		return
	}

	duration, _ := strconv.Atoi(r.PostFormValue("Duration"))
	call := &models.CallLog{
		CallSID:    sid,
		Timestamp:  time.Now(),
		FromNumber: r.PostFormValue("From"),
		ToNumber:   r.PostFormValue("To"),
		Status:     r.PostFormValue("CallStatus"),
		Duration:   duration,
		Direction:  r.PostFormValue("Direction"),
	}
	if party := s.dir.Resolve(r.Context(), call.FromNumber); party != nil {
		id := party.ID
		call.PartyID = &id
		call.PartyKind = party.Kind
	}

	if _, err := s.store.Calls().Insert(r.Context(), call); err != nil {
		s.logger.Warn("webhook call logging failed", "call_sid", sid, "error", err)
	}
}

// handleSMS is the inbound SMS webhook. The gateway only acknowledges
// it: message rows come from the sync engine, whose provider timestamps
// key the composite dedupe. A webhook-time insert would carry the local
// receive time instead and the same message would land as a second row.
func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.Warn("malformed sms webhook", "error", err)
		s.renderEmptyMessage(w)
		return
	}

	s.logger.Info("sms webhook received",
		"message_sid", r.PostFormValue("MessageSid"),
		"from", r.PostFormValue("From"),
		"to", r.PostFormValue("To"),
	)

	s.renderEmptyMessage(w)
}

// renderClosed answers a voice webhook with the closed-office message.
func (s *Server) renderClosed(w http.ResponseWriter) {
	doc, err := s.renderer.RenderVoice(routing.PlayMessage{Text: s.cfg.ClosedMessage})
	if err != nil {
		// Rendering a bare Say cannot realistically fail; keep the
		// webhook contract anyway.
		writeXML(w, http.StatusOK, "<Response/>")
		return
	}
	writeXML(w, http.StatusOK, doc)
}

// renderEmptyMessage acknowledges an SMS webhook without replying.
func (s *Server) renderEmptyMessage(w http.ResponseWriter) {
	doc, err := s.renderer.RenderMessage("")
	if err != nil {
		writeXML(w, http.StatusOK, "<Response/>")
		return
	}
	writeXML(w, http.StatusOK, doc)
}
