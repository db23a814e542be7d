// Package routing decides how each inbound call webhook is handled:
// connect the caller to the operator's client, dial an outbound
// destination with the gateway's caller ID, or play a scripted message.
// The decision is a pure function over the webhook payload, the current
// time, operator presence, and static config.
package routing

import (
	"regexp"
	"time"
)

// DestinationKind classifies an outbound dial target.
type DestinationKind string

const (
	// DestinationNumber dials a PSTN phone number.
	DestinationNumber DestinationKind = "number"
	// DestinationClient dials a registered software client by name.
	DestinationClient DestinationKind = "client"
)

// Directive is the routing decision for one inbound webhook. Exactly one
// of the three variants is produced per decision; the renderer maps each
// variant to its call-control markup.
type Directive interface {
	directive()
}

// ConnectToOperator routes the caller to the operator's registered
// client. The renderer attaches the connect timeout and the spoken
// fallback that plays if the operator does not answer.
type ConnectToOperator struct {
	OperatorIdentity string
}

// DialDestination proxies an outgoing call to a number or named client,
// presenting the gateway's number as caller ID.
type DialDestination struct {
	Destination string
	Kind        DestinationKind
	CallerID    string
}

// PlayMessage speaks a scripted message to the caller.
type PlayMessage struct {
	Text string
}

func (ConnectToOperator) directive() {}
func (DialDestination) directive()   {}
func (PlayMessage) directive()       {}

// Request is the decision-relevant slice of an inbound call webhook.
type Request struct {
	To        string
	From      string
	Direction string
}

// Config is the static routing configuration. The engine assumes it is
// complete; missing values are rejected at process startup, not here.
type Config struct {
	OperatorNumber   string
	OperatorIdentity string
	// Business hours as a half-open local-time interval [StartHour, EndHour).
	StartHour int
	EndHour   int
	// ClosedMessage is spoken when the call cannot be routed.
	ClosedMessage string
}

// phoneNumberPattern accepts digits, "+", "-", "(", ")" and spaces.
// Anything else marks the destination as a named client. A client name
// consisting only of digits is therefore classified as a number; that
// ambiguity is long-standing inherited behavior and is kept until a
// product decision changes it.
var phoneNumberPattern = regexp.MustCompile(`^[0-9+\-() ]+$`)

// IsPhoneNumber reports whether the destination string has the syntactic
// shape of a phone number.
func IsPhoneNumber(s string) bool {
	return phoneNumberPattern.MatchString(s)
}

// Decide evaluates the routing rules in order and returns exactly one
// directive. The evaluation order is part of the contract:
//
//  1. A call to the gateway's own number connects to the operator,
//     unless the operator is absent and the office is closed, in which
//     case the closed message plays.
//  2. Any other non-empty destination is an outgoing call proxied with
//     the gateway's caller ID, dialed as a number or a client depending
//     on its shape.
//  3. With no usable destination, the closed message plays.
//
// Decide never fails for well-formed input.
func Decide(req Request, now time.Time, operatorPresent bool, cfg Config) Directive {
	if req.To == cfg.OperatorNumber {
		if !operatorPresent && !withinBusinessHours(now, cfg.StartHour, cfg.EndHour) {
			return PlayMessage{Text: cfg.ClosedMessage}
		}
		return ConnectToOperator{OperatorIdentity: cfg.OperatorIdentity}
	}

	if req.To != "" {
		kind := DestinationClient
		if IsPhoneNumber(req.To) {
			kind = DestinationNumber
		}
		return DialDestination{
			Destination: req.To,
			Kind:        kind,
			CallerID:    cfg.OperatorNumber,
		}
	}

	return PlayMessage{Text: cfg.ClosedMessage}
}

// withinBusinessHours reports whether the local hour falls inside the
// half-open interval [startHour, endHour). The end hour is exclusive.
func withinBusinessHours(now time.Time, startHour, endHour int) bool {
	h := now.Hour()
	return h >= startHour && h < endHour
}
