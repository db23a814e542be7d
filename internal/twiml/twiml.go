// Package twiml renders routing directives into the provider's XML
// call-control markup. Rendering is a pure mapping from directive
// variant to markup; the connect timeout and failover message live here,
// not in the decision engine.
package twiml

import (
	"encoding/xml"
	"fmt"

	"github.com/dispatchgw/dispatchgw/internal/routing"
)

// connectTimeoutSeconds is how long a Dial to the operator client rings
// before the failover message plays.
const connectTimeoutSeconds = 20

// Renderer turns directives into TwiML documents.
type Renderer struct {
	// FallbackMessage is spoken when the connect attempt to the operator
	// times out without an answer.
	FallbackMessage string
}

type dialVerb struct {
	XMLName  xml.Name `xml:"Dial"`
	Timeout  int      `xml:"timeout,attr,omitempty"`
	CallerID string   `xml:"callerId,attr,omitempty"`
	Client   string   `xml:"Client,omitempty"`
	Number   string   `xml:"Number,omitempty"`
}

type sayVerb struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type messageVerb struct {
	XMLName xml.Name `xml:"Message"`
	Text    string   `xml:",chardata"`
}

// voiceResponse is a TwiML <Response> for voice webhooks. Verb order is
// significant: the provider executes Dial before the trailing Say.
type voiceResponse struct {
	XMLName xml.Name  `xml:"Response"`
	Dial    *dialVerb `xml:",omitempty"`
	Say     *sayVerb  `xml:",omitempty"`
}

// messagingResponse is a TwiML <Response> for SMS webhooks.
type messagingResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Message *messageVerb `xml:",omitempty"`
}

// RenderVoice renders a routing directive as a voice TwiML document.
func (r *Renderer) RenderVoice(d routing.Directive) (string, error) {
	var resp voiceResponse

	switch v := d.(type) {
	case routing.ConnectToOperator:
		// Ring the operator client; if nobody answers within the timeout
		// the provider falls through to the spoken message.
		resp.Dial = &dialVerb{
			Timeout: connectTimeoutSeconds,
			Client:  v.OperatorIdentity,
		}
		resp.Say = &sayVerb{Text: r.FallbackMessage}
	case routing.DialDestination:
		dial := &dialVerb{CallerID: v.CallerID}
		switch v.Kind {
		case routing.DestinationNumber:
			dial.Number = v.Destination
		case routing.DestinationClient:
			dial.Client = v.Destination
		default:
			return "", fmt.Errorf("unknown destination kind %q", v.Kind)
		}
		resp.Dial = dial
	case routing.PlayMessage:
		resp.Say = &sayVerb{Text: v.Text}
	default:
		return "", fmt.Errorf("unknown directive type %T", d)
	}

	return marshal(resp)
}

// RenderMessage renders an SMS webhook response. An empty reply produces
// an empty <Response/>, which acknowledges the message without replying.
func (r *Renderer) RenderMessage(reply string) (string, error) {
	var resp messagingResponse
	if reply != "" {
		resp.Message = &messageVerb{Text: reply}
	}
	return marshal(resp)
}

func marshal(v any) (string, error) {
	out, err := xml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling twiml: %w", err)
	}
	return xml.Header + string(out), nil
}
