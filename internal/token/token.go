// Package token mints provider access tokens for the operator's browser
// softphone. The token is a provider-format JWT carrying an identity and
// a voice grant; signing uses the API key secret, so the cryptography is
// entirely the provider's scheme.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// tokenTTL is how long a minted access token remains valid.
const tokenTTL = time.Hour

// Generator mints access tokens for the operator identity. The identity
// is the configured one: the routing engine connects inbound calls to
// that exact client name, so every token must register the softphone
// under it.
type Generator struct {
	accountSID  string
	apiKey      string
	apiSecret   string
	twimlAppSID string
	identity    string
	// nowFunc allows overriding the current time for testing.
	nowFunc func() time.Time
}

// NewGenerator creates a token generator for the given provider
// credentials and operator identity.
func NewGenerator(accountSID, apiKey, apiSecret, twimlAppSID, identity string) *Generator {
	return &Generator{
		accountSID:  accountSID,
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		twimlAppSID: twimlAppSID,
		identity:    identity,
		nowFunc:     time.Now,
	}
}

// Generate mints a one-hour access token with a voice grant that allows
// incoming calls and outgoing calls through the TwiML application.
func (g *Generator) Generate() (identity, signed string, err error) {
	identity = g.identity

	now := g.nowFunc()
	claims := jwt.MapClaims{
		"jti": g.apiKey + "-" + uuid.NewString(),
		"iss": g.apiKey,
		"sub": g.accountSID,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
		"grants": map[string]any{
			"identity": identity,
			"voice": map[string]any{
				"outgoing": map[string]any{
					"application_sid": g.twimlAppSID,
				},
				"incoming": map[string]any{
					"allow": true,
				},
			},
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	// The provider requires this content type on access tokens.
	tok.Header["cty"] = "twilio-fpa;v=1"

	signed, err = tok.SignedString([]byte(g.apiSecret))
	if err != nil {
		return "", "", fmt.Errorf("signing access token: %w", err)
	}
	return identity, signed, nil
}
