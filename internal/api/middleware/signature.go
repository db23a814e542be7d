package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"sort"
)

// signatureHeader carries the provider's webhook signature.
const signatureHeader = "X-Twilio-Signature"

// ValidateSignature returns middleware that rejects webhook requests
// whose provider signature does not verify. The expected signature is
// base64(HMAC-SHA1(url + sorted form params, authToken)), per the
// provider's documented scheme. baseURL is the externally visible base
// URL of this server, needed to reconstruct the signed URL behind a
// reverse proxy.
func ValidateSignature(authToken, baseURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}

			got := r.Header.Get(signatureHeader)
			want := computeSignature(authToken, baseURL+r.URL.RequestURI(), r.PostForm)

			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				slog.Warn("webhook signature validation failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// computeSignature builds the provider's signature base string: the full
// URL followed by each POST parameter name and value, names sorted
// alphabetically, then HMAC-SHA1 over it with the account auth token.
func computeSignature(authToken, url string, form map[string][]string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	base := url
	for _, k := range keys {
		for _, v := range form[k] {
			base += k + v
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
