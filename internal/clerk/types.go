package clerk

import (
	"bytes"
	"encoding/json"
	"time"
)

// Session is the provider-side authenticated context the client operates
// under. ExpiresAt is already shifted two seconds earlier than the
// provider's stated value to avoid edge-of-expiry races.
type Session struct {
	ID        string
	ExpiresAt time.Time
}

// bearerToken caches one short-lived JWT together with its (skewed)
// expiry. Never requested more than once per validity window.
type bearerToken struct {
	value     string
	expiresAt time.Time
}

// envelope is the outer shape of every provider response. Response and
// Client stay raw because their contents differ per endpoint, and because
// "null" and "absent" must be distinguishable.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Client   json.RawMessage `json:"client"`
	Errors   []apiError      `json:"errors"`
}

type apiError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	LongMessage string `json:"long_message"`
}

// signInAttempt is the response object of the sign_ins endpoints. The
// factor fields stay raw: the protocol checks care only whether they are
// null, not what they contain.
type signInAttempt struct {
	Object                   string          `json:"object"`
	ID                       string          `json:"id"`
	Status                   string          `json:"status"`
	SupportedFirstFactors    json.RawMessage `json:"supported_first_factors"`
	SupportedSecondFactors   json.RawMessage `json:"supported_second_factors"`
	FirstFactorVerification  json.RawMessage `json:"first_factor_verification"`
	SecondFactorVerification json.RawMessage `json:"second_factor_verification"`
}

// clientState is the provider's client object, of which only the session
// list matters here.
type clientState struct {
	Sessions []sessionInfo `json:"sessions"`
}

type sessionInfo struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	ExpireAt int64  `json:"expire_at"` // unix milliseconds
}

// isNull reports whether a raw JSON field is absent or literal null.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
