// Package clerk implements the authentication half of the client: the
// password sign-in flow against the Clerk-hosted auth provider, lazy
// session renewal, and short-lived bearer-token derivation. The rest of
// the client only ever asks it to EnsureToken before an API call.
package clerk

import (
	"errors"
	"fmt"
)

// ErrAuthentication indicates that no usable credentials are available:
// login was attempted without an email/password pair, or the provider
// rejected the ones supplied. Check with errors.Is.
var ErrAuthentication = errors.New("clerk: authentication required")

// ProtocolError reports a provider response that violates the expected
// sign-in protocol shape. Body carries the raw response so the caller can
// see exactly what the provider sent.
type ProtocolError struct {
	Op   string
	Body string
}

func (e *ProtocolError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("clerk: unexpected response during %s", e.Op)
	}

	return fmt.Sprintf("clerk: unexpected response during %s: %s", e.Op, e.Body)
}
