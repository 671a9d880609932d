package clerk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fendintridena/qiwigg-go/internal/jarfile"
)

// EnsureToken returns a valid bearer token for the service API,
// requesting a fresh one from the provider only when the cached token has
// expired. The token is simultaneously installed as the service's session
// cookie, which is how the API actually authenticates requests.
func (c *Client) EnsureToken(ctx context.Context) (string, error) {
	if c.token != nil && c.now().Before(c.token.expiresAt) {
		return c.token.value, nil
	}

	id, err := c.sessionID(ctx)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("client/sessions/%s/tokens", id)

	body, err := c.api(ctx, http.MethodPost, path, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		JWT string `json:"jwt"`
	}

	if err := json.Unmarshal(body, &resp); err != nil || resp.JWT == "" {
		return "", &ProtocolError{Op: "token request", Body: string(body)}
	}

	expiry, err := jwtExpiry(resp.JWT)
	if err != nil {
		return "", err
	}

	expiry = expiry.Add(-expirySkew)

	c.token = &bearerToken{value: resp.JWT, expiresAt: expiry}

	c.jar.Set(jarfile.Entry{
		Name:    sessionCookieName,
		Value:   resp.JWT,
		Domain:  c.serviceDomain,
		Path:    "/",
		Expires: expiry,
		Secure:  true,
	})

	c.logger.Debug("bearer token renewed",
		slog.String("session_id", id),
		slog.Time("expires_at", expiry),
	)

	return resp.JWT, nil
}

// jwtExpiry extracts the exp claim from a JWT's payload segment. The
// signature is not verified; the client only needs to know when to ask
// for a new token.
func jwtExpiry(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return time.Time{}, &ProtocolError{Op: "token parse", Body: "token has no payload segment"}
	}

	// Tolerate both padded and unpadded payload encodings.
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return time.Time{}, &ProtocolError{Op: "token parse", Body: err.Error()}
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}

	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == 0 {
		return time.Time{}, &ProtocolError{Op: "token parse", Body: string(payload)}
	}

	return time.Unix(claims.Exp, 0), nil
}
