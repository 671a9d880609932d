package clerk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// Login authenticates with the configured email and password, replacing
// any existing session. The flow mirrors the provider's web client:
// fetch the environment (which primes the device cookie), submit the
// email, submit the password as the first factor, then adopt the newest
// active session from the resulting client state.
func (c *Client) Login(ctx context.Context) error {
	return c.login(ctx, "")
}

// login is Login with a provider-supplied message to surface when
// credentials are missing (e.g. the long_message of a signed_out error).
func (c *Client) login(ctx context.Context, message string) error {
	if c.email == "" || c.password == "" {
		if message == "" {
			message = "can't log in without email and password"
		}

		return fmt.Errorf("%w: %s", ErrAuthentication, message)
	}

	// Every attempt starts from a clean slate so a half-expired session
	// can never leak into the new one.
	c.jar.Clear()
	c.session = nil
	c.token = nil

	c.logger.Info("logging in", slog.String("email", c.email))

	if _, err := c.api(ctx, http.MethodGet, "environment", nil); err != nil {
		return err
	}

	attempt, err := c.submitIdentifier(ctx)
	if err != nil {
		return err
	}

	sessions, err := c.submitPassword(ctx, attempt)
	if err != nil {
		return err
	}

	session := newestActiveSession(sessions)
	if session == nil {
		return &ProtocolError{Op: "login", Body: "no active session in sign-in response"}
	}

	c.session = session

	c.logger.Info("login successful",
		slog.String("session_id", session.ID),
		slog.Time("expires_at", session.ExpiresAt),
	)

	if err := c.jar.Save(); err != nil {
		return fmt.Errorf("clerk: persisting cookies after login: %w", err)
	}

	return nil
}

// submitIdentifier posts the email and validates that the provider asks
// for exactly a password first factor: nothing verified yet, no second
// factor in play. Any deviation means the account needs a flow this
// client does not speak, which must fail loudly rather than half-login.
func (c *Client) submitIdentifier(ctx context.Context) (*signInAttempt, error) {
	body, err := c.api(ctx, http.MethodPost, "client/sign_ins", url.Values{
		"identifier": {c.email},
	})
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ProtocolError{Op: "sign-in email step", Body: string(body)}
	}

	var attempt signInAttempt
	if err := json.Unmarshal(env.Response, &attempt); err != nil {
		return nil, &ProtocolError{Op: "sign-in email step", Body: string(body)}
	}

	switch {
	case attempt.Object != "sign_in_attempt",
		attempt.Status != "needs_first_factor",
		isNull(attempt.SupportedFirstFactors),
		!isNull(attempt.SupportedSecondFactors),
		!isNull(attempt.FirstFactorVerification),
		!isNull(attempt.SecondFactorVerification):
		return nil, &ProtocolError{Op: "sign-in email step", Body: string(body)}
	}

	return &attempt, nil
}

// submitPassword completes the first factor and returns the session list
// from the provider's client state.
func (c *Client) submitPassword(ctx context.Context, attempt *signInAttempt) ([]sessionInfo, error) {
	path := fmt.Sprintf("client/sign_ins/%s/attempt_first_factor", attempt.ID)

	body, err := c.api(ctx, http.MethodPost, path, url.Values{
		"strategy": {"password"},
		"password": {c.password},
	})
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ProtocolError{Op: "sign-in password step", Body: string(body)}
	}

	var result signInAttempt
	if err := json.Unmarshal(env.Response, &result); err != nil {
		return nil, &ProtocolError{Op: "sign-in password step", Body: string(body)}
	}

	if result.Object != "sign_in_attempt" || result.Status != "complete" {
		return nil, &ProtocolError{Op: "sign-in password step", Body: string(body)}
	}

	var state clientState
	if err := json.Unmarshal(env.Client, &state); err != nil {
		return nil, &ProtocolError{Op: "sign-in password step", Body: string(body)}
	}

	return state.Sessions, nil
}

// newestActiveSession picks the active session with the latest expiry.
// Returns nil when none qualifies.
func newestActiveSession(sessions []sessionInfo) *Session {
	active := make([]sessionInfo, 0, len(sessions))

	for _, s := range sessions {
		if s.Status == "active" {
			active = append(active, s)
		}
	}

	if len(active) == 0 {
		return nil
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].ExpireAt != active[j].ExpireAt {
			return active[i].ExpireAt < active[j].ExpireAt
		}

		return active[i].ID < active[j].ID
	})

	newest := active[len(active)-1]

	return &Session{
		ID:        newest.ID,
		ExpiresAt: time.UnixMilli(newest.ExpireAt).Add(-expirySkew),
	}
}

// EnsureSession makes sure an unexpired session is active, logging in
// with the stored credentials when there is none. Fails with
// ErrAuthentication if no credentials were configured.
func (c *Client) EnsureSession(ctx context.Context) error {
	if c.session != nil && c.now().Before(c.session.ExpiresAt) {
		return nil
	}

	return c.login(ctx, "")
}

// sessionID returns the active session's ID, consulting the server when
// the local state has none (e.g. a fresh process with persisted cookies).
func (c *Client) sessionID(ctx context.Context) (string, error) {
	if c.session != nil {
		return c.session.ID, nil
	}

	if err := c.RefreshFromServer(ctx); err != nil {
		return "", err
	}

	return c.session.ID, nil
}

// RefreshFromServer re-derives the active session from the provider's
// current client state, logging in when the server reports no usable
// session. The original web client handled the not-logged-in case by
// recursing; here it is a single bounded retry, since a successful login
// already selects the newest session.
func (c *Client) RefreshFromServer(ctx context.Context) error {
	body, err := c.api(ctx, http.MethodGet, "client", nil)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &ProtocolError{Op: "GET client", Body: string(body)}
	}

	if isNull(env.Response) {
		return c.login(ctx, "not logged in")
	}

	var state clientState
	if err := json.Unmarshal(env.Response, &state); err != nil {
		return &ProtocolError{Op: "GET client", Body: string(body)}
	}

	session := newestActiveSession(state.Sessions)
	if session == nil {
		return c.login(ctx, "no active sessions found")
	}

	c.session = session

	c.logger.Debug("session refreshed from server",
		slog.String("session_id", session.ID),
		slog.Time("expires_at", session.ExpiresAt),
	)

	return nil
}

// Touch pings the active session, extending its server-side activity
// window the same way the web client does while open.
func (c *Client) Touch(ctx context.Context) error {
	id, err := c.sessionID(ctx)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("client/sessions/%s/touch", id)

	_, err = c.api(ctx, http.MethodPost, path, url.Values{
		"active_organization_id": {""},
	})

	return err
}
