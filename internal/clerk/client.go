package clerk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fendintridena/qiwigg-go/internal/jarfile"
)

// DefaultBaseURL is the production auth provider endpoint.
const DefaultBaseURL = "https://clerk.qiwi.gg/v1"

// jsVersion is pinned to the web client version the service deploys; the
// provider rejects requests without it.
const jsVersion = "4.60.1"

// expirySkew shifts every provider-stated expiry two seconds earlier so a
// credential is never presented at the very edge of its validity window.
const expirySkew = 2 * time.Second

// maxAuthAttempts bounds the transparent re-login cycle: one original
// attempt plus one retry after a signed_out response.
const maxAuthAttempts = 2

// signedOutCode is the provider error code that triggers re-login.
const signedOutCode = "signed_out"

const (
	clientCookieName  = "__client"
	sessionCookieName = "__session"

	// clientCookieTTL is a housekeeping date for the device cookie; the
	// provider rotates its value long before this.
	clientCookieTTL = 10 * 365 * 24 * time.Hour
)

// Options configures a Client.
type Options struct {
	BaseURL       string // defaults to DefaultBaseURL
	ServiceDomain string // domain the bearer cookie is installed on, e.g. "qiwi.gg"
	Email         string
	Password      string
	HTTPClient    *http.Client // must carry Jar as its CookieJar
	Jar           *jarfile.Jar
	UserAgent     string
	Logger        *slog.Logger
}

// Client owns the login state machine and the active session/token pair.
// State transitions are strictly monotonic: a refresh only ever moves an
// expiry forward, and every login attempt starts by clearing all state.
// Not safe for concurrent use; the upload pipeline is single-threaded.
type Client struct {
	baseURL       string
	serviceDomain string
	email         string
	password      string
	httpClient    *http.Client
	jar           *jarfile.Jar
	userAgent     string
	logger        *slog.Logger

	session *Session
	token   *bearerToken

	// nowFunc returns the current time. Tests override it to step through
	// expiry windows without sleeping.
	nowFunc func() time.Time
}

// New creates an auth client. The HTTP client's cookie jar must be the
// same Jar passed in Options, since the provider authenticates through
// cookies rather than headers.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.ServiceDomain == "" {
		opts.ServiceDomain = "qiwi.gg"
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		serviceDomain: opts.ServiceDomain,
		email:         opts.Email,
		password:      opts.Password,
		httpClient:    opts.HTTPClient,
		jar:           opts.Jar,
		userAgent:     opts.UserAgent,
		logger:        opts.Logger,
		nowFunc:       time.Now,
	}
}

func (c *Client) now() time.Time {
	return c.nowFunc()
}

// api executes one provider request. An expired local session forces a
// re-login first; a signed_out error response triggers exactly one
// transparent re-login-and-retry cycle. All other error responses fail
// with a ProtocolError carrying the raw error payload.
func (c *Client) api(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	if c.session != nil && c.now().After(c.session.ExpiresAt) {
		c.logger.Debug("session expired, logging in again",
			slog.String("session_id", c.session.ID),
		)

		if err := c.login(ctx, ""); err != nil {
			return nil, err
		}
	}

	for attempt := 1; ; attempt++ {
		body, env, err := c.doOnce(ctx, method, path, form)
		if err != nil {
			return nil, err
		}

		if len(env.Errors) == 0 {
			return body, nil
		}

		first := env.Errors[0]
		if first.Code == signedOutCode && attempt < maxAuthAttempts {
			c.logger.Warn("provider reports signed out, re-authenticating",
				slog.String("path", path),
			)

			if err := c.login(ctx, first.LongMessage); err != nil {
				return nil, err
			}

			continue
		}

		errPayload, marshalErr := json.Marshal(env.Errors)
		if marshalErr != nil {
			errPayload = body
		}

		return nil, &ProtocolError{
			Op:   method + " " + path,
			Body: string(errPayload),
		}
	}
}

// doOnce performs a single provider request and decodes the envelope.
func (c *Client) doOnce(ctx context.Context, method, path string, form url.Values) ([]byte, *envelope, error) {
	endpoint := fmt.Sprintf("%s/%s?_clerk_js_version=%s", c.baseURL, path, jsVersion)

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("clerk: creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("clerk: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("clerk: reading response for %s %s: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, &ProtocolError{Op: method + " " + path, Body: string(body)}
	}

	c.logger.Debug("provider call complete",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	return body, &env, nil
}

// SetClientCookie installs a provider device cookie obtained out of band
// (from a browser session) and persists the jar. This is the supported
// way to bootstrap without storing a password.
func (c *Client) SetClientCookie(value string) error {
	host := c.baseHost()

	c.jar.Set(jarfile.Entry{
		Name:     clientCookieName,
		Value:    value,
		Domain:   host,
		Path:     "/",
		Expires:  c.now().Add(clientCookieTTL),
		Secure:   true,
		HTTPOnly: true,
	})

	if err := c.jar.Save(); err != nil {
		return fmt.Errorf("clerk: persisting client cookie: %w", err)
	}

	return nil
}

// baseHost extracts the provider hostname for cookie scoping.
func (c *Client) baseHost() string {
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Hostname() == "" {
		return c.serviceDomain
	}

	return u.Hostname()
}
