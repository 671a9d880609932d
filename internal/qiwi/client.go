// Package qiwi is the service client: the authenticated request
// primitive, the resumable chunked-upload engine, and the folder/file
// management calls built on top of it. Authentication is delegated to a
// clerk.Client sharing the same cookie jar; every API call ensures a
// valid bearer token first.
package qiwi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fendintridena/qiwigg-go/internal/clerk"
)

// serviceURL is the production web origin; the API lives under /api.
const serviceURL = "https://qiwi.gg"

// ProgressFunc receives cumulative progress after every uploaded chunk,
// plus once before the first chunk (so a resumed upload reports its
// starting point). May be nil.
type ProgressFunc func(uploaded, total int64)

// Options configures a Client.
type Options struct {
	BaseURL    string // defaults to serviceURL
	Auth       *clerk.Client
	HTTPClient *http.Client // must share its cookie jar with Auth
	UserAgent  string
	Logger     *slog.Logger
}

// Client calls the service API. Not safe for concurrent use.
type Client struct {
	baseURL    string
	auth       *clerk.Client
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger

	// sleepFunc waits between chunk retry attempts. Defaults to
	// timeSleep. Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error

	// nowFunc supplies the finalize timestamp. Tests pin it.
	nowFunc func() time.Time
}

// New creates a service client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = serviceURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		auth:       opts.Auth,
		httpClient: opts.HTTPClient,
		userAgent:  opts.UserAgent,
		logger:     opts.Logger,
		sleepFunc:  timeSleep,
		nowFunc:    time.Now,
	}
}

// Auth exposes the underlying auth client for login bootstrapping.
func (c *Client) Auth() *clerk.Client {
	return c.auth
}

// successEnvelope is the flag every API response must carry.
type successEnvelope struct {
	Success bool `json:"success"`
}

// call executes one authenticated API request and returns the raw
// response body after validating the success envelope. A fresh bearer
// token is ensured first; the token travels as the session cookie, so
// there is nothing to add to the request itself.
func (c *Client) call(ctx context.Context, method, endpoint string, payload any, query url.Values) ([]byte, error) {
	if _, err := c.auth.EnsureToken(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + "/api/" + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("qiwi: encoding %s payload: %w", endpoint, err)
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("qiwi: creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qiwi: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("qiwi: reading %s response: %w", endpoint, err)
	}

	var env successEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ProtocolError{Op: "parsing " + endpoint + " response", Body: string(body)}
	}

	if !env.Success {
		return nil, &ProtocolError{Op: method + " " + endpoint, Body: string(body)}
	}

	c.logger.Debug("api call complete",
		slog.String("method", method),
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
	)

	return body, nil
}

// unmarshalResponse decodes an already-validated API response body,
// mapping decode failures to ProtocolError with the raw body attached.
func unmarshalResponse(body []byte, v any, endpoint string) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &ProtocolError{Op: "parsing " + endpoint + " response", Body: string(body)}
	}

	return nil
}

// timeSleep waits for the given duration or until the context is
// canceled. It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
