// Package jarfile is a minimal persistent cookie jar. The auth provider
// keeps its browser-style credentials (the __client device cookie and the
// __session bearer cookie) in cookies, so the jar is what survives between
// CLI invocations. Cookies are stored as JSON with owner-only permissions
// and written atomically, like the rest of the on-disk state.
package jarfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	filePerms = 0o600
	dirPerms  = 0o700
)

// Entry is one persisted cookie.
type Entry struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

// Jar implements http.CookieJar with domain-suffix matching and disk
// persistence. Mutations are kept in memory until Save is called, so a
// sequence of auth steps costs one write. Safe for concurrent use.
type Jar struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]Entry // keyed by domain + "\x00" + name
}

// Open loads the jar at path. A missing file yields an empty jar; a file
// that cannot be parsed is logged and discarded, forcing a fresh login.
func Open(path string, logger *slog.Logger) *Jar {
	if logger == nil {
		logger = slog.Default()
	}

	j := &Jar{path: path, logger: logger, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return j
	}

	if err != nil {
		logger.Warn("cannot read cookie jar, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return j
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warn("corrupt cookie jar, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return j
	}

	for _, e := range entries {
		j.entries[e.Domain+"\x00"+e.Name] = e
	}

	return j
}

// Cookies returns the unexpired cookies matching the request host.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	host := u.Hostname()
	now := time.Now()

	var out []*http.Cookie

	for _, e := range j.entries {
		if !domainMatch(host, e.Domain) {
			continue
		}

		if !e.Expires.IsZero() && e.Expires.Before(now) {
			continue
		}

		out = append(out, &http.Cookie{Name: e.Name, Value: e.Value})
	}

	return out
}

// SetCookies records cookies from a response. Cookies without an explicit
// domain attribute are scoped to the request host. An empty value or an
// expiry in the past deletes the cookie, per RFC 6265.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, c := range cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			domain = u.Hostname()
		}

		key := domain + "\x00" + c.Name

		expired := !c.Expires.IsZero() && c.Expires.Before(time.Now())
		if c.MaxAge < 0 || expired || c.Value == "" {
			delete(j.entries, key)
			continue
		}

		expires := c.Expires
		if c.MaxAge > 0 {
			expires = time.Now().Add(time.Duration(c.MaxAge) * time.Second)
		}

		j.entries[key] = Entry{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   domain,
			Path:     c.Path,
			Expires:  expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
	}
}

// Set stores a single cookie directly, bypassing response parsing. Used
// to install credentials the client mints itself.
func (j *Jar) Set(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries[e.Domain+"\x00"+e.Name] = e
}

// Clear drops every cookie. The on-disk file is untouched until Save.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = make(map[string]Entry)
}

// Save writes the jar atomically: temp file in the same directory, then
// rename. Expired cookies are dropped on the way out.
func (j *Jar) Save() error {
	j.mu.Lock()

	now := time.Now()
	entries := make([]Entry, 0, len(j.entries))

	for _, e := range j.entries {
		if !e.Expires.IsZero() && e.Expires.Before(now) {
			continue
		}

		entries = append(entries, e)
	}

	j.mu.Unlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("jarfile: encoding: %w", err)
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return fmt.Errorf("jarfile: creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".cookies-*.tmp")
	if err != nil {
		return fmt.Errorf("jarfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, filePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("jarfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("jarfile: writing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jarfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, j.path); err != nil {
		return fmt.Errorf("jarfile: renaming: %w", err)
	}

	success = true

	return nil
}

// domainMatch reports whether host is covered by the cookie domain:
// exact match or a dot-boundary suffix (host "clerk.qiwi.gg" matches
// domain "qiwi.gg" but not "iwi.gg").
func domainMatch(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
