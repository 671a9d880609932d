package jarfile

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u
}

func cookieNames(cookies []*http.Cookie) []string {
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}

	return names
}

func TestOpen_MissingFile(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "cookies.json"), nil)
	assert.Empty(t, j.Cookies(mustURL(t, "https://qiwi.gg/")))
}

func TestSetCookies_DomainScoping(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "cookies.json"), nil)

	j.SetCookies(mustURL(t, "https://clerk.qiwi.gg/v1/client"), []*http.Cookie{
		{Name: "__client", Value: "abc", Domain: ".clerk.qiwi.gg"},
	})
	j.Set(Entry{Name: "__session", Value: "jwt", Domain: "qiwi.gg"})

	// __session's parent domain covers the clerk subdomain too.
	got := j.Cookies(mustURL(t, "https://clerk.qiwi.gg/v1/environment"))
	assert.ElementsMatch(t, []string{"__client", "__session"}, cookieNames(got))

	// The clerk-scoped cookie must not leak to the apex host.
	got = j.Cookies(mustURL(t, "https://qiwi.gg/api/privateUpload"))
	assert.Equal(t, []string{"__session"}, cookieNames(got))

	// Suffix matching respects label boundaries.
	got = j.Cookies(mustURL(t, "https://notqiwi.gg/"))
	assert.Empty(t, got)
}

func TestSetCookies_ExpiryAndDeletion(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "cookies.json"), nil)
	u := mustURL(t, "https://qiwi.gg/")

	j.SetCookies(u, []*http.Cookie{
		{Name: "live", Value: "1", Expires: time.Now().Add(time.Hour)},
		{Name: "dead", Value: "1", Expires: time.Now().Add(-time.Hour)},
		{Name: "session-scoped", Value: "1"},
	})

	assert.ElementsMatch(t, []string{"live", "session-scoped"}, cookieNames(j.Cookies(u)))

	// Empty value removes an existing cookie.
	j.SetCookies(u, []*http.Cookie{{Name: "live", Value: ""}})
	assert.Equal(t, []string{"session-scoped"}, cookieNames(j.Cookies(u)))

	// MaxAge < 0 removes as well.
	j.SetCookies(u, []*http.Cookie{{Name: "session-scoped", Value: "x", MaxAge: -1}})
	assert.Empty(t, j.Cookies(u))
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")

	j := Open(path, nil)
	j.Set(Entry{
		Name:    "__client",
		Value:   "device-token",
		Domain:  "clerk.qiwi.gg",
		Path:    "/",
		Expires: time.Now().Add(24 * time.Hour),
		Secure:  true,
	})
	require.NoError(t, j.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded := Open(path, nil)
	got := reloaded.Cookies(mustURL(t, "https://clerk.qiwi.gg/v1/client"))
	require.Len(t, got, 1)
	assert.Equal(t, "device-token", got[0].Value)
}

func TestSave_DropsExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")

	j := Open(path, nil)
	j.Set(Entry{Name: "old", Value: "1", Domain: "qiwi.gg", Expires: time.Now().Add(-time.Minute)})
	require.NoError(t, j.Save())

	assert.Empty(t, Open(path, nil).Cookies(mustURL(t, "https://qiwi.gg/")))
}

func TestClear(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "cookies.json"), nil)
	j.Set(Entry{Name: "a", Value: "1", Domain: "qiwi.gg"})
	j.Clear()
	assert.Empty(t, j.Cookies(mustURL(t, "https://qiwi.gg/")))
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0o600))

	j := Open(path, nil)
	assert.Empty(t, j.Cookies(mustURL(t, "https://qiwi.gg/")))
}
