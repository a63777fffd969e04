package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	tokens "github.com/NordCoder/exsplit/internal/auth"
)

var secret = []byte("test-secret")

type fakeAPI struct {
	t             *testing.T
	accessTTL     time.Duration
	refreshCalls  atomic.Int32
	lastAuthority atomic.Value
}

func (f *fakeAPI) issue(ttl time.Duration) string {
	now := time.Now()
	raw, err := tokens.Issue("user-42", now, now.Add(ttl), secret)
	require.NoError(f.t, err)
	return raw
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  f.issue(f.accessTTL),
			"refreshToken": f.issue(24 * time.Hour),
		})
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": f.issue(time.Hour)})
	})
	mux.HandleFunc("GET /api/groups", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuthority.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"g1"}]`))
	})
	return mux
}

type harness struct {
	t    *testing.T
	api  *fakeAPI
	base []string
}

func newHarness(t *testing.T, accessTTL time.Duration) *harness {
	api := &fakeAPI{t: t, accessTTL: accessTTL}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	t.Setenv("EXSPLIT_STORE_FILE_PATH", filepath.Join(t.TempDir(), "credentials.json"))
	return &harness{
		t:    t,
		api:  api,
		base: []string{"--config", "", "--api-url", srv.URL, "--store", "file", "--log-level", "error"},
	}
}

func (h *harness) run(stdin string, args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), append(append([]string{}, h.base...), args...), strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCLI_LoginTokenWhoamiLogout(t *testing.T) {
	h := newHarness(t, time.Hour)

	code, out, _ := h.run("", "login", "--email", "a@b.c", "--password", "secret")
	require.Equal(t, 0, code)
	require.Contains(t, out, "user-42")

	code, out, _ = h.run("", "token")
	require.Equal(t, 0, code)
	tok, err := tokens.Decode(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, "user-42", tok.Subject)
	require.Zero(t, h.api.refreshCalls.Load())

	code, out, _ = h.run("", "whoami")
	require.Equal(t, 0, code)
	require.Equal(t, "user-42\n", out)

	code, _, _ = h.run("", "logout")
	require.Equal(t, 0, code)

	code, _, errOut := h.run("", "token")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, loginHint)

	code, _, _ = h.run("", "whoami")
	require.Equal(t, 1, code)
}

func TestCLI_TokenRefreshesExpiredAccessToken(t *testing.T) {
	h := newHarness(t, -time.Minute)

	code, _, _ := h.run("secret\n", "login", "--email", "a@b.c")
	require.Equal(t, 0, code)

	code, out, _ := h.run("", "token")
	require.Equal(t, 0, code)
	require.EqualValues(t, 1, h.api.refreshCalls.Load())

	// the refreshed token was persisted, so no second refresh
	code, again, _ := h.run("", "token")
	require.Equal(t, 0, code)
	require.Equal(t, out, again)
	require.EqualValues(t, 1, h.api.refreshCalls.Load())
}

func TestCLI_CallAttachesBearer(t *testing.T) {
	h := newHarness(t, time.Hour)
	code, _, _ := h.run("", "login", "--email", "a@b.c", "--password", "secret")
	require.Equal(t, 0, code)

	code, out, _ := h.run("", "call", "get", "api/groups")
	require.Equal(t, 0, code)
	require.JSONEq(t, `[{"id":"g1"}]`, out)
	require.True(t, strings.HasPrefix(h.api.lastAuthority.Load().(string), "Bearer "))
}

func TestCLI_CallWithoutSession(t *testing.T) {
	h := newHarness(t, time.Hour)
	code, _, errOut := h.run("", "call", "GET", "/api/groups")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, loginHint)
	require.Nil(t, h.api.lastAuthority.Load())
}

func TestCLI_LoginRejected(t *testing.T) {
	h := newHarness(t, time.Hour)
	code, _, errOut := h.run("", "login", "--email", "a@b.c", "--password", "wrong")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "invalid credentials")
}

func TestCLI_Usage(t *testing.T) {
	h := newHarness(t, time.Hour)
	code, _, errOut := h.run("")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "commands:")

	code, _, _ = h.run("", "frobnicate")
	require.Equal(t, 2, code)

	code, _, _ = h.run("", "login")
	require.Equal(t, 2, code)
}

func TestProfilePath(t *testing.T) {
	require.Equal(t, "/x/credentials.json", profilePath("/x/credentials.json", "default"))
	require.Equal(t, "/x/credentials.work.json", profilePath("/x/credentials.json", "work"))
}
