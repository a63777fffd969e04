//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	tokens "github.com/NordCoder/exsplit/internal/auth"
	"github.com/NordCoder/exsplit/internal/domain/auth"
	"github.com/NordCoder/exsplit/internal/repository/memory"
	"github.com/NordCoder/exsplit/internal/repository/userapi"
	"github.com/NordCoder/exsplit/internal/services/guard"
	"github.com/NordCoder/exsplit/internal/services/interceptor"
	"github.com/NordCoder/exsplit/internal/services/session"
)

type cfg struct {
	APIBase string // http://localhost:3000
}

func loadCfg() cfg {
	return cfg{APIBase: getenv("E2E_API_BASE", "http://localhost:3000")}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

type env struct {
	store   *memory.Store
	guard   *guard.Guard
	session *session.Manager
	client  *http.Client
	expired int
}

func newEnv(t *testing.T, c cfg) *env {
	t.Helper()
	log := zaptest.NewLogger(t)
	hcfg := userapi.HTTPConfig{Timeout: 10 * time.Second}
	api, err := userapi.New(c.APIBase, userapi.NewHTTPClient(hcfg), "exsplit-e2e", log)
	require.NoError(t, err)

	e := &env{store: memory.New()}
	e.guard = guard.New(e.store, api, guard.Config{SingleFlight: true}, log)
	e.session = session.NewManager(api, e.store, session.Opts{
		Logger:          log,
		OnLoginRequired: func(context.Context) { e.expired++ },
	})
	e.client = &http.Client{
		Timeout:   10 * time.Second,
		Transport: &interceptor.Transport{Base: userapi.NewTransport(hcfg), Tokens: e.guard, OnAuthFailure: e.session.Teardown},
	}
	return e
}

func (e *env) get(t *testing.T, url string) int {
	t.Helper()
	resp, err := e.client.Get(url)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func TestE2E_RegisterRefreshAndExpire(t *testing.T) {
	c := loadCfg()
	e := newEnv(t, c)
	ctx := context.Background()

	email := fmt.Sprintf("e2e-%d@example.com", time.Now().UnixNano())
	st, err := e.session.Register(ctx, email, "supersecret")
	require.NoError(t, err)
	require.True(t, st.LoggedIn)

	st, err = e.session.Login(ctx, email, "supersecret")
	require.NoError(t, err)
	require.NotEmpty(t, st.UserID)

	circles := fmt.Sprintf("%s/api/users/%s/circles", c.APIBase, st.UserID)
	require.Equal(t, http.StatusOK, e.get(t, circles))

	// an access token that is about to expire forces a refresh round trip
	soon, err := tokens.Issue(st.UserID, time.Now(), time.Now().Add(5*time.Second), []byte("local"))
	require.NoError(t, err)
	require.NoError(t, e.store.Set(ctx, auth.KeyAccessToken, soon))
	tok, err := e.guard.AccessToken(ctx)
	require.NoError(t, err)
	require.NotEqual(t, soon, tok.Raw)
	require.Equal(t, http.StatusOK, e.get(t, circles))

	// with both tokens gone the request never leaves the process
	require.NoError(t, e.store.Remove(ctx, auth.KeyRefreshToken))
	require.NoError(t, e.store.Remove(ctx, auth.KeyAccessToken))
	require.Equal(t, 0, e.get(t, circles))
	require.Equal(t, 1, e.expired)
	require.False(t, e.session.State().LoggedIn)
}
