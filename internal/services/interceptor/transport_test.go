package interceptor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NordCoder/exsplit/internal/domain/auth"
)

type staticTokens struct {
	tok auth.Token
	err error
}

func (s staticTokens) AccessToken(context.Context) (auth.Token, error) { return s.tok, s.err }

func TestTransport_SetsBearer(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	hc := &http.Client{Transport: &Transport{Tokens: staticTokens{tok: auth.Token{Raw: "T1"}}}}
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/circles/c1", nil)
	require.NoError(t, err)

	resp, err := hc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Bearer T1", got)
	require.Empty(t, req.Header.Get("Authorization"))
}

func TestTransport_AuthFailureStopsRequest(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer srv.Close()

	failures := 0
	hc := &http.Client{Transport: &Transport{
		Tokens:        staticTokens{err: auth.ErrAuthentication},
		OnAuthFailure: func(context.Context, error) { failures++ },
	}}

	_, err := hc.Post(srv.URL+"/api/expenses", "application/json", strings.NewReader(`{}`))
	require.ErrorIs(t, err, auth.ErrAuthentication)
	require.Equal(t, 1, failures)
	require.Zero(t, hits)
}
