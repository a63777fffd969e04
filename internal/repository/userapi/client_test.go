package userapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/NordCoder/exsplit/internal/domain/auth"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", NewHTTPClient(HTTPConfig{Timeout: 2 * time.Second}), "exsplit-test", zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("/api", nil, "", nil)
	require.Error(t, err)
}

func TestLogin_OK(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, pathLogin, r.URL.Path)
		require.Equal(t, "exsplit-test", r.Header.Get("User-Agent"))

		var in Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, Credentials{Email: "a@b.c", Password: "pw"}, in)

		writeJSON(w, http.StatusOK, map[string]string{"accessToken": "A", "refreshToken": "R"})
	})

	out, err := c.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, &LoginResponse{AccessToken: "A", RefreshToken: "R"}, out)
}

func TestLogin_Unauthorized(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "bad credentials"})
	})

	_, err := c.Login(context.Background(), Credentials{Email: "a@b.c", Password: "nope"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "bad credentials", apiErr.Message)
}

func TestRegister_OK(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, pathRegister, r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]string{"userId": "u1", "accessToken": "A", "refreshToken": "R"})
	})

	out, err := c.Register(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "u1", out.UserID)
	require.Equal(t, "A", out.AccessToken)
	require.Equal(t, "R", out.RefreshToken)
}

func TestRefresh(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, pathRefresh, r.URL.Path)
			var in refreshRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			require.Equal(t, "R1", in.RefreshToken)
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "T2"})
		})
		tok, err := c.Refresh(context.Background(), "R1")
		require.NoError(t, err)
		require.Equal(t, "T2", tok)
	})

	t.Run("rejected", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh token expired"})
		})
		_, err := c.Refresh(context.Background(), "R1")
		require.ErrorIs(t, err, auth.ErrRefreshRejected)
		require.NotErrorIs(t, err, auth.ErrRefreshTransport)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, "refresh token expired", apiErr.Message)
	})

	t.Run("server error", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.Refresh(context.Background(), "R1")
		require.ErrorIs(t, err, auth.ErrRefreshTransport)
	})

	t.Run("empty token", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{})
		})
		_, err := c.Refresh(context.Background(), "R1")
		require.ErrorIs(t, err, auth.ErrRefreshTransport)
	})

	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()
		c, err := New(base, NewHTTPClient(HTTPConfig{Timeout: time.Second}), "", nil)
		require.NoError(t, err)

		_, err = c.Refresh(context.Background(), "R1")
		require.ErrorIs(t, err, auth.ErrRefreshTransport)
	})
}
