// Package interceptor attaches bearer tokens to outgoing API requests.
package interceptor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/NordCoder/exsplit/internal/domain/auth"
)

type TokenSource interface {
	AccessToken(ctx context.Context) (auth.Token, error)
}

// Transport sets "Authorization: Bearer <token>" on every request. When no token
// can be obtained the request is not sent. OnAuthFailure runs only for
// auth.ErrAuthentication; a caller whose context ended just gets ctx's error.
type Transport struct {
	Base          http.RoundTripper
	Tokens        TokenSource
	OnAuthFailure func(ctx context.Context, err error)
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	tok, err := t.Tokens.AccessToken(ctx)
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		if errors.Is(err, auth.ErrAuthentication) && t.OnAuthFailure != nil {
			t.OnAuthFailure(ctx, err)
		}
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}

	r := req.Clone(ctx)
	r.Header.Set("Authorization", "Bearer "+tok.Raw)
	return t.base().RoundTrip(r)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
