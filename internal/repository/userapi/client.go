// Package userapi talks to the exsplit user service: login, register and the
// refresh operation used by the token guard.
package userapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/NordCoder/exsplit/internal/domain/auth"
)

const (
	pathLogin    = "/api/auth/login"
	pathRegister = "/api/auth/register"
	pathRefresh  = "/api/auth/refresh"

	maxErrorBody = 64 << 10
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RegisterResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// APIError is a non-2xx answer from the service. Message comes from the
// {"message": ...} body when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

type Client struct {
	base *url.URL
	hc   *http.Client
	ua   string
	log  *zap.Logger
}

func New(baseURL string, hc *http.Client, userAgent string, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse base url: %q is not absolute", baseURL)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{base: u, hc: hc, ua: userAgent, log: log.With(zap.String("component", "userapi"))}, nil
}

func (c *Client) Login(ctx context.Context, cr Credentials) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.post(ctx, pathLogin, cr, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, errors.New("login: response without tokens")
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, cr Credentials) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.post(ctx, pathRegister, cr, &out); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, errors.New("register: response without tokens")
	}
	return &out, nil
}

// Refresh implements auth.Refresher. A 4xx answer wraps auth.ErrRefreshRejected,
// anything else wraps auth.ErrRefreshTransport.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var out refreshResponse
	err := c.post(ctx, pathRefresh, refreshRequest{RefreshToken: refreshToken}, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			return "", fmt.Errorf("%w: %w", auth.ErrRefreshRejected, err)
		}
		return "", fmt.Errorf("%w: %w", auth.ErrRefreshTransport, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: response without accessToken", auth.ErrRefreshTransport)
	}
	return out.AccessToken, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) == nil {
			apiErr.Message = msg.Message
		}
		c.log.Debug("api error", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
