package auth

import (
	"errors"
	"time"
)

// Credential store keys.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// DefaultLeeway absorbs clock skew and in-flight latency when checking expiry.
const DefaultLeeway = 10 * time.Second

var (
	// ErrAuthentication is the only error the token guard returns to callers.
	// Callers are expected to tear the session down and send the user to login.
	ErrAuthentication = errors.New("no valid token, please log in again")

	ErrNotFound         = errors.New("credential not found")
	ErrDecode           = errors.New("malformed token")
	ErrRefreshRejected  = errors.New("refresh token rejected")
	ErrRefreshTransport = errors.New("refresh transport error")
)

// Token is a decoded bearer credential. Only the claims the client needs are kept.
type Token struct {
	Raw       string
	Subject   string
	ExpiresAt time.Time
}

// ValidAt reports whether the token is still usable at now with the given safety margin.
// A token expiring exactly at now+leeway is treated as expired.
func (t Token) ValidAt(now time.Time, leeway time.Duration) bool {
	return t.Raw != "" && t.ExpiresAt.After(now.Add(leeway))
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// State is the client-side view of the session. It is owned by the session manager
// and passed around explicitly.
type State struct {
	LoggedIn bool
	UserID   string
}

type EventType string

const (
	EventLogin    EventType = "session.login"
	EventRegister EventType = "session.register"
	EventLogout   EventType = "session.logout"
	EventExpired  EventType = "session.expired"
)

type Event struct {
	ID     string    `json:"id"`
	Type   EventType `json:"type"`
	UserID string    `json:"user_id,omitempty"`
	At     time.Time `json:"at"`
}
