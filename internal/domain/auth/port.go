package auth

import "context"

// CredentialStore is a persistent key-value store holding the token strings.
// Get returns ErrNotFound for absent keys; Remove of an absent key is not an error.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Refresher exchanges a refresh token for a new access token.
// Errors wrap ErrRefreshRejected or ErrRefreshTransport.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}
