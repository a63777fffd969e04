package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	tokens "github.com/NordCoder/exsplit/internal/auth"
	"github.com/NordCoder/exsplit/internal/domain/auth"
	"github.com/NordCoder/exsplit/internal/repository/userapi"
)

type Authenticator interface {
	Login(ctx context.Context, cr userapi.Credentials) (*userapi.LoginResponse, error)
	Register(ctx context.Context, cr userapi.Credentials) (*userapi.RegisterResponse, error)
}

type Opts struct {
	Logger *zap.Logger
	Events auth.EventSink
	Now    func() time.Time
	// Generation must be the one given to the token guard.
	Generation *auth.Generation
	// OnLoginRequired runs after a teardown caused by an authentication failure.
	OnLoginRequired func(ctx context.Context)
}

// Manager owns the token write path and the explicit session state.
type Manager struct {
	api   Authenticator
	store auth.CredentialStore
	opts  Opts
	log   *zap.Logger

	mu    sync.RWMutex
	state auth.State
}

func NewManager(api Authenticator, store auth.CredentialStore, o Opts) *Manager {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Events == nil {
		o.Events = NopSink{}
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.Generation == nil {
		o.Generation = &auth.Generation{}
	}
	return &Manager{api: api, store: store, opts: o, log: o.Logger.With(zap.String("component", "session"))}
}

func (m *Manager) State() auth.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) Login(ctx context.Context, email, password string) (auth.State, error) {
	resp, err := m.api.Login(ctx, userapi.Credentials{Email: email, Password: password})
	if err != nil {
		return auth.State{}, err
	}
	userID := ""
	if tok, err := tokens.Decode(resp.AccessToken); err == nil {
		userID = tok.Subject
	} else {
		m.log.Warn("login returned an undecodable access token", zap.Error(err))
	}
	return m.open(ctx, auth.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, userID, auth.EventLogin)
}

func (m *Manager) Register(ctx context.Context, email, password string) (auth.State, error) {
	resp, err := m.api.Register(ctx, userapi.Credentials{Email: email, Password: password})
	if err != nil {
		return auth.State{}, err
	}
	return m.open(ctx, auth.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, resp.UserID, auth.EventRegister)
}

func (m *Manager) open(ctx context.Context, pair auth.TokenPair, userID string, ev auth.EventType) (auth.State, error) {
	err := m.opts.Generation.Advance(func() error {
		if err := m.store.Set(ctx, auth.KeyAccessToken, pair.AccessToken); err != nil {
			return fmt.Errorf("store access token: %w", err)
		}
		if err := m.store.Set(ctx, auth.KeyRefreshToken, pair.RefreshToken); err != nil {
			return fmt.Errorf("store refresh token: %w", err)
		}
		return nil
	})
	if err != nil {
		return auth.State{}, err
	}

	st := auth.State{LoggedIn: true, UserID: userID}
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()

	m.log.Info("session opened", zap.String("user_id", userID), zap.String("event", string(ev)))
	m.publish(ctx, ev, userID)
	return st, nil
}

func (m *Manager) Logout(ctx context.Context) error {
	userID, err := m.close(ctx)
	m.publish(ctx, auth.EventLogout, userID)
	return err
}

// Teardown ends the session after an authentication failure and asks the user
// to log in again.
func (m *Manager) Teardown(ctx context.Context, cause error) {
	userID, err := m.close(ctx)
	if err != nil {
		m.log.Error("teardown: clear credentials", zap.Error(err))
	}
	m.log.Info("session expired", zap.String("user_id", userID), zap.NamedError("cause", cause))
	m.publish(ctx, auth.EventExpired, userID)
	if m.opts.OnLoginRequired != nil {
		m.opts.OnLoginRequired(ctx)
	}
}

func (m *Manager) close(ctx context.Context) (string, error) {
	m.mu.Lock()
	userID := m.state.UserID
	m.state = auth.State{}
	m.mu.Unlock()

	err := m.opts.Generation.Advance(func() error {
		return errors.Join(
			m.store.Remove(ctx, auth.KeyAccessToken),
			m.store.Remove(ctx, auth.KeyRefreshToken),
		)
	})
	if err != nil {
		return userID, fmt.Errorf("clear credentials: %w", err)
	}
	return userID, nil
}

// Restore rebuilds the state from stored credentials. The session counts as open
// while the refresh token is still usable.
func (m *Manager) Restore(ctx context.Context) auth.State {
	st := auth.State{}
	raw, err := m.store.Get(ctx, auth.KeyRefreshToken)
	if err == nil {
		if rt, err := tokens.Decode(raw); err == nil && rt.ValidAt(m.opts.Now(), auth.DefaultLeeway) {
			st = auth.State{LoggedIn: true, UserID: rt.Subject}
			if raw, err := m.store.Get(ctx, auth.KeyAccessToken); err == nil {
				if at, err := tokens.Decode(raw); err == nil && at.Subject != "" {
					st.UserID = at.Subject
				}
			}
		}
	} else if !errors.Is(err, auth.ErrNotFound) {
		m.log.Warn("restore: read refresh token", zap.Error(err))
	}

	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
	return st
}

func (m *Manager) publish(ctx context.Context, t auth.EventType, userID string) {
	ev := auth.Event{ID: uuid.NewString(), Type: t, UserID: userID, At: m.opts.Now()}
	if err := m.opts.Events.Publish(ctx, ev); err != nil {
		m.log.Warn("publish session event", zap.String("type", string(t)), zap.Error(err))
	}
}

type NopSink struct{}

func (NopSink) Publish(context.Context, auth.Event) error { return nil }
