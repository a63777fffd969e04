// Package guard produces a currently valid access token for outgoing requests.
//
// The guard reads the access token from the credential store and returns it while
// it is outside the expiry leeway. Otherwise it exchanges the stored refresh token
// for a new access token (once per call), persists it and returns it. Every failure
// is logged and reported to the caller as auth.ErrAuthentication, unless the
// caller's context ended first.
package guard

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	tokens "github.com/NordCoder/exsplit/internal/auth"
	"github.com/NordCoder/exsplit/internal/domain/auth"
	"github.com/NordCoder/exsplit/internal/obs"
)

type Config struct {
	Leeway       time.Duration
	Now          func() time.Time
	SingleFlight bool
	// Generation is shared with the session manager so that a refresh finishing
	// after logout or teardown does not write its token back.
	Generation *auth.Generation
}

type Guard struct {
	store     auth.CredentialStore
	refresher auth.Refresher
	cfg       Config
	log       *zap.Logger
	group     singleflight.Group
}

func New(store auth.CredentialStore, refresher auth.Refresher, cfg Config, log *zap.Logger) *Guard {
	if cfg.Leeway <= 0 {
		cfg.Leeway = auth.DefaultLeeway
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Generation == nil {
		cfg.Generation = &auth.Generation{}
	}
	return &Guard{
		store:     store,
		refresher: refresher,
		cfg:       cfg,
		log:       log.With(zap.String("component", "guard")),
	}
}

// AccessToken returns a token valid for at least the configured leeway.
// It fails with auth.ErrAuthentication, or with ctx.Err() when the caller gave
// up before an answer was known. Only the former means the session is over.
func (g *Guard) AccessToken(ctx context.Context) (auth.Token, error) {
	ctx, span := otel.Tracer("guard").Start(ctx, "guard.AccessToken")
	defer span.End()
	log := obs.WithTrace(ctx, g.log)
	gen := g.cfg.Generation.Current()

	if tok, ok := g.read(ctx, log, auth.KeyAccessToken); ok && tok.ValidAt(g.cfg.Now(), g.cfg.Leeway) {
		tokenRequests.WithLabelValues("cached").Inc()
		span.SetAttributes(attribute.String("guard.result", "cached"))
		return tok, nil
	}

	rt, ok := g.read(ctx, log, auth.KeyRefreshToken)
	if !ok || !rt.ValidAt(g.cfg.Now(), g.cfg.Leeway) {
		log.Info("no usable refresh token", zap.Bool("present", ok))
		return g.fail(ctx, span, nil)
	}

	tok, err := g.refreshOnce(ctx, log, rt.Raw, gen)
	if err != nil {
		return g.fail(ctx, span, err)
	}
	tokenRequests.WithLabelValues("refreshed").Inc()
	span.SetAttributes(attribute.String("guard.result", "refreshed"))
	return tok, nil
}

func (g *Guard) fail(ctx context.Context, span trace.Span, cause error) (auth.Token, error) {
	if err := ctx.Err(); err != nil {
		tokenRequests.WithLabelValues("cancelled").Inc()
		span.SetAttributes(attribute.String("guard.result", "cancelled"))
		span.SetStatus(codes.Error, err.Error())
		return auth.Token{}, err
	}
	tokenRequests.WithLabelValues("failed").Inc()
	span.SetAttributes(attribute.String("guard.result", "failed"))
	msg := auth.ErrAuthentication.Error()
	if cause != nil {
		msg = cause.Error()
	}
	span.SetStatus(codes.Error, msg)
	return auth.Token{}, auth.ErrAuthentication
}

// read folds every failure (missing key, store error, decode error) into "absent".
func (g *Guard) read(ctx context.Context, log *zap.Logger, key string) (auth.Token, bool) {
	raw, err := g.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			log.Warn("credential store read failed", zap.String("key", key), zap.Error(err))
		}
		return auth.Token{}, false
	}
	tok, err := tokens.Decode(raw)
	if err != nil {
		log.Warn("stored token is malformed", zap.String("key", key), zap.Error(err))
		return auth.Token{}, false
	}
	return tok, true
}

func (g *Guard) refreshOnce(ctx context.Context, log *zap.Logger, refreshToken string, gen uint64) (auth.Token, error) {
	if !g.cfg.SingleFlight {
		return g.refresh(ctx, log, refreshToken, gen)
	}

	// The shared call must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	ch := g.group.DoChan(refreshToken, func() (any, error) {
		return g.refresh(shared, log, refreshToken, gen)
	})
	select {
	case <-ctx.Done():
		log.Info("caller gave up waiting for refresh", zap.Error(ctx.Err()))
		return auth.Token{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			refreshShared.Inc()
		}
		if res.Err != nil {
			return auth.Token{}, res.Err
		}
		return res.Val.(auth.Token), nil
	}
}

func (g *Guard) refresh(ctx context.Context, log *zap.Logger, refreshToken string, gen uint64) (auth.Token, error) {
	ctx, span := otel.Tracer("guard").Start(ctx, "guard.refresh")
	defer span.End()

	start := time.Now()
	raw, err := g.refresher.Refresh(ctx, refreshToken)
	refreshLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := "transport"
		if errors.Is(err, auth.ErrRefreshRejected) {
			outcome = "rejected"
		}
		refreshOutcomes.WithLabelValues(outcome).Inc()
		span.SetStatus(codes.Error, err.Error())
		log.Warn("refresh failed", zap.String("outcome", outcome), zap.Error(err))
		return auth.Token{}, err
	}

	// The server's answer is authoritative; claims are only read when present.
	tok, err := tokens.Decode(raw)
	if err != nil {
		log.Warn("refreshed access token has no readable claims", zap.Error(err))
		tok = auth.Token{Raw: raw}
	}

	err = g.cfg.Generation.Commit(gen, func() error {
		return g.store.Set(ctx, auth.KeyAccessToken, raw)
	})
	switch {
	case errors.Is(err, auth.ErrSessionChanged):
		refreshOutcomes.WithLabelValues("superseded").Inc()
		span.SetStatus(codes.Error, err.Error())
		log.Info("session changed while refreshing, result dropped")
		return auth.Token{}, err
	case err != nil:
		log.Error("persist refreshed access token", zap.Error(err))
	}
	refreshOutcomes.WithLabelValues("ok").Inc()
	log.Debug("access token refreshed", zap.String("sub", tok.Subject), zap.Time("exp", tok.ExpiresAt))
	return tok, nil
}
