package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	config "github.com/NordCoder/exsplit/internal/config/exsplit"
	"github.com/NordCoder/exsplit/internal/domain/auth"
	"github.com/NordCoder/exsplit/internal/repository/userapi"
	"github.com/NordCoder/exsplit/internal/services/guard"
	"github.com/NordCoder/exsplit/internal/services/interceptor"
	"github.com/NordCoder/exsplit/internal/services/session"
)

type app struct {
	cfg    *config.Config
	log    *zap.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	store   auth.CredentialStore
	health  func(context.Context) error
	base    http.RoundTripper
	api     *userapi.Client
	guard   *guard.Guard
	session *session.Manager

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	logger, err := initLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{cfg: cfg, log: logger, stdin: stdin, stdout: stdout, stderr: stderr}
	a.closers = append(a.closers, func(context.Context) error { _ = logger.Sync(); return nil })

	otelShutdown, err := initOTel(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("otel: %w", err)
	}
	a.closers = append(a.closers, otelShutdown)

	store, health, closeStore, err := initStore(ctx, cfg, logger)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("credential store: %w", err)
	}
	a.store, a.health = store, health
	a.closers = append(a.closers, closeStore)

	events, closeEvents := initEvents(ctx, cfg, logger)
	a.closers = append(a.closers, closeEvents)

	hcfg := userapi.HTTPConfig{Timeout: cfg.API.Timeout, InsecureSkipTLS: cfg.API.InsecureSkipTLS}
	a.base = userapi.NewTransport(hcfg)
	a.api, err = userapi.New(cfg.API.BaseURL, userapi.NewHTTPClient(hcfg), cfg.API.UserAgent, logger)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("api client: %w", err)
	}

	gen := &auth.Generation{}
	a.guard = guard.New(store, a.api, guard.Config{
		Leeway:       cfg.Auth.Leeway,
		SingleFlight: cfg.Auth.SingleFlight,
		Generation:   gen,
	}, logger)
	a.session = session.NewManager(a.api, store, session.Opts{
		Logger:     logger,
		Events:     events,
		Generation: gen,
		OnLoginRequired: func(context.Context) {
			fmt.Fprintln(a.stderr, loginHint)
		},
	})
	return a, nil
}

// authClient sends requests with a bearer token from the guard; an
// authentication failure tears the session down.
func (a *app) authClient() *http.Client {
	return &http.Client{
		Timeout: a.cfg.API.Timeout,
		Transport: &interceptor.Transport{
			Base:          a.base,
			Tokens:        a.guard,
			OnAuthFailure: a.session.Teardown,
		},
	}
}

func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("shutdown", zap.Error(err))
		}
	}
	a.closers = nil
}
