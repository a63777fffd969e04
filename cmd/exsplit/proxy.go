package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/exsplit/internal/obs"
	"github.com/NordCoder/exsplit/internal/services/proxy"
)

func cmdProxy(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "proxy")
	addr := fs.String("addr", a.cfg.Proxy.Addr, "listen address")
	metricsAddr := fs.String("metrics-addr", a.cfg.Proxy.MetricsAddr, "metrics and health address, empty to disable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	upstream, err := url.Parse(a.cfg.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api base url: %w", err)
	}
	a.session.Restore(ctx)
	rt := a.authClient().Transport

	srv := &http.Server{
		Addr:              *addr,
		Handler:           proxy.NewHandler(upstream, rt, a.log),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	var ms *http.Server
	if *metricsAddr != "" {
		ms = obs.BootstrapMetricsServer(*metricsAddr, a.health, a.log)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("proxy listening", zap.String("addr", *addr), zap.String("upstream", upstream.String()))
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(a.stderr, "proxying http://%s -> %s\n", *addr, upstream)

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal")
	case runErr = <-errCh:
		if errors.Is(runErr, http.ErrServerClosed) {
			runErr = nil
		}
	}

	shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Proxy.GracefulTimeout)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	if ms != nil {
		_ = ms.Shutdown(shCtx)
	}
	return runErr
}
