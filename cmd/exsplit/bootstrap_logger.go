package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/exsplit/internal/config/exsplit"
	"github.com/NordCoder/exsplit/internal/obs"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.LoggerConfig())
}

func initOTel(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	o, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	return o.Shutdown, nil
}
