package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/exsplit/internal/config/exsplit"
	"github.com/NordCoder/exsplit/internal/domain/auth"
	"github.com/NordCoder/exsplit/internal/obs/retry"
	"github.com/NordCoder/exsplit/internal/repository/kafka"
	"github.com/NordCoder/exsplit/internal/services/session"
)

// initEvents never fails: session events are best effort and a missing broker
// only costs a warning.
func initEvents(ctx context.Context, cfg *config.Config, log *zap.Logger) (auth.EventSink, func(context.Context) error) {
	if !cfg.Events.Enable {
		return session.NopSink{}, noClose
	}
	err := retry.Do(ctx, func(ctx context.Context) error {
		return kafka.EnsureTopic(ctx, cfg.Events.Brokers, kafka.TopicSpec{Name: cfg.Events.Topic}, log)
	}, retry.BackendPolicy("kafka", log))
	if err != nil {
		log.Warn("session events disabled", zap.Error(err))
		return session.NopSink{}, noClose
	}
	p := kafka.NewProducer(cfg.Events.Brokers, cfg.Events.Topic, log)
	return kafka.NewSessionEvents(p), func(context.Context) error { return p.Close() }
}
