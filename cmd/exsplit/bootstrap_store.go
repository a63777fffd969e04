package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	config "github.com/NordCoder/exsplit/internal/config/exsplit"
	"github.com/NordCoder/exsplit/internal/domain/auth"
	"github.com/NordCoder/exsplit/internal/obs/retry"
	"github.com/NordCoder/exsplit/internal/repository/file"
	"github.com/NordCoder/exsplit/internal/repository/memory"
	pg "github.com/NordCoder/exsplit/internal/repository/postgres"
	redisstore "github.com/NordCoder/exsplit/internal/repository/redis"
)

func noClose(context.Context) error { return nil }

func initStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (auth.CredentialStore, func(context.Context) error, func(context.Context) error, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		log.Debug("credential store", zap.String("driver", "memory"))
		return memory.New(), nil, noClose, nil

	case config.StoreFile:
		path := profilePath(cfg.Store.File.Path, cfg.Profile)
		log.Debug("credential store", zap.String("driver", "file"), zap.String("path", path))
		return file.New(path, cfg.Store.File.Passphrase), nil, noClose, nil

	case config.StoreRedis:
		rdb, err := redisstore.NewClient(cfg.Store.Redis.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		s := redisstore.New(rdb, cfg.Store.Redis.Prefix, cfg.Profile)
		if err := retry.Do(ctx, s.Ping, retry.BackendPolicy("redis", log)); err != nil {
			_ = s.Close()
			return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return s, s.Ping, func(context.Context) error { return s.Close() }, nil

	case config.StorePostgres:
		db, err := pg.New(ctx, cfg.Store.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := retry.Do(ctx, db.Ping, retry.BackendPolicy("postgres", log)); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		return pg.NewCredentialRepo(db, cfg.Profile), db.Ping, func(context.Context) error { db.Close(); return nil }, nil
	}
	return nil, nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Store.Driver)
}

// profilePath keeps the default profile at path and puts other profiles next
// to it: credentials.json becomes credentials.work.json.
func profilePath(path, profile string) string {
	if profile == "" || profile == "default" {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + profile + ext
}
