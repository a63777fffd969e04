package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// BackendPolicy waits for a credential store backend or broker to come up at
// startup. It is never used around the refresh operation, which runs at most once.
func BackendPolicy(name string, log *zap.Logger) Policy {
	return Policy{
		Name:     name,
		Attempts: 5,
		Backoff:  ExpoJitter{Base: 250 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("backend not ready", zap.String("backend", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("backend unavailable", zap.String("backend", name), zap.Error(err))
			}
		},
	}
}
