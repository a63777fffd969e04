package kafka

import (
	"context"

	"github.com/NordCoder/exsplit/internal/domain/auth"
)

// SessionEvents publishes session lifecycle events keyed by user id.
type SessionEvents struct {
	p *Producer
}

func NewSessionEvents(p *Producer) *SessionEvents { return &SessionEvents{p: p} }

var _ auth.EventSink = (*SessionEvents)(nil)

func (e *SessionEvents) Publish(ctx context.Context, ev auth.Event) error {
	return e.p.PublishJSON(ctx, []byte(ev.UserID), ev)
}
