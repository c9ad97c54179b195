package eventbus

import (
	"context"
	"log"

	"github.com/mbeckert/formwerk/internal/event"
)

// LogConsumer logs every session event for observability.
type LogConsumer struct{}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.Event) error {
	log.Printf("event: %s [%s] session=%s %s", evt.Type, evt.Template, evt.SessionID, evt.Summary)
	return nil
}
