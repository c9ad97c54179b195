package history

import (
	"context"

	"github.com/mbeckert/formwerk/internal/event"
)

// Recorder subscribes to the event bus and writes every session event
// into the history store.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) HandleEvent(ctx context.Context, evt event.Event) error {
	return r.store.Append(ctx, []Entry{FromEvent(evt)})
}
