// Package eventbus provides an in-process pub/sub bus for session events.
// Handlers publish after the HTTP response is committed; subscribers run
// asynchronously in a single consumer goroutine, which keeps SQLite
// writers from racing each other.
package eventbus

import (
	"context"
	"log"
	"sync"

	"github.com/mbeckert/formwerk/internal/event"
)

// Handler processes one event. Implementations must tolerate calls from
// a goroutine other than the publisher's.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.Event) error {
	return f(ctx, evt)
}

// Bus fans events out to all subscribers, in subscription order, from a
// single consumer goroutine fed by a buffered channel.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan event.Event
	done        chan struct{}
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a Bus with the given channel buffer size.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		events: make(chan event.Event, bufSize),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a named handler. Call before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish hands an event to the bus without blocking. When the buffer is
// full the event is dropped with a warning; history is advisory, the
// request path must never stall on it.
func (b *Bus) Publish(evt event.Event) {
	select {
	case b.events <- evt:
	default:
		log.Printf("eventbus: buffer full, dropping %s for session %s", evt.Type, evt.SessionID)
	}
}

// Start launches the consumer goroutine. It runs until the context is
// cancelled, draining buffered events before exiting.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt := <-b.events:
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				for {
					select {
					case evt := <-b.events:
						b.dispatch(ctx, evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop waits for the consumer goroutine to drain and exit. Cancel the
// Start context first.
func (b *Bus) Stop() {
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt event.Event) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			log.Printf("eventbus: %s handler failed for %s: %v", s.name, evt.Type, err)
		}
	}
}
