package draft

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/mbeckert/formwerk/internal/engine"
)

// Status is the auto-save indicator state shown next to the form.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// RemoteSaveFunc pushes a snapshot to the backend. Failures are surfaced
// only through the status indicator — the local save has already succeeded.
type RemoteSaveFunc func(ctx context.Context, snap Snapshot) error

const (
	defaultInterval    = 30 * time.Second
	defaultRevertAfter = 3 * time.Second
	defaultRetain      = 5
)

// Config assembles an AutoSaver.
type Config struct {
	Engine      *engine.Engine
	Store       Store
	StorageKey  string
	Interval    time.Duration  // tick period, default 30s
	RevertAfter time.Duration  // saved/error display time, default 3s
	Retain      int            // per-timestamp history keys to keep, default 5
	Remote      RemoteSaveFunc // optional
}

// AutoSaver snapshots an engine's data on three triggers: a fixed interval,
// context cancellation (the navigation-away analogue), and explicit SaveNow
// calls. Every trigger is a no-op while the engine is clean.
type AutoSaver struct {
	engine      *engine.Engine
	store       Store
	key         string
	interval    time.Duration
	revertAfter time.Duration
	retain      int
	remote      RemoteSaveFunc

	mu          sync.Mutex
	status      Status
	statusGen   int
	revertTimer *time.Timer
	watchers    []func(Status)

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an AutoSaver. Call Mount to restore an existing draft, Start
// to begin the interval loop, and Close when the session ends.
func New(cfg Config) *AutoSaver {
	a := &AutoSaver{
		engine:      cfg.Engine,
		store:       cfg.Store,
		key:         cfg.StorageKey,
		interval:    cfg.Interval,
		revertAfter: cfg.RevertAfter,
		retain:      cfg.Retain,
		remote:      cfg.Remote,
		status:      StatusIdle,
		done:        make(chan struct{}),
	}
	if a.interval <= 0 {
		a.interval = defaultInterval
	}
	if a.revertAfter <= 0 {
		a.revertAfter = defaultRevertAfter
	}
	if a.retain <= 0 {
		a.retain = defaultRetain
	}
	return a
}

// draftKey is the primary snapshot key; historyKey adds a sortable timestamp.
func (a *AutoSaver) draftKey() string { return a.key + "_draft" }

func (a *AutoSaver) historyKey(ts time.Time) string {
	return a.key + "_draft_" + strconv.FormatInt(ts.UnixNano(), 10)
}

// Mount loads a previously persisted draft and merges it into the engine.
// Draft values win over the engine's seed data — the inverse precedence from
// prefill. Having no draft is not an error.
func (a *AutoSaver) Mount(ctx context.Context) error {
	snap, err := a.store.Get(ctx, a.draftKey())
	if errors.Is(err, ErrNoDraft) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mounting draft: %w", err)
	}
	a.engine.ApplyDraft(snap.Data)
	return nil
}

// Start launches the interval loop. It runs until the context is cancelled
// (which flushes one final save) or Close is called.
func (a *AutoSaver) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := a.SaveNow(ctx); err != nil {
					log.Printf("draft: auto-save: %v", err)
				}
			case <-ctx.Done():
				a.Flush(context.Background())
				return
			case <-a.done:
				return
			}
		}
	}()
}

// SaveNow persists a snapshot if and only if the engine is dirty. The status
// machine always passes through saving before reaching saved or error; both
// terminal states revert to idle after the configured delay. A remote-save
// failure shows as error but does not undo the local save.
func (a *AutoSaver) SaveNow(ctx context.Context) error {
	if !a.engine.Dirty() {
		return nil
	}
	a.setStatus(StatusSaving)

	snap := Snapshot{Data: a.engine.State().Data, Timestamp: time.Now()}

	if err := a.store.Put(ctx, a.draftKey(), snap); err != nil {
		a.setStatus(StatusError)
		return fmt.Errorf("auto-save: %w", err)
	}

	// History and pruning are bookkeeping: failures are logged, the save
	// itself has already succeeded.
	if err := a.store.Put(ctx, a.historyKey(snap.Timestamp), snap); err != nil {
		log.Printf("draft: writing history snapshot: %v", err)
	}
	a.prune(ctx)

	a.engine.MarkSaved()

	if a.remote != nil {
		if err := a.remote(ctx, snap); err != nil {
			log.Printf("draft: remote save failed: %v", err)
			a.setStatus(StatusError)
			return nil
		}
	}

	a.setStatus(StatusSaved)
	return nil
}

// Flush performs a final save, logging rather than returning errors. Used on
// the navigation-away path where nobody can react to a failure anyway.
func (a *AutoSaver) Flush(ctx context.Context) {
	if err := a.SaveNow(ctx); err != nil {
		log.Printf("draft: flush: %v", err)
	}
}

// prune deletes per-timestamp history keys beyond the retention count,
// oldest first. Keys sort by their nanosecond suffix.
func (a *AutoSaver) prune(ctx context.Context) {
	keys, err := a.store.Keys(ctx, a.key+"_draft_")
	if err != nil {
		log.Printf("draft: listing history snapshots: %v", err)
		return
	}
	if len(keys) <= a.retain {
		return
	}
	for _, k := range keys[:len(keys)-a.retain] {
		if err := a.store.Delete(ctx, k); err != nil {
			log.Printf("draft: pruning %q: %v", k, err)
		}
	}
}

// Discard removes the primary draft, e.g. after successful submission.
func (a *AutoSaver) Discard(ctx context.Context) error {
	return a.store.Delete(ctx, a.draftKey())
}

// Status returns the current indicator state.
func (a *AutoSaver) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// WatchStatus registers an observer for status transitions. Observers are
// called synchronously and must not block.
func (a *AutoSaver) WatchStatus(fn func(Status)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchers = append(a.watchers, fn)
}

// Close tears down the interval loop and any pending status revert. After
// Close returns, the AutoSaver performs no further writes.
func (a *AutoSaver) Close() {
	a.stopOnce.Do(func() { close(a.done) })
	a.wg.Wait()

	a.mu.Lock()
	if a.revertTimer != nil {
		a.revertTimer.Stop()
		a.revertTimer = nil
	}
	a.mu.Unlock()
}

func (a *AutoSaver) setStatus(s Status) {
	a.mu.Lock()
	a.status = s
	a.statusGen++
	gen := a.statusGen
	if a.revertTimer != nil {
		a.revertTimer.Stop()
		a.revertTimer = nil
	}
	if s == StatusSaved || s == StatusError {
		a.revertTimer = time.AfterFunc(a.revertAfter, func() { a.revertToIdle(gen) })
	}
	watchers := append(([]func(Status))(nil), a.watchers...)
	a.mu.Unlock()

	for _, fn := range watchers {
		fn(s)
	}
}

// revertToIdle moves a terminal status back to idle unless a newer
// transition already happened.
func (a *AutoSaver) revertToIdle(gen int) {
	a.mu.Lock()
	if a.statusGen != gen {
		a.mu.Unlock()
		return
	}
	a.status = StatusIdle
	a.statusGen++
	watchers := append(([]func(Status))(nil), a.watchers...)
	a.mu.Unlock()

	for _, fn := range watchers {
		fn(StatusIdle)
	}
}
