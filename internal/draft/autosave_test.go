package draft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mbeckert/formwerk/internal/engine"
	"github.com/mbeckert/formwerk/internal/schema"
)

func testEngine(t *testing.T, seed map[string]any) *engine.Engine {
	t.Helper()
	s := &schema.Schema{Name: "doc"}
	s.AddField(&schema.FieldDef{Name: "name", Type: schema.FieldText})
	s.AddField(&schema.FieldDef{Name: "rent", Type: schema.FieldCurrency})

	e, err := engine.New(engine.Config{Schema: s, Seed: seed})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// failStore wraps a MemoryStore and fails writes on demand.
type failStore struct {
	*MemoryStore
	mu      sync.Mutex
	putErr  error
	putSeen int
}

func (f *failStore) Put(ctx context.Context, key string, snap Snapshot) error {
	f.mu.Lock()
	f.putSeen++
	err := f.putErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.Put(ctx, key, snap)
}

func TestSaveNow_CleanEngineIsNoop(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := New(Config{Engine: testEngine(t, nil), Store: store, StorageKey: "doc"})
	defer a.Close()

	if err := a.SaveNow(ctx); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("store has %d snapshots, want 0", store.Len())
	}
	if a.Status() != StatusIdle {
		t.Errorf("status = %q, want idle", a.Status())
	}
}

func TestSaveNow_PersistsAndMarksSaved(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	eng := testEngine(t, nil)
	a := New(Config{Engine: eng, Store: store, StorageKey: "doc", RevertAfter: time.Hour})
	defer a.Close()

	if _, err := eng.UpdateField("name", "Anna"); err != nil {
		t.Fatal(err)
	}

	if err := a.SaveNow(ctx); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}

	snap, err := store.Get(ctx, "doc_draft")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Data["name"] != "Anna" {
		t.Errorf("persisted name = %v", snap.Data["name"])
	}
	if snap.Timestamp.IsZero() {
		t.Error("snapshot timestamp is zero")
	}

	history, _ := store.Keys(ctx, "doc_draft_")
	if len(history) != 1 {
		t.Errorf("history keys = %v, want one", history)
	}

	if eng.Dirty() {
		t.Error("engine still dirty after save")
	}
	if a.Status() != StatusSaved {
		t.Errorf("status = %q, want saved", a.Status())
	}

	// A second call without new edits writes nothing.
	if err := a.SaveNow(ctx); err != nil {
		t.Fatal(err)
	}
	history, _ = store.Keys(ctx, "doc_draft_")
	if len(history) != 1 {
		t.Errorf("clean re-save added history: %v", history)
	}
}

func TestSaveNow_LocalFailure(t *testing.T) {
	ctx := context.Background()
	store := &failStore{MemoryStore: NewMemoryStore(), putErr: errors.New("disk full")}
	eng := testEngine(t, nil)
	a := New(Config{Engine: eng, Store: store, StorageKey: "doc", RevertAfter: time.Hour})
	defer a.Close()

	eng.UpdateField("name", "Anna")

	if err := a.SaveNow(ctx); err == nil {
		t.Fatal("expected error from failing store")
	}
	if a.Status() != StatusError {
		t.Errorf("status = %q, want error", a.Status())
	}
	if !eng.Dirty() {
		t.Error("engine must stay dirty after a failed save")
	}
}

func TestSaveNow_RemoteFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	eng := testEngine(t, nil)
	a := New(Config{
		Engine:      eng,
		Store:       store,
		StorageKey:  "doc",
		RevertAfter: time.Hour,
		Remote: func(context.Context, Snapshot) error {
			return errors.New("backend down")
		},
	})
	defer a.Close()

	eng.UpdateField("name", "Anna")

	if err := a.SaveNow(ctx); err != nil {
		t.Fatalf("remote failure must not fail the save: %v", err)
	}
	if _, err := store.Get(ctx, "doc_draft"); err != nil {
		t.Errorf("local draft missing: %v", err)
	}
	if a.Status() != StatusError {
		t.Errorf("status = %q, want error indicator", a.Status())
	}
	if eng.Dirty() {
		t.Error("local save succeeded, engine should be clean")
	}
}

func TestStatusMachine_PassesThroughSavingAndReverts(t *testing.T) {
	ctx := context.Background()
	eng := testEngine(t, nil)
	a := New(Config{Engine: eng, Store: NewMemoryStore(), StorageKey: "doc", RevertAfter: 20 * time.Millisecond})
	defer a.Close()

	var mu sync.Mutex
	var seen []Status
	a.WatchStatus(func(s Status) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	eng.UpdateField("name", "Anna")
	if err := a.SaveNow(ctx); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if a.Status() == StatusIdle {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("status never reverted to idle, still %q", a.Status())
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 || seen[0] != StatusSaving || seen[1] != StatusSaved || seen[2] != StatusIdle {
		t.Errorf("transitions = %v, want [saving saved idle]", seen)
	}
}

func TestPrune_KeepsNewestHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	eng := testEngine(t, nil)
	a := New(Config{Engine: eng, Store: store, StorageKey: "doc", Retain: 2, RevertAfter: time.Hour})
	defer a.Close()

	for i, name := range []string{"A", "B", "C", "D"} {
		eng.UpdateField("name", name)
		if err := a.SaveNow(ctx); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	history, _ := store.Keys(ctx, "doc_draft_")
	if len(history) != 2 {
		t.Fatalf("history = %v, want 2 entries", history)
	}
	// Nanosecond keys sort ascending, so the survivors are the newest two.
	newest, err := store.Get(ctx, history[1])
	if err != nil {
		t.Fatal(err)
	}
	if newest.Data["name"] != "D" {
		t.Errorf("newest history = %v, want D", newest.Data["name"])
	}
}

func TestMount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Put(ctx, "doc_draft", Snapshot{
		Data:      map[string]any{"name": "Draft Name"},
		Timestamp: time.Now(),
	})

	eng := testEngine(t, map[string]any{"name": "Seed Name", "rent": 500})
	a := New(Config{Engine: eng, Store: store, StorageKey: "doc"})
	defer a.Close()

	if err := a.Mount(ctx); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	st := eng.State()
	if st.Data["name"] != "Draft Name" {
		t.Errorf("name = %v, the draft must win over the seed", st.Data["name"])
	}
	if st.Data["rent"] != 500 {
		t.Errorf("rent = %v, fields outside the draft keep their seed", st.Data["rent"])
	}
}

func TestMount_NoDraftIsFine(t *testing.T) {
	eng := testEngine(t, map[string]any{"name": "Seed"})
	a := New(Config{Engine: eng, Store: NewMemoryStore(), StorageKey: "doc"})
	defer a.Close()

	if err := a.Mount(context.Background()); err != nil {
		t.Fatalf("Mount without a draft: %v", err)
	}
	if eng.State().Data["name"] != "Seed" {
		t.Error("seed data changed")
	}
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	eng := testEngine(t, nil)
	a := New(Config{Engine: eng, Store: store, StorageKey: "doc", RevertAfter: time.Hour})
	defer a.Close()

	eng.UpdateField("name", "Anna")
	a.SaveNow(ctx)

	if err := a.Discard(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "doc_draft"); !errors.Is(err, ErrNoDraft) {
		t.Errorf("Get after Discard = %v, want ErrNoDraft", err)
	}
	history, _ := store.Keys(ctx, "doc_draft_")
	if len(history) == 0 {
		t.Error("Discard must leave history snapshots alone")
	}
}

func TestStart_IntervalSaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemoryStore()
	eng := testEngine(t, nil)
	a := New(Config{Engine: eng, Store: store, StorageKey: "doc", Interval: 10 * time.Millisecond, RevertAfter: time.Hour})
	a.Start(ctx)
	defer a.Close()

	eng.UpdateField("name", "Anna")

	deadline := time.After(2 * time.Second)
	for {
		if _, err := store.Get(context.Background(), "doc_draft"); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("interval save never happened")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestClose_Idempotent(t *testing.T) {
	a := New(Config{Engine: testEngine(t, nil), Store: NewMemoryStore(), StorageKey: "doc"})
	a.Start(context.Background())
	a.Close()
	a.Close()
}
