package persistence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-boarding/pkg/notify"
	"github.com/goliatone/go-boarding/pkg/persistence"
	"github.com/goliatone/go-boarding/pkg/record"
	"github.com/goliatone/go-boarding/pkg/schema"
	"github.com/goliatone/go-boarding/pkg/testsupport"
)

type brokenStore struct{}

func (brokenStore) Save(context.Context, string, []byte) error {
	return errors.New("connection reset")
}

func (brokenStore) Load(context.Context, string) ([]byte, error) {
	return []byte(`{not json`), nil
}

func (brokenStore) Clear(context.Context, string) error {
	return errors.New("connection reset")
}

func newRecord(t *testing.T) *record.Store {
	t.Helper()
	s, err := schema.Default()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return record.New(s)
}

func TestAdapter_SaveThenReloadInNewSession(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewSealedStore(persistence.NewMemoryStore())
	notes := &notify.Recorder{}
	adapter := persistence.NewAdapter(store, persistence.WithNotifier(notes))

	first := newRecord(t)
	first.Load(testsupport.ValidRecord())
	if err := adapter.Save(ctx, "dev-1", first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := newRecord(t)
	found, err := adapter.Load(ctx, "dev-1", second)
	if err != nil || !found {
		t.Fatalf("load = %v, %v", found, err)
	}
	if diff := cmp.Diff(first.Snapshot(), second.Snapshot()); diff != "" {
		t.Fatalf("reloaded record mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]notify.Notification{persistence.SavedNotice}, notes.Drain()); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestAdapter_LoadMissingIsNotAnError(t *testing.T) {
	adapter := persistence.NewAdapter(persistence.NewMemoryStore())
	rec := newRecord(t)
	before := rec.Snapshot()

	found, err := adapter.Load(context.Background(), "nobody", rec)
	if err != nil || found {
		t.Fatalf("load = %v, %v", found, err)
	}
	if diff := cmp.Diff(before, rec.Snapshot()); diff != "" {
		t.Fatalf("record changed (-want +got):\n%s", diff)
	}
}

func TestAdapter_FailuresKeepInMemoryState(t *testing.T) {
	ctx := context.Background()
	notes := &notify.Recorder{}
	adapter := persistence.NewAdapter(brokenStore{}, persistence.WithNotifier(notes))

	rec := newRecord(t)
	rec.Load(testsupport.ValidRecord())
	before := rec.Snapshot()

	if err := adapter.Save(ctx, "dev-1", rec); err == nil {
		t.Fatalf("expected save error")
	}
	if _, err := adapter.Load(ctx, "dev-1", rec); err == nil {
		t.Fatalf("expected load error")
	}
	if diff := cmp.Diff(before, rec.Snapshot()); diff != "" {
		t.Fatalf("record changed after failures (-want +got):\n%s", diff)
	}

	want := []notify.Notification{persistence.SaveFailedNotice, persistence.LoadFailedNotice}
	if diff := cmp.Diff(want, notes.Drain()); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestAdapter_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	notes := &notify.Recorder{}
	adapter := persistence.NewAdapter(store, persistence.WithNotifier(notes))

	rec := newRecord(t)
	rec.Load(testsupport.ValidRecord())
	if err := adapter.Save(ctx, "dev-1", rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := adapter.Clear(ctx, "dev-1", rec); err != nil {
			t.Fatalf("clear %d: %v", i, err)
		}
	}
	if _, err := store.Load(ctx, "dev-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected not found after clear, got %v", err)
	}
	if diff := cmp.Diff(newRecord(t).Snapshot(), rec.Snapshot()); diff != "" {
		t.Fatalf("record not reset (-want +got):\n%s", diff)
	}
	if got := notes.Drain(); len(got) != 3 || got[2] != persistence.ClearedNotice {
		t.Fatalf("unexpected notifications %+v", got)
	}
}
