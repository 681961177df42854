package redisstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"pdf-quiz/internal/quiz"
	"pdf-quiz/internal/state"
)

// These tests need a reachable server; set REDIS_ADDR to run them.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	store, err := Dial(context.Background(), addr, time.Minute)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	store.prefix = "pdf-quiz:test:" + t.Name() + ":"
	t.Cleanup(func() {
		_ = store.Delete(context.Background(), "abc")
		_ = store.Close()
	})
	return store
}

func TestDialRequiresAddr(t *testing.T) {
	if _, err := Dial(context.Background(), "  ", time.Minute); err == nil {
		t.Fatalf("expected an error for an empty address")
	}
}

func TestKeyUsesPrefix(t *testing.T) {
	store := New(nil, 0)
	if got := store.key("abc"); got != "pdf-quiz:session:abc" {
		t.Fatalf("key = %q", got)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Load(ctx, "abc"); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	snap := quiz.Snapshot{Step: quiz.StepEdit, Title: "Notes", Questions: []quiz.Question{{ID: "1", Question: "Q", Answer: "A"}}}
	if err := store.Save(ctx, "abc", snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load(ctx, "abc")
	if err != nil || got.Title != "Notes" || len(got.Questions) != 1 {
		t.Fatalf("Load = (%+v, %v)", got, err)
	}

	ttl, err := store.rdb.TTL(ctx, store.key("abc")).Result()
	if err != nil || ttl <= 0 {
		t.Fatalf("expected a positive ttl, got %v (%v)", ttl, err)
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx, "abc"); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
