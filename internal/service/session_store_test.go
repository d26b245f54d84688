package service

import (
	"context"
	"testing"
	"time"
)

func TestMemorySessionStoreGetSetClear(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	var got SessionSnapshot
	if found, err := store.Get(ctx, "missing", &got); err != nil || found {
		t.Fatalf("missing key: found=%v err=%v", found, err)
	}

	want := SessionSnapshot{ExamID: 3, UserID: 9, CurrentIndex: 1, Answers: map[int]string{1: "B"}}
	if err := store.Set(ctx, "k", want, time.Hour); err != nil {
		t.Fatal(err)
	}
	found, err := store.Get(ctx, "k", &got)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if got.ExamID != 3 || got.UserID != 9 || got.Answers[1] != "B" {
		t.Fatalf("got %+v", got)
	}

	if err := store.Clear(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if found, _ := store.Get(ctx, "k", &got); found {
		t.Fatal("key still present after Clear")
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Set(ctx, "short", 1, time.Minute)
	_ = store.Set(ctx, "forever", 2, 0)

	now = now.Add(2 * time.Minute)

	var v int
	if found, _ := store.Get(ctx, "short", &v); found {
		t.Fatal("expired entry returned")
	}
	if found, _ := store.Get(ctx, "forever", &v); !found || v != 2 {
		t.Fatalf("entry without ttl: found=%v v=%d", found, v)
	}

	_ = store.Set(ctx, "short2", 3, time.Minute)
	now = now.Add(time.Hour)
	if n := store.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
}
