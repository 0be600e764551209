package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newStoreTest(t *testing.T) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "", 0)
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestPutExistsAndTTL(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Put(ctx, "a.b.c", "42", 2*time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	ok, err := store.Exists(ctx, "a.b.c")
	if err != nil || !ok {
		t.Fatalf("expected record to exist, got ok=%v err=%v", ok, err)
	}
	if got := mr.TTL(DefaultPrefix + "a.b.c"); got != 2*time.Hour {
		t.Fatalf("expected ttl 2h, got %v", got)
	}
	if v, _ := mr.Get(DefaultPrefix + "a.b.c"); v != "42" {
		t.Fatalf("expected marker 42, got %q", v)
	}

	mr.FastForward(2*time.Hour + time.Second)
	ok, err = store.Exists(ctx, "a.b.c")
	if err != nil || ok {
		t.Fatalf("expected record to expire, got ok=%v err=%v", ok, err)
	}
}

func TestPutRejectsNonPositiveTTL(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()

	if err := store.Put(context.Background(), "a.b.c", "", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store, _, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Put(ctx, "t1", "", time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, "t1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, "t1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	ok, err := store.Exists(ctx, "t1")
	if err != nil || ok {
		t.Fatalf("expected absent after delete, got ok=%v err=%v", ok, err)
	}
}

func TestRotateSwapsRecords(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.Put(ctx, "old", "7", 7*24*time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Rotate(ctx, "old", "new", "7", 7*24*time.Hour); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	if mr.Exists(DefaultPrefix + "old") {
		t.Fatal("expected old record to be removed")
	}
	if !mr.Exists(DefaultPrefix + "new") {
		t.Fatal("expected new record to exist")
	}
	if got := mr.TTL(DefaultPrefix + "new"); got != 7*24*time.Hour {
		t.Fatalf("expected ttl 7d, got %v", got)
	}

	ttl, err := store.TTL(ctx, "new")
	if err != nil || ttl <= 0 {
		t.Fatalf("expected positive ttl, got %v err=%v", ttl, err)
	}
	ttl, err = store.TTL(ctx, "old")
	if err != nil || ttl != 0 {
		t.Fatalf("expected zero ttl for absent record, got %v err=%v", ttl, err)
	}
}

func TestRotateMissingOldWritesNothing(t *testing.T) {
	store, mr, done := newStoreTest(t)
	defer done()
	ctx := context.Background()

	err := store.Rotate(ctx, "gone", "new", "7", time.Hour)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mr.Exists(DefaultPrefix + "new") {
		t.Fatal("new record must not be written when the old one is absent")
	}
}

func TestUnavailableIsDistinctFromAbsent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	store := NewStore(rdb, "p:", 100*time.Millisecond)
	mr.Close()

	ctx := context.Background()
	ok, err := store.Exists(ctx, "x")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got ok=%v err=%v", ok, err)
	}
	if ok {
		t.Fatal("unavailable store must not report presence")
	}
	if err := store.Put(ctx, "x", "", time.Minute); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("put: expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Delete(ctx, "x"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("delete: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("ping: expected ErrStoreUnavailable, got %v", err)
	}
}

func TestCustomPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewStore(rdb, "blog:tok:", time.Second)
	if err := store.Put(context.Background(), "abc", "", time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("blog:tok:abc") {
		t.Fatalf("expected prefixed key, have %v", mr.Keys())
	}
}
