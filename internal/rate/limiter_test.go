package rate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func redisPolicy(limit int) Policy {
	return Policy{
		Name:        "article_search",
		Backend:     BackendRedis,
		Window:      60 * time.Second,
		Limit:       limit,
		KeyPrefix:   "rate_limit:article_search",
		FailureMode: FailOpen,
	}
}

func localPolicy(limit int) Policy {
	return Policy{
		Name:        "auth_local",
		Backend:     BackendLocal,
		Window:      60 * time.Second,
		Limit:       limit,
		FailureMode: FailClosed,
	}
}

func TestPolicyKey(t *testing.T) {
	p := redisPolicy(1)
	if got := p.Key("10.0.0.1", "GET", "/article/search"); got != "rate_limit:article_search:10.0.0.1:GET:/article/search" {
		t.Fatalf("unexpected shared key %q", got)
	}
	p.KeyPrefix = ""
	if got := p.Key("a", "POST", "/x"); got != "article_search:a:POST:/x" {
		t.Fatalf("expected name fallback, got %q", got)
	}
	if got := localPolicy(1).Key("10.0.0.1", "POST", "/user/login"); got != "10.0.0.1" {
		t.Fatalf("expected client address as local key, got %q", got)
	}
}

func TestPolicyValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Policy)
	}{
		{name: "missing name", mutate: func(p *Policy) { p.Name = "" }},
		{name: "unknown backend", mutate: func(p *Policy) { p.Backend = "memcache" }},
		{name: "zero window", mutate: func(p *Policy) { p.Window = 0 }},
		{name: "zero limit", mutate: func(p *Policy) { p.Limit = 0 }},
		{name: "no failure mode", mutate: func(p *Policy) { p.FailureMode = "" }},
		{name: "negative entries", mutate: func(p *Policy) { p.MaxEntries = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := redisPolicy(3)
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	if err := redisPolicy(3).Validate(); err != nil {
		t.Fatalf("expected valid policy, got %v", err)
	}
}

func TestNewRequiresRedisClientForRedisBackend(t *testing.T) {
	if _, err := New(redisPolicy(1), nil, nil); err == nil {
		t.Fatal("expected error without redis client")
	}
	l, err := New(localPolicy(1), nil, nil)
	if err != nil {
		t.Fatalf("local backend: %v", err)
	}
	defer l.Close()
	if _, ok := l.(*FixedWindow); !ok {
		t.Fatalf("expected *FixedWindow, got %T", l)
	}
}

func TestSlidingWindowExactness(t *testing.T) {
	_, rdb := newRedis(t)
	clock := &testClock{now: time.UnixMilli(1_700_000_000_000)}
	l := NewSlidingWindow(redisPolicy(3), rdb, clock.Now)
	ctx := context.Background()
	key := "rate_limit:test:1.1.1.1:GET:/article/search"

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, key)
		if err != nil || !ok {
			t.Fatalf("admit %d: ok=%v err=%v", i, ok, err)
		}
		clock.Advance(time.Second)
	}

	ok, err := l.Allow(ctx, key)
	if err != nil || ok {
		t.Fatalf("expected fourth event to be rejected, ok=%v err=%v", ok, err)
	}

	// First event was at t0; at t0+61s it has aged out, the other two remain.
	clock.Advance(58 * time.Second)
	ok, err = l.Allow(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected admit after first event aged out, ok=%v err=%v", ok, err)
	}
	ok, err = l.Allow(ctx, key)
	if err != nil || ok {
		t.Fatalf("expected reject while window is full again, ok=%v err=%v", ok, err)
	}
}

func TestSlidingWindowSameMillisecondEventsAreDistinct(t *testing.T) {
	mr, rdb := newRedis(t)
	clock := &testClock{now: time.UnixMilli(1_700_000_000_000)}
	l := NewSlidingWindow(redisPolicy(5), rdb, clock.Now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if ok, err := l.Allow(ctx, "k"); err != nil || !ok {
			t.Fatalf("admit %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, "k"); ok {
		t.Fatal("expected sixth event in the same millisecond to be rejected")
	}

	members, err := mr.ZMembers("k")
	if err != nil {
		t.Fatalf("zmembers: %v", err)
	}
	if len(members) != 5 {
		t.Fatalf("expected 5 distinct members, got %d", len(members))
	}
}

func TestSlidingWindowSetsWindowTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	l := NewSlidingWindow(redisPolicy(2), rdb, nil)

	if _, err := l.Allow(context.Background(), "ttl-key"); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if got := mr.TTL("ttl-key"); got != 60*time.Second {
		t.Fatalf("expected 60s ttl, got %v", got)
	}
}

func TestSlidingWindowConcurrencyCeiling(t *testing.T) {
	_, rdb := newRedis(t)
	const limit = 10
	const extra = 15
	l := NewSlidingWindow(redisPolicy(limit), rdb, nil)

	var wg sync.WaitGroup
	results := make(chan bool, limit+extra)
	for i := 0; i < limit+extra; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Allow(context.Background(), "shared")
			if err != nil {
				t.Errorf("allow: %v", err)
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	admitted := 0
	for ok := range results {
		if ok {
			admitted++
		}
	}
	if admitted != limit {
		t.Fatalf("expected exactly %d admits, got %d", limit, admitted)
	}
}

func TestEnforceFailureModes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	open := redisPolicy(1)
	open.OpTimeout = 100 * time.Millisecond
	degraded, err := Enforce(context.Background(), NewSlidingWindow(open, rdb, nil), "k")
	if err != nil || !degraded {
		t.Fatalf("fail-open: expected degraded admit, got degraded=%v err=%v", degraded, err)
	}

	closed := open
	closed.FailureMode = FailClosed
	degraded, err = Enforce(context.Background(), NewSlidingWindow(closed, rdb, nil), "k")
	if !errors.Is(err, ErrStoreUnavailable) || degraded {
		t.Fatalf("fail-closed: expected ErrStoreUnavailable, got degraded=%v err=%v", degraded, err)
	}
}

func TestEnforceRejects(t *testing.T) {
	l := NewFixedWindow(localPolicy(1), nil)
	defer l.Close()

	if _, err := Enforce(context.Background(), l, "a"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := Enforce(context.Background(), l, "a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestFixedWindowIsolationAndReset(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	l := NewFixedWindow(localPolicy(5), clock.Now)
	defer l.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if ok, _ := l.Allow(ctx, "A"); !ok {
			t.Fatalf("A admit %d rejected", i)
		}
	}
	if ok, _ := l.Allow(ctx, "A"); ok {
		t.Fatal("expected sixth request from A to be rejected")
	}

	if ok, _ := l.Allow(ctx, "B"); !ok {
		t.Fatal("B must not be affected by A")
	}

	// Exactly one window later is still the same window.
	clock.Advance(60 * time.Second)
	if ok, _ := l.Allow(ctx, "A"); ok {
		t.Fatal("expected A to stay limited until the window is exceeded")
	}

	clock.Advance(time.Second)
	if ok, _ := l.Allow(ctx, "A"); !ok {
		t.Fatal("expected A to reset after the window elapsed")
	}
}

func TestFixedWindowConcurrencyCeiling(t *testing.T) {
	const limit = 20
	l := NewFixedWindow(localPolicy(limit), nil)
	defer l.Close()

	var wg sync.WaitGroup
	results := make(chan bool, limit*3)
	for i := 0; i < limit*3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := l.Allow(context.Background(), "same-ip")
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	admitted := 0
	for ok := range results {
		if ok {
			admitted++
		}
	}
	if admitted != limit {
		t.Fatalf("expected exactly %d admits, got %d", limit, admitted)
	}
}

func TestFixedWindowSweepEvictsIdleEntries(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	l := NewFixedWindow(localPolicy(5), clock.Now)
	defer l.Close()
	ctx := context.Background()

	for _, ip := range []string{"a", "b", "c"} {
		l.Allow(ctx, ip)
	}
	clock.Advance(30 * time.Second)
	l.Allow(ctx, "d")

	clock.Advance(31 * time.Second)
	if removed := l.Sweep(); removed != 3 {
		t.Fatalf("expected 3 idle entries removed, got %d", removed)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", l.Len())
	}
}

func TestFixedWindowCapacityBound(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	p := localPolicy(5)
	p.MaxEntries = 2
	l := NewFixedWindow(p, clock.Now)
	defer l.Close()
	ctx := context.Background()

	l.Allow(ctx, "a")
	l.Allow(ctx, "b")
	if _, err := l.Allow(ctx, "c"); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if _, err := Enforce(ctx, l, "c"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("fail-closed policy should reject when full, got %v", err)
	}

	// Stale entries are evicted to make room.
	clock.Advance(61 * time.Second)
	if ok, err := l.Allow(ctx, "c"); err != nil || !ok {
		t.Fatalf("expected admit after stale eviction, ok=%v err=%v", ok, err)
	}
}

func TestFixedWindowBackgroundSweeper(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	p := localPolicy(5)
	p.SweepInterval = 5 * time.Millisecond
	l := NewFixedWindow(p, clock.Now)

	l.Allow(context.Background(), "idle")
	clock.Advance(2 * time.Minute)

	deadline := time.Now().Add(2 * time.Second)
	for l.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected background sweeper to evict idle entry")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
