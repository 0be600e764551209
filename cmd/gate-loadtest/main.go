package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/internal/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

const loadtestSecret = "loadtest-secret-loadtest-secret-0001"

type sessionState struct {
	token string
	mu    sync.Mutex
}

func main() {
	var (
		sessions    = pflag.Int("sessions", 10000, "number of sessions to seed")
		concurrency = pflag.Int("concurrency", 256, "number of concurrent workers")
		ops         = pflag.Int("ops", 200000, "operations per phase")
		clients     = pflag.Int("clients", 1000, "distinct client addresses for the limiter phase")
		redisAddr   = pflag.String("redis-addr", "", "redis address; if empty, GOGATE_REDIS_ADDR or REDIS_ADDR is used")
		embedded    = pflag.Bool("embedded", false, "run against an in-process miniredis")
	)
	pflag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *clients <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, ops and clients must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = config.GetEnv("GOGATE_REDIS_ADDR", os.Getenv("REDIS_ADDR"))
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if *embedded || addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goGate.DefaultConfig()
	cfg.JWT.Secret = loadtestSecret
	// Large enough that the limiter phase measures the script, not rejections.
	for i := range cfg.Limits {
		if cfg.Limits[i].Name == goGate.LimitArticleSearch {
			cfg.Limits[i].Limit = *ops
		}
	}

	gate, err := goGate.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build gate: %v\n", err)
		os.Exit(1)
	}
	defer gate.Close()

	states := make([]sessionState, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		tok, err := gate.IssueSession(ctx, map[string]any{
			"id":       fmt.Sprintf("u-%d", i),
			"username": fmt.Sprintf("user%d", i),
		}, i%2 == 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = sessionState{token: tok.Token}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authorizeStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, i int) bool {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		tok := st.token
		st.mu.Unlock()

		req := goGate.AuthorizeRequest{Method: "POST", Path: "/article/add", Token: tok}
		if i%2 == 0 {
			req = goGate.AuthorizeRequest{Method: "GET", Path: "/article/list", Token: tok}
		}
		return gate.Authorize(ctx, req).Outcome == goGate.AllowAuthenticated
	})

	limiterStats := runPhase(*ops, *concurrency, 104729, func(r *rand.Rand, _ int) bool {
		ip := fmt.Sprintf("10.0.%d.%d", r.Intn(*clients)/256, r.Intn(*clients)%256)
		return gate.Allow(ctx, goGate.LimitArticleSearch, ip, "GET", "/article/search") == nil
	})

	refreshStats := runPhase(*ops/10+1, *concurrency, 6151, func(r *rand.Rand, _ int) bool {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()

		tok, err := gate.Refresh(ctx, st.token)
		if err != nil {
			return false
		}
		st.token = tok.Token
		return true
	})

	fmt.Println("---- results ----")
	printStats("authorize", authorizeStats)
	printStats("rate_limit", limiterStats)
	printStats("refresh", refreshStats)

	snap := gate.MetricsSnapshot()
	fmt.Printf("metrics: allow_authenticated=%d deny=%d rate_limited=%d session_refreshed=%d\n",
		snap.Counters[goGate.MetricAllowAuthenticated],
		snap.Counters[goGate.MetricDeny],
		snap.Counters[goGate.MetricRateLimited],
		snap.Counters[goGate.MetricSessionRefreshed],
	)
}

// runPhase executes op ops times across concurrency workers. op reports success.
func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				ok := op(r, i)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-10s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
