package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/logging"
)

func main() {
	var (
		users       = flag.Int("users", 10000, "number of users to seed")
		perUser     = flag.Int("per-user", 3, "sessions seeded per user")
		limit       = flag.Int("limit", 5, "max sessions per user")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (validate + login)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *perUser <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, per-user, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	cfg := goSession.DefaultConfig()
	cfg.Session.MaxSessionsPerUser = *limit
	cfg.Reaper.Enabled = false
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	m, err := goSession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(logging.Discard()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	userIDs := make([]uuid.UUID, *users)
	sessionIDs := make([]string, 0, *users**perUser)
	fmt.Printf("seeding %d sessions...\n", *users**perUser)
	startSeed := time.Now()
	for i := range userIDs {
		userIDs[i] = uuid.New()
		for j := 0; j < *perUser; j++ {
			sid, err := goSession.NewSessionID()
			if err != nil {
				fmt.Fprintf(os.Stderr, "session id: %v\n", err)
				os.Exit(1)
			}
			if _, err := m.CreateSession(ctx, sid, userIDs[i]); err != nil {
				fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
				os.Exit(1)
			}
			sessionIDs = append(sessionIDs, sid)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		_, err := m.ValidateSession(ctx, sessionIDs[r.Intn(len(sessionIDs))])
		return err
	})
	loginStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		sid, err := goSession.NewSessionID()
		if err != nil {
			return err
		}
		_, err = m.CreateSession(ctx, sid, userIDs[r.Intn(len(userIDs))])
		return err
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("login", loginStats)

	snap := m.MetricsSnapshot()
	fmt.Printf("evicted=%d fallback_writes=%d tier_failures=%d\n",
		snap.Counters[goSession.MetricSessionEvicted],
		snap.Counters[goSession.MetricSessionStoredFallback],
		snap.Counters[goSession.MetricTierFailure],
	)
}

func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) error) phaseStats {
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
				err := op(r)
				d := time.Since(t0)
				if err != nil {
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
