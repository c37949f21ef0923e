package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/authkit"
	"github.com/MrEthical07/authkit/backend/memory"
	"github.com/MrEthical07/authkit/metrics/export/internaldefs"
)

type loadtestConfig struct {
	workers int
	ops     int
}

func newLoadtestCmd(opts *rootOptions) *cobra.Command {
	cfg := &loadtestConfig{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive concurrent clients against in-memory backends",
		Long: `Run a login phase and a profile-read phase with one client per
worker, each on its own in-memory backend. All clients share one Redis
rate gate and marker store: --redis-addr when set, otherwise an embedded
miniredis.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoadtest(cmd, opts, cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.workers, "workers", 16, "number of concurrent clients")
	cmd.Flags().IntVar(&cfg.ops, "ops", 2000, "operations per phase")
	return cmd
}

type loadWorker struct {
	client   *authkit.Client
	email    string
	password string
}

func runLoadtest(cmd *cobra.Command, opts *rootOptions, lc *loadtestConfig) error {
	if lc.workers <= 0 || lc.ops <= 0 {
		return oops.Code("config_invalid").Errorf("workers and ops must be > 0")
	}
	app, err := opts.load(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	addr := app.RedisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return oops.Wrapf(err, "start miniredis")
		}
		defer mr.Close()
		addr = mr.Addr()
		cmd.Printf("using miniredis at %s\n", addr)
	} else {
		cmd.Printf("using redis at %s\n", addr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	cfg := app.Client
	cfg.Monitor.Enabled = false
	cfg.Marker.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.RateLimit.Backend = authkit.RateBackendRedis
	// The gate is shared by every worker; keep it counting without denying.
	cfg.RateLimit.LoginMaxAttempts = lc.ops + lc.workers
	if cfg.RateLimit.RedisPrefix == "" {
		cfg.RateLimit.RedisPrefix = "authkit"
	}

	workers := make([]*loadWorker, 0, lc.workers)
	defer func() {
		for _, w := range workers {
			w.client.Close()
		}
	}()
	start := time.Now()
	for i := 0; i < lc.workers; i++ {
		w, err := newLoadWorker(ctx, app, cfg, rdb, i)
		if err != nil {
			return err
		}
		workers = append(workers, w)
	}
	cmd.Printf("seeded %d clients in %s\n", lc.workers, time.Since(start).Round(time.Millisecond))

	login := runPhase(lc.ops, workers, func(w *loadWorker, _ *rand.Rand) error {
		if err := resultErr(w.client.Login(ctx, w.email, w.password)); err != nil {
			return err
		}
		return resultErr(w.client.Logout(ctx))
	})

	for _, w := range workers {
		if err := resultErr(w.client.Login(ctx, w.email, w.password)); err != nil {
			return oops.With("email", w.email).Wrapf(err, "sign in before profile phase")
		}
	}
	profile := runPhase(lc.ops, workers, func(w *loadWorker, r *rand.Rand) error {
		return resultErr(w.client.CurrentUser(ctx, r.IntN(10) == 0))
	})

	cmd.Println("---- results ----")
	cmd.Println(login.format("login+logout"))
	cmd.Println(profile.format("current-user"))
	printTotals(cmd, workers)
	return nil
}

func newLoadWorker(ctx context.Context, app appConfig, cfg authkit.Config, rdb *redis.Client, i int) (*loadWorker, error) {
	be, err := memory.New(memory.Config{TokenTTL: app.Memory.TokenTTL})
	if err != nil {
		return nil, err
	}
	w := &loadWorker{
		email:    fmt.Sprintf("load%d@example.com", i),
		password: fmt.Sprintf("load-pass-%04d", i),
	}
	if _, err := be.AddUser(ctx, memory.User{
		Email:    w.email,
		Password: w.password,
		Username: fmt.Sprintf("load_%d", i),
		Role:     authkit.RoleMember,
	}); err != nil {
		return nil, oops.With("worker", i).Wrapf(err, "seed worker user")
	}

	w.client, err = authkit.New().
		WithConfig(cfg).
		WithBackend(be).
		WithRedis(rdb).
		WithLogger(app.logger()).
		Build()
	if err != nil {
		return nil, err
	}
	return w, nil
}

// runPhase spreads ops operations over the workers. Each worker runs on its
// own goroutine since a client holds a single session.
func runPhase(ops int, workers []*loadWorker, op func(*loadWorker, *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, ops)
	)

	start := time.Now()
	for i, w := range workers {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			r := rand.New(rand.NewPCG(seed, uint64(time.Now().UnixNano())))
			for cursor.Add(1) <= int64(ops) {
				t0 := time.Now()
				err := op(w, r)
				d := time.Since(t0)
				if err != nil {
					failures.Add(1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(uint64(i))
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures.Load())
}

func resultErr(res authkit.Result) error {
	if res.Success {
		return nil
	}
	return oops.Code(string(res.Error)).Errorf("%s", res.Message)
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
		return phaseStats{total: total, failures: failures}
	}
	slices.Sort(samples)
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

// percentile expects sorted samples.
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

func (s phaseStats) format(name string) string {
	return fmt.Sprintf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s",
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

// printTotals sums every worker's counters and prints the non-zero ones.
func printTotals(cmd *cobra.Command, workers []*loadWorker) {
	totals := make(map[authkit.MetricID]uint64)
	for _, w := range workers {
		for id, v := range w.client.MetricsSnapshot().Counters {
			totals[id] += v
		}
	}
	for _, def := range internaldefs.CounterDefs {
		if v := totals[def.ID]; v > 0 {
			cmd.Printf("%-40s %d\n", def.Name, v)
		}
	}
}
