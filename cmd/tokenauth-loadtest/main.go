package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/session"
	"github.com/alecthomas/kong"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cli struct {
	Sessions    int    `help:"number of sessions to seed through SignIn" default:"500"`
	Concurrency int    `help:"number of concurrent workers" default:"64"`
	Ops         int    `help:"operations per phase (access + renew)" default:"100000"`
	RedisAddr   string `help:"redis address; empty uses miniredis" default:"" env:"REDIS_ADDR"`
	Prefix      string `help:"session key prefix" default:"loadtest"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c, kong.Name("tokenauth-loadtest"), kong.Description("Drive Engine.Gate under concurrency."))
	kctx.FatalIfErrorf(run(context.Background(), c))
}

func run(ctx context.Context, c cli) error {
	if c.Sessions <= 0 || c.Concurrency <= 0 || c.Ops <= 0 {
		return fmt.Errorf("sessions, concurrency, and ops must be > 0")
	}

	client, cleanup, err := redisClient(c.RedisAddr)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := buildEngine(client, c.Prefix)
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Printf("seeding %d sessions...\n", c.Sessions)
	startSeed := time.Now()
	pairs, err := seed(ctx, engine, c.Sessions)
	if err != nil {
		return err
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	accessStats := runPhase(c.Ops, c.Concurrency, len(pairs), func(idx int) error {
		_, err := engine.Gate(ctx, tokenAuth.Tokens{Access: pairs[idx].Access, Refresh: pairs[idx].Refresh})
		return err
	})
	renewStats := runPhase(c.Ops, c.Concurrency, len(pairs), func(idx int) error {
		res, err := engine.Gate(ctx, tokenAuth.Tokens{Refresh: pairs[idx].Refresh})
		if err == nil && !res.Refreshed {
			return fmt.Errorf("expected renewal, got state %s", res.State)
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("access", accessStats)
	printStats("renew", renewStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("gate: access_valid=%d renewed=%d store_unavailable=%d\n",
		snap.Counters[tokenAuth.MetricGateAccessValid],
		snap.Counters[tokenAuth.MetricGateRenewed],
		snap.Counters[tokenAuth.MetricStoreUnavailable],
	)
	return nil
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	fmt.Printf("using redis at %s\n", addr)
	return client, func() { _ = client.Close() }, nil
}

// buildEngine uses minimal Argon2 cost so seeding is dominated by the
// session store rather than hashing.
func buildEngine(client redis.UniversalClient, prefix string) (*tokenAuth.Engine, error) {
	cfg := tokenAuth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("r", 32))
	cfg.Session.RedisPrefix = prefix
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16

	users := identity.NewMemoryStore()
	engine, err := tokenAuth.New().
		WithConfig(cfg).
		WithSessionStore(session.NewRedisStore(client, cfg.Session.RedisPrefix, cfg.Session.Retention)).
		WithUserStore(users).
		Build()
	if err != nil {
		return nil, err
	}

	hash, err := engine.HashPassword("loadtest-password")
	if err != nil {
		engine.Close()
		return nil, err
	}
	if _, err := users.Create(context.Background(), identity.Record{
		User:         identity.User{Username: "loadtest"},
		PasswordHash: hash,
	}); err != nil {
		engine.Close()
		return nil, err
	}
	return engine, nil
}

func seed(ctx context.Context, engine *tokenAuth.Engine, n int) ([]tokenAuth.Tokens, error) {
	out := make([]tokenAuth.Tokens, n)
	for i := range out {
		res, err := engine.SignIn(ctx, "loadtest", "loadtest-password")
		if err != nil {
			return nil, fmt.Errorf("sign-in %d failed: %w", i, err)
		}
		out[i] = tokenAuth.Tokens{Access: res.AccessToken, Refresh: res.RefreshToken}
	}
	return out, nil
}

func runPhase(ops, concurrency, n int, op func(idx int) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r.Intn(n))
				d := time.Since(t0)
				if err != nil {
					if atomic.AddInt64(&failures, 1) == 1 {
						fmt.Fprintf(os.Stderr, "first failure: %v\n", err)
					}
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}
