package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	tglink "github.com/MrEthical07/tglink"
	"github.com/MrEthical07/tglink/initdata"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v2"
)

const loadtestBotToken = "loadtest:bot-token"

var loadtestCmd = &cli.Command{
	Name:  "loadtest",
	Usage: "measure redeem and session latency against redis (miniredis when no address is given)",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "codes",
			Usage: "number of link codes to seed",
			Value: 2000,
		},
		&cli.IntFlag{
			Name:  "contention",
			Usage: "concurrent redeemers racing for each code",
			Value: 4,
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "number of concurrent workers",
			Value: 64,
		},
		&cli.IntFlag{
			Name:  "ops",
			Usage: "session operations to run",
			Value: 20000,
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "redis address; miniredis is used when empty",
			EnvVars: []string{"TGLINK_LOADTEST_REDIS_ADDR"},
		},
	},
	Action: runLoadtest,
}

func runLoadtest(cctx *cli.Context) error {
	codes := cctx.Int("codes")
	contention := cctx.Int("contention")
	concurrency := cctx.Int("concurrency")
	ops := cctx.Int("ops")
	if codes <= 0 || contention <= 0 || concurrency <= 0 || ops <= 0 {
		return cli.Exit("codes, contention, concurrency, and ops must be > 0", 2)
	}

	ctx := cctx.Context
	client, cleanup, err := loadtestRedis(cctx.String("redis-addr"))
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := tglink.DefaultConfig()
	cfg.Bot.Token = loadtestBotToken
	cfg.Session.PrivateKey = []byte("loadtest-signing-secret-0123456789")
	cfg.Storage.RedisPrefix = "tglt"

	engine, err := tglink.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Printf("seeding %d link codes...\n", codes)
	startSeed := time.Now()
	seeded := make([]string, codes)
	for i := range seeded {
		code, err := engine.IssueLinkCode(ctx, uuid.NewString())
		if err != nil {
			return fmt.Errorf("issue link code: %w", err)
		}
		seeded[i] = code.Code
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	payloads := make([]string, codes)
	for i := range payloads {
		payloads[i] = initdata.Encode(map[string]string{
			"user": `{"id":` + strconv.Itoa(i+1) + `}`,
		}, loadtestBotToken)
	}

	redeemStats, winners := runRedeemPhase(ctx, engine, seeded, payloads, contention, concurrency)
	sessionStats := runSessionPhase(ctx, engine, payloads, ops, concurrency)

	fmt.Println("---- results ----")
	printStats("redeem", redeemStats)
	printStats("session", sessionStats)
	if winners != int64(codes) {
		return fmt.Errorf("expected %d successful redemptions, got %d", codes, winners)
	}
	return nil
}

func loadtestRedis(addr string) (redis.UniversalClient, func(), error) {
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

// runRedeemPhase races contention workers per code. Code i is redeemed with
// payload i, so every identity ends up linked exactly once.
func runRedeemPhase(ctx context.Context, engine *tglink.Engine, codes, payloads []string, contention, concurrency int) (phaseStats, int64) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		winners   int64
		total     = len(codes) * contention
		latencies = make([]time.Duration, 0, total)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= total {
					return
				}
				idx := i / contention
				t0 := time.Now()
				_, err := engine.RedeemLinkCode(ctx, payloads[idx], codes[idx])
				d := time.Since(t0)
				switch {
				case err == nil:
					atomic.AddInt64(&winners, 1)
				case !errors.Is(err, tglink.ErrLinkCodeInvalid):
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures), winners
}

func runSessionPhase(ctx context.Context, engine *tglink.Engine, payloads []string, ops, concurrency int) phaseStats {
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
				res, err := engine.IssueSession(ctx, payloads[r.Intn(len(payloads))])
				d := time.Since(t0)
				if err != nil || !res.Linked {
					atomic.AddInt64(&failures, 1)
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
