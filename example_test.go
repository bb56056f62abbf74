package tglink_test

import (
	"context"
	"fmt"

	tglink "github.com/MrEthical07/tglink"
	"github.com/redis/go-redis/v9"
)

// ExampleNew demonstrates engine construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := tglink.DefaultConfig()
	cfg.Bot.Token = "123456:BOT-TOKEN"
	cfg.Session.PrivateKey = []byte("shared-jwt-secret-of-the-backend")

	engine, _ := tglink.New().
		WithConfig(cfg).
		WithRedis(rdb).
		Build()
	_ = engine
}

// ExampleEngine_IssueSession shows the session exchange and how an unlinked
// identity is reported.
func ExampleEngine_IssueSession() {
	var engine *tglink.Engine
	res, err := engine.IssueSession(context.Background(), "user=...&hash=...")
	if err != nil {
		_ = err
		return
	}
	if !res.Linked {
		fmt.Println("not linked")
	}
}

// ExampleEngine_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *tglink.Engine
	snapshot := engine.MetricsSnapshot()
	_ = snapshot.Counters[tglink.MetricSessionIssued]
}
