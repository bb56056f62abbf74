package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tglink "github.com/MrEthical07/tglink"
	"github.com/MrEthical07/tglink/httpapi"
	promexport "github.com/MrEthical07/tglink/metrics/export/prometheus"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v2"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP API daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "Specify the local IP/port to bind to",
			Value:   ":8080",
			EnvVars: []string{"TGLINK_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"TGLINK_METRICS_LISTEN"},
		},
		&cli.StringSliceFlag{
			Name:    "trusted-proxy",
			Usage:   "CIDR of a reverse proxy whose X-Forwarded-For is trusted (repeatable)",
			EnvVars: []string{"TGLINK_TRUSTED_PROXIES"},
		},
		&cli.StringSliceFlag{
			Name:    "cors-origin",
			Usage:   "allowed CORS origin (repeatable); default allows any",
			EnvVars: []string{"TGLINK_CORS_ORIGINS"},
		},
	},
	Action: runServe,
}

func runServe(cctx *cli.Context) error {
	logger := configLogger(cctx, os.Stdout)

	var trusted []*net.IPNet
	for _, cidr := range cctx.StringSlice("trusted-proxy") {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return fmt.Errorf("invalid --trusted-proxy %q: %w", cidr, err)
		}
		trusted = append(trusted, ipNet)
	}

	engine, cleanup, err := buildEngine(cctx, logger)
	if err != nil {
		if !errors.Is(err, tglink.ErrConfiguration) {
			return fmt.Errorf("failed to construct engine: %w", err)
		}
		// Degraded mode: every request answers 500 "missing configuration".
		logger.Error("configuration invalid, serving in degraded mode", "err", err)
		engine = nil
	}
	defer cleanup()

	if engine != nil {
		for _, w := range engine.SecurityReport().Warnings {
			logger.Warn("security posture", "warning", w)
		}
		prometheus.MustRegister(promexport.NewCollector(engine))
	}

	srv := httpapi.NewServer(engine, httpapi.Config{
		Logger:           logger,
		Bind:             cctx.String("bind"),
		CORSAllowOrigins: cctx.StringSlice("cors-origin"),
		TrustedProxies:   trusted,
	})

	// prometheus HTTP endpoint: /metrics
	go func() {
		if err := runMetrics(cctx.String("metrics-listen")); err != nil {
			slog.Error("failed to start metrics endpoint", "error", err)
			panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
		}
	}()

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.RunAPI(ctx); err != nil {
		return err
	}
	slog.Info("graceful shutdown complete")
	return nil
}

func runMetrics(listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, mux)
}
