// SPDX-License-Identifier: GPL-3.0-or-later

// Command serversock-echo is an echo server driving a [*serversock.Pool]
// from a single poll loop on top of the [netengine] engine.
//
// Configure it through the SERVERSOCK_* environment variables described
// in config.go. Send SIGINT or SIGTERM to stop it.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bassosimone/errclass"
	"github.com/bassosimone/serversock"
	"github.com/bassosimone/serversock/netengine"
	"github.com/bassosimone/serversock/prommetrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("cannot load config", slog.Any("err", err))
		os.Exit(1)
	}
	level, _ := cfg.logLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("serversock-echo failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config, logger *slog.Logger) error {
	engine := netengine.New(netengine.NewConfig(), logger)
	defer engine.Close()

	poolConfig := cfg.poolConfig()
	poolConfig.ErrClassifier = serversock.ErrClassifierFunc(errclass.New)
	pool, err := serversock.NewPool(poolConfig, engine, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	pool.Init(serversock.InitConfig{
		CurrentTick: func() uint32 { return uint32(time.Since(start).Milliseconds()) },
		Delay:       func(ms uint32) { time.Sleep(time.Duration(ms) * time.Millisecond) },
		Timeout:     cfg.PollTimeout,
	})

	if cfg.MetricsAddr != "" {
		srv := newMetricsServer(cfg.MetricsAddr, pool)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Info("metricsServerDone", slog.Any("err", err))
			}
		}()
		defer srv.Close()
	}

	for idx, port := range cfg.Ports {
		if err := pool.Connect(idx, port); err != nil {
			return err
		}
	}

	e := newEchoer(pool)
	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, pool.Timing().Timeout)
		_ = engine.Wait(waitCtx)
		cancel()
		engine.Poll()
		e.serve()
	}

	for idx := range cfg.Ports {
		if err := pool.Disconnect(idx); err != nil {
			logger.Info("disconnectDone", slog.Int("serverIndex", idx), slog.Any("err", err))
		}
	}
	return nil
}

func newMetricsServer(addr string, pool *serversock.Pool) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prommetrics.NewCollector("serversock", pool))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
}
