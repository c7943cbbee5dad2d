// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bassosimone/serversock"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// config holds the command settings.
//
// Values come from the environment, optionally seeded by a .env file in the
// current directory. Environment variables take precedence over the file.
type config struct {
	// Ports lists the ports to serve, one server slot each.
	Ports []uint16 `env:"SERVERSOCK_PORTS" envDefault:"7007" envSeparator:","`

	// MaxClients is the number of clients each server accepts.
	MaxClients int `env:"SERVERSOCK_MAX_CLIENTS" envDefault:"2"`

	// BufferCapacity is the receive buffer capacity of each client (2^n-1).
	BufferCapacity int `env:"SERVERSOCK_BUFFER_CAPACITY" envDefault:"255"`

	// OverflowPolicy is one of dropNewest, dropOldest and reject.
	OverflowPolicy string `env:"SERVERSOCK_OVERFLOW_POLICY" envDefault:"dropNewest"`

	// PollTimeout bounds each wait for engine events.
	PollTimeout time.Duration `env:"SERVERSOCK_POLL_TIMEOUT" envDefault:"100ms"`

	// MetricsAddr is where to serve /metrics; empty disables it.
	MetricsAddr string `env:"SERVERSOCK_METRICS_ADDR"`

	// LogLevel is one of debug, info, warn and error.
	LogLevel string `env:"SERVERSOCK_LOG_LEVEL" envDefault:"info"`
}

// loadConfig reads the configuration from the environment.
func loadConfig() (*config, error) {
	_ = godotenv.Load()
	cfg := &config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.Ports) <= 0 {
		return nil, fmt.Errorf("SERVERSOCK_PORTS must list at least one port")
	}
	if _, err := cfg.overflowPolicy(); err != nil {
		return nil, err
	}
	if _, err := cfg.logLevel(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) overflowPolicy() (serversock.OverflowPolicy, error) {
	for _, policy := range []serversock.OverflowPolicy{
		serversock.DropNewest, serversock.DropOldest, serversock.Reject,
	} {
		if policy.String() == c.OverflowPolicy {
			return policy, nil
		}
	}
	return 0, fmt.Errorf("SERVERSOCK_OVERFLOW_POLICY: unknown policy %q", c.OverflowPolicy)
}

func (c *config) logLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("SERVERSOCK_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// poolConfig returns the [*serversock.Config] matching c.
func (c *config) poolConfig() *serversock.Config {
	cfg := serversock.NewConfig()
	cfg.MaxServers = len(c.Ports)
	cfg.MaxListenClients = c.MaxClients
	cfg.BufferCapacity = c.BufferCapacity
	cfg.OverflowPolicy, _ = c.overflowPolicy()
	return cfg
}
