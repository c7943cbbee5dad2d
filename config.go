// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import (
	"fmt"
	"time"
)

// Config holds the fixed sizing and common dependencies of a [*Pool].
//
// Pass this to [NewPool]. The sizing cannot change after the pool is built.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// MaxServers is the number of server slots.
	//
	// Set by [NewConfig] to 1.
	MaxServers int

	// MaxListenClients is the number of client slots of each server.
	//
	// Set by [NewConfig] to 2.
	MaxListenClients int

	// BufferCapacity is the usable receive buffer capacity of each client
	// and must be of the form 2^n - 1 (e.g., 7, 255, 1023).
	//
	// Set by [NewConfig] to 255.
	BufferCapacity int

	// OverflowPolicy is what receive buffers do when full.
	//
	// Set by [NewConfig] to [DropNewest].
	OverflowPolicy OverflowPolicy

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		MaxServers:       1,
		MaxListenClients: 2,
		BufferCapacity:   255,
		OverflowPolicy:   DropNewest,
		ErrClassifier:    DefaultErrClassifier,
		TimeNow:          time.Now,
	}
}

func (cfg *Config) validate() error {
	if cfg.MaxServers < 1 {
		return fmt.Errorf("serversock: MaxServers must be > 0, got %d", cfg.MaxServers)
	}
	if cfg.MaxListenClients < 1 {
		return fmt.Errorf("serversock: MaxListenClients must be > 0, got %d", cfg.MaxListenClients)
	}
	size := cfg.BufferCapacity + 1
	if cfg.BufferCapacity < 1 || size&(size-1) != 0 {
		return fmt.Errorf("serversock: BufferCapacity must be 2^n-1, got %d", cfg.BufferCapacity)
	}
	if cfg.ErrClassifier == nil || cfg.TimeNow == nil {
		return fmt.Errorf("serversock: ErrClassifier and TimeNow must be set")
	}
	return nil
}

// DefaultTimeout is the timeout used when [InitConfig] leaves it zero.
const DefaultTimeout = 100 * time.Millisecond

// InitConfig holds the timing callbacks of the surrounding poll loop.
//
// The pool stores them for the poll loop (see [*Pool.Timing]) and never
// calls them itself.
type InitConfig struct {
	// CurrentTick returns the current tick count in milliseconds.
	CurrentTick func() uint32

	// Delay blocks for the given number of milliseconds.
	Delay func(ms uint32)

	// Timeout is the poll loop timeout. Zero means [DefaultTimeout].
	Timeout time.Duration
}
