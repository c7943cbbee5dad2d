// SPDX-License-Identifier: GPL-3.0-or-later

package netengine

import (
	"context"
	"net"
	"time"

	"github.com/bassosimone/errclass"
	"github.com/bassosimone/serversock"
)

// ListenConfig abstracts the [*net.ListenConfig] behavior.
//
// By making [*Engine] depend on an abstract implementation we
// allow for unit testing and for using alternative listeners.
type ListenConfig interface {
	Listen(ctx context.Context, network, address string) (net.Listener, error)
}

// Config holds the [*Engine] configuration.
//
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [errclass.New].
	ErrClassifier serversock.ErrClassifier

	// ListenConfig creates the listening sockets.
	//
	// Set by [NewConfig] to a [*net.ListenConfig] setting SO_REUSEADDR
	// where supported, so that a server can be restarted on the same port
	// while old connections are in TIME_WAIT.
	ListenConfig ListenConfig

	// ReadBufferSize is the maximum size of a received segment.
	//
	// Set by [NewConfig] to 1460.
	ReadBufferSize int

	// ReceiveWindow is the maximum number of received bytes a connection
	// holds before the sink acknowledges them. The reader stops reading
	// from the socket while the window is full.
	//
	// Set by [NewConfig] to 8192.
	ReceiveWindow int

	// SendBufferSize is the capacity of the per-connection send queue.
	//
	// Set by [NewConfig] to 8192.
	SendBufferSize int

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		ErrClassifier:  serversock.ErrClassifierFunc(errclass.New),
		ListenConfig:   &net.ListenConfig{Control: reuseAddrControl},
		ReadBufferSize: 1460,
		ReceiveWindow:  8192,
		SendBufferSize: 8192,
		TimeNow:        time.Now,
	}
}
