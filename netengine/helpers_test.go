// SPDX-License-Identifier: GPL-3.0-or-later

package netengine

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/bassosimone/slogstub"
	"github.com/stretchr/testify/require"
)

// newCapturingLogger returns a logger that captures all log records into the
// returned slice. The caller can inspect the slice after exercising the code
// under test to verify which events were emitted.
//
// The records are only safe to inspect once the I/O goroutines are done.
func newCapturingLogger() (*slog.Logger, *[]slog.Record) {
	var records []slog.Record
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			records = append(records, record)
			return nil
		},
	}
	return slog.New(handler), &records
}

// newMinimalConn returns a [*netstub.FuncConn] with only LocalAddrFunc and
// RemoteAddrFunc set. This is the minimum needed for code that calls
// [safeconn.LocalAddr], [safeconn.RemoteAddr], and [safeconn.Network]
// during construction.
func newMinimalConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		LocalAddrFunc:  func() net.Addr { return &net.TCPAddr{} },
		RemoteAddrFunc: func() net.Addr { return &net.TCPAddr{} },
	}
}

// funcListenConfig adapts a function to the [ListenConfig] interface.
type funcListenConfig func(ctx context.Context, network, address string) (net.Listener, error)

// Listen implements [ListenConfig].
func (f funcListenConfig) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	return f(ctx, network, address)
}

// loopbackAddr returns the loopback address of the only listener of e.
func loopbackAddr(t *testing.T, e *Engine) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	require.Len(t, e.listeners, 1)
	for l := range e.listeners {
		ap, err := netip.ParseAddrPort(l.Addr().String())
		require.NoError(t, err)
		return netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), ap.Port()).String()
	}
	return ""
}

// pollUntil runs the poll loop until cond returns true or a few seconds pass.
func pollUntil(t *testing.T, e *Engine, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		require.True(t, time.Now().Before(deadline), "condition not met in time")
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_ = e.Wait(ctx)
		cancel()
		e.Poll()
	}
}
