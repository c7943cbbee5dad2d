// SPDX-License-Identifier: GPL-3.0-or-later

package serversock_test

import (
	"context"
	"log/slog"
	"net/netip"
	"testing"

	"github.com/bassosimone/serversock"
	"github.com/bassosimone/serversock/enginestub"
	"github.com/bassosimone/slogstub"
	"github.com/stretchr/testify/require"
)

// newCapturingLogger returns a logger that captures all log records into the
// returned slice. The caller can inspect the slice after exercising the code
// under test to verify which events were emitted.
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

// messages returns the message of each captured record.
func messages(records []slog.Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.Message)
	}
	return out
}

// attrs returns the attributes of a captured record by key.
func attrs(record slog.Record) map[string]slog.Value {
	out := make(map[string]slog.Value)
	record.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value
		return true
	})
	return out
}

// testListener is a listening endpoint that records the registered sink.
type testListener struct {
	*enginestub.FuncEndpoint
	aborted  int
	addr     netip.Addr
	closeErr error
	closed   int
	port     uint16
	sink     serversock.EventSink
}

func newTestListener() *testListener {
	l := &testListener{}
	l.FuncEndpoint = &enginestub.FuncEndpoint{
		AbortFunc: func() {
			l.aborted++
		},
		BindFunc: func(addr netip.Addr, port uint16) error {
			l.addr, l.port = addr, port
			return nil
		},
		CloseFunc: func() error {
			l.closed++
			return l.closeErr
		},
		ListenFunc: func() error {
			return nil
		},
		RegisterFunc: func(sink serversock.EventSink) {
			l.sink = sink
		},
	}
	return l
}

// accept simulates the engine accepting a new connection.
func (l *testListener) accept(t *testing.T) (*testConn, error) {
	require.NotNil(t, l.sink, "no sink registered on the listener")
	c := newTestConn()
	return c, l.sink.OnAccept(c.FuncEndpoint)
}

// testConn is a connected endpoint recording what the pool does with it.
type testConn struct {
	*enginestub.FuncEndpoint
	acked      int
	closeErr   error
	closed     int
	enqueueErr error
	flushErr   error
	flushed    int
	headroom   int
	sent       []byte
	sink       serversock.EventSink
}

func newTestConn() *testConn {
	c := &testConn{headroom: 1 << 16}
	c.FuncEndpoint = &enginestub.FuncEndpoint{
		AcknowledgeFunc: func(n int) {
			c.acked += n
		},
		CloseFunc: func() error {
			c.closed++
			return c.closeErr
		},
		EnqueueFunc: func(data []byte) error {
			if c.enqueueErr != nil {
				return c.enqueueErr
			}
			c.sent = append(c.sent, data...)
			c.headroom -= len(data)
			return nil
		},
		FlushFunc: func() error {
			c.flushed++
			return c.flushErr
		},
		HeadroomFunc: func() int {
			return c.headroom
		},
		RegisterFunc: func(sink serversock.EventSink) {
			c.sink = sink
		},
	}
	return c
}

// receive simulates the engine delivering data to the registered sink.
func (c *testConn) receive(t *testing.T, data []byte) error {
	require.NotNil(t, c.sink, "no sink registered on the conn")
	return c.sink.OnReceive(c.FuncEndpoint, data, nil)
}

// testEngine allocates [*testListener] endpoints.
type testEngine struct {
	*enginestub.FuncEngine
	allocErr  error
	listeners []*testListener
	next      func() *testListener
}

func newTestEngine() *testEngine {
	e := &testEngine{next: newTestListener}
	e.FuncEngine = &enginestub.FuncEngine{
		AllocateFunc: func() (serversock.Endpoint, error) {
			if e.allocErr != nil {
				return nil, e.allocErr
			}
			l := e.next()
			e.listeners = append(e.listeners, l)
			return l.FuncEndpoint, nil
		},
	}
	return e
}

// last returns the most recently allocated listener.
func (e *testEngine) last(t *testing.T) *testListener {
	require.NotEmpty(t, e.listeners)
	return e.listeners[len(e.listeners)-1]
}

// newTestPool returns an initialized pool with two clients per server and
// a seven bytes receive buffer, after applying mutate to the config.
func newTestPool(t *testing.T, logger serversock.SLogger, mutate func(cfg *serversock.Config)) (*serversock.Pool, *testEngine) {
	cfg := serversock.NewConfig()
	cfg.MaxServers = 2
	cfg.MaxListenClients = 2
	cfg.BufferCapacity = 7
	if mutate != nil {
		mutate(cfg)
	}
	engine := newTestEngine()
	pool, err := serversock.NewPool(cfg, engine.FuncEngine, logger)
	require.NoError(t, err)
	pool.Init(serversock.InitConfig{})
	return pool, engine
}
