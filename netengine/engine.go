// SPDX-License-Identifier: GPL-3.0-or-later

package netengine

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/bassosimone/safeconn"
	"github.com/bassosimone/serversock"
	"github.com/eapache/queue"
)

// ErrSendBufferFull is returned by Enqueue when the data exceeds the headroom.
var ErrSendBufferFull = errors.New("netengine: send buffer full")

// ErrNotListening is returned when using a listening endpoint that was not bound.
var ErrNotListening = errors.New("netengine: endpoint not bound")

// ErrNotConnection is returned when sending through a listening endpoint.
var ErrNotConnection = errors.New("netengine: not a connected endpoint")

// eventKind is the kind of an [event].
type eventKind int

const (
	eventAccept eventKind = iota
	eventReceive
	eventError
)

// event is posted by the I/O goroutines and dispatched by [*Engine.Poll].
type event struct {
	conn     *conn
	data     []byte
	err      error
	kind     eventKind
	listener *listener
	netConn  net.Conn
}

// Engine is a [serversock.Engine] backed by the [net] package.
//
// Construct using [New]. Poll and the [serversock.Endpoint] methods must be
// called from the goroutine driving the pool. Wait and Close may be called
// from any goroutine.
type Engine struct {
	cfg    *Config
	logger serversock.SLogger
	notify chan struct{}

	// stalled holds the connections with a refused segment; it is only
	// accessed by the goroutine calling Poll.
	stalled []*conn

	// wg tracks the I/O goroutines.
	wg sync.WaitGroup

	// mu protects the fields below.
	mu        sync.Mutex
	closed    bool
	conns     map[*conn]struct{}
	events    *queue.Queue
	listeners map[*listener]struct{}
}

var _ serversock.Engine = &Engine{}

// New returns a new [*Engine].
//
// The logger argument is the [serversock.SLogger] to use for structured logging.
func New(cfg *Config, logger serversock.SLogger) *Engine {
	return &Engine{
		cfg:       cfg,
		logger:    logger,
		notify:    make(chan struct{}, 1),
		conns:     make(map[*conn]struct{}),
		events:    queue.New(),
		listeners: make(map[*listener]struct{}),
	}
}

// Allocate implements [serversock.Engine].
func (e *Engine) Allocate() (serversock.Endpoint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, net.ErrClosed
	}
	l := &listener{engine: e}
	e.listeners[l] = struct{}{}
	return l, nil
}

// post enqueues an event and wakes up [*Engine.Wait].
func (e *Engine) post(ev event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		if ev.netConn != nil {
			ev.netConn.Close()
		}
		return
	}
	e.events.Add(ev)
	e.mu.Unlock()
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

func (e *Engine) next() (event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.events.Length() <= 0 {
		return event{}, false
	}
	return e.events.Remove().(event), true
}

// Pending returns the number of events waiting for [*Engine.Poll].
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events.Length()
}

// Wait blocks until at least one event is pending or the context is done.
func (e *Engine) Wait(ctx context.Context) error {
	for {
		if e.Pending() > 0 {
			return nil
		}
		select {
		case <-e.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Poll delivers the pending events to the registered sinks and returns how
// many it delivered. Refused segments are delivered again first.
func (e *Engine) Poll() int {
	count := 0
	stalled := e.stalled
	e.stalled = nil
	for _, c := range stalled {
		c.redeliver()
		count++
	}
	for {
		ev, ok := e.next()
		if !ok {
			return count
		}
		e.dispatch(ev)
		count++
	}
}

func (e *Engine) dispatch(ev event) {
	switch ev.kind {
	case eventAccept:
		e.dispatchAccept(ev.listener, ev.netConn)
	case eventReceive:
		ev.conn.deliver(ev.data)
	case eventError:
		if ev.conn != nil {
			ev.conn.deliverError(ev.err)
			return
		}
		if sink := ev.listener.sink; sink != nil {
			sink.OnError(ev.listener, ev.err)
		}
	}
}

func (e *Engine) dispatchAccept(l *listener, nc net.Conn) {
	t0 := e.cfg.TimeNow()
	c := newConn(e, observeConn(e, nc))
	err := ErrNotListening
	if l.sink != nil {
		err = l.sink.OnAccept(c)
	}
	e.logger.Info(
		"acceptDone",
		slog.Any("err", err),
		slog.String("errClass", e.cfg.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(nc)),
		slog.String("protocol", safeconn.Network(nc)),
		slog.String("remoteAddr", safeconn.RemoteAddr(nc)),
		slog.Time("t0", t0),
		slog.Time("t", e.cfg.TimeNow()),
	)
	if err != nil {
		c.Abort()
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		c.Abort()
		return
	}
	e.conns[c] = struct{}{}
	e.wg.Go(c.readLoop)
	e.wg.Go(c.writeLoop)
	e.mu.Unlock()
}

func (e *Engine) forget(c *conn) {
	e.mu.Lock()
	delete(e.conns, c)
	e.mu.Unlock()
}

// Close closes every listener and connection, waits for the I/O goroutines
// to terminate and discards the pending events. The engine cannot be
// used afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return net.ErrClosed
	}
	e.closed = true
	listeners := make([]*listener, 0, len(e.listeners))
	for l := range e.listeners {
		listeners = append(listeners, l)
	}
	conns := make([]*conn, 0, len(e.conns))
	for c := range e.conns {
		conns = append(conns, c)
	}
	for e.events.Length() > 0 {
		if ev := e.events.Remove().(event); ev.netConn != nil {
			ev.netConn.Close()
		}
	}
	e.mu.Unlock()

	for _, l := range listeners {
		l.Abort()
	}
	for _, c := range conns {
		c.Abort()
	}
	e.wg.Wait()
	return nil
}
