//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/bassosimone/nop/blob/main/connect.go
//

package netengine

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/bassosimone/serversock"
)

// listener is a listening [serversock.Endpoint].
type listener struct {
	engine *Engine
	ln     net.Listener

	// sink is only accessed by the goroutine calling Poll.
	sink serversock.EventSink
}

var _ serversock.Endpoint = &listener{}

// Addr returns the bound address or nil.
func (l *listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Bind implements [serversock.Endpoint].
//
// The socket is bound and put into the kernel listening state here, because
// the [net] package does not split the two operations. Listen starts
// accepting.
func (l *listener) Bind(addr netip.Addr, port uint16) error {
	if l.ln != nil {
		return errors.New("netengine: endpoint already bound")
	}
	e := l.engine
	address := netip.AddrPortFrom(addr, port).String()
	t0 := e.cfg.TimeNow()
	l.logListenStart(address, t0)
	ln, err := e.cfg.ListenConfig.Listen(context.Background(), "tcp4", address)
	l.logListenDone(address, t0, ln, err)
	if err != nil {
		return err
	}
	l.ln = ln
	return nil
}

// Listen implements [serversock.Endpoint].
func (l *listener) Listen() error {
	if l.ln == nil {
		return ErrNotListening
	}
	e := l.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return net.ErrClosed
	}
	e.wg.Go(l.acceptLoop)
	return nil
}

func (l *listener) acceptLoop() {
	for {
		nc, err := l.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				l.engine.post(event{kind: eventError, listener: l, err: err})
			}
			return
		}
		l.engine.post(event{kind: eventAccept, listener: l, netConn: nc})
	}
}

// Close implements [serversock.Endpoint].
func (l *listener) Close() error {
	e := l.engine
	e.mu.Lock()
	delete(e.listeners, l)
	e.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

// Abort implements [serversock.Endpoint].
func (l *listener) Abort() {
	_ = l.Close()
}

// Register implements [serversock.Endpoint].
func (l *listener) Register(sink serversock.EventSink) {
	l.sink = sink
}

// Headroom implements [serversock.Endpoint].
func (l *listener) Headroom() int {
	return 0
}

// Enqueue implements [serversock.Endpoint].
func (l *listener) Enqueue(data []byte) error {
	return ErrNotConnection
}

// Flush implements [serversock.Endpoint].
func (l *listener) Flush() error {
	return ErrNotConnection
}

// Acknowledge implements [serversock.Endpoint].
func (l *listener) Acknowledge(n int) {
	// nothing
}

func (l *listener) logListenStart(address string, t0 time.Time) {
	l.engine.logger.Info(
		"listenStart",
		slog.String("localAddr", address),
		slog.String("protocol", "tcp"),
		slog.Time("t", t0),
	)
}

func (l *listener) logListenDone(address string, t0 time.Time, ln net.Listener, err error) {
	e := l.engine
	if ln != nil {
		address = ln.Addr().String()
	}
	e.logger.Info(
		"listenDone",
		slog.Any("err", err),
		slog.String("errClass", e.cfg.ErrClassifier.Classify(err)),
		slog.String("localAddr", address),
		slog.String("protocol", "tcp"),
		slog.Time("t0", t0),
		slog.Time("t", e.cfg.TimeNow()),
	)
}
