// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bassosimone/runtimex"
)

// serverSink is the [EventSink] registered on a listening endpoint.
type serverSink struct {
	pool   *Pool
	server int
}

var _ EventSink = serverSink{}

// OnAccept implements [EventSink].
//
// The connection is bound to the first client slot that is not connected.
// When the server is full the connection is refused with an error wrapping
// [ErrBufferFull], and when it is no longer accepting with an error
// wrapping [ErrNotConnected].
func (s serverSink) OnAccept(conn Endpoint) error {
	p := s.pool
	srv := &p.servers[s.server]
	t0 := p.timeNow()

	if err := p.acceptable(srv); err != nil {
		p.counters.acceptRejected.Add(1)
		p.logAcceptDone(srv, nil, t0, err)
		return err
	}

	var c *clientRecord
	clients := p.partition(srv)
	for idx := range clients {
		if clients[idx].status != StatusConnected {
			c = &clients[idx]
			break
		}
	}
	runtimex.Assert(c != nil)

	c.dead = false
	c.endpoint = conn
	c.err = nil
	c.rx.Reset()
	c.spanID = NewSpanID()
	c.status = StatusConnected
	conn.Register(clientSink{pool: p, slot: srv.index*p.maxListenClients + c.index})

	// The errors recorded on other clients stay visible through ClientErr.
	srv.status = StatusConnected
	srv.nclients++
	p.counters.accepted.Add(1)
	p.logAcceptDone(srv, c, t0, nil)
	return nil
}

// acceptable returns nil when srv can take one more client.
func (p *Pool) acceptable(srv *serverRecord) error {
	switch srv.status {
	case StatusWaitConnection, StatusConnected, StatusError:
	default:
		return fmt.Errorf("%w: server %d is %s", ErrNotConnected, srv.index, srv.status)
	}
	if srv.nclients >= p.maxListenClients {
		return fmt.Errorf("%w: server %d has %d clients", ErrBufferFull, srv.index, srv.nclients)
	}
	return nil
}

// OnReceive implements [EventSink].
//
// Listening endpoints do not carry data.
func (s serverSink) OnReceive(conn Endpoint, data []byte, err error) error {
	return ErrNotConnected
}

// OnError implements [EventSink].
//
// The engine released the listening endpoint: the server can no longer
// accept and must be disconnected by the application.
func (s serverSink) OnError(conn Endpoint, err error) {
	p := s.pool
	srv := &p.servers[s.server]
	srv.endpoint = nil
	p.counters.recordedErrors.Add(1)
	p.logger.Info(
		"engineError",
		slog.Any("err", err),
		slog.String("errClass", p.errClassifier.Classify(err)),
		slog.Int("serverIndex", srv.index),
		slog.String("spanID", srv.spanID),
		slog.Time("t", p.timeNow()),
	)
	if srv.status != StatusClosePending {
		srv.status = StatusError
	}
}

// clientSink is the [EventSink] registered on an accepted endpoint.
type clientSink struct {
	pool *Pool
	slot int
}

var _ EventSink = clientSink{}

// OnAccept implements [EventSink].
//
// Connected endpoints do not accept.
func (s clientSink) OnAccept(conn Endpoint) error {
	return ErrNotConnected
}

// OnReceive implements [EventSink].
//
// Data is stored in the client receive buffer according to the overflow
// policy and acknowledged to the engine in full, even when some bytes were
// dropped. Under the [Reject] policy only the stored prefix is acknowledged;
// when some bytes did not fit, [ErrBufferFull] is returned so that the engine
// delivers the unacknowledged rest again later.
//
// A nil data or a non-nil err means the connection is over: the sink is
// unregistered, the error is recorded on the client, the server enters
// [StatusError], and the application sees it on its next poll.
func (s clientSink) OnReceive(conn Endpoint, data []byte, err error) error {
	p := s.pool
	c := &p.clients[s.slot]
	srv := &p.servers[c.server]
	if c.status != StatusConnected || c.err != nil {
		return ErrNotConnected
	}

	if data == nil || err != nil {
		if err == nil {
			err = io.EOF
		}
		conn.Register(nil)
		p.recordError(srv, c, err)
		return nil
	}

	stored, dropped := c.rx.Write(data)
	p.logReceive(srv, c, len(data), stored, dropped)
	if c.rx.Policy() == Reject {
		conn.Acknowledge(stored)
		p.counters.receivedBytes.Add(uint64(stored))
		if stored < len(data) {
			p.counters.rejectedSegments.Add(1)
			return fmt.Errorf("%w: %d of %d bytes left to the engine", ErrBufferFull, len(data)-stored, len(data))
		}
		return nil
	}
	conn.Acknowledge(len(data))
	p.counters.receivedBytes.Add(uint64(len(data)))
	p.counters.droppedBytes.Add(uint64(dropped))
	return nil
}

// OnError implements [EventSink].
//
// Same as a failed receive, except that the engine already released the
// endpoint, so no close will be requested for it.
func (s clientSink) OnError(conn Endpoint, err error) {
	p := s.pool
	c := &p.clients[s.slot]
	srv := &p.servers[c.server]
	if c.status != StatusConnected || c.dead {
		return
	}
	c.dead = true
	c.endpoint = nil
	if c.err == nil {
		p.recordError(srv, c, err)
	}
}

func (p *Pool) recordError(srv *serverRecord, c *clientRecord, err error) {
	c.err = err
	p.counters.recordedErrors.Add(1)
	p.logger.Info(
		"engineError",
		slog.Int("clientIndex", c.index),
		slog.Any("err", err),
		slog.String("errClass", p.errClassifier.Classify(err)),
		slog.Int("serverIndex", srv.index),
		slog.String("spanID", c.spanID),
		slog.Time("t", p.timeNow()),
	)
	if srv.status != StatusClosePending {
		srv.status = StatusError
	}
}

func (p *Pool) logAcceptDone(srv *serverRecord, c *clientRecord, t0 time.Time, err error) {
	clientIndex, spanID := -1, ""
	if c != nil {
		clientIndex, spanID = c.index, c.spanID
	}
	p.logger.Info(
		"acceptDone",
		slog.Int("clientIndex", clientIndex),
		slog.Any("err", err),
		slog.String("errClass", p.errClassifier.Classify(err)),
		slog.Int("serverIndex", srv.index),
		slog.String("serverSpanID", srv.spanID),
		slog.String("spanID", spanID),
		slog.Time("t0", t0),
		slog.Time("t", p.timeNow()),
	)
}

func (p *Pool) logReceive(srv *serverRecord, c *clientRecord, count, stored, dropped int) {
	p.logger.Debug(
		"receive",
		slog.Int("clientIndex", c.index),
		slog.Int("ioBytesCount", count),
		slog.Int("ioBytesDropped", dropped),
		slog.Int("ioBytesStored", stored),
		slog.String("policy", c.rx.Policy().String()),
		slog.Int("serverIndex", srv.index),
		slog.String("spanID", c.spanID),
		slog.Time("t", p.timeNow()),
	)
}
