// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import (
	"fmt"
	"log/slog"
	"time"
)

// DisconnectClient closes a single client of a server.
//
// It returns [ErrNotConnected] when the client is not [StatusConnected]. When
// the engine fails to close the endpoint, the client stays connected and the
// error wraps [ErrDisconnectionFail]; the caller may retry.
//
// Closing the last client carrying a recorded error moves a server in
// [StatusError] back to [StatusConnected], unless the engine released the
// listening endpoint.
func (p *Pool) DisconnectClient(server, client int) error {
	srv, c, err := p.client(server, client)
	if err != nil {
		return err
	}
	if c.status != StatusConnected {
		return ErrNotConnected
	}
	if err := p.closeClient(srv, c); err != nil {
		return fmt.Errorf("%w: %w", ErrDisconnectionFail, err)
	}
	srv.nclients--
	if srv.status == StatusError && srv.endpoint != nil && !p.hasRecordedErrors(srv) {
		srv.status = StatusConnected
	}
	return nil
}

// closeClient unregisters the sink and requests a graceful close, unless
// the engine already released the endpoint. On success the client enters
// [StatusDisconnected]. The connected count is left to the caller.
func (p *Pool) closeClient(srv *serverRecord, c *clientRecord) error {
	t0 := p.timeNow()
	p.logClientCloseStart(srv, c, t0)
	var err error
	if !c.dead {
		c.endpoint.Register(nil)
		err = c.endpoint.Close()
	}
	p.logClientCloseDone(srv, c, t0, err)
	if err != nil {
		return err
	}
	c.dead = false
	c.endpoint = nil
	c.status = StatusDisconnected
	return nil
}

func (p *Pool) hasRecordedErrors(srv *serverRecord) bool {
	for _, c := range p.partition(srv) {
		if c.status == StatusConnected && c.err != nil {
			return true
		}
	}
	return false
}

// ClientStatus returns the [Status] of a client.
func (p *Pool) ClientStatus(server, client int) (Status, error) {
	_, c, err := p.client(server, client)
	if err != nil {
		return StatusEmpty, err
	}
	return c.status, nil
}

// ClientErr returns the last error the engine reported for a client, which
// is [io.EOF] when the peer closed the connection. The error is cleared
// when the slot is reused by a new connection.
func (p *Pool) ClientErr(server, client int) (error, error) {
	_, c, err := p.client(server, client)
	if err != nil {
		return nil, err
	}
	return c.err, nil
}

// Available returns the number of buffered bytes of a connected client.
func (p *Pool) Available(server, client int) (int, error) {
	c, err := p.connected(server, client)
	if err != nil {
		return 0, err
	}
	return c.rx.Len(), nil
}

// Read pops one byte from the receive buffer of a connected client.
//
// It returns [ErrBufferNoData] when the buffer is empty.
func (p *Pool) Read(server, client int) (byte, error) {
	c, err := p.connected(server, client)
	if err != nil {
		return 0, err
	}
	b, ok := c.rx.Pop()
	if !ok {
		return 0, ErrBufferNoData
	}
	return b, nil
}

// ReadBytes pops up to len(buf) bytes from the receive buffer of a
// connected client and returns how many were copied into buf.
//
// ReadBytes never waits for more data. It returns [ErrBufferNoData] when
// buf is not empty and the buffer is.
func (p *Pool) ReadBytes(server, client int, buf []byte) (int, error) {
	c, err := p.connected(server, client)
	if err != nil {
		return 0, err
	}
	if len(buf) > 0 && c.rx.Len() == 0 {
		return 0, ErrBufferNoData
	}
	return c.rx.Read(buf), nil
}

func (p *Pool) logClientCloseStart(srv *serverRecord, c *clientRecord, t0 time.Time) {
	p.logger.Info(
		"closeStart",
		slog.Int("clientIndex", c.index),
		slog.Int("serverIndex", srv.index),
		slog.String("spanID", c.spanID),
		slog.Time("t", t0),
	)
}

func (p *Pool) logClientCloseDone(srv *serverRecord, c *clientRecord, t0 time.Time, err error) {
	p.logger.Info(
		"closeDone",
		slog.Int("clientIndex", c.index),
		slog.Bool("engineReleased", c.dead),
		slog.Any("err", err),
		slog.String("errClass", p.errClassifier.Classify(err)),
		slog.Int("serverIndex", srv.index),
		slog.String("spanID", c.spanID),
		slog.Time("t0", t0),
		slog.Time("t", p.timeNow()),
	)
}
