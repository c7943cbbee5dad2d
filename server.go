// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import (
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"go.uber.org/multierr"
)

// Connect starts listening on the given port using the given server slot.
//
// The engine allocates an endpoint, binds it to the IPv4 wildcard address
// and puts it into listening mode. On success the server enters
// [StatusWaitConnection] and accepts up to MaxListenClients clients.
//
// Connect returns [ErrJustConnected] while the server still owns an endpoint
// or connected clients, [ErrConnectionFail] when the engine fails to allocate
// or listen, and [ErrBindFail] when the engine rejects the port.
func (p *Pool) Connect(server int, port uint16) error {
	srv, err := p.server(server)
	if err != nil {
		return err
	}
	if srv.endpoint != nil || srv.status == StatusConnected ||
		srv.status == StatusClosePending || p.countConnected(srv) > 0 {
		return ErrJustConnected
	}

	srv.port = port
	srv.spanID = NewSpanID()
	t0 := p.timeNow()
	p.logListenStart(srv, t0)

	ep, err := p.listen(port)
	p.logListenDone(srv, t0, err)
	if err != nil {
		if ep == nil {
			srv.status = StatusError
		}
		return err
	}

	srv.endpoint = ep
	srv.nclients = 0
	srv.status = StatusWaitConnection
	ep.Register(serverSink{pool: p, server: srv.index})
	return nil
}

// listen allocates, binds and listens. On failure after allocation the
// endpoint is aborted and returned so the caller can tell the cases apart.
func (p *Pool) listen(port uint16) (Endpoint, error) {
	ep, err := p.engine.Allocate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFail, err)
	}
	if err := ep.Bind(netip.IPv4Unspecified(), port); err != nil {
		ep.Abort()
		return ep, fmt.Errorf("%w: %w", ErrBindFail, err)
	}
	if err := ep.Listen(); err != nil {
		ep.Abort()
		return ep, fmt.Errorf("%w: %w", ErrConnectionFail, err)
	}
	return ep, nil
}

// Disconnect closes every connected client of the server and then the
// server endpoint itself.
//
// Each client close is attempted exactly once. When every close succeeds,
// the server enters [StatusDisconnected] with zero clients. Otherwise the
// clients that failed stay [StatusConnected], the server enters
// [StatusClosePending] and the returned error wraps [ErrDisconnectionFail]
// along with each failure. Call Disconnect again to retry.
func (p *Pool) Disconnect(server int) error {
	srv, err := p.server(server)
	if err != nil {
		return err
	}
	if srv.endpoint == nil && srv.status != StatusClosePending && p.countConnected(srv) <= 0 {
		return ErrNotConnected
	}

	var failures error
	clients := p.partition(srv)
	for idx := range clients {
		c := &clients[idx]
		if c.status != StatusConnected {
			continue
		}
		failures = multierr.Append(failures, p.closeClient(srv, c))
	}
	srv.nclients = p.countConnected(srv)

	if srv.endpoint != nil {
		srv.endpoint.Register(nil)
		if err := p.closeServer(srv); err != nil {
			failures = multierr.Append(failures, err)
		} else {
			srv.endpoint = nil
		}
	}

	if failures != nil {
		srv.status = StatusClosePending
		return fmt.Errorf("%w: %w", ErrDisconnectionFail, failures)
	}
	srv.nclients = 0
	srv.status = StatusDisconnected
	return nil
}

func (p *Pool) closeServer(srv *serverRecord) error {
	t0 := p.timeNow()
	p.logServerCloseStart(srv, t0)
	err := srv.endpoint.Close()
	p.logServerCloseDone(srv, t0, err)
	return err
}

func (p *Pool) countConnected(srv *serverRecord) int {
	var count int
	for _, c := range p.partition(srv) {
		if c.status == StatusConnected {
			count++
		}
	}
	return count
}

// Clients returns the number of connected clients of a [StatusConnected] server.
func (p *Pool) Clients(server int) (int, error) {
	srv, err := p.server(server)
	if err != nil {
		return 0, err
	}
	if srv.status != StatusConnected {
		return 0, ErrNotConnected
	}
	return srv.nclients, nil
}

// ServerStatus returns the [Status] of a server.
func (p *Pool) ServerStatus(server int) (Status, error) {
	srv, err := p.server(server)
	if err != nil {
		return StatusEmpty, err
	}
	return srv.status, nil
}

func (p *Pool) logListenStart(srv *serverRecord, t0 time.Time) {
	p.logger.Info(
		"listenStart",
		slog.Int("port", int(srv.port)),
		slog.Int("serverIndex", srv.index),
		slog.String("spanID", srv.spanID),
		slog.Time("t", t0),
	)
}

func (p *Pool) logListenDone(srv *serverRecord, t0 time.Time, err error) {
	p.logger.Info(
		"listenDone",
		slog.Any("err", err),
		slog.String("errClass", p.errClassifier.Classify(err)),
		slog.Int("port", int(srv.port)),
		slog.Int("serverIndex", srv.index),
		slog.String("spanID", srv.spanID),
		slog.Time("t0", t0),
		slog.Time("t", p.timeNow()),
	)
}

func (p *Pool) logServerCloseStart(srv *serverRecord, t0 time.Time) {
	p.logger.Info(
		"closeStart",
		slog.Int("port", int(srv.port)),
		slog.Int("serverIndex", srv.index),
		slog.String("spanID", srv.spanID),
		slog.Time("t", t0),
	)
}

func (p *Pool) logServerCloseDone(srv *serverRecord, t0 time.Time, err error) {
	p.logger.Info(
		"closeDone",
		slog.Any("err", err),
		slog.String("errClass", p.errClassifier.Classify(err)),
		slog.Int("port", int(srv.port)),
		slog.Int("serverIndex", srv.index),
		slog.String("spanID", srv.spanID),
		slog.Time("t0", t0),
		slog.Time("t", p.timeNow()),
	)
}
