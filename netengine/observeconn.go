//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/bassosimone/nop/blob/main/observeconn.go
//

package netengine

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
)

// observeConn wraps an accepted [net.Conn] to log its I/O operations.
//
// Reads and writes happen on the engine goroutines and are logged at
// [slog.LevelDebug]; the close is logged at [slog.LevelInfo].
func observeConn(e *Engine, nc net.Conn) net.Conn {
	return &observedConn{
		conn:     nc,
		engine:   e,
		laddr:    safeconn.LocalAddr(nc),
		protocol: safeconn.Network(nc),
		raddr:    safeconn.RemoteAddr(nc),
	}
}

// observedConn observes a [net.Conn].
type observedConn struct {
	closeonce sync.Once
	conn      net.Conn
	engine    *Engine
	laddr     string
	protocol  string
	raddr     string
}

// Close implements [net.Conn].
//
// Subsequent calls return [net.ErrClosed], consistent with Go's standard
// library behavior for closed connections.
func (c *observedConn) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		cfg := c.engine.cfg
		t0 := cfg.TimeNow()
		err = c.conn.Close()
		c.engine.logger.Info(
			"closeDone",
			slog.Any("err", err),
			slog.String("errClass", cfg.ErrClassifier.Classify(err)),
			slog.String("localAddr", c.laddr),
			slog.String("protocol", c.protocol),
			slog.String("remoteAddr", c.raddr),
			slog.Time("t0", t0),
			slog.Time("t", cfg.TimeNow()),
		)
	})
	return
}

// LocalAddr implements [net.Conn].
func (c *observedConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Read implements [net.Conn].
func (c *observedConn) Read(buf []byte) (int, error) {
	cfg := c.engine.cfg
	t0 := cfg.TimeNow()
	count, err := c.conn.Read(buf)
	c.engine.logger.Debug(
		"readDone",
		slog.Int("ioBufferSize", len(buf)),
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", cfg.ErrClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
		slog.Time("t0", t0),
		slog.Time("t", cfg.TimeNow()),
	)
	return count, err
}

// RemoteAddr implements [net.Conn].
func (c *observedConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline implements [net.Conn].
func (c *observedConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline implements [net.Conn].
func (c *observedConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline implements [net.Conn].
func (c *observedConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// Write implements [net.Conn].
func (c *observedConn) Write(data []byte) (int, error) {
	cfg := c.engine.cfg
	t0 := cfg.TimeNow()
	count, err := c.conn.Write(data)
	c.engine.logger.Debug(
		"writeDone",
		slog.Int("ioBufferSize", len(data)),
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", cfg.ErrClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
		slog.Time("t0", t0),
		slog.Time("t", cfg.TimeNow()),
	)
	return count, err
}
