// SPDX-License-Identifier: GPL-3.0-or-later

package netengine

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"

	"github.com/bassosimone/serversock"
)

// conn is a connected [serversock.Endpoint].
type conn struct {
	credit   chan struct{}
	done     chan struct{}
	doneOnce sync.Once
	engine   *Engine
	nc       net.Conn
	wake     chan struct{}

	// These fields are only accessed by the goroutine calling Poll.
	acked      int
	pendingEOF bool
	refused    []byte
	sink       serversock.EventSink

	// mu protects the fields below.
	mu          sync.Mutex
	closing     bool
	inflight    int
	outstanding int
	pending     []byte
}

var _ serversock.Endpoint = &conn{}

func newConn(e *Engine, nc net.Conn) *conn {
	return &conn{
		credit: make(chan struct{}, 1),
		done:   make(chan struct{}),
		engine: e,
		nc:     nc,
		wake:   make(chan struct{}, 1),
	}
}

// Bind implements [serversock.Endpoint].
func (c *conn) Bind(addr netip.Addr, port uint16) error {
	return ErrNotListening
}

// Listen implements [serversock.Endpoint].
func (c *conn) Listen() error {
	return ErrNotListening
}

// Register implements [serversock.Endpoint].
func (c *conn) Register(sink serversock.EventSink) {
	c.sink = sink
}

// Headroom implements [serversock.Endpoint].
func (c *conn) Headroom() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return 0
	}
	return max(0, c.engine.cfg.SendBufferSize-len(c.pending)-c.inflight)
}

// Enqueue implements [serversock.Endpoint].
func (c *conn) Enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return net.ErrClosed
	}
	if len(data) > c.engine.cfg.SendBufferSize-len(c.pending)-c.inflight {
		return ErrSendBufferFull
	}
	c.pending = append(c.pending, data...)
	return nil
}

// Flush implements [serversock.Endpoint].
func (c *conn) Flush() error {
	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()
	if closing {
		return net.ErrClosed
	}
	c.signal()
	return nil
}

// Acknowledge implements [serversock.Endpoint].
//
// Acknowledged bytes leave the receive window, so the reader may
// resume reading from the socket.
func (c *conn) Acknowledge(n int) {
	if n <= 0 {
		return
	}
	c.acked += n
	c.mu.Lock()
	c.outstanding = max(0, c.outstanding-n)
	c.mu.Unlock()
	select {
	case c.credit <- struct{}{}:
	default:
	}
}

// Close implements [serversock.Endpoint].
//
// The writer sends the queued data and then closes the socket.
func (c *conn) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return net.ErrClosed
	}
	c.closing = true
	c.mu.Unlock()
	c.signal()
	return nil
}

// Abort implements [serversock.Endpoint].
func (c *conn) Abort() {
	c.mu.Lock()
	c.closing = true
	c.pending = nil
	c.mu.Unlock()
	c.release()
}

func (c *conn) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// release closes the socket and stops the I/O goroutines.
func (c *conn) release() {
	c.doneOnce.Do(func() {
		close(c.done)
		c.nc.Close()
		c.engine.forget(c)
	})
}

func (c *conn) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

// window returns how many bytes the reader may read before the sink
// acknowledges what it already received.
func (c *conn) window() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.cfg.ReceiveWindow - c.outstanding
}

func (c *conn) readLoop() {
	buf := make([]byte, c.engine.cfg.ReadBufferSize)
	for {
		avail := c.window()
		if avail <= 0 {
			select {
			case <-c.credit:
				continue
			case <-c.done:
				return
			}
		}
		count, err := c.nc.Read(buf[:min(len(buf), avail)])
		if count > 0 {
			c.mu.Lock()
			c.outstanding += count
			c.mu.Unlock()
			c.engine.post(event{kind: eventReceive, conn: c, data: bytes.Clone(buf[:count])})
		}
		if err == nil {
			continue
		}
		switch {
		case c.isClosing():
			// the local side initiated the close
		case errors.Is(err, io.EOF):
			c.engine.post(event{kind: eventReceive, conn: c})
		default:
			c.engine.post(event{kind: eventError, conn: c, err: err})
			c.release()
		}
		return
	}
}

func (c *conn) writeLoop() {
	for {
		select {
		case <-c.wake:
		case <-c.done:
			return
		}
		for {
			c.mu.Lock()
			buf, closing := c.pending, c.closing
			c.pending = nil
			c.inflight = len(buf)
			c.mu.Unlock()

			if len(buf) <= 0 {
				if closing {
					c.release()
					return
				}
				break
			}

			_, err := c.nc.Write(buf)
			c.mu.Lock()
			c.inflight = 0
			c.mu.Unlock()
			if err != nil {
				if !c.isClosing() {
					c.engine.post(event{kind: eventError, conn: c, err: err})
				}
				c.release()
				return
			}
		}
	}
}

// deliver passes received data, or the peer close when data is nil, to the sink.
func (c *conn) deliver(data []byte) {
	if c.sink == nil {
		return
	}
	if c.refused != nil {
		if data == nil {
			c.pendingEOF = true
		}
		c.refused = append(c.refused, data...)
		return
	}
	if data == nil {
		_ = c.sink.OnReceive(c, nil, nil)
		return
	}
	c.offer(data)
}

// offer passes data to the sink and keeps the bytes it did not acknowledge
// when it refuses them. It returns whether the sink took all of data.
func (c *conn) offer(data []byte) bool {
	before := c.acked
	err := c.sink.OnReceive(c, data, nil)
	consumed := c.acked - before
	if err == nil || consumed >= len(data) {
		return true
	}
	c.refused = bytes.Clone(data[max(0, consumed):])
	c.engine.stalled = append(c.engine.stalled, c)
	return false
}

// redeliver passes the refused data to the sink again.
func (c *conn) redeliver() {
	data := c.refused
	c.refused = nil
	if c.sink == nil {
		return
	}
	if !c.offer(data) {
		return
	}
	if c.pendingEOF {
		c.pendingEOF = false
		c.deliver(nil)
	}
}

func (c *conn) deliverError(err error) {
	if sink := c.sink; sink != nil {
		c.sink = nil
		sink.OnError(c, err)
	}
}
