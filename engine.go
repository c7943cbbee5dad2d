// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import "net/netip"

// Engine abstracts the event-driven TCP engine.
//
// The [*Pool] allocates one [Endpoint] per listening server. Client
// endpoints are created by the engine and handed over through
// [EventSink.OnAccept].
type Engine interface {
	Allocate() (Endpoint, error)
}

// Endpoint is a TCP endpoint owned by the engine.
//
// Listening endpoints use Bind, Listen, Register and Close. Connected
// endpoints use Register, Headroom, Enqueue, Flush, Acknowledge and Close.
//
// Implementations must not invoke the registered [EventSink] while a
// [*Pool] method is running: callbacks are delivered from the same
// goroutine that drives the pool, between calls.
type Endpoint interface {
	// Bind binds the endpoint to the given local address and port.
	Bind(addr netip.Addr, port uint16) error

	// Listen puts a bound endpoint into listening mode.
	Listen() error

	// Close requests a graceful close. On failure the endpoint is still
	// owned by the caller, who may retry.
	Close() error

	// Abort releases the endpoint immediately and cannot fail.
	Abort()

	// Register installs the sink receiving events for this endpoint.
	// Passing nil unregisters the current sink.
	Register(sink EventSink)

	// Headroom returns how many bytes Enqueue currently accepts.
	Headroom() int

	// Enqueue copies data into the send queue. The caller may reuse
	// data as soon as Enqueue returns.
	Enqueue(data []byte) error

	// Flush asks the engine to transmit the queued data now.
	Flush() error

	// Acknowledge tells the engine that n received bytes were consumed,
	// so it can reopen the receive window. Bytes delivered to OnReceive
	// and never acknowledged are still owned by the engine.
	Acknowledge(n int)
}

// EventSink receives the engine notifications for one [Endpoint].
type EventSink interface {
	// OnAccept is invoked on a listening endpoint for each new connection.
	// Returning an error tells the engine to refuse the connection.
	OnAccept(conn Endpoint) error

	// OnReceive is invoked on a connected endpoint when data arrives. A nil
	// data with a nil err means that the peer closed the connection. When
	// OnReceive returns an error for non-nil data, the engine keeps the bytes
	// that were not acknowledged during the call and delivers them again later.
	OnReceive(conn Endpoint, data []byte, err error) error

	// OnError is invoked when the engine has released the endpoint
	// because of a fatal error. The endpoint must not be used again.
	OnError(conn Endpoint, err error)
}
