// SPDX-License-Identifier: GPL-3.0-or-later

// Package serversock provides a pool of listening TCP servers for poll loops.
//
// # Core Abstraction
//
// A [*Pool] owns MaxServers server slots. Each server owns MaxListenClients
// client slots, and each client slot owns a fixed-capacity receive
// [*RingBuffer]. Everything is allocated once, by [NewPool].
//
// The pool sits on top of an event-driven TCP [Engine]. The engine allocates
// endpoints and reports accepted connections, received data, and fatal
// errors through the [EventSink] the pool registers on each [Endpoint]. The
// application never sees those callbacks: it polls the pool by index.
//
// # Lifecycle
//
// A server moves through these states:
//
//	Init -> WaitConnection -> Connected -> Disconnected
//	              |               |
//	              +---> Error <---+
//
// [*Pool.Connect] allocates, binds to the IPv4 wildcard address, and listens.
// The first accepted client moves the server to [StatusConnected]. A peer
// close or an engine error on any client moves the server to [StatusError]
// and records the error on the client, see [*Pool.ClientErr]. Releasing
// that client with [*Pool.DisconnectClient], or accepting a new client,
// moves the server back to [StatusConnected]. [*Pool.Disconnect] closes everything; when some close
// fails the server stays in [StatusClosePending] and Disconnect may be
// called again.
//
// # Data Path
//
//   - [*Pool.Available], [*Pool.Read], and [*Pool.ReadBytes] consume the
//     receive buffer of a connected client.
//   - [*Pool.Write] and [*Pool.WriteBytes] hand data to the engine send queue,
//     truncated to the engine headroom.
//
// Received data is acknowledged to the engine when the callback runs. What
// happens when a receive buffer is full depends on the [OverflowPolicy] in
// [Config]: the drop policies acknowledge the whole segment, while [Reject]
// acknowledges the bytes that fit and leaves the rest to the engine.
//
// # Concurrency
//
// A [*Pool] is single-threaded: the engine must deliver callbacks from the
// goroutine that calls the pool methods, between calls. The netengine
// subpackage implements this by queueing events until the application
// calls its Poll method. Only [*Pool.Stats] may be read concurrently, which
// the prommetrics subpackage uses to export Prometheus counters.
//
// # Observability
//
// All operations accept an [SLogger] for structured logging. Lifecycle
// events (listen, accept, close, engine errors) are logged at Info level;
// per-I/O events (receive, write) at Debug level.
//
// Each server and client record gets a span ID (UUIDv7) when it is bound to
// a new endpoint, so that log lines about the same connection correlate.
//
// Errors are classified using [ErrClassifier], which maps errors to short
// labels such as "ECONNRESET". The default classifier returns an empty
// string; use github.com/bassosimone/errclass for a real one.
package serversock
