// SPDX-License-Identifier: GPL-3.0-or-later

// Package netengine implements [serversock.Engine] on top of the [net] package.
//
// The [*Engine] runs one goroutine accepting on each listener plus a reader
// and a writer goroutine for each accepted connection. These goroutines never
// call into the [serversock.EventSink] directly. Instead, they post events
// into a queue that the application drains by calling [*Engine.Poll] from
// the goroutine driving the [*serversock.Pool], typically:
//
//	for {
//		ctx, cancel := context.WithTimeout(ctx, pool.Timing().Timeout)
//		_ = engine.Wait(ctx)
//		cancel()
//		engine.Poll()
//		// read from and write to the pool
//	}
//
// This preserves the execution model the pool relies on: callbacks and
// application calls never overlap.
//
// Each connection has a bounded send queue of [Config.SendBufferSize] bytes.
// [serversock.Endpoint.Headroom] reports its free space, Enqueue copies into
// it and Flush wakes the writer. A graceful Close lets the writer drain the
// queue before closing the socket.
//
// Each connection reads at most [Config.ReceiveWindow] bytes the sink has not
// acknowledged yet, and the reader waits for [serversock.Endpoint.Acknowledge]
// once the window is full. A sink must therefore acknowledge what it keeps.
//
// When a sink refuses a received segment, the engine keeps the bytes the
// sink did not acknowledge, appends any data arriving meanwhile, and delivers
// them again on the next Poll. The window bounds this backlog.
package netengine
