// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import "sync/atomic"

// Stats is a snapshot of the [*Pool] counters.
//
// The counters are monotonic over the pool lifetime.
type Stats struct {
	// Accepted counts connections bound to a client slot.
	Accepted uint64

	// AcceptRejected counts connections refused because the server was
	// full or not accepting.
	AcceptRejected uint64

	// ReceivedBytes counts bytes delivered by the engine.
	ReceivedBytes uint64

	// DroppedBytes counts received bytes lost to buffer overflow.
	DroppedBytes uint64

	// RejectedSegments counts segments the [Reject] overflow policy
	// handed back to the engine, in whole or in part.
	RejectedSegments uint64

	// RecordedErrors counts engine errors and peer closes recorded on
	// client slots.
	RecordedErrors uint64

	// SentBytes counts bytes accepted by the engine send queue.
	SentBytes uint64
}

// counters holds the live counters.
//
// They are the only state of the pool that may be read from another
// goroutine, hence they are atomic.
type counters struct {
	accepted         atomic.Uint64
	acceptRejected   atomic.Uint64
	receivedBytes    atomic.Uint64
	droppedBytes     atomic.Uint64
	rejectedSegments atomic.Uint64
	recordedErrors   atomic.Uint64
	sentBytes        atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Accepted:         c.accepted.Load(),
		AcceptRejected:   c.acceptRejected.Load(),
		ReceivedBytes:    c.receivedBytes.Load(),
		DroppedBytes:     c.droppedBytes.Load(),
		RejectedSegments: c.rejectedSegments.Load(),
		RecordedErrors:   c.recordedErrors.Load(),
		SentBytes:        c.sentBytes.Load(),
	}
}
