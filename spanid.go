// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 representing a span.
//
// The pool opens a span each time a server starts listening and each time a
// client slot is bound to an accepted connection. Every log event about that
// server or client carries the span ID in the spanID field, so that a whole
// connection lifetime can be extracted from the logs.
//
// The span terminology is borrowed from OTel.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
