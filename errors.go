// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import "errors"

// Errors returned by [*Pool] methods.
//
// Failures reported by the engine are wrapped together with one of these
// sentinels, so callers may use [errors.Is] with either.
var (
	// ErrNotInitialized means [*Pool.Init] has not been called yet.
	ErrNotInitialized = errors.New("serversock: pool not initialized")

	// ErrWrongSocketNumber means the server index is out of range.
	ErrWrongSocketNumber = errors.New("serversock: wrong socket number")

	// ErrWrongClientNumber means the client index is out of range.
	ErrWrongClientNumber = errors.New("serversock: wrong client number")

	// ErrJustConnected means the server is already in use.
	ErrJustConnected = errors.New("serversock: socket already connected")

	// ErrNotConnected means the addressed server or client is not connected.
	ErrNotConnected = errors.New("serversock: not connected")

	// ErrConnectionFail means the engine failed to allocate or listen.
	ErrConnectionFail = errors.New("serversock: connection failed")

	// ErrBindFail means the engine refused to bind the requested port.
	ErrBindFail = errors.New("serversock: bind failed")

	// ErrDisconnectionFail means the engine failed to close an endpoint.
	ErrDisconnectionFail = errors.New("serversock: disconnection failed")

	// ErrBufferFull means there is no room for the data.
	ErrBufferFull = errors.New("serversock: buffer full")

	// ErrBufferNoData means the receive buffer is empty.
	ErrBufferNoData = errors.New("serversock: no data available")
)
