// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import "fmt"

// Status is the state of a server or client record.
type Status int

const (
	// StatusEmpty is the state of records before [*Pool.Init].
	StatusEmpty Status = iota

	// StatusInit is the state of a record that has never been used.
	StatusInit

	// StatusWaitConnection is the state of a listening server without clients.
	StatusWaitConnection

	// StatusConnected is the state of a server with at least one accepted
	// client and of a client bound to a live engine endpoint.
	StatusConnected

	// StatusDisconnected is the state of a record released by the application.
	StatusDisconnected

	// StatusError is the state of a server after the engine reported an
	// error or a peer close on one of its clients.
	StatusError

	// StatusClosePending is the state of a server whose teardown partially
	// failed. Call [*Pool.Disconnect] again to retry.
	StatusClosePending
)

var statusNames = [...]string{
	StatusEmpty:          "empty",
	StatusInit:           "init",
	StatusWaitConnection: "waitConnection",
	StatusConnected:      "connected",
	StatusDisconnected:   "disconnected",
	StatusError:          "error",
	StatusClosePending:   "closePending",
}

// String implements [fmt.Stringer].
func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}
