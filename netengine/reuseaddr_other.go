//go:build !unix

// SPDX-License-Identifier: GPL-3.0-or-later

package netengine

import "syscall"

// reuseAddrControl is a no-op where SO_REUSEADDR semantics differ.
func reuseAddrControl(network, address string, rc syscall.RawConn) error {
	return nil
}
