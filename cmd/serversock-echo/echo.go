// SPDX-License-Identifier: GPL-3.0-or-later

package main

import "github.com/bassosimone/serversock"

// echoer echoes back what each client sends.
//
// A write may be truncated to the engine headroom, so the bytes not yet
// sent are kept per client and retried on the next poll. While a client
// has a backlog, nothing more is read from it.
type echoer struct {
	backlog [][]byte
	buf     []byte
	pool    *serversock.Pool
}

func newEchoer(pool *serversock.Pool) *echoer {
	return &echoer{
		backlog: make([][]byte, pool.MaxServers()*pool.MaxListenClients()),
		buf:     make([]byte, 512),
		pool:    pool,
	}
}

// serve runs one round over every client slot.
func (e *echoer) serve() {
	for server := range e.pool.MaxServers() {
		for client := range e.pool.MaxListenClients() {
			e.serveClient(server, client)
		}
	}
}

func (e *echoer) serveClient(server, client int) {
	slot := server*e.pool.MaxListenClients() + client

	// Errors are recorded asynchronously: release the slot on the next poll.
	status, _ := e.pool.ClientStatus(server, client)
	if cerr, _ := e.pool.ClientErr(server, client); status == serversock.StatusConnected && cerr != nil {
		_ = e.pool.DisconnectClient(server, client)
		e.backlog[slot] = nil
		return
	}
	if !e.pool.IsConnected(server, client) {
		return
	}

	if len(e.backlog[slot]) <= 0 {
		count, err := e.pool.ReadBytes(server, client, e.buf)
		if err != nil {
			return
		}
		e.backlog[slot] = append(e.backlog[slot][:0], e.buf[:count]...)
	}

	written, err := e.pool.WriteBytes(server, client, e.backlog[slot])
	if err != nil {
		return
	}
	e.backlog[slot] = e.backlog[slot][written:]
}
