// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import (
	"errors"
	"time"
)

// serverRecord is the state of a server slot.
type serverRecord struct {
	endpoint Endpoint
	index    int
	nclients int
	port     uint16
	spanID   string
	status   Status
}

// clientRecord is the state of a client slot.
type clientRecord struct {
	// dead is set when the engine released the endpoint on its own.
	dead     bool
	endpoint Endpoint
	err      error
	index    int
	rx       *RingBuffer
	server   int
	spanID   string
	status   Status
}

// Pool owns a fixed number of server slots, each with a fixed number of
// client slots and one receive [*RingBuffer] per client slot.
//
// Construct using [NewPool] and then call [*Pool.Init] once.
//
// Servers are addressed by index in [0, MaxServers). Clients are addressed
// by index in [0, MaxListenClients) relative to their server.
//
// A Pool is not safe for concurrent use. The engine must deliver its
// [EventSink] callbacks from the goroutine driving the pool, never while a
// Pool method is running. Only [*Pool.Stats] may be called concurrently.
type Pool struct {
	clients          []clientRecord
	counters         counters
	engine           Engine
	errClassifier    ErrClassifier
	initialized      bool
	logger           SLogger
	maxListenClients int
	servers          []serverRecord
	timeNow          func() time.Time
	timing           InitConfig
}

// NewPool creates a [*Pool] with the sizing in cfg bound to the given engine.
//
// The logger argument is the [SLogger] to use for structured logging.
//
// All the records are allocated here, in the [StatusEmpty] status. The
// pool performs no further allocation of slots or buffers.
func NewPool(cfg *Config, engine Engine, logger SLogger) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, errors.New("serversock: nil engine")
	}
	p := &Pool{
		clients:          make([]clientRecord, cfg.MaxServers*cfg.MaxListenClients),
		engine:           engine,
		errClassifier:    cfg.ErrClassifier,
		logger:           logger,
		maxListenClients: cfg.MaxListenClients,
		servers:          make([]serverRecord, cfg.MaxServers),
		timeNow:          cfg.TimeNow,
	}
	for idx := range p.servers {
		p.servers[idx].index = idx
	}
	for slot := range p.clients {
		rx, err := NewRingBuffer(cfg.BufferCapacity+1, cfg.OverflowPolicy)
		if err != nil {
			return nil, err
		}
		p.clients[slot].index = slot % cfg.MaxListenClients
		p.clients[slot].rx = rx
		p.clients[slot].server = slot / cfg.MaxListenClients
	}
	return p, nil
}

// Init stores the poll loop timing and moves every record to [StatusInit]
// with an empty buffer. Calling Init again is a no-op.
func (p *Pool) Init(cfg InitConfig) {
	if p.initialized {
		return
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	p.timing = cfg
	for idx := range p.servers {
		p.servers[idx].status = StatusInit
	}
	for slot := range p.clients {
		p.clients[slot].rx.Reset()
		p.clients[slot].status = StatusInit
	}
	p.initialized = true
}

// Timing returns the [InitConfig] stored by [*Pool.Init], with the
// default timeout applied.
func (p *Pool) Timing() InitConfig {
	return p.timing
}

// MaxServers returns the number of server slots.
func (p *Pool) MaxServers() int {
	return len(p.servers)
}

// MaxListenClients returns the number of client slots of each server.
func (p *Pool) MaxListenClients() int {
	return p.maxListenClients
}

// Stats returns a snapshot of the pool counters.
//
// Unlike the other methods, Stats is safe to call from any goroutine.
func (p *Pool) Stats() Stats {
	return p.counters.snapshot()
}

// server validates the server index.
func (p *Pool) server(index int) (*serverRecord, error) {
	if !p.initialized {
		return nil, ErrNotInitialized
	}
	if index < 0 || index >= len(p.servers) {
		return nil, ErrWrongSocketNumber
	}
	return &p.servers[index], nil
}

// client validates both indexes.
func (p *Pool) client(server, client int) (*serverRecord, *clientRecord, error) {
	srv, err := p.server(server)
	if err != nil {
		return nil, nil, err
	}
	if client < 0 || client >= p.maxListenClients {
		return nil, nil, ErrWrongClientNumber
	}
	return srv, p.clientAt(srv, client), nil
}

// clientAt returns the client record at the given index of the server partition.
func (p *Pool) clientAt(srv *serverRecord, client int) *clientRecord {
	return &p.clients[srv.index*p.maxListenClients+client]
}

// partition returns the client records owned by srv.
func (p *Pool) partition(srv *serverRecord) []clientRecord {
	base := srv.index * p.maxListenClients
	return p.clients[base : base+p.maxListenClients]
}

// IsConnected returns whether both indexes are valid, the server is
// [StatusConnected] and the client is [StatusConnected].
func (p *Pool) IsConnected(server, client int) bool {
	srv, c, err := p.client(server, client)
	if err != nil {
		return false
	}
	return srv.status == StatusConnected && c.status == StatusConnected
}

// connected is the guard of the data path operations.
func (p *Pool) connected(server, client int) (*clientRecord, error) {
	srv, c, err := p.client(server, client)
	if err != nil {
		return nil, err
	}
	if srv.status != StatusConnected || c.status != StatusConnected {
		return nil, ErrNotConnected
	}
	return c, nil
}
