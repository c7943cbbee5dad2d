// SPDX-License-Identifier: GPL-3.0-or-later

package enginestub

import (
	"net/netip"

	"github.com/bassosimone/serversock"
)

// FuncEngine implements [serversock.Engine] using a function field.
type FuncEngine struct {
	AllocateFunc func() (serversock.Endpoint, error)
}

var _ serversock.Engine = &FuncEngine{}

// Allocate implements [serversock.Engine].
func (e *FuncEngine) Allocate() (serversock.Endpoint, error) {
	return e.AllocateFunc()
}

// FuncEndpoint implements [serversock.Endpoint] using function fields.
type FuncEndpoint struct {
	AbortFunc       func()
	AcknowledgeFunc func(n int)
	BindFunc        func(addr netip.Addr, port uint16) error
	CloseFunc       func() error
	EnqueueFunc     func(data []byte) error
	FlushFunc       func() error
	HeadroomFunc    func() int
	ListenFunc      func() error
	RegisterFunc    func(sink serversock.EventSink)
}

var _ serversock.Endpoint = &FuncEndpoint{}

// Abort implements [serversock.Endpoint].
func (ep *FuncEndpoint) Abort() {
	ep.AbortFunc()
}

// Acknowledge implements [serversock.Endpoint].
func (ep *FuncEndpoint) Acknowledge(n int) {
	ep.AcknowledgeFunc(n)
}

// Bind implements [serversock.Endpoint].
func (ep *FuncEndpoint) Bind(addr netip.Addr, port uint16) error {
	return ep.BindFunc(addr, port)
}

// Close implements [serversock.Endpoint].
func (ep *FuncEndpoint) Close() error {
	return ep.CloseFunc()
}

// Enqueue implements [serversock.Endpoint].
func (ep *FuncEndpoint) Enqueue(data []byte) error {
	return ep.EnqueueFunc(data)
}

// Flush implements [serversock.Endpoint].
func (ep *FuncEndpoint) Flush() error {
	return ep.FlushFunc()
}

// Headroom implements [serversock.Endpoint].
func (ep *FuncEndpoint) Headroom() int {
	return ep.HeadroomFunc()
}

// Listen implements [serversock.Endpoint].
func (ep *FuncEndpoint) Listen() error {
	return ep.ListenFunc()
}

// Register implements [serversock.Endpoint].
func (ep *FuncEndpoint) Register(sink serversock.EventSink) {
	ep.RegisterFunc(sink)
}

// FuncEventSink implements [serversock.EventSink] using function fields.
type FuncEventSink struct {
	OnAcceptFunc  func(conn serversock.Endpoint) error
	OnErrorFunc   func(conn serversock.Endpoint, err error)
	OnReceiveFunc func(conn serversock.Endpoint, data []byte, err error) error
}

var _ serversock.EventSink = &FuncEventSink{}

// OnAccept implements [serversock.EventSink].
func (s *FuncEventSink) OnAccept(conn serversock.Endpoint) error {
	return s.OnAcceptFunc(conn)
}

// OnError implements [serversock.EventSink].
func (s *FuncEventSink) OnError(conn serversock.Endpoint, err error) {
	s.OnErrorFunc(conn, err)
}

// OnReceive implements [serversock.EventSink].
func (s *FuncEventSink) OnReceive(conn serversock.Endpoint, data []byte, err error) error {
	return s.OnReceiveFunc(conn, data, err)
}
