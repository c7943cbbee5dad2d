// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import (
	"fmt"
	"log/slog"
	"time"
)

// Write sends a single byte to a connected client.
//
// It returns [ErrBufferFull] when the engine has no room for it.
func (p *Pool) Write(server, client int, b byte) error {
	_, err := p.WriteBytes(server, client, []byte{b})
	return err
}

// WriteBytes sends data to a connected client and returns how many bytes
// the engine accepted.
//
// When data is larger than the engine headroom, only the first headroom
// bytes are sent and the call succeeds: the caller must check the count and
// submit the rest later. With zero headroom, or when the engine rejects the
// data, WriteBytes returns [ErrBufferFull] and nothing is sent.
//
// The data is copied by the engine, so the caller may reuse it as soon as
// WriteBytes returns.
func (p *Pool) WriteBytes(server, client int, data []byte) (int, error) {
	c, err := p.connected(server, client)
	if err != nil {
		return 0, err
	}
	if len(data) <= 0 {
		return 0, nil
	}

	t0 := p.timeNow()
	size := len(data)
	headroom := c.endpoint.Headroom()
	if headroom <= 0 {
		p.logWriteDone(c, t0, size, headroom, 0, ErrBufferFull)
		return 0, ErrBufferFull
	}
	data = data[:min(size, headroom)]

	if err := c.endpoint.Enqueue(data); err != nil {
		err = fmt.Errorf("%w: %w", ErrBufferFull, err)
		p.logWriteDone(c, t0, size, headroom, 0, err)
		return 0, err
	}
	if err := c.endpoint.Flush(); err != nil {
		// the data is queued and the engine will send it with the next flush
		p.logger.Debug(
			"flushDone",
			slog.Int("clientIndex", c.index),
			slog.Any("err", err),
			slog.String("errClass", p.errClassifier.Classify(err)),
			slog.Int("serverIndex", c.server),
			slog.String("spanID", c.spanID),
			slog.Time("t", p.timeNow()),
		)
	}

	p.counters.sentBytes.Add(uint64(len(data)))
	p.logWriteDone(c, t0, size, headroom, len(data), nil)
	return len(data), nil
}

// logWriteDone logs the requested size, the engine headroom at the time
// of the call and the number of bytes the engine accepted.
func (p *Pool) logWriteDone(c *clientRecord, t0 time.Time, size, headroom, count int, err error) {
	p.logger.Debug(
		"writeDone",
		slog.Int("clientIndex", c.index),
		slog.Any("err", err),
		slog.String("errClass", p.errClassifier.Classify(err)),
		slog.Int("headroom", headroom),
		slog.Int("ioBufferSize", size),
		slog.Int("ioBytesCount", count),
		slog.Int("serverIndex", c.server),
		slog.String("spanID", c.spanID),
		slog.Time("t0", t0),
		slog.Time("t", p.timeNow()),
	)
}
