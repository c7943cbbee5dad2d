// SPDX-License-Identifier: GPL-3.0-or-later

package serversock

import "fmt"

// OverflowPolicy selects what a [*RingBuffer] does with bytes that
// arrive while it is full.
type OverflowPolicy int

const (
	// DropNewest discards the bytes that do not fit. The bytes already
	// buffered are left untouched. This is the default.
	DropNewest OverflowPolicy = iota

	// DropOldest evicts the oldest buffered byte for each new byte
	// that would not otherwise fit.
	DropOldest

	// Reject stores only the bytes that fit and never drops any: the
	// producer keeps the rest and retries once the reader made room.
	Reject
)

// String implements [fmt.Stringer].
func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "dropNewest"
	case DropOldest:
		return "dropOldest"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// RingBuffer is a fixed-capacity circular byte queue.
//
// The backing array has a power-of-two size so that indexes wrap with a
// mask. One slot is always left unused to tell "full" from "empty", hence
// the usable capacity is the backing size minus one.
//
// A RingBuffer is not safe for concurrent use.
type RingBuffer struct {
	buf    []byte
	head   int
	mask   int
	policy OverflowPolicy
	tail   int
}

// NewRingBuffer returns a [*RingBuffer] whose backing array holds size
// bytes. The size must be a power of two not smaller than two.
func NewRingBuffer(size int, policy OverflowPolicy) (*RingBuffer, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("serversock: ring buffer size %d is not a power of two >= 2", size)
	}
	switch policy {
	case DropNewest, DropOldest, Reject:
	default:
		return nil, fmt.Errorf("serversock: unknown overflow policy %d", int(policy))
	}
	rb := &RingBuffer{
		buf:    make([]byte, size),
		mask:   size - 1,
		policy: policy,
	}
	return rb, nil
}

// Cap returns the usable capacity.
func (rb *RingBuffer) Cap() int {
	return rb.mask
}

// Len returns the number of buffered bytes.
func (rb *RingBuffer) Len() int {
	return (rb.tail - rb.head) & rb.mask
}

// Free returns the number of bytes that can be pushed without overflowing.
func (rb *RingBuffer) Free() int {
	return rb.mask - rb.Len()
}

// Policy returns the configured [OverflowPolicy].
func (rb *RingBuffer) Policy() OverflowPolicy {
	return rb.policy
}

// Reset empties the buffer.
func (rb *RingBuffer) Reset() {
	rb.head, rb.tail = 0, 0
}

func (rb *RingBuffer) full() bool {
	return (rb.tail+1)&rb.mask == rb.head
}

// Push appends a byte and reports whether it was stored.
//
// When the buffer is full, [DropOldest] evicts the oldest byte and stores
// the new one, while [DropNewest] and [Reject] leave the buffer unchanged
// and return false.
func (rb *RingBuffer) Push(b byte) bool {
	if rb.full() {
		if rb.policy != DropOldest {
			return false
		}
		rb.head = (rb.head + 1) & rb.mask
	}
	rb.buf[rb.tail] = b
	rb.tail = (rb.tail + 1) & rb.mask
	return true
}

// Pop removes and returns the oldest byte. The boolean is false when
// the buffer is empty.
func (rb *RingBuffer) Pop() (byte, bool) {
	if rb.head == rb.tail {
		return 0, false
	}
	b := rb.buf[rb.head]
	rb.head = (rb.head + 1) & rb.mask
	return b, true
}

// Write appends data according to the overflow policy and returns how many
// bytes were stored and how many were lost.
//
// With [DropNewest] the trailing bytes that do not fit are dropped. With
// [DropOldest] every byte is stored and dropped counts the evicted bytes.
// With [Reject] the longest prefix that fits is stored, dropped is zero, and
// data[stored:] is left to the caller.
func (rb *RingBuffer) Write(data []byte) (stored, dropped int) {
	if rb.policy == Reject {
		data = data[:min(len(data), rb.Free())]
	}
	for _, b := range data {
		if rb.policy == DropOldest && rb.full() {
			dropped++
		}
		if !rb.Push(b) {
			dropped++
			continue
		}
		stored++
	}
	return
}

// Read pops up to len(p) bytes into p and returns the count.
func (rb *RingBuffer) Read(p []byte) int {
	n := 0
	for n < len(p) {
		b, ok := rb.Pop()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	return n
}
