// hwserial/ringbuffer.go

package hwserial

import "sync/atomic"

// BufferSize is the storage size of a receive ring. One slot always stays
// free so that head == tail means empty, which leaves BufferSize-1 usable bytes.
const BufferSize = 128

// RingBuffer is a fixed-size byte ring shared by exactly one producer (the
// receive interrupt) and one consumer (foreground code). The producer is the
// only writer of head, the consumer the only writer of tail, and each side
// loads the other's index atomically (see ringIndex), so no lock is needed on
// either side.
//
// Access goes through the Producer and Consumer views; RingBuffer itself only
// exposes read-only accessors.
type RingBuffer struct {
	buf     [BufferSize]byte
	head    ringIndex     // next free slot, written by the producer
	tail    ringIndex     // next unread slot, written by the consumer
	dropped atomic.Uint32 // pushes discarded because the ring was full
}

// NewRingBuffer returns a new, empty ring buffer.
func NewRingBuffer() *RingBuffer {
	return &RingBuffer{}
}

// Size returns the storage size of the buffer in bytes.
func (rb *RingBuffer) Size() int { return BufferSize }

// Used returns how many unread bytes are in the buffer.
func (rb *RingBuffer) Used() int {
	return used(rb.head.Load(), rb.tail.Load())
}

// Dropped returns the number of bytes discarded because the buffer was full.
// The counter only grows and wraps at 2^32.
func (rb *RingBuffer) Dropped() uint32 { return rb.dropped.Load() }

// Producer returns the write side of the buffer. It must only be used from
// the receive interrupt.
func (rb *RingBuffer) Producer() Producer { return Producer{rb: rb} }

// Consumer returns the read side of the buffer. It must only be used from
// foreground code.
func (rb *RingBuffer) Consumer() Consumer { return Consumer{rb: rb} }

func used(head, tail uint32) int {
	return int((BufferSize + head - tail) % BufferSize)
}

// Producer is the interrupt-side view of a RingBuffer.
type Producer struct{ rb *RingBuffer }

// Push stores a byte. If the buffer is full the byte is discarded: the bytes
// already buffered are kept and the newest one is lost. Push never blocks and
// reports whether the byte was stored only for bookkeeping; callers in
// interrupt context have nobody to report a loss to.
func (p Producer) Push(val byte) bool {
	rb := p.rb
	h := rb.head.Load()
	next := (h + 1) % BufferSize
	if next == rb.tail.Load() { // full
		rb.dropped.Add(1)
		return false
	}
	rb.buf[h] = val     // 1) write data
	rb.head.Store(next) // 2) publish
	return true
}

// Consumer is the foreground view of a RingBuffer.
type Consumer struct{ rb *RingBuffer }

// Pop removes and returns the oldest byte. It returns (0, false) when empty.
func (c Consumer) Pop() (byte, bool) {
	rb := c.rb
	t := rb.tail.Load()
	if rb.head.Load() == t {
		return 0, false
	}
	v := rb.buf[t]                      // 1) read current element
	rb.tail.Store((t + 1) % BufferSize) // 2) publish consumption
	return v, true
}

// Peek returns the oldest byte without removing it.
func (c Consumer) Peek() (byte, bool) {
	rb := c.rb
	t := rb.tail.Load()
	if rb.head.Load() == t {
		return 0, false
	}
	return rb.buf[t], true
}

// Count returns the number of unread bytes. A concurrent Push can only make
// the true count larger than the returned value.
func (c Consumer) Count() int { return c.rb.Used() }

// Clear discards all unread bytes by moving tail up to head. Bytes pushed
// concurrently with Clear may or may not survive it.
func (c Consumer) Clear() {
	c.rb.tail.Store(c.rb.head.Load())
}
