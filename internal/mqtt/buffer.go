package mqtt

import "log"

// ringBuffer is a fixed-capacity FIFO holding payloads that could not
// be published while the broker was unreachable. Oldest entries are
// dropped on overflow. Not safe for concurrent use — caller must
// synchronize.
type ringBuffer struct {
	buf      [][]byte
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any payload was dropped since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		buf:      make([][]byte, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(payload []byte) {
	if r.count == r.capacity {
		if !r.overflow {
			log.Printf("mqtt: buffer full (%d records), dropping oldest", r.capacity)
			r.overflow = true
		}
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = payload
		r.head = (r.head + 1) % r.capacity
		// count stays at capacity
		return
	}
	r.buf[r.head] = payload
	r.head = (r.head + 1) % r.capacity
	r.count++
}

func (r *ringBuffer) drainAll() [][]byte {
	if r.count == 0 {
		return nil
	}

	result := make([][]byte, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
