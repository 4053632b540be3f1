package engine

import (
	"sync"
	"time"
)

// DefaultIdleThreshold is the inter-byte gap that marks the boundary
// between two async packets.
const DefaultIdleThreshold = 100 * time.Millisecond

// packetizer accumulates Idle-mode bytes into a rolling buffer and emits a
// packet whenever the idle threshold elapses with a non-empty buffer, on a
// forced mode-switch flush (I3), or on shutdown (component E).
type packetizer struct {
	mu        sync.Mutex
	buf       []byte
	lastRx    time.Time
	threshold time.Duration
	store     *asyncStore
}

func newPacketizer(threshold time.Duration, store *asyncStore) *packetizer {
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}
	return &packetizer{threshold: threshold, store: store}
}

// append adds bytes to the rolling buffer and records the arrival time.
func (p *packetizer) append(b []byte, ts time.Time) {
	p.mu.Lock()
	p.buf = append(p.buf, b...)
	p.lastRx = ts
	p.mu.Unlock()
}

// maybeFlushIdle emits a packet if the buffer is non-empty and the idle
// threshold has elapsed since the last byte arrived. Called every Reader
// loop iteration regardless of whether bytes arrived that iteration.
func (p *packetizer) maybeFlushIdle(now time.Time) {
	p.mu.Lock()
	if len(p.buf) == 0 || now.Sub(p.lastRx) < p.threshold {
		p.mu.Unlock()
		return
	}
	b := p.buf
	p.buf = nil
	ts := p.lastRx
	p.mu.Unlock()

	p.store.publish(newAsyncPacket(b, ts))
}

// flush unconditionally emits whatever is buffered, if anything. Used for
// the mode-switch forced flush (I3) and the shutdown flush.
func (p *packetizer) flush() {
	p.mu.Lock()
	if len(p.buf) == 0 {
		p.mu.Unlock()
		return
	}
	b := p.buf
	p.buf = nil
	ts := p.lastRx
	p.mu.Unlock()

	p.store.publish(newAsyncPacket(b, ts))
}
