package engine

import "sync/atomic"

// Mode is the engine's two-state routing flag. Exactly one value is active
// at any instant; transitions are totally ordered via atomic store/load so
// the Reader observes a flip no later than one read iteration after it.
type Mode int32

const (
	// ModeIdle routes incoming bytes to the Async Packetizer.
	ModeIdle Mode = iota
	// ModeSync routes incoming bytes to the Sync Channel.
	ModeSync
)

func (m Mode) String() string {
	if m == ModeSync {
		return "sync"
	}
	return "idle"
}

// modeGate is the atomic, two-state gate shared between the Reader and the
// Sync Controller (component C in the design doc).
type modeGate struct {
	v int32 // atomic Mode
}

func newModeGate() *modeGate {
	return &modeGate{v: int32(ModeIdle)}
}

func (g *modeGate) load() Mode {
	return Mode(atomic.LoadInt32(&g.v))
}

func (g *modeGate) store(m Mode) {
	atomic.StoreInt32(&g.v, int32(m))
}
