package engine

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// testLogger returns a logger that discards output, for tests that
// construct a reader or engine directly rather than going through New.
func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func fixedTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

// fakePort is an in-memory stand-in for the Port Handle. Read mimics the
// real port's short-timeout poll: with nothing buffered it sleeps for
// pollInterval and returns (0, nil), matching go.bug.st/serial's observed
// behavior on a read timeout.
type fakePort struct {
	mu           sync.Mutex
	buf          []byte
	written      []byte
	closed       bool
	pollInterval time.Duration
}

func newFakePort() *fakePort {
	return &fakePort{pollInterval: 2 * time.Millisecond}
}

func (f *fakePort) Read(b []byte) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, io.EOF
	}
	if len(f.buf) == 0 {
		f.mu.Unlock()
		time.Sleep(f.pollInterval)
		return 0, nil
	}
	n := copy(b, f.buf)
	f.buf = f.buf[n:]
	f.mu.Unlock()
	return n, nil
}

func (f *fakePort) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, b...)
	return len(b), nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// feed appends bytes as if the device had just transmitted them.
func (f *fakePort) feed(b []byte) {
	f.mu.Lock()
	f.buf = append(f.buf, b...)
	f.mu.Unlock()
}

func (f *fakePort) writtenBytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.written))
	copy(out, f.written)
	return out
}

func testOpener(p *fakePort) func(device string, baud int) (Port, error) {
	return func(device string, baud int) (Port, error) {
		return p, nil
	}
}
