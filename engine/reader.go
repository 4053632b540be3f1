package engine

import (
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultReadChunkSize bounds a single port read.
const DefaultReadChunkSize = 4096

// DefaultReadPollInterval is the short read timeout that lets the Reader
// poll Mode and the shutdown signal responsively even when the port itself
// has no data ready (component A's "short read timeout" requirement). The
// Reader does not apply it itself: it relies on Port.Read returning within
// that interval, which package port arranges with its own equal
// DefaultReadTimeout.
const DefaultReadPollInterval = 20 * time.Millisecond

// reader is the single background task that owns all reads from the Port
// Handle (I1: producer singularity) and demultiplexes bytes according to
// Mode (component B).
type reader struct {
	port       io.Reader
	mode       *modeGate
	syncCh     *syncChannel
	packetizer *packetizer
	chunkSize  int
	log        *log.Logger

	stopCh chan struct{}
	doneCh chan struct{}

	// fault records a terminal I/O error observed by the Reader; the
	// Engine consults it to decide whether the connection is still good.
	fault error
}

func newReader(port io.Reader, mode *modeGate, syncCh *syncChannel, pk *packetizer, chunkSize int, logger *log.Logger) *reader {
	if chunkSize <= 0 {
		chunkSize = DefaultReadChunkSize
	}
	return &reader{
		port:       port,
		mode:       mode,
		syncCh:     syncCh,
		packetizer: pk,
		chunkSize:  chunkSize,
		log:        logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// start launches the Reader's loop in its own goroutine.
func (r *reader) start() {
	go r.loop()
}

// stop asserts the shutdown signal and blocks until the loop has exited
// and performed its final flush.
func (r *reader) stop() {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
	<-r.doneCh
}

func (r *reader) loop() {
	defer close(r.doneCh)

	buf := make([]byte, r.chunkSize)

	for {
		select {
		case <-r.stopCh:
			r.packetizer.flush()
			return
		default:
		}

		n, err := r.port.Read(buf)
		now := time.Now()
		inSync := r.mode.load() == ModeSync

		if inSync {
			// I3: mode-switch flush. Any Idle-mode bytes buffered before
			// Sync began are delivered as one final async packet on the
			// first iteration that observes Sync, whether or not that
			// iteration read any bytes, and so always before a Sync-mode
			// chunk reaches the Sync Channel. flush is a no-op when the
			// packetizer is already empty, so this is unconditional.
			r.packetizer.flush()
		}

		if n > 0 {
			chunk := ByteChunk{Data: append([]byte(nil), buf[:n]...), Timestamp: now}

			if inSync {
				r.syncCh.push(chunk)
			} else {
				r.packetizer.append(chunk.Data, chunk.Timestamp)
			}
		}

		// Idle-timer check happens every iteration, whether or not bytes
		// arrived, so the packetizer never starves waiting for the next
		// read to notice the gap has closed.
		r.packetizer.maybeFlushIdle(now)

		if err != nil {
			if isTimeoutErr(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				r.fault = errConnection("port closed", err)
				r.packetizer.flush()
				return
			}
			r.log.Error("serial read failed", "err", err)
			r.fault = errConnection("serial read failed", err)
			r.packetizer.flush()
			return
		}
	}
}

// isTimeoutErr reports whether err is the expected short-read timeout
// rather than a real fault. go.bug.st/serial surfaces this as a plain
// zero-byte, nil-error return on timeout, but some platforms or the mock
// port used in tests may return a net.Error-shaped timeout instead.
func isTimeoutErr(err error) bool {
	type timeout interface{ Timeout() bool }
	var t timeout
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}
