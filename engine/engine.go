// Package engine implements the protocol-agnostic serial-port I/O engine:
// concurrent ingestion, mode-switched demultiplexing, idle-timer
// packetizing, encoding-adaptive framing, and the four synchronous wait
// policies (KEYWORD, TIMEOUT, NONE, AT_COMMAND) described by the design
// this module implements. It hard-codes no device protocol; callers
// interpret `send_data`'s returned text however their protocol requires.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Port is what the engine needs from a Port Handle: raw read/write and a
// close. Implementations (e.g. package port's serial.Port wrapper) may
// offer more; the engine only ever touches this surface, preserving I1
// (the Reader is the sole reader of it).
type Port interface {
	io.Reader
	io.Writer
	io.Closer
}

// Config holds the tunables spec.md §6 lists as defaults, each overridable
// by the caller or by package config's viper-backed loader.
type Config struct {
	ReadChunkSize          int
	IdleThreshold          time.Duration
	AsyncStoreCapacity     int
	SyncChannelCapacity    int
	ResponseBufferCapacity int
	DisconnectGracePeriod  time.Duration
	Logger                 *log.Logger
}

// DefaultConfig returns the engine defaults from spec.md §6.
func DefaultConfig() Config {
	return Config{
		ReadChunkSize:          DefaultReadChunkSize,
		IdleThreshold:          DefaultIdleThreshold,
		AsyncStoreCapacity:     DefaultAsyncStoreCapacity,
		SyncChannelCapacity:    DefaultSyncChannelCapacity,
		ResponseBufferCapacity: DefaultResponseBufferCapacity,
		DisconnectGracePeriod:  250 * time.Millisecond,
		Logger:                 log.New(os.Stderr),
	}
}

// Engine is the process-wide driver instance. One Engine owns exactly one
// open port at a time. Construct with New, then Connect before sending.
type Engine struct {
	cfg Config
	log *log.Logger

	mode   *modeGate
	syncCh *syncChannel
	pk     *packetizer
	store  *asyncStore

	// connMu guards the fields below: the live port, the Reader, and the
	// connection's device/baud so Connect/Disconnect/Status are coherent.
	connMu  sync.Mutex
	port    Port
	rd      *reader
	device  string
	baud    int
	lastErr error

	// sendMu serializes concurrent SendData calls: only one in-flight
	// synchronous command at a time (component G's send mutex).
	sendMu sync.Mutex
}

// New constructs an unopened Engine with the given configuration. Zero
// values in cfg fall back to the package defaults.
func New(cfg Config) *Engine {
	d := DefaultConfig()
	if cfg.ReadChunkSize > 0 {
		d.ReadChunkSize = cfg.ReadChunkSize
	}
	if cfg.IdleThreshold > 0 {
		d.IdleThreshold = cfg.IdleThreshold
	}
	if cfg.AsyncStoreCapacity > 0 {
		d.AsyncStoreCapacity = cfg.AsyncStoreCapacity
	}
	if cfg.SyncChannelCapacity > 0 {
		d.SyncChannelCapacity = cfg.SyncChannelCapacity
	}
	if cfg.ResponseBufferCapacity > 0 {
		d.ResponseBufferCapacity = cfg.ResponseBufferCapacity
	}
	if cfg.DisconnectGracePeriod > 0 {
		d.DisconnectGracePeriod = cfg.DisconnectGracePeriod
	}
	if cfg.Logger != nil {
		d.Logger = cfg.Logger
	}

	store := newAsyncStore(d.AsyncStoreCapacity)
	return &Engine{
		cfg:    d,
		log:    d.Logger,
		mode:   newModeGate(),
		syncCh: newSyncChannel(d.SyncChannelCapacity),
		pk:     newPacketizer(d.IdleThreshold, store),
		store:  store,
	}
}

// PortOpener abstracts opening a named serial port at a given baud rate, so
// the engine package stays decoupled from any one serial library (package
// port supplies the go.bug.st/serial-backed implementation).
type PortOpener func(device string, baud int) (Port, error)

// Connect opens the port via opener and starts the Reader. Connect on an
// already-open Engine with matching parameters is a no-op; with different
// parameters it is an error (spec.md's Mode state diagram).
func (e *Engine) Connect(opener PortOpener, device string, baud int) error {
	e.connMu.Lock()
	defer e.connMu.Unlock()

	if e.port != nil && !e.connectedLocked() {
		// The Reader recorded a fatal fault and has exited: release the
		// dead port so this call opens the device afresh.
		e.rd.stop()
		_ = e.port.Close()
		e.port = nil
		e.rd = nil
	}

	if e.port != nil {
		if e.device == device && e.baud == baud {
			return nil
		}
		return errConnection(fmt.Sprintf("already connected to %s; close first", e.device), nil)
	}

	p, err := opener(device, baud)
	if err != nil {
		return errConnection(fmt.Sprintf("failed to open %s", device), err)
	}

	e.port = p
	e.device = device
	e.baud = baud
	e.lastErr = nil
	e.rd = newReader(p, e.mode, e.syncCh, e.pk, e.cfg.ReadChunkSize, e.log)
	e.rd.start()

	e.log.Info("connected", "device", device, "baud", baud)
	return nil
}

// Disconnect stops the Reader (waiting up to the configured grace period
// for it to acknowledge the shutdown signal) and releases the port. Safe
// to call when already closed.
func (e *Engine) Disconnect(ctx context.Context) error {
	e.connMu.Lock()
	defer e.connMu.Unlock()

	if e.port == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		e.rd.stop()
		close(done)
	}()

	grace := e.cfg.DisconnectGracePeriod
	select {
	case <-done:
	case <-time.After(grace):
		e.log.Warn("reader did not acknowledge shutdown within grace period, forcing close", "grace", grace)
	case <-ctx.Done():
	}

	err := e.port.Close()
	e.port = nil
	e.rd = nil
	e.device = ""
	e.baud = 0
	e.log.Info("disconnected")
	if err != nil {
		return errConnection("failed to close port", err)
	}
	return nil
}

// connectedLocked reports whether the port is currently open (the caller
// holds connMu), also surfacing a
// Reader-observed fatal fault as a closed connection (§7 propagation
// policy: the Reader never raises to the caller directly, it records the
// fault and the Engine treats the connection as closed from then on).
func (e *Engine) connectedLocked() bool {
	if e.port == nil {
		return false
	}
	if e.rd != nil && e.rd.fault != nil {
		e.lastErr = e.rd.fault
		return false
	}
	return true
}

// Status is the connection status snapshot (SPEC_FULL §9 supplement).
type Status struct {
	Connected bool
	Device    string
	Baud      int
	LastError error
}

func (e *Engine) Status() Status {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return Status{
		Connected: e.connectedLocked(),
		Device:    e.device,
		Baud:      e.baud,
		LastError: e.lastErr,
	}
}

// SendResult is send_data's success payload (spec.md §6).
type SendResult struct {
	OK                 bool
	DataText           string
	RawBytes           []byte
	IsHex              bool
	MatchedStopPattern *bool
	MatchedTerminator  string
	BytesReceived      int
	Truncated          bool
	PendingAsyncCount  int
}

// SendData implements the send(payload_bytes, policy, stop_pattern?,
// timeout_ms?) operation (component G).
func (e *Engine) SendData(ctx context.Context, text string, enc Encoding, policy WaitPolicy, stopPattern string, timeoutMs int) (*SendResult, error) {
	payload, err := encodePayload(text, enc)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 && policy != PolicyNone {
		return nil, errData("empty payload when policy requires one", nil)
	}

	var stopBytes []byte
	switch policy {
	case PolicyKeyword:
		if stopPattern == "" {
			return nil, errInvalidInput("keyword policy requires a non-empty stop_pattern")
		}
		stopBytes, err = encodePayload(stopPattern, enc)
		if err != nil {
			return nil, err
		}
	case PolicyTimeout:
		// timeoutMs required; 0 is valid (return immediately).
	case PolicyNone, PolicyATCommand:
		// no required extra input
	default:
		return nil, errInvalidInput(fmt.Sprintf("unknown wait policy %q", policy))
	}

	if !e.Status().Connected {
		return nil, errConnection("port is not connected", nil)
	}

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	e.connMu.Lock()
	if !e.connectedLocked() {
		e.connMu.Unlock()
		return nil, errConnection("port is not connected", e.lastErr)
	}
	port := e.port
	e.connMu.Unlock()

	// Flip Idle -> Sync before writing (component C's ordering contract).
	e.mode.store(ModeSync)
	e.syncCh.drainStale()

	if err := writeFull(port, payload); err != nil {
		e.mode.store(ModeIdle)
		return nil, errConnection("write failed", err)
	}

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)

	var res collectResult
	switch policy {
	case PolicyKeyword:
		res = runKeyword(ctx, e.syncCh, stopBytes, deadline, e.cfg.ResponseBufferCapacity)
	case PolicyATCommand:
		res = runATCommand(ctx, e.syncCh, deadline, e.cfg.ResponseBufferCapacity)
	case PolicyTimeout:
		res = runTimeout(ctx, e.syncCh, deadline, e.cfg.ResponseBufferCapacity)
	case PolicyNone:
		// Return immediately; the response lands in the async stream
		// because Mode flips back to Idle right away.
	}

	// Flip Sync -> Idle after consuming from the Sync Channel (I4: any
	// leftover chunks belong to the completed command's wake-trailer and
	// are discarded, not re-delivered).
	e.mode.store(ModeIdle)
	e.syncCh.drainStale()

	if e.syncCh.overflowed() {
		e.log.Error("sync channel overflow: controller fell behind the reader")
		return nil, errSystem("sync channel capacity exceeded", nil)
	}

	respText, isHex := decodeBytes(res.buf)
	pending := e.store.pending()

	out := &SendResult{
		OK:                true,
		DataText:          respText,
		RawBytes:          res.buf,
		IsHex:             isHex,
		BytesReceived:     len(res.buf),
		Truncated:         res.truncated,
		PendingAsyncCount: pending,
	}
	if policy == PolicyKeyword || policy == PolicyATCommand {
		matched := res.matched
		out.MatchedStopPattern = &matched
		out.MatchedTerminator = res.matchedOn
	}
	return out, nil
}

// writeFull writes the entire buffer, retrying on partial writes until
// done or a fatal error (spec.md §4.G step 5).
func writeFull(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("write made no progress")
		}
		data = data[n:]
	}
	return nil
}

// ReadAsyncResult is read_async_messages's success payload.
type ReadAsyncResult struct {
	Packets []AsyncPacket
	Dropped uint64
}

// ReadAsyncMessages drains the Async Store atomically.
func (e *Engine) ReadAsyncMessages() *ReadAsyncResult {
	packets, dropped := e.store.drain()
	return &ReadAsyncResult{Packets: packets, Dropped: dropped}
}
