// Package port realizes the Port Handle (component A): it owns the OS
// serial descriptor and exposes raw, blocking-with-short-timeout read and
// full-buffer write, backed by go.bug.st/serial. Port enumeration is a
// pass-through to go.bug.st/serial/enumerator, which already reports the
// {port, description, hardware_id} shape the list_ports tool needs.
package port

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"serialbridge/engine"
)

// DefaultBaud is the baud rate used when the caller does not specify one.
const DefaultBaud = 115200

// DefaultReadTimeout is the short per-read timeout so the Reader can poll
// Mode and the shutdown signal responsively (spec.md §4.A).
const DefaultReadTimeout = 20 * time.Millisecond

// nativePort adapts go.bug.st/serial's Port to engine.Port.
type nativePort struct {
	p serial.Port
}

// Open opens device at baud with 8/N/1 framing and the short read timeout
// component A calls for. baud<=0 uses DefaultBaud.
func Open(device string, baud int) (engine.Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if err := p.SetReadTimeout(DefaultReadTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", device, err)
	}
	return &nativePort{p: p}, nil
}

func (n *nativePort) Read(b []byte) (int, error)  { return n.p.Read(b) }
func (n *nativePort) Write(b []byte) (int, error) { return n.p.Write(b) }
func (n *nativePort) Close() error                { return n.p.Close() }

// Info is one entry of list_ports' result.
type Info struct {
	Port        string
	Description string
	HardwareID  string
}

// List enumerates the host's serial ports (the list_ports tool operation).
// A device lacking USB descriptors (e.g. a bare tty) still gets an entry
// with an empty Description/HardwareID.
func List() ([]Info, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}

	out := make([]Info, 0, len(details))
	for _, d := range details {
		info := Info{Port: d.Name}
		if d.IsUSB {
			parts := make([]string, 0, 2)
			if d.Product != "" {
				parts = append(parts, d.Product)
			}
			if d.SerialNumber != "" {
				parts = append(parts, "SN:"+d.SerialNumber)
			}
			info.Description = strings.Join(parts, " ")
			info.HardwareID = fmt.Sprintf("USB VID:PID=%s:%s", d.VID, d.PID)
		}
		out = append(out, info)
	}
	return out, nil
}
