// Package tool implements the four tool-surface operations from spec.md §6
// (list_ports, configure_connection, send_data, read_async_messages) as
// plain Go methods over an *engine.Engine. It is the thin seam the excluded
// JSON-RPC dispatch layer would sit behind; this package does no wire
// framing of its own.
package tool

import (
	"context"
	"fmt"

	"serialbridge/engine"
	"serialbridge/port"
)

// Bridge owns one Engine and exposes the tool surface over it.
type Bridge struct {
	Engine *engine.Engine
}

// New wraps an already-constructed Engine.
func New(e *engine.Engine) *Bridge {
	return &Bridge{Engine: e}
}

// PortsResult is list_ports' success payload.
type PortsResult struct {
	Ports []port.Info
}

// ListPorts enumerates available serial ports.
func (b *Bridge) ListPorts() (*PortsResult, error) {
	infos, err := port.List()
	if err != nil {
		return nil, err
	}
	return &PortsResult{Ports: infos}, nil
}

// ConnectionAction is configure_connection's action selector.
type ConnectionAction string

const (
	ActionOpen  ConnectionAction = "open"
	ActionClose ConnectionAction = "close"
)

// ConnectionResult is configure_connection's success payload.
type ConnectionResult struct {
	Message string
	Port    string
	Baud    int
}

// ConfigureConnection opens or closes the engine's port.
func (b *Bridge) ConfigureConnection(ctx context.Context, action ConnectionAction, devicePath string, baud int) (*ConnectionResult, error) {
	switch action {
	case ActionOpen:
		if devicePath == "" {
			return nil, &engine.Error{Code: engine.CodeInvalidInput, Message: "port is required to open a connection"}
		}
		if err := b.Engine.Connect(port.Open, devicePath, baud); err != nil {
			return nil, err
		}
		st := b.Engine.Status()
		return &ConnectionResult{
			Message: fmt.Sprintf("connected to %s", devicePath),
			Port:    st.Device,
			Baud:    st.Baud,
		}, nil

	case ActionClose:
		if err := b.Engine.Disconnect(ctx); err != nil {
			return nil, err
		}
		return &ConnectionResult{Message: "disconnected"}, nil

	default:
		return nil, &engine.Error{Code: engine.CodeInvalidInput, Message: fmt.Sprintf("unknown action %q: want open or close", action)}
	}
}

// SendData forwards to Engine.SendData; kept as a method here so callers
// only need to depend on package tool for the whole surface.
func (b *Bridge) SendData(ctx context.Context, payload string, enc engine.Encoding, policy engine.WaitPolicy, stopPattern string, timeoutMs int) (*engine.SendResult, error) {
	return b.Engine.SendData(ctx, payload, enc, policy, stopPattern, timeoutMs)
}

// ReadAsyncMessages forwards to Engine.ReadAsyncMessages.
func (b *Bridge) ReadAsyncMessages() *engine.ReadAsyncResult {
	return b.Engine.ReadAsyncMessages()
}
