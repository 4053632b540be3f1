package engine

import "time"

// AsyncPacket is a self-contained device-initiated message, delimited by an
// inter-byte idle interval. Immutable once created; destroyed when drained
// by ReadAsyncMessages.
type AsyncPacket struct {
	Bytes     []byte
	Text      string
	IsHex     bool
	Timestamp time.Time
}

func newAsyncPacket(b []byte, ts time.Time) AsyncPacket {
	cp := make([]byte, len(b))
	copy(cp, b)
	text, isHex := decodeBytes(cp)
	return AsyncPacket{
		Bytes:     cp,
		Text:      text,
		IsHex:     isHex,
		Timestamp: ts,
	}
}
