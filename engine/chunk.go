package engine

import "time"

// ByteChunk is an immutable slice of bytes tagged with its arrival time.
// Only the Reader produces these.
type ByteChunk struct {
	Data      []byte
	Timestamp time.Time
}
