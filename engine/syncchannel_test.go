package engine

import (
	"context"
	"testing"
	"time"
)

func TestSyncChannelPopTimesOutWithoutData(t *testing.T) {
	sc := newSyncChannel(4)
	_, ok := sc.pop(context.Background(), time.Now().Add(5*time.Millisecond))
	if ok {
		t.Fatalf("expected timeout pop to report no chunk")
	}
}

func TestSyncChannelPreservesOrder(t *testing.T) {
	sc := newSyncChannel(4)
	sc.push(ByteChunk{Data: []byte("a")})
	sc.push(ByteChunk{Data: []byte("b")})

	c1, ok := sc.pop(context.Background(), time.Now().Add(time.Second))
	if !ok || string(c1.Data) != "a" {
		t.Fatalf("expected first chunk 'a', got %+v ok=%v", c1, ok)
	}
	c2, ok := sc.pop(context.Background(), time.Now().Add(time.Second))
	if !ok || string(c2.Data) != "b" {
		t.Fatalf("expected second chunk 'b', got %+v ok=%v", c2, ok)
	}
}

func TestSyncChannelDrainStaleDiscardsLeftovers(t *testing.T) {
	sc := newSyncChannel(4)
	sc.push(ByteChunk{Data: []byte("stale")})
	sc.drainStale()

	_, ok := sc.pop(context.Background(), time.Now().Add(5*time.Millisecond))
	if ok {
		t.Fatalf("expected drainStale to discard the leftover chunk")
	}
}

func TestSyncChannelOverflowSignals(t *testing.T) {
	sc := newSyncChannel(1)
	sc.push(ByteChunk{Data: []byte("1")})
	sc.push(ByteChunk{Data: []byte("2")}) // channel full, should mark overrun

	if !sc.overflowed() {
		t.Fatalf("expected overflow to be signaled once capacity was exceeded")
	}
}
