package engine

import (
	"context"
	"testing"
	"time"
)

func TestRunKeywordMatchesAndKeepsTrailingBytes(t *testing.T) {
	sc := newSyncChannel(8)
	sc.push(ByteChunk{Data: []byte("\r\n+CSQ: 22,99\r\n\r\nOK\r\nextra")})

	res := runKeyword(context.Background(), sc, []byte("OK"), time.Now().Add(time.Second), DefaultResponseBufferCapacity)
	if !res.matched {
		t.Fatalf("expected match")
	}
	if string(res.buf) != "\r\n+CSQ: 22,99\r\n\r\nOK\r\nextra" {
		t.Fatalf("tie-break rule: trailing bytes of the matching chunk must be kept, got %q", res.buf)
	}
}

func TestRunKeywordStraddlingChunks(t *testing.T) {
	sc := newSyncChannel(8)
	sc.push(ByteChunk{Data: []byte("ERR")})
	sc.push(ByteChunk{Data: []byte("OR\r\n")})

	res := runKeyword(context.Background(), sc, []byte("ERROR\r\n"), time.Now().Add(time.Second), DefaultResponseBufferCapacity)
	if !res.matched {
		t.Fatalf("expected stop pattern straddling two chunks to be found")
	}
}

func TestRunKeywordTimeoutWithoutMatchIsNotAnError(t *testing.T) {
	sc := newSyncChannel(8)
	sc.push(ByteChunk{Data: []byte("ERROR\r\n")})

	res := runKeyword(context.Background(), sc, []byte("OK"), time.Now().Add(20*time.Millisecond), DefaultResponseBufferCapacity)
	if res.matched {
		t.Fatalf("did not expect a match")
	}
	if string(res.buf) != "ERROR\r\n" {
		t.Fatalf("expected partial data to be returned, got %q", res.buf)
	}
}

func TestRunATCommandMatchesAnyTerminator(t *testing.T) {
	sc := newSyncChannel(8)
	sc.push(ByteChunk{Data: []byte("AT\r\nOK\r\n")})

	res := runATCommand(context.Background(), sc, time.Now().Add(time.Second), DefaultResponseBufferCapacity)
	if !res.matched || res.matchedOn != "OK\r\n" {
		t.Fatalf("expected AT_COMMAND to match OK\\r\\n, got %+v", res)
	}
}

func TestRunTimeoutAlwaysSucceedsEvenEmpty(t *testing.T) {
	sc := newSyncChannel(8)
	res := runTimeout(context.Background(), sc, time.Now().Add(15*time.Millisecond), DefaultResponseBufferCapacity)
	if res.matched {
		t.Fatalf("TIMEOUT policy has no match concept")
	}
	if len(res.buf) != 0 {
		t.Fatalf("expected empty buffer, got %q", res.buf)
	}
}

func TestRunTimeoutAccumulatesAllChunks(t *testing.T) {
	sc := newSyncChannel(8)
	sc.push(ByteChunk{Data: []byte("01 03 0C ")})
	sc.push(ByteChunk{Data: []byte("00 01")})

	res := runTimeout(context.Background(), sc, time.Now().Add(20*time.Millisecond), DefaultResponseBufferCapacity)
	if string(res.buf) != "01 03 0C 00 01" {
		t.Fatalf("unexpected accumulated buffer: %q", res.buf)
	}
}

func TestAppendBoundedTruncates(t *testing.T) {
	out, truncated := appendBounded([]byte("abc"), []byte("defgh"), 5)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if string(out) != "abcde" {
		t.Fatalf("unexpected truncated buffer: %q", out)
	}
}

func TestRunKeywordRespectsResponseBufferCap(t *testing.T) {
	sc := newSyncChannel(8)
	sc.push(ByteChunk{Data: []byte("0123456789")})

	res := runKeyword(context.Background(), sc, []byte("OK"), time.Now().Add(time.Second), 4)
	if !res.truncated {
		t.Fatalf("expected truncation once the response buffer cap is reached")
	}
	if len(res.buf) != 4 {
		t.Fatalf("expected buffer capped at 4 bytes, got %d", len(res.buf))
	}
}
