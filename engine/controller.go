package engine

import (
	"bytes"
	"context"
	"time"
)

// DefaultResponseBufferCapacity bounds a single synchronous response. Bytes
// beyond the cap are not collected into the response; TRUNCATION is
// reported and the sync phase ends early so later bytes fall through to
// the async path instead of being silently dropped.
const DefaultResponseBufferCapacity = 4096

// collectResult is the outcome of a wait-policy read loop, before the
// Engine's postamble (mode flip, codec, pending count) is applied.
type collectResult struct {
	buf       []byte
	matched   bool
	matchedOn string
	truncated bool
}

// appendBounded appends src to buf, capping the total length at cap. It
// reports whether the append had to be truncated to respect the cap.
func appendBounded(buf, src []byte, cap int) (out []byte, truncated bool) {
	room := cap - len(buf)
	if room <= 0 {
		return buf, len(src) > 0
	}
	if len(src) > room {
		return append(buf, src[:room]...), true
	}
	return append(buf, src...), false
}

// runKeyword implements the KEYWORD wait policy: read chunks until
// stopPattern is found in the accumulated buffer (tested after every
// chunk append, per the tie-break rule) or the deadline elapses.
func runKeyword(ctx context.Context, syncCh *syncChannel, stopPattern []byte, deadline time.Time, respCap int) collectResult {
	var res collectResult
	for {
		if time.Now().After(deadline) {
			return res
		}
		chunk, ok := syncCh.pop(ctx, deadline)
		if !ok {
			return res
		}
		truncated := false
		res.buf, truncated = appendBounded(res.buf, chunk.Data, respCap)
		if truncated {
			res.truncated = true
		}
		if bytes.Contains(res.buf, stopPattern) {
			res.matched = true
			return res
		}
		if res.truncated {
			// Cap reached without a match: end the sync phase early so
			// later bytes fall through to the async path.
			return res
		}
	}
}

// runATCommand implements AT_COMMAND: KEYWORD with a compound stop
// condition over atTerminators, recording which terminator matched.
func runATCommand(ctx context.Context, syncCh *syncChannel, deadline time.Time, respCap int) collectResult {
	var res collectResult
	for {
		if time.Now().After(deadline) {
			return res
		}
		chunk, ok := syncCh.pop(ctx, deadline)
		if !ok {
			return res
		}
		truncated := false
		res.buf, truncated = appendBounded(res.buf, chunk.Data, respCap)
		if truncated {
			res.truncated = true
		}
		first := -1
		for _, term := range atTerminators {
			if i := bytes.Index(res.buf, []byte(term)); i >= 0 && (first < 0 || i < first) {
				first = i
				res.matchedOn = term
			}
		}
		if first >= 0 {
			res.matched = true
			return res
		}
		if res.truncated {
			return res
		}
	}
}

// runTimeout implements TIMEOUT: accumulate every chunk until the deadline
// elapses or the response buffer cap is reached. Always "succeeds", even
// with zero bytes collected.
func runTimeout(ctx context.Context, syncCh *syncChannel, deadline time.Time, respCap int) collectResult {
	var res collectResult
	for {
		if time.Now().After(deadline) {
			return res
		}
		chunk, ok := syncCh.pop(ctx, deadline)
		if !ok {
			return res
		}
		var truncated bool
		res.buf, truncated = appendBounded(res.buf, chunk.Data, respCap)
		if truncated {
			res.truncated = true
			// Cap reached: end the sync phase early, as KEYWORD does.
			return res
		}
	}
}
