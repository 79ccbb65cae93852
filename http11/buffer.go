package http11

import "bytes"

// ReadBuffer is a fixed-capacity sliding byte buffer fed directly by the
// transport. It tracks three cursors:
//
//   - pos:      next unread byte
//   - until:    next unwritten byte
//   - posLine:  scan hint for the next newline search
//
// Invariant: 0 <= pos <= posLine <= until <= capacity. After every
// consumer read, posLine >= pos. Capacity must exceed 9 bytes (enough
// room for the shortest possible request line plus CRLF).
//
// The transport never copies into the buffer directly: it asks for a
// writable Space(), writes into it, then calls Commit(n) to tell the
// buffer how many bytes actually landed.
type ReadBuffer struct {
	buf      []byte
	pos      int
	until    int
	posLine  int
}

// NewReadBuffer allocates a ReadBuffer with the given capacity.
// Panics if capacity <= 9, matching the data model's stated invariant.
func NewReadBuffer(capacity int) *ReadBuffer {
	if capacity <= 9 {
		panic("http11: ReadBuffer capacity must exceed 9 bytes")
	}
	return &ReadBuffer{buf: make([]byte, capacity)}
}

// Reset clears all cursors without reallocating the backing array.
func (b *ReadBuffer) Reset() {
	b.pos = 0
	b.until = 0
	b.posLine = 0
}

// Len returns the number of unread bytes currently buffered.
func (b *ReadBuffer) Len() int { return b.until - b.pos }

// Cap returns the buffer's fixed capacity.
func (b *ReadBuffer) Cap() int { return len(b.buf) }

// Full reports whether the buffer has no room left and no progress is
// possible: pos == 0 && until == capacity.
func (b *ReadBuffer) Full() bool {
	return b.pos == 0 && b.until == len(b.buf)
}

// realign shifts [pos, until) down to offset 0 when pos > 0, so that
// trailing capacity becomes available again for writes. After
// realignment pos == posLine == 0.
func (b *ReadBuffer) realign() {
	if b.pos == 0 {
		return
	}
	n := copy(b.buf, b.buf[b.pos:b.until])
	b.until = n
	b.pos = 0
	b.posLine = 0
}

// Space returns the writable tail of the buffer, realigning first if
// that would free up room. Returns ErrBufferFull if, even after
// realignment, there is no writable room left (the buffer is Full).
func (b *ReadBuffer) Space() ([]byte, error) {
	if b.until == len(b.buf) && b.pos > 0 {
		b.realign()
	}
	if b.until == len(b.buf) {
		if b.pos == 0 {
			return nil, ErrBufferFull
		}
		b.realign()
		if b.until == len(b.buf) {
			return nil, ErrBufferFull
		}
	}
	return b.buf[b.until:], nil
}

// Commit advances until by n after the transport has written n bytes
// into the slice previously returned by Space.
func (b *ReadBuffer) Commit(n int) {
	b.until += n
}

// MarkLine scans [posLine, until) for a line terminator, tolerating a
// bare '\n' without a preceding '\r'. On success it returns the line
// (excluding the terminator) and advances pos past the terminator,
// resetting posLine to the new pos. On failure (no terminator yet) it
// advances posLine to until (so the next call resumes the scan instead
// of re-scanning already-seen bytes) and returns ok=false, leaving pos
// unchanged for a retry after the next Commit.
func (b *ReadBuffer) MarkLine() (line []byte, ok bool) {
	search := b.buf[b.posLine:b.until]
	idx := bytes.IndexByte(search, '\n')
	if idx == -1 {
		b.posLine = b.until
		return nil, false
	}

	lineEnd := b.posLine + idx
	lineStart := b.pos
	end := lineEnd
	if end > lineStart && b.buf[end-1] == '\r' {
		end--
	}

	line = b.buf[lineStart:end]
	b.pos = lineEnd + 1
	b.posLine = b.pos
	return line, true
}

// Take returns the next n unread bytes and advances pos past them.
// Returns ok=false (without advancing) if fewer than n bytes are
// currently buffered.
func (b *ReadBuffer) Take(n int) (data []byte, ok bool) {
	if b.until-b.pos < n {
		return nil, false
	}
	data = b.buf[b.pos : b.pos+n]
	b.pos += n
	if b.posLine < b.pos {
		b.posLine = b.pos
	}
	return data, true
}

// Peek returns the currently unread bytes without consuming them.
func (b *ReadBuffer) Peek() []byte {
	return b.buf[b.pos:b.until]
}

// Discard advances pos by n without returning the bytes, used to skip
// bytes already consumed by a lower-level reader (e.g. a chunk's CRLF).
func (b *ReadBuffer) Discard(n int) {
	if n > b.until-b.pos {
		n = b.until - b.pos
	}
	b.pos += n
	if b.posLine < b.pos {
		b.posLine = b.pos
	}
}
