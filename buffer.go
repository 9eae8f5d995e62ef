package xtokenizer

import "io"

// peekedCP is the single-slot cache peek_cp() populates so a following
// get_cp() can reuse the decode result instead of re-decoding.
type peekedCP struct {
	cp    rune
	width int
	valid bool
	eof   bool
}

// inputBuffer is the buffered input stream: a single contiguous byte window
// over an io.Reader, compacted on refill so a multi-byte scalar straddling a
// refill is never split across the boundary. It also owns CR/LF-aware
// line/column tracking, at scalar granularity rather than raw byte slicing.
type inputBuffer struct {
	src io.Reader
	buf []byte
	pos int
	end int

	byteOffset uint64
	line       uint32
	column     uint32

	hasPendingCR bool
	peek         peekedCP
	ioErr        error
}

// newInputBuffer validates size and performs the initial refill plus BOM
// skip, per the buffered-input-stream construction contract.
func newInputBuffer(src io.Reader, size int) (*inputBuffer, error) {
	if size == 0 {
		return nil, ErrZeroBufferSize
	}
	if size < 4 {
		return nil, ErrBufferTooSmall
	}
	if size > hardCapBufferSize {
		return nil, ErrOutOfMemory
	}
	b := &inputBuffer{
		src:    src,
		buf:    make([]byte, size),
		line:   1,
		column: 1,
	}
	b.refill()
	b.skipBOM()
	return b, nil
}

const hardCapBufferSize = 256 << 20

func (b *inputBuffer) available() int { return b.end - b.pos }

// ensureAtLeast guarantees at least n bytes are available, short of
// end-of-input, compacting the unread window to the front first.
func (b *inputBuffer) ensureAtLeast(n int) {
	for b.available() < n && b.ioErr == nil {
		if b.pos > 0 {
			copy(b.buf, b.buf[b.pos:b.end])
			b.end -= b.pos
			b.pos = 0
			b.peek.valid = false
		}
		if b.end == len(b.buf) {
			// Buffer is full of unread bytes and still doesn't satisfy n;
			// the caller asked for more than the window can ever hold.
			// read_while/read_until consume incrementally so this only
			// happens for a single scalar wider than the buffer, which
			// New already forbids via the 4-byte minimum for width<=4
			// scalars, so this is unreachable in practice but must not
			// spin forever.
			return
		}
		k, err := b.src.Read(b.buf[b.end:])
		b.end += k
		if err != nil {
			b.ioErr = err
		}
		if k == 0 && err == nil {
			// A reader that returns (0, nil) is a violation of io.Reader's
			// contract; treat it as EOF to avoid spinning.
			b.ioErr = io.EOF
		}
	}
}

func (b *inputBuffer) refill() { b.ensureAtLeast(4) }

func (b *inputBuffer) skipBOM() {
	const bom0, bom1, bom2 = 0xEF, 0xBB, 0xBF
	b.ensureAtLeast(3)
	if b.available() >= 3 && b.buf[b.pos] == bom0 && b.buf[b.pos+1] == bom1 && b.buf[b.pos+2] == bom2 {
		b.pos += 3
	}
}

// peekCP returns the next scalar without consuming it, or (-1, false) at
// end-of-input. Idempotent: repeated calls with no intervening consume
// return the same result and never mutate position.
func (b *inputBuffer) peekCP() (rune, bool) {
	if b.peek.valid {
		if b.peek.eof {
			return -1, false
		}
		return b.peek.cp, true
	}
	b.ensureAtLeast(4)
	cp, width, status := decodeUTF8(b.buf[b.pos:b.end])
	switch status {
	case decodeOk:
		b.peek = peekedCP{cp: cp, width: width, valid: true}
		return cp, true
	case decodeNeedMore:
		// available() < width even after ensureAtLeast(4): only possible
		// at end-of-input, either with no bytes left or with a multi-byte
		// sequence truncated mid-stream. Both are treated as end-of-input.
		b.peek = peekedCP{valid: true, eof: true}
		return -1, false
	default: // decodeInvalid
		if b.available() == 0 {
			b.peek = peekedCP{valid: true, eof: true}
			return -1, false
		}
		// Invalid UTF-8 mid-stream is treated as end-of-input at this
		// layer; the tokenizer may raise a finer diagnostic.
		b.peek = peekedCP{valid: true, eof: true}
		return -1, false
	}
}

// getCP returns the next scalar and advances position by its width, or
// (-1, false) at end-of-input.
func (b *inputBuffer) getCP() (rune, bool) {
	cp, ok := b.peekCP()
	if !ok {
		return -1, false
	}
	width := b.peek.width
	b.advance(b.buf[b.pos : b.pos+width])
	b.pos += width
	b.peek = peekedCP{}
	return cp, true
}

// advance updates byteOffset/line/column for the consumed scalar bytes raw,
// per the CR/LF-aware position-tracking rules.
func (b *inputBuffer) advance(raw []byte) {
	b.byteOffset += uint64(len(raw))
	for _, c := range raw {
		switch {
		case c == '\r':
			b.line++
			b.column = 1
			b.hasPendingCR = true
		case c == '\n':
			if b.hasPendingCR {
				b.hasPendingCR = false
			} else {
				b.line++
				b.column = 1
			}
		default:
			b.hasPendingCR = false
			if !isUTF8Continuation(c) {
				b.column++
			}
		}
	}
}

// readWhile appends raw UTF-8 bytes of each accepted scalar to out until
// end-of-input, an invalid sequence, or pred returns false for the next
// scalar. It returns the grown slice.
func (b *inputBuffer) readWhile(out []byte, pred func(rune) bool) []byte {
	for {
		cp, ok := b.peekCP()
		if !ok || !pred(cp) {
			return out
		}
		width := b.peek.width
		out = append(out, b.buf[b.pos:b.pos+width]...)
		b.getCP()
	}
}

// readUntil appends scalars until the next peeked scalar equals delim (left
// unconsumed) or end-of-input.
func (b *inputBuffer) readUntil(out []byte, delim rune) []byte {
	return b.readWhile(out, func(cp rune) bool { return cp != delim })
}

const (
	chSpace = 0x20
	chTab   = 0x09
	chLF    = 0x0A
	chCR    = 0x0D
)

func isXMLWhitespace(cp rune) bool {
	return cp == chSpace || cp == chTab || cp == chLF || cp == chCR
}

func (b *inputBuffer) skipWhitespace() {
	for {
		cp, ok := b.peekCP()
		if !ok || !isXMLWhitespace(cp) {
			return
		}
		b.getCP()
	}
}

func (b *inputBuffer) position() SourcePosition {
	return SourcePosition{ByteOffset: b.byteOffset, Line: b.line, Column: b.column}
}
