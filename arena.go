package xtokenizer

// tagBuffer is the fixed-capacity, append-only byte arena owned by a single
// open element. Every name and attribute byte written while that element is
// the top-of-stack frame lands here; the buffer is reused via the freelist
// once its element closes.
type tagBuffer struct {
	data []byte // len(data) == capacity, always
	used int
}

func newTagBuffer(capacity int) *tagBuffer {
	return &tagBuffer{data: make([]byte, capacity)}
}

func (tb *tagBuffer) reset() { tb.used = 0 }

// append copies p into the buffer and returns the offset it was written at,
// or ok=false if that would exceed capacity.
func (tb *tagBuffer) append(p []byte) (offset int, ok bool) {
	if tb.used+len(p) > len(tb.data) {
		return 0, false
	}
	offset = tb.used
	copy(tb.data[offset:], p)
	tb.used += len(p)
	return offset, true
}

func (tb *tagBuffer) slice(offset, length int) []byte {
	return tb.data[offset : offset+length]
}

// tagContext records the offsets and lengths of an open element's name and
// tracks how many attributes it has accumulated so far.
type tagContext struct {
	nameOffset, nameLength int
	attrCount              int
	isEmpty                bool
}

// tagFrame is one entry of the LIFO open-element stack: a TagBuffer, its
// TagContext, and the source position the element's start tag began at.
type tagFrame struct {
	buf   *tagBuffer
	ctx   tagContext
	start SourcePosition
}

// freelist pools tagBuffers of a single fixed block size, bounded by a
// total-byte budget. Every block it holds has length exactly blockSize;
// changing blockSize purges the pool rather than mixing sizes, matching the
// freelist homogeneity invariant.
type freelist struct {
	blockSize int
	budget    int
	used      int
	blocks    []*tagBuffer
}

func newFreelist(blockSize, budget int) *freelist {
	return &freelist{blockSize: blockSize, budget: budget}
}

// get returns a pooled buffer of the current block size, or a freshly
// allocated one if the pool is empty.
func (f *freelist) get() *tagBuffer {
	if n := len(f.blocks); n > 0 {
		tb := f.blocks[n-1]
		f.blocks = f.blocks[:n-1]
		f.used -= len(tb.data)
		tb.reset()
		return tb
	}
	return newTagBuffer(f.blockSize)
}

// put returns tb to the pool if it matches the current block size and the
// budget has room, otherwise the buffer is dropped for the GC to collect.
func (f *freelist) put(tb *tagBuffer) {
	if len(tb.data) != f.blockSize {
		return
	}
	if f.used+len(tb.data) > f.budget {
		return
	}
	f.blocks = append(f.blocks, tb)
	f.used += len(tb.data)
}

// reconfigure purges the pool when the block size changes, per the freelist
// homogeneity invariant.
func (f *freelist) reconfigure(blockSize, budget int) {
	if blockSize != f.blockSize {
		f.blocks = nil
		f.used = 0
	}
	f.blockSize = blockSize
	f.budget = budget
}

// textArena is the growable byte sequence backing the most recently emitted
// Text token. It is cleared at the start of every text scan.
type textArena struct {
	data []byte
}

func (a *textArena) reset() { a.data = a.data[:0] }

func (a *textArena) append(p []byte) { a.data = append(a.data, p...) }

func (a *textArena) appendCP(cp rune) { a.data = appendUTF8(a.data, cp) }

func (a *textArena) len() int { return len(a.data) }

func (a *textArena) bytes() []byte { return a.data }

// errorArena append-only stores NUL-terminated interned error messages, so
// an ErrorRecord's Message() stays valid until the arena is cleared by
// Reset.
type errorArena struct {
	data []byte
}

func (a *errorArena) reset() { a.data = a.data[:0] }

// intern copies msg into the arena, NUL-terminates it, and returns the
// offset/length a caller can later pass to message().
func (a *errorArena) intern(msg string) (offset, length int) {
	offset = len(a.data)
	a.data = append(a.data, msg...)
	a.data = append(a.data, 0)
	return offset, len(msg)
}

func (a *errorArena) message(offset, length int) string {
	if offset < 0 || offset+length > len(a.data) {
		return ""
	}
	return string(a.data[offset : offset+length])
}
