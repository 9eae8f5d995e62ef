package xtokenizer

import "io"

// state enumerates the tokenizer's finite-automaton states. Initial state is
// stateContent; the reserved comment/CDATA/PI/DOCTYPE states are not
// reachable yet (TagOpen rejects '!' and '?' as fatal), but are named here
// so adding those phases later does not renumber the states a caller might
// have observed via State().
type state uint8

const (
	stateContent state = iota
	stateTagOpen
	stateStartTagName
	stateEndTagName
	stateInTag
	stateAttrName
	stateAfterAttrName
	stateBeforeAttrValue
	stateAttrValueQuoted
	stateComment
	stateCDATA
	statePI
	stateDoctype
)

func (s state) String() string {
	switch s {
	case stateContent:
		return "Content"
	case stateTagOpen:
		return "TagOpen"
	case stateStartTagName:
		return "StartTagName"
	case stateEndTagName:
		return "EndTagName"
	case stateInTag:
		return "InTag"
	case stateAttrName:
		return "AttrName"
	case stateAfterAttrName:
		return "AfterAttrName"
	case stateBeforeAttrValue:
		return "BeforeAttrValue"
	case stateAttrValueQuoted:
		return "AttrValueQuoted"
	case stateComment:
		return "Comment"
	case stateCDATA:
		return "CDATA"
	case statePI:
		return "PI"
	case stateDoctype:
		return "Doctype"
	default:
		return "Unknown"
	}
}

// Tokenizer is a streaming XML tokenizer driven by a trampolined state
// machine: each scan* method either emits a token and returns, or advances
// the state and loops, scalar by scalar instead of over raw byte slices.
type Tokenizer struct {
	in      *inputBuffer
	opts    options
	st      state
	started bool
	ended   bool

	stack []tagFrame
	free  *freelist
	text  textArena
	errs  errorArena

	errors []ErrorRecord

	pendingStart    SourcePosition
	pendingStartSet bool

	// scratch holds an end-tag's scanned name bytes before it is compared
	// against the open frame it is expected to match; it is reused across
	// calls rather than reallocated.
	scratch     []byte
	nameScratch []byte
}

// New creates a Tokenizer reading from r. It fails only if the requested
// buffer size (default or via WithBufferSize) cannot be honored.
func New(r io.Reader, opts ...Option) (*Tokenizer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	o.limits = o.limits.clamp()

	in, err := newInputBuffer(r, o.bufferSize)
	if err != nil {
		return nil, err
	}

	t := &Tokenizer{
		in:   in,
		opts: *o,
		free: newFreelist(o.limits.MaxPerTagBytes, o.freelistBudget),
	}
	return t, nil
}

// Reset restores the tokenizer to its pre-DocumentStart state, keeping the
// same input stream, options, and limits. Open frames are returned to the
// freelist where possible.
func (t *Tokenizer) Reset() {
	for i := len(t.stack) - 1; i >= 0; i-- {
		t.free.put(t.stack[i].buf)
	}
	t.stack = t.stack[:0]
	t.text.reset()
	t.errs.reset()
	t.errors = t.errors[:0]
	t.st = stateContent
	t.started = false
	t.ended = false
	t.pendingStartSet = false
}

// Errors returns every ErrorRecord accumulated so far.
func (t *Tokenizer) Errors() []ErrorRecord { return t.errors }

// ClearErrors empties the accumulated error log without clearing Ended.
func (t *Tokenizer) ClearErrors() { t.errors = t.errors[:0] }

// CurrentPosition returns the tokenizer's current cursor position.
func (t *Tokenizer) CurrentPosition() SourcePosition { return t.in.position() }

// NestingDepth returns the number of currently open elements.
func (t *Tokenizer) NestingDepth() int { return len(t.stack) }

// State returns the tokenizer's current automaton state.
func (t *Tokenizer) State() state { return t.st }

func (t *Tokenizer) markStart() {
	if !t.pendingStartSet {
		t.pendingStart = t.in.position()
		t.pendingStartSet = true
	}
}

func (t *Tokenizer) clearPendingStart() { t.pendingStartSet = false }

func (t *Tokenizer) startPosition() SourcePosition {
	if t.pendingStartSet {
		return t.pendingStart
	}
	return t.in.position()
}

// fatal records a fatal ErrorRecord, fills out into an Error token, and
// marks the stream ended; every subsequent NextToken call returns false.
func (t *Tokenizer) fatal(out *Token, code ErrorCode, msg string) {
	pos := t.startPosition()
	off, length := t.errs.intern(msg)
	rec := ErrorRecord{
		Code:      code,
		Severity:  SeverityFatal,
		Pos:       pos,
		arena:     &t.errs,
		msgOffset: off,
		msgLength: length,
	}
	t.errors = append(t.errors, rec)
	t.ended = true
	t.clearPendingStart()

	out.Type = Error
	out.Data = nil
	out.Pos = pos
	out.Err = rec
}

func (t *Tokenizer) emit(out *Token, typ TokenType, data []byte, pos SourcePosition) {
	out.Type = typ
	out.Data = data
	out.Pos = pos
	out.Err = ErrorRecord{}
	t.clearPendingStart()
}

// NextToken advances the tokenizer and writes the next token into out,
// returning false once the stream has ended (DocumentEnd emitted or a
// fatal error recorded).
func (t *Tokenizer) NextToken(out *Token) bool {
	if t.ended {
		return false
	}
	if !t.started {
		t.started = true
		t.emit(out, DocumentStart, nil, t.in.position())
		return true
	}

	for {
		var emitted bool
		switch t.st {
		case stateContent:
			emitted = t.scanContent(out)
		case stateTagOpen:
			emitted = t.scanTagOpen(out)
		case stateStartTagName:
			emitted = t.scanStartTagName(out)
		case stateEndTagName:
			emitted = t.scanEndTagName(out)
		case stateInTag:
			emitted = t.scanInTag(out)
		case stateAttrName:
			emitted = t.scanAttrName(out)
		case stateAfterAttrName:
			emitted = t.scanAfterAttrName(out)
		case stateBeforeAttrValue:
			emitted = t.scanBeforeAttrValue(out)
		case stateAttrValueQuoted:
			emitted = t.scanAttrValueQuoted(out)
		default:
			t.fatal(out, ErrCodeUnexpectedEOF, "unsupported state")
			return true
		}
		if emitted {
			return true
		}
		if t.ended {
			return true
		}
	}
}

// scanContent implements the Content-state text scan.
func (t *Tokenizer) scanContent(out *Token) bool {
	cp, ok := t.in.peekCP()
	if !ok {
		if err := t.in.ioErr; err != nil && err != io.EOF {
			t.fatal(out, ErrCodeIO, err.Error())
			return true
		}
		if len(t.stack) == 0 {
			t.emit(out, DocumentEnd, nil, t.in.position())
			t.ended = true
			return true
		}
		t.fatal(out, ErrCodeUnexpectedEOF, "unclosed tag at end of document")
		return true
	}
	if cp == '<' {
		t.st = stateTagOpen
		return false
	}

	t.text.reset()
	t.markStart()
	normalize := t.opts.flags.has(NormalizeLineEndings)
	for {
		cp, ok := t.in.peekCP()
		if !ok || cp == '<' {
			break
		}
		t.in.getCP()
		if normalize && cp == '\r' {
			if next, ok := t.in.peekCP(); ok && next == '\n' {
				t.in.getCP()
			}
			t.text.append([]byte{'\n'})
		} else if normalize && cp == '\n' {
			t.text.append([]byte{'\n'})
		} else {
			t.text.appendCP(cp)
		}
		if t.text.len() >= t.opts.limits.MaxTextRunBytes {
			t.fatal(out, ErrCodeLimitExceeded, "text run exceeds limit")
			return true
		}
	}
	t.emit(out, Text, t.text.bytes(), t.startPosition())
	return true
}

// scanTagOpen implements the TagOpen dispatch after '<' has been peeked but
// not yet consumed.
func (t *Tokenizer) scanTagOpen(out *Token) bool {
	t.markStart()
	t.in.getCP() // consume '<'

	cp, ok := t.in.peekCP()
	if !ok {
		t.fatal(out, ErrCodeUnexpectedEOF, "unexpected EOF after '<'")
		return true
	}
	switch {
	case cp == '/':
		t.in.getCP()
		t.st = stateEndTagName
		return false
	case isNameStart(cp):
		t.st = stateStartTagName
		return false
	case cp == '!' || cp == '?':
		t.fatal(out, ErrCodeInvalidCharAfterLT, "invalid character after '<'")
		return true
	default:
		t.fatal(out, ErrCodeInvalidCharAfterLT, "invalid character after '<'")
		return true
	}
}

func isNameStart(cp rune) bool {
	switch {
	case cp == ':' || cp == '_':
		return true
	case cp >= 'A' && cp <= 'Z':
		return true
	case cp >= 'a' && cp <= 'z':
		return true
	case cp >= 0x80:
		return true // placeholder: full XML 1.0 NameStartChar ranges not implemented
	default:
		return false
	}
}

func isNameContinuation(cp rune) bool {
	if isNameStart(cp) {
		return true
	}
	switch {
	case cp == '-' || cp == '.':
		return true
	case cp >= '0' && cp <= '9':
		return true
	default:
		return false
	}
}

// nameReadResult classifies readName's outcome.
type nameReadResult uint8

const (
	nameOk nameReadResult = iota
	nameEOF
	nameInvalidChar
	nameTooLong
)

// readName reads a Name production (one name-start scalar, zero or more
// name-continuation scalars) into buf, returning the bytes written and how
// the read ended.
func (t *Tokenizer) readName(buf []byte, maxBytes int) ([]byte, nameReadResult) {
	cp, ok := t.in.peekCP()
	if !ok {
		return buf, nameEOF
	}
	if !isNameStart(cp) {
		return buf, nameInvalidChar
	}
	start := len(buf)
	for {
		cp, ok := t.in.peekCP()
		if !ok || !isNameContinuation(cp) {
			break
		}
		buf = appendUTF8(buf, cp)
		if len(buf)-start > maxBytes {
			return buf, nameTooLong
		}
		t.in.getCP()
	}
	return buf, nameOk
}

func (t *Tokenizer) pushFrame(pos SourcePosition) bool {
	if len(t.stack) >= t.opts.limits.MaxOpenDepth {
		return false
	}
	t.stack = append(t.stack, tagFrame{buf: t.free.get(), start: pos})
	return true
}

func (t *Tokenizer) top() *tagFrame { return &t.stack[len(t.stack)-1] }

func (t *Tokenizer) popFrame() {
	n := len(t.stack) - 1
	t.free.put(t.stack[n].buf)
	t.stack = t.stack[:n]
}

// scanStartTagName reads the element name after '<' and pushes a frame.
func (t *Tokenizer) scanStartTagName(out *Token) bool {
	pos := t.startPosition()
	if !t.pushFrame(pos) {
		t.fatal(out, ErrCodeLimitExceeded, "open-element depth exceeds limit")
		return true
	}
	f := t.top()
	var res nameReadResult
	t.nameScratch, res = t.readName(t.nameScratch[:0], t.opts.limits.MaxNameBytes)
	tmp := t.nameScratch
	switch res {
	case nameTooLong:
		t.fatal(out, ErrCodeLimitExceeded, "name exceeds limit")
		return true
	case nameInvalidChar, nameEOF:
		t.fatal(out, ErrCodeInvalidCharInName, "invalid character in name")
		return true
	}
	off, ok := f.buf.append(tmp)
	if !ok {
		t.fatal(out, ErrCodeLimitExceeded, "tag buffer exceeds limit")
		return true
	}
	f.ctx.nameOffset, f.ctx.nameLength = off, len(tmp)

	t.emit(out, StartTag, f.buf.slice(off, len(tmp)), pos)
	t.st = stateInTag
	return true
}

// scanEndTagName reads the name after "</" and matches it against the top
// frame.
func (t *Tokenizer) scanEndTagName(out *Token) bool {
	pos := t.startPosition()
	if len(t.stack) == 0 {
		t.fatal(out, ErrCodeUnterminatedTag, "end tag without matching start tag")
		return true
	}
	var res nameReadResult
	t.scratch, res = t.readName(t.scratch[:0], t.opts.limits.MaxNameBytes)
	name := t.scratch
	if res == nameTooLong {
		t.fatal(out, ErrCodeLimitExceeded, "name exceeds limit")
		return true
	}
	if len(name) == 0 {
		t.fatal(out, ErrCodeInvalidCharInName, "invalid character in end tag name")
		return true
	}
	t.in.skipWhitespace()
	cp, ok := t.in.peekCP()
	if !ok || cp != '>' {
		t.fatal(out, ErrCodeUnterminatedTag, "unterminated end tag")
		return true
	}
	t.in.getCP()

	f := t.top()
	want := f.buf.slice(f.ctx.nameOffset, f.ctx.nameLength)
	if string(want) != string(name) {
		t.fatal(out, ErrCodeUnterminatedTag, "end tag mismatch")
		return true
	}

	t.emit(out, EndTag, want, pos)
	t.popFrame()
	t.st = stateContent
	return true
}

// scanInTag implements the whitespace-then-dispatch body of an open start
// tag: another attribute, '>' closing to Content, or "/>" for an EmptyTag.
func (t *Tokenizer) scanInTag(out *Token) bool {
	t.in.skipWhitespace()
	t.clearPendingStart()
	cp, ok := t.in.peekCP()
	if !ok {
		t.fatal(out, ErrCodeUnterminatedTag, "unterminated tag")
		return true
	}
	switch {
	case cp == '>':
		t.in.getCP()
		t.st = stateContent
		return false
	case cp == '/':
		t.in.getCP()
		cp2, ok := t.in.peekCP()
		if !ok || cp2 != '>' {
			t.fatal(out, ErrCodeUnterminatedTag, "unterminated tag")
			return true
		}
		t.in.getCP()
		f := t.top()
		name := f.buf.slice(f.ctx.nameOffset, f.ctx.nameLength)
		t.emit(out, EmptyTag, name, f.start)
		t.popFrame()
		t.st = stateContent
		return true
	case isNameStart(cp):
		t.st = stateAttrName
		return false
	default:
		t.fatal(out, ErrCodeUnterminatedTag, "unterminated tag")
		return true
	}
}

func (t *Tokenizer) scanAttrName(out *Token) bool {
	pos := t.in.position()
	f := t.top()
	if f.ctx.attrCount+1 > t.opts.limits.MaxAttrsPerElement {
		t.fatal(out, ErrCodeLimitExceeded, "attribute count exceeds limit")
		return true
	}
	var res nameReadResult
	t.nameScratch, res = t.readName(t.nameScratch[:0], t.opts.limits.MaxNameBytes)
	tmp := t.nameScratch
	switch res {
	case nameTooLong:
		t.fatal(out, ErrCodeLimitExceeded, "attribute name exceeds limit")
		return true
	case nameInvalidChar, nameEOF:
		t.fatal(out, ErrCodeInvalidCharInName, "invalid character in attribute name")
		return true
	}
	off, ok := f.buf.append(tmp)
	if !ok {
		t.fatal(out, ErrCodeLimitExceeded, "tag buffer exceeds limit")
		return true
	}
	f.ctx.attrCount++
	t.emit(out, AttributeName, f.buf.slice(off, len(tmp)), pos)
	t.st = stateAfterAttrName
	return true
}

func (t *Tokenizer) scanAfterAttrName(out *Token) bool {
	t.in.skipWhitespace()
	cp, ok := t.in.peekCP()
	if !ok || cp != '=' {
		t.fatal(out, ErrCodeExpectedEqualsAfterAttr, "expected '=' after attribute name")
		return true
	}
	t.in.getCP()
	t.st = stateBeforeAttrValue
	return false
}

func (t *Tokenizer) scanBeforeAttrValue(out *Token) bool {
	t.in.skipWhitespace()
	cp, ok := t.in.peekCP()
	if !ok || cp != '"' {
		t.fatal(out, ErrCodeExpectedQuoteForAttrValue, "expected '\"' before attribute value")
		return true
	}
	t.in.getCP()
	t.st = stateAttrValueQuoted
	return false
}

func (t *Tokenizer) scanAttrValueQuoted(out *Token) bool {
	pos := t.in.position()
	f := t.top()
	off := f.buf.used
	length := 0
	for {
		cp, ok := t.in.peekCP()
		if !ok {
			t.fatal(out, ErrCodeUnterminatedTag, "unterminated attribute value")
			return true
		}
		if cp == '"' {
			t.in.getCP()
			break
		}
		t.in.getCP()
		var tmp [4]byte
		n, encOk := encodeUTF8(cp, tmp[:])
		if !encOk {
			t.fatal(out, ErrCodeInvalidUTF8, "invalid scalar in attribute value")
			return true
		}
		if _, ok := f.buf.append(tmp[:n]); !ok {
			t.fatal(out, ErrCodeLimitExceeded, "tag buffer exceeds limit")
			return true
		}
		length += n
		if length > t.opts.limits.MaxAttrValueBytes {
			t.fatal(out, ErrCodeLimitExceeded, "attribute value exceeds limit")
			return true
		}
	}
	t.emit(out, AttributeValue, f.buf.slice(off, length), pos)
	t.st = stateInTag
	return true
}
