package xtokenizer

// Flags is a bitmask of tokenizer behaviors. The zero value is never used as
// a default: New sets every documented bit unless the caller overrides them
// with WithFlags.
type Flags uint32

const (
	CoalesceText Flags = 1 << iota
	Strict
	NormalizeLineEndings
	// ExpandInternalEntities is reserved for a later phase; it is a no-op
	// today.
	ExpandInternalEntities
	// ReportXmlDecl is reserved for a later phase; it is a no-op today.
	ReportXmlDecl
	// ReportIntertagWhitespace is reserved for a later phase; it is a no-op
	// today.
	ReportIntertagWhitespace

	defaultFlags = CoalesceText | Strict | NormalizeLineEndings |
		ExpandInternalEntities | ReportXmlDecl | ReportIntertagWhitespace
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// Limits bounds the resources a single Tokenizer may consume, guarding
// against unbounded memory growth while tokenizing a hostile or malformed
// document. Each field defaults per the table below and is clamped to a
// hard, compile-time cap at construction; a caller-requested value above the
// cap is silently lowered to it rather than rejected. (The buffer size set
// by WithBufferSize is not clamped: New rejects it with ErrOutOfMemory.)
type Limits struct {
	MaxNameBytes        int
	MaxAttrValueBytes   int
	MaxTextRunBytes     int
	MaxCommentBytes     int
	MaxCDATABytes       int
	MaxDoctypeBytes     int
	MaxAttrsPerElement  int
	MaxPerTagBytes      int
	MaxOpenDepth        int
}

const (
	defaultMaxNameBytes       = 4 << 10
	defaultMaxAttrValueBytes  = 1 << 20
	defaultMaxTextRunBytes    = 8 << 20
	defaultMaxCommentBytes    = 1 << 20
	defaultMaxCDATABytes      = 8 << 20
	defaultMaxDoctypeBytes    = 128 << 10
	defaultMaxAttrsPerElement = 1024
	defaultMaxPerTagBytes     = 8 << 20
	defaultMaxOpenDepth       = 1024

	hardCapMaxNameBytes       = 64 << 10
	hardCapMaxAttrValueBytes  = 16 << 20
	hardCapMaxTextRunBytes    = 64 << 20
	hardCapMaxCommentBytes    = 16 << 20
	hardCapMaxCDATABytes      = 64 << 20
	hardCapMaxDoctypeBytes    = 4 << 20
	hardCapMaxAttrsPerElement = 1 << 16
	hardCapMaxPerTagBytes     = 16 << 20
	hardCapMaxOpenDepth       = 1 << 16
)

func defaultLimits() Limits {
	return Limits{
		MaxNameBytes:       defaultMaxNameBytes,
		MaxAttrValueBytes:  defaultMaxAttrValueBytes,
		MaxTextRunBytes:    defaultMaxTextRunBytes,
		MaxCommentBytes:    defaultMaxCommentBytes,
		MaxCDATABytes:      defaultMaxCDATABytes,
		MaxDoctypeBytes:    defaultMaxDoctypeBytes,
		MaxAttrsPerElement: defaultMaxAttrsPerElement,
		MaxPerTagBytes:     defaultMaxPerTagBytes,
		MaxOpenDepth:       defaultMaxOpenDepth,
	}
}

func clampInt(v, fallback, cap int) int {
	if v <= 0 {
		return fallback
	}
	if v > cap {
		return cap
	}
	return v
}

// clamp lowers every field above its hard cap and replaces non-positive
// fields with their default, returning a Limits safe to construct a
// Tokenizer with.
func (l Limits) clamp() Limits {
	d := defaultLimits()
	return Limits{
		MaxNameBytes:       clampInt(l.MaxNameBytes, d.MaxNameBytes, hardCapMaxNameBytes),
		MaxAttrValueBytes:  clampInt(l.MaxAttrValueBytes, d.MaxAttrValueBytes, hardCapMaxAttrValueBytes),
		MaxTextRunBytes:    clampInt(l.MaxTextRunBytes, d.MaxTextRunBytes, hardCapMaxTextRunBytes),
		MaxCommentBytes:    clampInt(l.MaxCommentBytes, d.MaxCommentBytes, hardCapMaxCommentBytes),
		MaxCDATABytes:      clampInt(l.MaxCDATABytes, d.MaxCDATABytes, hardCapMaxCDATABytes),
		MaxDoctypeBytes:    clampInt(l.MaxDoctypeBytes, d.MaxDoctypeBytes, hardCapMaxDoctypeBytes),
		MaxAttrsPerElement: clampInt(l.MaxAttrsPerElement, d.MaxAttrsPerElement, hardCapMaxAttrsPerElement),
		MaxPerTagBytes:     clampInt(l.MaxPerTagBytes, d.MaxPerTagBytes, hardCapMaxPerTagBytes),
		MaxOpenDepth:       clampInt(l.MaxOpenDepth, d.MaxOpenDepth, hardCapMaxOpenDepth),
	}
}

const defaultFreelistBudget = 64 << 20 // 64 MiB, per the recommended freelist memory budget.

const defaultBufferSize = 64 << 10

// options holds every constructor-configurable knob, set via the
// functional-options pattern below (`Option func(*options)`).
type options struct {
	flags          Flags
	limits         Limits
	bufferSize     int
	freelistBudget int
}

func defaultOptions() *options {
	return &options{
		flags:          defaultFlags,
		limits:         defaultLimits(),
		bufferSize:     defaultBufferSize,
		freelistBudget: defaultFreelistBudget,
	}
}

// Option configures a Tokenizer at construction time.
type Option func(*options)

// WithFlags overrides the default behavior bitmask.
func WithFlags(f Flags) Option {
	return func(o *options) { o.flags = f }
}

// WithLimits overrides the default resource limits. Values are clamped to
// their hard caps and non-positive fields fall back to their defaults.
func WithLimits(l Limits) Option {
	return func(o *options) { o.limits = l.clamp() }
}

// WithBufferSize overrides the buffered input stream's window size. New
// rejects 0 with ErrZeroBufferSize and other sizes below 4 bytes with
// ErrBufferTooSmall.
func WithBufferSize(n int) Option {
	return func(o *options) { o.bufferSize = n }
}

// WithFreelistBudget overrides the byte budget for the TagBuffer freelist.
func WithFreelistBudget(n int) Option {
	return func(o *options) { o.freelistBudget = n }
}
