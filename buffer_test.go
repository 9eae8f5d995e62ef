package xtokenizer

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewInputBufferValidation(t *testing.T) {
	if _, err := newInputBuffer(strings.NewReader("x"), 0); err != ErrZeroBufferSize {
		t.Fatalf("size 0: err = %v, want ErrZeroBufferSize", err)
	}
	if _, err := newInputBuffer(strings.NewReader("x"), 3); err != ErrBufferTooSmall {
		t.Fatalf("size 3: err = %v, want ErrBufferTooSmall", err)
	}
	if _, err := newInputBuffer(strings.NewReader("x"), hardCapBufferSize+1); err != ErrOutOfMemory {
		t.Fatalf("size too large: err = %v, want ErrOutOfMemory", err)
	}
	if _, err := newInputBuffer(strings.NewReader("x"), 4); err != nil {
		t.Fatalf("size 4: unexpected err %v", err)
	}
}

func TestBOMSkippedWithoutAffectingPosition(t *testing.T) {
	in, err := newInputBuffer(bytes.NewReader([]byte{0xEF, 0xBB, 0xBF, 'a'}), 8)
	if err != nil {
		t.Fatal(err)
	}
	cp, ok := in.getCP()
	if !ok || cp != 'a' {
		t.Fatalf("getCP() = (%q, %v), want ('a', true)", cp, ok)
	}
	pos := in.position()
	if pos.ByteOffset != 1 || pos.Column != 2 {
		t.Fatalf("position after BOM + 'a' = %+v, want ByteOffset=1 Column=2", pos)
	}
}

func TestPeekIdempotence(t *testing.T) {
	in, err := newInputBuffer(strings.NewReader("ab"), 4)
	if err != nil {
		t.Fatal(err)
	}
	cp1, ok1 := in.peekCP()
	posBefore := in.position()
	cp2, ok2 := in.peekCP()
	posAfter := in.position()
	if cp1 != cp2 || ok1 != ok2 || posBefore != posAfter {
		t.Fatalf("peekCP not idempotent: (%q,%v,%+v) vs (%q,%v,%+v)", cp1, ok1, posBefore, cp2, ok2, posAfter)
	}
}

// TestSmallBufferStraddlesRefill checks that a 4-byte buffer window still
// decodes a 4-byte scalar correctly, and that a scalar straddling a refill
// boundary is not corrupted by compaction.
func TestSmallBufferStraddlesRefill(t *testing.T) {
	text := "x" + "\U0001F30D" + "y" // 'x', four-byte scalar, 'y'
	in, err := newInputBuffer(strings.NewReader(text), 4)
	if err != nil {
		t.Fatal(err)
	}
	var got []rune
	for {
		cp, ok := in.getCP()
		if !ok {
			break
		}
		got = append(got, cp)
	}
	want := []rune{'x', 0x1F30D, 'y'}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestCRLFCounting(t *testing.T) {
	in, err := newInputBuffer(strings.NewReader("a\r\nb\r\nc"), 8)
	if err != nil {
		t.Fatal(err)
	}
	for {
		_, ok := in.getCP()
		if !ok {
			break
		}
	}
	pos := in.position()
	if pos.Line != 3 {
		t.Fatalf("final line = %d, want 3", pos.Line)
	}
}

func TestLoneCRAndLoneLF(t *testing.T) {
	in, err := newInputBuffer(strings.NewReader("a\rb\nc"), 8)
	if err != nil {
		t.Fatal(err)
	}
	var lines []uint32
	for {
		_, ok := in.getCP()
		if !ok {
			break
		}
		lines = append(lines, in.position().Line)
	}
	want := []uint32{1, 2, 2, 3, 3}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines[%d] = %d, want %d", i, lines[i], want[i])
		}
	}
}

func TestColumnCountsScalarsNotBytes(t *testing.T) {
	// "世" is 3 bytes; following it with "a" should put 'a' at column 2.
	in, err := newInputBuffer(strings.NewReader("世a"), 8)
	if err != nil {
		t.Fatal(err)
	}
	in.getCP() // 世
	if in.position().Column != 2 {
		t.Fatalf("column after one scalar = %d, want 2", in.position().Column)
	}
	in.getCP() // a
	if in.position().Column != 3 {
		t.Fatalf("column after two scalars = %d, want 3", in.position().Column)
	}
}

func TestReadWhileAndReadUntil(t *testing.T) {
	in, err := newInputBuffer(strings.NewReader("abc<def"), 4)
	if err != nil {
		t.Fatal(err)
	}
	out := in.readUntil(nil, '<')
	if string(out) != "abc" {
		t.Fatalf("readUntil = %q, want %q", out, "abc")
	}
	cp, ok := in.peekCP()
	if !ok || cp != '<' {
		t.Fatalf("delimiter left unconsumed: peekCP = (%q, %v)", cp, ok)
	}
}

func TestSkipWhitespace(t *testing.T) {
	in, err := newInputBuffer(strings.NewReader("  \t\r\nx"), 8)
	if err != nil {
		t.Fatal(err)
	}
	in.skipWhitespace()
	cp, ok := in.peekCP()
	if !ok || cp != 'x' {
		t.Fatalf("after skipWhitespace, peekCP = (%q, %v), want ('x', true)", cp, ok)
	}
}
