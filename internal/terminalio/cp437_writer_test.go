package terminalio

import (
	"bytes"
	"testing"
)

func TestSelectiveCP437WriterEncodesBoxDrawing(t *testing.T) {
	var out bytes.Buffer
	w := NewSelectiveCP437Writer(&out)

	// U+250C U+2500 U+2510 ("┌─┐") are CP437 0xDA 0xC4 0xBF.
	if _, err := w.Write([]byte("┌─┐")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := []byte{0xDA, 0xC4, 0xBF}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("got %x want %x", out.Bytes(), want)
	}
}

func TestSelectiveCP437WriterPassesANSIThrough(t *testing.T) {
	var out bytes.Buffer
	w := NewSelectiveCP437Writer(&out)

	input := "\x1b[31m┌─┐\x1b[0m"
	if _, err := w.Write([]byte(input)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := "\x1b[31m\xDA\xC4\xBF\x1b[0m"
	if out.String() != want {
		t.Fatalf("got %q want %q", out.String(), want)
	}
}

func TestSelectiveCP437WriterPassesASCIIThrough(t *testing.T) {
	var out bytes.Buffer
	w := NewSelectiveCP437Writer(&out)

	if _, err := w.Write([]byte("Hello, world!")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.String() != "Hello, world!" {
		t.Fatalf("got %q", out.String())
	}
}

func TestSelectiveCP437WriterHandlesByteAtATimeWrites(t *testing.T) {
	var out bytes.Buffer
	w := NewSelectiveCP437Writer(&out)

	// The node's PTY relay feeds this writer one byte at a time; the
	// ANSI state machine must still recognize a sequence split across
	// many single-byte Write calls.
	input := []byte("\x1b[1;37m┌\x1b[0m")
	for _, b := range input {
		if _, err := w.Write([]byte{b}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	want := "\x1b[1;37m\xDA\x1b[0m"
	if out.String() != want {
		t.Fatalf("got %q want %q", out.String(), want)
	}
}
