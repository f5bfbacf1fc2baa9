package main

import (
	"unicode"
	"unicode/utf8"

	"github.com/Paranoid-AF/inkling/surface"
)

// csiKeys maps the tail of an ESC [ or ESC O sequence to a key name.
var csiKeys = map[string]string{
	"A":  "ArrowUp",
	"B":  "ArrowDown",
	"C":  "ArrowRight",
	"D":  "ArrowLeft",
	"H":  "Home",
	"F":  "End",
	"1~": "Home",
	"7~": "Home",
	"4~": "End",
	"8~": "End",
	"3~": "Delete",
}

// decodeKeys turns one read from a raw tty into key events. Terminals
// deliver an escape sequence in a single read, so a chunk holding only
// ESC is the Escape key and ESC followed by a key is Meta+key.
// Ctrl-. has no byte of its own; press ESC . (Alt-.) to trigger.
// A multibyte rune cut off at the end of b is dropped; keyDecoder keeps it
// for the next read.
func decodeKeys(b []byte) []surface.KeyEvent {
	out, _ := splitKeys(b)
	return out
}

// splitKeys decodes b up to an incomplete trailing rune and returns the
// undecoded tail.
func splitKeys(b []byte) ([]surface.KeyEvent, []byte) {
	var out []surface.KeyEvent
	for len(b) > 0 {
		ev, n := decodeKey(b)
		if n == 0 {
			break
		}
		if ev.Key != "" {
			out = append(out, ev)
		}
		b = b[n:]
	}
	return out, b
}

// keyDecoder decodes successive reads, carrying a rune split across them.
type keyDecoder struct {
	pending []byte
}

func (d *keyDecoder) feed(b []byte) []surface.KeyEvent {
	data := append(d.pending, b...)
	out, rest := splitKeys(data)
	d.pending = append([]byte(nil), rest...)
	return out
}

// decodeKey decodes the key at the start of b and its length in bytes. A
// length of zero means b ends inside a rune.
func decodeKey(b []byte) (surface.KeyEvent, int) {
	c := b[0]
	switch {
	case c == 27:
		return decodeEscape(b)
	case c == 9:
		return surface.KeyEvent{Key: "Tab"}, 1
	case c == 13 || c == 10:
		return surface.KeyEvent{Key: "Enter"}, 1
	case c == 127 || c == 8:
		return surface.KeyEvent{Key: "Backspace"}, 1
	case c == 0:
		return surface.KeyEvent{}, 1
	case c < 32:
		return surface.KeyEvent{Key: string(rune('a' + c - 1)), Ctrl: true}, 1
	}

	if !utf8.FullRune(b) {
		return surface.KeyEvent{}, 0
	}
	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError && size <= 1 {
		return surface.KeyEvent{}, 1
	}
	return surface.KeyEvent{Key: string(r), Shift: unicode.IsUpper(r)}, size
}

func decodeEscape(b []byte) (surface.KeyEvent, int) {
	if len(b) == 1 || b[1] == 27 {
		return surface.KeyEvent{Key: "Escape"}, 1
	}

	if b[1] == '[' || b[1] == 'O' {
		// Parameter bytes run until a final byte in 0x40-0x7E.
		i := 2
		for i < len(b) && (b[i] < 0x40 || b[i] > 0x7e) {
			i++
		}
		if i >= len(b) {
			return surface.KeyEvent{}, len(b)
		}
		seq := string(b[2 : i+1])
		if seq == "Z" {
			return surface.KeyEvent{Key: "Tab", Shift: true}, i + 1
		}
		return surface.KeyEvent{Key: csiKeys[seq]}, i + 1
	}

	ev, n := decodeKey(b[1:])
	if n == 0 {
		return ev, 0
	}
	if ev.Key != "" {
		ev.Meta = true
	}
	return ev, n + 1
}
