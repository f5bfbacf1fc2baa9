package main

import (
	"unicode/utf8"

	"github.com/Paranoid-AF/inkling/surface"
)

// hostAction is what the host loop does after a key's default edit.
type hostAction int

const (
	actNone hostAction = iota
	actSubmit
	actQuit
)

// applyDefault performs the editor's own handling of ev on s. It runs only
// for keys suggestion handling did not intercept. In multiline mode Enter
// starts a new block and Ctrl-D submits.
func applyDefault(s surface.Surface, ev surface.KeyEvent, multiline bool) hostAction {
	text := []rune(s.Text())
	pos := s.Cursor()

	if ev.Ctrl {
		switch ev.Key {
		case "c":
			return actQuit
		case "d":
			if len(text) == 0 {
				return actQuit
			}
			if multiline {
				return actSubmit
			}
		case "a":
			s.SetCursor(0)
		case "e":
			s.SetCursor(len(text))
		case "u":
			s.SetText("")
			s.SetCursor(0)
		case "k":
			s.SetText(string(text[:pos]))
		}
		return actNone
	}
	if ev.Meta || ev.Alt {
		return actNone
	}

	switch ev.Key {
	case "Enter":
		if !multiline {
			return actSubmit
		}
		insert(s, text, pos, "\n")
	case "Backspace":
		if pos > 0 {
			s.SetText(string(text[:pos-1]) + string(text[pos:]))
			s.SetCursor(pos - 1)
		}
	case "Delete":
		if pos < len(text) {
			s.SetText(string(text[:pos]) + string(text[pos+1:]))
			s.SetCursor(pos)
		}
	case "ArrowLeft":
		s.SetCursor(pos - 1)
	case "ArrowRight":
		s.SetCursor(pos + 1)
	case "Home":
		s.SetCursor(0)
	case "End":
		s.SetCursor(len(text))
	default:
		if utf8.RuneCountInString(ev.Key) == 1 && ev.Key != "\t" {
			insert(s, text, pos, ev.Key)
		}
	}
	return actNone
}

func insert(s surface.Surface, text []rune, pos int, str string) {
	s.SetText(surface.Splice(string(text), pos, str))
	s.SetCursor(pos + utf8.RuneCountInString(str))
}
