package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/Paranoid-AF/inkling/surface"
)

// Editor owns the raw-mode terminal the host draws on.
// It reads from /dev/tty so it works even when stdout is redirected.
type Editor struct {
	tty      *os.File
	oldState *term.State
}

// NewEditor opens /dev/tty and switches to raw mode.
func NewEditor() (*Editor, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/tty: %w", err)
	}

	old, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}

	return &Editor{tty: tty, oldState: old}, nil
}

// Close restores terminal state and closes the tty fd.
func (e *Editor) Close() {
	term.Restore(int(e.tty.Fd()), e.oldState)
	e.tty.Close()
}

// Tty returns the tty file for writing prompts/UI.
func (e *Editor) Tty() *os.File {
	return e.tty
}

// Keys decodes tty input into key events until ctx is done or the tty
// is closed.
func (e *Editor) Keys(ctx context.Context) <-chan surface.KeyEvent {
	out := make(chan surface.KeyEvent)
	go func() {
		defer close(out)
		buf := make([]byte, 64)
		var dec keyDecoder
		for {
			n, err := e.tty.Read(buf)
			if err != nil {
				return
			}
			for _, ev := range dec.feed(buf[:n]) {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
