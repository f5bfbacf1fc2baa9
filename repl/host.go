package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Paranoid-AF/inkling/suggest"
	"github.com/Paranoid-AF/inkling/surface"
)

const spinnerInterval = 100 * time.Millisecond

// host is the single event loop driving the document. Key events, request
// settlements and spinner ticks are all handled here, one at a time.
type host struct {
	doc       *surface.Document
	field     surface.Surface
	ctrl      *suggest.Controller // nil when suggestions are disabled
	overlay   *surface.Overlay
	view      *view
	multiline bool

	tty io.Writer // screen
	out io.Writer // submitted entries
	log *slog.Logger

	records []suggestionRecord
	frame   int
}

func (h *host) run(ctx context.Context, keys <-chan surface.KeyEvent) error {
	var settlements <-chan suggest.Settlement
	if h.ctrl != nil {
		settlements = h.ctrl.Settlements()
	}

	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	h.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-keys:
			if !ok {
				return nil
			}
			switch h.handleKey(ev) {
			case actQuit:
				fmt.Fprint(h.tty, "\r\n")
				return nil
			case actSubmit:
				if err := h.submit(); err != nil {
					return err
				}
			}
		case s := <-settlements:
			h.ctrl.Settle(s)
		case <-ticker.C:
			if h.overlay.Count() == 0 {
				continue
			}
			h.frame++
		}
		h.draw()
	}
}

// handleKey dispatches ev through the document and applies the editor's
// default edit unless a listener intercepted it.
func (h *host) handleKey(ev surface.KeyEvent) hostAction {
	var before suggest.State
	if h.ctrl != nil {
		before = h.ctrl.State()
	}

	prevented := h.doc.DispatchKey(ev)
	h.recordDecision(before, ev)
	if prevented {
		return actNone
	}
	return applyDefault(h.field, ev, h.multiline)
}

// recordDecision notes what became of a suggestion that was pending
// before ev and is gone after it.
func (h *host) recordDecision(before suggest.State, ev surface.KeyEvent) {
	if !before.Pending || h.ctrl.Pending() {
		return
	}
	var outcome string
	switch suggest.Classify(ev, true) {
	case suggest.EventAccept:
		outcome = outcomeAccepted
	case suggest.EventReject:
		outcome = outcomeRejected
	default:
		outcome = outcomeKept
	}
	h.log.Debug("suggestion decided", "outcome", outcome, "suggestion", before.SuggestionText)
	h.records = append(h.records, suggestionRecord{
		Prompt:     before.PromptText,
		Suggestion: before.SuggestionText,
		Offset:     before.Offset,
		Outcome:    outcome,
	})
}

// submit writes the field's text as an entry and clears the field.
func (h *host) submit() error {
	text := h.field.Text()
	fmt.Fprint(h.tty, "\r\n")
	if text == "" {
		return nil
	}

	e := entry{Timestamp: time.Now(), Text: text, Suggestions: h.records}
	h.records = nil
	h.field.SetText("")
	h.field.SetCursor(0)
	return writeEntry(h.out, e)
}

func (h *host) draw() {
	var st suggest.State
	if h.ctrl != nil {
		st = h.ctrl.State()
	}
	line, col := h.view.line(h.field.Text(), h.field.Cursor(), st, h.overlay.Indicators(), h.frame)

	// \r = carriage return, \x1b[K = clear to end of line
	fmt.Fprintf(h.tty, "\r\x1b[K%s\r", line)
	if col > 0 {
		fmt.Fprintf(h.tty, "\x1b[%dC", col)
	}
}
