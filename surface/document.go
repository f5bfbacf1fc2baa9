package surface

import "unicode/utf8"

// KeyEvent is a keydown delivered to the document.
type KeyEvent struct {
	// Key is the key name: a single character ("a", "."), or a named key
	// such as "Tab", "Enter", "ArrowRight", "Backspace", "Escape".
	Key   string
	Ctrl  bool
	Meta  bool
	Alt   bool
	Shift bool
	// Target is the element the event was delivered to.
	Target Surface
}

// Modified reports whether Ctrl or Meta is held.
func (e KeyEvent) Modified() bool {
	return e.Ctrl || e.Meta
}

// KeyListener handles a key event and reports whether the default action
// should be suppressed.
type KeyListener func(ev KeyEvent) (preventDefault bool)

// Document is the host document: a focused element plus the key listeners
// attached to it. A Document is not safe for concurrent use; the host drives
// it from a single loop.
type Document struct {
	focused   Surface
	listeners []KeyListener
}

// NewDocument returns an empty document with nothing focused.
func NewDocument() *Document {
	return &Document{}
}

// Focus moves focus to s. A nil s clears focus.
func (d *Document) Focus(s Surface) {
	d.focused = s
}

// Blur clears focus.
func (d *Document) Blur() {
	d.focused = nil
}

// Focused returns the focused element, or nil.
func (d *Document) Focused() Surface {
	return d.focused
}

// AddKeyListener attaches l. Listeners run in attach order for every event.
func (d *Document) AddKeyListener(l KeyListener) {
	d.listeners = append(d.listeners, l)
}

// Listeners returns the number of attached key listeners.
func (d *Document) Listeners() int {
	return len(d.listeners)
}

// DispatchKey delivers ev to every listener. A zero Target defaults to the
// focused element. It reports whether any listener prevented the default action.
func (d *Document) DispatchKey(ev KeyEvent) (defaultPrevented bool) {
	if ev.Target == nil {
		ev.Target = d.focused
	}
	for _, l := range d.listeners {
		if l(ev) {
			defaultPrevented = true
		}
	}
	return defaultPrevented
}

// FocusedText returns the text of the focused element, or "" when nothing
// is focused.
func (d *Document) FocusedText() string {
	if d.focused == nil {
		return ""
	}
	return d.focused.Text()
}

// CursorOffset returns the caret offset in the focused element, or 0 when
// nothing is focused.
func (d *Document) CursorOffset() int {
	if d.focused == nil {
		return 0
	}
	return d.focused.Cursor()
}

// SetFocusedText replaces the focused element's content. No-op without focus.
func (d *Document) SetFocusedText(text string) {
	if d.focused == nil {
		return
	}
	d.focused.SetText(text)
}

// SetCursorOffset moves the caret in the focused element, clamped to its
// text, collapsing any selection. No-op without focus.
func (d *Document) SetCursorOffset(offset int) {
	if d.focused == nil {
		return
	}
	d.focused.SetCursor(clamp(offset, utf8.RuneCountInString(d.focused.Text())))
}
