// Package surface models the editable regions of a host document and the
// focus, caret and key-listener plumbing around them.
//
// Offsets are character (rune) offsets into a surface's text.
package surface

import (
	"strings"
	"unicode/utf8"
)

// Surface is an element of the host document with text content and a caret.
type Surface interface {
	Text() string
	SetText(text string)
	Cursor() int
	SetCursor(offset int)
}

// Qualifies reports whether s is an editable region suggestions apply to.
func Qualifies(s Surface) bool {
	switch s.(type) {
	case *PlainField, *Textbox:
		return true
	}
	return false
}

// PlainField is a plain editable field. Its content is raw character data.
type PlainField struct {
	value  []rune
	cursor int
}

// NewPlainField returns a field holding text with the caret at the end.
func NewPlainField(text string) *PlainField {
	f := &PlainField{}
	f.SetText(text)
	f.cursor = len(f.value)
	return f
}

func (f *PlainField) Text() string { return string(f.value) }

// SetText replaces the whole content. The caret is clamped to the new length.
func (f *PlainField) SetText(text string) {
	f.value = []rune(text)
	f.cursor = clamp(f.cursor, len(f.value))
}

func (f *PlainField) Cursor() int { return f.cursor }

func (f *PlainField) SetCursor(offset int) {
	f.cursor = clamp(offset, len(f.value))
}

// Textbox is a structured rich text region. Its content is a list of blocks
// and its text is what the blocks render to, one block per line.
type Textbox struct {
	blocks []string
	cursor int
}

// NewTextbox returns a textbox whose blocks are the lines of text, with the
// caret at the end.
func NewTextbox(text string) *Textbox {
	b := &Textbox{}
	b.SetText(text)
	b.cursor = utf8.RuneCountInString(b.Text())
	return b
}

// Blocks returns a copy of the block list.
func (b *Textbox) Blocks() []string {
	return append([]string(nil), b.blocks...)
}

func (b *Textbox) Text() string { return strings.Join(b.blocks, "\n") }

// SetText re-splits text into blocks. The caret is clamped to the new length.
func (b *Textbox) SetText(text string) {
	b.blocks = strings.Split(text, "\n")
	b.cursor = clamp(b.cursor, utf8.RuneCountInString(text))
}

func (b *Textbox) Cursor() int { return b.cursor }

func (b *Textbox) SetCursor(offset int) {
	b.cursor = clamp(offset, utf8.RuneCountInString(b.Text()))
}

// Static is a non-editable element such as a label or a button. Key events
// targeting it are never dispatched to suggestion handling.
type Static struct {
	Label string
}

func (s *Static) Text() string   { return s.Label }
func (s *Static) SetText(string) {}
func (s *Static) Cursor() int    { return 0 }
func (s *Static) SetCursor(int)  {}

// Splice inserts insert into text at the given character offset, clamped
// to [0, len(text)].
func Splice(text string, offset int, insert string) string {
	r := []rune(text)
	offset = clamp(offset, len(r))
	return string(r[:offset]) + insert + string(r[offset:])
}

func clamp(offset, n int) int {
	if offset < 0 {
		return 0
	}
	if offset > n {
		return n
	}
	return offset
}
