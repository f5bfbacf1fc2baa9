package surface

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualifies(t *testing.T) {
	assert.True(t, Qualifies(NewPlainField("")))
	assert.True(t, Qualifies(NewTextbox("")))
	assert.False(t, Qualifies(&Static{Label: "OK"}))
	assert.False(t, Qualifies(nil))
}

func TestSplice(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		offset int
		insert string
		want   string
	}{
		{"end", "The quick brown fox", 19, " jumps", "The quick brown fox jumps"},
		{"start", "world", 0, "hello ", "hello world"},
		{"middle", "ac", 1, "b", "abc"},
		{"past end clamps", "abc", 99, "!", "abc!"},
		{"negative clamps", "abc", -3, "!", "!abc"},
		{"empty text", "", 0, "x", "x"},
		{"multibyte offset is in runes", "héllo", 2, "_", "hé_llo"},
		{"empty insert", "abc", 1, "", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Splice(tt.text, tt.offset, tt.insert))
		})
	}
}

func TestSpliceProperty(t *testing.T) {
	prior := "Grüße, Welt"
	r := []rune(prior)
	for off := 0; off <= len(r); off++ {
		got := Splice(prior, off, "<s>")
		assert.Equal(t, string(r[:off])+"<s>"+string(r[off:]), got, "offset %d", off)
	}
}

func TestPlainFieldCursorClamp(t *testing.T) {
	f := NewPlainField("abc")
	assert.Equal(t, 3, f.Cursor())

	f.SetCursor(10)
	assert.Equal(t, 3, f.Cursor())

	f.SetText("a")
	assert.Equal(t, 1, f.Cursor())

	f.SetCursor(-1)
	assert.Equal(t, 0, f.Cursor())
}

func TestTextboxBlocks(t *testing.T) {
	b := NewTextbox("first\nsecond")
	assert.Equal(t, []string{"first", "second"}, b.Blocks())
	assert.Equal(t, "first\nsecond", b.Text())
	assert.Equal(t, 12, b.Cursor())

	b.SetText("one\ntwo\nthree")
	assert.Equal(t, []string{"one", "two", "three"}, b.Blocks())
	assert.Equal(t, "one\ntwo\nthree", b.Text())
}

func TestDocumentNoFocusIsNoop(t *testing.T) {
	d := NewDocument()

	assert.Equal(t, "", d.FocusedText())
	assert.Equal(t, 0, d.CursorOffset())
	assert.NotPanics(t, func() {
		d.SetFocusedText("x")
		d.SetCursorOffset(4)
	})
}

func TestDocumentReadWriteBothVariants(t *testing.T) {
	for _, s := range []Surface{NewPlainField("hello"), NewTextbox("hello")} {
		d := NewDocument()
		d.Focus(s)

		assert.Equal(t, "hello", d.FocusedText())
		d.SetFocusedText("hello there")
		d.SetCursorOffset(20)
		assert.Equal(t, "hello there", s.Text())
		assert.Equal(t, 11, d.CursorOffset())

		d.Blur()
		assert.Equal(t, "", d.FocusedText())
	}
}

func TestDispatchKeyDefaultsTarget(t *testing.T) {
	d := NewDocument()
	f := NewPlainField("x")
	d.Focus(f)

	var got Surface
	d.AddKeyListener(func(ev KeyEvent) bool {
		got = ev.Target
		return false
	})
	d.AddKeyListener(func(ev KeyEvent) bool { return ev.Key == "Tab" })

	assert.False(t, d.DispatchKey(KeyEvent{Key: "a"}))
	assert.Same(t, f, got)
	assert.True(t, d.DispatchKey(KeyEvent{Key: "Tab"}))
	assert.Equal(t, 2, d.Listeners())
}

func TestOverlayShowRelease(t *testing.T) {
	o := NewOverlay()

	release := o.Show(5)
	require.Equal(t, 1, o.Count())
	assert.Equal(t, 5, o.Indicators()[0].At)

	release()
	release()
	assert.Equal(t, 0, o.Count())
}

func TestOverlayConcurrent(t *testing.T) {
	o := NewOverlay()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(at int) {
			defer wg.Done()
			release := o.Show(at)
			release()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, o.Count())
}
