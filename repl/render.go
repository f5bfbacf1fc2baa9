package main

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/Paranoid-AF/inkling/suggest"
	"github.com/Paranoid-AF/inkling/surface"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// view renders the edited line: the pending suggestion faint, busy
// indicators as a spinner at their anchor, and block breaks as ↵.
type view struct {
	prompt string
	ghost  lipgloss.Style
	busy   lipgloss.Style
	plain  lipgloss.Style
}

// newView builds styles for the terminal behind w.
func newView(w io.Writer, prompt string) *view {
	r := lipgloss.NewRenderer(w)
	return &view{
		prompt: prompt,
		ghost:  r.NewStyle().Faint(true).Foreground(lipgloss.Color("8")),
		busy:   r.NewStyle().Foreground(lipgloss.Color("12")),
		plain:  r.NewStyle().Bold(true),
	}
}

// line returns the rendered line and the terminal column of the caret.
func (v *view) line(text string, cursor int, st suggest.State, marks []surface.Indicator, frame int) (string, int) {
	runes := []rune(text)

	gs, ge := -1, -1
	if st.Pending {
		gs = min(st.Offset, len(runes))
		ge = min(gs+utf8.RuneCountInString(st.SuggestionText), len(runes))
	}

	anchored := make(map[int]int, len(marks))
	for _, m := range marks {
		anchored[min(max(m.At, 0), len(runes))]++
	}

	var out, visible strings.Builder
	var run []rune
	runGhost := false
	flush := func() {
		if len(run) == 0 {
			return
		}
		if runGhost {
			out.WriteString(v.ghost.Render(string(run)))
		} else {
			out.WriteString(string(run))
		}
		run = run[:0]
	}

	col := 0
	for i := 0; i <= len(runes); i++ {
		for range anchored[i] {
			flush()
			glyph := spinnerFrames[frame%len(spinnerFrames)]
			out.WriteString(v.busy.Render(glyph))
			visible.WriteString(glyph)
		}
		if i == cursor {
			col = lipgloss.Width(visible.String())
		}
		if i == len(runes) {
			break
		}

		r := runes[i]
		if r == '\n' {
			r = '↵'
		}
		if ghost := i >= gs && i < ge; ghost != runGhost {
			flush()
			runGhost = ghost
		}
		run = append(run, r)
		visible.WriteRune(r)
	}
	flush()

	prompt := v.plain.Render(v.prompt)
	return prompt + out.String(), lipgloss.Width(prompt) + col
}
