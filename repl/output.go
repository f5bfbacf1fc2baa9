package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"
)

// termWriter wraps a file and converts \n to \r\n when the file is a terminal
// (needed because raw mode disables the kernel's NL→CRNL translation).
// When the file is redirected, \n passes through unchanged.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err // report original length to caller
}

// Suggestion outcomes recorded in an entry.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeKept     = "kept"
)

// suggestionRecord is one suggestion shown while composing an entry.
type suggestionRecord struct {
	Prompt     string `toml:"prompt"`
	Suggestion string `toml:"suggestion"`
	Offset     int    `toml:"offset"`
	Outcome    string `toml:"outcome"`
}

// entry is one submitted text with the suggestions decided while typing it.
type entry struct {
	Timestamp   time.Time          `toml:"timestamp"`
	Text        string             `toml:"text"`
	Suggestions []suggestionRecord `toml:"suggestions,omitempty"`
}

// writeEntry writes a single TOML-formatted entry to w.
func writeEntry(w io.Writer, e entry) error {
	fmt.Fprintf(w, "# %s\n\n", strings.Repeat("═", 60))
	if err := toml.NewEncoder(w).Encode(struct {
		Entry entry `toml:"entry"`
	}{e}); err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}
