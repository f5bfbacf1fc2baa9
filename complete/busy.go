package complete

import (
	"context"

	inkling "github.com/Paranoid-AF/inkling"
)

// Indicator shows a busy marker anchored at a caret offset and returns the
// function that removes it.
type Indicator interface {
	Show(at int) (release func())
}

// Busy wraps a Completer so that exactly one indicator is visible for the
// duration of each call. The indicator is removed when the call returns,
// whatever the outcome.
type Busy struct {
	Completer Completer
	Indicator Indicator
}

// WithIndicator wraps c with indicator handling.
func WithIndicator(c Completer, ind Indicator) *Busy {
	return &Busy{Completer: c, Indicator: ind}
}

func (b *Busy) Complete(ctx context.Context, req *inkling.Request) (string, error) {
	release := b.Indicator.Show(req.CursorPos)
	defer release()
	return b.Completer.Complete(ctx, req)
}
