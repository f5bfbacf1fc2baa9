package suggest

import (
	"context"
	"log/slog"
	"unicode/utf8"

	inkling "github.com/Paranoid-AF/inkling"
	"github.com/Paranoid-AF/inkling/complete"
	"github.com/Paranoid-AF/inkling/surface"
)

// Selection reads and writes the focused text and caret of the host
// document. *surface.Document implements it.
type Selection interface {
	FocusedText() string
	CursorOffset() int
	SetFocusedText(text string)
	SetCursorOffset(offset int)
}

// Ticket identifies one completion request.
type Ticket struct {
	// Seq is the request's sequence number; only the latest one is applied.
	Seq int
	// Prompt is the focused text captured at trigger time.
	Prompt string
	// Offset is the caret offset captured at trigger time.
	Offset int
}

// Settlement is the outcome of a completion request.
type Settlement struct {
	Ticket Ticket
	Text   string
	Err    error
}

// Controller owns the suggestion state for one document. Apply and Settle
// must be called from a single goroutine (the host's event loop); the only
// work done elsewhere is the completion call itself, whose result comes back
// through Settlements.
type Controller struct {
	sel       Selection
	completer complete.Completer
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	state    State
	seq      int
	inflight bool // the latest request has not settled yet

	settlements chan Settlement
}

// NewController returns a controller editing sel and fetching suggestions
// from completer. Requests run under ctx. A nil logger uses slog.Default().
func NewController(ctx context.Context, sel Selection, completer complete.Completer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Controller{
		sel:         sel,
		completer:   completer,
		log:         logger,
		ctx:         ctx,
		cancel:      cancel,
		settlements: make(chan Settlement, 8),
	}
}

// Close abandons outstanding requests. Their settlements are dropped.
func (c *Controller) Close() {
	c.cancel()
}

// Settlements delivers request outcomes. The host must pass each one to
// Settle on its event loop.
func (c *Controller) Settlements() <-chan Settlement {
	return c.settlements
}

// State returns a copy of the current suggestion state.
func (c *Controller) State() State {
	return c.state
}

// Pending reports whether a suggestion is spliced in and undecided.
func (c *Controller) Pending() bool {
	return c.state.Pending
}

// Phase derives the lifecycle phase from the state and the latest request.
func (c *Controller) Phase() Phase {
	switch {
	case c.state.Pending:
		return Suggesting
	case c.inflight:
		return AwaitingResponse
	}
	return Idle
}

// Apply runs a classified key event through the state machine and reports
// whether the key's default action should be suppressed. A trigger on empty
// text is swallowed without a request.
func (c *Controller) Apply(ev Event) (preventDefault bool) {
	if ev == EventTrigger && c.sel.FocusedText() == "" {
		c.log.Debug("nothing to complete")
		return true
	}
	return c.apply(ev, Settlement{})
}

// Settle applies a request outcome. Outcomes of requests superseded by a
// newer trigger are discarded. A suggestion arriving after the focused text
// was cleared settles like a failure. It reports whether s was applied.
func (c *Controller) Settle(s Settlement) bool {
	if s.Ticket.Seq != c.seq || !c.inflight {
		c.log.Debug("discarding stale completion", "request_id", s.Ticket.Seq, "latest", c.seq)
		return false
	}
	c.inflight = false

	if s.Err != nil {
		c.log.Warn("completion failed", "request_id", s.Ticket.Seq, "error", s.Err)
		c.apply(EventFailure, s)
		return true
	}
	if c.sel.FocusedText() == "" {
		c.log.Debug("focused text is empty, dropping suggestion", "request_id", s.Ticket.Seq)
		c.apply(EventFailure, s)
		return true
	}
	c.apply(EventResponse, s)
	return true
}

func (c *Controller) apply(ev Event, s Settlement) (preventDefault bool) {
	from := c.Phase()
	next, effects := Transition(from, ev)
	for _, e := range effects {
		switch e {
		case EffectPreventDefault:
			preventDefault = true
		case EffectRequest:
			c.request()
		case EffectInsert:
			c.insert(s)
		case EffectCommit:
			c.log.Debug("accepting suggestion", "suggestion", c.state.SuggestionText)
			c.state = State{}
		case EffectRollback:
			c.log.Debug("rejecting suggestion", "suggestion", c.state.SuggestionText)
			c.sel.SetFocusedText(c.state.PriorText)
			c.sel.SetCursorOffset(c.state.Offset)
			c.state = State{}
		case EffectClear:
			c.state = State{}
		}
	}
	if len(effects) > 0 {
		c.log.Debug("transition", "event", ev, "from", from, "to", next)
	}
	return preventDefault
}

// request captures the prompt and caret and starts the completion call.
func (c *Controller) request() {
	c.seq++
	t := Ticket{Seq: c.seq, Prompt: c.sel.FocusedText(), Offset: c.sel.CursorOffset()}
	c.inflight = true

	c.log.Debug("requesting completion", "request_id", t.Seq, "prompt", t.Prompt, "offset", t.Offset)

	req := &inkling.Request{RequestID: t.Seq, Prompt: t.Prompt, CursorPos: t.Offset}
	go func() {
		text, err := c.completer.Complete(c.ctx, req)
		select {
		case c.settlements <- Settlement{Ticket: t, Text: text, Err: err}:
		case <-c.ctx.Done():
		}
	}()
}

// insert splices the suggestion into the current text at the offset
// captured at trigger time.
func (c *Controller) insert(s Settlement) {
	current := c.sel.FocusedText()
	offset := s.Ticket.Offset
	if n := utf8.RuneCountInString(current); offset > n {
		offset = n
	}
	composed := surface.Splice(current, offset, s.Text)

	c.sel.SetFocusedText(composed)
	c.sel.SetCursorOffset(offset + utf8.RuneCountInString(s.Text))
	c.state = State{
		PriorText:      current,
		ComposedText:   composed,
		SuggestionText: s.Text,
		PromptText:     s.Ticket.Prompt,
		Offset:         offset,
		Pending:        true,
	}
}
