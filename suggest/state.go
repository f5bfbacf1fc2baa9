// Package suggest runs the inline suggestion lifecycle: trigger a completion,
// splice it in at the caret, then commit or roll it back on the next key.
package suggest

// State is the record of the suggestion currently shown. When Pending is
// false every other field is zero.
type State struct {
	// PriorText is the focused text immediately before the suggestion was spliced in.
	PriorText string
	// ComposedText is PriorText with the suggestion spliced in.
	ComposedText string
	// SuggestionText is the raw continuation returned by the completer.
	SuggestionText string
	// PromptText is the text that was sent as the completion request.
	PromptText string
	// Offset is the splice offset (characters) captured at trigger time.
	Offset  int
	Pending bool
}

// Phase is the controller's position in the suggestion lifecycle.
type Phase int

const (
	// Idle: no suggestion pending and no request outstanding.
	Idle Phase = iota
	// AwaitingResponse: the latest request is in flight, nothing is pending yet.
	AwaitingResponse
	// Suggesting: a suggestion is spliced in and waiting to be accepted or rejected.
	Suggesting
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting_response"
	case Suggesting:
		return "suggesting"
	}
	return "unknown"
}
