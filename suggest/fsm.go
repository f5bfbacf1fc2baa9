package suggest

// Event is a classified input to the state machine.
type Event int

const (
	// EventNone is a key that suggestion handling leaves alone.
	EventNone Event = iota
	// EventAccept commits the pending suggestion.
	EventAccept
	// EventReject rolls the pending suggestion back.
	EventReject
	// EventTrigger requests a new completion.
	EventTrigger
	// EventPassThrough is an editing shortcut (undo, cut, copy, paste,
	// select all) that invalidates the suggestion without restoring text.
	EventPassThrough
	// EventResponse is the latest request settling with a suggestion.
	EventResponse
	// EventFailure is the latest request settling with an error.
	EventFailure
)

func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventAccept:
		return "accept"
	case EventReject:
		return "reject"
	case EventTrigger:
		return "trigger"
	case EventPassThrough:
		return "pass_through"
	case EventResponse:
		return "response"
	case EventFailure:
		return "failure"
	}
	return "unknown"
}

// Effect is a side effect the controller performs for a transition.
type Effect int

const (
	// EffectPreventDefault suppresses the key's default action in the host.
	EffectPreventDefault Effect = iota
	// EffectRequest issues a completion request.
	EffectRequest
	// EffectInsert splices the settled suggestion into the focused text.
	EffectInsert
	// EffectCommit keeps the composed text and clears state.
	EffectCommit
	// EffectRollback restores the prior text and clears state.
	EffectRollback
	// EffectClear clears state without touching the text.
	EffectClear
)

func (e Effect) String() string {
	switch e {
	case EffectPreventDefault:
		return "prevent_default"
	case EffectRequest:
		return "request"
	case EffectInsert:
		return "insert"
	case EffectCommit:
		return "commit"
	case EffectRollback:
		return "rollback"
	case EffectClear:
		return "clear"
	}
	return "unknown"
}

// Transition maps the current phase and a classified event to the next
// phase and the effects to apply, in order. It has no side effects.
//
// A phase of AwaitingResponse means the latest request is still in flight;
// the next phase reported for key events assumes it stays in flight.
func Transition(p Phase, ev Event) (Phase, []Effect) {
	switch ev {
	case EventAccept:
		if p != Suggesting {
			return p, nil
		}
		return Idle, []Effect{EffectPreventDefault, EffectCommit}

	case EventReject:
		if p != Suggesting {
			return p, nil
		}
		return Idle, []Effect{EffectPreventDefault, EffectRollback}

	case EventTrigger:
		// A pending suggestion stays visible until the new one lands.
		if p == Suggesting {
			return Suggesting, []Effect{EffectPreventDefault, EffectRequest}
		}
		return AwaitingResponse, []Effect{EffectPreventDefault, EffectRequest}

	case EventPassThrough:
		if p == AwaitingResponse {
			return AwaitingResponse, []Effect{EffectClear}
		}
		return Idle, []Effect{EffectClear}

	case EventResponse:
		return Suggesting, []Effect{EffectInsert}

	case EventFailure:
		if p == Suggesting {
			return Suggesting, nil
		}
		return Idle, nil
	}
	return p, nil
}
