package suggest

import (
	"strings"

	"github.com/Paranoid-AF/inkling/surface"
)

var acceptKeys = map[string]bool{
	"Tab":        true,
	"Enter":      true,
	"ArrowRight": true,
}

// passThroughKeys combine with Ctrl/Meta into undo, cut, copy, paste and select all.
var passThroughKeys = map[string]bool{
	"z": true, "x": true, "c": true, "v": true, "a": true,
}

// modifierKeys are keydowns of a modifier on its own.
var modifierKeys = map[string]bool{
	"Shift": true, "Control": true, "Meta": true, "Alt": true,
	"CapsLock": true, "AltGraph": true,
}

// Classify maps a key event to exactly one state machine event. Rules are
// tried in order: accept, reject, trigger, pass-through.
func Classify(ev surface.KeyEvent, pending bool) Event {
	switch {
	case pending && acceptKeys[ev.Key]:
		return EventAccept
	case pending && !ev.Modified() && !modifierKeys[ev.Key]:
		return EventReject
	case ev.Modified() && ev.Key == ".":
		return EventTrigger
	case ev.Modified() && passThroughKeys[strings.ToLower(ev.Key)]:
		return EventPassThrough
	}
	return EventNone
}

// Dispatcher routes key events on qualifying elements to a Controller.
type Dispatcher struct {
	ctrl *Controller
}

// NewDispatcher returns a dispatcher feeding ctrl.
func NewDispatcher(ctrl *Controller) *Dispatcher {
	return &Dispatcher{ctrl: ctrl}
}

// Dispatch is a surface.KeyListener. Events whose target does not qualify
// are ignored entirely.
func (d *Dispatcher) Dispatch(ev surface.KeyEvent) (preventDefault bool) {
	if !surface.Qualifies(ev.Target) {
		return false
	}
	event := Classify(ev, d.ctrl.Pending())
	if event == EventNone {
		return false
	}
	return d.ctrl.Apply(event)
}
