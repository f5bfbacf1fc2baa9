package surface

import "sync"

// Indicator is a busy marker shown in the overlay.
type Indicator struct {
	ID int
	// At is the caret offset the indicator is anchored to.
	At int
}

// Overlay is the layer busy indicators are drawn on. Completion requests
// run off the host loop, so it is safe for concurrent use.
type Overlay struct {
	mu     sync.Mutex
	nextID int
	items  map[int]Indicator
}

// NewOverlay returns an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{items: make(map[int]Indicator)}
}

// Show adds one indicator anchored at caret offset at and returns the
// function that removes it. The release function is idempotent.
func (o *Overlay) Show(at int) (release func()) {
	o.mu.Lock()
	o.nextID++
	id := o.nextID
	o.items[id] = Indicator{ID: id, At: at}
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.items, id)
			o.mu.Unlock()
		})
	}
}

// Count returns the number of live indicators.
func (o *Overlay) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// Indicators returns the live indicators in no particular order.
func (o *Overlay) Indicators() []Indicator {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Indicator, 0, len(o.items))
	for _, it := range o.items {
		out = append(out, it)
	}
	return out
}
