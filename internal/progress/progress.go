// Package progress tracks batch progress for sequential recognize and rename
// loops, and the busy flags a UI shows while an action is in flight.
package progress

import (
	"context"
	"math"
)

// Pair is a done/total counter for one batch.
type Pair struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Percent returns completion in [0,100]. A zero total reports 0.
func (p Pair) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(p.Done) * 100 / float64(p.Total)))
	return min(max(pct, 0), 100)
}

// Kind names a batch.
type Kind string

const (
	Recognize Kind = "recognize"
	Rename    Kind = "rename"
)

// Flags are the in-progress indicators a UI binds to.
type Flags struct {
	Loading     bool `json:"loading"`
	Recognizing bool `json:"recognizing"`
	Renaming    bool `json:"renaming"`
}

// Tracker holds the two independent progress pairs and the busy flags.
// It is owned by a single session and not safe for concurrent use.
type Tracker struct {
	Recognize Pair  `json:"recognize"`
	Rename    Pair  `json:"rename"`
	Flags     Flags `json:"flags"`

	// OnEvent, if set, is called after every counter change.
	OnEvent func(Event) `json:"-"`
}

// Event reports one step of a batch.
type Event struct {
	Kind  Kind
	Index int
	Pair  Pair
}

// Start resets a batch to 0/total.
func (t *Tracker) Start(kind Kind, total int) {
	p := t.pair(kind)
	*p = Pair{Total: max(total, 0)}
	t.emit(Event{Kind: kind, Index: -1, Pair: *p})
}

// Advance increments done for a batch. Done never exceeds total.
func (t *Tracker) Advance(kind Kind, index int) {
	p := t.pair(kind)
	if p.Done < p.Total {
		p.Done++
	}
	t.emit(Event{Kind: kind, Index: index, Pair: *p})
}

// Get returns the current pair for a batch.
func (t *Tracker) Get(kind Kind) Pair {
	return *t.pair(kind)
}

// Busy sets the busy flags for an action and returns a func that clears them.
// Callers defer the returned func so a failure never leaves a flag set.
func (t *Tracker) Busy(kind Kind) func() {
	t.Flags.Loading = true
	switch kind {
	case Recognize:
		t.Flags.Recognizing = true
	case Rename:
		t.Flags.Renaming = true
	}
	return func() {
		t.Flags.Loading = false
		switch kind {
		case Recognize:
			t.Flags.Recognizing = false
		case Rename:
			t.Flags.Renaming = false
		}
	}
}

// Loading sets only the generic loading flag and returns its cleanup.
func (t *Tracker) Loading() func() {
	t.Flags.Loading = true
	return func() { t.Flags.Loading = false }
}

func (t *Tracker) pair(kind Kind) *Pair {
	if kind == Recognize {
		return &t.Recognize
	}
	return &t.Rename
}

func (t *Tracker) emit(e Event) {
	if t.OnEvent != nil {
		t.OnEvent(e)
	}
}

// Each runs fn over items one at a time, advancing the batch after each
// unit. The batch is reset to 0/len(items) first. The context is checked
// between iterations; the first error from fn or the context stops the loop
// and is returned, leaving completed units counted.
func Each[T any](ctx context.Context, t *Tracker, kind Kind, items []T, fn func(ctx context.Context, i int, item T) error) error {
	t.Start(kind, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, i, item); err != nil {
			return err
		}
		t.Advance(kind, i)
	}
	return nil
}
