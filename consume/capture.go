package consume

import (
	"github.com/yamlcore/yamlcore/eventstream"
	"github.com/yamlcore/yamlcore/yamlerr"
)

// CaptureNode consumes exactly one full node from src — a single Scalar
// event, or a SequenceStart/MappingStart through its matching balanced
// end — and returns the events that made it up, so the node can be
// replayed later (for merge-key sources, duplicate-key fingerprinting, or
// deferred decode into a type discovered only after the whole mapping has
// been scanned).
func CaptureNode(src eventstream.Source) ([]eventstream.Event, error) {
	first, err := src.Next()
	if err != nil {
		return nil, err
	}
	events := []eventstream.Event{first}

	if !first.IsContainerStart() {
		return events, nil
	}

	depth := 1
	for depth > 0 {
		ev, err := src.Next()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
		switch {
		case ev.IsContainerStart():
			depth++
		case ev.IsContainerEnd():
			depth--
		}
	}
	return events, nil
}

// ReplayEvents serves a previously captured node's events back out as an
// eventstream.Source, letting the same decode logic that reads directly
// from the live stream also decode a captured subtree (used for merge
// values and for the typeless "any" capture-then-dispatch path).
type ReplayEvents struct {
	events []eventstream.Event
	idx    int
}

// NewReplayEvents wraps a captured node's events for replay.
func NewReplayEvents(events []eventstream.Event) *ReplayEvents {
	return &ReplayEvents{events: events}
}

func (r *ReplayEvents) Next() (eventstream.Event, error) {
	ev, err := r.Peek()
	if err != nil {
		return ev, err
	}
	r.idx++
	return ev, nil
}

func (r *ReplayEvents) Peek() (eventstream.Event, error) {
	if r.idx >= len(r.events) {
		loc := yamlerr.Unknown
		if len(r.events) > 0 {
			loc = r.events[len(r.events)-1].Location
		}
		return eventstream.Event{}, &yamlerr.EOFError{Loc: loc}
	}
	return r.events[r.idx], nil
}

func (r *ReplayEvents) LastLocation() yamlerr.Location {
	if r.idx > 0 && r.idx-1 < len(r.events) {
		return r.events[r.idx-1].Location
	}
	if len(r.events) > 0 {
		return r.events[0].Location
	}
	return yamlerr.Unknown
}

// Remaining reports whether the replay has events left to serve.
func (r *ReplayEvents) Remaining() bool { return r.idx < len(r.events) }
