package emit

import "github.com/yamlcore/yamlcore/eventstream"

// ToEvents lets a type serialize itself directly as a stream of events,
// bypassing the reflection-based Encoder — the emit-side half of this
// module's escape hatch, mirroring the teacher's Marshaler interface but
// expressed over the event model instead of a Node tree.
//
// Implementations call emit on each event that makes up their single
// node (one Scalar, or a balanced SequenceStart/MappingStart..End run).
type ToEvents interface {
	ToEventsYAML(emit func(eventstream.Event) error) error
}
