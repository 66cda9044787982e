package consume

import "github.com/yamlcore/yamlcore/eventstream"

// FromEvents lets a type decode itself directly from a captured event
// subtree, bypassing the reflection-based Decoder entirely — the
// consume-side half of this module's escape hatch, mirroring the
// teacher's own Unmarshaler interface but built on the event model
// instead of a Node tree.
//
// src serves exactly the events that make up this value's single node
// (one Scalar, or a balanced SequenceStart/MappingStart..End run); it is
// safe to call CaptureNode or recurse into NewDecoder(src, cfg).Decode
// from within an implementation.
type FromEvents interface {
	FromEventsYAML(src eventstream.Source) error
}
