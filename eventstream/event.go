// Package eventstream defines the canonical event model this module's
// consumer and serializer are built around, and the LiveEventSource that
// turns a raw libyaml parser into a bounded, alias-expanding stream of
// those events.
package eventstream

import "github.com/yamlcore/yamlcore/yamlerr"

// EventType enumerates the canonical event kinds. LiveEventSource passes
// the StreamStart/StreamEnd/DocumentStart/DocumentEnd envelope through to
// its caller; it does not filter them out. The facade consumes those
// envelope events itself, so the decoder only sees the node events of one
// document.
type EventType int

const (
	StreamStart EventType = iota
	StreamEnd
	DocumentStart
	DocumentEnd
	Scalar
	SequenceStart
	SequenceEnd
	MappingStart
	MappingEnd
	Alias
)

func (t EventType) String() string {
	switch t {
	case StreamStart:
		return "stream start"
	case StreamEnd:
		return "stream end"
	case DocumentStart:
		return "document start"
	case DocumentEnd:
		return "document end"
	case Scalar:
		return "scalar"
	case SequenceStart:
		return "sequence start"
	case SequenceEnd:
		return "sequence end"
	case MappingStart:
		return "mapping start"
	case MappingEnd:
		return "mapping end"
	case Alias:
		return "alias"
	default:
		return "unknown event"
	}
}

// ScalarStyle records how a scalar was written, needed both to interpret
// it (a quoted "true" is never a bool) and to round-trip it on encode.
type ScalarStyle int

const (
	StylePlain ScalarStyle = iota
	StyleSingleQuoted
	StyleDoubleQuoted
	StyleLiteral
	StyleFolded
)

// Tag is the resolved semantic tag of a node, independent of which of the
// four textual forms (shorthand "!T", full "!!T", or either canonical
// "tag:yaml.org,2002:T" spelling) produced it.
type Tag int

const (
	TagNone Tag = iota
	TagNonSpecific
	TagString
	TagInteger
	TagFloat
	TagBoolean
	TagNull
	TagBinary
	TagSequence
	TagMapping
	TagTimestamp
	TagDegrees
	TagRadians
	TagUnknown
)

// Event is the canonical, decoded representation of one step of the YAML
// stream: a scalar, the start/end of a sequence or mapping, or an alias
// reference. Every Event carries its source Location for diagnostics.
type Event struct {
	Type     EventType
	Anchor   string
	Tag      Tag
	RawTag   string // the tag text as written, if any; "" when untagged
	Value    string // scalar text, or alias target id for Type==Alias
	Style    ScalarStyle
	Implicit bool
	Location yamlerr.Location
}

// IsContainerStart reports whether ev opens a sequence or mapping.
func (ev Event) IsContainerStart() bool {
	return ev.Type == SequenceStart || ev.Type == MappingStart
}

// IsContainerEnd reports whether ev closes a sequence or mapping.
func (ev Event) IsContainerEnd() bool {
	return ev.Type == SequenceEnd || ev.Type == MappingEnd
}

// Source pulls canonical events one at a time. Implementations include
// LiveEventSource (reading from text) and ReplayEvents (replaying a
// captured subtree).
type Source interface {
	// Next consumes and returns the next event.
	Next() (Event, error)
	// Peek returns the next event without consuming it.
	Peek() (Event, error)
	// LastLocation returns the location of the most recently returned
	// event, used to anchor EOF errors when Next/Peek return an error.
	LastLocation() yamlerr.Location
}

// AliasObserver is notified of each raw Alias event before LiveEventSource
// expands it in place. Source.Next/Peek never surface an Alias event
// themselves (the expansion takes its place), so a budget enforcer that
// wants to count aliases registers itself through this hook instead.
type AliasObserver interface {
	ObserveAlias(ev Event) error
}
