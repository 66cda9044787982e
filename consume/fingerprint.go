package consume

import (
	"fmt"
	"strings"

	"github.com/yamlcore/yamlcore/eventstream"
)

// Fingerprint renders a captured node's events into a canonical string
// used to detect duplicate mapping keys — including non-scalar keys, like
// a sequence or nested mapping used as a key, which a plain string
// comparison could never catch. Two nodes with the same Fingerprint are
// considered the same key regardless of formatting differences (quoting
// style, for instance) that don't change meaning.
func Fingerprint(events []eventstream.Event) string {
	var b strings.Builder
	writeFingerprint(&b, events, 0)
	return b.String()
}

func writeFingerprint(b *strings.Builder, events []eventstream.Event, i int) int {
	if i >= len(events) {
		return i
	}
	ev := events[i]
	switch ev.Type {
	case eventstream.Scalar:
		fmt.Fprintf(b, "s(%d):%s", ev.Tag, ev.Value)
		return i + 1
	case eventstream.SequenceStart:
		b.WriteString("[")
		i++
		for i < len(events) && events[i].Type != eventstream.SequenceEnd {
			i = writeFingerprint(b, events, i)
			b.WriteString(",")
		}
		b.WriteString("]")
		return i + 1
	case eventstream.MappingStart:
		b.WriteString("{")
		i++
		for i < len(events) && events[i].Type != eventstream.MappingEnd {
			i = writeFingerprint(b, events, i) // key
			b.WriteString(":")
			i = writeFingerprint(b, events, i) // value
			b.WriteString(",")
		}
		b.WriteString("}")
		return i + 1
	default:
		return i + 1
	}
}

// StringyScalarValue returns a captured single-scalar node's text,
// reporting false if the node is not a bare scalar (used to recognize
// "<<" merge keys and to bind struct field names cheaply, without paying
// for a full Fingerprint render).
func StringyScalarValue(events []eventstream.Event) (string, bool) {
	if len(events) != 1 || events[0].Type != eventstream.Scalar {
		return "", false
	}
	return events[0].Value, true
}
