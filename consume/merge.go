package consume

import (
	"github.com/yamlcore/yamlcore/eventstream"
	"github.com/yamlcore/yamlcore/yamlerr"
	"github.com/yamlcore/yamlcore/yamlopts"
)

// Entry is one fully-captured key/value pair of a mapping, ready either
// to be bound to a struct field or inserted into a Go map.
type Entry struct {
	Key      []eventstream.Event
	Value    []eventstream.Event
	KeyLoc   yamlerr.Location
	ValueLoc yamlerr.Location
}

// rawEntry is a captured key/value pair before merge-key expansion, still
// tagged with whether its key was "<<".
type rawEntry struct {
	key     []eventstream.Event
	value   []eventstream.Event
	isMerge bool
}

// readMappingEntries captures every key/value pair of a mapping whose
// MappingStart has already been consumed from src, stopping at the
// matching MappingEnd (which is also consumed).
func readMappingEntries(src eventstream.Source) ([]rawEntry, error) {
	var raw []rawEntry
	for {
		peeked, err := src.Peek()
		if err != nil {
			return nil, err
		}
		if peeked.Type == eventstream.MappingEnd {
			_, _ = src.Next()
			return raw, nil
		}

		key, err := CaptureNode(src)
		if err != nil {
			return nil, err
		}
		value, err := CaptureNode(src)
		if err != nil {
			return nil, err
		}
		raw = append(raw, rawEntry{key: key, value: value, isMerge: isMergeKey(key)})
	}
}

func isMergeKey(key []eventstream.Event) bool {
	if len(key) != 1 || key[0].Type != eventstream.Scalar {
		return false
	}
	ev := key[0]
	if ev.Style != eventstream.StylePlain {
		return false
	}
	if ev.Value != "<<" {
		return false
	}
	return ev.Tag == eventstream.TagNone || ev.Tag == eventstream.TagString
}

// ExpandEntries resolves merge keys ("<<": a mapping, or a sequence of
// mappings whose later items override earlier ones) and applies policy
// to duplicate explicit keys, returning the final ordered entries a
// struct or map target should bind. Merge-contributed values are always
// silently overridden by an explicit key of the same fingerprint; policy
// only governs collisions between two explicit keys.
func ExpandEntries(raw []rawEntry, policy yamlopts.DuplicateKeyPolicy) ([]Entry, error) {
	var order []string
	byFP := make(map[string]Entry)
	addOrReplace := func(fp string, e Entry) {
		if _, exists := byFP[fp]; !exists {
			order = append(order, fp)
		}
		byFP[fp] = e
	}

	for _, re := range raw {
		if !re.isMerge {
			continue
		}
		merged, err := mergeValueEntries(re.value)
		if err != nil {
			return nil, err
		}
		for _, me := range merged {
			addOrReplace(Fingerprint(me.Key), me)
		}
	}

	seenExplicit := make(map[string]yamlerr.Location)
	for _, re := range raw {
		if re.isMerge {
			continue
		}
		fp := Fingerprint(re.key)
		if _, dup := seenExplicit[fp]; dup {
			switch policy {
			case yamlopts.DuplicateKeyError:
				return nil, &yamlerr.DuplicateKeyError{
					Key:    describeKey(re.key),
					First:  seenExplicit[fp],
					Second: re.key[0].Location,
				}
			case yamlopts.DuplicateKeyFirstWins:
				continue
			case yamlopts.DuplicateKeyLastWins:
				// fall through and overwrite below
			}
		}
		seenExplicit[fp] = re.key[0].Location
		addOrReplace(fp, Entry{
			Key: re.key, Value: re.value,
			KeyLoc: re.key[0].Location, ValueLoc: valueLocation(re.value),
		})
	}

	out := make([]Entry, 0, len(order))
	for _, fp := range order {
		out = append(out, byFP[fp])
	}
	return out, nil
}

func valueLocation(events []eventstream.Event) yamlerr.Location {
	if len(events) == 0 {
		return yamlerr.Unknown
	}
	return events[0].Location
}

func describeKey(key []eventstream.Event) string {
	if s, ok := StringyScalarValue(key); ok {
		return s
	}
	return Fingerprint(key)
}

// mergeValueEntries expands one merge key's value — a mapping, or a
// sequence of mappings — into the flat, fully-expanded Entry list it
// contributes, applying merge-key rules recursively since a merged-in
// mapping may itself contain "<<".
func mergeValueEntries(value []eventstream.Event) ([]Entry, error) {
	if len(value) == 0 {
		return nil, &yamlerr.EOFError{}
	}
	switch value[0].Type {
	case eventstream.MappingStart:
		return entriesFromCapturedMapping(value)
	case eventstream.SequenceStart:
		var combined []Entry
		byFP := make(map[string]Entry)
		var order []string
		for _, item := range splitChildren(value) {
			entries, err := entriesFromCapturedMapping(item)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				fp := Fingerprint(e.Key)
				if _, exists := byFP[fp]; !exists {
					order = append(order, fp)
				}
				byFP[fp] = e
			}
		}
		for _, fp := range order {
			combined = append(combined, byFP[fp])
		}
		return combined, nil
	default:
		return nil, &yamlerr.UnexpectedEventError{
			Expected: "mapping or sequence of mappings for merge key value",
			Got:      value[0].Type.String(),
			Loc:      value[0].Location,
		}
	}
}

func entriesFromCapturedMapping(node []eventstream.Event) ([]Entry, error) {
	if len(node) < 2 || node[0].Type != eventstream.MappingStart {
		return nil, &yamlerr.UnexpectedEventError{
			Expected: "mapping for merge key value",
			Got:      node[0].Type.String(),
			Loc:      node[0].Location,
		}
	}
	inner := node[1 : len(node)-1]
	children := splitChildren(inner)
	var raw []rawEntry
	for i := 0; i+1 < len(children); i += 2 {
		raw = append(raw, rawEntry{key: children[i], value: children[i+1], isMerge: isMergeKey(children[i])})
	}
	return ExpandEntries(raw, yamlopts.DuplicateKeyLastWins)
}

// splitChildren splits a flat run of sibling node events (as captured
// from inside a container, with the container's own start/end already
// stripped) into the individual per-node event slices.
func splitChildren(events []eventstream.Event) [][]eventstream.Event {
	var out [][]eventstream.Event
	i := 0
	for i < len(events) {
		start := i
		if events[i].IsContainerStart() {
			depth := 1
			i++
			for depth > 0 {
				if events[i].IsContainerStart() {
					depth++
				} else if events[i].IsContainerEnd() {
					depth--
				}
				i++
			}
		} else {
			i++
		}
		out = append(out, events[start:i])
	}
	return out
}
