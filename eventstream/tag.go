package eventstream

import "strings"

// Canonical tag text, in the four forms a document may spell a core schema
// tag with: shorthand ("!int"), standard ("!!int"), canonical
// ("tag:yaml.org,2002:int"), and the rarely-seen canonical-with-bang
// variant some emitters produce ("tag:yaml.org,2002:!int").
const (
	yamlOrgPrefix    = "tag:yaml.org,2002:"
	yamlOrgPrefixAlt = "tag:yaml.org,2002:!"
)

var coreTagNames = map[string]Tag{
	"int":       TagInteger,
	"float":     TagFloat,
	"bool":      TagBoolean,
	"null":      TagNull,
	"seq":       TagSequence,
	"map":       TagMapping,
	"timestamp": TagTimestamp,
	"str":       TagString,
	"binary":    TagBinary,
}

// ResolveTag maps the raw tag text libyaml handed us (already resolved
// against any tag directives in scope) to our semantic Tag enum. An empty
// string means the node had no explicit tag at all (TagNone); the angle
// extension tags ("!deg", "!rad" and their "!!"/canonical spellings) map
// to TagDegrees/TagRadians so the scalar interpreter knows to run the
// angle evaluator instead of the plain float parser.
func ResolveTag(raw string) Tag {
	if raw == "" {
		return TagNone
	}
	switch raw {
	case "!deg", "!!deg", yamlOrgPrefix + "deg", yamlOrgPrefixAlt + "deg":
		return TagDegrees
	case "!rad", "!!rad", yamlOrgPrefix + "rad", yamlOrgPrefixAlt + "rad":
		return TagRadians
	}
	name, ok := coreTagName(raw)
	if !ok {
		return TagUnknown
	}
	if t, ok := coreTagNames[name]; ok {
		return t
	}
	return TagUnknown
}

// coreTagName extracts the bare tag name ("int", "str", ...) from any of
// the four textual forms, reporting false if raw isn't shaped like one.
func coreTagName(raw string) (string, bool) {
	switch {
	case strings.HasPrefix(raw, yamlOrgPrefixAlt):
		return raw[len(yamlOrgPrefixAlt):], true
	case strings.HasPrefix(raw, yamlOrgPrefix):
		return raw[len(yamlOrgPrefix):], true
	case strings.HasPrefix(raw, "!!"):
		return raw[2:], true
	case strings.HasPrefix(raw, "!"):
		return raw[1:], true
	}
	return "", false
}

// nonStringTags are the core-schema tags that forbid falling back to a
// plain string interpretation in typeless ("any") decode positions.
var nonStringTags = map[Tag]bool{
	TagInteger:   true,
	TagFloat:     true,
	TagBoolean:   true,
	TagNull:      true,
	TagSequence:  true,
	TagMapping:   true,
	TagTimestamp: true,
}

// CanParseIntoString reports whether a scalar carrying tag may still be
// decoded into a Go string in a typeless position; tagged non-string core
// types and !!binary may not.
func CanParseIntoString(tag Tag) bool {
	if tag == TagNone || tag == TagNonSpecific {
		return true
	}
	return !nonStringTags[tag] && tag != TagBinary
}

// IsNullTag reports whether tag explicitly names the null type.
func IsNullTag(tag Tag) bool {
	return tag == TagNull
}

// MergeTag is the textual tag YAML uses for "<<" merge keys.
const MergeTag = "tag:yaml.org,2002:merge"
