// Package yamlerr defines the error taxonomy shared by the decode and
// encode sides of yamlcore: a source Location plus a small family of
// concrete error types, one per failure family, in the spirit of the
// low-level libyaml.MarkedYAMLError/ParserError/ScannerError split.
package yamlerr

import (
	"fmt"
	"strings"
)

// Location pins an error to a position in the original document. Line and
// Column are 1-indexed; the zero value means "unknown", which String
// renders as "unknown position" and MessageError omits.
type Location struct {
	Line   int
	Column int
	// Span is the byte length of the offending token, when known. Zero
	// means unknown or not applicable (e.g. end-of-input locations).
	Span int
}

// Unknown is the zero Location, used when no position information is
// available (e.g. errors raised before the first event is read).
var Unknown = Location{}

func (l Location) String() string {
	if l == Unknown {
		return "unknown position"
	}
	return fmt.Sprintf("line %d, column %d", l.Line, l.Column)
}

// IsUnknown reports whether l carries no position information.
func (l Location) IsUnknown() bool { return l == Unknown }

// Error is the common interface satisfied by every error this module
// returns from a decode or encode path; it exposes the Location so callers
// can render their own diagnostics without type-switching.
type Error interface {
	error
	Location() Location
}

// MessageError is a free-form error tied to a Location. Most of the
// taxonomy below embeds it rather than repeating the same two fields.
type MessageError struct {
	Message string
	Loc     Location
}

func (e *MessageError) Error() string {
	if e.Loc.IsUnknown() {
		return e.Message
	}
	return fmt.Sprintf("%s at %s", e.Message, e.Loc)
}

func (e *MessageError) Location() Location { return e.Loc }

// Msg builds a bare MessageError, used for conditions that don't fit one
// of the more specific families below.
func Msg(loc Location, format string, args ...any) *MessageError {
	return &MessageError{Message: fmt.Sprintf(format, args...), Loc: loc}
}

// EOFError reports an unexpected end of input where a value, key, or
// container close was still expected.
type EOFError struct {
	Loc Location
}

func (e *EOFError) Error() string {
	return fmt.Sprintf("unexpected end of input at %s", e.Loc)
}
func (e *EOFError) Location() Location { return e.Loc }

// UnexpectedEventError reports that the event stream produced something
// other than what the caller's shape required (e.g. a scalar where a
// mapping was expected).
type UnexpectedEventError struct {
	Expected string
	Got      string
	Loc      Location
}

func (e *UnexpectedEventError) Error() string {
	return fmt.Sprintf("expected %s, found %s at %s", e.Expected, e.Got, e.Loc)
}
func (e *UnexpectedEventError) Location() Location { return e.Loc }

// UnknownAnchorError reports an alias referring to an anchor id that was
// never recorded (out-of-order or malformed document).
type UnknownAnchorError struct {
	ID  string
	Loc Location
}

func (e *UnknownAnchorError) Error() string {
	return fmt.Sprintf("unknown anchor %q at %s", e.ID, e.Loc)
}
func (e *UnknownAnchorError) Location() Location { return e.Loc }

// BudgetError reports that a resource budget counter was exceeded while
// consuming the event stream. Breach names the specific counter.
type BudgetError struct {
	Breach string
	Loc    Location
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("yaml resource budget exceeded: %s at %s", e.Breach, e.Loc)
}
func (e *BudgetError) Location() Location { return e.Loc }

// TypeError reports that a scalar, or a container shape, could not be
// interpreted as the Go type the caller asked for.
type TypeError struct {
	Target string
	Value  string
	Loc    Location
	Cause  error
}

func (e *TypeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cannot decode %q into %s at %s", e.Value, e.Target, e.Loc)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}
func (e *TypeError) Location() Location { return e.Loc }
func (e *TypeError) Unwrap() error      { return e.Cause }

// DuplicateKeyError reports a duplicate mapping key under
// yamlopts.DuplicateKeyError policy. First and Second are the two
// locations the key was seen at.
type DuplicateKeyError struct {
	Key    string
	First  Location
	Second Location
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate mapping key %q, first used at %s, again at %s",
		e.Key, e.First, e.Second)
}
func (e *DuplicateKeyError) Location() Location { return e.Second }

// FieldError decorates an underlying error with the name of the struct
// field being populated when it happened, without losing the inner
// error's own Location.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Location() Location {
	if le, ok := e.Err.(Error); ok {
		return le.Location()
	}
	return Unknown
}

func (e *FieldError) Unwrap() error { return e.Err }

// Snippet renders a short, rustc-like excerpt of src around loc, cropped
// horizontally to radius columns on either side of the reported column.
// A radius of 0 disables cropping and returns the line unmodified.
func Snippet(src string, loc Location, radius int) string {
	if loc.IsUnknown() {
		return ""
	}
	lines := strings.Split(src, "\n")
	if loc.Line < 1 || loc.Line > len(lines) {
		return ""
	}
	line := lines[loc.Line-1]
	col := loc.Column - 1
	if radius <= 0 || len(line) <= radius*2 {
		return fmt.Sprintf("%d | %s\n%s^", loc.Line, line, strings.Repeat(" ", len(fmt.Sprintf("%d | ", loc.Line))+clamp(col, 0, len(line))))
	}
	lo := clamp(col-radius, 0, len(line))
	hi := clamp(col+radius, 0, len(line))
	cropped := line[lo:hi]
	pointer := strings.Repeat(" ", len(fmt.Sprintf("%d | ", loc.Line))+clamp(col-lo, 0, len(cropped))) + "^"
	return fmt.Sprintf("%d | %s\n%s", loc.Line, cropped, pointer)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
