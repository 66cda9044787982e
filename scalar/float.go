package scalar

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yamlcore/yamlcore/eventstream"
)

// ParseFloat parses a YAML 1.2 float: decimal or scientific notation,
// underscore digit separators, and the special forms .nan, .inf, +.inf,
// -.inf (case-insensitive). When tag is TagDegrees or TagRadians and
// angleConversions is enabled, s is instead evaluated as an angle
// expression (see angle.go) and the result converted to radians.
func ParseFloat(s string, bitSize int, tag eventstream.Tag, angleConversions bool) (float64, error) {
	if angleConversions && (tag == eventstream.TagDegrees || tag == eventstream.TagRadians) {
		return EvalAngle(s, tag)
	}

	t := strings.TrimSpace(s)
	clean, err := stripUnderscores(t)
	if err != nil {
		return 0, err
	}

	switch strings.ToLower(clean) {
	case ".nan":
		return math.NaN(), nil
	case ".inf", "+.inf":
		return math.Inf(1), nil
	case "-.inf":
		return math.Inf(-1), nil
	}

	v, err := strconv.ParseFloat(clean, bitSize)
	if err != nil {
		return 0, fmt.Errorf("not a valid float: %q: %w", s, err)
	}
	return v, nil
}

// LooksLikeFloat reports whether s is plausibly a float literal, used by
// the typeless decode path after integer parsing has failed.
func LooksLikeFloat(s string) bool {
	_, err := ParseFloat(s, 64, eventstream.TagNone, false)
	return err == nil
}

// FormatFloat renders f the way the serializer writes floats: the
// shortest decimal representation that round-trips exactly, always with
// a decimal point or exponent so it never gets misread as an integer on
// re-parse.
func FormatFloat(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if strings.ContainsAny(s, ".eEnN") {
		return normalizeSpecial(s)
	}
	return s + ".0"
}

func normalizeSpecial(s string) string {
	switch s {
	case "NaN":
		return ".nan"
	case "+Inf", "Inf":
		return ".inf"
	case "-Inf":
		return "-.inf"
	}
	if i := strings.IndexAny(s, "eE"); i >= 0 && !strings.Contains(s[:i], ".") {
		return s[:i] + ".0" + s[i:]
	}
	return s
}
