package scalar

import (
	"fmt"
	"strings"
)

// ParseYAML11Bool accepts the full YAML 1.1 boolean vocabulary:
// true/false, yes/no, on/off, y/n, in any casing. Returns an error if s
// doesn't match any of them.
func ParseYAML11Bool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "y":
		return true, nil
	case "false", "no", "off", "n":
		return false, nil
	default:
		return false, fmt.Errorf("not a YAML 1.1 boolean: %q", s)
	}
}

// ParseStrictBool accepts only the literal (case-insensitive) "true" and
// "false", rejecting the rest of the YAML 1.1 vocabulary. Used when
// yamlopts.StrictBooleans is set.
func ParseStrictBool(s string) (bool, error) {
	t := strings.TrimSpace(s)
	switch {
	case strings.EqualFold(t, "true"):
		return true, nil
	case strings.EqualFold(t, "false"):
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean (strict mode expects true/false): %q", s)
	}
}
