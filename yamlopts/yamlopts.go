// Package yamlopts provides the functional-option Config shared by the
// decode and encode sides, following the same Option func(*Config)
// pattern the teacher's own option package uses.
package yamlopts

import (
	"fmt"

	"github.com/yamlcore/yamlcore/budget"
	"github.com/yamlcore/yamlcore/eventstream"
)

// DuplicateKeyPolicy controls what happens when a mapping contains the
// same key twice (after merge-key expansion).
type DuplicateKeyPolicy int

const (
	// DuplicateKeyError fails the decode on the first repeated key.
	DuplicateKeyError DuplicateKeyPolicy = iota
	// DuplicateKeyFirstWins keeps the first occurrence; later duplicate
	// pairs are parsed (so their nested aliases still resolve) but
	// discarded.
	DuplicateKeyFirstWins
	// DuplicateKeyLastWins lets a later occurrence overwrite an earlier
	// one, matching how most hand-written map[string]T unmarshalers
	// behave by default.
	DuplicateKeyLastWins
)

// Config is the combined decode/encode configuration. Every field is
// unexported; construct one with Defaults() and apply Option values.
type Config struct {
	budget            *budget.Limits
	budgetReport      func(budget.Report)
	duplicateKeys     DuplicateKeyPolicy
	aliasLimits       eventstream.AliasLimits
	legacyOctalNumbers bool
	strictBooleans    bool
	ignoreBinaryTagForString bool
	angleConversions  bool
	noSchema          bool
	withSnippet       bool
	cropRadius        int

	indent        int
	lineWidth     int
	canonical     bool
	unicode       bool
	explicitStart bool
	explicitEnd   bool
	yaml12        bool
	flowStyle     bool
	quoteAll         bool
	emptyAsBraces    bool
	preferBlockScalars bool
	foldedWrapChars  int
	minFoldChars     int
	anchorGenerator  func(int) string
}

// Defaults returns the Config applied when the caller supplies no
// options: a default Budget is active, duplicate keys are an error,
// alias replay uses the hardened defaults, the full YAML 1.1 boolean
// vocabulary is accepted (strict booleans off), legacy octal is off, and
// the encoder writes 2-space, unicode,
// 80-column output with block style.
func Defaults() Config {
	lim := budget.Default()
	return Config{
		budget:        &lim,
		duplicateKeys: DuplicateKeyError,
		aliasLimits:   eventstream.DefaultAliasLimits(),
		withSnippet:   true,
		cropRadius:    64,
		indent:        2,
		lineWidth:     80,
		unicode:       true,
	}
}

// Option mutates a Config being built up by Apply.
type Option func(*Config)

// Apply starts from Defaults() and applies opts in order, the same
// combinator shape as the teacher's option.Apply.
func Apply(opts ...Option) Config {
	cfg := Defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithBudget overrides the resource budget enforced during decode. Pass
// nil to disable budget enforcement entirely.
func WithBudget(limits *budget.Limits) Option {
	return func(c *Config) { c.budget = limits }
}

// WithBudgetReport registers a callback invoked with the final budget
// Report after a decode completes, whether it succeeded or was aborted
// by a breach.
func WithBudgetReport(cb func(budget.Report)) Option {
	return func(c *Config) { c.budgetReport = cb }
}

// WithDuplicateKeys sets the mapping duplicate-key policy.
func WithDuplicateKeys(p DuplicateKeyPolicy) Option {
	return func(c *Config) { c.duplicateKeys = p }
}

// WithAliasLimits overrides the alias-bomb hardening limits.
func WithAliasLimits(limits eventstream.AliasLimits) Option {
	return func(c *Config) { c.aliasLimits = limits }
}

// WithLegacyOctalNumbers enables YAML 1.1's "leading zero means base 8"
// integer convention.
func WithLegacyOctalNumbers(v bool) Option {
	return func(c *Config) { c.legacyOctalNumbers = v }
}

// WithStrictBooleans restricts boolean parsing to the literal
// true/false, rejecting the rest of the YAML 1.1 vocabulary
// (yes/no/on/off/y/n).
func WithStrictBooleans(v bool) Option {
	return func(c *Config) { c.strictBooleans = v }
}

// WithIgnoreBinaryTagForString treats a !!binary-tagged scalar decoded
// into a string field as plain text instead of base64.
func WithIgnoreBinaryTagForString(v bool) Option {
	return func(c *Config) { c.ignoreBinaryTagForString = v }
}

// WithAngleConversions enables the robotics-convention angle/expression
// evaluator for scalars tagged !deg/!rad.
func WithAngleConversions(v bool) Option {
	return func(c *Config) { c.angleConversions = v }
}

// WithNoSchema rejects unquoted scalars that would parse as a bool or
// number when the target field is a string, forcing callers to quote
// them explicitly.
func WithNoSchema(v bool) Option {
	return func(c *Config) { c.noSchema = v }
}

// WithSnippet controls whether errors returned from text-based entry
// points are wrapped with a rendered source snippet.
func WithSnippet(v bool) Option {
	return func(c *Config) { c.withSnippet = v }
}

// WithCropRadius sets the horizontal crop radius, in columns, used when
// rendering a snippet. Zero disables cropping.
func WithCropRadius(n int) Option {
	return func(c *Config) { c.cropRadius = n }
}

// WithIndent sets the encoder's block indentation width.
func WithIndent(n int) Option {
	return func(c *Config) { c.indent = n }
}

// WithLineWidth sets the encoder's preferred wrap width for plain and
// folded scalars.
func WithLineWidth(n int) Option {
	return func(c *Config) { c.lineWidth = n }
}

// WithCanonical forces the encoder to use YAML's canonical,
// fully-tagged, fully-quoted form.
func WithCanonical(v bool) Option {
	return func(c *Config) { c.canonical = v }
}

// WithUnicode allows the encoder to write non-ASCII characters literally
// instead of escaping them.
func WithUnicode(v bool) Option {
	return func(c *Config) { c.unicode = v }
}

// WithExplicitStart forces a "---" document-start marker.
func WithExplicitStart(v bool) Option {
	return func(c *Config) { c.explicitStart = v }
}

// WithExplicitEnd forces a "..." document-end marker.
func WithExplicitEnd(v bool) Option {
	return func(c *Config) { c.explicitEnd = v }
}

// WithYAML12 emits a "%YAML 1.2" version directive ahead of the document.
func WithYAML12(v bool) Option {
	return func(c *Config) { c.yaml12 = v }
}

// WithFlowStyle forces every sequence and mapping to flow style
// ("[a, b]", "{k: v}") instead of the default block style.
func WithFlowStyle(v bool) Option {
	return func(c *Config) { c.flowStyle = v }
}

// WithQuoteAll double-quotes every scalar the encoder would otherwise
// write plain and untagged. Tagged scalars and literal block scalars keep
// their style.
func WithQuoteAll(v bool) Option {
	return func(c *Config) { c.quoteAll = v }
}

// WithEmptyAsBraces renders an empty sequence or mapping as "[]"/"{}"
// even when the surrounding context is block style.
func WithEmptyAsBraces(v bool) Option {
	return func(c *Config) { c.emptyAsBraces = v }
}

// WithPreferBlockScalars prefers a literal block style ("|") over a
// double-quoted style for multiline strings that contain no characters
// requiring an escape.
func WithPreferBlockScalars(v bool) Option {
	return func(c *Config) { c.preferBlockScalars = v }
}

// WithFoldedWrapChars records a wrap column for folded block scalars
// ("> ") in the Config. The encoder does not read it: it never picks
// folded style for strings, and wrapping follows the line width.
func WithFoldedWrapChars(n int) Option {
	return func(c *Config) { c.foldedWrapChars = n }
}

// WithMinFoldChars records a minimum string length for folded block style
// in the Config. The encoder does not read it and never picks folded
// style for strings.
func WithMinFoldChars(n int) Option {
	return func(c *Config) { c.minFoldChars = n }
}

// WithAnchorGenerator overrides how anchor names are derived from the
// sequence number of their first definition (default "a1", "a2", ...).
func WithAnchorGenerator(f func(int) string) Option {
	return func(c *Config) { c.anchorGenerator = f }
}

func (c Config) Budget() *budget.Limits                { return c.budget }
func (c Config) BudgetReport() func(budget.Report)      { return c.budgetReport }
func (c Config) DuplicateKeys() DuplicateKeyPolicy      { return c.duplicateKeys }
func (c Config) AliasLimits() eventstream.AliasLimits   { return c.aliasLimits }
func (c Config) LegacyOctalNumbers() bool               { return c.legacyOctalNumbers }
func (c Config) StrictBooleans() bool                   { return c.strictBooleans }
func (c Config) IgnoreBinaryTagForString() bool         { return c.ignoreBinaryTagForString }
func (c Config) AngleConversions() bool                 { return c.angleConversions }
func (c Config) NoSchema() bool                         { return c.noSchema }
func (c Config) WithSnippetEnabled() bool                { return c.withSnippet }
func (c Config) CropRadius() int                        { return c.cropRadius }
func (c Config) Indent() int                             { return c.indent }
func (c Config) LineWidth() int                          { return c.lineWidth }
func (c Config) Canonical() bool                         { return c.canonical }
func (c Config) Unicode() bool                           { return c.unicode }
func (c Config) ExplicitStart() bool                     { return c.explicitStart }
func (c Config) ExplicitEnd() bool                       { return c.explicitEnd }
func (c Config) YAML12() bool                            { return c.yaml12 }
func (c Config) FlowStyle() bool                         { return c.flowStyle }
func (c Config) QuoteAll() bool                          { return c.quoteAll }
func (c Config) EmptyAsBraces() bool                     { return c.emptyAsBraces }
func (c Config) PreferBlockScalars() bool                { return c.preferBlockScalars }
func (c Config) FoldedWrapChars() int                    { return c.foldedWrapChars }
func (c Config) MinFoldChars() int                       { return c.minFoldChars }

// AnchorName derives the anchor text for the n-th anchor defined during
// an encode pass (1-based), using the configured generator if set.
func (c Config) AnchorName(n int) string {
	if c.anchorGenerator != nil {
		return c.anchorGenerator(n)
	}
	return fmt.Sprintf("a%d", n)
}
