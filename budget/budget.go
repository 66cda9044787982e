// Package budget implements the resource-budget enforcer that sits between
// the raw event source and the consumer: it observes every event (raw or
// replayed) and aborts pathological input before the consumer ever sees it.
package budget

import (
	"github.com/yamlcore/yamlcore/eventstream"
	"github.com/yamlcore/yamlcore/yamlerr"
)

// Limits bounds the resources a single parse may consume. The zero value
// is not useful; use Default() to get the standard defaults.
type Limits struct {
	MaxEvents           int
	MaxAliases          int
	MaxAnchors          int
	MaxDepth            int
	MaxDocuments        int
	MaxNodes            int
	MaxTotalScalarBytes int64
	MaxMergeKeys        int

	// EnforceAliasAnchorRatio turns on the alias/anchor ratio heuristic in
	// Finish: a document that defines few anchors but references them an
	// outsized number of times is an alias bomb even when every individual
	// counter stays under its own limit.
	EnforceAliasAnchorRatio bool
	// AliasAnchorMinAliases is the minimum alias count before the ratio
	// heuristic engages at all; small documents are exempt.
	AliasAnchorMinAliases int
	// AliasAnchorRatioMultiplier is the maximum tolerated aliases-per-anchor
	// ratio once AliasAnchorMinAliases is reached.
	AliasAnchorRatioMultiplier int
}

// Default returns the limits applied when no explicit Limits is supplied.
func Default() Limits {
	return Limits{
		MaxEvents:           1_000_000,
		MaxAliases:          50_000,
		MaxAnchors:          50_000,
		MaxDepth:            2_000,
		MaxDocuments:        1_024,
		MaxNodes:            250_000,
		MaxTotalScalarBytes: 67_108_864,
		MaxMergeKeys:        10_000,

		EnforceAliasAnchorRatio:    true,
		AliasAnchorMinAliases:      100,
		AliasAnchorRatioMultiplier: 10,
	}
}

// Breach names the specific counter that was exceeded.
type Breach string

const (
	BreachEvents           Breach = "events"
	BreachAliases          Breach = "aliases"
	BreachAnchors          Breach = "distinct_anchors"
	BreachDepth            Breach = "max_depth"
	BreachDocuments        Breach = "documents"
	BreachNodes            Breach = "nodes"
	BreachTotalScalarBytes Breach = "total_scalar_bytes"
	BreachMergeKeys        Breach = "merge_keys"
	BreachSequenceBalance  Breach = "sequence_unbalanced"
	BreachMappingBalance   Breach = "mapping_unbalanced"
	BreachAliasAnchorRatio Breach = "alias_anchor_ratio"
)

// Report is a snapshot of every counter the enforcer tracked, returned
// both on success and on breach so callers can log or export metrics
// regardless of outcome.
type Report struct {
	Events           int
	Aliases          int
	DistinctAnchors  int
	MaxDepthSeen     int
	Documents        int
	Nodes            int
	TotalScalarBytes int64
	MergeKeys        int
	AliasRatio       float64
}

// containerKind distinguishes sequence from mapping container state so the
// enforcer can recognize a bare "<<" scalar in key position as a merge key.
type containerKind int

const (
	containerSequence containerKind = iota
	containerMapping
)

type containerState struct {
	kind         containerKind
	expectingKey bool // mapping only: true when the next scalar would be a key
}

// Enforcer observes a stream of events, accumulating the counters from
// Report, and fails fast the moment any Limits field is exceeded.
type Enforcer struct {
	limits Limits

	events           int
	aliases          int
	distinctAnchors  int
	depth            int
	maxDepthSeen     int
	documents        int
	nodes            int
	totalScalarBytes int64
	mergeKeys        int

	stack []containerState
}

// New creates an Enforcer against limits.
func New(limits Limits) *Enforcer {
	return &Enforcer{limits: limits}
}

// Observe accounts for a single event (raw or replayed) and returns a
// *yamlerr.BudgetError the instant any limit is exceeded.
func (e *Enforcer) Observe(ev eventstream.Event) error {
	e.events++
	if e.events > e.limits.MaxEvents {
		return e.breach(BreachEvents, ev)
	}

	switch ev.Type {
	case eventstream.DocumentStart:
		e.documents++
		if e.documents > e.limits.MaxDocuments {
			return e.breach(BreachDocuments, ev)
		}
	case eventstream.Alias:
		// Never hit by *eventstream.LiveEventSource, which expands every
		// Alias before Source.Next/Peek return it — see ObserveAlias.
		// Kept for a Source that surfaces aliases literally, where the
		// alias itself (not a replayed subtree) occupies the value slot.
		e.aliases++
		if e.aliases > e.limits.MaxAliases {
			return e.breach(BreachAliases, ev)
		}
		e.finishValue()
	case eventstream.Scalar:
		if err := e.handleScalar(ev); err != nil {
			return err
		}
		e.bumpNodes()
		if err := e.checkNodes(ev); err != nil {
			return err
		}
		e.finishValue()
	case eventstream.SequenceStart:
		e.enterContainer(containerSequence)
		e.bumpNodes()
		if err := e.checkNodes(ev); err != nil {
			return err
		}
	case eventstream.SequenceEnd:
		if err := e.leaveSequence(ev); err != nil {
			return err
		}
		e.finishValue()
	case eventstream.MappingStart:
		e.enterContainer(containerMapping)
		e.bumpNodes()
		if err := e.checkNodes(ev); err != nil {
			return err
		}
	case eventstream.MappingEnd:
		if err := e.leaveMapping(ev); err != nil {
			return err
		}
		e.finishValue()
	}

	if e.depth > e.limits.MaxDepth {
		return e.breach(BreachDepth, ev)
	}

	if ev.Anchor != "" && (ev.Type == eventstream.Scalar || ev.Type == eventstream.SequenceStart || ev.Type == eventstream.MappingStart) {
		e.distinctAnchors++
		if e.distinctAnchors > e.limits.MaxAnchors {
			return e.breach(BreachAnchors, ev)
		}
	}

	return nil
}

func (e *Enforcer) handleScalar(ev eventstream.Event) error {
	e.totalScalarBytes += int64(len(ev.Value))
	if e.totalScalarBytes > e.limits.MaxTotalScalarBytes {
		return e.breach(BreachTotalScalarBytes, ev)
	}
	if e.isMergeKeyPosition() && ev.Value == "<<" && ev.Style == eventstream.StylePlain {
		e.mergeKeys++
		if e.mergeKeys > e.limits.MaxMergeKeys {
			return e.breach(BreachMergeKeys, ev)
		}
	}
	return nil
}

func (e *Enforcer) isMergeKeyPosition() bool {
	if len(e.stack) == 0 {
		return false
	}
	top := e.stack[len(e.stack)-1]
	return top.kind == containerMapping && top.expectingKey
}

func (e *Enforcer) bumpNodes() {
	e.nodes++
}

func (e *Enforcer) checkNodes(ev eventstream.Event) error {
	if e.nodes > e.limits.MaxNodes {
		return e.breach(BreachNodes, ev)
	}
	return nil
}

func (e *Enforcer) enterContainer(kind containerKind) {
	e.depth++
	if e.depth > e.maxDepthSeen {
		e.maxDepthSeen = e.depth
	}
	e.stack = append(e.stack, containerState{kind: kind, expectingKey: kind == containerMapping})
}

func (e *Enforcer) leaveSequence(ev eventstream.Event) error {
	if len(e.stack) == 0 || e.stack[len(e.stack)-1].kind != containerSequence {
		return &yamlerr.BudgetError{Breach: string(BreachSequenceBalance), Loc: ev.Location}
	}
	e.stack = e.stack[:len(e.stack)-1]
	e.depth--
	return nil
}

func (e *Enforcer) leaveMapping(ev eventstream.Event) error {
	if len(e.stack) == 0 || e.stack[len(e.stack)-1].kind != containerMapping {
		return &yamlerr.BudgetError{Breach: string(BreachMappingBalance), Loc: ev.Location}
	}
	e.stack = e.stack[:len(e.stack)-1]
	e.depth--
	return nil
}

// finishValue flips the parent mapping's expecting-key flag whenever a
// node (scalar, alias, or a just-closed sequence/mapping) finishes in its
// enclosing container: key and value nodes alternate, so every finished
// node toggles the flag regardless of its own kind.
func (e *Enforcer) finishValue() {
	if len(e.stack) == 0 {
		return
	}
	top := &e.stack[len(e.stack)-1]
	if top.kind == containerMapping {
		top.expectingKey = !top.expectingKey
	}
}

func (e *Enforcer) breach(b Breach, ev eventstream.Event) error {
	return &yamlerr.BudgetError{Breach: string(b), Loc: ev.Location}
}

// ObserveAlias implements eventstream.AliasObserver. LiveEventSource
// expands every Alias event into its recorded subtree before Source ever
// returns it, so Observe itself never sees an eventstream.Alias event in
// the normal pipeline; this hook counts the raw occurrence against
// max_events/max_aliases before expansion. The replayed subtree's own
// events flow back through Observe normally and are counted there,
// including the finishValue toggle when the subtree's terminal event
// completes the enclosing mapping entry — so this hook must not also call
// finishValue, or a container/scalar-valued alias would double-toggle.
func (e *Enforcer) ObserveAlias(ev eventstream.Event) error {
	e.events++
	if e.events > e.limits.MaxEvents {
		return e.breach(BreachEvents, ev)
	}
	e.aliases++
	if e.aliases > e.limits.MaxAliases {
		return e.breach(BreachAliases, ev)
	}
	return nil
}

// Finish finalizes the enforcer, evaluating the alias/anchor ratio
// heuristic, and returns the final Report. Call this exactly once, after
// the consumer has returned.
//
// The heuristic breaches when aliases >= AliasAnchorMinAliases and either
// no anchors were ever defined or aliases exceed AliasAnchorRatioMultiplier
// times the distinct anchor count.
func (e *Enforcer) Finish() (Report, error) {
	report := e.report()
	if e.limits.EnforceAliasAnchorRatio && e.aliases >= e.limits.AliasAnchorMinAliases {
		if e.distinctAnchors == 0 || e.aliases > e.limits.AliasAnchorRatioMultiplier*e.distinctAnchors {
			return report, &yamlerr.BudgetError{Breach: string(BreachAliasAnchorRatio), Loc: yamlerr.Unknown}
		}
	}
	return report, nil
}

func (e *Enforcer) report() Report {
	r := Report{
		Events:           e.events,
		Aliases:          e.aliases,
		DistinctAnchors:  e.distinctAnchors,
		MaxDepthSeen:     e.maxDepthSeen,
		Documents:        e.documents,
		Nodes:            e.nodes,
		TotalScalarBytes: e.totalScalarBytes,
		MergeKeys:        e.mergeKeys,
	}
	if e.distinctAnchors > 0 {
		r.AliasRatio = float64(e.aliases) / float64(e.distinctAnchors)
	}
	return r
}
