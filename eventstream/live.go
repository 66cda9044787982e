package eventstream

import (
	"io"

	"github.com/yamlcore/yamlcore/internal/libyaml"
	"github.com/yamlcore/yamlcore/yamlerr"
)

// AliasLimits hardens alias replay against alias bombs: documents that
// define a small number of anchors and then reference them exponentially
// (directly or through nested aliases) to blow up the effective document
// size.
type AliasLimits struct {
	// MaxTotalReplayedEvents bounds the number of events injected from
	// aliases across the entire parse.
	MaxTotalReplayedEvents int
	// MaxReplayStackDepth bounds how deeply alias replay may nest (an
	// alias whose recorded subtree itself contains an alias).
	MaxReplayStackDepth int
	// MaxAliasExpansionsPerAnchor bounds how many times a single anchor
	// id may be expanded via alias. Zero means unlimited.
	MaxAliasExpansionsPerAnchor int
}

// DefaultAliasLimits mirrors the defaults applied when a caller doesn't
// configure alias hardening explicitly.
func DefaultAliasLimits() AliasLimits {
	return AliasLimits{
		MaxTotalReplayedEvents:      1_000_000,
		MaxReplayStackDepth:         64,
		MaxAliasExpansionsPerAnchor: 0,
	}
}

// recFrame accumulates the events of one open anchor's subtree as they
// are pulled from the parser, to be filed into the anchor store once its
// matching container-end event closes it back down to the depth it was
// opened at.
type recFrame struct {
	id    string
	depth int
	buf   []Event
}

// replayFrame is one entry on the alias-injection stack: a previously
// recorded subtree being served back out in place of an alias.
type replayFrame struct {
	anchor string
	events []Event
	idx    int
}

// LiveEventSource pulls canonical events out of raw document text,
// recording each anchor's subtree as it streams past and transparently
// splicing a recorded subtree's events back in whenever an alias
// references it — so callers downstream never see Alias events, only the
// expansion in place, exactly as if the aliased subtree had been written
// out longhand.
type LiveEventSource struct {
	parser libyaml.Parser
	limits AliasLimits

	depth      int
	openFrames []recFrame
	anchors    map[string][]Event

	replayStack         []replayFrame
	totalReplayed       int
	perAnchorExpansions map[string]int

	aliasObserver AliasObserver

	lastLocation yamlerr.Location
	peeked       *Event
	peekErr      error
	peekValid    bool

	sawDocStart bool
	sawContent  bool
	done        bool
}

// NewLiveEventSource creates a LiveEventSource reading from r.
func NewLiveEventSource(r io.Reader, limits AliasLimits) *LiveEventSource {
	p := libyaml.NewParser()
	p.SetInputReader(r)
	return &LiveEventSource{
		parser:              p,
		limits:              limits,
		anchors:             make(map[string][]Event),
		perAnchorExpansions: make(map[string]int),
	}
}

// NewLiveEventSourceString creates a LiveEventSource reading from a string
// already held in memory, avoiding a copy into an io.Reader adapter.
func NewLiveEventSourceString(s string, limits AliasLimits) *LiveEventSource {
	p := libyaml.NewParser()
	p.SetInputString([]byte(s))
	return &LiveEventSource{
		parser:              p,
		limits:              limits,
		anchors:             make(map[string][]Event),
		perAnchorExpansions: make(map[string]int),
	}
}

func (s *LiveEventSource) LastLocation() yamlerr.Location { return s.lastLocation }

// SetAliasObserver registers o to be notified of every raw Alias event
// before it is expanded in place. budget.Wrap uses this to keep its alias
// counter accurate despite transparent expansion.
func (s *LiveEventSource) SetAliasObserver(o AliasObserver) {
	s.aliasObserver = o
}

func (s *LiveEventSource) Peek() (Event, error) {
	if !s.peekValid {
		ev, err := s.advance()
		s.peeked, s.peekErr, s.peekValid = &ev, err, true
	}
	return *s.peeked, s.peekErr
}

func (s *LiveEventSource) Next() (Event, error) {
	if s.peekValid {
		ev, err := *s.peeked, s.peekErr
		s.peekValid = false
		s.peeked = nil
		return ev, err
	}
	return s.advance()
}

// advance is the next_impl equivalent: serve a replayed event if one is
// pending, otherwise pull and record a fresh event from the parser.
func (s *LiveEventSource) advance() (Event, error) {
	if len(s.replayStack) > 0 {
		return s.nextReplayed()
	}
	return s.nextRaw()
}

func (s *LiveEventSource) nextReplayed() (Event, error) {
	top := &s.replayStack[len(s.replayStack)-1]
	ev := top.events[top.idx]
	top.idx++
	if top.idx >= len(top.events) {
		s.replayStack = s.replayStack[:len(s.replayStack)-1]
	}

	s.totalReplayed++
	if s.limits.MaxTotalReplayedEvents > 0 && s.totalReplayed > s.limits.MaxTotalReplayedEvents {
		return ev, &yamlerr.BudgetError{Breach: "alias replay limit exceeded", Loc: ev.Location}
	}

	s.lastLocation = ev.Location
	s.recordIntoOpenFrames(ev)
	s.trackDepth(ev)
	return ev, nil
}

func (s *LiveEventSource) nextRaw() (Event, error) {
	var raw libyaml.Event
	if err := s.parser.Parse(&raw); err != nil {
		return Event{}, &yamlerr.MessageError{Message: err.Error(), Loc: s.lastLocation}
	}

	ev := convertEvent(raw)
	s.lastLocation = ev.Location

	switch ev.Type {
	case StreamEnd:
		s.done = true
		return ev, nil
	case DocumentStart:
		s.sawDocStart = true
		s.sawContent = false
		return ev, nil
	case DocumentEnd:
		if !s.sawContent {
			// An empty document ("---\n---") carries no content event at
			// all; synthesize the implicit null so consumers still see
			// exactly one value per document.
			null := Event{Type: Scalar, Tag: TagNull, Style: StylePlain, Location: ev.Location}
			s.sawContent = true
			s.peeked = &ev
			s.peekErr = nil
			s.peekValid = true
			return null, nil
		}
		return ev, nil
	}

	s.sawContent = true

	if ev.Type == Alias {
		if s.aliasObserver != nil {
			if err := s.aliasObserver.ObserveAlias(ev); err != nil {
				return Event{}, err
			}
		}
		return s.expandAlias(ev)
	}

	// Normalize an anchored empty scalar's style to Plain: libyaml may
	// report a quoting style for a zero-length value depending on how the
	// anchor was spelled, but downstream consumers shouldn't see that as
	// meaningfully different from a bare anchored null.
	if ev.Type == Scalar && ev.Value == "" && ev.Anchor != "" {
		ev.Style = StylePlain
	}

	s.recordAnchorOpen(ev)
	s.recordIntoOpenFrames(ev)
	s.trackDepth(ev)
	s.recordAnchorClose(ev)

	return ev, nil
}

// recordAnchorOpen starts a new recording frame when ev introduces an
// anchor on a container; scalar anchors are filed directly since they
// have no matching end event.
func (s *LiveEventSource) recordAnchorOpen(ev Event) {
	if ev.Anchor == "" {
		return
	}
	if ev.IsContainerStart() {
		s.openFrames = append(s.openFrames, recFrame{id: ev.Anchor, depth: s.depth + 1})
	}
}

// recordIntoOpenFrames appends ev to every currently open recording
// frame: a nested anchor's events belong to every ancestor anchor's
// recorded subtree too.
func (s *LiveEventSource) recordIntoOpenFrames(ev Event) {
	for i := range s.openFrames {
		s.openFrames[i].buf = append(s.openFrames[i].buf, ev)
	}
}

func (s *LiveEventSource) trackDepth(ev Event) {
	switch {
	case ev.IsContainerStart():
		s.depth++
	case ev.IsContainerEnd():
		s.depth--
	}
}

// recordAnchorClose finalizes any recording frame(s) whose container just
// closed back down to the depth they were opened at, and files anchored
// scalars directly (they never open a frame).
func (s *LiveEventSource) recordAnchorClose(ev Event) {
	if ev.Type == Scalar && ev.Anchor != "" {
		s.anchors[ev.Anchor] = []Event{ev}
		return
	}
	if !ev.IsContainerEnd() {
		return
	}
	for len(s.openFrames) > 0 && s.openFrames[len(s.openFrames)-1].depth == s.depth+1 {
		top := s.openFrames[len(s.openFrames)-1]
		s.openFrames = s.openFrames[:len(s.openFrames)-1]
		s.anchors[top.id] = top.buf
	}
}

// expandAlias resolves ev (an Alias) against the anchor store and pushes
// its recorded subtree onto the replay stack, then serves the first
// replayed event in its place.
func (s *LiveEventSource) expandAlias(ev Event) (Event, error) {
	recorded, ok := s.anchors[ev.Value]
	if !ok {
		return Event{}, &yamlerr.UnknownAnchorError{ID: ev.Value, Loc: ev.Location}
	}
	if s.limits.MaxReplayStackDepth > 0 && len(s.replayStack)+1 > s.limits.MaxReplayStackDepth {
		return Event{}, &yamlerr.BudgetError{Breach: "alias replay stack depth exceeded", Loc: ev.Location}
	}
	s.perAnchorExpansions[ev.Value]++
	if s.limits.MaxAliasExpansionsPerAnchor > 0 && s.perAnchorExpansions[ev.Value] > s.limits.MaxAliasExpansionsPerAnchor {
		return Event{}, &yamlerr.BudgetError{Breach: "alias expansion limit exceeded", Loc: ev.Location}
	}

	cp := make([]Event, len(recorded))
	copy(cp, recorded)
	s.replayStack = append(s.replayStack, replayFrame{anchor: ev.Value, events: cp})
	return s.nextReplayed()
}

func convertEvent(raw libyaml.Event) Event {
	loc := yamlerr.Location{Line: raw.StartMark.Line, Column: raw.StartMark.Column + 1}
	ev := Event{Location: loc, Anchor: string(raw.Anchor)}

	switch raw.Type {
	case libyaml.STREAM_START_EVENT:
		ev.Type = StreamStart
	case libyaml.STREAM_END_EVENT:
		ev.Type = StreamEnd
	case libyaml.DOCUMENT_START_EVENT:
		ev.Type = DocumentStart
	case libyaml.DOCUMENT_END_EVENT:
		ev.Type = DocumentEnd
	case libyaml.ALIAS_EVENT:
		ev.Type = Alias
		ev.Value = string(raw.Anchor)
		ev.Anchor = ""
	case libyaml.SCALAR_EVENT:
		ev.Type = Scalar
		ev.Value = string(raw.Value)
		ev.RawTag = string(raw.Tag)
		ev.Tag = ResolveTag(ev.RawTag)
		ev.Implicit = raw.Implicit
		ev.Style = convertScalarStyle(raw.ScalarStyle())
	case libyaml.SEQUENCE_START_EVENT:
		ev.Type = SequenceStart
		ev.RawTag = string(raw.Tag)
		ev.Tag = ResolveTag(ev.RawTag)
		ev.Implicit = raw.Implicit
	case libyaml.SEQUENCE_END_EVENT:
		ev.Type = SequenceEnd
	case libyaml.MAPPING_START_EVENT:
		ev.Type = MappingStart
		ev.RawTag = string(raw.Tag)
		ev.Tag = ResolveTag(ev.RawTag)
		ev.Implicit = raw.Implicit
	case libyaml.MAPPING_END_EVENT:
		ev.Type = MappingEnd
	}
	return ev
}

func convertScalarStyle(s libyaml.ScalarStyle) ScalarStyle {
	switch s {
	case libyaml.SINGLE_QUOTED_SCALAR_STYLE:
		return StyleSingleQuoted
	case libyaml.DOUBLE_QUOTED_SCALAR_STYLE:
		return StyleDoubleQuoted
	case libyaml.LITERAL_SCALAR_STYLE:
		return StyleLiteral
	case libyaml.FOLDED_SCALAR_STYLE:
		return StyleFolded
	default:
		return StylePlain
	}
}
