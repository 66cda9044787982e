// Package emit walks a Go value by reflection and drives the low-level
// libyaml Emitter directly, mirroring the teacher's own dump.go Encoder
// (marshal/mapv/structv/slicev/stringv/boolv dispatch, keyList map-key
// ordering, the isBase60Float/isOldBool/looksLikeMerge forced-quoting
// heuristics) but built from scratch against this module's scalar
// formatting, struct-tag metadata, and anchor identity tracking instead
// of the teacher's Node tree.
package emit

import (
	"encoding"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yamlcore/yamlcore/eventstream"
	"github.com/yamlcore/yamlcore/internal/fieldmeta"
	"github.com/yamlcore/yamlcore/internal/libyaml"
	"github.com/yamlcore/yamlcore/scalar"
	"github.com/yamlcore/yamlcore/yamlopts"
)

const (
	strTag    = "tag:yaml.org,2002:str"
	binaryTag = "tag:yaml.org,2002:binary"
)

const anchorPkgPath = "github.com/yamlcore/yamlcore/anchor"

// anchorRef tracks the first-seen pointer identity of an anchored value,
// so every later Anchor[T]/WeakAnchor[T] pointing at the same T encodes
// as an alias instead of repeating the content.
type anchorRef struct {
	name string
}

// Encoder serializes Go values as a stream of YAML documents onto an
// underlying libyaml Emitter. Callers typically make one through
// NewEncoder and call Encode once per document, then Close.
type Encoder struct {
	emitter libyaml.Emitter
	cfg     yamlopts.Config
	started bool
	closed  bool

	pendingFlow bool
	anchors     map[uintptr]anchorRef
	nextAnchor  int
}

var durationType = reflect.TypeOf(time.Duration(0))

// NewEncoder configures a libyaml Emitter from cfg and wraps it for
// reflect-driven encoding.
func NewEncoder(w io.Writer, cfg yamlopts.Config) *Encoder {
	em := libyaml.NewEmitter()
	em.SetOutputWriter(w)
	indent := cfg.Indent()
	if indent == 0 {
		indent = 2
	}
	em.SetIndent(indent)
	em.SetWidth(cfg.LineWidth())
	em.SetUnicode(cfg.Unicode())
	em.SetCanonical(cfg.Canonical())
	return &Encoder{emitter: em, cfg: cfg, anchors: make(map[uintptr]anchorRef)}
}

// Encode writes v as one complete YAML document: STREAM-START (on the
// first call only), DOCUMENT-START, the value itself, DOCUMENT-END.
func (e *Encoder) Encode(v any) error {
	if !e.started {
		if err := e.emit(libyaml.NewStreamStartEvent(libyaml.UTF8_ENCODING)); err != nil {
			return err
		}
		e.started = true
	}

	var vd *libyaml.VersionDirective
	if e.cfg.YAML12() {
		vd = libyaml.NewVersionDirective(1, 2)
	}
	if err := e.emit(libyaml.NewDocumentStartEvent(vd, nil, !e.cfg.ExplicitStart())); err != nil {
		return err
	}
	if err := e.value(reflect.ValueOf(v), ""); err != nil {
		return err
	}
	return e.emit(libyaml.NewDocumentEndEvent(!e.cfg.ExplicitEnd()))
}

// Close flushes the trailing STREAM-END event. It is a no-op if Encode
// was never called.
func (e *Encoder) Close() error {
	if e.closed || !e.started {
		return nil
	}
	e.closed = true
	return e.emit(libyaml.NewStreamEndEvent())
}

func (e *Encoder) emit(ev libyaml.Event) error {
	if !e.emitter.Emit(&ev) {
		msg := e.emitter.Problem
		if msg == "" {
			msg = "unknown problem generating YAML content"
		}
		return fmt.Errorf("yaml: %s", msg)
	}
	return nil
}

func asToEvents(rv reflect.Value) (ToEvents, bool) {
	if !rv.IsValid() {
		return nil, false
	}
	if rv.CanInterface() {
		if te, ok := rv.Interface().(ToEvents); ok {
			return te, true
		}
	}
	if rv.CanAddr() {
		if te, ok := rv.Addr().Interface().(ToEvents); ok {
			return te, true
		}
	}
	return nil, false
}

// value encodes exactly one node (optionally anchored) for rv.
func (e *Encoder) value(rv reflect.Value, anchor string) error {
	for rv.IsValid() && rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return e.scalar("null", "", true, libyaml.PLAIN_SCALAR_STYLE, anchor)
	}

	if te, ok := asToEvents(rv); ok {
		return e.marshalToEvents(te, anchor)
	}

	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return e.scalar("null", "", true, libyaml.PLAIN_SCALAR_STYLE, anchor)
		}
		return e.value(rv.Elem(), anchor)
	}

	if rv.Kind() == reflect.Struct && strings.HasPrefix(rv.Type().PkgPath(), anchorPkgPath) {
		if handled, err := e.anchorValue(rv, anchor); handled {
			return err
		}
	}

	if rv.CanInterface() {
		if u, ok := rv.Interface().(encoding.TextMarshaler); ok {
			text, err := u.MarshalText()
			if err != nil {
				return err
			}
			return e.stringValue(string(text), anchor)
		}
	}

	switch v := rv.Interface().(type) {
	case time.Time:
		return e.scalar(v.Format(time.RFC3339Nano), "", false, libyaml.PLAIN_SCALAR_STYLE, anchor)
	case time.Duration:
		return e.stringValue(v.String(), anchor)
	}

	switch rv.Kind() {
	case reflect.Map:
		return e.mapping(rv, anchor)
	case reflect.Struct:
		return e.structValue(rv, anchor)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 && rv.Kind() == reflect.Slice {
			return e.scalar(scalar.EncodeBinary(rv.Bytes()), binaryTag, false, libyaml.LITERAL_SCALAR_STYLE, anchor)
		}
		return e.sequence(rv, anchor)
	case reflect.String:
		return e.stringValue(rv.String(), anchor)
	case reflect.Bool:
		s := "false"
		if rv.Bool() {
			s = "true"
		}
		return e.scalar(s, "", true, libyaml.PLAIN_SCALAR_STYLE, anchor)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type() == durationType {
			return e.stringValue(time.Duration(rv.Int()).String(), anchor)
		}
		return e.scalar(strconv.FormatInt(rv.Int(), 10), "", true, libyaml.PLAIN_SCALAR_STYLE, anchor)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.scalar(strconv.FormatUint(rv.Uint(), 10), "", true, libyaml.PLAIN_SCALAR_STYLE, anchor)
	case reflect.Float32:
		return e.scalar(scalar.FormatFloat(rv.Float(), 32), "", true, libyaml.PLAIN_SCALAR_STYLE, anchor)
	case reflect.Float64:
		return e.scalar(scalar.FormatFloat(rv.Float(), 64), "", true, libyaml.PLAIN_SCALAR_STYLE, anchor)
	default:
		return fmt.Errorf("yaml: cannot encode type %s", rv.Type())
	}
}

// anchorValue handles anchor.Anchor[T] and anchor.WeakAnchor[T] fields:
// the first time a given pointer identity is seen it defines the anchor
// inline with the value; every later sighting emits an alias instead. A
// dangling WeakAnchor encodes as null. handled is false for any other
// struct so the caller falls through to ordinary struct encoding (which
// should never actually apply to these two types, but keeps the check
// narrow and explicit).
func (e *Encoder) anchorValue(rv reflect.Value, anchor string) (handled bool, err error) {
	getM := rv.MethodByName("Get")
	if !getM.IsValid() {
		return false, nil
	}

	switch getM.Type().NumOut() {
	case 1: // Anchor[T].Get() *T
		out := getM.Call(nil)[0]
		if out.IsNil() {
			return true, e.scalar("null", "", true, libyaml.PLAIN_SCALAR_STYLE, anchor)
		}
		return true, e.anchoredPointer(out, anchor)
	case 2: // WeakAnchor[T].Get() (*T, bool)
		outs := getM.Call(nil)
		if !outs[1].Bool() || outs[0].IsNil() {
			return true, e.scalar("null", "", true, libyaml.PLAIN_SCALAR_STYLE, anchor)
		}
		return true, e.anchoredPointer(outs[0], anchor)
	default:
		return false, nil
	}
}

func (e *Encoder) anchoredPointer(ptr reflect.Value, anchor string) error {
	id := ptr.Pointer()
	if ref, seen := e.anchors[id]; seen {
		return e.emit(libyaml.NewAliasEvent([]byte(ref.name)))
	}
	e.nextAnchor++
	name := e.cfg.AnchorName(e.nextAnchor)
	e.anchors[id] = anchorRef{name: name}
	return e.value(ptr.Elem(), name)
}

// marshalToEvents drives a ToEvents implementation's own event stream
// through the emitter, attaching anchor (if any) to the very first event
// it produces.
func (e *Encoder) marshalToEvents(te ToEvents, anchor string) error {
	first := true
	return te.ToEventsYAML(func(ev eventstream.Event) error {
		a := ""
		if first {
			a = anchor
			first = false
		}
		return e.emitConverted(ev, a)
	})
}

func (e *Encoder) emitConverted(ev eventstream.Event, anchor string) error {
	switch ev.Type {
	case eventstream.Scalar:
		return e.scalar(ev.Value, ev.RawTag, ev.RawTag == "", styleFromEventstream(ev.Style), anchor)
	case eventstream.SequenceStart:
		return e.emit(libyaml.NewSequenceStartEvent([]byte(anchor), []byte(ev.RawTag), ev.RawTag == "", libyaml.BLOCK_SEQUENCE_STYLE))
	case eventstream.SequenceEnd:
		return e.emit(libyaml.NewSequenceEndEvent())
	case eventstream.MappingStart:
		return e.emit(libyaml.NewMappingStartEvent([]byte(anchor), []byte(ev.RawTag), ev.RawTag == "", libyaml.BLOCK_MAPPING_STYLE))
	case eventstream.MappingEnd:
		return e.emit(libyaml.NewMappingEndEvent())
	case eventstream.Alias:
		return e.emit(libyaml.NewAliasEvent([]byte(ev.Value)))
	default:
		return fmt.Errorf("yaml: unexpected event type %s from a ToEvents implementation", ev.Type)
	}
}

func styleFromEventstream(s eventstream.ScalarStyle) libyaml.ScalarStyle {
	switch s {
	case eventstream.StyleSingleQuoted:
		return libyaml.SINGLE_QUOTED_SCALAR_STYLE
	case eventstream.StyleDoubleQuoted:
		return libyaml.DOUBLE_QUOTED_SCALAR_STYLE
	case eventstream.StyleLiteral:
		return libyaml.LITERAL_SCALAR_STYLE
	case eventstream.StyleFolded:
		return libyaml.FOLDED_SCALAR_STYLE
	default:
		return libyaml.PLAIN_SCALAR_STYLE
	}
}

// scalar emits one SCALAR event. tag is the raw text to use ("" for the
// implicit core-schema tag); implicit controls both the plain- and
// quoted-implicit flags the same way the teacher's emitScalar does,
// since every scalar this encoder writes either carries no tag at all or
// one whose resolution exactly matches the value's natural type.
func (e *Encoder) scalar(value, tag string, implicit bool, style libyaml.ScalarStyle, anchor string) error {
	if e.cfg.QuoteAll() && style == libyaml.PLAIN_SCALAR_STYLE && tag == "" {
		style = libyaml.DOUBLE_QUOTED_SCALAR_STYLE
	}
	return e.emit(libyaml.NewScalarEvent([]byte(anchor), []byte(tag), []byte(value), implicit, implicit, style))
}

// stringValue renders a Go string, picking plain/quoted/literal style the
// way the teacher's stringv does: plain only if the unquoted text would
// resolve back to a string (not a bool/int/float/null/merge look-alike),
// double-quoted otherwise. Multiline text is double-quoted unless
// PreferBlockScalars is set outside flow context, in which case it is
// written in literal block style.
func (e *Encoder) stringValue(s string, anchor string) (err error) {
	tag := ""
	if !utf8.ValidString(s) {
		tag = binaryTag
		s = scalar.EncodeBinary([]byte(s))
		return e.scalar(s, tag, false, libyaml.LITERAL_SCALAR_STYLE, anchor)
	}

	canPlain := resolvesToString(s)

	var style libyaml.ScalarStyle
	switch {
	case strings.Contains(s, "\n"):
		if e.consumeFlow() || !e.cfg.PreferBlockScalars() {
			style = libyaml.DOUBLE_QUOTED_SCALAR_STYLE
		} else {
			style = libyaml.LITERAL_SCALAR_STYLE
		}
	case canPlain:
		style = libyaml.PLAIN_SCALAR_STYLE
	default:
		style = libyaml.DOUBLE_QUOTED_SCALAR_STYLE
	}
	return e.scalar(s, tag, true, style, anchor)
}

// resolvesToString reports whether s, written unquoted, would parse back
// as a plain string rather than some other core-schema type — the same
// question the teacher's stringv answers via its own resolve("", s)
// before deciding it's safe to skip quoting.
func resolvesToString(s string) bool {
	if s == "" {
		return false
	}
	if scalar.IsNullish(s, true) {
		return false
	}
	if _, err := scalar.ParseYAML11Bool(s); err == nil {
		return false
	}
	if scalar.LooksLikeInt(s) || scalar.LooksLikeFloat(s) {
		return false
	}
	if isBase60Float(s) || s == "<<" {
		return false
	}
	return true
}

// isBase60Float reports whether s is in YAML 1.1's sexagesimal float
// notation ("1:20:30"), which YAML 1.2 parsers don't recognize as a
// number but which this encoder still quotes defensively for
// compatibility with YAML 1.1 readers.
var base60float = regexp.MustCompile(`^[-+]?[0-9][0-9_]*(?::[0-5]?[0-9])+(?:\.[0-9_]*)?$`)

func isBase60Float(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if !(c == '+' || c == '-' || (c >= '0' && c <= '9')) || strings.IndexByte(s, ':') < 0 {
		return false
	}
	return base60float.MatchString(s)
}

// consumeFlow reports and clears whether the next container/string
// decision should use flow style, combining the encoder-wide
// WithFlowStyle option with a one-shot ",flow" struct tag request.
func (e *Encoder) consumeFlow() bool {
	flow := e.cfg.FlowStyle() || e.pendingFlow
	e.pendingFlow = false
	return flow
}

func (e *Encoder) sequence(rv reflect.Value, anchor string) error {
	style := libyaml.BLOCK_SEQUENCE_STYLE
	if e.consumeFlow() || (e.cfg.EmptyAsBraces() && rv.Len() == 0) {
		style = libyaml.FLOW_SEQUENCE_STYLE
	}
	if err := e.emit(libyaml.NewSequenceStartEvent([]byte(anchor), nil, true, style)); err != nil {
		return err
	}
	for i := 0; i < rv.Len(); i++ {
		if err := e.value(rv.Index(i), ""); err != nil {
			return err
		}
	}
	return e.emit(libyaml.NewSequenceEndEvent())
}

func (e *Encoder) mapping(rv reflect.Value, anchor string) error {
	style := libyaml.BLOCK_MAPPING_STYLE
	if e.consumeFlow() || (e.cfg.EmptyAsBraces() && rv.Len() == 0) {
		style = libyaml.FLOW_MAPPING_STYLE
	}
	if err := e.emit(libyaml.NewMappingStartEvent([]byte(anchor), nil, true, style)); err != nil {
		return err
	}
	keys := keyList(rv.MapKeys())
	sort.Sort(keys)
	for _, k := range keys {
		if err := e.value(k, ""); err != nil {
			return err
		}
		if err := e.value(rv.MapIndex(k), ""); err != nil {
			return err
		}
	}
	return e.emit(libyaml.NewMappingEndEvent())
}

func (e *Encoder) structValue(rv reflect.Value, anchor string) error {
	info, err := fieldmeta.For(rv.Type())
	if err != nil {
		return err
	}

	style := libyaml.BLOCK_MAPPING_STYLE
	if e.consumeFlow() {
		style = libyaml.FLOW_MAPPING_STYLE
	}
	if err := e.emit(libyaml.NewMappingStartEvent([]byte(anchor), nil, true, style)); err != nil {
		return err
	}

	for _, f := range info.Fields {
		fv, ok := encodeFieldValue(rv, f)
		if !ok {
			continue
		}
		if f.OmitEmpty && isEmptyValue(fv) {
			continue
		}
		if err := e.stringValue(f.Key, ""); err != nil {
			return err
		}
		if f.Flow {
			e.pendingFlow = true
		}
		if err := e.value(fv, ""); err != nil {
			return err
		}
	}

	if info.InlineMap >= 0 {
		m := rv.Field(info.InlineMap)
		keys := keyList(m.MapKeys())
		sort.Sort(keys)
		for _, k := range keys {
			if _, found := info.ByKey[k.String()]; found {
				return fmt.Errorf("yaml: inline map key %q conflicts with a struct field", k.String())
			}
			if err := e.value(k, ""); err != nil {
				return err
			}
			if err := e.value(m.MapIndex(k), ""); err != nil {
				return err
			}
		}
	}

	return e.emit(libyaml.NewMappingEndEvent())
}

// encodeFieldValue navigates to f's value without fieldmeta.FieldValue's
// decode-side behavior of allocating through nil intermediate pointers:
// an inline struct reached through a nil pointer is simply absent from
// this value, so ok is false and the field is omitted from the output.
func encodeFieldValue(rv reflect.Value, f fieldmeta.Field) (reflect.Value, bool) {
	if f.Inline == nil {
		return rv.Field(f.Index), true
	}
	cur := rv
	for _, idx := range f.Inline[:len(f.Inline)-1] {
		cur = cur.Field(idx)
		for cur.Kind() == reflect.Pointer {
			if cur.IsNil() {
				return reflect.Value{}, false
			}
			cur = cur.Elem()
		}
	}
	return cur.Field(f.Inline[len(f.Inline)-1]), true
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

// keyList sorts reflect.Value map keys into a stable order: numeric (and
// bool) keys sort numerically, string keys sort in plain lexicographic
// byte order (embedded digit runs are not compared as numbers), and
// anything else falls back to Kind ordering. Adapted from the teacher's
// own dump.go keyList.
type keyList []reflect.Value

func (l keyList) Len() int      { return len(l) }
func (l keyList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

func (l keyList) Less(i, j int) bool {
	a, b := l[i], l[j]
	ak, bk := a.Kind(), b.Kind()
	for (ak == reflect.Interface || ak == reflect.Pointer) && !a.IsNil() {
		a = a.Elem()
		ak = a.Kind()
	}
	for (bk == reflect.Interface || bk == reflect.Pointer) && !b.IsNil() {
		b = b.Elem()
		bk = b.Kind()
	}
	af, aok := keyFloat(a)
	bf, bok := keyFloat(b)
	if aok && bok {
		if af != bf {
			return af < bf
		}
		if ak != bk {
			return ak < bk
		}
		return numLess(a, b)
	}
	if ak != reflect.String || bk != reflect.String {
		return ak < bk
	}
	return a.String() < b.String()
}

func keyFloat(v reflect.Value) (f float64, ok bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	case reflect.Bool:
		if v.Bool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func numLess(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() < b.Int()
	case reflect.Float32, reflect.Float64:
		return a.Float() < b.Float()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() < b.Uint()
	case reflect.Bool:
		return !a.Bool() && b.Bool()
	}
	panic("yaml: keyList.Less called on non-numeric kind")
}
