// Package consume walks a bounded, alias-resolved eventstream.Source and
// binds it to a Go value by reflection, the way the teacher's Constructor
// walks a *Node tree — except there is no tree: every container is
// captured just long enough to gather its entries and discarded.
package consume

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/yamlcore/yamlcore/eventstream"
	"github.com/yamlcore/yamlcore/internal/fieldmeta"
	"github.com/yamlcore/yamlcore/scalar"
	"github.com/yamlcore/yamlcore/yamlerr"
	"github.com/yamlcore/yamlcore/yamlopts"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	anyType       = reflect.TypeOf((*any)(nil)).Elem()
	anyMapType    = reflect.TypeOf(map[string]any{})
	anySliceType  = reflect.TypeOf([]any{})
	byteSliceType = reflect.TypeOf([]byte{})
)

// Decoder binds a single eventstream.Source to Go values. It is not
// reused across documents; the facade constructs one per document.
type Decoder struct {
	src eventstream.Source
	cfg yamlopts.Config
}

// NewDecoder wraps src (typically a *budget.EnforcingSource over a
// *eventstream.LiveEventSource, or a *ReplayEvents for a captured
// subtree) for decoding into Go values under cfg.
func NewDecoder(src eventstream.Source, cfg yamlopts.Config) *Decoder {
	return &Decoder{src: src, cfg: cfg}
}

// Decode consumes exactly one node from the source and stores it into
// out, which must be a non-nil pointer.
func (d *Decoder) Decode(out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return yamlerr.Msg(yamlerr.Unknown, "decode target must be a non-nil pointer, got %T", out)
	}
	return d.value(rv.Elem())
}

// value decodes exactly one node into out, dispatching on the peeked
// event's shape and honoring the FromEvents escape hatch first.
func (d *Decoder) value(out reflect.Value) error {
	if out.Kind() == reflect.Pointer {
		if ev, err := d.src.Peek(); err == nil && ev.Type == eventstream.Scalar &&
			(scalar.IsNullishForOption(ev.Value, ev.Style == eventstream.StylePlain) || eventstream.IsNullTag(ev.Tag)) {
			_, _ = d.src.Next()
			out.Set(reflect.Zero(out.Type()))
			return nil
		}
	}
	out = indirect(out)

	if out.CanAddr() {
		if fe, ok := out.Addr().Interface().(FromEvents); ok {
			node, err := CaptureNode(d.src)
			if err != nil {
				return err
			}
			return fe.FromEventsYAML(NewReplayEvents(node))
		}
		if et, ok := out.Addr().Interface().(EnumTarget); ok {
			return d.enum(et)
		}
	}

	ev, err := d.src.Peek()
	if err != nil {
		return err
	}

	switch ev.Type {
	case eventstream.Scalar:
		_, _ = d.src.Next()
		return d.scalar(ev, out)
	case eventstream.SequenceStart:
		return d.sequence(out)
	case eventstream.MappingStart:
		return d.mapping(out)
	case eventstream.Alias:
		return yamlerr.Msg(ev.Location, "unresolved alias reached the decoder")
	default:
		return &yamlerr.UnexpectedEventError{Expected: "a value", Got: ev.Type.String(), Loc: ev.Location}
	}
}

// indirect follows pointers, allocating nil ones as needed, and returns
// the first non-pointer it reaches. It stops early at a pointer whose
// type implements FromEvents and returns that pointer's target, so the
// caller finds the implementation through Addr.
func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		if v.CanInterface() {
			if _, ok := v.Interface().(FromEvents); ok {
				return v.Elem()
			}
		}
		v = v.Elem()
	}
	return v
}

// scalar interprets one already-consumed Scalar event into out.
func (d *Decoder) scalar(ev eventstream.Event, out reflect.Value) error {
	if out.CanAddr() {
		if u, ok := out.Addr().Interface().(encoding.TextUnmarshaler); ok {
			text := ev.Value
			if ev.Tag == eventstream.TagBinary && !d.cfg.IgnoreBinaryTagForString() {
				data, err := scalar.DecodeBinary(ev.Value)
				if err != nil {
					return &yamlerr.TypeError{Target: out.Type().String(), Value: ev.Value, Loc: ev.Location, Cause: err}
				}
				text = string(data)
			}
			if err := u.UnmarshalText([]byte(text)); err != nil {
				return &yamlerr.TypeError{Target: out.Type().String(), Value: ev.Value, Loc: ev.Location, Cause: err}
			}
			return nil
		}
	}

	plain := ev.Style == eventstream.StylePlain

	switch out.Kind() {
	case reflect.Interface:
		if out.NumMethod() == 0 {
			val, err := d.scalarAny(ev)
			if err != nil {
				return err
			}
			if val == nil {
				out.Set(reflect.Zero(out.Type()))
			} else {
				out.Set(reflect.ValueOf(val))
			}
			return nil
		}
		return &yamlerr.TypeError{Target: out.Type().String(), Value: ev.Value, Loc: ev.Location}

	case reflect.Pointer:
		if scalar.IsNullishForOption(ev.Value, plain) || eventstream.IsNullTag(ev.Tag) {
			out.Set(reflect.Zero(out.Type()))
			return nil
		}
		out.Set(reflect.New(out.Type().Elem()))
		return d.scalar(ev, out.Elem())

	case reflect.String:
		if ev.Tag == eventstream.TagBinary && !d.cfg.IgnoreBinaryTagForString() {
			data, err := scalar.DecodeBinary(ev.Value)
			if err != nil {
				return &yamlerr.TypeError{Target: "string", Value: ev.Value, Loc: ev.Location, Cause: err}
			}
			out.SetString(string(data))
			return nil
		}
		if d.cfg.NoSchema() && plain && ev.Tag == eventstream.TagNone {
			if scalar.LooksLikeInt(ev.Value) || scalar.LooksLikeFloat(ev.Value) || looksLikeBool(ev.Value) {
				return &yamlerr.TypeError{Target: "string", Value: ev.Value, Loc: ev.Location,
					Cause: fmt.Errorf("ambiguous unquoted scalar requires an explicit !!str tag under no-schema mode")}
			}
		}
		out.SetString(ev.Value)
		return nil

	case reflect.Bool:
		b, err := d.parseBool(ev.Value)
		if err != nil {
			return &yamlerr.TypeError{Target: "bool", Value: ev.Value, Loc: ev.Location, Cause: err}
		}
		out.SetBool(b)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if out.Type() == durationType {
			dur, err := time.ParseDuration(ev.Value)
			if err == nil {
				out.SetInt(int64(dur))
				return nil
			}
		}
		n, err := scalar.ParseInt(ev.Value, out.Type().Bits(), d.cfg.LegacyOctalNumbers())
		if err != nil {
			return &yamlerr.TypeError{Target: out.Type().String(), Value: ev.Value, Loc: ev.Location, Cause: err}
		}
		out.SetInt(n)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := scalar.ParseUint(ev.Value, out.Type().Bits(), d.cfg.LegacyOctalNumbers())
		if err != nil {
			return &yamlerr.TypeError{Target: out.Type().String(), Value: ev.Value, Loc: ev.Location, Cause: err}
		}
		out.SetUint(n)
		return nil

	case reflect.Float32, reflect.Float64:
		f, err := scalar.ParseFloat(ev.Value, out.Type().Bits(), ev.Tag, d.cfg.AngleConversions())
		if err != nil {
			return &yamlerr.TypeError{Target: out.Type().String(), Value: ev.Value, Loc: ev.Location, Cause: err}
		}
		out.SetFloat(f)
		return nil

	case reflect.Slice:
		if out.Type() == byteSliceType {
			data, err := scalar.DecodeBinary(ev.Value)
			if err != nil {
				return &yamlerr.TypeError{Target: "[]byte", Value: ev.Value, Loc: ev.Location, Cause: err}
			}
			out.SetBytes(data)
			return nil
		}

	case reflect.Struct:
		if out.Type() == timeType {
			t, err := parseTimestamp(ev.Value)
			if err != nil {
				return &yamlerr.TypeError{Target: "time.Time", Value: ev.Value, Loc: ev.Location, Cause: err}
			}
			out.Set(reflect.ValueOf(t))
			return nil
		}
	}

	return &yamlerr.TypeError{Target: out.Type().String(), Value: ev.Value, Loc: ev.Location}
}

func (d *Decoder) parseBool(s string) (bool, error) {
	if d.cfg.StrictBooleans() {
		return scalar.ParseStrictBool(s)
	}
	return scalar.ParseYAML11Bool(s)
}

func looksLikeBool(s string) bool {
	_, err := scalar.ParseYAML11Bool(s)
	return err == nil
}

// scalarAny implements the typeless decode heuristic used for interface{}
// targets: nullish text or a !!null tag becomes nil; otherwise an
// explicit non-string tag binds directly, and an untagged plain scalar
// is tried in turn as bool, then int, then float, falling back to the
// literal string.
func (d *Decoder) scalarAny(ev eventstream.Event) (any, error) {
	plain := ev.Style == eventstream.StylePlain

	if eventstream.IsNullTag(ev.Tag) || (ev.Tag == eventstream.TagNone && scalar.IsNullish(ev.Value, plain)) {
		return nil, nil
	}

	switch ev.Tag {
	case eventstream.TagBoolean:
		return d.parseBool(ev.Value)
	case eventstream.TagInteger:
		if n, err := scalar.ParseInt(ev.Value, 64, d.cfg.LegacyOctalNumbers()); err == nil {
			return n, nil
		}
		n, err := scalar.ParseUint(ev.Value, 64, d.cfg.LegacyOctalNumbers())
		return n, err
	case eventstream.TagFloat, eventstream.TagDegrees, eventstream.TagRadians:
		return scalar.ParseFloat(ev.Value, 64, ev.Tag, d.cfg.AngleConversions())
	case eventstream.TagBinary:
		return scalar.DecodeBinary(ev.Value)
	case eventstream.TagString:
		return ev.Value, nil
	}

	if !plain || d.cfg.NoSchema() {
		return ev.Value, nil
	}

	if b, err := d.parseBool(ev.Value); err == nil {
		return b, nil
	}
	if n, err := scalar.ParseInt(ev.Value, 64, d.cfg.LegacyOctalNumbers()); err == nil {
		return n, nil
	}
	if f, err := scalar.ParseFloat(ev.Value, 64, eventstream.TagNone, false); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return scalar.FormatFloat(f, 64), nil
		}
		return f, nil
	}
	return ev.Value, nil
}

// sequence decodes a SequenceStart..End node into a slice, array, or
// interface{} ([]any).
func (d *Decoder) sequence(out reflect.Value) error {
	start, err := d.src.Next()
	if err != nil {
		return err
	}

	var elemIface reflect.Value
	target := out
	switch out.Kind() {
	case reflect.Slice:
		target = reflect.MakeSlice(out.Type(), 0, 4)
	case reflect.Array:
		// filled in place below
	case reflect.Interface:
		if out.NumMethod() != 0 {
			return &yamlerr.TypeError{Target: out.Type().String(), Loc: start.Location}
		}
		elemIface = out
		target = reflect.MakeSlice(anySliceType, 0, 4)
	default:
		return &yamlerr.TypeError{Target: out.Type().String(), Loc: start.Location}
	}

	i := 0
	for {
		peeked, err := d.src.Peek()
		if err != nil {
			return err
		}
		if peeked.Type == eventstream.SequenceEnd {
			_, _ = d.src.Next()
			break
		}

		switch out.Kind() {
		case reflect.Array:
			if i >= out.Len() {
				return yamlerr.Msg(peeked.Location, "array of length %d overflowed by sequence", out.Len())
			}
			if err := d.value(out.Index(i)); err != nil {
				return err
			}
		default:
			elem := reflect.New(target.Type().Elem()).Elem()
			if err := d.value(elem); err != nil {
				return err
			}
			target = reflect.Append(target, elem)
		}
		i++
	}

	switch out.Kind() {
	case reflect.Array:
		return nil
	case reflect.Slice:
		out.Set(target)
	case reflect.Interface:
		elemIface.Set(target)
	}
	return nil
}

// mapping decodes a MappingStart..End node into a map, struct, or
// interface{} (map[string]any), after merge-key expansion and
// duplicate-key policy enforcement.
func (d *Decoder) mapping(out reflect.Value) error {
	start, err := d.src.Next()
	if err != nil {
		return err
	}
	raw, err := readMappingEntries(d.src)
	if err != nil {
		return err
	}
	entries, err := ExpandEntries(raw, d.cfg.DuplicateKeys())
	if err != nil {
		return err
	}

	switch out.Kind() {
	case reflect.Map:
		return d.mappingIntoMap(out, entries)
	case reflect.Struct:
		return d.mappingIntoStruct(out, entries)
	case reflect.Interface:
		if out.NumMethod() != 0 {
			return &yamlerr.TypeError{Target: out.Type().String(), Loc: start.Location}
		}
		m := reflect.MakeMapWithSize(anyMapType, len(entries))
		for _, e := range entries {
			key, ok := StringyScalarValue(e.Key)
			if !ok {
				return &yamlerr.TypeError{Target: "map[string]any", Loc: e.KeyLoc,
					Cause: fmt.Errorf("non-scalar mapping key unsupported for untyped decode")}
			}
			val, err := d.decodeCaptured(e.Value, anyType)
			if err != nil {
				return err
			}
			m.SetMapIndex(reflect.ValueOf(key), val)
		}
		out.Set(m)
		return nil
	default:
		return &yamlerr.TypeError{Target: out.Type().String(), Loc: start.Location}
	}
}

func (d *Decoder) mappingIntoMap(out reflect.Value, entries []Entry) error {
	if out.IsNil() {
		out.Set(reflect.MakeMapWithSize(out.Type(), len(entries)))
	}
	kt, vt := out.Type().Key(), out.Type().Elem()
	for _, e := range entries {
		key := reflect.New(kt).Elem()
		if err := d.decodeCapturedInto(e.Key, key); err != nil {
			return err
		}
		val := reflect.New(vt).Elem()
		if err := d.decodeCapturedInto(e.Value, val); err != nil {
			return err
		}
		out.SetMapIndex(key, val)
	}
	return nil
}

func (d *Decoder) mappingIntoStruct(out reflect.Value, entries []Entry) error {
	info, err := fieldmeta.For(out.Type())
	if err != nil {
		return err
	}
	for _, e := range entries {
		key, ok := StringyScalarValue(e.Key)
		if !ok {
			continue
		}
		f, ok := info.ByKey[key]
		if !ok {
			if info.InlineMap >= 0 {
				m := out.Field(info.InlineMap)
				if m.IsNil() {
					m.Set(reflect.MakeMap(m.Type()))
				}
				val := reflect.New(m.Type().Elem()).Elem()
				if err := d.decodeCapturedInto(e.Value, val); err != nil {
					return &yamlerr.FieldError{Field: key, Err: err}
				}
				m.SetMapIndex(reflect.ValueOf(key), val)
			}
			continue
		}
		fv := fieldmeta.FieldValue(out, f)
		if err := d.decodeCapturedInto(e.Value, fv); err != nil {
			return &yamlerr.FieldError{Field: key, Err: err}
		}
	}
	return nil
}

// decodeCapturedInto replays captured node events through a fresh
// sub-decode into out, used once a mapping's entries are already fully
// captured (so duplicate-key and merge-key handling only walk the live
// stream once).
func (d *Decoder) decodeCapturedInto(events []eventstream.Event, out reflect.Value) error {
	sub := NewDecoder(NewReplayEvents(events), d.cfg)
	return sub.value(out)
}

func (d *Decoder) decodeCaptured(events []eventstream.Event, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if err := d.decodeCapturedInto(events, out); err != nil {
		return reflect.Value{}, err
	}
	return out, nil
}

var timeType = reflect.TypeOf(time.Time{})

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-1-2T15:4:5.999999999Z07:00",
		"2006-1-2t15:4:5.999999999-07:00",
		"2006-1-2 15:4:5.999999999 -07:00",
		"2006-1-2",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
