package consume

import (
	"reflect"

	"github.com/yamlcore/yamlcore/eventstream"
	"github.com/yamlcore/yamlcore/scalar"
	"github.com/yamlcore/yamlcore/yamlerr"
)

// EnumTarget lets a type decode itself from the externally-tagged enum
// encoding YAML has no native support for: a plain scalar names a unit
// variant; a single-entry mapping `{Variant: payload}` names any other
// variant and carries its payload. Go has no sum-type analog a reflect
// decoder can drive on its own, so a type opts in by implementing this
// interface directly, the same escape-hatch shape as FromEvents.
//
// VariantPayload reports whether name is a known variant and, if so, the
// addressable Value its payload should be decoded into — the zero Value
// for a unit variant. SetUnitVariant records that name was selected with
// no payload, after the decoder has confirmed name is a unit variant and
// consumed any nullish stand-in payload. SetUnitVariant is not called for
// a variant with a payload; for those, VariantPayload is the only call
// that receives the chosen name.
type EnumTarget interface {
	VariantPayload(name string) (payload reflect.Value, ok bool)
	SetUnitVariant(name string) error
}

// enum decodes an externally-tagged enum node into et, per spec: a plain
// scalar selects a unit variant by name; a single-entry mapping selects
// any variant and supplies its payload, and must end immediately after
// that one entry.
func (d *Decoder) enum(et EnumTarget) error {
	ev, err := d.src.Peek()
	if err != nil {
		return err
	}

	switch ev.Type {
	case eventstream.Scalar:
		_, _ = d.src.Next()
		payload, ok := et.VariantPayload(ev.Value)
		if !ok {
			return yamlerr.Msg(ev.Location, "unknown enum variant %q", ev.Value)
		}
		if payload.IsValid() {
			return yamlerr.Msg(ev.Location, "enum variant %q requires a payload", ev.Value)
		}
		return et.SetUnitVariant(ev.Value)

	case eventstream.MappingStart:
		if _, err := d.src.Next(); err != nil {
			return err
		}
		keyEv, err := d.src.Next()
		if err != nil {
			return err
		}
		if keyEv.Type != eventstream.Scalar {
			return &yamlerr.UnexpectedEventError{Expected: "enum variant name", Got: keyEv.Type.String(), Loc: keyEv.Location}
		}
		payload, ok := et.VariantPayload(keyEv.Value)
		if !ok {
			return yamlerr.Msg(keyEv.Location, "unknown enum variant %q", keyEv.Value)
		}

		if payload.IsValid() {
			if err := d.value(payload); err != nil {
				return err
			}
		} else {
			valEv, err := d.src.Peek()
			if err != nil {
				return err
			}
			plain := valEv.Style == eventstream.StylePlain
			if !(scalar.IsNullish(valEv.Value, plain) || eventstream.IsNullTag(valEv.Tag)) {
				return yamlerr.Msg(valEv.Location, "enum variant %q takes no payload", keyEv.Value)
			}
			if _, err := d.src.Next(); err != nil {
				return err
			}
			if err := et.SetUnitVariant(keyEv.Value); err != nil {
				return err
			}
		}

		end, err := d.src.Next()
		if err != nil {
			return err
		}
		if end.Type != eventstream.MappingEnd {
			return &yamlerr.UnexpectedEventError{Expected: "end of enum mapping", Got: end.Type.String(), Loc: end.Location}
		}
		return nil

	default:
		return &yamlerr.UnexpectedEventError{Expected: "enum variant (scalar or single-entry mapping)", Got: ev.Type.String(), Loc: ev.Location}
	}
}
