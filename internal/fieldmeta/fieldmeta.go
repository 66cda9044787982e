// Package fieldmeta extracts and caches struct field metadata from `yaml`
// struct tags, shared by the consume and emit packages so a struct type's
// field-to-key mapping is computed exactly once and agrees between
// decode and encode. Adapted from the teacher's internal/libyaml
// structmeta.go, generalized to drop its Node-specific inline-constructor
// special case (this module's escape hatch is the FromEvents/ToEvents
// interfaces, checked by the caller before reflection ever begins).
package fieldmeta

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Field describes one YAML-visible struct field.
type Field struct {
	Key       string
	Index     int
	OmitEmpty bool
	Flow      bool
	Inline    []int // non-nil when this field was promoted from an inlined struct
}

// Info is the cached metadata for one struct type.
type Info struct {
	ByKey     map[string]Field
	Fields    []Field
	InlineMap int // field index of an ",inline" map[string]any, or -1
}

var (
	mu    sync.RWMutex
	cache = make(map[reflect.Type]*Info)
)

// For returns the cached Info for struct type st, computing and caching
// it on first use.
func For(st reflect.Type) (*Info, error) {
	mu.RLock()
	info, ok := cache[st]
	mu.RUnlock()
	if ok {
		return info, nil
	}

	info, err := build(st)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	cache[st] = info
	mu.Unlock()
	return info, nil
}

func build(st reflect.Type) (*Info, error) {
	n := st.NumField()
	byKey := make(map[string]Field)
	fields := make([]Field, 0, n)
	inlineMap := -1

	for i := 0; i < n; i++ {
		sf := st.Field(i)
		if sf.PkgPath != "" && !sf.Anonymous {
			continue
		}

		tag := sf.Tag.Get("yaml")
		if tag == "-" {
			continue
		}

		f := Field{Index: i}
		inline := false
		parts := strings.Split(tag, ",")
		for _, flag := range parts[1:] {
			switch flag {
			case "omitempty":
				f.OmitEmpty = true
			case "flow":
				f.Flow = true
			case "inline":
				inline = true
			default:
				return nil, fmt.Errorf("unsupported flag %q in tag %q of field %s.%s", flag, tag, st, sf.Name)
			}
		}
		name := parts[0]

		if inline {
			ftype := sf.Type
			switch ftype.Kind() {
			case reflect.Map:
				if inlineMap >= 0 {
					return nil, errors.New("multiple ,inline maps in struct " + st.String())
				}
				if ftype.Key().Kind() != reflect.String {
					return nil, errors.New("option ,inline needs a map with string keys in struct " + st.String())
				}
				inlineMap = i
				continue
			case reflect.Struct, reflect.Pointer:
				for ftype.Kind() == reflect.Pointer {
					ftype = ftype.Elem()
				}
				if ftype.Kind() != reflect.Struct {
					return nil, errors.New("option ,inline may only be used on a struct or map field")
				}
				nested, err := For(ftype)
				if err != nil {
					return nil, err
				}
				for _, nf := range nested.Fields {
					if _, dup := byKey[nf.Key]; dup {
						return nil, fmt.Errorf("duplicated key %q in struct %s", nf.Key, st)
					}
					promoted := nf
					if promoted.Inline == nil {
						promoted.Inline = []int{i, nf.Index}
					} else {
						promoted.Inline = append([]int{i}, promoted.Inline...)
					}
					byKey[nf.Key] = promoted
					fields = append(fields, promoted)
				}
				continue
			default:
				return nil, errors.New("option ,inline may only be used on a struct or map field")
			}
		}

		if name != "" {
			f.Key = name
		} else {
			f.Key = strings.ToLower(sf.Name)
		}
		if _, dup := byKey[f.Key]; dup {
			return nil, fmt.Errorf("duplicated key %q in struct %s", f.Key, st)
		}
		byKey[f.Key] = f
		fields = append(fields, f)
	}

	return &Info{ByKey: byKey, Fields: fields, InlineMap: inlineMap}, nil
}

// FieldValue navigates rv (addressable, Kind==Struct) down f's Index/
// Inline path, allocating intermediate pointers as needed, and returns
// the settable reflect.Value for f.
func FieldValue(rv reflect.Value, f Field) reflect.Value {
	if f.Inline == nil {
		return rv.Field(f.Index)
	}
	cur := rv
	for _, idx := range f.Inline[:len(f.Inline)-1] {
		cur = cur.Field(idx)
		if cur.Kind() == reflect.Pointer {
			if cur.IsNil() {
				cur.Set(reflect.New(cur.Type().Elem()))
			}
			cur = cur.Elem()
		}
	}
	return cur.Field(f.Inline[len(f.Inline)-1])
}
