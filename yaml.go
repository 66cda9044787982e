// Package yaml implements YAML support for the Go language, rebuilt
// around a canonical event stream: a hardened libyaml-derived
// scanner/parser feeds eventstream.Event values through an optional
// resource budget into a reflect-based decoder, and the reverse path
// walks a Go value through a reflect-based encoder straight into the
// libyaml Emitter. See the eventstream, budget, consume, emit, scalar,
// and anchor packages for the pieces; this file is just the facade
// gluing them into the handful of entry points most callers want.
package yaml

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/yamlcore/yamlcore/budget"
	"github.com/yamlcore/yamlcore/consume"
	"github.com/yamlcore/yamlcore/emit"
	"github.com/yamlcore/yamlcore/eventstream"
	"github.com/yamlcore/yamlcore/yamlerr"
	"github.com/yamlcore/yamlcore/yamlopts"
)

// FromText decodes a single YAML document out of src into out, which must
// be a non-nil pointer.
func FromText(src string, out any, opts ...yamlopts.Option) error {
	cfg := yamlopts.Apply(opts...)
	err := decodeDocument(eventstream.NewLiveEventSourceString(src, cfg.AliasLimits()), cfg, out)
	return annotate(src, cfg, err)
}

// FromTextMultiple decodes every document in src, in order. newOut must
// return a fresh non-nil pointer on each call; visit is invoked with the
// decoded value. Visiting stops at the first error from the decode itself
// or from visit.
func FromTextMultiple(src string, newOut func() any, visit func(any) error, opts ...yamlopts.Option) error {
	cfg := yamlopts.Apply(opts...)
	err := decodeMultiple(eventstream.NewLiveEventSourceString(src, cfg.AliasLimits()), cfg, newOut, visit)
	return annotate(src, cfg, err)
}

// FromBytes decodes a single YAML document out of data into out.
func FromBytes(data []byte, out any, opts ...yamlopts.Option) error {
	return FromText(string(data), out, opts...)
}

// FromBytesMultiple decodes every document in data; see FromTextMultiple.
func FromBytesMultiple(data []byte, newOut func() any, visit func(any) error, opts ...yamlopts.Option) error {
	return FromTextMultiple(string(data), newOut, visit, opts...)
}

// FromReader decodes a single YAML document read from r into out. Errors
// are not annotated with a source snippet: snippet rendering needs the
// full text up front, which FromReader never buffers. Use FromText (or
// FromBytes) if you want snippets and already have the document in
// memory.
func FromReader(r io.Reader, out any, opts ...yamlopts.Option) error {
	cfg := yamlopts.Apply(opts...)
	return decodeDocument(eventstream.NewLiveEventSource(r, cfg.AliasLimits()), cfg, out)
}

// FromReaderMultiple decodes every document read from r; see FromReader's
// note on snippets and FromTextMultiple for the newOut/visit contract.
func FromReaderMultiple(r io.Reader, newOut func() any, visit func(any) error, opts ...yamlopts.Option) error {
	cfg := yamlopts.Apply(opts...)
	return decodeMultiple(eventstream.NewLiveEventSource(r, cfg.AliasLimits()), cfg, newOut, visit)
}

// decodeMultiple consumes the stream wrapper events itself so callers
// never have to think about StreamStart/StreamEnd.
func decodeMultiple(src *eventstream.LiveEventSource, cfg yamlopts.Config, newOut func() any, visit func(any) error) error {
	first, err := src.Peek()
	if err != nil {
		return err
	}
	if first.Type == eventstream.StreamStart {
		if _, err := src.Next(); err != nil {
			return err
		}
	}
	for {
		peeked, err := src.Peek()
		if err != nil {
			return err
		}
		if peeked.Type == eventstream.StreamEnd {
			return nil
		}
		out := newOut()
		if err := decodeDocumentBody(src, cfg, out); err != nil {
			return err
		}
		if err := visit(out); err != nil {
			return err
		}
	}
}

// decodeDocument consumes the StreamStart wrapper ahead of a single
// document, decodes it, and leaves the source positioned after its
// DocumentEnd.
func decodeDocument(src *eventstream.LiveEventSource, cfg yamlopts.Config, out any) error {
	peeked, err := src.Peek()
	if err != nil {
		return err
	}
	if peeked.Type == eventstream.StreamStart {
		if _, err := src.Next(); err != nil {
			return err
		}
	}
	return decodeDocumentBody(src, cfg, out)
}

func decodeDocumentBody(src *eventstream.LiveEventSource, cfg yamlopts.Config, out any) error {
	start, err := src.Next()
	if err != nil {
		return err
	}
	if start.Type != eventstream.DocumentStart {
		return &yamlerr.UnexpectedEventError{Expected: "document start", Got: start.Type.String(), Loc: start.Location}
	}

	var enforced eventstream.Source = src
	var enforcer *budget.EnforcingSource
	if limits := cfg.Budget(); limits != nil {
		enforcer = budget.Wrap(src, *limits)
		enforced = enforcer
	}

	decErr := consume.NewDecoder(enforced, cfg).Decode(out)

	if enforcer != nil {
		report, finErr := enforcer.Finish()
		if cb := cfg.BudgetReport(); cb != nil {
			cb(report)
		}
		if decErr == nil {
			decErr = finErr
		}
	}
	if decErr != nil {
		return decErr
	}

	end, err := src.Next()
	if err != nil {
		return err
	}
	if end.Type != eventstream.DocumentEnd {
		return &yamlerr.UnexpectedEventError{Expected: "document end", Got: end.Type.String(), Loc: end.Location}
	}
	return nil
}

// annotate wraps err with a rendered source snippet when cfg asks for one
// and err carries a Location.
func annotate(text string, cfg yamlopts.Config, err error) error {
	if err == nil || !cfg.WithSnippetEnabled() {
		return err
	}
	ye, ok := err.(yamlerr.Error)
	if !ok {
		return err
	}
	loc := ye.Location()
	if loc.IsUnknown() {
		return err
	}
	return fmt.Errorf("%w\n%s", err, yamlerr.Snippet(text, loc, cfg.CropRadius()))
}

// ToString renders v as a single YAML document.
func ToString(v any, opts ...yamlopts.Option) (string, error) {
	var buf strings.Builder
	if err := ToIOWriter(&buf, v, opts...); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ToIOWriter renders v as a single YAML document onto w.
func ToIOWriter(w io.Writer, v any, opts ...yamlopts.Option) error {
	cfg := yamlopts.Apply(opts...)
	enc := emit.NewEncoder(w, cfg)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// ToFmtWriter renders v the same as ToIOWriter, buffering writes through
// a bufio.Writer; named for parity with callers that think in terms of
// fmt.Fprint-style destinations rather than io.Writer directly.
func ToFmtWriter(w io.Writer, v any, opts ...yamlopts.Option) error {
	bw := bufio.NewWriter(w)
	if err := ToIOWriter(bw, v, opts...); err != nil {
		return err
	}
	return bw.Flush()
}
