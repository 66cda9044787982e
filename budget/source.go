package budget

import (
	"github.com/yamlcore/yamlcore/eventstream"
	"github.com/yamlcore/yamlcore/yamlerr"
)

// EnforcingSource wraps an eventstream.Source, running every event it
// yields (raw or replayed) through an Enforcer before handing it to the
// next stage of the pull chain — the architecture spec.md describes as
// "event source → budget enforcer → consumer", composed with no
// concurrency between stages.
type EnforcingSource struct {
	inner    eventstream.Source
	enforcer *Enforcer
}

// Wrap returns an EnforcingSource observing inner's events against
// limits. If inner supports registering an eventstream.AliasObserver (as
// *eventstream.LiveEventSource does), the enforcer registers itself so
// raw Alias events are still counted even though they never reach
// Next/Peek directly — LiveEventSource expands them in place before
// returning.
func Wrap(inner eventstream.Source, limits Limits) *EnforcingSource {
	enforcer := New(limits)
	if observable, ok := inner.(interface {
		SetAliasObserver(eventstream.AliasObserver)
	}); ok {
		observable.SetAliasObserver(enforcer)
	}
	return &EnforcingSource{inner: inner, enforcer: enforcer}
}

func (s *EnforcingSource) Next() (eventstream.Event, error) {
	ev, err := s.inner.Next()
	if err != nil {
		return ev, err
	}
	if err := s.enforcer.Observe(ev); err != nil {
		return ev, err
	}
	return ev, nil
}

func (s *EnforcingSource) Peek() (eventstream.Event, error) {
	// Peeking must not double-count: the enforcer only observes an event
	// once, at the point it is actually consumed via Next. Since the
	// underlying source memoizes its own peek, re-peeking here is safe.
	return s.inner.Peek()
}

func (s *EnforcingSource) LastLocation() yamlerr.Location {
	return s.inner.LastLocation()
}

// Finish finalizes the wrapped Enforcer and returns its Report. Call this
// once, after the consumer has fully drained the source.
func (s *EnforcingSource) Finish() (Report, error) {
	return s.enforcer.Finish()
}
