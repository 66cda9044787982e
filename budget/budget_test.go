package budget_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yamlcore/yamlcore/budget"
	"github.com/yamlcore/yamlcore/eventstream"
	"github.com/yamlcore/yamlcore/yamlerr"
)

func TestEnforcerAllowsWithinLimits(t *testing.T) {
	e := budget.New(budget.Default())
	require.NoError(t, e.Observe(eventstream.Event{Type: eventstream.DocumentStart}))
	require.NoError(t, e.Observe(eventstream.Event{Type: eventstream.Scalar, Value: "hello"}))
	require.NoError(t, e.Observe(eventstream.Event{Type: eventstream.DocumentEnd}))
	report, err := e.Finish()
	require.NoError(t, err)
	require.Equal(t, 3, report.Events)
}

func TestEnforcerBreachesMaxEvents(t *testing.T) {
	limits := budget.Default()
	limits.MaxEvents = 1
	e := budget.New(limits)
	require.NoError(t, e.Observe(eventstream.Event{Type: eventstream.DocumentStart}))
	err := e.Observe(eventstream.Event{Type: eventstream.Scalar})
	require.Error(t, err)
	var be *yamlerr.BudgetError
	require.ErrorAs(t, err, &be)
	require.Equal(t, string(budget.BreachEvents), be.Breach)
}

func TestEnforcerBreachesMaxNodes(t *testing.T) {
	limits := budget.Default()
	limits.MaxNodes = 2
	e := budget.New(limits)
	require.NoError(t, e.Observe(eventstream.Event{Type: eventstream.SequenceStart}))
	require.NoError(t, e.Observe(eventstream.Event{Type: eventstream.SequenceStart}))
	err := e.Observe(eventstream.Event{Type: eventstream.SequenceStart})
	require.Error(t, err)
	var be *yamlerr.BudgetError
	require.ErrorAs(t, err, &be)
	require.Equal(t, string(budget.BreachNodes), be.Breach)
}

func TestEnforcerRejectsUnbalancedSequenceEnd(t *testing.T) {
	e := budget.New(budget.Default())
	err := e.Observe(eventstream.Event{Type: eventstream.SequenceEnd})
	require.Error(t, err)
	var be *yamlerr.BudgetError
	require.ErrorAs(t, err, &be)
	require.Equal(t, string(budget.BreachSequenceBalance), be.Breach)
}

func TestEnforcerFlagsAliasBomb(t *testing.T) {
	limits := budget.Default()
	limits.MaxAliases = 1_000_000
	e := budget.New(limits)
	require.NoError(t, e.Observe(eventstream.Event{Type: eventstream.Scalar, Anchor: "a"}))
	for i := 0; i < 1000; i++ {
		require.NoError(t, e.Observe(eventstream.Event{Type: eventstream.Alias}))
	}
	_, err := e.Finish()
	require.Error(t, err)
}
