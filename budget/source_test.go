package budget_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yamlcore/yamlcore/budget"
	"github.com/yamlcore/yamlcore/eventstream"
)

func drainDocument(t *testing.T, src *budget.EnforcingSource) {
	t.Helper()
	for {
		ev, err := src.Next()
		require.NoError(t, err)
		if ev.Type == eventstream.DocumentEnd {
			return
		}
	}
}

func newDocumentEnforcingSource(t *testing.T, text string, limits budget.Limits) *budget.EnforcingSource {
	t.Helper()
	live := eventstream.NewLiveEventSourceString(text, eventstream.DefaultAliasLimits())
	src := budget.Wrap(live, limits)
	for {
		ev, err := src.Next()
		require.NoError(t, err)
		if ev.Type == eventstream.DocumentStart {
			return src
		}
	}
}

func TestWrapCountsAliasesThroughTransparentExpansion(t *testing.T) {
	src := newDocumentEnforcingSource(t, "- &a hello\n- *a\n- *a\n", budget.Default())
	drainDocument(t, src)
	report, err := src.Finish()
	require.NoError(t, err)
	require.Equal(t, 2, report.Aliases)
}

func TestWrapEnforcesMaxAliasesAcrossExpansion(t *testing.T) {
	limits := budget.Default()
	limits.MaxAliases = 1
	src := newDocumentEnforcingSource(t, "- &a hello\n- *a\n- *a\n", limits)

	var sawBreach bool
	for {
		_, err := src.Next()
		if err != nil {
			sawBreach = true
			break
		}
	}
	require.True(t, sawBreach)
}

func TestWrapRecognizesMergeKeyAfterContainerValuedEntry(t *testing.T) {
	src := newDocumentEnforcingSource(t, ""+
		"nested:\n"+
		"  - 1\n"+
		"  - 2\n"+
		"<<: *defaults\n", budget.Default())

	// <<: *defaults here is not preceded by a defined anchor, so the
	// decode itself would fail downstream; this test only exercises the
	// budget enforcer's own event accounting, which must still recognize
	// the "<<" scalar as occupying key position after the preceding
	// sequence-valued entry closed, regardless of what consume does with
	// the unresolved alias afterward.
	for {
		ev, err := src.Next()
		if err != nil {
			break
		}
		if ev.Type == eventstream.DocumentEnd {
			break
		}
	}
	report, _ := src.Finish()
	require.Equal(t, 1, report.MergeKeys)
}
