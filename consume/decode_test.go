package consume_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/yamlcore/yamlcore/consume"
	"github.com/yamlcore/yamlcore/eventstream"
	"github.com/yamlcore/yamlcore/yamlopts"
)

func decodeString(t *testing.T, src string, out any, opts ...yamlopts.Option) error {
	t.Helper()
	source := eventstream.NewLiveEventSourceString(src, eventstream.DefaultAliasLimits())
	// consume the stream-start wrapper the facade normally strips.
	for {
		ev, err := source.Peek()
		require.NoError(t, err)
		if ev.Type == eventstream.DocumentStart {
			_, _ = source.Next()
			break
		}
		_, _ = source.Next()
	}
	cfg := yamlopts.Apply(opts...)
	return consume.NewDecoder(source, cfg).Decode(out)
}

func TestDecodeScalars(t *testing.T) {
	var i int
	require.NoError(t, decodeString(t, "42\n", &i))
	require.Equal(t, 42, i)

	var f float64
	require.NoError(t, decodeString(t, "3.5\n", &f))
	require.Equal(t, 3.5, f)

	var b bool
	require.NoError(t, decodeString(t, "yes\n", &b))
	require.True(t, b)

	var s string
	require.NoError(t, decodeString(t, "hello\n", &s))
	require.Equal(t, "hello", s)

	var sp *string
	require.NoError(t, decodeString(t, "~\n", &sp))
	require.Nil(t, sp)
}

func TestDecodeStrictBooleanRejectsYAML11Forms(t *testing.T) {
	var b bool
	err := decodeString(t, "yes\n", &b, yamlopts.WithStrictBooleans(true))
	require.Error(t, err)
}

func TestDecodeSequence(t *testing.T) {
	var out []int
	require.NoError(t, decodeString(t, "[1, 2, 3]\n", &out))
	require.Equal(t, []int{1, 2, 3}, out)
}

func TestDecodeStructWithTags(t *testing.T) {
	type Inner struct {
		City string `yaml:"city"`
	}
	type Person struct {
		Name    string `yaml:"name"`
		Age     int    `yaml:"age,omitempty"`
		Address Inner  `yaml:",inline"`
	}

	var p Person
	err := decodeString(t, "name: Ada\nage: 30\ncity: London\n", &p)
	require.NoError(t, err)
	require.Equal(t, Person{Name: "Ada", Age: 30, Address: Inner{City: "London"}}, p)
}

func TestDecodeMergeKey(t *testing.T) {
	src := "" +
		"defaults: &defaults\n" +
		"  adapter: postgres\n" +
		"  host: localhost\n" +
		"development:\n" +
		"  <<: *defaults\n" +
		"  database: dev\n"

	var out map[string]map[string]string
	require.NoError(t, decodeString(t, src, &out))

	want := map[string]map[string]string{
		"defaults": {"adapter": "postgres", "host": "localhost"},
		"development": {
			"adapter":  "postgres",
			"host":     "localhost",
			"database": "dev",
		},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("merge key decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeMergeKeyExplicitKeyWins(t *testing.T) {
	src := "" +
		"defaults: &defaults\n" +
		"  host: localhost\n" +
		"development:\n" +
		"  <<: *defaults\n" +
		"  host: devhost\n"

	var out map[string]map[string]string
	require.NoError(t, decodeString(t, src, &out))
	require.Equal(t, "devhost", out["development"]["host"])
}

func TestDecodeDuplicateKeyPolicies(t *testing.T) {
	src := "a: 1\na: 2\n"

	var errOut map[string]int
	err := decodeString(t, src, &errOut)
	require.Error(t, err)

	var firstOut map[string]int
	require.NoError(t, decodeString(t, src, &firstOut, yamlopts.WithDuplicateKeys(yamlopts.DuplicateKeyFirstWins)))
	require.Equal(t, 1, firstOut["a"])

	var lastOut map[string]int
	require.NoError(t, decodeString(t, src, &lastOut, yamlopts.WithDuplicateKeys(yamlopts.DuplicateKeyLastWins)))
	require.Equal(t, 2, lastOut["a"])
}

func TestDecodeTypelessAny(t *testing.T) {
	var v any
	require.NoError(t, decodeString(t, "42\n", &v))
	require.Equal(t, int64(42), v)

	require.NoError(t, decodeString(t, "true\n", &v))
	require.Equal(t, true, v)

	require.NoError(t, decodeString(t, "3.14\n", &v))
	require.Equal(t, 3.14, v)

	require.NoError(t, decodeString(t, "plain text\n", &v))
	require.Equal(t, "plain text", v)
}
