package scalar_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yamlcore/yamlcore/eventstream"
	"github.com/yamlcore/yamlcore/scalar"
)

func TestIsNullish(t *testing.T) {
	require.True(t, scalar.IsNullish("", true))
	require.True(t, scalar.IsNullish("~", true))
	require.True(t, scalar.IsNullish("null", true))
	require.False(t, scalar.IsNullish("~", false))
	require.False(t, scalar.IsNullish("nope", true))
}

func TestIsNullishForOption(t *testing.T) {
	require.True(t, scalar.IsNullishForOption("   ", true))
	require.False(t, scalar.IsNullishForOption("   ", false))
}

func TestParseYAML11Bool(t *testing.T) {
	for _, s := range []string{"true", "Yes", "ON", "y"} {
		v, err := scalar.ParseYAML11Bool(s)
		require.NoError(t, err)
		require.True(t, v)
	}
	for _, s := range []string{"false", "No", "OFF", "n"} {
		v, err := scalar.ParseYAML11Bool(s)
		require.NoError(t, err)
		require.False(t, v)
	}
	_, err := scalar.ParseYAML11Bool("maybe")
	require.Error(t, err)
}

func TestParseStrictBool(t *testing.T) {
	_, err := scalar.ParseStrictBool("yes")
	require.Error(t, err)
	v, err := scalar.ParseStrictBool("TRUE")
	require.NoError(t, err)
	require.True(t, v)
}

func TestParseIntBases(t *testing.T) {
	cases := map[string]int64{
		"10":     10,
		"0x1F":   31,
		"0o17":   15,
		"0b101":  5,
		"1_000":  1000,
		"-0x10":  -16,
	}
	for s, want := range cases {
		v, err := scalar.ParseInt(s, 64, false)
		require.NoErrorf(t, err, "parsing %q", s)
		require.Equal(t, want, v, "parsing %q", s)
	}
}

func TestParseIntLegacyOctal(t *testing.T) {
	v, err := scalar.ParseInt("017", 64, true)
	require.NoError(t, err)
	require.Equal(t, int64(15), v)

	v, err = scalar.ParseInt("017", 64, false)
	require.NoError(t, err)
	require.Equal(t, int64(17), v)
}

func TestParseUintRejectsNegative(t *testing.T) {
	_, err := scalar.ParseUint("-1", 64, false)
	require.Error(t, err)
}

func TestLooksLikeInt(t *testing.T) {
	require.True(t, scalar.LooksLikeInt("42"))
	require.False(t, scalar.LooksLikeInt("abc"))
}

func TestParseFloat(t *testing.T) {
	v, err := scalar.ParseFloat("3.5", 64, eventstream.TagNone, false)
	require.NoError(t, err)
	require.Equal(t, 3.5, v)

	v, err = scalar.ParseFloat(".inf", 64, eventstream.TagNone, false)
	require.NoError(t, err)
	require.True(t, math.IsInf(v, 1))

	v, err = scalar.ParseFloat(".nan", 64, eventstream.TagNone, false)
	require.NoError(t, err)
	require.True(t, math.IsNaN(v))
}

func TestFormatFloatAlwaysLooksLikeAFloat(t *testing.T) {
	require.Equal(t, "1.0", scalar.FormatFloat(1, 64))
	require.Equal(t, ".nan", scalar.FormatFloat(math.NaN(), 64))
	require.Equal(t, ".inf", scalar.FormatFloat(math.Inf(1), 64))
	require.Equal(t, "-.inf", scalar.FormatFloat(math.Inf(-1), 64))
}

func TestBinaryRoundTrip(t *testing.T) {
	data := []byte("hello, yaml")
	encoded := scalar.EncodeBinary(data)
	decoded, err := scalar.DecodeBinary(encoded)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}
