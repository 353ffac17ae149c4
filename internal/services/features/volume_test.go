package features

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVolume_MatchesStripThenParse(t *testing.T) {
	cases := []string{"1,234", "$3,361,900", " 12 345 ", "7.5M", "1,234.50", "USD 99"}
	for _, raw := range cases {
		var b strings.Builder
		for _, r := range raw {
			if (r >= '0' && r <= '9') || r == '.' {
				b.WriteRune(r)
			}
		}
		want, err := strconv.ParseFloat(b.String(), 64)
		require.NoError(t, err, raw)

		got, ok := ParseVolume(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseVolume_Invalid(t *testing.T) {
	for _, raw := range []string{"", "N/A", "-", "1.2.3", "..."} {
		_, ok := ParseVolume(raw)
		assert.False(t, ok, raw)
	}
}

func TestMedian(t *testing.T) {
	m, ok := Median([]float64{3, 1, math.NaN(), 2})
	require.True(t, ok)
	assert.Equal(t, 2.0, m)

	m, ok = Median([]float64{4, 1, 3, 2})
	require.True(t, ok)
	assert.Equal(t, 2.5, m)

	_, ok = Median([]float64{math.NaN()})
	assert.False(t, ok)
}

func TestCleanVolumes_ThreeRowScenario(t *testing.T) {
	res := CleanVolumes([]string{"1,234", "", "5,678"})
	assert.Equal(t, []float64{1234, 3456, 5678}, res.Values)
	assert.Equal(t, 3456.0, res.Median)
	assert.Equal(t, 1, res.Imputed)
	assert.True(t, res.Parsed)
}

func TestCleanVolumes_ImputedEqualsMedianOfParsed(t *testing.T) {
	raw := []string{"100", "bad", "300", "", "1,000", "n/a"}
	res := CleanVolumes(raw)
	assert.Equal(t, 300.0, res.Median)
	for i, s := range raw {
		if _, ok := ParseVolume(s); !ok {
			assert.Equal(t, res.Median, res.Values[i], "row %d", i)
		}
	}
	assert.Equal(t, 3, res.Imputed)
}

func TestCleanVolumes_NothingParses(t *testing.T) {
	res := CleanVolumes([]string{"", "x"})
	assert.False(t, res.Parsed)
	assert.Equal(t, []float64{0, 0}, res.Values)
}
