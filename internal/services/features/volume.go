package features

import (
	"math"
	"sort"
	"strconv"

	xutil "PriceLens/pkg/util"
)

// ParseVolume strips every character that is not a digit or '.' and parses
// the rest. "1,234" and "$3,361,900" parse; "", "N/A" and "1.2.3" do not.
func ParseVolume(raw string) (float64, bool) {
	s := xutil.KeepDigitsAndDots(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Median returns the median of the non-NaN values, averaging the two middle
// values for even counts. ok is false when there are none.
func Median(values []float64) (float64, bool) {
	vals := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid], true
	}
	return (vals[mid-1] + vals[mid]) / 2, true
}

// VolumeResult is the cleaned volume column of one load.
type VolumeResult struct {
	Values  []float64
	Median  float64
	Imputed int
	// Parsed is false when no cell parsed at all; Median is then 0.
	Parsed bool
}

// CleanVolumes parses raw volume cells and fills every invalid or empty cell
// with the median of the cells that did parse.
func CleanVolumes(raw []string) VolumeResult {
	vals := make([]float64, len(raw))
	for i, s := range raw {
		if v, ok := ParseVolume(s); ok {
			vals[i] = v
		} else {
			vals[i] = math.NaN()
		}
	}

	med, ok := Median(vals)
	res := VolumeResult{Values: vals, Median: med, Parsed: ok}
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = med
			res.Imputed++
		}
	}
	return res
}
