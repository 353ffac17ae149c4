package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Canonical column names after header normalization.
const (
	ColDate     = "Date"
	ColOpen     = "Open"
	ColHigh     = "High"
	ColLow      = "Low"
	ColClose    = "Close"
	ColAdjClose = "Adj_Close"
	ColVolume   = "Volume"
)

// Calendar feature names derived from the trading date.
const (
	ColYear      = "year"
	ColMonth     = "month"
	ColDay       = "day"
	ColDayOfWeek = "dayofweek"
)

// RawPrices is a source table before any parsing: a header and string cells.
type RawPrices struct {
	Header []string
	Rows   [][]string
}

// PriceRecord is one trading day. Missing numeric values are NaN.
type PriceRecord struct {
	Date      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	AdjClose  float64
	Volume    float64
	Year      int
	Month     int
	Day       int
	DayOfWeek int // Monday = 0
	Extra     map[string]string
}

// Numeric returns the value of a numeric column or calendar field. Extra
// columns are parsed on demand; ok is false for unknown names.
func (r *PriceRecord) Numeric(name string) (float64, bool) {
	switch name {
	case ColOpen:
		return r.Open, true
	case ColHigh:
		return r.High, true
	case ColLow:
		return r.Low, true
	case ColClose:
		return r.Close, true
	case ColAdjClose:
		return r.AdjClose, true
	case ColVolume:
		return r.Volume, true
	case ColYear:
		return float64(r.Year), true
	case ColMonth:
		return float64(r.Month), true
	case ColDay:
		return float64(r.Day), true
	case ColDayOfWeek:
		return float64(r.DayOfWeek), true
	}
	s, ok := r.Extra[name]
	if !ok {
		return math.NaN(), false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN(), true
	}
	return v, true
}

// Text returns the value of a column as text; used for categorical features.
// Missing values are returned as "".
func (r *PriceRecord) Text(name string) (string, bool) {
	if s, ok := r.Extra[name]; ok {
		return strings.TrimSpace(s), true
	}
	v, ok := r.Numeric(name)
	if !ok {
		return "", false
	}
	if math.IsNaN(v) {
		return "", true
	}
	return strconv.FormatFloat(v, 'f', -1, 64), true
}

// PriceTable is a loaded, cleaned price history plus load statistics.
type PriceTable struct {
	Source         string
	Fingerprint    string
	Columns        []string
	Records        []PriceRecord
	VolumeMedian   float64
	ImputedVolumes int
	SkippedRows    int
	LoadedAt       time.Time
}

// HasColumn reports whether the source provided the column. Calendar
// fields are always available.
func (t *PriceTable) HasColumn(name string) bool {
	switch name {
	case ColYear, ColMonth, ColDay, ColDayOfWeek:
		return true
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (t *PriceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}
