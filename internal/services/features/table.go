package features

import (
	"fmt"
	"math"
	"strings"
	"time"

	"PriceLens/internal/domain/models"
	xutil "PriceLens/pkg/util"
)

var knownColumns = map[string]string{
	"date":      models.ColDate,
	"open":      models.ColOpen,
	"high":      models.ColHigh,
	"low":       models.ColLow,
	"close":     models.ColClose,
	"adj close": models.ColAdjClose,
	"adj_close": models.ColAdjClose,
	"adjclose":  models.ColAdjClose,
	"volume":    models.ColVolume,
}

// NormalizeHeader trims a header cell and maps known price columns to their
// canonical spelling. Unknown names are returned trimmed.
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	if c, ok := knownColumns[strings.ToLower(h)]; ok {
		return c
	}
	return h
}

// TableStats reports what BuildTable had to repair.
type TableStats struct {
	SkippedRows    int
	ImputedVolumes int
	VolumeMedian   float64
	VolumeParsed   bool
}

// BuildTable parses raw rows into a price table. Rows whose date cannot be
// parsed are skipped; volume is cleaned with CleanVolumes.
func BuildTable(raw *models.RawPrices, source string) (*models.PriceTable, TableStats, error) {
	var stats TableStats
	if raw == nil || len(raw.Header) == 0 {
		return nil, stats, fmt.Errorf("%w: empty header", models.ErrDataNotFound)
	}

	cols := make([]string, len(raw.Header))
	idx := make(map[string]int, len(raw.Header))
	for i, h := range raw.Header {
		name := NormalizeHeader(h)
		if _, dup := idx[name]; dup {
			return nil, stats, fmt.Errorf("duplicate column %q", name)
		}
		cols[i] = name
		idx[name] = i
	}
	dateIdx, ok := idx[models.ColDate]
	if !ok {
		return nil, stats, fmt.Errorf("missing %s column", models.ColDate)
	}

	cell := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	num := func(row []string, name string) float64 {
		if _, ok := idx[name]; !ok {
			return math.NaN()
		}
		return xutil.ParseFloatOrNaN(cell(row, name))
	}

	var extras []string
	for _, c := range cols {
		if _, std := knownColumns[strings.ToLower(c)]; !std {
			extras = append(extras, c)
		}
	}

	records := make([]models.PriceRecord, 0, len(raw.Rows))
	rawVolumes := make([]string, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		if dateIdx >= len(row) {
			stats.SkippedRows++
			continue
		}
		d, ok := xutil.ParseDate(row[dateIdx])
		if !ok {
			stats.SkippedRows++
			continue
		}
		rec := models.PriceRecord{
			Date:      d,
			Open:      num(row, models.ColOpen),
			High:      num(row, models.ColHigh),
			Low:       num(row, models.ColLow),
			Close:     num(row, models.ColClose),
			AdjClose:  num(row, models.ColAdjClose),
			Year:      d.Year(),
			Month:     int(d.Month()),
			Day:       d.Day(),
			DayOfWeek: xutil.Weekday(d),
		}
		if len(extras) > 0 {
			rec.Extra = make(map[string]string, len(extras))
			for _, name := range extras {
				rec.Extra[name] = cell(row, name)
			}
		}
		records = append(records, rec)
		rawVolumes = append(rawVolumes, cell(row, models.ColVolume))
	}

	if _, ok := idx[models.ColVolume]; ok {
		vol := CleanVolumes(rawVolumes)
		for i := range records {
			records[i].Volume = vol.Values[i]
		}
		stats.ImputedVolumes = vol.Imputed
		stats.VolumeMedian = vol.Median
		stats.VolumeParsed = vol.Parsed
	} else {
		for i := range records {
			records[i].Volume = math.NaN()
		}
	}

	return &models.PriceTable{
		Source:         source,
		Columns:        cols,
		Records:        records,
		VolumeMedian:   stats.VolumeMedian,
		ImputedVolumes: stats.ImputedVolumes,
		SkippedRows:    stats.SkippedRows,
		LoadedAt:       time.Now().UTC(),
	}, stats, nil
}
