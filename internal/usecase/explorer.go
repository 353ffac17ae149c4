package usecase

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
	"time"

	"PriceLens/internal/domain/models"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/stat"
)

// Explorer serves the exploration views over the loaded price table.
type Explorer struct {
	loader *PriceLoader
}

func NewExplorer(loader *PriceLoader) *Explorer {
	return &Explorer{loader: loader}
}

// PriceFilter bounds the price series; zero values mean unbounded.
type PriceFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// Prices returns the close-price series in date order. Limit keeps the most
// recent points. Rows without a close are left out of the chart.
func (e *Explorer) Prices(ctx context.Context, f PriceFilter) ([]models.PricePoint, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	table, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PricePoint, 0, table.Len())
	for _, r := range table.Records {
		if !f.From.IsZero() && r.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && r.Date.After(f.To) {
			continue
		}
		if math.IsNaN(r.Close) {
			continue
		}
		vol := r.Volume
		if math.IsNaN(vol) {
			vol = 0
		}
		out = append(out, models.PricePoint{Date: r.Date, Close: r.Close, Volume: vol})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

// numericColumns lists the describe-able columns present in the table, in
// source order followed by the derived calendar fields.
func numericColumns(table *models.PriceTable) []string {
	var cols []string
	for _, c := range table.Columns {
		switch c {
		case models.ColOpen, models.ColHigh, models.ColLow, models.ColClose, models.ColAdjClose, models.ColVolume:
			cols = append(cols, c)
		}
	}
	return append(cols, models.ColYear, models.ColMonth, models.ColDay, models.ColDayOfWeek)
}

func columnValues(table *models.PriceTable, col string) []float64 {
	out := make([]float64, len(table.Records))
	for i := range table.Records {
		v, ok := table.Records[i].Numeric(col)
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// Summary computes count, mean, sample std, min, quartiles and max per
// numeric column, ignoring missing values.
func (e *Explorer) Summary(ctx context.Context) ([]models.ColumnSummary, error) {
	table, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	cols := numericColumns(table)
	out := make([]models.ColumnSummary, 0, len(cols))
	for _, c := range cols {
		out = append(out, describe(c, columnValues(table, c)))
	}
	return out, nil
}

func describe(name string, values []float64) models.ColumnSummary {
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			x = append(x, v)
		}
	}
	s := models.ColumnSummary{Column: name, Count: len(x)}
	if len(x) == 0 {
		return s
	}
	sort.Float64s(x)
	s.Mean = stat.Mean(x, nil)
	if len(x) > 1 {
		s.Std = stat.StdDev(x, nil)
	}
	s.Min, s.Max = x[0], x[len(x)-1]
	s.P25 = quantile(x, 0.25)
	s.P50 = quantile(x, 0.50)
	s.P75 = quantile(x, 0.75)
	return s
}

// quantile interpolates linearly between closest ranks of sorted x.
func quantile(x []float64, p float64) float64 {
	pos := p * float64(len(x)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return x[lo]
	}
	return x[lo] + (x[hi]-x[lo])*(pos-float64(lo))
}

// Correlation is the pairwise Pearson matrix over the numeric columns. Each
// pair uses the rows where both values are present; undefined cells are 0.
func (e *Explorer) Correlation(ctx context.Context) (*models.CorrelationMatrix, error) {
	table, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	cols := numericColumns(table)
	data := make([][]float64, len(cols))
	for i, c := range cols {
		data[i] = columnValues(table, c)
	}
	m := &models.CorrelationMatrix{Columns: cols, Values: make([][]float64, len(cols))}
	for i := range cols {
		m.Values[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := pearson(data[i], data[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

func pearson(a, b []float64) float64 {
	x := make([]float64, 0, len(a))
	y := make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	if len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Overview reports what the loader read and repaired.
func (e *Explorer) Overview(ctx context.Context) (*models.DataOverview, error) {
	table, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	ov := &models.DataOverview{
		Source:         table.Source,
		Rows:           table.Len(),
		Columns:        slices.Clone(table.Columns),
		VolumeMedian:   table.VolumeMedian,
		ImputedVolumes: table.ImputedVolumes,
		SkippedRows:    table.SkippedRows,
	}
	for i, r := range table.Records {
		if i == 0 || r.Date.Before(ov.First) {
			ov.First = r.Date
		}
		if i == 0 || r.Date.After(ov.Last) {
			ov.Last = r.Date
		}
	}
	return ov, nil
}

const (
	summarySheet     = "Summary"
	correlationSheet = "Correlation"
)

// ExportXLSX writes the summary statistics and correlation matrix as a
// two-sheet workbook.
func (e *Explorer) ExportXLSX(ctx context.Context, w io.Writer) error {
	summary, err := e.Summary(ctx)
	if err != nil {
		return err
	}
	corr, err := e.Correlation(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	header := []interface{}{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	for i, s := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{s.Column, s.Count, s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
	}

	if _, err := f.NewSheet(correlationSheet); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	top := make([]interface{}, 0, len(corr.Columns)+1)
	top = append(top, "")
	for _, c := range corr.Columns {
		top = append(top, c)
	}
	if err := f.SetSheetRow(correlationSheet, "A1", &top); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}
	for i, c := range corr.Columns {
		row := make([]interface{}, 0, len(corr.Columns)+1)
		row = append(row, c)
		for _, v := range corr.Values[i] {
			row = append(row, v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(correlationSheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
