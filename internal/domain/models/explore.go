package models

import "time"

// PricePoint is one row of the close-price chart.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ColumnSummary mirrors a describe() row for a numeric column.
type ColumnSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// CorrelationMatrix is a square Pearson matrix over Columns.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// DataOverview is the load report shown on the exploration page.
type DataOverview struct {
	Source         string    `json:"source"`
	Rows           int       `json:"rows"`
	Columns        []string  `json:"columns"`
	First          time.Time `json:"first"`
	Last           time.Time `json:"last"`
	VolumeMedian   float64   `json:"volume_median"`
	ImputedVolumes int       `json:"imputed_volumes"`
	SkippedRows    int       `json:"skipped_rows"`
}
