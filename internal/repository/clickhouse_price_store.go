package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"PriceLens/internal/domain/models"
	"PriceLens/internal/domain/repository"
	applogger "PriceLens/pkg/logger"
)

// ClickHousePriceStore keeps daily prices in a ReplacingMergeTree table. It
// is both a PriceSource for the loader and the PriceSink used by ingest.
type ClickHousePriceStore struct {
	db     *sql.DB
	table  string
	symbol string
	l      *applogger.Logger
}

var (
	_ repository.PriceSource = (*ClickHousePriceStore)(nil)
	_ repository.PriceSink   = (*ClickHousePriceStore)(nil)
)

// NewClickHousePriceStore creates the store; table is "db.name".
func NewClickHousePriceStore(db *sql.DB, table, symbol string, l *applogger.Logger) *ClickHousePriceStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHousePriceStore{db: db, table: table, symbol: symbol, l: l}
}

func (s *ClickHousePriceStore) Name() string { return "clickhouse" }

// SchemaStatements returns the idempotent DDL for the prices table.
func SchemaStatements(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            symbol LowCardinality(String),
            date Date,
            open Nullable(Float64),
            high Nullable(Float64),
            low Nullable(Float64),
            close Nullable(Float64),
            adj_close Nullable(Float64),
            volume Float64,
            ingested_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(ingested_at) ORDER BY (symbol, date)`, database, table),
	}
}

func (s *ClickHousePriceStore) Init(ctx context.Context) error {
	db, table, ok := strings.Cut(s.table, ".")
	if !ok {
		return fmt.Errorf("table %q must be qualified as db.table", s.table)
	}
	for _, stmt := range SchemaStatements(db, table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Fingerprint is the row count and the latest date for the symbol.
func (s *ClickHousePriceStore) Fingerprint(ctx context.Context) (string, error) {
	q := fmt.Sprintf("SELECT count(), max(date) FROM %s FINAL WHERE symbol = ?", s.table)
	var n uint64
	var last time.Time
	if err := s.db.QueryRowContext(ctx, q, s.symbol).Scan(&n, &last); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: no rows for %s in %s", models.ErrDataNotFound, s.symbol, s.table)
	}
	return fmt.Sprintf("%s|%s|%d|%s", s.table, s.symbol, n, last.Format("2006-01-02")), nil
}

// Fetch returns the symbol's rows in the same shape as the CSV source.
func (s *ClickHousePriceStore) Fetch(ctx context.Context) (*models.RawPrices, error) {
	start := time.Now()
	const qtpl = `
        SELECT date, open, high, low, close, adj_close, volume
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), s.symbol)
	if err != nil {
		s.l.Error("clickhouse fetch prices query error",
			applogger.String("table", s.table),
			applogger.String("symbol", s.symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	defer rows.Close()

	out := &models.RawPrices{
		Header: []string{models.ColDate, models.ColOpen, models.ColHigh, models.ColLow, models.ColClose, models.ColAdjClose, models.ColVolume},
		Rows:   make([][]string, 0, 4096),
	}
	for rows.Next() {
		var (
			d                         time.Time
			open, high, low, cl, adjC sql.NullFloat64
			vol                       float64
		)
		if err := rows.Scan(&d, &open, &high, &low, &cl, &adjC, &vol); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		out.Rows = append(out.Rows, []string{
			d.Format("2006-01-02"),
			formatNull(open), formatNull(high), formatNull(low), formatNull(cl), formatNull(adjC),
			strconv.FormatFloat(vol, 'f', -1, 64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out.Rows) == 0 {
		return nil, fmt.Errorf("%w: no rows for %s in %s", models.ErrDataNotFound, s.symbol, s.table)
	}

	s.l.Info("clickhouse fetch prices ok",
		applogger.String("table", s.table),
		applogger.String("symbol", s.symbol),
		applogger.Int("rows", len(out.Rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// StoreBatch inserts records with multi-row VALUES in chunks of 2000.
func (s *ClickHousePriceStore) StoreBatch(ctx context.Context, records []models.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(records); start += chunkSize {
		end := min(start+chunkSize, len(records))
		q, args := buildInsert(s.table, s.symbol, records[start:end])
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse store prices error",
				applogger.String("table", s.table),
				applogger.Int("offset", start),
				applogger.Error(err),
			)
			return fmt.Errorf("store prices [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func buildInsert(table, symbol string, records []models.PriceRecord) (string, []interface{}) {
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*8)
	for _, r := range records {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			symbol,
			r.Date,
			nullable(r.Open),
			nullable(r.High),
			nullable(r.Low),
			nullable(r.Close),
			nullable(r.AdjClose),
			r.Volume,
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, adj_close, volume) VALUES %s",
		table, strings.Join(values, ","))
	return q, args
}

func (s *ClickHousePriceStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func formatNull(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}
