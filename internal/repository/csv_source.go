package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"PriceLens/internal/domain/models"
	"PriceLens/internal/domain/repository"
)

// CSVSource reads daily prices from a CSV file.
type CSVSource struct {
	path string
}

// NewCSVSource creates a CSV price source.
func NewCSVSource(path string) repository.PriceSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Name() string { return "csv" }

// Fingerprint changes whenever the file is replaced or rewritten.
func (s *CSVSource) Fingerprint(_ context.Context) (string, error) {
	fi, err := s.stat()
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(s.path)
	if err != nil {
		abs = s.path
	}
	return fmt.Sprintf("%s|%d|%d", abs, fi.ModTime().UnixNano(), fi.Size()), nil
}

func (s *CSVSource) stat() (fs.FileInfo, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrDataNotFound, s.path)
		}
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", models.ErrDataNotFound, s.path)
	}
	return fi, nil
}

// Fetch reads the whole file. Ragged rows are kept; missing cells read as "".
func (s *CSVSource) Fetch(ctx context.Context) (*models.RawPrices, error) {
	if _, err := s.stat(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s is empty", models.ErrDataNotFound, s.path)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	out := &models.RawPrices{Header: header, Rows: make([][]string, 0, 1024)}
	for line := 2; ; line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", s.path, line, err)
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}
