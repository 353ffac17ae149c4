package usecase

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"PriceLens/internal/domain/models"
	"PriceLens/internal/services/features"
	"PriceLens/internal/services/ml"
	applogger "PriceLens/pkg/logger"
	xutil "PriceLens/pkg/util"
)

// Reconciler turns user input into the single row a fitted preprocessor
// expects: same names, same order, same kinds.
type Reconciler struct {
	fallback features.Spec
	l        *applogger.Logger
}

// NewReconciler takes the configured schema, used only when an artifact
// carries no column list.
func NewReconciler(fallback features.Spec, l *applogger.Logger) *Reconciler {
	if l == nil {
		l = applogger.Nop()
	}
	return &Reconciler{fallback: fallback, l: l}
}

// ExpectedColumns returns the ordered columns the model was fitted on and
// whether the configured schema had to stand in for missing metadata.
func (r *Reconciler) ExpectedColumns(hdr models.ArtifactHeader, prep *ml.Preprocessor) ([]string, bool) {
	if hdr.Version > 0 && len(hdr.Features) > 0 {
		return append([]string(nil), hdr.Features...), false
	}
	if prep != nil && prep.Version > 0 && len(prep.InputColumns) > 0 {
		return prep.Columns(), false
	}
	cols := append([]string(nil), r.fallback.Features...)
	if prep != nil {
		for _, name := range append(append([]string(nil), prep.NumericColumns...), prep.CategoricalColumns...) {
			if !slices.Contains(cols, name) {
				cols = append(cols, name)
			}
		}
	}
	r.l.Warn("artifact has no feature list, falling back to configured schema",
		applogger.Int("artifact_version", hdr.Version),
		applogger.Strings("features", cols),
	)
	return cols, true
}

// InputValues is the name to value map built from user input. Calendar
// fields include the derived dayofweek; an invalid date yields 0.
func InputValues(in models.PredictInput) map[string]float64 {
	return map[string]float64{
		models.ColOpen:      in.Open,
		models.ColHigh:      in.High,
		models.ColLow:       in.Low,
		models.ColVolume:    in.Volume,
		models.ColYear:      float64(in.Year),
		models.ColMonth:     float64(in.Month),
		models.ColDay:       float64(in.Day),
		models.ColDayOfWeek: float64(xutil.WeekdayOrZero(in.Year, in.Month, in.Day)),
	}
}

// Row builds a one-row frame in the expected order. A column is matched by
// exact name first, then case-insensitively; unmatched columns default to 0
// (numeric) or "" (categorical, mode-imputed by the preprocessor).
func (r *Reconciler) Row(in models.PredictInput, expected []string, prep *ml.Preprocessor) (*features.Frame, []models.ReconciledValue, error) {
	nums := InputValues(in)
	frame := features.NewFrame(1)
	row := make([]models.ReconciledValue, 0, len(expected))

	for _, col := range expected {
		categorical := r.isCategorical(col, prep)
		cell := models.ReconciledValue{Column: col, IsText: categorical}

		if categorical {
			if v, ok := lookupText(in, nums, col); ok {
				cell.Text = v
			} else {
				cell.Defaulted = true
			}
			if err := frame.AddCategorical(col, []string{cell.Text}); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", models.ErrSchemaMismatch, err)
			}
		} else {
			if v, ok := lookupNumber(in, nums, col); ok {
				cell.Number = v
			} else {
				cell.Defaulted = true
			}
			if err := frame.AddNumeric(col, []float64{cell.Number}); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", models.ErrSchemaMismatch, err)
			}
		}
		row = append(row, cell)
	}
	return frame, row, nil
}

// isCategorical prefers the fitted kind; columns the preprocessor never saw
// take the configured kind.
func (r *Reconciler) isCategorical(col string, prep *ml.Preprocessor) bool {
	if prep != nil {
		if prep.IsCategorical(col) {
			return true
		}
		if slices.Contains(prep.NumericColumns, col) {
			return false
		}
	}
	return r.fallback.KindOf(col) == features.Categorical
}

func lookupNumber(in models.PredictInput, nums map[string]float64, col string) (float64, bool) {
	if v, ok := nums[col]; ok {
		return v, true
	}
	if s, ok := in.Extra[col]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(v) {
			return v, true
		}
	}
	for name, v := range nums {
		if strings.EqualFold(name, col) {
			return v, true
		}
	}
	for name, s := range in.Extra {
		if strings.EqualFold(name, col) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(v) {
				return v, true
			}
		}
	}
	return 0, false
}

func lookupText(in models.PredictInput, nums map[string]float64, col string) (string, bool) {
	if s, ok := in.Extra[col]; ok && s != "" {
		return s, true
	}
	for name, s := range in.Extra {
		if strings.EqualFold(name, col) && s != "" {
			return s, true
		}
	}
	if v, ok := nums[col]; ok {
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}
