package features

import (
	"fmt"
	"math"

	"PriceLens/internal/domain/models"
)

// Spec declares the ordered feature columns and which of them are categorical.
type Spec struct {
	Features    []string
	Categorical []string
}

// KindOf returns the declared kind of a feature.
func (s Spec) KindOf(name string) Kind {
	for _, c := range s.Categorical {
		if c == name {
			return Categorical
		}
	}
	return Numeric
}

// BuildFrame extracts the declared feature columns from the table, in
// declaration order. A feature the source does not provide is an ErrSchemaMismatch.
func BuildFrame(table *models.PriceTable, spec Spec) (*Frame, error) {
	if len(spec.Features) == 0 {
		return nil, fmt.Errorf("%w: no features configured", models.ErrSchemaMismatch)
	}
	n := table.Len()
	f := NewFrame(n)
	for _, name := range spec.Features {
		if name == models.ColDate {
			return nil, fmt.Errorf("%w: %s is not a model feature, use year/month/day", models.ErrSchemaMismatch, name)
		}
		if !table.HasColumn(name) {
			return nil, fmt.Errorf("%w: feature %q not in source columns %v", models.ErrSchemaMismatch, name, table.Columns)
		}
		var err error
		if spec.KindOf(name) == Categorical {
			vals := make([]string, n)
			for i := range table.Records {
				vals[i], _ = table.Records[i].Text(name)
			}
			err = f.AddCategorical(name, vals)
		} else {
			vals := make([]float64, n)
			for i := range table.Records {
				vals[i], _ = table.Records[i].Numeric(name)
			}
			err = f.AddNumeric(name, vals)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Target returns the target column. ErrTargetMissing when the source does
// not provide it.
func Target(table *models.PriceTable, target string) ([]float64, error) {
	if !table.HasColumn(target) {
		return nil, fmt.Errorf("%w: %q (columns %v)", models.ErrTargetMissing, target, table.Columns)
	}
	y := make([]float64, table.Len())
	for i := range table.Records {
		v, ok := table.Records[i].Numeric(target)
		if !ok {
			v = math.NaN()
		}
		y[i] = v
	}
	return y, nil
}

// DropMissingTarget returns the indices of rows whose target is present.
func DropMissingTarget(y []float64) []int {
	keep := make([]int, 0, len(y))
	for i, v := range y {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			keep = append(keep, i)
		}
	}
	return keep
}
