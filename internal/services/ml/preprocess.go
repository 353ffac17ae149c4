package ml

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"PriceLens/internal/domain/models"
	"PriceLens/internal/services/features"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	PreprocessorVersion = 1
	// MaxComponents caps the PCA output of the numeric branch.
	MaxComponents = 5
)

// Preprocessor is the fitted numeric and categorical transformation shared by
// every model of a training run. It is never mutated after FitPreprocessor.
//
// Numeric branch: median impute, standardize (population std, zero std
// becomes 1), project onto the leading principal components.
// Categorical branch: mode impute, one-hot over the sorted training
// vocabulary; unseen values encode as all zeros.
type Preprocessor struct {
	Version            int
	InputColumns       []string
	NumericColumns     []string
	CategoricalColumns []string

	Medians     []float64
	Means       []float64
	Scales      []float64
	PCAMean     []float64
	Components  []float64 // row-major len(NumericColumns) x NComponents
	NComponents int

	Modes      []string
	Categories [][]string
}

// Columns returns the exact input columns, in the order they were fitted.
func (p *Preprocessor) Columns() []string {
	return slices.Clone(p.InputColumns)
}

// OutputColumns names the transformed matrix columns.
func (p *Preprocessor) OutputColumns() []string {
	out := make([]string, 0, p.OutputWidth())
	for i := 0; i < p.NComponents; i++ {
		out = append(out, fmt.Sprintf("pc%d", i+1))
	}
	for j, col := range p.CategoricalColumns {
		for _, v := range p.Categories[j] {
			out = append(out, col+"="+v)
		}
	}
	return out
}

// OutputWidth is the number of columns Transform produces.
func (p *Preprocessor) OutputWidth() int {
	w := p.NComponents
	for _, c := range p.Categories {
		w += len(c)
	}
	return w
}

// FitPreprocessor fits on f and returns the transformed training matrix.
func FitPreprocessor(f *features.Frame) (*Preprocessor, *mat.Dense, error) {
	n := f.Rows()
	if n == 0 {
		return nil, nil, fmt.Errorf("%w: empty feature frame", models.ErrNotEnoughRows)
	}
	if f.Width() == 0 {
		return nil, nil, fmt.Errorf("%w: no feature columns", models.ErrSchemaMismatch)
	}

	p := &Preprocessor{Version: PreprocessorVersion, InputColumns: f.Columns()}
	var numeric [][]float64
	var categorical [][]string
	for i := 0; i < f.Width(); i++ {
		c := f.At(i)
		if c.Kind == features.Numeric {
			p.NumericColumns = append(p.NumericColumns, c.Name)
			numeric = append(numeric, c.Num)
		} else {
			p.CategoricalColumns = append(p.CategoricalColumns, c.Name)
			categorical = append(categorical, c.Cat)
		}
	}

	if err := p.fitNumeric(numeric, n); err != nil {
		return nil, nil, err
	}
	p.fitCategorical(categorical)

	out, err := p.Transform(f)
	if err != nil {
		return nil, nil, err
	}
	return p, out, nil
}

func (p *Preprocessor) fitNumeric(cols [][]float64, n int) error {
	d := len(cols)
	if d == 0 {
		return nil
	}
	p.Medians = make([]float64, d)
	p.Means = make([]float64, d)
	p.Scales = make([]float64, d)

	z := mat.NewDense(n, d, nil)
	buf := make([]float64, n)
	for j, col := range cols {
		med, _ := features.Median(col)
		p.Medians[j] = med
		for i, v := range col {
			if math.IsNaN(v) {
				v = med
			}
			buf[i] = v
		}
		mean, std := stat.PopMeanStdDev(buf, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		p.Means[j], p.Scales[j] = mean, std
		for i, v := range buf {
			z.Set(i, j, (v-mean)/std)
		}
	}

	k := min(MaxComponents, d, n)
	var pc stat.PC
	if ok := pc.PrincipalComponents(z, nil); !ok {
		return fmt.Errorf("pca: decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, avail := vecs.Dims()
	k = min(k, avail)

	p.PCAMean = make([]float64, d)
	for j := 0; j < d; j++ {
		p.PCAMean[j] = stat.Mean(mat.Col(nil, j, z), nil)
	}
	p.NComponents = k
	p.Components = make([]float64, d*k)
	for c := 0; c < k; c++ {
		// fix the sign so the largest-magnitude loading is positive
		sign, best := 1.0, 0.0
		for j := 0; j < d; j++ {
			if v := vecs.At(j, c); math.Abs(v) > best {
				best = math.Abs(v)
				sign = math.Copysign(1, v)
			}
		}
		for j := 0; j < d; j++ {
			p.Components[j*k+c] = sign * vecs.At(j, c)
		}
	}
	return nil
}

func (p *Preprocessor) fitCategorical(cols [][]string) {
	p.Modes = make([]string, len(cols))
	p.Categories = make([][]string, len(cols))
	for j, col := range cols {
		counts := make(map[string]int)
		for _, v := range col {
			if v != "" {
				counts[v]++
			}
		}
		mode, best := "", 0
		for v, c := range counts {
			if c > best || (c == best && v < mode) {
				mode, best = v, c
			}
		}
		p.Modes[j] = mode

		vocab := make([]string, 0, len(counts))
		for v := range counts {
			vocab = append(vocab, v)
		}
		sort.Strings(vocab)
		p.Categories[j] = vocab
	}
}

// Transform applies the fitted steps. f must carry exactly Columns(), in
// order and with matching kinds. An unversioned preprocessor or one with no
// recorded Columns() only needs every fitted column present by name.
func (p *Preprocessor) Transform(f *features.Frame) (*mat.Dense, error) {
	if err := p.checkFrame(f); err != nil {
		return nil, err
	}
	n := f.Rows()
	width := p.OutputWidth()
	if n == 0 || width == 0 {
		return nil, fmt.Errorf("%w: transform of %d rows into %d columns", models.ErrSchemaMismatch, n, width)
	}
	out := mat.NewDense(n, width, nil)

	d := len(p.NumericColumns)
	if d > 0 && p.NComponents > 0 {
		z := mat.NewDense(n, d, nil)
		for j, name := range p.NumericColumns {
			col, _ := f.Column(name)
			for i, v := range col.Num {
				if math.IsNaN(v) {
					v = p.Medians[j]
				}
				z.Set(i, j, (v-p.Means[j])/p.Scales[j]-p.PCAMean[j])
			}
		}
		var proj mat.Dense
		proj.Mul(z, mat.NewDense(d, p.NComponents, p.Components))
		out.Slice(0, n, 0, p.NComponents).(*mat.Dense).Copy(&proj)
	}

	offset := p.NComponents
	for j, name := range p.CategoricalColumns {
		col, _ := f.Column(name)
		vocab := p.Categories[j]
		for i, v := range col.Cat {
			if v == "" {
				v = p.Modes[j]
			}
			if k, ok := slices.BinarySearch(vocab, v); ok {
				out.Set(i, offset+k, 1)
			}
		}
		offset += len(vocab)
	}
	return out, nil
}

func (p *Preprocessor) checkFrame(f *features.Frame) error {
	// Unversioned artifacts resolve columns by name; extras are ignored.
	if p.Version > 0 && len(p.InputColumns) > 0 {
		if got := f.Columns(); !slices.Equal(got, p.InputColumns) {
			return fmt.Errorf("%w: expected columns %v, got %v", models.ErrSchemaMismatch, p.InputColumns, got)
		}
	}
	for _, name := range p.CategoricalColumns {
		c, ok := f.Column(name)
		if !ok {
			return fmt.Errorf("%w: missing column %q", models.ErrSchemaMismatch, name)
		}
		if c.Kind != features.Categorical {
			return fmt.Errorf("%w: column %q must be categorical", models.ErrSchemaMismatch, name)
		}
	}
	for _, name := range p.NumericColumns {
		c, ok := f.Column(name)
		if !ok {
			return fmt.Errorf("%w: missing column %q", models.ErrSchemaMismatch, name)
		}
		if c.Kind != features.Numeric {
			return fmt.Errorf("%w: column %q must be numeric", models.ErrSchemaMismatch, name)
		}
	}
	return nil
}

// IsCategorical reports whether name was fitted as a categorical column.
func (p *Preprocessor) IsCategorical(name string) bool {
	return slices.Contains(p.CategoricalColumns, name)
}
