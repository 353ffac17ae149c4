package ml

import (
	"errors"
	"fmt"

	"PriceLens/internal/domain/models"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rcond below which singular values are treated as zero.
const svdRcond = 1e-10

// LinearRegression is ordinary least squares with an intercept, solved as
// the minimum-norm solution on centered data so collinear inputs still fit.
type LinearRegression struct {
	Coef      []float64
	Intercept float64
	Rank      int
}

func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

func (m *LinearRegression) Name() models.ModelKind { return models.ModelLinearRegression }

// Fit learns the coefficients.
func (m *LinearRegression) Fit(X *mat.Dense, y []float64) error {
	n, p := X.Dims()
	if n == 0 {
		return errors.New("linear: empty X")
	}
	if len(y) != n {
		return fmt.Errorf("linear: X has %d rows, y has %d", n, len(y))
	}

	ym := stat.Mean(y, nil)
	m.Coef = make([]float64, p)
	m.Intercept = ym
	m.Rank = 0
	if p == 0 {
		return nil
	}

	xm := make([]float64, p)
	for j := 0; j < p; j++ {
		xm[j] = stat.Mean(mat.Col(nil, j, X), nil)
	}
	xc := mat.NewDense(n, p, nil)
	xc.Apply(func(i, j int, v float64) float64 { return v - xm[j] }, X)
	yc := mat.NewDense(n, 1, nil)
	for i, v := range y {
		yc.Set(i, 0, v-ym)
	}

	var svd mat.SVD
	if ok := svd.Factorize(xc, mat.SVDThin); !ok {
		return errors.New("linear: svd factorization failed")
	}
	rank := svd.Rank(svdRcond)
	m.Rank = rank
	if rank == 0 {
		// every input is constant; the mean is the best fit
		return nil
	}

	var w mat.Dense
	svd.SolveTo(&w, yc, rank)
	for j := 0; j < p; j++ {
		m.Coef[j] = w.At(j, 0)
		m.Intercept -= xm[j] * m.Coef[j]
	}
	return nil
}

// Predict returns one prediction per row of X.
func (m *LinearRegression) Predict(X *mat.Dense) ([]float64, error) {
	n, p := X.Dims()
	if p != len(m.Coef) {
		return nil, fmt.Errorf("%w: linear model expects %d inputs, got %d", models.ErrSchemaMismatch, len(m.Coef), p)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := m.Intercept
		for j, c := range m.Coef {
			v += c * X.At(i, j)
		}
		out[i] = v
	}
	return out, nil
}
