package ml

import (
	"fmt"

	"PriceLens/internal/domain/models"

	"gonum.org/v1/gonum/mat"
)

// Regressor is a model trained on preprocessed rows.
type Regressor interface {
	Name() models.ModelKind
	Fit(X *mat.Dense, y []float64) error
	Predict(X *mat.Dense) ([]float64, error)
}

// NewRegressor returns an unfitted model of the given kind. The result is
// also a valid decode target when loading a persisted model.
func NewRegressor(kind models.ModelKind, forest ForestParams) (Regressor, error) {
	switch kind {
	case models.ModelLinearRegression:
		return NewLinearRegression(), nil
	case models.ModelRandomForest:
		return NewRandomForest(forest), nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnknownModel, kind)
}
