package ml

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MSE is the mean squared error.
func MSE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	s := 0.0
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		s += d * d
	}
	return s / float64(len(yTrue))
}

func RMSE(yTrue, yPred []float64) float64 {
	return math.Sqrt(MSE(yTrue, yPred))
}

// MAE is the mean absolute error.
func MAE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	s := 0.0
	for i := range yTrue {
		s += math.Abs(yTrue[i] - yPred[i])
	}
	return s / float64(len(yTrue))
}

// R2 is the coefficient of determination. When the targets have no variance
// the score is undefined: it returns (0, false) instead of dividing by zero.
func R2(yTrue, yPred []float64) (float64, bool) {
	n := len(yTrue)
	if n == 0 {
		return 0, false
	}
	mean := stat.Mean(yTrue, nil)
	var ssRes, ssTot float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		ssRes += d * d
		t := yTrue[i] - mean
		ssTot += t * t
	}
	if ssTot <= 1e-12*float64(n)*math.Max(1, mean*mean) {
		return 0, false
	}
	return 1 - ssRes/ssTot, true
}
