package ml

import (
	"fmt"
	"math"
	"math/rand"

	"PriceLens/internal/domain/models"
)

// TrainTestSplit shuffles 0..n-1 with seed and holds out ceil(testRatio*n)
// rows, keeping at least one row on each side.
func TrainTestSplit(n int, testRatio float64, seed int64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 rows, have %d", models.ErrNotEnoughRows, n)
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio must be in (0, 1), got %v", testRatio)
	}
	nTest := int(math.Ceil(testRatio*float64(n) - 1e-9))
	nTest = max(1, min(nTest, n-1))

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}
