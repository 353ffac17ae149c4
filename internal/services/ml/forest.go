package ml

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime"

	"PriceLens/internal/domain/models"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// ForestParams configures RandomForest. Zero MaxDepth means unlimited and
// zero MaxFeatures means every feature is considered at each split.
type ForestParams struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Workers         int
	Seed            int64
}

// DefaultForestParams returns 200 bootstrapped trees seeded with 42.
func DefaultForestParams() ForestParams {
	return ForestParams{
		Trees:           200,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

// RandomForest averages bootstrapped regression trees. Tree i is grown from
// its own source seeded with Seed+i, so the result does not depend on
// scheduling.
type RandomForest struct {
	Params    ForestParams
	NFeatures int
	Trees     []Tree
}

func NewRandomForest(params ForestParams) *RandomForest {
	return &RandomForest{Params: params}
}

func (f *RandomForest) Name() models.ModelKind { return models.ModelRandomForest }

// Fit grows Params.Trees trees in parallel.
func (f *RandomForest) Fit(X *mat.Dense, y []float64) error {
	n, p := X.Dims()
	if n == 0 {
		return errors.New("randomforest: empty X")
	}
	if len(y) != n {
		return fmt.Errorf("randomforest: X has %d rows, y has %d", n, len(y))
	}
	params := f.Params
	if params.Trees <= 0 {
		return errors.New("randomforest: trees must be positive")
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	if params.MinSamplesLeaf < 1 {
		params.MinSamplesLeaf = 1
	}
	workers := params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	cols := make([][]float64, p)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}

	trees := make([]Tree, params.Trees)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(params.Seed + int64(i)))
			idx := make([]int, n)
			for j := range idx {
				idx[j] = rng.Intn(n)
			}
			trees[i] = buildTree(cols, y, idx, params, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.Params = params
	f.NFeatures = p
	f.Trees = trees
	return nil
}

// Predict averages the tree outputs for every row of X.
func (f *RandomForest) Predict(X *mat.Dense) ([]float64, error) {
	n, p := X.Dims()
	if len(f.Trees) == 0 {
		return nil, errors.New("randomforest: model is not fitted")
	}
	if p != f.NFeatures {
		return nil, fmt.Errorf("%w: forest expects %d inputs, got %d", models.ErrSchemaMismatch, f.NFeatures, p)
	}
	out := make([]float64, n)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		s := 0.0
		for t := range f.Trees {
			s += f.Trees[t].predict(row)
		}
		out[i] = s / float64(len(f.Trees))
	}
	return out, nil
}
