package ml

import (
	"math"
	"math/rand"
	"sort"
)

const leaf = -1

// Node is one split or leaf of a regression tree, stored flat for gob.
type Node struct {
	Feature   int // leaf when -1
	Threshold float64
	Left      int32
	Right     int32
	Value     float64
}

// Tree is a CART regression tree; Nodes[0] is the root.
type Tree struct {
	Nodes []Node
}

func (t *Tree) predict(row []float64) float64 {
	i := int32(0)
	for {
		n := &t.Nodes[i]
		if n.Feature == leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the longest root-to-leaf path length.
func (t *Tree) Depth() int {
	var walk func(i int32) int
	walk = func(i int32) int {
		n := t.Nodes[i]
		if n.Feature == leaf {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

type treeBuilder struct {
	cols   [][]float64 // column-major inputs
	y      []float64
	params ForestParams
	rng    *rand.Rand
	nodes  []Node
}

// buildTree grows a tree on the rows in idx, minimizing squared error.
func buildTree(cols [][]float64, y []float64, idx []int, params ForestParams, rng *rand.Rand) Tree {
	b := &treeBuilder{cols: cols, y: y, params: params, rng: rng}
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int32 {
	id := int32(len(b.nodes))
	b.nodes = append(b.nodes, Node{Feature: leaf, Value: b.mean(idx)})

	if b.params.MaxDepth > 0 && depth >= b.params.MaxDepth {
		return id
	}
	if len(idx) < b.params.MinSamplesSplit || len(idx) < 2*b.params.MinSamplesLeaf || b.pure(idx) {
		return id
	}

	feat, thr, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	x := b.cols[feat]
	for _, r := range idx {
		if x[r] <= thr {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].Feature = feat
	b.nodes[id].Threshold = thr
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

func (b *treeBuilder) mean(idx []int) float64 {
	s := 0.0
	for _, r := range idx {
		s += b.y[r]
	}
	return s / float64(len(idx))
}

func (b *treeBuilder) pure(idx []int) bool {
	first := b.y[idx[0]]
	for _, r := range idx[1:] {
		if b.y[r] != first {
			return false
		}
	}
	return true
}

// candidates returns the features examined at one node.
func (b *treeBuilder) candidates() []int {
	p := len(b.cols)
	if b.params.MaxFeatures > 0 && b.params.MaxFeatures < p {
		return b.rng.Perm(p)[:b.params.MaxFeatures]
	}
	out := make([]int, p)
	for i := range out {
		out[i] = i
	}
	return out
}

func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	m := len(idx)
	var total, totalSq float64
	for _, r := range idx {
		total += b.y[r]
		totalSq += b.y[r] * b.y[r]
	}
	parent := totalSq - total*total/float64(m)
	bestSSE := parent - 1e-12*math.Max(1, math.Abs(parent))
	bestFeat, bestThr, found := 0, 0.0, false

	minLeaf := max(b.params.MinSamplesLeaf, 1)
	sorted := make([]int, m)
	for _, f := range b.candidates() {
		x := b.cols[f]
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool { return x[sorted[i]] < x[sorted[j]] })
		if x[sorted[0]] == x[sorted[m-1]] {
			continue
		}

		var ls, lsq float64
		for i := 0; i < m-1; i++ {
			v := b.y[sorted[i]]
			ls += v
			lsq += v * v
			a, c := x[sorted[i]], x[sorted[i+1]]
			if a == c {
				continue
			}
			nl, nr := i+1, m-i-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			rs, rsq := total-ls, totalSq-lsq
			sse := (lsq - ls*ls/float64(nl)) + (rsq - rs*rs/float64(nr))
			if sse < bestSSE {
				thr := a + (c-a)/2
				if thr >= c {
					thr = a
				}
				bestSSE, bestFeat, bestThr, found = sse, f, thr, true
			}
		}
	}
	return bestFeat, bestThr, found
}
