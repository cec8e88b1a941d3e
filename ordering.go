package optics

import "math"

// orderingBuilder holds the mutable traversal state of one OPTICS build.
// It is single-use and not safe for concurrent use: every step reads the
// frontier left by the previous one.
type orderingBuilder struct {
	index  SpatialIndex
	eps    float64
	counts []int
	core   []float64

	processed []bool
	reach     []float64
	ordering  []int
	frontier  seedHeap
}

// BuildOrdering runs the OPTICS traversal over a prepared index. counts and
// core come from ComputeCoreDistances with the same eps.
//
// Every point is visited exactly once. Seeds are taken in index order; from
// each core seed the traversal repeatedly moves to the reachable unprocessed
// point with the smallest reachability. Reachability is +Inf for points
// that start a new expansion.
func BuildOrdering(index SpatialIndex, counts []int, core []float64, eps float64) (ordering []int, reachability []float64, err error) {
	n := index.NumPoints()
	b := &orderingBuilder{
		index:     index,
		eps:       eps,
		counts:    counts,
		core:      core,
		processed: make([]bool, n),
		reach:     make([]float64, n),
		ordering:  make([]int, 0, n),
	}
	for i := range b.reach {
		b.reach[i] = math.Inf(1)
	}

	for p := 0; p < n; p++ {
		if b.processed[p] {
			continue
		}
		if err := b.expand(p); err != nil {
			return nil, nil, err
		}
	}

	return b.ordering, b.reach, nil
}

// expand emits seed and everything density-reachable from it.
func (b *orderingBuilder) expand(point int) error {
	if !(b.core[point] <= b.eps) {
		// Cannot seed a neighborhood; recorded but not expanded.
		b.markProcessed(point)
		return nil
	}

	b.frontier = b.frontier[:0]
	for {
		b.markProcessed(point)
		if err := b.updateReachability(point); err != nil {
			return err
		}
		next, ok := b.nextPoint()
		if !ok {
			return nil
		}
		point = next
	}
}

func (b *orderingBuilder) markProcessed(point int) {
	b.processed[point] = true
	b.ordering = append(b.ordering, point)
}
