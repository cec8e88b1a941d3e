package optics

import (
	"container/heap"
	"fmt"
	"math"
)

// seed is a frontier entry: a reachable, unprocessed point and the
// reachability it had when it was pushed.
type seed struct {
	point int
	reach float64
}

// seedHeap is a min-heap of seeds ordered by reachability, then by point
// index so that equal reachabilities resolve deterministically.
//
// Entries are never updated in place. When a point's reachability drops a
// new entry is pushed and the old one goes stale; stale entries are skipped
// when popped.
type seedHeap []seed

func (h seedHeap) Len() int { return len(h) }
func (h seedHeap) Less(i, j int) bool {
	if h[i].reach == h[j].reach {
		return h[i].point < h[j].point
	}
	return h[i].reach < h[j].reach
}
func (h seedHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *seedHeap) Push(x interface{}) { *h = append(*h, x.(seed)) }
func (h *seedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// updateReachability relaxes the reachability of every unprocessed
// neighbor of a just-processed point:
//
//	reach[n] = min(reach[n], max(core[point], dist(point, n)))
//
// The neighborhood is the KNN query with k = counts[point], i.e. exactly the
// eps-neighborhood counted during core-distance computation. Points that
// are not core at the build threshold reach nothing.
func (b *orderingBuilder) updateReachability(point int) error {
	coreDist := b.core[point]
	if !(coreDist <= b.eps) {
		return nil
	}

	k := b.counts[point]
	indices, distances := b.index.QueryKNN(Row(b.index, point), 1, k)
	if len(indices[0]) < k {
		return fmt.Errorf("optics: point %d counted %d neighbors within eps but KNN returned %d: %w",
			point, k, len(indices[0]), ErrInconsistentIndex)
	}

	for j, nb := range indices[0] {
		if b.processed[nb] {
			continue
		}
		candidate := math.Max(coreDist, distances[0][j])
		if candidate < b.reach[nb] {
			b.reach[nb] = candidate
			heap.Push(&b.frontier, seed{point: nb, reach: candidate})
		}
	}
	return nil
}

// nextPoint pops the unprocessed frontier point with the smallest current
// reachability. ok is false when the frontier is exhausted.
func (b *orderingBuilder) nextPoint() (point int, ok bool) {
	for b.frontier.Len() > 0 {
		s := heap.Pop(&b.frontier).(seed)
		if b.processed[s.point] || s.reach != b.reach[s.point] {
			continue
		}
		return s.point, true
	}
	return 0, false
}
