package optics

import "container/heap"

// NodeData describes a single node in a spatial tree.
type NodeData struct {
	IdxStart, IdxEnd int
	IsLeaf           bool
	Radius           float64 // ball tree radius; 0 for KD-tree
}

// SpatialIndex answers the neighborhood queries OPTICS needs. It is built
// once per dataset and only read afterwards, so concurrent queries are safe.
//
// Both query shapes include the query point itself when it is part of the
// indexed data: a radius count counts it (distance 0 <= r) and a KNN result
// returns it first.
type SpatialIndex interface {
	// QueryRadiusCount returns, for each row in queryData, the number of
	// indexed points at distance <= r. queryData is flat row-major with
	// queryRows rows.
	QueryRadiusCount(queryData []float64, queryRows int, r float64) []int

	// QueryKNN finds the k nearest neighbors for each row in queryData.
	// Returns per-query neighbor indices and distances, both sorted by
	// ascending distance (ties broken by smaller index).
	QueryKNN(queryData []float64, queryRows, k int) (indices [][]int, distances [][]float64)

	// Data returns the flat row-major point data owned by the index.
	Data() []float64

	// NumPoints returns the number of points in the index.
	NumPoints() int

	// NumFeatures returns the dimensionality of each point.
	NumFeatures() int
}

// Row returns the coordinates of point i from an index's flat data.
func Row(idx SpatialIndex, i int) []float64 {
	d := idx.NumFeatures()
	return idx.Data()[i*d : (i+1)*d]
}

// --- max-heap for KNN queries ---

type knnItem struct {
	index int
	dist  float64
}

// farther reports whether a ranks after b in a KNN result.
func (a knnItem) farther(b knnItem) bool {
	if a.dist == b.dist {
		return a.index > b.index
	}
	return a.dist > b.dist
}

// knnHeap is a max-heap of knnItem (farthest on top) used as a bounded
// priority queue for KNN queries.
type knnHeap []knnItem

func (h knnHeap) Len() int            { return len(h) }
func (h knnHeap) Less(i, j int) bool  { return h[i].farther(h[j]) }
func (h knnHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *knnHeap) Push(x interface{}) { *h = append(*h, x.(knnItem)) }
func (h *knnHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// offer adds a candidate to a heap bounded at k entries.
func (h *knnHeap) offer(item knnItem, k int) {
	if h.Len() < k {
		heap.Push(h, item)
		return
	}
	if (*h)[0].farther(item) {
		(*h)[0] = item
		heap.Fix(h, 0)
	}
}

// drain empties the heap into index/distance slices sorted ascending.
func (h *knnHeap) drain() ([]int, []float64) {
	nResults := h.Len()
	idx := make([]int, nResults)
	dist := make([]float64, nResults)
	for i := nResults - 1; i >= 0; i-- {
		item := heap.Pop(h).(knnItem)
		idx[i] = item.index
		dist[i] = item.dist
	}
	return idx, dist
}
