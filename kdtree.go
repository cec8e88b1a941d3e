package optics

import (
	"math"
	"sort"
)

// KDTree is a KD-tree spatial index for radius and nearest-neighbor queries.
// Points are stored in a flat row-major array and reordered internally via
// an index permutation array.
//
// The tree is stored as a complete binary tree in array form:
//   - node i has children at 2*i+1 and 2*i+2
//   - node bounds are stored as min/max per dimension per node
type KDTree struct {
	data     []float64 // flat row-major point data (n * dims)
	n        int       // number of points
	dims     int       // dimensionality
	leafSize int
	metric   DistanceMetric
	idxArray []int      // permutation: tree-order position → original index
	nodes    []NodeData // one entry per tree node
	// nodeBoundsMin[node*dims + j] = min value of feature j in node
	nodeBoundsMin []float64
	// nodeBoundsMax[node*dims + j] = max value of feature j in node
	nodeBoundsMax []float64
	numNodes      int
}

// NewKDTree builds a KD-tree from flat row-major data with n points of
// dimensionality dims. leafSize controls the max points per leaf node.
// The metric must decompose along coordinate axes (see KDTreeValidMetric).
func NewKDTree(data []float64, n, dims int, metric DistanceMetric, leafSize int) *KDTree {
	if leafSize < 1 {
		leafSize = 1
	}

	dataCopy := make([]float64, len(data))
	copy(dataCopy, data)
	idxArray := make([]int, n)
	for i := range idxArray {
		idxArray[i] = i
	}

	maxNodes := maxTreeNodes(n, leafSize)
	t := &KDTree{
		data:          dataCopy,
		n:             n,
		dims:          dims,
		leafSize:      leafSize,
		metric:        metric,
		idxArray:      idxArray,
		nodes:         make([]NodeData, maxNodes),
		nodeBoundsMin: make([]float64, maxNodes*dims),
		nodeBoundsMax: make([]float64, maxNodes*dims),
	}

	if n > 0 {
		t.buildNode(0, 0, n)
		t.numNodes = countTreeNodes(t.nodes, 0)
	}

	return t
}

// buildNode recursively builds the tree for points in idxArray[start:end].
func (t *KDTree) buildNode(nodeID, start, end int) {
	for nodeID >= len(t.nodes) {
		t.nodes = append(t.nodes, NodeData{})
		t.nodeBoundsMin = append(t.nodeBoundsMin, make([]float64, t.dims)...)
		t.nodeBoundsMax = append(t.nodeBoundsMax, make([]float64, t.dims)...)
	}

	t.computeNodeBounds(nodeID, start, end)

	count := end - start
	if count <= t.leafSize {
		t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, IsLeaf: true}
		return
	}

	splitDim := 0
	maxSpread := -1.0
	base := nodeID * t.dims
	for d := 0; d < t.dims; d++ {
		if spread := t.nodeBoundsMax[base+d] - t.nodeBoundsMin[base+d]; spread > maxSpread {
			maxSpread = spread
			splitDim = d
		}
	}

	sub := t.idxArray[start:end]
	sort.Slice(sub, func(i, j int) bool {
		return t.data[sub[i]*t.dims+splitDim] < t.data[sub[j]*t.dims+splitDim]
	})
	mid := start + count/2

	t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, IsLeaf: false}

	t.buildNode(2*nodeID+1, start, mid)
	t.buildNode(2*nodeID+2, mid, end)
}

// computeNodeBounds computes min/max per dimension for points idxArray[start:end].
func (t *KDTree) computeNodeBounds(nodeID, start, end int) {
	base := nodeID * t.dims
	for d := 0; d < t.dims; d++ {
		t.nodeBoundsMin[base+d] = math.Inf(1)
		t.nodeBoundsMax[base+d] = math.Inf(-1)
	}
	for i := start; i < end; i++ {
		pt := t.point(t.idxArray[i])
		for d, v := range pt {
			t.nodeBoundsMin[base+d] = math.Min(t.nodeBoundsMin[base+d], v)
			t.nodeBoundsMax[base+d] = math.Max(t.nodeBoundsMax[base+d], v)
		}
	}
}

func (t *KDTree) point(i int) []float64 {
	return t.data[i*t.dims : (i+1)*t.dims]
}

// --- SpatialIndex interface ---

func (t *KDTree) Data() []float64           { return t.data }
func (t *KDTree) NumPoints() int            { return t.n }
func (t *KDTree) NumFeatures() int          { return t.dims }
func (t *KDTree) IdxArray() []int           { return t.idxArray }
func (t *KDTree) NodeDataArray() []NodeData { return t.nodes[:t.numNodes] }

// QueryRadiusCount counts, for each query row, the points within distance r.
func (t *KDTree) QueryRadiusCount(queryData []float64, queryRows int, r float64) []int {
	counts := make([]int, queryRows)
	if t.n == 0 {
		return counts
	}
	rr := t.metric.DistToRdist(r)
	for q := 0; q < queryRows; q++ {
		counts[q] = t.radiusCount(0, queryData[q*t.dims:(q+1)*t.dims], r, rr)
	}
	return counts
}

func (t *KDTree) radiusCount(nodeID int, query []float64, r, rr float64) int {
	if t.minRdistPoint(nodeID, query) > rr {
		return 0
	}
	if t.maxRdistPoint(nodeID, query) <= rr {
		return t.nodes[nodeID].IdxEnd - t.nodes[nodeID].IdxStart
	}

	node := t.nodes[nodeID]
	if node.IsLeaf {
		count := 0
		for i := node.IdxStart; i < node.IdxEnd; i++ {
			if t.metric.Distance(query, t.point(t.idxArray[i])) <= r {
				count++
			}
		}
		return count
	}
	return t.radiusCount(2*nodeID+1, query, r, rr) + t.radiusCount(2*nodeID+2, query, r, rr)
}

// QueryKNN finds the k nearest neighbors for each row in queryData.
func (t *KDTree) QueryKNN(queryData []float64, queryRows, k int) ([][]int, [][]float64) {
	indices := make([][]int, queryRows)
	distances := make([][]float64, queryRows)

	for q := 0; q < queryRows; q++ {
		h := &knnHeap{}
		if t.n > 0 && k > 0 {
			t.knnSearch(0, queryData[q*t.dims:(q+1)*t.dims], k, h)
		}
		indices[q], distances[q] = h.drain()
	}

	return indices, distances
}

// knnSearch performs a single-tree KNN traversal using a max-heap of size k.
func (t *KDTree) knnSearch(nodeID int, query []float64, k int, h *knnHeap) {
	node := t.nodes[nodeID]

	if node.IsLeaf {
		for i := node.IdxStart; i < node.IdxEnd; i++ {
			ptIdx := t.idxArray[i]
			h.offer(knnItem{index: ptIdx, dist: t.metric.Distance(query, t.point(ptIdx))}, k)
		}
		return
	}

	// Visit the nearer child first.
	left := 2*nodeID + 1
	right := 2*nodeID + 2
	leftRdist := t.minRdistPoint(left, query)
	rightRdist := t.minRdistPoint(right, query)

	nearChild, farChild := left, right
	farRdist := rightRdist
	if rightRdist < leftRdist {
		nearChild, farChild = right, left
		farRdist = leftRdist
	}

	t.knnSearch(nearChild, query, k, h)

	// Prune the far child only when its lower bound is strictly worse than
	// the current k-th distance; ties may still displace a larger index.
	if h.Len() < k || farRdist <= t.metric.DistToRdist((*h)[0].dist) {
		t.knnSearch(farChild, query, k, h)
	}
}

// minRdistPoint returns a lower bound in reduced-distance space on the
// distance between a point and any point in the given node.
func (t *KDTree) minRdistPoint(nodeID int, point []float64) float64 {
	base := nodeID * t.dims
	gaps := make([]float64, t.dims)
	for j := range gaps {
		lo := t.nodeBoundsMin[base+j]
		hi := t.nodeBoundsMax[base+j]
		switch {
		case point[j] < lo:
			gaps[j] = lo - point[j]
		case point[j] > hi:
			gaps[j] = point[j] - hi
		}
	}
	return t.aggregateRdist(gaps)
}

// maxRdistPoint returns an upper bound in reduced-distance space on the
// distance between a point and any point in the given node.
func (t *KDTree) maxRdistPoint(nodeID int, point []float64) float64 {
	base := nodeID * t.dims
	gaps := make([]float64, t.dims)
	for j := range gaps {
		gaps[j] = math.Max(math.Abs(point[j]-t.nodeBoundsMin[base+j]), math.Abs(t.nodeBoundsMax[base+j]-point[j]))
	}
	return t.aggregateRdist(gaps)
}

// aggregateRdist folds per-dimension gaps into reduced-distance space
// according to the metric.
func (t *KDTree) aggregateRdist(gaps []float64) float64 {
	p := metricP(t.metric)
	var rdist float64
	if math.IsInf(p, 1) {
		for _, g := range gaps {
			rdist = math.Max(rdist, g)
		}
		return rdist
	}
	for _, g := range gaps {
		rdist += math.Pow(g, p)
	}
	return rdist
}

// metricP returns the Minkowski exponent for the metric, defaulting to
// 2 for Euclidean and 1 for Manhattan.
func metricP(m DistanceMetric) float64 {
	switch v := m.(type) {
	case EuclideanMetric:
		return 2.0
	case ManhattanMetric:
		return 1.0
	case MinkowskiMetric:
		return v.P
	case ChebyshevMetric:
		return math.Inf(1)
	default:
		return 2.0
	}
}
