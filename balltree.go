package optics

import (
	"math"
	"sort"
)

// BallTree is a ball tree spatial index for radius and nearest-neighbor
// queries. Each node stores a centroid and radius defining the smallest
// enclosing ball for its points.
//
// The tree is stored as a complete binary tree in array form:
//   - node i has children at 2*i+1 and 2*i+2
//   - the ball bound lets radius counts take whole nodes without scanning
type BallTree struct {
	data     []float64 // flat row-major point data (n * dims)
	n        int       // number of points
	dims     int       // dimensionality
	leafSize int
	metric   DistanceMetric
	idxArray []int      // permutation: tree-order position → original index
	nodes    []NodeData // one entry per tree node; Radius is used
	// centroids[node*dims .. (node+1)*dims) = centroid of node
	centroids []float64
	numNodes  int
}

// NewBallTree builds a ball tree from flat row-major data with n points
// of dimensionality dims. leafSize controls the max points per leaf node.
func NewBallTree(data []float64, n, dims int, metric DistanceMetric, leafSize int) *BallTree {
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
	t := &BallTree{
		data:      dataCopy,
		n:         n,
		dims:      dims,
		leafSize:  leafSize,
		metric:    metric,
		idxArray:  idxArray,
		nodes:     make([]NodeData, maxNodes),
		centroids: make([]float64, maxNodes*dims),
	}

	if n > 0 {
		t.buildNode(0, 0, n)
		t.numNodes = countTreeNodes(t.nodes, 0)
	}

	return t
}

// buildNode recursively builds the ball tree for points in idxArray[start:end].
func (t *BallTree) buildNode(nodeID, start, end int) {
	for nodeID >= len(t.nodes) {
		t.nodes = append(t.nodes, NodeData{})
		t.centroids = append(t.centroids, make([]float64, t.dims)...)
	}

	t.computeCentroid(nodeID, start, end)

	centroid := t.centroid(nodeID)
	var radius float64
	for i := start; i < end; i++ {
		if d := t.metric.Distance(centroid, t.point(t.idxArray[i])); d > radius {
			radius = d
		}
	}

	count := end - start
	if count <= t.leafSize {
		t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, IsLeaf: true, Radius: radius}
		return
	}
	t.nodes[nodeID] = NodeData{IdxStart: start, IdxEnd: end, IsLeaf: false, Radius: radius}

	// Median split along the dimension with the greatest spread.
	splitDim := t.findSpreadDim(start, end)
	t.sortByDim(start, end, splitDim)
	mid := start + count/2

	t.buildNode(2*nodeID+1, start, mid)
	t.buildNode(2*nodeID+2, mid, end)
}

func (t *BallTree) point(i int) []float64 {
	return t.data[i*t.dims : (i+1)*t.dims]
}

func (t *BallTree) centroid(nodeID int) []float64 {
	return t.centroids[nodeID*t.dims : (nodeID+1)*t.dims]
}

// computeCentroid computes the mean of points idxArray[start:end] and stores
// it in the centroids array.
func (t *BallTree) computeCentroid(nodeID, start, end int) {
	c := t.centroid(nodeID)
	for d := range c {
		c[d] = 0
	}
	for i := start; i < end; i++ {
		pt := t.point(t.idxArray[i])
		for d := range c {
			c[d] += pt[d]
		}
	}
	count := float64(end - start)
	for d := range c {
		c[d] /= count
	}
}

// findSpreadDim returns the dimension with the greatest spread among
// points in idxArray[start:end].
func (t *BallTree) findSpreadDim(start, end int) int {
	bestDim := 0
	bestSpread := -1.0
	for d := 0; d < t.dims; d++ {
		minVal := math.Inf(1)
		maxVal := math.Inf(-1)
		for i := start; i < end; i++ {
			v := t.data[t.idxArray[i]*t.dims+d]
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
		if spread := maxVal - minVal; spread > bestSpread {
			bestSpread = spread
			bestDim = d
		}
	}
	return bestDim
}

// sortByDim sorts idxArray[start:end] by the given dimension.
func (t *BallTree) sortByDim(start, end, dim int) {
	sub := t.idxArray[start:end]
	dims := t.dims
	data := t.data
	sort.Slice(sub, func(i, j int) bool {
		return data[sub[i]*dims+dim] < data[sub[j]*dims+dim]
	})
}

// --- SpatialIndex interface ---

func (t *BallTree) Data() []float64           { return t.data }
func (t *BallTree) NumPoints() int            { return t.n }
func (t *BallTree) NumFeatures() int          { return t.dims }
func (t *BallTree) IdxArray() []int           { return t.idxArray }
func (t *BallTree) NodeDataArray() []NodeData { return t.nodes[:t.numNodes] }

// QueryRadiusCount counts, for each query row, the points within distance r.
func (t *BallTree) QueryRadiusCount(queryData []float64, queryRows int, r float64) []int {
	counts := make([]int, queryRows)
	if t.n == 0 {
		return counts
	}
	for q := 0; q < queryRows; q++ {
		counts[q] = t.radiusCount(0, queryData[q*t.dims:(q+1)*t.dims], r)
	}
	return counts
}

// ballBoundTol is the relative slack applied to ball bounds in radius counts.
const ballBoundTol = 1e-12

func (t *BallTree) radiusCount(nodeID int, query []float64, r float64) int {
	node := t.nodes[nodeID]
	centerDist := t.metric.Distance(query, t.centroid(nodeID))
	// Centroids are not exact, so both bounds give way by a few ulps and
	// points sitting on the radius are settled by the leaf scan.
	slack := ballBoundTol * (centerDist + node.Radius + r)

	// Ball entirely outside the query radius.
	if centerDist-node.Radius > r+slack {
		return 0
	}
	// Ball entirely inside the query radius.
	if centerDist+node.Radius <= r-slack {
		return node.IdxEnd - node.IdxStart
	}

	if node.IsLeaf {
		count := 0
		for i := node.IdxStart; i < node.IdxEnd; i++ {
			if t.metric.Distance(query, t.point(t.idxArray[i])) <= r {
				count++
			}
		}
		return count
	}
	return t.radiusCount(2*nodeID+1, query, r) + t.radiusCount(2*nodeID+2, query, r)
}

// QueryKNN finds the k nearest neighbors for each row in queryData.
func (t *BallTree) QueryKNN(queryData []float64, queryRows, k int) ([][]int, [][]float64) {
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

// knnSearch performs a single-tree KNN traversal for the ball tree.
func (t *BallTree) knnSearch(nodeID int, query []float64, k int, h *knnHeap) {
	node := t.nodes[nodeID]

	if node.IsLeaf {
		for i := node.IdxStart; i < node.IdxEnd; i++ {
			ptIdx := t.idxArray[i]
			h.offer(knnItem{index: ptIdx, dist: t.metric.Distance(query, t.point(ptIdx))}, k)
		}
		return
	}

	left := 2*nodeID + 1
	right := 2*nodeID + 2
	leftDist := t.minDistPoint(left, query)
	rightDist := t.minDistPoint(right, query)

	nearChild, farChild := left, right
	farDist := rightDist
	if rightDist < leftDist {
		nearChild, farChild = right, left
		farDist = leftDist
	}

	t.knnSearch(nearChild, query, k, h)

	// Equal distances still matter: a tied point with a smaller index wins.
	if h.Len() < k || farDist <= (*h)[0].dist {
		t.knnSearch(farChild, query, k, h)
	}
}

// minDistPoint returns a lower bound on the distance between a point and
// any point in the given node.
func (t *BallTree) minDistPoint(nodeID int, point []float64) float64 {
	return math.Max(0, t.metric.Distance(point, t.centroid(nodeID))-t.nodes[nodeID].Radius)
}

// maxTreeNodes returns an upper bound on the number of nodes needed for a
// binary tree with n points and the given leaf size.
func maxTreeNodes(n, leafSize int) int {
	if n == 0 {
		return 1
	}
	// Depth of tree: ceil(log2(ceil(n/leafSize))) + 1.
	// Number of nodes in a complete binary tree of depth d = 2^(d+1) - 1.
	leaves := (n + leafSize - 1) / leafSize
	depth := 0
	for v := 1; v < leaves; v *= 2 {
		depth++
	}
	return (1 << (depth + 1)) - 1 + 2 // +2 for safety margin
}

// countTreeNodes counts how many nodes were actually initialized by a build.
func countTreeNodes(nodes []NodeData, nodeID int) int {
	if nodeID >= len(nodes) {
		return 0
	}
	if nodes[nodeID].IdxStart == 0 && nodes[nodeID].IdxEnd == 0 && nodeID != 0 {
		return 0
	}
	count := 1
	if !nodes[nodeID].IsLeaf {
		count += countTreeNodes(nodes, 2*nodeID+1)
		count += countTreeNodes(nodes, 2*nodeID+2)
	}
	return count
}
