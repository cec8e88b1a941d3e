package optics

// BruteIndex answers neighborhood queries by scanning every point. It works
// with any metric, including ones that break the triangle inequality
// (cosine, custom DistanceFunc), at O(n) per query.
type BruteIndex struct {
	data   []float64
	n      int
	dims   int
	metric DistanceMetric
}

// NewBruteIndex wraps flat row-major data with n points of dimensionality dims.
func NewBruteIndex(data []float64, n, dims int, metric DistanceMetric) *BruteIndex {
	dataCopy := make([]float64, len(data))
	copy(dataCopy, data)
	return &BruteIndex{data: dataCopy, n: n, dims: dims, metric: metric}
}

func (b *BruteIndex) Data() []float64  { return b.data }
func (b *BruteIndex) NumPoints() int   { return b.n }
func (b *BruteIndex) NumFeatures() int { return b.dims }

// QueryRadiusCount counts, for each query row, the points within distance r.
func (b *BruteIndex) QueryRadiusCount(queryData []float64, queryRows int, r float64) []int {
	counts := make([]int, queryRows)
	for q := 0; q < queryRows; q++ {
		query := queryData[q*b.dims : (q+1)*b.dims]
		for i := 0; i < b.n; i++ {
			if b.metric.Distance(query, b.data[i*b.dims:(i+1)*b.dims]) <= r {
				counts[q]++
			}
		}
	}
	return counts
}

// QueryKNN finds the k nearest neighbors for each row in queryData.
func (b *BruteIndex) QueryKNN(queryData []float64, queryRows, k int) ([][]int, [][]float64) {
	indices := make([][]int, queryRows)
	distances := make([][]float64, queryRows)
	for q := 0; q < queryRows; q++ {
		query := queryData[q*b.dims : (q+1)*b.dims]
		h := &knnHeap{}
		if k > 0 {
			for i := 0; i < b.n; i++ {
				h.offer(knnItem{index: i, dist: b.metric.Distance(query, b.data[i*b.dims:(i+1)*b.dims])}, k)
			}
		}
		indices[q], distances[q] = h.drain()
	}
	return indices, distances
}
