package optics

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
)

const floatTol = 1e-10

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// treeMetrics are the metrics both trees accept.
var treeMetrics = []DistanceMetric{
	EuclideanMetric{},
	ManhattanMetric{},
	ChebyshevMetric{},
	MinkowskiMetric{P: 3},
}

// indexesFor builds every index kind that accepts the metric, with a small
// leaf size so queries descend through several levels.
func indexesFor(data []float64, n, dims int, metric DistanceMetric, leafSize int) map[string]SpatialIndex {
	out := map[string]SpatialIndex{"brute": NewBruteIndex(data, n, dims, metric)}
	if KDTreeValidMetric(metric) {
		out["kd_tree"] = NewKDTree(data, n, dims, metric, leafSize)
	}
	if BallTreeValidMetric(metric) {
		out["ball_tree"] = NewBallTree(data, n, dims, metric, leafSize)
	}
	return out
}

// naiveCoreDistances scans all pairs with metric.Distance.
func naiveCoreDistances(data []float64, n, dims int, metric DistanceMetric, eps float64, minSamples int) ([]int, []float64) {
	counts := make([]int, n)
	core := make([]float64, n)
	for i := 0; i < n; i++ {
		dists := make([]float64, n)
		for j := 0; j < n; j++ {
			dists[j] = metric.Distance(data[i*dims:(i+1)*dims], data[j*dims:(j+1)*dims])
			if dists[j] <= eps {
				counts[i]++
			}
		}
		core[i] = math.Inf(1)
		if counts[i] >= minSamples {
			slices.Sort(dists)
			core[i] = dists[minSamples-1]
		}
	}
	return counts, core
}

func randomData(seed uint64, n, dims int, scale float64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = rng.Float64() * scale
	}
	return data
}

func TestMetrics_RadiusCountsMatchNaiveScan(t *testing.T) {
	n, dims := 150, 3
	data := randomData(11, n, dims, 4)

	for _, metric := range treeMetrics {
		for name, idx := range indexesFor(data, n, dims, metric, 2) {
			t.Run(fmt.Sprintf("%T/%s", metric, name), func(t *testing.T) {
				for _, r := range []float64{0, 0.3, 1, 2.5} {
					counts := idx.QueryRadiusCount(data, n, r)
					for q := 0; q < n; q++ {
						want := bruteForceRadiusCount(data, n, dims, data[q*dims:(q+1)*dims], r, metric)
						if counts[q] != want {
							t.Fatalf("r=%v query=%d: count %d, naive scan %d", r, q, counts[q], want)
						}
					}
				}
			})
		}
	}
}

func TestMetrics_CoreDistancesMatchNaiveScan(t *testing.T) {
	n, dims := 120, 2
	data := randomData(23, n, dims, 3)
	const eps, minSamples = 0.6, 4

	for _, metric := range treeMetrics {
		wantCounts, wantCore := naiveCoreDistances(data, n, dims, metric, eps, minSamples)
		for name, idx := range indexesFor(data, n, dims, metric, 3) {
			t.Run(fmt.Sprintf("%T/%s", metric, name), func(t *testing.T) {
				counts, core, err := ComputeCoreDistances(idx, eps, minSamples)
				if err != nil {
					t.Fatal(err)
				}
				for i := 0; i < n; i++ {
					if counts[i] != wantCounts[i] {
						t.Errorf("counts[%d] = %d, want %d", i, counts[i], wantCounts[i])
					}
					if math.IsInf(wantCore[i], 1) != math.IsInf(core[i], 1) {
						t.Errorf("core[%d] = %v, want %v", i, core[i], wantCore[i])
						continue
					}
					if !math.IsInf(core[i], 1) && !almostEqual(core[i], wantCore[i], 1e-9) {
						t.Errorf("core[%d] = %v, want %v", i, core[i], wantCore[i])
					}
				}
			})
		}
	}
}

func TestCosineMetric_CoreDistancesOnBruteIndex(t *testing.T) {
	n, dims := 60, 3
	data := randomData(5, n, dims, 2)
	for i := range data {
		data[i]++
	}
	metric := CosineMetric{}
	wantCounts, wantCore := naiveCoreDistances(data, n, dims, metric, 0.05, 3)

	counts, core, err := ComputeCoreDistances(NewBruteIndex(data, n, dims, metric), 0.05, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if counts[i] != wantCounts[i] {
			t.Errorf("counts[%d] = %d, want %d", i, counts[i], wantCounts[i])
		}
		if core[i] != wantCore[i] && !almostEqual(core[i], wantCore[i], 1e-12) {
			t.Errorf("core[%d] = %v, want %v", i, core[i], wantCore[i])
		}
	}
}

// lattice returns the integer grid [0,side)^2 in row-major order.
func lattice(side int) []float64 {
	data := make([]float64, 0, side*side*2)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			data = append(data, float64(x), float64(y))
		}
	}
	return data
}

// latticeCount counts grid offsets within r using integer arithmetic, so
// points exactly r away are counted without rounding.
func latticeCount(side, qx, qy, r int, within func(dx, dy, r int) bool) int {
	count := 0
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			if within(abs(x-qx), abs(y-qy), r) {
				count++
			}
		}
	}
	return count
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Trees compare reduced distances against DistToRdist(r); on an integer grid
// many points sit exactly on the radius and every index must keep them.
func TestRadiusCount_PointsOnTheRadiusAreIncluded(t *testing.T) {
	const side = 6
	data := lattice(side)
	n := side * side

	tests := []struct {
		metric DistanceMetric
		within func(dx, dy, r int) bool
	}{
		{EuclideanMetric{}, func(dx, dy, r int) bool { return dx*dx+dy*dy <= r*r }},
		{ManhattanMetric{}, func(dx, dy, r int) bool { return dx+dy <= r }},
		{ChebyshevMetric{}, func(dx, dy, r int) bool { return max(dx, dy) <= r }},
		{MinkowskiMetric{P: 1}, func(dx, dy, r int) bool { return dx+dy <= r }},
	}
	for _, tt := range tests {
		for _, leafSize := range []int{1, 2, 4} {
			for name, idx := range indexesFor(data, n, 2, tt.metric, leafSize) {
				t.Run(fmt.Sprintf("%T/%s/leaf%d", tt.metric, name, leafSize), func(t *testing.T) {
					for _, r := range []int{1, 2, 3} {
						counts := idx.QueryRadiusCount(data, n, float64(r))
						for q := 0; q < n; q++ {
							want := latticeCount(side, q%side, q/side, r, tt.within)
							if counts[q] != want {
								t.Fatalf("r=%d query=(%d,%d): count %d, want %d", r, q%side, q/side, counts[q], want)
							}
						}
					}
				})
			}
		}
	}
}

// A node whose farthest corner lies exactly on the radius is counted whole
// without visiting its leaves.
func TestKDTree_RadiusCount_NodeBoundOnTheRadius(t *testing.T) {
	// Two tight groups; from the origin, the far corner of the second is (3,4).
	data := []float64{
		0, 0,
		0, 1,
		3, 3,
		3, 4,
		2, 4,
	}
	for _, metric := range []DistanceMetric{EuclideanMetric{}, MinkowskiMetric{P: 2}} {
		tree := NewKDTree(data, 5, 2, metric, 2)
		rr := metric.DistToRdist(5)
		if got := tree.maxRdistPoint(0, data[:2]); got != rr {
			t.Fatalf("%T: root max rdist = %v, want %v", metric, got, rr)
		}
		if got := tree.QueryRadiusCount(data[:2], 1, 5); got[0] != 5 {
			t.Errorf("%T: r=5 count = %d, want 5", metric, got[0])
		}
		if got := tree.QueryRadiusCount(data[:2], 1, math.Nextafter(5, 0)); got[0] != 4 {
			t.Errorf("%T: r just below 5 count = %d, want 4", metric, got[0])
		}
	}
}

func TestBallTree_RadiusCount_BallOnTheRadius(t *testing.T) {
	// From the origin the far points sit exactly at 3 and 5, and so do the
	// bounds of any ball holding both of them.
	data := []float64{
		0, 0,
		3, 0,
		5, 0,
	}
	tree := NewBallTree(data, 3, 2, EuclideanMetric{}, 1)
	for _, tc := range []struct {
		r    float64
		want int
	}{
		{2.9, 1},
		{3, 2},
		{4.9, 2},
		{5, 3},
	} {
		if got := tree.QueryRadiusCount(data[:2], 1, tc.r); got[0] != tc.want {
			t.Errorf("r=%v: count = %d, want %d", tc.r, got[0], tc.want)
		}
	}
}

func TestDistToRdist_MatchesReducedDistance(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{4, 6, 3}
	for _, m := range append(slices.Clone(treeMetrics), MinkowskiMetric{P: 1}) {
		d := m.Distance(a, b)
		want := m.ReducedDistance(a, b)
		if got := m.DistToRdist(d); !almostEqual(got, want, 1e-9) {
			t.Errorf("%T: DistToRdist(%v) = %v, ReducedDistance = %v", m, d, got, want)
		}
	}
}

func TestValidateConfig_MinkowskiP(t *testing.T) {
	tests := []struct {
		p     float64
		valid bool
	}{
		{0, false},
		{0.5, false},
		{-2, false},
		{math.NaN(), false},
		{1, true},
		{2, true},
		{3.5, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.p), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Metric = MinkowskiMetric{P: tt.p}
			err := validateConfig(&cfg)
			if tt.valid && err != nil {
				t.Fatalf("P=%v: unexpected error %v", tt.p, err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("P=%v: error = %v, want ErrInvalidParameter", tt.p, err)
			}
		})
	}
}

func TestDistanceFunc_RunsOnBruteIndex(t *testing.T) {
	metric := DistanceFunc(func(a, b []float64) float64 {
		return math.Abs(a[0] - b[0])
	})
	o, err := New(Config{Eps: 0.5, MinSamples: 2, Metric: metric})
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Fit([][]float64{{0}, {0.2}, {0.4}, {5}, {5.2}, {5.4}}); err != nil {
		t.Fatal(err)
	}
	res, err := o.Result()
	if err != nil {
		t.Fatal(err)
	}
	if res.Index != IndexBrute {
		t.Errorf("index = %q, want %q", res.Index, IndexBrute)
	}
	if res.NClusters != 2 {
		t.Errorf("clusters = %d, want 2", res.NClusters)
	}
}
