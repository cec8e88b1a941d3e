package optics

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractDBSCAN_HandScan(t *testing.T) {
	inf := math.Inf(1)
	// Ordering 0..5; two groups separated by an infinite reachability and a
	// non-core point in between.
	ordering := []int{0, 1, 2, 3, 4, 5}
	reach := []float64{inf, 0.2, 0.3, inf, inf, 0.1}
	core := []float64{0.2, 0.2, 0.4, inf, 0.1, 0.1}

	ex := ExtractDBSCAN(ordering, reach, core, 0.3)

	wantLabels := []int{1, 1, 1, Noise, 2, 2}
	if diff := cmp.Diff(wantLabels, ex.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	wantCore := []bool{true, true, false, false, true, true}
	if diff := cmp.Diff(wantCore, ex.IsCore); diff != "" {
		t.Errorf("core flags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1, 4, 5}, ex.CoreSampleIndices); diff != "" {
		t.Errorf("core samples mismatch (-want +got):\n%s", diff)
	}
	if ex.NClusters != 2 {
		t.Errorf("NClusters = %d, want 2", ex.NClusters)
	}
}

func TestExtractDBSCAN_LabelsFollowOrdering(t *testing.T) {
	inf := math.Inf(1)
	// Point 2 is visited first, so it gets cluster 1.
	ordering := []int{2, 0, 1}
	reach := []float64{0.1, inf, inf}
	core := []float64{0.1, 0.1, 0.1}

	ex := ExtractDBSCAN(ordering, reach, core, 0.5)

	if diff := cmp.Diff([]int{1, 2, 1}, ex.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractDBSCAN_AllNoise(t *testing.T) {
	inf := math.Inf(1)
	ex := ExtractDBSCAN([]int{0, 1}, []float64{inf, 0.5}, []float64{1, 1}, 0.5)

	// Point 1 is reachable at 0.5 but nothing started a cluster before it.
	if diff := cmp.Diff([]int{Noise, Noise}, ex.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if ex.NClusters != 0 {
		t.Errorf("NClusters = %d, want 0", ex.NClusters)
	}
	if len(ex.CoreSampleIndices) != 0 {
		t.Errorf("CoreSampleIndices = %v, want empty", ex.CoreSampleIndices)
	}
}

// fitFlat builds an ordering over random grouped data with a KD-tree.
func fitFlat(t *testing.T, n int, buildEps float64, minSamples int) (data []float64, ordering []int, reach, core []float64) {
	t.Helper()
	rng := rand.New(rand.NewPCG(31, 37))
	dims := 2
	data = make([]float64, n*dims)
	for i := 0; i < n; i++ {
		cx := float64(i%4) * 2.5
		data[i*dims] = cx + rng.NormFloat64()*0.5
		data[i*dims+1] = rng.NormFloat64() * 0.5
	}
	idx := NewKDTree(data, n, dims, EuclideanMetric{}, 8)
	counts, core, err := ComputeCoreDistances(idx, buildEps, minSamples)
	if err != nil {
		t.Fatalf("core distances: %v", err)
	}
	ordering, reach, err = BuildOrdering(idx, counts, core, buildEps)
	if err != nil {
		t.Fatalf("ordering: %v", err)
	}
	return data, ordering, reach, core
}

func TestExtractDBSCAN_Idempotent(t *testing.T) {
	_, ordering, reach, core := fitFlat(t, 300, 2.5, 5)

	a := ExtractDBSCAN(ordering, reach, core, 0.4)
	b := ExtractDBSCAN(ordering, reach, core, 0.4)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated extraction differs (-first +second):\n%s", diff)
	}
}

func TestExtractDBSCAN_CoreFlagsMatchNeighborCounts(t *testing.T) {
	n, minSamples := 300, 5
	data, ordering, reach, core := fitFlat(t, n, 2.5, minSamples)
	brute := NewBruteIndex(data, n, 2, EuclideanMetric{})

	for _, eps := range []float64{0.1, 0.25, 0.5, 1.0} {
		ex := ExtractDBSCAN(ordering, reach, core, eps)
		counts := brute.QueryRadiusCount(data, n, eps)
		for p := 0; p < n; p++ {
			if want := counts[p] >= minSamples; ex.IsCore[p] != want {
				t.Errorf("eps=%v: IsCore[%d] = %v, want %v (count %d)", eps, p, ex.IsCore[p], want, counts[p])
			}
		}
	}
}

func TestExtractDBSCAN_ConnectedCorePointsShareLabel(t *testing.T) {
	n := 300
	data, ordering, reach, core := fitFlat(t, n, 2.5, 5)
	metric := EuclideanMetric{}
	row := func(i int) []float64 { return data[i*2 : i*2+2] }

	for _, eps := range []float64{0.2, 0.4, 0.8} {
		ex := ExtractDBSCAN(ordering, reach, core, eps)
		for _, a := range ex.CoreSampleIndices {
			for _, b := range ex.CoreSampleIndices {
				if a >= b || metric.Distance(row(a), row(b)) > eps {
					continue
				}
				if ex.Labels[a] != ex.Labels[b] {
					t.Fatalf("eps=%v: core points %d and %d are %v apart but labeled %d and %d",
						eps, a, b, metric.Distance(row(a), row(b)), ex.Labels[a], ex.Labels[b])
				}
			}
		}
	}
}

func TestExtractDBSCAN_LargerThresholdCoarsens(t *testing.T) {
	_, ordering, reach, core := fitFlat(t, 300, 2.5, 5)

	thresholds := []float64{0.1, 0.2, 0.3, 0.5, 0.8, 1.5, 2.5}
	for i := 0; i+1 < len(thresholds); i++ {
		fine := ExtractDBSCAN(ordering, reach, core, thresholds[i])
		coarse := ExtractDBSCAN(ordering, reach, core, thresholds[i+1])

		// Every cluster at the smaller threshold lies inside a single cluster
		// at the larger one.
		mapping := make(map[int]int)
		for p, l := range fine.Labels {
			if l == Noise {
				continue
			}
			if coarse.Labels[p] == Noise {
				t.Fatalf("point %d clustered at %v but noise at %v", p, thresholds[i], thresholds[i+1])
			}
			if c, ok := mapping[l]; ok && c != coarse.Labels[p] {
				t.Fatalf("cluster %d at %v splits at %v", l, thresholds[i], thresholds[i+1])
			}
			mapping[l] = coarse.Labels[p]
		}
	}
}

func TestCheckExtractionEps(t *testing.T) {
	tests := []struct {
		name        string
		eps         float64
		wantErr     bool
		wantWarning bool
	}{
		{"zero", 0, false, false},
		{"at base eps", 1.0, false, false},
		{"at unstable bound", 1.05, false, false},
		{"above unstable bound", 1.2, false, true},
		{"at build eps", 5, false, true},
		{"above build eps", 5.01, true, false},
		{"negative", -0.1, true, false},
		{"NaN", math.NaN(), true, false},
		{"infinite", math.Inf(1), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warning, err := checkExtractionEps(tt.eps, 5, 1.05)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameter) {
					t.Fatalf("err = %v, want ErrInvalidParameter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := warning != nil; got != tt.wantWarning {
				t.Fatalf("warning = %v, want present=%v", warning, tt.wantWarning)
			}
			if warning != nil && !errors.Is(warning, ErrUnstableParameter) {
				t.Errorf("warning = %v, want ErrUnstableParameter", warning)
			}
		})
	}
}
