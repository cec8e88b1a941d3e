package optics

import (
	"fmt"
	"math"
)

// ComputeCoreDistances counts the eps-neighborhood of every point in the
// index and, for points with at least minSamples neighbors, computes the
// core distance: the distance to the minSamples-th nearest neighbor.
//
// Neighbor counts include the point itself, and so does the KNN query, so
// a point is its own first neighbor at distance 0. Points below the
// threshold keep a core distance of +Inf, meaning they can never be core.
//
// Returns ErrInconsistentIndex if the index yields fewer than minSamples
// neighbors for a point it counted as having at least that many.
func ComputeCoreDistances(index SpatialIndex, eps float64, minSamples int) (counts []int, core []float64, err error) {
	n := index.NumPoints()
	counts = index.QueryRadiusCount(index.Data(), n, eps)
	core = make([]float64, n)
	if err := fillCoreDistances(index, counts, core, minSamples, 0, n); err != nil {
		return nil, nil, err
	}
	return counts, core, nil
}

// fillCoreDistances computes core[start:end] from precomputed counts.
func fillCoreDistances(index SpatialIndex, counts []int, core []float64, minSamples, start, end int) error {
	var eligible []int
	for i := start; i < end; i++ {
		core[i] = math.Inf(1)
		if counts[i] >= minSamples {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	dims := index.NumFeatures()
	query := make([]float64, 0, len(eligible)*dims)
	for _, i := range eligible {
		query = append(query, Row(index, i)...)
	}

	_, distances := index.QueryKNN(query, len(eligible), minSamples)
	for q, i := range eligible {
		if len(distances[q]) < minSamples {
			return fmt.Errorf("optics: point %d counted %d neighbors but KNN returned %d for k=%d: %w",
				i, counts[i], len(distances[q]), minSamples, ErrInconsistentIndex)
		}
		core[i] = distances[q][minSamples-1]
	}
	return nil
}
