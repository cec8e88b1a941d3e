package optics

import (
	"golang.org/x/sync/errgroup"
)

// ComputeCoreDistancesParallel is ComputeCoreDistances with the radius and
// KNN queries fanned out over numWorkers goroutines. Queries against the
// index are read-only and each worker writes a disjoint row range, so no
// locking is needed. Falls back to the sequential version if numWorkers <= 1.
//
// The first index inconsistency reported by any worker is returned and the
// partial results are discarded.
func ComputeCoreDistancesParallel(index SpatialIndex, eps float64, minSamples, numWorkers int) ([]int, []float64, error) {
	n := index.NumPoints()
	if numWorkers <= 1 || n <= 1 {
		return ComputeCoreDistances(index, eps, minSamples)
	}

	counts := make([]int, n)
	core := make([]float64, n)
	dims := index.NumFeatures()
	data := index.Data()

	var g errgroup.Group
	rowsPerWorker := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := min(startRow+rowsPerWorker, n)
		if startRow >= n {
			break
		}

		g.Go(func() error {
			rows := endRow - startRow
			copy(counts[startRow:endRow], index.QueryRadiusCount(data[startRow*dims:endRow*dims], rows, eps))
			return fillCoreDistances(index, counts, core, minSamples, startRow, endRow)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return counts, core, nil
}
