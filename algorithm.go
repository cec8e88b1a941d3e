package optics

import "fmt"

// KDTreeValidMetric reports whether the metric supports KD-tree acceleration.
// KD-trees require metrics that decompose along coordinate axes:
// Euclidean, Manhattan, Chebyshev, Minkowski.
func KDTreeValidMetric(m DistanceMetric) bool {
	switch m.(type) {
	case EuclideanMetric, ManhattanMetric, ChebyshevMetric, MinkowskiMetric:
		return true
	default:
		return false
	}
}

// BallTreeValidMetric reports whether the metric supports Ball tree acceleration.
// Ball trees work with any metric that satisfies the triangle inequality.
func BallTreeValidMetric(m DistanceMetric) bool {
	switch m.(type) {
	case EuclideanMetric, ManhattanMetric, ChebyshevMetric, MinkowskiMetric:
		return true
	default:
		return false
	}
}

// selectIndex resolves IndexAuto into a concrete index choice based on the
// metric and data dimensionality, and validates that user-forced choices
// are compatible with the metric.
func selectIndex(cfg Config, dims int) (Index, error) {
	idx := cfg.Index

	if idx == IndexAuto {
		if !BallTreeValidMetric(cfg.Metric) {
			return IndexBrute, nil
		}
		if KDTreeValidMetric(cfg.Metric) && dims <= 60 {
			return IndexKDTree, nil
		}
		return IndexBallTree, nil
	}

	switch idx {
	case IndexKDTree:
		if !KDTreeValidMetric(cfg.Metric) {
			return "", fmt.Errorf("optics: metric %T is not supported by the KD-tree index: %w", cfg.Metric, ErrInvalidParameter)
		}
	case IndexBallTree:
		if !BallTreeValidMetric(cfg.Metric) {
			return "", fmt.Errorf("optics: metric %T is not supported by the ball tree index: %w", cfg.Metric, ErrInvalidParameter)
		}
	}

	return idx, nil
}

// newIndex builds the spatial index selected for cfg over flat row-major data.
func newIndex(cfg Config, flatData []float64, n, dims int) (SpatialIndex, Index, error) {
	idx, err := selectIndex(cfg, dims)
	if err != nil {
		return nil, "", err
	}
	switch idx {
	case IndexKDTree:
		return NewKDTree(flatData, n, dims, cfg.Metric, cfg.LeafSize), idx, nil
	case IndexBallTree:
		return NewBallTree(flatData, n, dims, cfg.Metric, cfg.LeafSize), idx, nil
	default:
		return NewBruteIndex(flatData, n, dims, cfg.Metric), idx, nil
	}
}
