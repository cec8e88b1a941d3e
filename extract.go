package optics

import (
	"fmt"
	"math"
)

// Noise is the label given to points that belong to no cluster.
const Noise = -1

// Extraction is the result of a flat, DBSCAN-equivalent extraction.
type Extraction struct {
	// Eps is the threshold the extraction was run at.
	Eps float64

	// Labels holds one cluster id per input point. Cluster ids start at 1;
	// Noise marks unclustered points.
	Labels []int

	// IsCore reports, per input point, whether it is a core point at Eps.
	IsCore []bool

	// CoreSampleIndices lists the core points in ascending index order.
	CoreSampleIndices []int

	// NClusters is the largest cluster id assigned (0 if everything is noise).
	NClusters int

	// Warnings carries non-fatal conditions, e.g. ErrUnstableParameter.
	Warnings []error
}

// ExtractDBSCAN assigns cluster ids with one left-to-right scan of the
// ordering. A point whose reachability exceeds eps starts a new cluster if
// it is core at eps and is noise otherwise. Every other point joins the
// current cluster, or stays noise if no cluster has started yet.
//
// The caller is responsible for checking that eps does not exceed the
// threshold the ordering was built with.
func ExtractDBSCAN(ordering []int, reachability, core []float64, eps float64) *Extraction {
	n := len(ordering)
	ex := &Extraction{
		Eps:    eps,
		Labels: make([]int, n),
		IsCore: make([]bool, n),
	}
	for i := range ex.Labels {
		ex.Labels[i] = Noise
	}

	clusterID := 0
	for _, p := range ordering {
		if reachability[p] > eps {
			if core[p] <= eps {
				clusterID++
				ex.Labels[p] = clusterID
				ex.IsCore[p] = true
			}
			continue
		}
		ex.IsCore[p] = core[p] <= eps
		if clusterID > 0 {
			ex.Labels[p] = clusterID
		}
	}

	ex.NClusters = clusterID
	ex.CoreSampleIndices = coreIndices(ex.IsCore)
	return ex
}

// checkExtractionEps validates an extraction threshold against the build
// bound. A threshold above unstableBound is accepted but reported through
// the returned warning.
func checkExtractionEps(eps, buildEps, unstableBound float64) (warning error, err error) {
	if math.IsNaN(eps) || eps < 0 {
		return nil, fmt.Errorf("optics: extraction eps must be non-negative, got %v: %w", eps, ErrInvalidParameter)
	}
	if eps > buildEps {
		return nil, fmt.Errorf("optics: extraction eps %v exceeds build eps %v: %w", eps, buildEps, ErrInvalidParameter)
	}
	if eps > unstableBound {
		return fmt.Errorf("optics: extraction eps %v is above %v, results may be unstable: %w",
			eps, unstableBound, ErrUnstableParameter), nil
	}
	return nil, nil
}
