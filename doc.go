// Package optics implements OPTICS (Ordering Points To Identify the
// Clustering Structure), a density-based clustering algorithm.
//
// OPTICS visits every point once, always moving to the reachable point with
// the smallest reachability distance, and records the visitation order
// together with each point's reachability. The resulting reachability plot
// encodes the density structure for every threshold up to the build
// threshold at once: valleys are clusters and peaks separate them.
//
// Basic usage:
//
//	cfg := optics.DefaultConfig()
//	cfg.Eps = 0.3
//	cfg.MinSamples = 10
//	run, err := optics.New(cfg)
//	if err != nil { ... }
//	if err := run.Fit(data); err != nil { ... }
//	ex, err := run.Extract(0.2)
//	// ex.Labels[i] is the cluster ID for point i (-1 = noise)
//
// # Extraction
//
// The ordering is built once with the threshold Eps*EpsScale. Extract
// reproduces the DBSCAN partition for any threshold up to that bound
// without new neighbor queries; larger thresholds are rejected with
// ErrInvalidParameter. ExtractHierarchy instead splits the reachability
// plot at its significant local maxima and returns a cluster tree whose
// leaves are the clusters.
//
// # Spatial indexes
//
// Neighborhood queries go through the SpatialIndex interface. By default
// (Index: "auto") a KD-tree is used for axis-decomposable metrics, a ball
// tree for those in high dimensions, and a brute-force scan for metrics
// neither tree can prune, such as CosineMetric:
//
//	cfg.Index = optics.IndexBallTree // force a ball tree
//	cfg.Index = optics.IndexBrute    // exact scan, any metric
package optics
