package optics

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync"
)

// Index selects the spatial index used for neighborhood queries.
type Index string

const (
	IndexAuto     Index = "auto"
	IndexBallTree Index = "ball_tree"
	IndexKDTree   Index = "kd_tree"
	IndexBrute    Index = "brute"
)

// Config controls the OPTICS build.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Eps is the default extraction threshold, used for the flat extraction
	// run by Fit. Must be > 0. Default: 0.5.
	Eps float64

	// MinSamples is the number of points, the point itself included, that
	// must lie within the build threshold for a point to be core.
	// Must be >= 1. Default: 5.
	MinSamples int

	// EpsScale multiplies Eps into the build threshold. Extractions are
	// valid for any threshold up to Eps*EpsScale; larger values cost more
	// neighbor queries. Must be >= 1. Default: 5.
	EpsScale float64

	// Metric is the distance function used to measure point similarity.
	// Built-in: EuclideanMetric, ManhattanMetric, CosineMetric, ChebyshevMetric,
	// MinkowskiMetric. Use DistanceFunc to wrap a custom function.
	// Default: EuclideanMetric.
	Metric DistanceMetric

	// Index selects the spatial index. "auto" picks a KD-tree for
	// axis-decomposable metrics in up to 60 dimensions, a ball tree above
	// that, and brute force for metrics neither tree can prune.
	// Default: "auto".
	Index Index

	// LeafSize controls the maximum number of points in a spatial tree leaf node.
	// Only used with tree indexes. Default: 40.
	LeafSize int

	// Workers controls the number of goroutines used for core distances.
	// The ordering traversal itself is always sequential.
	// 0 means use runtime.NumCPU(). Default: 0 (auto).
	Workers int

	// UnstableRatio flags extractions above Eps*UnstableRatio as possibly
	// unstable. Must be > 0. Default: 1.05.
	UnstableRatio float64

	// Logger receives build and extraction diagnostics.
	// Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Eps:           0.5,
		MinSamples:    5,
		EpsScale:      5,
		Metric:        EuclideanMetric{},
		Index:         IndexAuto,
		LeafSize:      40,
		UnstableRatio: 1.05,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.EpsScale == 0 {
		cfg.EpsScale = 5
	}
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.Index == "" {
		cfg.Index = IndexAuto
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = 40
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.UnstableRatio == 0 {
		cfg.UnstableRatio = 1.05
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if !(cfg.Eps > 0) || math.IsInf(cfg.Eps, 0) {
		return fmt.Errorf("optics: Eps must be a finite value > 0, got %v: %w", cfg.Eps, ErrInvalidParameter)
	}
	if cfg.MinSamples < 1 {
		return fmt.Errorf("optics: MinSamples must be >= 1, got %d: %w", cfg.MinSamples, ErrInvalidParameter)
	}
	if !(cfg.EpsScale >= 1) || math.IsInf(cfg.EpsScale, 0) {
		return fmt.Errorf("optics: EpsScale must be a finite value >= 1, got %v: %w", cfg.EpsScale, ErrInvalidParameter)
	}
	if m, ok := cfg.Metric.(MinkowskiMetric); ok && !(m.P >= 1) {
		return fmt.Errorf("optics: Minkowski P must be >= 1, got %v: %w", m.P, ErrInvalidParameter)
	}
	switch cfg.Index {
	case IndexAuto, IndexBallTree, IndexKDTree, IndexBrute:
		// valid
	default:
		return fmt.Errorf("optics: invalid Index %q: %w", cfg.Index, ErrInvalidParameter)
	}
	if cfg.LeafSize < 1 {
		return fmt.Errorf("optics: LeafSize must be >= 1, got %d: %w", cfg.LeafSize, ErrInvalidParameter)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("optics: Workers must be >= 0, got %d: %w", cfg.Workers, ErrInvalidParameter)
	}
	if !(cfg.UnstableRatio > 0) {
		return fmt.Errorf("optics: UnstableRatio must be > 0, got %v: %w", cfg.UnstableRatio, ErrInvalidParameter)
	}
	return nil
}

// OPTICS is one clustering run: it owns the ordering built by Fit and the
// labels written by the most recent extraction. Methods are safe for
// concurrent use; extractions are serialized and the last one wins.
type OPTICS struct {
	mu     sync.Mutex
	cfg    Config
	logger *slog.Logger

	fitted   bool
	buildEps float64
	index    Index

	ordering []int
	reach    []float64
	core     []float64
	counts   []int

	labels    []int
	isCore    []bool
	nClusters int
}

// New validates cfg and returns an unfitted run.
func New(cfg Config) (*OPTICS, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &OPTICS{cfg: cfg, logger: cfg.Logger}, nil
}

// Config returns the effective configuration, defaults applied.
func (o *OPTICS) Config() Config { return o.cfg }

// BuildEps is the largest threshold extractions accept: Eps*EpsScale.
func (o *OPTICS) BuildEps() float64 { return o.cfg.Eps * o.cfg.EpsScale }

// Fit builds the ordering of data and runs a flat extraction at Eps.
// Each element is a point; all points must have the same dimensionality.
// A failed Fit leaves any previous build untouched.
func (o *OPTICS) Fit(data [][]float64) error {
	n := len(data)
	if n == 0 {
		return ErrEmptySet
	}
	dims := len(data[0])
	flatData := make([]float64, n*dims)
	for i, row := range data {
		if len(row) != dims {
			return fmt.Errorf("optics: point %d has %d dimensions, want %d: %w", i, len(row), dims, ErrDimensionMismatch)
		}
		copy(flatData[i*dims:], row)
	}

	buildEps := o.BuildEps()
	index, kind, err := newIndex(o.cfg, flatData, n, dims)
	if err != nil {
		return err
	}
	o.logger.Debug("optics: index built", "index", string(kind), "points", n, "dims", dims)

	counts, core, err := ComputeCoreDistancesParallel(index, buildEps, o.cfg.MinSamples, o.cfg.Workers)
	if err != nil {
		return err
	}
	o.logger.Debug("optics: core distances computed", "core_points", countFinite(core), "build_eps", buildEps)

	ordering, reach, err := BuildOrdering(index, counts, core, buildEps)
	if err != nil {
		return err
	}
	o.logger.Debug("optics: ordering built", "length", len(ordering))

	ex := ExtractDBSCAN(ordering, reach, core, o.cfg.Eps)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.fitted = true
	o.buildEps = buildEps
	o.index = kind
	o.ordering = ordering
	o.reach = reach
	o.core = core
	o.counts = counts
	o.setLabels(ex.Labels, ex.IsCore, ex.NClusters)
	return nil
}

// Extract runs a flat extraction at eps, which must not exceed BuildEps.
// The run's labels are replaced by the result.
func (o *OPTICS) Extract(eps float64) (*Extraction, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.fitted {
		return nil, ErrNotFitted
	}

	warning, err := checkExtractionEps(eps, o.buildEps, o.cfg.Eps*o.cfg.UnstableRatio)
	if err != nil {
		return nil, err
	}

	ex := ExtractDBSCAN(o.ordering, o.reach, o.core, eps)
	if warning != nil {
		ex.Warnings = append(ex.Warnings, warning)
		o.logger.Warn("optics: extraction threshold close to build bound, output may be unstable",
			"eps", eps, "build_eps", o.buildEps)
	}
	o.setLabels(ex.Labels, ex.IsCore, ex.NClusters)
	return ex, nil
}

// ExtractHierarchy segments the reachability plot into a cluster tree.
// The zero cfg selects DefaultHierarchyConfig. The run's labels are
// replaced by the per-leaf labels.
func (o *OPTICS) ExtractHierarchy(cfg HierarchyConfig) (*Hierarchy, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.fitted {
		return nil, ErrNotFitted
	}

	applyHierarchyDefaults(&cfg)
	if err := validateHierarchyConfig(&cfg); err != nil {
		return nil, err
	}

	rplot := make([]float64, len(o.ordering))
	for pos, p := range o.ordering {
		rplot[pos] = o.reach[p]
	}
	root := BuildClusterTree(rplot, cfg)
	labels, isCore, nClusters := hierarchyLabels(root, o.ordering, o.core, o.buildEps)
	o.logger.Debug("optics: cluster tree built", "leaves", nClusters, "depth", len(root.Levels()))

	o.setLabels(labels, isCore, nClusters)
	return &Hierarchy{
		Root:             root,
		ReachabilityPlot: rplot,
		Ordering:         slices.Clone(o.ordering),
		Labels:           slices.Clone(labels),
		IsCore:           slices.Clone(isCore),
		NClusters:        nClusters,
	}, nil
}

func (o *OPTICS) setLabels(labels []int, isCore []bool, nClusters int) {
	o.labels = slices.Clone(labels)
	o.isCore = slices.Clone(isCore)
	o.nClusters = nClusters
}

// Result is a read-only snapshot of a fitted run.
type Result struct {
	// Ordering lists point indices in visitation order.
	Ordering []int

	// Reachability is indexed by point; +Inf where a point started a new
	// expansion or was never reached.
	Reachability []float64

	// CoreDistances is indexed by point; +Inf where the point has fewer than
	// MinSamples neighbors within BuildEps.
	CoreDistances []float64

	// NeighborCounts is the number of points within BuildEps, self included.
	NeighborCounts []int

	// Labels and IsCore are from the most recent extraction.
	Labels            []int
	IsCore            []bool
	CoreSampleIndices []int
	NClusters         int

	// BuildEps is the threshold the ordering was built with.
	BuildEps float64

	// Index is the spatial index that was used.
	Index Index
}

// Result returns a copy of the run's arrays.
func (o *OPTICS) Result() (*Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.fitted {
		return nil, ErrNotFitted
	}
	return &Result{
		Ordering:          slices.Clone(o.ordering),
		Reachability:      slices.Clone(o.reach),
		CoreDistances:     slices.Clone(o.core),
		NeighborCounts:    slices.Clone(o.counts),
		Labels:            slices.Clone(o.labels),
		IsCore:            slices.Clone(o.isCore),
		CoreSampleIndices: coreIndices(o.isCore),
		NClusters:         o.nClusters,
		BuildEps:          o.buildEps,
		Index:             o.index,
	}, nil
}

// Fitted reports whether Fit has completed successfully.
func (o *OPTICS) Fitted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fitted
}

// Cluster fits data with cfg and returns the snapshot of the run.
func Cluster(data [][]float64, cfg Config) (*Result, error) {
	o, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := o.Fit(data); err != nil {
		return nil, err
	}
	return o.Result()
}

func coreIndices(isCore []bool) []int {
	var out []int
	for p, c := range isCore {
		if c {
			out = append(out, p)
		}
	}
	return out
}

func countFinite(xs []float64) int {
	var c int
	for _, x := range xs {
		if !math.IsInf(x, 0) {
			c++
		}
	}
	return c
}
