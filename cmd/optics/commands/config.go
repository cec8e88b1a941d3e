package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TrevorS/optics"
)

// FileConfig is the optional YAML configuration loaded with --config.
// Zero fields leave the flag values in place; explicitly set flags win
// over the file.
type FileConfig struct {
	// Columns is the inclusive CSV column range, e.g. "0:1".
	Columns string `yaml:"columns"`

	Eps        float64 `yaml:"eps"`
	MinSamples int     `yaml:"min_samples"`
	EpsScale   float64 `yaml:"eps_scale"`

	// Metric is one of euclidean, manhattan, chebyshev, minkowski, cosine.
	Metric     string  `yaml:"metric"`
	MinkowskiP float64 `yaml:"minkowski_p"`

	// Index is one of auto, ball_tree, kd_tree, brute.
	Index    string `yaml:"index"`
	LeafSize int    `yaml:"leaf_size"`
	Workers  int    `yaml:"workers"`

	Hierarchy HierarchyFileConfig `yaml:"hierarchy"`
}

// HierarchyFileConfig overrides cluster tree parameters. Fields left out
// of the file keep their defaults; an explicit 0 is kept.
type HierarchyFileConfig struct {
	SignificantMin      *float64 `yaml:"significant_min"`
	MaximaRatio         *float64 `yaml:"maxima_ratio"`
	RejectionRatio      *float64 `yaml:"rejection_ratio"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
	CheckRatio          *float64 `yaml:"check_ratio"`
	MinClusterSizeRatio *float64 `yaml:"min_cluster_size_ratio"`
	MinClusterSizeFloor *int     `yaml:"min_cluster_size_floor"`
	MinMaximaRatio      *float64 `yaml:"min_maxima_ratio"`
	MinNeighborhoodSize *int     `yaml:"min_neighborhood_size"`
	MinReachRatio       *float64 `yaml:"min_reach_ratio"`
}

// apply copies the fields present in the file onto cfg.
func (h HierarchyFileConfig) apply(cfg *optics.HierarchyConfig) {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&cfg.SignificantMin, h.SignificantMin)
	set(&cfg.MaximaRatio, h.MaximaRatio)
	set(&cfg.RejectionRatio, h.RejectionRatio)
	set(&cfg.SimilarityThreshold, h.SimilarityThreshold)
	set(&cfg.CheckRatio, h.CheckRatio)
	set(&cfg.MinClusterSizeRatio, h.MinClusterSizeRatio)
	set(&cfg.MinMaximaRatio, h.MinMaximaRatio)
	set(&cfg.MinReachRatio, h.MinReachRatio)
	if h.MinClusterSizeFloor != nil {
		cfg.MinClusterSizeFloor = *h.MinClusterSizeFloor
	}
	if h.MinNeighborhoodSize != nil {
		cfg.MinNeighborhoodSize = *h.MinNeighborhoodSize
	}
}

// loadFileConfig reads path; an empty path yields a zero config.
func loadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// runSettings is the merged file and flag configuration for one command.
type runSettings struct {
	columns   string
	cfg       optics.Config
	hierarchy optics.HierarchyConfig
}

// resolveSettings merges the config file under the command-line flags.
func resolveSettings(cmd *cobra.Command) (runSettings, error) {
	fc, err := loadFileConfig(cfgFile)
	if err != nil {
		return runSettings{}, err
	}
	flags := cmd.Flags()
	useFile := func(flag string, set bool) bool { return set && !flags.Changed(flag) }

	s := runSettings{columns: columns}
	if useFile("cols", fc.Columns != "") {
		s.columns = fc.Columns
	}

	cfg := optics.DefaultConfig()
	cfg.Eps, cfg.MinSamples, cfg.EpsScale = eps, minSamples, epsScale
	cfg.LeafSize, cfg.Workers = leafSize, workers
	cfg.Index = optics.Index(indexName)
	name, p := metricName, minkowskiP

	if useFile("eps", fc.Eps != 0) {
		cfg.Eps = fc.Eps
	}
	if useFile("min-samples", fc.MinSamples != 0) {
		cfg.MinSamples = fc.MinSamples
	}
	if useFile("eps-scale", fc.EpsScale != 0) {
		cfg.EpsScale = fc.EpsScale
	}
	if useFile("leaf-size", fc.LeafSize != 0) {
		cfg.LeafSize = fc.LeafSize
	}
	if useFile("workers", fc.Workers != 0) {
		cfg.Workers = fc.Workers
	}
	if useFile("index", fc.Index != "") {
		cfg.Index = optics.Index(fc.Index)
	}
	if useFile("metric", fc.Metric != "") {
		name = fc.Metric
	}
	if useFile("p", fc.MinkowskiP != 0) {
		p = fc.MinkowskiP
	}

	cfg.Metric, err = metricByName(name, p)
	if err != nil {
		return runSettings{}, err
	}
	cfg.Logger = slog.Default()
	s.cfg = cfg

	s.hierarchy = optics.DefaultHierarchyConfig()
	fc.Hierarchy.apply(&s.hierarchy)
	return s, nil
}

func metricByName(name string, p float64) (optics.DistanceMetric, error) {
	switch strings.ToLower(name) {
	case "euclidean", "l2":
		return optics.EuclideanMetric{}, nil
	case "manhattan", "l1", "cityblock":
		return optics.ManhattanMetric{}, nil
	case "chebyshev", "linf":
		return optics.ChebyshevMetric{}, nil
	case "minkowski":
		return optics.MinkowskiMetric{P: p}, nil
	case "cosine":
		return optics.CosineMetric{}, nil
	default:
		return nil, fmt.Errorf("unknown metric %q", name)
	}
}
