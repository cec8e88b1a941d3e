package dataset

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Blobs is a labeled synthetic point set.
type Blobs struct {
	Points [][]float64
	// Labels[i] is the index of the center Points[i] was drawn around.
	Labels []int
}

// MakeBlobs draws perCenter isotropic Gaussian samples with standard
// deviation std around each center. Output is deterministic for a seed.
func MakeBlobs(centers [][]float64, perCenter int, std float64, seed uint64) Blobs {
	noise := distuv.Normal{Mu: 0, Sigma: std, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}

	b := Blobs{
		Points: make([][]float64, 0, len(centers)*perCenter),
		Labels: make([]int, 0, len(centers)*perCenter),
	}
	for c, center := range centers {
		for range perCenter {
			p := make([]float64, len(center))
			for d := range p {
				p[d] = noise.Rand()
			}
			floats.Add(p, center)
			b.Points = append(b.Points, p)
			b.Labels = append(b.Labels, c)
		}
	}
	return b
}

// LineCenters places k centers spacing apart along the diagonal of a
// dims-dimensional space, starting at the origin.
func LineCenters(k, dims int, spacing float64) [][]float64 {
	centers := make([][]float64, k)
	for i := range centers {
		c := make([]float64, dims)
		for d := range c {
			c[d] = float64(i) * spacing
		}
		centers[i] = c
	}
	return centers
}
