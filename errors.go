package optics

import "errors"

var (
	// ErrEmptySet is returned when Fit receives no points.
	ErrEmptySet = errors.New("optics: empty point set")

	// ErrDimensionMismatch is returned when points have differing lengths.
	ErrDimensionMismatch = errors.New("optics: points have inconsistent dimensionality")

	// ErrNotFitted is returned by extraction calls made before a successful Fit.
	ErrNotFitted = errors.New("optics: extraction requested before fit")

	// ErrInvalidParameter marks a configuration or threshold that cannot
	// produce a valid result, e.g. an extraction threshold above the
	// build-time bound.
	ErrInvalidParameter = errors.New("optics: invalid parameter")

	// ErrUnstableParameter is never returned as an error. It is attached to
	// Extraction.Warnings when the threshold is close enough to the build
	// bound that truncated reachabilities may change the result.
	ErrUnstableParameter = errors.New("optics: unstable parameter")

	// ErrInconsistentIndex means the spatial index returned fewer neighbors
	// than it previously counted for a point. The run is aborted.
	ErrInconsistentIndex = errors.New("optics: spatial index returned inconsistent neighbor counts")
)
