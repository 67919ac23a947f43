package domain

import (
	"fmt"
	"image/color"
	"math"
)

// Raster is a decoded single-band scientific raster. Samples are stored
// row-major: sample i covers pixel (i%Width, i/Width). The decode layer
// normalizes whatever native numeric width the container format exposes
// (uint8 through float64) into this uniform representation.
type Raster struct {
	Width   int
	Height  int
	Samples []float64
}

// Validate checks the dimensional invariant len(Samples) == Width*Height.
func (r *Raster) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: non-positive raster dimensions %dx%d", ErrDecode, r.Width, r.Height)
	}
	if len(r.Samples) != r.Width*r.Height {
		return fmt.Errorf("%w: %d samples for %dx%d raster", ErrDecode, len(r.Samples), r.Width, r.Height)
	}
	return nil
}

// FluxRange holds the min/max over the valid (positive) sample population.
type FluxRange struct {
	Min float64
	Max float64
}

// FluxRange computes the normalization range in a single pass over the
// samples. Samples <= 0 are the no-data sentinel and are excluded. The
// fold is commutative, so sample order does not matter.
//
// A raster with no positive samples cannot be meaningfully color-mapped;
// that degenerate case returns ErrDecode so callers short-circuit before
// any division by max-min.
func (r *Raster) FluxRange() (FluxRange, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range r.Samples {
		if v <= 0 {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi < lo {
		return FluxRange{}, fmt.Errorf("%w: raster has no positive samples", ErrDecode)
	}
	return FluxRange{Min: lo, Max: hi}, nil
}

// FluxColor maps one flux sample onto the blue→yellow→red ramp.
//
// Samples <= 0 are no-data and return fully transparent black. Valid
// samples normalize against rng and interpolate across two segments:
// blue (0,0,255) to yellow (255,255,0) below the midpoint, yellow to
// red (255,0,0) above it. When rng collapses to a single value the
// normalized position is defined as 0, so the pixel renders blue.
func FluxColor(v float64, rng FluxRange) color.RGBA {
	if v <= 0 {
		return color.RGBA{}
	}

	var normalized float64
	if rng.Max > rng.Min {
		normalized = (v - rng.Min) / (rng.Max - rng.Min)
	}

	if normalized < 0.5 {
		t := normalized * 2
		return color.RGBA{
			R: uint8(math.Round(255 * t)),
			G: uint8(math.Round(255 * t)),
			B: uint8(math.Round(255 * (1 - t))),
			A: 255,
		}
	}

	t := (normalized - 0.5) * 2
	return color.RGBA{
		R: 255,
		G: uint8(math.Round(255 * (1 - t))),
		B: 0,
		A: 255,
	}
}
