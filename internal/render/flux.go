// Package render paints decoded flux rasters onto RGBA surfaces.
package render

import (
	"image"

	"github.com/couchcryptid/solar-flux-service/internal/domain"
)

// Flux composes the heat-map surface for a raster. The surface matches
// the raster's native dimensions exactly, with no resampling, and pixel
// i is colored from sample i. The range fold and per-pixel mapping are
// both single passes with no per-sample allocation.
func Flux(r *domain.Raster) (*image.RGBA, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	rng, err := r.FluxRange()
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	pix := img.Pix
	for i, v := range r.Samples {
		c := domain.FluxColor(v, rng)
		idx := i * 4
		pix[idx] = c.R
		pix[idx+1] = c.G
		pix[idx+2] = c.B
		pix[idx+3] = c.A
	}
	return img, nil
}
