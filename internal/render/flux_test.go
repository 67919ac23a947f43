package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/solar-flux-service/internal/domain"
)

func TestFlux_TwoSampleScenario(t *testing.T) {
	// 2x1 raster [10, 30]: min maps to blue, max to red, both opaque.
	raster := &domain.Raster{Width: 2, Height: 1, Samples: []float64{10, 30}}

	img, err := Flux(raster)
	require.NoError(t, err)

	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 1, img.Bounds().Dy())
	assert.Equal(t, color.RGBA{R: 0, G: 0, B: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 0, B: 0, A: 255}, img.RGBAAt(1, 0))
}

func TestFlux_NoDataAndCollapsedRange(t *testing.T) {
	// 3x1 raster [-1, 20, 20]: pixel 0 transparent; the two valid
	// samples share one distinct value, so both render blue.
	raster := &domain.Raster{Width: 3, Height: 1, Samples: []float64{-1, 20, 20}}

	img, err := Flux(raster)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 0, G: 0, B: 255, A: 255}, img.RGBAAt(1, 0))
	assert.Equal(t, img.RGBAAt(1, 0), img.RGBAAt(2, 0))
}

func TestFlux_AlphaPartition(t *testing.T) {
	raster := &domain.Raster{
		Width:  3,
		Height: 2,
		Samples: []float64{
			-2, 0, 5,
			12, -0.1, 40,
		},
	}

	img, err := Flux(raster)
	require.NoError(t, err)

	for i, v := range raster.Samples {
		x, y := i%raster.Width, i/raster.Width
		a := img.RGBAAt(x, y).A
		if v > 0 {
			assert.EqualValues(t, 255, a, "sample %d should be opaque", i)
		} else {
			assert.EqualValues(t, 0, a, "sample %d should be transparent", i)
		}
	}
}

func TestFlux_RowMajorIndexing(t *testing.T) {
	// Max sample in the second row: its pixel, and only its pixel, is red.
	raster := &domain.Raster{Width: 2, Height: 2, Samples: []float64{1, 2, 3, 4}}

	img, err := Flux(raster)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 255, G: 0, B: 0, A: 255}, img.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{R: 0, G: 0, B: 255, A: 255}, img.RGBAAt(0, 0))
}

func TestFlux_DegenerateRaster(t *testing.T) {
	raster := &domain.Raster{Width: 2, Height: 1, Samples: []float64{0, -3}}

	_, err := Flux(raster)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestFlux_Idempotent(t *testing.T) {
	raster := &domain.Raster{Width: 2, Height: 2, Samples: []float64{0, 7, 13, 21}}

	first, err := Flux(raster)
	require.NoError(t, err)
	second, err := Flux(raster)
	require.NoError(t, err)

	assert.Equal(t, first.Pix, second.Pix, "re-rendering must be byte-identical")
}
