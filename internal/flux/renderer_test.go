package flux

import (
	"context"
	"encoding/binary"
	"errors"
	"image/color"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/solar-flux-service/internal/domain"
	"github.com/couchcryptid/solar-flux-service/internal/observability"
)

type fakeFetcher struct {
	data   []byte
	err    error
	gotIDs []string
}

func (f *fakeFetcher) FetchRaster(_ context.Context, rasterID string) ([]byte, error) {
	f.gotIDs = append(f.gotIDs, rasterID)
	return f.data, f.err
}

func testRenderer(fetcher RasterFetcher) *Renderer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRenderer(fetcher, observability.NewMetricsForTesting(), logger)
}

// fluxTIFF builds a little-endian single-strip float32 TIFF holding the
// given samples.
func fluxTIFF(t *testing.T, width, height int, samples []float64) []byte {
	t.Helper()
	require.Len(t, samples, width*height)

	pix := make([]byte, 0, len(samples)*4)
	for _, v := range samples {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(v)))
		pix = append(pix, b[:]...)
	}

	const dataOffset = 8
	ifdOffset := dataOffset + len(pix)

	type entry struct {
		tag, typ uint16
		val      uint32
	}
	const typeShort, typeLong = uint16(3), uint16(4)
	entries := []entry{
		{256, typeLong, uint32(width)},    // ImageWidth
		{257, typeLong, uint32(height)},   // ImageLength
		{258, typeShort, 32},              // BitsPerSample
		{259, typeShort, 1},               // Compression: none
		{262, typeShort, 1},               // PhotometricInterpretation
		{273, typeLong, dataOffset},       // StripOffsets
		{277, typeShort, 1},               // SamplesPerPixel
		{278, typeLong, uint32(height)},   // RowsPerStrip
		{279, typeLong, uint32(len(pix))}, // StripByteCounts
		{339, typeShort, 3},               // SampleFormat: IEEE float
	}

	out := make([]byte, 8, ifdOffset+2+len(entries)*12+4)
	out[0], out[1] = 'I', 'I'
	binary.LittleEndian.PutUint16(out[2:4], 42)
	binary.LittleEndian.PutUint32(out[4:8], uint32(ifdOffset))
	out = append(out, pix...)

	var cnt [2]byte
	binary.LittleEndian.PutUint16(cnt[:], uint16(len(entries)))
	out = append(out, cnt[:]...)
	for _, e := range entries {
		var b [12]byte
		binary.LittleEndian.PutUint16(b[0:2], e.tag)
		binary.LittleEndian.PutUint16(b[2:4], e.typ)
		binary.LittleEndian.PutUint32(b[4:8], 1)
		if e.typ == typeShort {
			binary.LittleEndian.PutUint16(b[8:10], uint16(e.val))
		} else {
			binary.LittleEndian.PutUint32(b[8:12], e.val)
		}
		out = append(out, b[:]...)
	}
	out = append(out, 0, 0, 0, 0)
	return out
}

func TestRender_EndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{data: fluxTIFF(t, 2, 1, []float64{100, 300})}
	r := testRenderer(fetcher)

	result, err := r.Render(context.Background(), RenderRequest{
		FluxURL:       "https://solar.example.com/v1/geoTiff:get?id=flux-abc",
		ImageryDate:   "2025-06-12",
		ProcessedDate: "2025-08-01",
		Quality:       "HIGH",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"flux-abc"}, fetcher.gotIDs)
	assert.Equal(t, 2, result.Image.Bounds().Dx())
	assert.Equal(t, 1, result.Image.Bounds().Dy())
	// Range minimum maps to blue, maximum to red.
	assert.Equal(t, color.RGBA{B: 255, A: 255}, result.Image.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, result.Image.RGBAAt(1, 0))

	assert.Equal(t, "2025-06-12", result.ImageryDate)
	assert.Equal(t, "2025-08-01", result.ProcessedDate)
	assert.Equal(t, "HIGH", result.Quality)
}

func TestRender_MetadataDefaults(t *testing.T) {
	fetcher := &fakeFetcher{data: fluxTIFF(t, 1, 1, []float64{42})}
	r := testRenderer(fetcher)

	result, err := r.Render(context.Background(), RenderRequest{
		FluxURL: "https://solar.example.com/v1/geoTiff:get?id=flux-abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "N/A", result.ImageryDate)
	assert.Equal(t, "N/A", result.ProcessedDate)
	assert.Equal(t, "N/A", result.Quality)
}

func TestRender_URLValidation(t *testing.T) {
	tests := []struct {
		name    string
		fluxURL string
	}{
		{"empty URL", ""},
		{"no id parameter", "https://solar.example.com/v1/geoTiff:get"},
		{"malformed URL", "://not-a-url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{}
			r := testRenderer(fetcher)

			_, err := r.Render(context.Background(), RenderRequest{FluxURL: tt.fluxURL})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.Empty(t, fetcher.gotIDs, "fetcher must not be called for invalid input")
		})
	}
}

func TestRender_AcquisitionFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: &domain.UpstreamError{Status: 404}}
	r := testRenderer(fetcher)

	_, err := r.Render(context.Background(), RenderRequest{
		FluxURL: "https://solar.example.com/v1/geoTiff:get?id=flux-gone",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAcquisition)

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 404, upstream.Status)
}

func TestRender_DecodeFailure(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("not a tiff at all")}
	r := testRenderer(fetcher)

	_, err := r.Render(context.Background(), RenderRequest{
		FluxURL: "https://solar.example.com/v1/geoTiff:get?id=flux-bad",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.NotErrorIs(t, err, domain.ErrAcquisition)
}

func TestRender_GenerationsAndStaleness(t *testing.T) {
	fetcher := &fakeFetcher{data: fluxTIFF(t, 1, 1, []float64{42})}
	r := testRenderer(fetcher)

	first, err := r.Render(context.Background(), RenderRequest{
		FluxURL: "https://solar.example.com/v1/geoTiff:get?id=flux-1",
	})
	require.NoError(t, err)
	assert.False(t, r.Stale(first.Generation))

	second, err := r.Render(context.Background(), RenderRequest{
		FluxURL: "https://solar.example.com/v1/geoTiff:get?id=flux-2",
	})
	require.NoError(t, err)

	assert.Greater(t, second.Generation, first.Generation)
	assert.True(t, r.Stale(first.Generation), "older render is superseded by the newer one")
	assert.False(t, r.Stale(second.Generation))
}

func TestRender_FailedRenderStillAdvancesGeneration(t *testing.T) {
	fetcher := &fakeFetcher{data: fluxTIFF(t, 1, 1, []float64{42})}
	r := testRenderer(fetcher)

	first, err := r.Render(context.Background(), RenderRequest{
		FluxURL: "https://solar.example.com/v1/geoTiff:get?id=flux-1",
	})
	require.NoError(t, err)

	fetcher.err = errors.New("network down")
	_, err = r.Render(context.Background(), RenderRequest{
		FluxURL: "https://solar.example.com/v1/geoTiff:get?id=flux-2",
	})
	require.Error(t, err)

	assert.True(t, r.Stale(first.Generation), "a newer attempt supersedes older results even when it fails")
}
