// Package flux turns a vendor flux-layer URL into a colorized heatmap
// image: extract the raster identifier, acquire the GeoTIFF through the
// proxy client, decode it, and colorize it with the flux ramp.
package flux

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/solar-flux-service/internal/domain"
	"github.com/couchcryptid/solar-flux-service/internal/geotiff"
	"github.com/couchcryptid/solar-flux-service/internal/observability"
	"github.com/couchcryptid/solar-flux-service/internal/render"
)

// RasterFetcher acquires raw GeoTIFF bytes for a raster identifier.
type RasterFetcher interface {
	FetchRaster(ctx context.Context, rasterID string) ([]byte, error)
}

// RenderRequest describes one render: the vendor flux URL carrying the
// raster identifier, plus display metadata forwarded alongside the image.
type RenderRequest struct {
	FluxURL       string
	ImageryDate   string
	ProcessedDate string
	Quality       string
}

// RenderResult is a completed render. Metadata fields are never empty;
// absent values are replaced with "N/A".
type RenderResult struct {
	Image         *image.RGBA
	Generation    uint64
	ImageryDate   string
	ProcessedDate string
	Quality       string
}

// Renderer runs the acquire-decode-colorize pipeline. Each render gets a
// monotonically increasing generation number so callers can detect
// results superseded by a newer request.
type Renderer struct {
	fetcher RasterFetcher
	logger  *slog.Logger
	metrics *observability.Metrics

	generation atomic.Uint64
}

// NewRenderer creates a renderer over the given raster source.
func NewRenderer(fetcher RasterFetcher, metrics *observability.Metrics, logger *slog.Logger) *Renderer {
	return &Renderer{
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
	}
}

// Render executes the full pipeline for one request.
func (r *Renderer) Render(ctx context.Context, req RenderRequest) (*RenderResult, error) {
	gen := r.generation.Add(1)
	start := time.Now()

	rasterID, err := extractRasterID(req.FluxURL)
	if err != nil {
		r.metrics.Renders.WithLabelValues("invalid_input").Inc()
		return nil, err
	}

	data, err := r.fetcher.FetchRaster(ctx, rasterID)
	if err != nil {
		r.metrics.Renders.WithLabelValues("acquisition_error").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrAcquisition, err)
	}

	raster, err := geotiff.Decode(data)
	if err != nil {
		r.metrics.Renders.WithLabelValues("decode_error").Inc()
		return nil, err
	}

	img, err := render.Flux(raster)
	if err != nil {
		r.metrics.Renders.WithLabelValues("decode_error").Inc()
		return nil, err
	}

	r.metrics.Renders.WithLabelValues("success").Inc()
	r.metrics.RenderSeconds.Observe(time.Since(start).Seconds())
	r.logger.Debug("render complete",
		"raster_id", rasterID,
		"width", raster.Width,
		"height", raster.Height,
		"generation", gen,
	)

	return &RenderResult{
		Image:         img,
		Generation:    gen,
		ImageryDate:   orNA(req.ImageryDate),
		ProcessedDate: orNA(req.ProcessedDate),
		Quality:       orNA(req.Quality),
	}, nil
}

// Stale reports whether a render generation has been superseded by a
// newer request. Stale results should be discarded, not displayed.
func (r *Renderer) Stale(generation uint64) bool {
	stale := generation < r.generation.Load()
	if stale {
		r.metrics.RendersSuperseded.Inc()
	}
	return stale
}

// extractRasterID pulls the raster identifier from a vendor flux URL's
// id query parameter.
func extractRasterID(fluxURL string) (string, error) {
	if fluxURL == "" {
		return "", fmt.Errorf("%w: flux URL is required", domain.ErrInvalidRequest)
	}
	u, err := url.Parse(fluxURL)
	if err != nil {
		return "", fmt.Errorf("%w: malformed flux URL", domain.ErrInvalidRequest)
	}
	id := u.Query().Get("id")
	if id == "" {
		return "", fmt.Errorf("%w: flux URL has no id parameter", domain.ErrInvalidRequest)
	}
	return id, nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
