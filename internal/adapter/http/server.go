// Package http exposes the service over HTTP: the raster proxy, the
// flux image renderer, lead intake, and the health and metrics routes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/solar-flux-service/internal/domain"
	"github.com/couchcryptid/solar-flux-service/internal/flux"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// SolarAPI is the vendor client surface the transport layer uses.
type SolarAPI interface {
	FetchRaster(ctx context.Context, rasterID string) ([]byte, error)
	DataLayers(ctx context.Context, lat, lon, radiusMeters float64) (domain.DataLayers, error)
	CheckReadiness(ctx context.Context) error
}

// FluxRenderer runs the acquire-decode-colorize pipeline.
type FluxRenderer interface {
	Render(ctx context.Context, req flux.RenderRequest) (*flux.RenderResult, error)
}

// LeadService accepts homeowner submissions.
type LeadService interface {
	Submit(ctx context.Context, req domain.LeadRequest) (domain.Lead, domain.SavingsComparison, error)
}

// Server exposes the service routes plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	solar      SolarAPI
	renderer   FluxRenderer
	leads      LeadService
	logger     *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, solar SolarAPI, renderer FluxRenderer, leads LeadService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		solar:    solar,
		renderer: renderer,
		leads:    leads,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /getFluxData", s.handleGetFluxData)
	mux.HandleFunc("GET /fluxImage", s.handleFluxImage)
	mux.HandleFunc("GET /api/dataLayers", s.handleDataLayers)
	mux.HandleFunc("POST /api/leads", s.handleSubmitLead)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.solar.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleGetFluxData proxies raster bytes from the vendor so the browser
// never sees the API key. The payload passes through unmodified.
func (s *Server) handleGetFluxData(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id parameter is required")
		return
	}

	data, err := s.solar.FetchRaster(r.Context(), id)
	if err != nil {
		s.logger.Error("raster fetch failed", "raster_id", id, "error", err)

		var upstream *domain.UpstreamError
		switch {
		case errors.As(err, &upstream):
			writeError(w, upstream.Status, fmt.Sprintf("upstream returned status %d", upstream.Status))
		case errors.Is(err, domain.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "invalid raster id")
		default:
			// Configuration faults stay generic so nothing about the
			// credential setup reaches the client.
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "image/tiff")
	w.Header().Set("Content-Disposition", `attachment; filename="solar-flux-data.tiff"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleFluxImage renders a flux layer URL to a colorized PNG heatmap.
func (s *Server) handleFluxImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := s.renderer.Render(r.Context(), flux.RenderRequest{
		FluxURL:       q.Get("url"),
		ImageryDate:   q.Get("imageryDate"),
		ProcessedDate: q.Get("processedDate"),
		Quality:       q.Get("quality"),
	})
	if err != nil {
		s.logger.Error("flux render failed", "error", err)
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "invalid flux url")
		case errors.Is(err, domain.ErrAcquisition):
			writeError(w, http.StatusBadGateway, "raster acquisition failed")
		case errors.Is(err, domain.ErrDecode):
			writeError(w, http.StatusUnprocessableEntity, "raster decode failed")
		default:
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Imagery-Date", result.ImageryDate)
	w.Header().Set("X-Processed-Date", result.ProcessedDate)
	w.Header().Set("X-Quality", result.Quality)
	if err := png.Encode(w, result.Image); err != nil {
		s.logger.Error("png encode failed", "error", err)
	}
}

// handleDataLayers looks up the vendor layer listing for a location so
// the display layer can discover flux URLs and imagery metadata.
func (s *Server) handleDataLayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lon parameters are required")
		return
	}
	radius := 50.0
	if raw := q.Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "radius must be a positive number")
			return
		}
		radius = parsed
	}

	layers, err := s.solar.DataLayers(r.Context(), lat, lon, radius)
	if err != nil {
		s.logger.Error("data layers lookup failed", "error", err)

		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) {
			writeError(w, upstream.Status, fmt.Sprintf("upstream returned status %d", upstream.Status))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"annualFluxUrl":  layers.AnnualFluxURL,
		"monthlyFluxUrl": layers.MonthlyFluxURL,
		"maskUrl":        layers.MaskURL,
		"imageryDate":    layers.ImageryDate,
		"processedDate":  layers.ProcessedDate,
		"imageryQuality": layers.ImageryQuality,
	})
}

// handleSubmitLead accepts a homeowner form submission and returns the
// savings comparison for display.
func (s *Server) handleSubmitLead(w http.ResponseWriter, r *http.Request) {
	var req domain.LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	lead, comparison, err := s.leads.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("lead submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"lead":       lead,
		"comparison": comparison,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
