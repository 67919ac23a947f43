// Package solarapi is the vendor solar API adapter: building insights,
// data-layer listings, and the credentialed raster fetch behind the
// flux proxy.
package solarapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/solar-flux-service/internal/domain"
	"github.com/couchcryptid/solar-flux-service/internal/observability"
)

// Client calls the vendor solar API with the server-held key.
type Client struct {
	key        string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a solar API client. The key is injected once here;
// an empty key makes every credentialed call fail with ErrConfiguration.
func NewClient(key, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		key: key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchRaster retrieves the raw GeoTIFF bytes for a raster identifier.
// The bytes are returned unmodified; no caching, no retries. Callers
// cancel in-flight fetches through ctx.
func (c *Client) FetchRaster(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		c.metrics.RasterFetches.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: missing raster id", domain.ErrInvalidRequest)
	}
	if c.key == "" {
		c.metrics.RasterFetches.WithLabelValues("config_error").Inc()
		return nil, fmt.Errorf("%w: solar API key is not set", domain.ErrConfiguration)
	}

	params := url.Values{
		"id":  {id},
		"key": {c.key},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geoTiff:get?"+params.Encode(), nil)
	if err != nil {
		c.metrics.RasterFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create raster request: %w", err)
	}
	req.Header.Set("Accept", "image/tiff")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RasterFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch raster: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.RasterFetchSeconds.Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain without logging the body: vendor errors echo the request
		// URL, which carries the key.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.metrics.RasterFetches.WithLabelValues("upstream_error").Inc()
		c.logger.Warn("raster fetch rejected upstream", "status", resp.StatusCode)
		return nil, &domain.UpstreamError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RasterFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read raster body: %w", err)
	}

	c.metrics.RasterFetches.WithLabelValues("success").Inc()
	c.metrics.RasterBytes.Observe(float64(len(body)))
	return body, nil
}

// BuildingInsights returns the solar potential for the building closest
// to the given coordinates.
func (c *Client) BuildingInsights(ctx context.Context, lat, lon float64) (domain.BuildingInsights, error) {
	if c.key == "" {
		return domain.BuildingInsights{}, fmt.Errorf("%w: solar API key is not set", domain.ErrConfiguration)
	}

	params := url.Values{
		"location.latitude":  {formatCoord(lat)},
		"location.longitude": {formatCoord(lon)},
		"requiredQuality":    {"LOW"},
		"key":                {c.key},
	}

	var resp buildingInsightsResponse
	if err := c.getJSON(ctx, "/buildingInsights:findClosest?"+params.Encode(), &resp); err != nil {
		return domain.BuildingInsights{}, err
	}
	return resp.toDomain(), nil
}

// DataLayers returns the raster artifact listing for a disc around the
// given coordinates, including the annual flux GeoTIFF URL the renderer
// consumes.
func (c *Client) DataLayers(ctx context.Context, lat, lon, radiusMeters float64) (domain.DataLayers, error) {
	if c.key == "" {
		return domain.DataLayers{}, fmt.Errorf("%w: solar API key is not set", domain.ErrConfiguration)
	}

	params := url.Values{
		"location.latitude":  {formatCoord(lat)},
		"location.longitude": {formatCoord(lon)},
		"radiusMeters":       {strconv.FormatFloat(radiusMeters, 'f', 1, 64)},
		"view":               {"FULL_LAYERS"},
		"requiredQuality":    {"LOW"},
		"key":                {c.key},
	}

	var resp dataLayersResponse
	if err := c.getJSON(ctx, "/dataLayers:get?"+params.Encode(), &resp); err != nil {
		return domain.DataLayers{}, err
	}
	return resp.toDomain(), nil
}

// CheckReadiness reports whether the client can make credentialed calls.
func (c *Client) CheckReadiness(_ context.Context) error {
	if c.key == "" {
		return fmt.Errorf("%w: solar API key is not set", domain.ErrConfiguration)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("solar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logger.Warn("solar API request rejected", "status", resp.StatusCode)
		return &domain.UpstreamError{Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Vendor API response types: the subset of fields this service reads.

type buildingInsightsResponse struct {
	Name           string `json:"name"`
	SolarPotential struct {
		MaxArrayPanelsCount  int     `json:"maxArrayPanelsCount"`
		MaxSunshineHoursYear float64 `json:"maxSunshineHoursPerYear"`
		CarbonOffsetKg       float64 `json:"carbonOffsetFactorKgPerMwh"`
		SolarPanelConfigs    []struct {
			PanelsCount       int     `json:"panelsCount"`
			YearlyEnergyDcKwh float64 `json:"yearlyEnergyDcKwh"`
		} `json:"solarPanelConfigs"`
		FinancialAnalyses []struct {
			MonthlyBill      money `json:"monthlyBill"`
			PanelConfigIndex int   `json:"panelConfigIndex"`
			CashPurchase     struct {
				OutOfPocketCost money   `json:"outOfPocketCost"`
				PaybackYears    float64 `json:"paybackYears"`
				Savings         struct {
					Savings20Years money `json:"savings20Years"`
				} `json:"savings"`
			} `json:"cashPurchaseSavings"`
		} `json:"financialAnalyses"`
	} `json:"solarPotential"`
}

func (r buildingInsightsResponse) toDomain() domain.BuildingInsights {
	sp := r.SolarPotential
	insights := domain.BuildingInsights{
		Name:             r.Name,
		MaxPanelCount:    sp.MaxArrayPanelsCount,
		MaxSunshineHours: sp.MaxSunshineHoursYear,
		CarbonOffsetKg:   sp.CarbonOffsetKg,
	}
	for _, fa := range sp.FinancialAnalyses {
		analysis := domain.FinancialAnalysis{
			MonthlyBill:   fa.MonthlyBill.amount(),
			UpfrontCost:   fa.CashPurchase.OutOfPocketCost.amount(),
			Savings20Year: fa.CashPurchase.Savings.Savings20Years.amount(),
			PaybackYears:  fa.CashPurchase.PaybackYears,
		}
		if i := fa.PanelConfigIndex; i >= 0 && i < len(sp.SolarPanelConfigs) {
			analysis.PanelCount = sp.SolarPanelConfigs[i].PanelsCount
			analysis.YearlyEnergyKwh = sp.SolarPanelConfigs[i].YearlyEnergyDcKwh
		}
		insights.Analyses = append(insights.Analyses, analysis)
	}
	return insights
}

// money is the vendor's currency type: whole units as a decimal string
// plus fractional nanos.
type money struct {
	Units string `json:"units"`
	Nanos int32  `json:"nanos"`
}

func (m money) amount() float64 {
	units, _ := strconv.ParseFloat(m.Units, 64)
	return units + float64(m.Nanos)/1e9
}

type apiDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (d apiDate) String() string {
	if d.Year == 0 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

type dataLayersResponse struct {
	ImageryDate          apiDate `json:"imageryDate"`
	ImageryProcessedDate apiDate `json:"imageryProcessedDate"`
	AnnualFluxURL        string  `json:"annualFluxUrl"`
	MonthlyFluxURL       string  `json:"monthlyFluxUrl"`
	MaskURL              string  `json:"maskUrl"`
	ImageryQuality       string  `json:"imageryQuality"`
}

func (r dataLayersResponse) toDomain() domain.DataLayers {
	return domain.DataLayers{
		AnnualFluxURL:  r.AnnualFluxURL,
		MonthlyFluxURL: r.MonthlyFluxURL,
		MaskURL:        r.MaskURL,
		ImageryDate:    r.ImageryDate.String(),
		ProcessedDate:  r.ImageryProcessedDate.String(),
		ImageryQuality: r.ImageryQuality,
	}
}
