// Package domain models residential solar lead data and flux rasters.
//
// # Data Source
//
// Solar potential data comes from the vendor solar API. A building's roof
// is analyzed from aerial imagery and exposed through two endpoints: the
// building-insights endpoint returns panel configurations and financial
// analyses for a range of monthly electricity bills, and the data-layers
// endpoint returns URLs for generated raster artifacts, including the
// annual flux GeoTIFF this service renders. Raster URLs embed an opaque
// identifier (the "id" query parameter); the raster bytes themselves are
// only retrievable with the server-held API key, which is why the service
// proxies them rather than handing the URL to the browser.
//
// # Flux Raster Conventions
//
// The annual flux raster is a single-band scientific image. Each sample
// is the yearly solar flux for one roof pixel in kWh/kW/year. Samples at
// or below zero are the no-data sentinel: pixels off the roof, or masked
// out by the vendor. They are excluded from range computation and render
// fully transparent. Non-finite samples (NaN, ±Inf) occasionally appear
// in vendor rasters and are coerced to the no-data sentinel at decode.
//
// The heat-map ramp is a fixed two-segment piecewise-linear gradient:
//
//	normalized < 0.5: blue (0,0,255) → yellow (255,255,0)
//	normalized ≥ 0.5: yellow (255,255,0) → red (255,0,0)
//
// where normalized = (v-min)/(max-min) over the valid sample population.
// The breakpoints and channel formulas are load-bearing for the rendered
// output and must not be replaced with a generic colormap. A raster whose
// valid samples are all equal normalizes to 0 (renders blue) rather than
// dividing by zero.
//
// # Savings Estimation
//
// When building insights are available, the financial analysis whose
// reference monthly bill is nearest the homeowner's bill is reshaped into
// a cash-purchase savings comparison. When they are not (no coverage, API
// failure, geocoding failure), a bill-based heuristic estimates instead:
// 90% usage offset, 4%/yr utility price escalation, 20-year horizon. The
// comparison records which path produced it in EstimateSource.
//
// # ID Generation
//
// Lead IDs are deterministic SHA-256 hashes of email|address. This makes
// downstream CRM upserts idempotent: resubmitting the same lead produces
// the same ID. See [generateLeadID].
package domain
