package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves free-form street addresses to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeocodingResult, error)
}
