package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Every stage fails fast and
// wraps one of these so callers can map failures to transport status
// codes with errors.Is without string matching.
var (
	// ErrInvalidRequest marks a missing or malformed identifier, URL, or
	// lead submission.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrConfiguration marks a missing server credential. Surfaced to
	// clients as a generic server fault, never with detail.
	ErrConfiguration = errors.New("service misconfigured")

	// ErrDecode marks malformed raster bytes or a degenerate raster with
	// no positive samples.
	ErrDecode = errors.New("raster decode failed")

	// ErrAcquisition wraps a proxy-layer failure while fetching raster
	// bytes for a render.
	ErrAcquisition = errors.New("raster acquisition failed")

	// ErrInternal marks an unexpected fault.
	ErrInternal = errors.New("internal error")
)

// UpstreamError reports a non-success status from the solar API. The
// vendor response body is deliberately not carried: it may echo the
// request URL, which contains the API key.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("solar API returned status %d", e.Status)
}
