// Package geo resolves IP addresses to models.IPInsights.
package geo

import (
	"context"
	"errors"

	"github.com/BradenHooton/authtrail/internal/models"
)

// ErrDisabled is returned by the no-op locator so callers log a single reason
var ErrDisabled = errors.New("geolocation disabled")

// ErrInvalidIP is returned when the address cannot be parsed
var ErrInvalidIP = errors.New("invalid ip address")

// Locator looks up enrichment data for an IP address. Callers treat every error as
// "no enrichment".
type Locator interface {
	Lookup(ctx context.Context, ip string) (models.IPInsights, error)
}

// NoopLocator is used when no geolocation database is configured
type NoopLocator struct{}

func (NoopLocator) Lookup(ctx context.Context, ip string) (models.IPInsights, error) {
	return models.IPInsights{}, ErrDisabled
}
