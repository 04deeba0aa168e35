// Package tzlookup resolves geographic coordinates to IANA timezone names.
package tzlookup

import (
	"errors"
	"fmt"

	"github.com/ringsaturn/tzf"
)

// ErrNoZone means the coordinates did not map to any known timezone.
var ErrNoZone = errors.New("no timezone for coordinates")

// Resolver maps a latitude/longitude pair to an IANA timezone identifier.
type Resolver interface {
	Resolve(lat, lon float64) (string, error)
}

// TZF resolves timezones offline from the embedded tzf polygon data.
type TZF struct {
	finder tzf.F
}

// New builds a TZF resolver. Loading the polygon data takes a moment, so
// construct one at startup and reuse it.
func New() (*TZF, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("init timezone finder: %w", err)
	}
	return &TZF{finder: finder}, nil
}

// Resolve returns the IANA zone containing the coordinate, or ErrNoZone.
func (t *TZF) Resolve(lat, lon float64) (string, error) {
	// tzf takes longitude first.
	name := t.finder.GetTimezoneName(lon, lat)
	if name == "" {
		return "", fmt.Errorf("%w: lat=%.4f lon=%.4f", ErrNoZone, lat, lon)
	}
	return name, nil
}
