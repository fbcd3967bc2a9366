package domain

import (
	"context"
	"log/slog"
)

// unspecificPlaces are gazetteer city/country values that cannot narrow a lookup.
var unspecificPlaces = map[string]bool{
	"":         true,
	"multiple": true,
	"various":  true,
	"unknown":  true,
}

// LocationGeocoder enriches extracted locations with coordinates.
type LocationGeocoder struct {
	geocoder Geocoder
	logger   *slog.Logger
}

// NewLocationGeocoder wraps a Geocoder for location enrichment.
func NewLocationGeocoder(geocoder Geocoder, logger *slog.Logger) *LocationGeocoder {
	return &LocationGeocoder{geocoder: geocoder, logger: logger}
}

// EnrichLocations geocodes each location in place order and returns a new slice.
func (g *LocationGeocoder) EnrichLocations(ctx context.Context, locations []Location) []Location {
	out := make([]Location, len(locations))
	for i, loc := range locations {
		out[i] = EnrichWithGeocoding(ctx, loc, g.geocoder, g.logger)
	}
	return out
}

// EnrichWithGeocoding attempts to attach coordinates to a location.
// If geocoder is nil or the location is too vague to look up, the location
// is returned unchanged; lookup failures set GeoSource (graceful degradation).
func EnrichWithGeocoding(ctx context.Context, loc Location, geocoder Geocoder, logger *slog.Logger) Location {
	if geocoder == nil || loc.Geo != nil {
		return loc
	}

	region := loc.City
	if unspecificPlaces[region] || region == loc.Name {
		region = loc.Country
	}
	if unspecificPlaces[region] || region == loc.Name {
		region = ""
	}
	if region == "" && loc.Type != "country" {
		return loc
	}

	result, err := geocoder.ForwardGeocode(ctx, loc.Name, region)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"location", loc.Name,
			"region", region,
			"error", err,
		)
		loc.GeoSource = "failed"
		return loc
	}
	if result.Lat == 0 && result.Lon == 0 {
		loc.GeoSource = "none"
		return loc
	}

	loc.Geo = &Geo{Lat: result.Lat, Lon: result.Lon}
	loc.FormattedAddress = result.FormattedAddress
	loc.GeoSource = "forward"
	return loc
}
