package maps

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"googlemaps.github.io/maps"
)

const lookupTimeout = 5 * time.Second

var airportCodeRe = regexp.MustCompile(`\b([A-Z]{3})\b`)

// AirportGeocoder resolves a free-text place name to an airport code with a
// Places text search for "airport <name>". The code is read from the result
// name, e.g. "San Francisco International Airport (SFO)".
type AirportGeocoder struct {
	client *maps.Client
}

// NewAirportGeocoder creates a geocoder with the given API key. Extra client
// options (e.g. maps.WithBaseURL) are passed through.
func NewAirportGeocoder(apiKey string, opts ...maps.ClientOption) (*AirportGeocoder, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &AirportGeocoder{client: client}, nil
}

// LookupAirport returns the first code found in the result names, or "" when
// none carries one.
func (g *AirportGeocoder) LookupAirport(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	resp, err := g.client.TextSearch(ctx, &maps.TextSearchRequest{
		Query: "airport " + name,
	})
	if err != nil {
		return "", fmt.Errorf("places api error: %w", err)
	}
	for _, r := range resp.Results {
		if m := airportCodeRe.FindStringSubmatch(r.Name); m != nil {
			return m[1], nil
		}
	}
	return "", nil
}
