// README: Airport resolvers tried in order for each token window (code token → gazetteer → geocoder).
package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"tripdesk/internal/modules/gazetteer"
)

// Resolver turns a normalized phrase into a location code.
// A false second return means "absent", never an error.
type Resolver interface {
	Resolve(ctx context.Context, phrase string) (string, bool)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(ctx context.Context, phrase string) (string, bool)

func (f ResolverFunc) Resolve(ctx context.Context, phrase string) (string, bool) {
	return f(ctx, phrase)
}

// Chain tries each resolver in order and returns the first hit.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, phrase string) (string, bool) {
	for _, r := range c {
		if code, ok := r.Resolve(ctx, phrase); ok {
			return code, true
		}
	}
	return "", false
}

var codeTokenRe = regexp.MustCompile(`^[A-Z]{3}$`)

// CodeToken treats an already 3-letter upper-case token as a code without lookup.
// It also ends the chain for such tokens: a 3-letter word that is not an active
// code is dropped later rather than sent to slower resolvers.
var CodeToken = ResolverFunc(func(_ context.Context, phrase string) (string, bool) {
	if codeTokenRe.MatchString(phrase) {
		return phrase, true
	}
	return "", false
})

// Gazetteer resolves against the static city table.
var Gazetteer = ResolverFunc(func(_ context.Context, phrase string) (string, bool) {
	return gazetteer.LookupCity(phrase)
})

// Geocoder is the optional external lookup (e.g. Google Places).
type Geocoder interface {
	LookupAirport(ctx context.Context, name string) (string, error)
}

// GeocodingResolver consults a Geocoder for phrases that look like free-text
// city names. Failures are logged and reported as absent.
type GeocodingResolver struct {
	geocoder Geocoder
	logger   *slog.Logger
}

func NewGeocodingResolver(g Geocoder, logger *slog.Logger) *GeocodingResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeocodingResolver{geocoder: g, logger: logger}
}

func (r *GeocodingResolver) Resolve(ctx context.Context, phrase string) (string, bool) {
	if r == nil || r.geocoder == nil || !looksLikeCityName(phrase) {
		return "", false
	}
	code, err := r.geocoder.LookupAirport(ctx, phrase)
	if err != nil {
		r.logger.Debug("geocoding lookup failed", "phrase", phrase, "error", err)
		return "", false
	}
	if code == "" {
		return "", false
	}
	return code, true
}

// leadingStopwords cannot start a city name (prepositions, conjunctions).
var leadingStopwords = map[string]struct{}{
	"A": {}, "AL": {}, "DE": {}, "DEL": {}, "EN": {}, "CON": {}, "PARA": {}, "POR": {},
	"Y": {}, "O": {}, "TO": {}, "FROM": {}, "IN": {}, "ON": {}, "AT": {}, "AND": {}, "OR": {},
	"FOR": {}, "WITH": {}, "OF": {}, "THE": {},
}

// noiseWords are everyday request words that are never part of a city name.
var noiseWords = map[string]struct{}{
	"HOLA": {}, "GRACIAS": {}, "QUIERO": {}, "NECESITO": {}, "VIAJAR": {}, "VIAJE": {},
	"VUELO": {}, "VUELOS": {}, "BOLETO": {}, "BOLETOS": {}, "HOTEL": {}, "SOLO": {},
	"IDA": {}, "REGRESO": {}, "VUELTA": {}, "CLASE": {}, "ASIENTO": {}, "VENTANA": {},
	"PASILLO": {}, "PRESUPUESTO": {}, "PASAPORTE": {}, "VISA": {}, "HABITACION": {},
	"SALIDA": {}, "LLEGADA": {}, "FECHA": {}, "MI": {}, "ME": {}, "UN": {}, "UNA": {},
	"HELLO": {}, "HI": {}, "THANKS": {}, "WANT": {}, "NEED": {}, "FLIGHT": {}, "FLIGHTS": {},
	"TRIP": {}, "TRAVEL": {}, "ONE": {}, "WAY": {}, "RETURN": {}, "SEAT": {}, "WINDOW": {},
	"AISLE": {}, "BUDGET": {}, "PASSPORT": {}, "ROOM": {}, "MY": {}, "I": {}, "A": {},
	"DE": {}, "DEL": {}, "AL": {}, "EN": {}, "CON": {}, "TO": {}, "FROM": {}, "Y": {},
	"AND": {}, "PARA": {}, "POR": {}, "THE": {}, "OF": {},
}

// looksLikeCityName gates the geocoder: letters only, no noise words, no
// leading preposition, and long enough to be a real place name.
func looksLikeCityName(phrase string) bool {
	words := strings.Fields(phrase)
	if len(words) == 0 || len(strings.Join(words, "")) < 4 {
		return false
	}
	if _, ok := leadingStopwords[words[0]]; ok {
		return false
	}
	for i, w := range words {
		for _, r := range w {
			if r < 'A' || r > 'Z' {
				return false
			}
		}
		if _, ok := noiseWords[w]; ok {
			// Articles inside a name ("SAN LUIS DE LA PAZ") are fine.
			if i == 0 || i == len(words)-1 {
				return false
			}
		}
	}
	return true
}
