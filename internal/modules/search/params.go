package search

import (
	"tripdesk/internal/modules/extract"
	"tripdesk/internal/modules/gazetteer"
)

const (
	tripRoundTrip = "1"
	tripOneWay    = "2"
)

// ParamOptions are the locale defaults for a flight query.
type ParamOptions struct {
	Language    string
	Country     string
	Currency    string
	TravelClass string
}

// DefaultParamOptions targets Spanish results for a Mexican point of sale.
var DefaultParamOptions = ParamOptions{Language: "es", Country: "mx", Currency: "USD", TravelClass: gazetteer.FareEconomy}

// BuildFlightParams maps an extraction of a free-text request onto google_flights
// parameters. Unlike slot merging, the suggested default date is used here so a
// query can always be issued. The api key is added by Client.Search.
func BuildFlightParams(r extract.Result, o ParamOptions) map[string]string {
	if o.Language == "" {
		o = DefaultParamOptions
	}
	p := map[string]string{
		"engine":       "google_flights",
		"hl":           o.Language,
		"gl":           o.Country,
		"currency":     o.Currency,
		"travel_class": o.TravelClass,
		"bags":         "1",
		"type":         tripRoundTrip,
	}
	if r.Origin != "" {
		p["departure_id"] = r.Origin
	}
	if r.Destination != "" {
		p["arrival_id"] = r.Destination
	}
	if r.Dates.Outbound != "" {
		p["outbound_date"] = r.Dates.Outbound
	}
	if r.Dates.Return != "" {
		p["return_date"] = r.Dates.Return
	} else {
		p["type"] = tripOneWay
	}
	if r.Preferences.AirlineCode != "" {
		p["include_airlines"] = r.Preferences.AirlineCode
	}
	if r.Preferences.FareClass != "" {
		p["travel_class"] = r.Preferences.FareClass
	}
	return p
}
