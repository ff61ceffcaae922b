package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"googlemaps.github.io/maps"
)

func newPlacesServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maps/api/place/textsearch/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "airport Monterrey" {
			t.Errorf("query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestAirportGeocoderReadsCodeFromName(t *testing.T) {
	srv := newPlacesServer(t, `{"status":"OK","results":[
		{"name":"Aeropuerto Internacional"},
		{"name":"Monterrey International Airport (MTY)"}
	]}`)
	defer srv.Close()

	g, err := NewAirportGeocoder("test-key", maps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	code, err := g.LookupAirport(context.Background(), "Monterrey")
	if err != nil || code != "MTY" {
		t.Fatalf("got (%q, %v), want MTY", code, err)
	}
}

func TestAirportGeocoderNoCode(t *testing.T) {
	srv := newPlacesServer(t, `{"status":"ZERO_RESULTS","results":[]}`)
	defer srv.Close()

	g, _ := NewAirportGeocoder("test-key", maps.WithBaseURL(srv.URL))
	code, err := g.LookupAirport(context.Background(), "Monterrey")
	if err != nil || code != "" {
		t.Fatalf("got (%q, %v), want empty", code, err)
	}
}

func TestAirportGeocoderAPIError(t *testing.T) {
	srv := newPlacesServer(t, `{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`)
	defer srv.Close()

	g, _ := NewAirportGeocoder("test-key", maps.WithBaseURL(srv.URL))
	if _, err := g.LookupAirport(context.Background(), "Monterrey"); err == nil {
		t.Fatal("expected error for REQUEST_DENIED")
	}
}
