// README: Flight and hotel search through SerpApi, plus text-to-parameter mapping.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const DefaultBaseURL = "https://serpapi.com"

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("search: serpapi disabled")

// Result is one opaque search hit as returned by SerpApi.
type Result = map[string]any

// Client calls the SerpApi search endpoint.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
	logger  *slog.Logger
}

func NewClient(apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey == "" {
		logger.Warn("SERPAPI_KEY not set; search disabled")
	}
	return &Client{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Enabled reports whether searches will be attempted.
func (c *Client) Enabled() bool { return c != nil && c.APIKey != "" }

// Search runs one request with params and returns the decoded body.
func (c *Client) Search(ctx context.Context, params map[string]string) (map[string]any, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("api_key", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi: build request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("serpapi: read response: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("serpapi: unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if msg, ok := data["error"].(string); ok && msg != "" {
		return nil, fmt.Errorf("serpapi: api error: %s", msg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi: unexpected status %d", resp.StatusCode)
	}
	return data, nil
}

// SearchFlights looks up one-way options departing on date (YYYY-MM-DD).
func (c *Client) SearchFlights(ctx context.Context, origin, destination, date string) ([]Result, error) {
	data, err := c.Search(ctx, map[string]string{
		"engine":        "google_flights",
		"departure_id":  origin,
		"arrival_id":    destination,
		"outbound_date": date,
		"type":          tripOneWay,
		"bags":          "1",
	})
	if err != nil {
		return nil, err
	}
	return results(data, "flights_results", "best_flights", "other_flights"), nil
}

// SearchHotels looks up hotels in city for the given stay.
func (c *Client) SearchHotels(ctx context.Context, city, checkIn, checkOut string) ([]Result, error) {
	data, err := c.Search(ctx, map[string]string{
		"engine":         "google_hotels",
		"q":              city,
		"check_in_date":  checkIn,
		"check_out_date": checkOut,
	})
	if err != nil {
		return nil, err
	}
	return results(data, "hotels_results", "properties"), nil
}

// results concatenates the object lists found under keys, in order.
func results(data map[string]any, keys ...string) []Result {
	out := []Result{}
	for _, k := range keys {
		items, _ := data[k].([]any)
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}
