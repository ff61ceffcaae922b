// README: Flight and hotel search endpoints.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/modules/extract"
	"tripdesk/internal/modules/search"
)

const annotatedHotels = 5

var airportCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Searcher is the SerpApi client surface used here.
type Searcher interface {
	Search(ctx context.Context, params map[string]string) (map[string]any, error)
	SearchFlights(ctx context.Context, origin, destination, date string) ([]search.Result, error)
	SearchHotels(ctx context.Context, city, checkIn, checkOut string) ([]search.Result, error)
}

type Extractor interface {
	Extract(ctx context.Context, text string) extract.Result
}

type SearchHandler struct {
	searcher  Searcher
	extractor Extractor
	estimator search.TravelEstimator
	logger    *slog.Logger
}

func NewSearchHandler(s Searcher, e Extractor, est search.TravelEstimator, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandler{searcher: s, extractor: e, estimator: est, logger: logger}
}

type flightsReq struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

type hotelsReq struct {
	City     string `json:"city"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Venue    string `json:"venue"`
}

type paramsReq struct {
	Text    string `json:"text"`
	Execute bool   `json:"execute"`
}

func validDate(s string) bool {
	_, err := time.Parse(extract.ISODate, s)
	return err == nil
}

// Flights handles POST /api/search/flights.
func (h *SearchHandler) Flights(c *gin.Context) {
	var req flightsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Origin = strings.ToUpper(strings.TrimSpace(req.Origin))
	req.Destination = strings.ToUpper(strings.TrimSpace(req.Destination))
	if !airportCode.MatchString(req.Origin) || !airportCode.MatchString(req.Destination) {
		writeError(c, http.StatusBadRequest, "origin and destination must be IATA codes")
		return
	}
	if !validDate(req.Date) {
		writeError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	results, err := h.searcher.SearchFlights(c.Request.Context(), req.Origin, req.Destination, req.Date)
	if err != nil {
		h.logger.Warn("flight search failed", "origin", req.Origin, "destination", req.Destination, "error", err)
		writeSearchError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"results": results})
}

// Hotels handles POST /api/search/hotels. When venue is given the first
// results carry drive time to it.
func (h *SearchHandler) Hotels(c *gin.Context) {
	var req hotelsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.City = strings.TrimSpace(req.City)
	if req.City == "" {
		writeError(c, http.StatusBadRequest, "missing city")
		return
	}
	if !validDate(req.CheckIn) || !validDate(req.CheckOut) || req.CheckOut < req.CheckIn {
		writeError(c, http.StatusBadRequest, "invalid check_in/check_out")
		return
	}

	results, err := h.searcher.SearchHotels(c.Request.Context(), req.City, req.CheckIn, req.CheckOut)
	if err != nil {
		h.logger.Warn("hotel search failed", "city", req.City, "error", err)
		writeSearchError(c, err)
		return
	}
	search.AnnotateVenueDistance(c.Request.Context(), h.estimator, results, strings.TrimSpace(req.Venue), req.City, annotatedHotels, h.logger)
	writeJSON(c, http.StatusOK, gin.H{"results": results})
}

// FlightParams handles POST /api/search/flights/params: it maps free text to
// google_flights parameters and optionally runs the query.
func (h *SearchHandler) FlightParams(c *gin.Context) {
	var req paramsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(c, http.StatusBadRequest, "missing text")
		return
	}

	r := h.extractor.Extract(c.Request.Context(), req.Text)
	params := search.BuildFlightParams(r, search.DefaultParamOptions)
	resp := gin.H{
		"params": params,
		"extraction": gin.H{
			"origin":      r.Origin,
			"destination": r.Destination,
			"outbound":    r.Dates.Outbound,
			"return":      r.Dates.Return,
			"one_way":     r.Dates.OneWay,
		},
	}
	if req.Execute {
		data, err := h.searcher.Search(c.Request.Context(), params)
		if err != nil {
			writeSearchError(c, err)
			return
		}
		resp["data"] = data
	}
	writeJSON(c, http.StatusOK, resp)
}
