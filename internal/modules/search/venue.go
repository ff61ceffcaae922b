package search

import (
	"context"
	"log/slog"
	"time"
)

// TravelEstimator gives ground travel time between two addresses.
type TravelEstimator interface {
	TravelEstimate(ctx context.Context, origin, destination string) (time.Duration, string, error)
}

// AnnotateVenueDistance adds venue_drive_minutes and venue_distance to the
// first limit hotels. Estimation failures leave a hotel unannotated.
func AnnotateVenueDistance(ctx context.Context, est TravelEstimator, hotels []Result, venue, city string, limit int, logger *slog.Logger) {
	if est == nil || venue == "" {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	for i, h := range hotels {
		if i >= limit {
			break
		}
		name, _ := h["name"].(string)
		if name == "" {
			continue
		}
		origin := name
		if city != "" {
			origin += ", " + city
		}
		d, dist, err := est.TravelEstimate(ctx, origin, venue)
		if err != nil {
			logger.Debug("venue distance unavailable", "hotel", name, "error", err)
			continue
		}
		h["venue_drive_minutes"] = int(d.Round(time.Minute) / time.Minute)
		h["venue_distance"] = dist
	}
}
