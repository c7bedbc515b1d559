// Package cwa retrieves the weather bureau's town-forecast document and
// extracts the hourly rainfall probability for one district.
package cwa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tsaiiuo/traffic-agent/internal/domain"
	"github.com/tsaiiuo/traffic-agent/internal/observability"
)

// maxPoints caps the forecast at 24 hourly samples regardless of how many
// the bureau publishes.
const maxPoints = 24

const metricFeed = "weather"

// Client fetches rainfall-probability forecasts from the town-forecast feed.
type Client struct {
	feedURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a forecast client for the given feed URL.
func NewClient(feedURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchForecast retrieves the feed once and returns the district's hourly
// probability points in chronological order, at most 24 of them. It fails
// with domain.ErrFeedUnavailable on transport errors and domain.ErrFeedParse
// when the district is missing or the document malformed. No retries.
func (c *Client) FetchForecast(ctx context.Context, district string) ([]domain.ForecastPoint, error) {
	start := time.Now()
	points, err := c.fetch(ctx, district)
	c.metrics.FeedFetchDuration.WithLabelValues(metricFeed).Observe(time.Since(start).Seconds())
	c.metrics.FeedFetches.WithLabelValues(metricFeed, outcomeLabel(err)).Inc()
	return points, err
}

func (c *Client) fetch(ctx context.Context, district string) ([]domain.ForecastPoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast: %w: %w", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch forecast: %w: status %d", domain.ErrFeedUnavailable, resp.StatusCode)
	}

	var doc response
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode forecast: %w: %w", domain.ErrFeedParse, err)
	}

	for _, d := range doc.Districts {
		if d.Name == district {
			return toPoints(d.Hourly), nil
		}
	}
	return nil, fmt.Errorf("district %q not in forecast document: %w", district, domain.ErrFeedParse)
}

func toPoints(hourly []hourlyPoP) []domain.ForecastPoint {
	if len(hourly) > maxPoints {
		hourly = hourly[:maxPoints]
	}
	points := make([]domain.ForecastPoint, len(hourly))
	for i, h := range hourly {
		p := h.PoP
		// Out-of-range values are treated the same as absent ones.
		if p != nil && (*p < 0 || *p > 100) {
			p = nil
		}
		points[i] = domain.ForecastPoint{
			Hour:        i,
			Label:       h.Time,
			Probability: p,
		}
	}
	return points
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrFeedParse):
		return "parse_error"
	default:
		return "unavailable"
	}
}

// Town-forecast document types.

type response struct {
	Districts []district `json:"districts"`
}

type district struct {
	Name   string      `json:"name"`
	Hourly []hourlyPoP `json:"hourly"`
}

type hourlyPoP struct {
	Time string `json:"time"`
	PoP  *int   `json:"pop"` // percent; null when the bureau has no estimate
}
