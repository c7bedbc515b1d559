// Package freeway retrieves and parses the highway bureau's News.xml
// incident feed.
package freeway

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/tsaiiuo/traffic-agent/internal/domain"
	"github.com/tsaiiuo/traffic-agent/internal/observability"
)

const metricFeed = "incidents"

// timeLayouts the feed has been observed to use for its timestamp fields.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
}

// Client fetches live incident entries for one configured road.
type Client struct {
	feedURL    string
	road       string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an incident-feed client. Entries whose Road differs from
// road are dropped at parse time.
func NewClient(feedURL, road string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		feedURL: feedURL,
		road:    road,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchIncidents retrieves the feed once and returns the configured road's
// incidents, deduplicated by event ID and ordered by effective time, newest
// first. A single malformed entry is skipped with a warning; only an
// unreadable document fails the whole fetch.
func (c *Client) FetchIncidents(ctx context.Context) ([]domain.Incident, error) {
	start := time.Now()
	incidents, err := c.fetch(ctx)
	c.metrics.FeedFetchDuration.WithLabelValues(metricFeed).Observe(time.Since(start).Seconds())
	c.metrics.FeedFetches.WithLabelValues(metricFeed, outcomeLabel(err)).Inc()
	return incidents, err
}

func (c *Client) fetch(ctx context.Context) ([]domain.Incident, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch incidents: %w: %w", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch incidents: %w: status %d", domain.ErrFeedUnavailable, resp.StatusCode)
	}

	return c.parse(resp.Body)
}

// parse walks the document entry by entry so one bad LiveEvent never
// discards the rest of the feed.
func (c *Client) parse(r io.Reader) ([]domain.Incident, error) {
	dec := xml.NewDecoder(r)
	var incidents []domain.Incident
	seen := make(map[string]bool)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse incidents: %w: %w", domain.ErrFeedParse, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "LiveEvent" {
			continue
		}

		var entry liveEvent
		if err := dec.DecodeElement(&entry, &start); err != nil {
			return nil, fmt.Errorf("parse incidents: %w: %w", domain.ErrFeedParse, err)
		}

		inc, err := entry.toIncident()
		if err != nil {
			c.logger.Warn("skipping malformed incident entry", "error", err, "event_id", entry.EventID)
			continue
		}
		if inc.Road != c.road {
			continue
		}
		if inc.ID != "" {
			if seen[inc.ID] {
				continue
			}
			seen[inc.ID] = true
		}
		incidents = append(incidents, inc)
	}

	// Newest first by effective time; undated entries keep feed order at
	// the tail.
	sort.SliceStable(incidents, func(i, j int) bool {
		a, b := incidents[i].EffectiveAt, incidents[j].EffectiveAt
		if b.IsZero() {
			return !a.IsZero()
		}
		if a.IsZero() {
			return false
		}
		return a.After(b)
	})

	return incidents, nil
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

// News.xml entry types.

type liveEvent struct {
	EventID        string `xml:"EventID"`
	EventTitle     string `xml:"EventTitle"`
	Description    string `xml:"Description"`
	EffectiveTime  string `xml:"EffectiveTime"`
	PublishTime    string `xml:"PublishTime"`
	LastUpdateTime string `xml:"LastUpdateTime"`
	Source         string `xml:"Source"`
	Location       struct {
		Highway struct {
			Road         string `xml:"Road"`
			Direction    string `xml:"Direction"`
			SectionStart string `xml:"SectionStart"`
			SectionEnd   string `xml:"SectionEnd"`
		} `xml:"FreeExpressHighway"`
	} `xml:"Location"`
	Impact struct {
		Description  string `xml:"Description"`
		Severity     string `xml:"Severity"`
		BlockedLanes string `xml:"BlockedLanes"`
	} `xml:"Impact"`
}

func (e liveEvent) toIncident() (domain.Incident, error) {
	if e.EventID == "" && e.EventTitle == "" {
		return domain.Incident{}, errors.New("entry has neither EventID nor EventTitle")
	}

	return domain.Incident{
		ID:           e.EventID,
		Title:        e.EventTitle,
		Description:  e.Description,
		Road:         e.Location.Highway.Road,
		Direction:    e.Location.Highway.Direction,
		SectionStart: e.Location.Highway.SectionStart,
		SectionEnd:   e.Location.Highway.SectionEnd,
		Impact: domain.Impact{
			Description:  e.Impact.Description,
			Severity:     e.Impact.Severity,
			BlockedLanes: e.Impact.BlockedLanes,
		},
		Source:      e.Source,
		EffectiveAt: parseFeedTime(e.EffectiveTime),
		PublishedAt: parseFeedTime(e.PublishTime),
		UpdatedAt:   parseFeedTime(e.LastUpdateTime),
	}, nil
}

// parseFeedTime is lenient: the bureau mixes timestamp layouts, and an
// unparseable time degrades to a zero value rather than dropping the entry.
func parseFeedTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
