// Package pipeline assembles the conversational context block: both feeds
// fetched concurrently, incidents grouped by segment keyword, everything
// composed into one text block with a short-lived cache in front.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/tsaiiuo/traffic-agent/internal/domain"
	"github.com/tsaiiuo/traffic-agent/internal/observability"
)

// ForecastFetcher retrieves the district's hourly rainfall probabilities.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, district string) ([]domain.ForecastPoint, error)
}

// IncidentFetcher retrieves the configured road's live incidents.
type IncidentFetcher interface {
	FetchIncidents(ctx context.Context) ([]domain.Incident, error)
}

// SnapshotPublisher forwards freshly composed blocks to downstream consumers.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, block domain.ContextBlock) error
}

// Options carries the composition settings the builder threads through to
// grouping and rendering.
type Options struct {
	District      string
	Road          string
	Keywords      []string
	RainThreshold int
	MaxPerSegment int
	CacheTTL      time.Duration
}

// Builder produces context blocks on demand, reusing a cached block within
// the TTL so repeated initializations do not hammer the feeds.
type Builder struct {
	forecast  ForecastFetcher
	incidents IncidentFetcher
	publisher SnapshotPublisher // nil disables snapshot publishing
	opts      Options
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	mu          sync.Mutex
	cached      domain.ContextBlock
	cachedUntil time.Time
}

// New creates a Builder. publisher may be nil.
func New(forecast ForecastFetcher, incidents IncidentFetcher, publisher SnapshotPublisher,
	opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	return &Builder{
		forecast:  forecast,
		incidents: incidents,
		publisher: publisher,
		opts:      opts,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one context block has been built.
func (b *Builder) CheckReadiness(_ context.Context) error {
	if !b.ready.Load() {
		return errors.New("no context block built yet")
	}
	return nil
}

// Build returns the current context block, from cache when fresh. A feed
// failure degrades its section of the block rather than failing the build;
// Build errors only when the request context is cancelled. Concurrent calls
// serialize, so a burst of initializations fetches at most once.
func (b *Builder) Build(ctx context.Context) (domain.ContextBlock, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	if now.Before(b.cachedUntil) {
		b.metrics.ContextCache.WithLabelValues("hit").Inc()
		return b.cached, nil
	}
	b.metrics.ContextCache.WithLabelValues("miss").Inc()

	forecast, groups, forecastErr, incidentsErr := b.fetchBoth(ctx)
	if ctx.Err() != nil {
		return domain.ContextBlock{}, ctx.Err()
	}

	block := domain.Compose(domain.ComposeInput{
		GeneratedAt:   now,
		District:      b.opts.District,
		Road:          b.opts.Road,
		Forecast:      forecast,
		ForecastErr:   forecastErr,
		Groups:        groups,
		IncidentsErr:  incidentsErr,
		Keywords:      b.opts.Keywords,
		RainThreshold: b.opts.RainThreshold,
		MaxPerSegment: b.opts.MaxPerSegment,
	})

	result := "full"
	if forecastErr != nil || incidentsErr != nil {
		result = "degraded"
	}
	b.metrics.ContextBuilds.WithLabelValues(result).Inc()
	b.logger.Info("context block built", "result", result, "generated_at", block.GeneratedAt)

	b.cached = block
	b.cachedUntil = now.Add(b.opts.CacheTTL)
	b.ready.Store(true)

	b.publishSnapshot(ctx, block)
	return block, nil
}

// fetchBoth runs the two feed fetches concurrently. Each error is captured
// per feed; one failing or slow feed never blocks the other beyond its own
// HTTP timeout.
func (b *Builder) fetchBoth(ctx context.Context) ([]domain.ForecastPoint, map[string][]domain.Incident, error, error) {
	var (
		forecast     []domain.ForecastPoint
		incidents    []domain.Incident
		forecastErr  error
		incidentsErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		forecast, forecastErr = b.forecast.FetchForecast(ctx, b.opts.District)
		if forecastErr != nil {
			b.logger.Warn("forecast fetch failed", "error", forecastErr)
		}
		return nil
	})
	g.Go(func() error {
		incidents, incidentsErr = b.incidents.FetchIncidents(ctx)
		if incidentsErr != nil {
			b.logger.Warn("incident fetch failed", "error", incidentsErr)
		}
		return nil
	})
	g.Wait() //nolint:errcheck // goroutines always return nil

	var groups map[string][]domain.Incident
	if incidentsErr == nil {
		groups = domain.GroupBySegment(incidents, b.opts.Keywords)
	}
	return forecast, groups, forecastErr, incidentsErr
}

// publishSnapshot is best-effort: a broker outage must not fail /init.
func (b *Builder) publishSnapshot(ctx context.Context, block domain.ContextBlock) {
	if b.publisher == nil {
		return
	}
	if err := b.publisher.PublishSnapshot(ctx, block); err != nil {
		b.logger.Warn("snapshot publish failed", "error", err)
	}
}
