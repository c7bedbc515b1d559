package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/tsaiiuo/traffic-agent/internal/adapter/cwa"
	"github.com/tsaiiuo/traffic-agent/internal/adapter/freeway"
	"github.com/tsaiiuo/traffic-agent/internal/adapter/gateway"
	"github.com/tsaiiuo/traffic-agent/internal/adapter/httpapi"
	kafkaadapter "github.com/tsaiiuo/traffic-agent/internal/adapter/kafka"
	"github.com/tsaiiuo/traffic-agent/internal/config"
	"github.com/tsaiiuo/traffic-agent/internal/observability"
	"github.com/tsaiiuo/traffic-agent/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	forecast := cwa.NewClient(cfg.WeatherFeedURL, cfg.FetchTimeout, metrics, logger)
	incidents := freeway.NewClient(cfg.IncidentFeedURL, cfg.RoadName, cfg.FetchTimeout, metrics, logger)

	// Snapshot publishing is feature-flagged via KAFKA_BROKERS / KAFKA_SNAPSHOT_TOPIC.
	var publisher pipeline.SnapshotPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.SnapshotEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaSnapshotTopic, metrics, logger)
		publisher = kafkaPublisher
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaSnapshotTopic)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	builder := pipeline.New(forecast, incidents, publisher, pipeline.Options{
		District:      cfg.District,
		Road:          cfg.RoadName,
		Keywords:      cfg.SegmentKeywords,
		RainThreshold: cfg.RainThreshold,
		MaxPerSegment: cfg.MaxIncidentsPerSegment,
		CacheTTL:      cfg.ContextCacheTTL,
	}, clockwork.NewRealClock(), logger, metrics)

	conversations, err := gateway.NewManager(gateway.Config{
		APIKey:       cfg.GatewayAPIKey,
		BaseURL:      cfg.GatewayBaseURL,
		Model:        cfg.GatewayModel,
		SystemPrompt: cfg.SystemPrompt,
	}, metrics, logger)
	if err != nil {
		logger.Error("failed to create conversation gateway", "error", err)
		os.Exit(1)
	}

	srv := httpapi.NewServer(cfg.HTTPAddr, builder, conversations, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
