package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default segment keywords: the named interchanges and sections of the
// Tainan-Kaohsiung stretch of National Freeway 1 the assistant reports on.
var defaultSegmentKeywords = []string{
	"仁德",
	"仁德服務區",
	"仁德系統",
	"路竹",
	"高科",
	"岡山",
	"楠梓(北)",
	"楠梓(南)",
}

const defaultSystemPrompt = "你是台南到高雄的道路通行管理員。根據提供的背景資料（各路段近期事件新聞與楠梓區未來24小時降雨機率）" +
	"回答使用者關於當下與未來路況的問題：路況屬於壅塞還是暢通、有沒有施工、改道、車禍等需要提醒的新聞，" +
	"以及降雨對通行的可能影響。資料不足時請明確說明，不要臆測。"

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Feed retrieval.
	WeatherFeedURL  string
	IncidentFeedURL string
	District        string
	RoadName        string
	FetchTimeout    time.Duration

	// Grouping and composition.
	SegmentKeywords        []string
	RainThreshold          int // percent, 0 disables the threshold filter
	MaxIncidentsPerSegment int
	ContextCacheTTL        time.Duration

	// HTTP surface.
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Conversation gateway.
	GatewayAPIKey  string
	GatewayBaseURL string
	GatewayModel   string
	SystemPrompt   string

	// Context-snapshot publishing. Enabled only when both brokers and
	// topic are configured.
	KafkaBrokers       []string
	KafkaSnapshotTopic string
	SnapshotEnabled    bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CONTEXT_CACHE_TTL", "2m")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	rainThreshold, err := parseIntInRange("RAIN_ALERT_THRESHOLD", 50, 0, 100)
	if err != nil {
		return nil, err
	}
	maxPerSegment, err := parseIntInRange("MAX_INCIDENTS_PER_SEGMENT", 8, 0, 1000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		WeatherFeedURL:  os.Getenv("WEATHER_FEED_URL"),
		IncidentFeedURL: envOrDefault("INCIDENT_FEED_URL", "https://tisvcloud.freeway.gov.tw/history/motc20/News.xml"),
		District:        envOrDefault("DISTRICT", "楠梓區"),
		RoadName:        envOrDefault("ROAD_NAME", "國道一號"),
		FetchTimeout:    fetchTimeout,

		SegmentKeywords:        parseList(os.Getenv("SEGMENT_KEYWORDS"), defaultSegmentKeywords),
		RainThreshold:          rainThreshold,
		MaxIncidentsPerSegment: maxPerSegment,
		ContextCacheTTL:        cacheTTL,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GatewayAPIKey:  os.Getenv("GATEWAY_API_KEY"),
		GatewayBaseURL: os.Getenv("GATEWAY_BASE_URL"),
		GatewayModel:   envOrDefault("GATEWAY_MODEL", "gpt-4o-mini"),
		SystemPrompt:   envOrDefault("SYSTEM_PROMPT", defaultSystemPrompt),

		KafkaBrokers:       parseList(os.Getenv("KAFKA_BROKERS"), nil),
		KafkaSnapshotTopic: os.Getenv("KAFKA_SNAPSHOT_TOPIC"),
	}
	cfg.SnapshotEnabled = len(cfg.KafkaBrokers) > 0 && cfg.KafkaSnapshotTopic != ""

	if cfg.WeatherFeedURL == "" {
		return nil, errors.New("WEATHER_FEED_URL is required")
	}
	if cfg.IncidentFeedURL == "" {
		return nil, errors.New("INCIDENT_FEED_URL is required")
	}
	if cfg.GatewayAPIKey == "" {
		return nil, errors.New("GATEWAY_API_KEY is required")
	}
	if len(cfg.SegmentKeywords) == 0 {
		return nil, errors.New("SEGMENT_KEYWORDS must name at least one segment")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSnapshotTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_SNAPSHOT_TOPIC is not")
	}
	if cfg.KafkaSnapshotTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is set but KAFKA_BROKERS is not")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseIntInRange(key string, def, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: %q (want %d-%d)", key, s, min, max)
	}
	return n, nil
}

// parseList splits a comma-separated value, trimming whitespace and dropping
// empty or repeated items. First occurrence wins so the configured order is
// kept; a duplicated keyword would otherwise double its incidents in the
// grouped output. Returns def when the value is empty.
func parseList(value string, def []string) []string {
	if value == "" {
		return def
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
