// Package gateway owns the conversation sessions against an
// OpenAI-compatible model service. The composed context block is injected as
// the opening turn of each session; subsequent chat turns carry the full
// history back to the service.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tsaiiuo/traffic-agent/internal/domain"
	"github.com/tsaiiuo/traffic-agent/internal/observability"
)

// contextAck is the assistant turn seeded after the context block so the
// model treats the block as read background rather than a question.
const contextAck = "我已了解背景，請開始提問。"

// Config holds gateway client settings.
type Config struct {
	APIKey       string
	BaseURL      string // optional custom endpoint
	Model        string
	SystemPrompt string
}

// Manager keys sessions by conversation ID and serializes turns per session.
type Manager struct {
	client  openai.Client
	model   string
	system  string
	metrics *observability.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu      sync.Mutex
	history []openai.ChatCompletionMessageParamUnion
}

// NewManager creates a session manager for the configured model service.
func NewManager(cfg Config, metrics *observability.Metrics, logger *slog.Logger) (*Manager, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gateway API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Manager{
		client:   openai.NewClient(opts...),
		model:    model,
		system:   cfg.SystemPrompt,
		metrics:  metrics,
		logger:   logger,
		sessions: make(map[string]*session),
	}, nil
}

// StartSession creates or replaces the session for a conversation ID, seeding
// it with the context block. Re-initializing an existing conversation
// replaces its history; the model service holds no state of its own.
func (m *Manager) StartSession(_ context.Context, conversationID, contextBlock string) error {
	history := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(m.system),
		openai.UserMessage(contextBlock),
		openai.AssistantMessage(contextAck),
	}

	m.mu.Lock()
	_, existed := m.sessions[conversationID]
	m.sessions[conversationID] = &session{history: history}
	m.mu.Unlock()

	if !existed {
		m.metrics.ActiveSessions.Inc()
	}
	m.metrics.GatewayTurns.WithLabelValues("init", "success").Inc()
	m.logger.Info("conversation session started", "conversation_id", conversationID, "replaced", existed)
	return nil
}

// Send forwards one user turn on an initialized conversation and returns the
// model's reply. Turns on the same conversation are serialized; concurrent
// callers queue. Returns domain.ErrNoSession when the conversation was never
// initialized and wraps domain.ErrGateway on model-service failure.
func (m *Manager) Send(ctx context.Context, conversationID, text string) (string, error) {
	m.mu.Lock()
	s := m.sessions[conversationID]
	m.mu.Unlock()
	if s == nil {
		return "", fmt.Errorf("conversation %q: %w", conversationID, domain.ErrNoSession)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	messages := append(s.history, openai.UserMessage(text))

	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    m.model,
		Messages: messages,
	})
	if err != nil {
		m.metrics.GatewayTurns.WithLabelValues("chat", "error").Inc()
		return "", fmt.Errorf("send message: %w: %w", domain.ErrGateway, err)
	}
	if len(resp.Choices) == 0 {
		m.metrics.GatewayTurns.WithLabelValues("chat", "error").Inc()
		return "", fmt.Errorf("send message: %w: empty response", domain.ErrGateway)
	}

	reply := resp.Choices[0].Message.Content
	// The user turn joins the history only once the service accepted it,
	// so a failed turn can be retried without duplication.
	s.history = append(messages, openai.AssistantMessage(reply))

	m.metrics.GatewayTurns.WithLabelValues("chat", "success").Inc()
	return reply, nil
}

// HasSession reports whether a conversation has been initialized.
func (m *Manager) HasSession(conversationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[conversationID] != nil
}
