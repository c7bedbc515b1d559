// Package httpapi exposes the chat-initialization and chat endpoints plus
// health, readiness, and metrics routes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tsaiiuo/traffic-agent/internal/domain"
)

// ContextBuilder produces the conversational context block.
type ContextBuilder interface {
	Build(ctx context.Context) (domain.ContextBlock, error)
	CheckReadiness(ctx context.Context) error
}

// Conversations is the gateway session surface the API drives.
type Conversations interface {
	StartSession(ctx context.Context, conversationID, contextBlock string) error
	Send(ctx context.Context, conversationID, text string) (string, error)
}

// defaultConversationID keeps the single-thread behavior for callers that
// never pass an ID.
const defaultConversationID = "default"

// Server exposes the chat API over plain net/http.
type Server struct {
	httpServer    *http.Server
	builder       ContextBuilder
	conversations Conversations
	logger        *slog.Logger
}

// NewServer creates the HTTP server with /init, /chat, /healthz, /readyz,
// and /metrics routes.
func NewServer(addr string, builder ContextBuilder, conversations Conversations, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second, // model replies can be slow
			IdleTimeout:  60 * time.Second,
		},
		builder:       builder,
		conversations: conversations,
		logger:        logger,
	}

	mux.HandleFunc("POST /init", s.handleInit)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type initRequest struct {
	ConversationID string `json:"conversation_id"`
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	// The body is optional; an empty or absent one means the default
	// conversation.
	json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
	id := req.ConversationID
	if id == "" {
		id = defaultConversationID
	}

	block, err := s.builder.Build(r.Context())
	if err != nil {
		s.logger.Error("context build failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "context build failed"})
		return
	}

	if err := s.conversations.StartSession(r.Context(), id, block.Text); err != nil {
		s.logger.Error("session start failed", "error", err, "conversation_id", id)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "gateway unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":              "conversation initialized",
		"conversation_id":      id,
		"context_generated_at": block.GeneratedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no input provided"})
		return
	}
	id := req.ConversationID
	if id == "" {
		id = defaultConversationID
	}

	reply, err := s.conversations.Send(r.Context(), id, req.Text)
	switch {
	case errors.Is(err, domain.ErrNoSession):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conversation not initialized, call /init first"})
		return
	case err != nil:
		s.logger.Error("chat turn failed", "error", err, "conversation_id", id)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "gateway unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"output": reply})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.builder.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
