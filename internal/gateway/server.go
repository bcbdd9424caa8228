// Package gateway exposes the concierge over HTTP. It is boundary glue
// only: request decode, orchestrator call, response encode. All turn
// semantics live in pkg/orchestrator.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/maisonlane/concierge/internal/observability"
	"github.com/maisonlane/concierge/internal/tracing"
	"github.com/maisonlane/concierge/pkg/orchestrator"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const maxMessageBytes = 64 * 1024

// Config holds gateway server configuration.
type Config struct {
	Host         string
	Port         int
	Orchestrator *orchestrator.Orchestrator
	Logger       zerolog.Logger
}

// Server is the HTTP front door for the concierge.
type Server struct {
	host           string
	port           int
	orch           *orchestrator.Orchestrator
	logger         zerolog.Logger
	server         *http.Server
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// ChatResponse is the reply body for POST /api/v1/chat.
type ChatResponse struct {
	Response string `json:"response"`
	Blocked  bool   `json:"blocked"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a gateway server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	return &Server{
		host:   cfg.Host,
		port:   cfg.Port,
		orch:   cfg.Orchestrator,
		logger: cfg.Logger,
	}, nil
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", s.handleChat)
	mux.HandleFunc("GET /api/v1/conversations/{id}/metrics", s.handleConversationMetrics)
	mux.HandleFunc("GET /api/v1/metrics", s.handleGlobalMetrics)
	mux.Handle("GET /metrics", observability.MetricsHandler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Start begins serving. It does not block.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("host", s.host).Int("port", s.port).Msg("Starting gateway server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down gateway server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShuttingDown {
		s.shutdownMu.RUnlock()
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "server is shutting down"})
		return
	}
	s.inFlightReqs.Add(1)
	s.shutdownMu.RUnlock()
	defer s.inFlightReqs.Done()

	requestID, err := gonanoid.New()
	if err != nil {
		requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	ctx := tracing.WithRequestID(r.Context(), requestID)
	logger := tracing.LoggerFromContext(ctx, s.logger).With().Str("request_id", requestID).Logger()

	var req ChatRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.ConversationID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "conversation_id is required"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	reply, err := s.orch.ProcessMessage(ctx, req.ConversationID, req.Message)
	if err != nil {
		logger.Error().Err(err).Msg("Chat request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Response: reply.Text, Blocked: reply.Blocked})
}

func (s *Server) handleConversationMetrics(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "conversation id is required"})
		return
	}
	writeJSON(w, http.StatusOK, s.orch.ConversationMetrics(conversationID))
}

func (s *Server) handleGlobalMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.GlobalMetrics())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
