package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/TimDavid1111/daily-automation/internal/config"
	"github.com/TimDavid1111/daily-automation/internal/event"
	"github.com/TimDavid1111/daily-automation/internal/pipeline"
	"github.com/TimDavid1111/daily-automation/internal/runlog"
)

const defaultRunsLimit = 50

// Server represents the webhook HTTP server.
type Server struct {
	cfg     *config.Config
	handler EventHandler
	runs    *runlog.Log
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new webhook server instance. runs may be nil, in which case
// GET /runs returns an empty list.
func New(cfg *config.Config, handler EventHandler, runs *runlog.Log, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		runs:    runs,
		logger:  logger,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:    s.cfg.Listen,
		Handler: router,
		// The write timeout covers the whole pipeline: a Notion read,
		// an LLM call, and a Notion write, each with its own budget.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting",
		"listen", s.cfg.Listen,
		"signature_verification", s.cfg.SecretConfigured(),
	)
	if !s.cfg.SecretConfigured() {
		s.logger.Warn("WEBHOOK_SECRET not set, signature verification disabled")
	}

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post("/webhook", s.handleWebhook)
	r.Get("/health", s.handleHealth)
	r.Get("/runs", s.handleRuns)

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Log request (no body content for security)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleWebhook handles incoming webhook POST requests.
//
// Order matters here: the body is decoded before the signature check because
// the verification handshake arrives before the operator knows the secret —
// the token itself proves legitimacy on that path. Everything else must pass
// HMAC verification before touching the pipeline.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Enforce body size limit
	limitedReader := io.LimitReader(r.Body, s.cfg.Webhook.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.cfg.Webhook.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	ev, err := event.Decode(body)
	if err != nil {
		s.logger.Warn("webhook payload rejected", "error", err)
		s.respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if ev.IsVerification() {
		s.handleVerification(w, ev)
		return
	}

	if s.cfg.SecretConfigured() {
		signature := r.Header.Get(s.cfg.Webhook.SignatureHeader)
		if err := verifySignature(body, signature, s.cfg.Webhook.Secret); err != nil {
			s.logger.Warn("webhook signature verification failed",
				"header", s.cfg.Webhook.SignatureHeader,
				"request_id", middleware.GetReqID(ctx),
			)
			s.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	} else {
		s.logger.Warn("accepting unverified webhook, no secret configured",
			"event_type", string(ev.Type),
		)
	}

	res := s.handler.Handle(ctx, ev)
	switch res.Outcome {
	case pipeline.OutcomeFailed:
		s.respondError(w, http.StatusBadGateway, "processing failed")
	default:
		s.respondJSON(w, http.StatusOK, StatusResponse{Status: string(res.Outcome)})
	}
}

// handleVerification handles the one-time subscription handshake. The token
// is surfaced in the logs so the operator can register it with Notion and
// configure it as the webhook secret; the pipeline is never invoked.
func (s *Server) handleVerification(w http.ResponseWriter, ev *event.Event) {
	s.logger.Warn("verification token received; set it as WEBHOOK_SECRET to activate signature verification",
		"verification_token", ev.VerificationToken,
	)
	s.respondJSON(w, http.StatusOK, ReceivedResponse{Received: true})
}

// handleHealth reports which configuration values are present.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:                  "healthy",
		NotionConfigured:        s.cfg.NotionConfigured(),
		ClaudeConfigured:        s.cfg.ClaudeConfigured(),
		WebhookSecretConfigured: s.cfg.SecretConfigured(),
		ParentPageConfigured:    s.cfg.ParentPageConfigured(),
		DatabaseConfigured:      s.cfg.DatabaseConfigured(),
	})
}

// handleRuns returns recent pipeline runs, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	resp := RunsResponse{Runs: []runlog.Record{}}
	if s.runs != nil {
		resp.Runs = s.runs.Recent(limit)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
