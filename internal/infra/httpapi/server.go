package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"voicebridge/internal/application"
	"voicebridge/internal/domain"
)

const maxBodyBytes = 64 * 1024

type Options struct {
	Addr               string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// AuthToken, when set, is required in X-Auth-Token on /api routes.
	AuthToken string
	// Models is the default chain for /api/chat requests that name none.
	Models  domain.FallbackChain
	Metrics http.Handler
}

// Server is the HTTP proxy in front of the translation relay and the chat
// fallback chain.
type Server struct {
	opts       Options
	translator application.Translator
	chain      *application.FallbackChain
	logger     *slog.Logger
	router     chi.Router

	mu      sync.Mutex
	server  *http.Server
	running bool
}

func NewServer(translator application.Translator, chain *application.FallbackChain, opts Options, logger *slog.Logger) *Server {
	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = 30
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		opts:       opts,
		translator: translator,
		chain:      chain,
		logger:     logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
	}))

	r.Get("/health", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.opts.RateLimitPerMinute, time.Minute))
		r.Use(s.requireToken)
		r.Post("/translate", s.handleTranslate)
		r.Post("/chat", s.handleChat)
	})
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP proxy starting", "addr", s.opts.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	return nil
}

type translateRequest struct {
	Text string `json:"text"`
	To   string `json:"to"`
	From string `json:"from"`
}

type translateResponse struct {
	TranslatedText   *string         `json:"translatedText"`
	DetectedLanguage *string         `json:"detectedLanguage"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Raw     any    `json:"raw,omitempty"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_body", Details: err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.To) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing_fields"})
		return
	}

	resp, err := s.translator.Translate(r.Context(), domain.TranslationRequest{
		SourceText:     req.Text,
		TargetLanguage: req.To,
		SourceLanguage: req.From,
	})
	if err != nil {
		if domain.IsKind(err, domain.KindInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing_fields"})
			return
		}

		out := errorResponse{Error: "translation_failed", Details: err.Error()}
		if derr, ok := domain.AsError(err); ok {
			if derr.Details != "" {
				out.Details = derr.Details
			}
			out.Raw = rawPayload(derr.Payload)
		}
		s.logger.Warn("translation failed", "to", req.To, "details", out.Details)
		writeJSON(w, http.StatusInternalServerError, out)
		return
	}

	writeJSON(w, http.StatusOK, translateResponse{
		TranslatedText:   nonEmpty(resp.TranslatedText),
		DetectedLanguage: nonEmpty(resp.DetectedLanguage),
		Raw:              resp.RawProviderPayload,
	})
}

type chatRequest struct {
	Message string   `json:"message"`
	Models  []string `json:"models"`
}

type chatResponse struct {
	Reply     string  `json:"reply"`
	Model     *string `json:"model"`
	Exhausted bool    `json:"exhausted"`
}

// handleChat always answers 200 once the request is valid; an exhausted chain
// still produces the apology text.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_body", Details: err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing_fields"})
		return
	}

	chain := s.opts.Models
	if len(req.Models) > 0 {
		chain = domain.ChainOf(req.Models...)
		if len(chain) == 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing_fields", Details: "models must name at least one model"})
			return
		}
	}

	reply := s.chain.Reply(r.Context(), req.Message, chain)
	writeJSON(w, http.StatusOK, chatResponse{
		Reply:     reply.Text,
		Model:     nonEmpty(reply.SourceModel),
		Exhausted: reply.Exhausted,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AuthToken != "" && r.Header.Get("X-Auth-Token") != s.opts.AuthToken {
			s.logger.Warn("unauthorized request", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(started),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// rawPayload returns the upstream body as JSON when it is JSON, else as text.
func rawPayload(payload []byte) any {
	if len(payload) == 0 {
		return nil
	}
	if json.Valid(payload) {
		return json.RawMessage(payload)
	}
	return string(payload)
}
