package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kjannette/satsval-backend/internal/models"
	"github.com/rs/zerolog"
)

// Valuer runs the valuation for a normalized key.
type Valuer interface {
	Run(ctx context.Context, key string) ([]models.Valuation, error)
}

type Normalizer interface {
	Normalize(input string) string
}

// QuoteCache is the optional persisted quote cache reported by /health.
type QuoteCache interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]models.Quote, error)
}

type Deps struct {
	Valuer     Valuer
	Normalizer Normalizer
	QuoteCache QuoteCache // nil when the cache is disabled
}

type Server struct {
	deps       Deps
	httpServer *http.Server
	apiKey     string
	log        zerolog.Logger
}

func NewServer(deps Deps, port int, apiKey, corsOrigin string, log zerolog.Logger) *Server {
	s := &Server{
		deps:   deps,
		apiKey: apiKey,
		log:    log.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()

	// Valuation routes
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/pubkey/inspect", s.handleInspectKey)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := s.requestMiddleware(s.recoverMiddleware(corsMiddleware(s.authMiddleware(mux), corsOrigin)))

	// A valuation waits on every historical lookup, which is slow when the
	// price service throttles us.
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("REST API server started")
	if s.apiKey != "" {
		s.log.Info().Msg("authentication: enabled (Bearer token)")
	} else {
		s.log.Info().Msg("authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- response helpers ---

type errorJSON struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorJSON{Error: msg})
}
