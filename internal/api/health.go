package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	QuoteCache      string           `json:"quoteCache"`
	QuoteCacheStats *quoteCacheStats `json:"quoteCacheStats,omitempty"`
}

type quoteCacheStats struct {
	Days      int64  `json:"days"`
	NewestDay string `json:"newestDay,omitempty"` // YYYY-MM-DD
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := healthServices{QuoteCache: "disabled"}
	if s.deps.QuoteCache != nil {
		services.QuoteCache = "connected"
		if err := s.deps.QuoteCache.Ping(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("quote cache ping failed")
			services.QuoteCache = "disconnected"
		} else {
			services.QuoteCacheStats = s.quoteCacheStats(r)
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	})
}

// quoteCacheStats returns nil when the cache cannot be read.
func (s *Server) quoteCacheStats(r *http.Request) *quoteCacheStats {
	n, err := s.deps.QuoteCache.Count(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Msg("quote cache count failed")
		return nil
	}
	stats := &quoteCacheStats{Days: n}

	newest, err := s.deps.QuoteCache.Recent(r.Context(), 1)
	if err != nil {
		s.log.Warn().Err(err).Msg("quote cache recent failed")
		return stats
	}
	if len(newest) > 0 {
		stats.NewestDay = newest[0].Day
	}
	return stats
}
