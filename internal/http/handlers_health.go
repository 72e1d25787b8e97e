package http

import (
	"context"
	"net/http"
	"time"

	"ledger/internal/cache"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/trace"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady pings the store with a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type cacheMetrics struct {
	cache.Stats
	Size int `json:"size"`
}

type metricsResponse struct {
	Requests   trace.Metrics           `json:"requests"`
	RateLimit  ratelimit.Metrics       `json:"rate_limit"`
	Suspicious int64                   `json:"suspicious_requests"`
	Caches     map[string]cacheMetrics `json:"caches"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	resp := metricsResponse{
		Requests:   s.tracer.GetMetrics(),
		RateLimit:  s.limiter.GetMetrics(),
		Suspicious: s.guard.GetMetrics().SuspiciousRequests,
		Caches:     make(map[string]cacheMetrics, len(s.opts.Caches)),
	}
	for name, c := range s.opts.Caches {
		resp.Caches[name] = cacheMetrics{Stats: c.Stats(), Size: c.Size()}
	}
	writeJSON(w, http.StatusOK, resp)
}
