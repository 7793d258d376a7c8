package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/telhawk-systems/scalperguard/common/httputil"
	"github.com/telhawk-systems/scalperguard/common/logging"
	"github.com/telhawk-systems/scalperguard/scoring/internal/metrics"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
	"github.com/telhawk-systems/scalperguard/scoring/internal/ratelimit"
	"github.com/telhawk-systems/scalperguard/scoring/internal/service"
)

// Scorer is the part of service.Service the handlers use.
type Scorer interface {
	Score(ctx context.Context, opts service.ScoreOptions) (*models.ScoreReport, error)
	Ready(ctx context.Context) error
}

type ScoringHandler struct {
	scorer  Scorer
	limiter ratelimit.RateLimiter
	logger  *logging.Logger
}

func NewScoringHandler(scorer Scorer, limiter ratelimit.RateLimiter, logger *logging.Logger) *ScoringHandler {
	if limiter == nil {
		limiter = ratelimit.NoOpRateLimiter{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ScoringHandler{scorer: scorer, limiter: limiter, logger: logger}
}

// Score handles GET /api/v1/score. The optional now query parameter is a unix
// timestamp in seconds.
func (h *ScoringHandler) Score(w http.ResponseWriter, r *http.Request) {
	const endpoint = "score"

	if r.Method != http.MethodGet {
		h.record(r, endpoint, http.StatusMethodNotAllowed)
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	ctx := r.Context()
	log := h.logger.WithContext(ctx)

	ip := httputil.GetClientIP(r)
	allowed, err := h.limiter.Allow(ctx, ip)
	if err != nil {
		// Fail open when the limiter is unreachable.
		log.Warn("rate limiter unavailable", logging.Error(err))
	} else if !allowed {
		h.record(r, endpoint, http.StatusTooManyRequests)
		log.Warn("rate limit exceeded", logging.IP(ip))
		httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	now, err := httputil.ParseUnixParam(r.URL.Query().Get("now"))
	if err != nil {
		h.record(r, endpoint, http.StatusBadRequest)
		httputil.WriteError(w, http.StatusBadRequest, "invalid now: "+err.Error())
		return
	}

	report, err := h.scorer.Score(ctx, service.ScoreOptions{Now: now, Trigger: service.TriggerHTTP})
	if err != nil {
		h.record(r, endpoint, http.StatusInternalServerError)
		log.Error("scoring failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "scoring failed")
		return
	}

	h.record(r, endpoint, http.StatusOK)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// Health answers {"ok": true} while the process is up.
func (h *ScoringHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Ready checks the transfer log backend.
func (h *ScoringHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.scorer.Ready(r.Context()); err != nil {
		h.logger.WithContext(r.Context()).Warn("not ready", logging.Error(err))
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *ScoringHandler) record(r *http.Request, endpoint string, code int) {
	metrics.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	if code >= http.StatusBadRequest {
		h.logger.WithContext(r.Context()).Debug("request rejected",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			logging.Status(code),
		)
	}
}
