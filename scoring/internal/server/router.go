package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/scalperguard/common/middleware"
	"github.com/telhawk-systems/scalperguard/scoring/internal/handlers"
)

// NewRouter registers the scoring API. Middleware order, outermost first:
// request ID, access log, CORS.
func NewRouter(h *handlers.ScoringHandler, cors middleware.CORSConfig, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/score", h.Score)
	mux.HandleFunc("/score", h.Score)

	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	mux.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = middleware.CORS(cors)(handler)
	handler = middleware.AccessLog(logger)(handler)
	return middleware.RequestID(handler)
}
