// Package router wires the search service routes and applies the middleware
// chain (RequestID → CORS → Metrics → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/middleware"
)

// New builds the search service HTTP handler.
//
// Route table:
//
//	GET  /api/v1/search/boolean?q=      → left-to-right AND/OR/NOT query
//	GET  /api/v1/search/proximity?q=&k= → two terms within k positions
//	GET  /api/v1/index/stats            → active snapshot stats
//	POST /api/v1/index/reload           → reload the snapshot from its source
//	GET  /health/live, /health/ready    → probes
//	GET  /metrics                       → Prometheus scrape
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Timeout → mux
func New(h *handler.Handler, checker *health.Checker, m *metrics.Metrics, timeout time.Duration) http.Handler {
	routes := []struct {
		method, path string
		handler      http.Handler
	}{
		{http.MethodGet, "/api/v1/search/boolean", http.HandlerFunc(h.Boolean)},
		{http.MethodGet, "/api/v1/search/proximity", http.HandlerFunc(h.Proximity)},
		{http.MethodGet, "/api/v1/index/stats", http.HandlerFunc(h.IndexStats)},
		{http.MethodPost, "/api/v1/index/reload", http.HandlerFunc(h.Reload)},
		{http.MethodGet, "/health/live", checker.LiveHandler()},
		{http.MethodGet, "/health/ready", checker.ReadyHandler()},
		{http.MethodGet, "/metrics", metrics.Handler()},
	}

	mux := http.NewServeMux()
	paths := make([]string, 0, len(routes))
	for _, route := range routes {
		mux.Handle(route.method+" "+route.path, route.handler)
		paths = append(paths, route.path)
	}

	var chain http.Handler = mux
	if timeout > 0 {
		chain = middleware.Timeout(timeout)(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m, paths...)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)
	return chain
}
