package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/resilience"
)

type SearchExecutor interface {
	Boolean(ctx context.Context, raw string) (*executor.Result, error)
	Proximity(ctx context.Context, raw string, k int) (*executor.Result, error)
	ReloadIndex(ctx context.Context) (index.Stats, error)
	IndexStats() (index.Stats, time.Time, error)
}

type Handler struct {
	executor SearchExecutor
	logger   *slog.Logger
}

func New(exec SearchExecutor) *Handler {
	return &Handler{
		executor: exec,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// IndexStatsResponse is served by GET /api/v1/index/stats and returned by a
// successful reload.
type IndexStatsResponse struct {
	index.Stats
	LoadedAt time.Time `json:"loaded_at"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Boolean serves GET /api/v1/search/boolean?q=.
func (h *Handler) Boolean(w http.ResponseWriter, r *http.Request) {
	result, err := h.executor.Boolean(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Proximity serves GET /api/v1/search/proximity?q=&k=.
func (h *Handler) Proximity(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	raw := params.Get("q")
	kStr := params.Get("k")
	if kStr == "" {
		h.writeError(w, r, &query.ValidationError{
			Kind:     query.ErrInvalidDistance,
			Position: -1,
			Message:  "query parameter 'k' is required",
		})
		return
	}
	k, err := strconv.Atoi(kStr)
	if err != nil {
		h.writeError(w, r, &query.ValidationError{
			Kind:     query.ErrInvalidDistance,
			Token:    kStr,
			Position: -1,
			Message:  "k must be an integer",
		})
		return
	}
	result, err := h.executor.Proximity(r.Context(), raw, k)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// IndexStats serves GET /api/v1/index/stats.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats, loadedAt, err := h.executor.IndexStats()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, IndexStatsResponse{Stats: stats, LoadedAt: loadedAt.UTC()})
}

// Reload serves POST /api/v1/index/reload.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	if _, err := h.executor.ReloadIndex(r.Context()); err != nil {
		log.Error("index reload request failed", "error", err)
		h.writeError(w, r, reloadError(err))
		return
	}
	stats, loadedAt, err := h.executor.IndexStats()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	log.Info("index reloaded on request", "terms", stats.Terms, "documents", stats.Documents)
	h.writeJSON(w, http.StatusOK, IndexStatsResponse{Stats: stats, LoadedAt: loadedAt.UTC()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	resp := errorResponse{Error: err.Error(), Kind: errorKind(err)}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Warn("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	h.writeJSON(w, status, resp)
}

// reloadError classifies a failed reload. The previous snapshot, if any, is
// still being served.
func reloadError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Newf(apperrors.ErrTimeout, http.StatusGatewayTimeout, "index reload timed out: %v", err)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.Newf(apperrors.ErrIndexUnavailable, http.StatusServiceUnavailable, "index source is failing, reload refused: %v", err)
	default:
		return fmt.Errorf("%w: %v", apperrors.ErrIndexUnavailable, err)
	}
}

func errorKind(err error) string {
	var verr *query.ValidationError
	switch {
	case errors.As(err, &verr):
		return query.KindName(err)
	case errors.Is(err, apperrors.ErrIndexUnavailable):
		return "index_unavailable"
	case errors.Is(err, apperrors.ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}
