// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/clickprio/internal/adapters/repository"
	"github.com/okian/clickprio/internal/domain/types"
	"github.com/okian/clickprio/pkg/logger"
)

const maxBodyBytes = 1 << 20

// ViewerHeader carries the viewer name when the query string does not.
const ViewerHeader = "X-Viewer"

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Display(ctx context.Context, viewer string) ([]types.Entry, error)
	Click(ctx context.Context, viewer string, itemID int64, clickID string) (types.ClickResult, error)
	CreateItem(ctx context.Context, in types.ItemInput) (types.Entry, error)
	Refresh(ctx context.Context) (types.RefreshResult, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	itemsHandler   *ItemsHandler
	refreshHandler *RefreshHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		itemsHandler:   NewItemsHandler(deps),
		refreshHandler: NewRefreshHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/items", MetricsMiddleware(s.itemsHandler.HandleList, "items"))
	r.Post("/items", MetricsMiddleware(s.itemsHandler.HandleCreate, "items_create"))
	r.Post("/items/{id}/click", MetricsMiddleware(s.itemsHandler.HandleClick, "click"))
	r.Post("/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh"))
}

// Router returns a chi router with request ids, panic recovery and all
// routes registered.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps store and service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		status int
		code   string
		kind   error
	)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, code, kind = http.StatusNotFound, "not_found", ErrNotFound
	case errors.Is(err, repository.ErrInvalidItem):
		status, code, kind = http.StatusBadRequest, "bad_request", ErrBadRequest
	case errors.Is(err, repository.ErrConflict):
		status, code, kind = http.StatusConflict, "conflict", ErrConflict
	case errors.Is(err, repository.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		status, code, kind = http.StatusServiceUnavailable, "unavailable", ErrUnavailable
	default:
		status, code, kind = http.StatusInternalServerError, "internal", ErrInternal
	}

	wrapped := WrapKind(op, kind, err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.Int("status", status),
			logger.Error(wrapped),
		)
	}
	writeError(w, status, code, wrapped)
}

// viewerFrom reads the viewer name from the query string or header.
func viewerFrom(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get("viewer")); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get(ViewerHeader))
}
