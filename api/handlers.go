/*
handlers.go - HTTP API handlers for the payroll browse service

PURPOSE:
  Exposes the facet engine via a read-only REST API. Handles query-string
  parsing, JSON serialization, and maps engine errors to HTTP statuses.

ENDPOINTS:
  Records:
    GET    /api/records                 One page of records
    GET    /api/records/filters         Filter options per dimension
    GET    /api/records/browse          Page + filter options in one call

  Periods:
    GET    /api/periods/summary         Month roll-up of stored periods

  Meta:
    GET    /api/catalog                 Dimensions, sort keys, page limits
    GET    /healthz                     Liveness + store reachability

QUERY PARAMETERS:
  q          free-text search
  sort       sort key (see /api/catalog)
  dir        asc | desc
  page       1-based page number          (default 1)
  page_size  records per page             (default PAGE_SIZE, capped)
  <other>    any other key is a dimension name; repeat it to select
             several values: ?branch=CDMX&branch=GDL

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Unknown dimension, malformed period, bad sort or paging
  - 404: Period summary without a period dimension
  - 503: Store unavailable
  - 504: Store query timed out
  - 500: Anything else
  A request whose client went away is logged and left unanswered.

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-browse/facet"
	"github.com/warp/payroll-browse/factory"
)

// Reserved query parameters; every other key names a dimension.
const (
	paramSearch   = "q"
	paramSort     = "sort"
	paramDir      = "dir"
	paramPage     = "page"
	paramPageSize = "page_size"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine         *facet.Engine
	CatalogFactory *factory.CatalogFactory
	Pinger         Pinger // optional

	log *logrus.Entry
}

// NewHandler creates a new handler around engine.
func NewHandler(engine *facet.Engine, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		Engine:         engine,
		CatalogFactory: factory.NewCatalogFactory(),
		log:            logger.WithField("component", "api"),
	}
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// ListRecords returns one page of records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	req, err := h.parsePageRequest(r.URL.Query())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	page, err := h.Engine.Page(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPageDTO(page))
}

// FilterOptions returns, per dimension, the values that would still match.
func (h *Handler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel := selectionFrom(q)

	options, err := h.Engine.FilterOptions(r.Context(), sel, q.Get(paramSearch))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, FilterOptionsResponse{
		Options: toOptionDTOs(h.Engine.Catalog(), options),
	})
}

// Browse returns a page and the filter options for the same request.
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	req, err := h.parsePageRequest(r.URL.Query())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	result, err := h.Engine.Browse(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, BrowseResponse{
		Page:    toPageDTO(result.Page),
		Options: toOptionDTOs(h.Engine.Catalog(), result.Options),
	})
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// PeriodSummary returns the month roll-up of stored periods.
func (h *Handler) PeriodSummary(w http.ResponseWriter, r *http.Request) {
	months, err := h.Engine.PeriodSummary(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PeriodSummaryResponse{Months: toMonthSummaryDTOs(months)})
}

// =============================================================================
// META HANDLERS
// =============================================================================

// GetCatalog describes the dimensions and sort keys clients may use.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	cfg := h.Engine.Config()
	writeJSON(w, http.StatusOK, CatalogResponse{
		CatalogJSON:     h.CatalogFactory.ToJSON(h.Engine.Catalog()),
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	})
}

// Health reports liveness and, when a Pinger is set, store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Pinger != nil {
		if err := h.Pinger.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unreachable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

func (h *Handler) parsePageRequest(q url.Values) (facet.PageRequest, error) {
	req := facet.PageRequest{
		Selection:  selectionFrom(q),
		SearchText: q.Get(paramSearch),
		SortBy:     q.Get(paramSort),
		SortDir:    q.Get(paramDir),
		Page:       1,
		PageSize:   h.Engine.Config().DefaultPageSize,
	}

	if v := q.Get(paramPage); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: %q is not an integer", facet.ErrInvalidPage, v)
		}
		req.Page = n
	}
	if v := q.Get(paramPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: %q is not an integer", facet.ErrInvalidPageSize, v)
		}
		req.PageSize = n
	}
	return req, nil
}

// selectionFrom treats every non-reserved key as a dimension name.
func selectionFrom(q url.Values) facet.Selection {
	sel := make(facet.Selection)
	for key, values := range q {
		switch key {
		case paramSearch, paramSort, paramDir, paramPage, paramPageSize:
			continue
		}
		sel[key] = values
	}
	return sel
}

// =============================================================================
// HELPERS
// =============================================================================

// writeEngineError maps engine errors onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	entry := h.log.WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": middleware.GetReqID(r.Context()),
	}).WithError(err)

	switch {
	case errors.Is(err, context.Canceled):
		// The client is gone; nobody reads a response.
		entry.Info("request canceled")
	case facet.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, facet.ErrNoPeriodDimension):
		writeError(w, http.StatusNotFound, "No period dimension configured", err)
	case facet.IsTimeout(err):
		entry.Warn("store query timed out")
		writeError(w, http.StatusGatewayTimeout, "Query timed out", nil)
	case errors.Is(err, facet.ErrStoreUnavailable):
		entry.Error("store unavailable")
		writeError(w, http.StatusServiceUnavailable, "Store unavailable", nil)
	default:
		entry.Error("unexpected error")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
