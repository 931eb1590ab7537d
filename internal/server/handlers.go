package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/marketlens/marketlens/internal/api"
	"github.com/marketlens/marketlens/internal/cache"
	"github.com/marketlens/marketlens/internal/dashboard"
	"github.com/marketlens/marketlens/internal/session"
	"github.com/marketlens/marketlens/internal/state"
)

// handlers serves the data and diagnostics endpoints. Responses use the
// same {success, data, detail} envelope the backend speaks, so renderers
// handle one format.
type handlers struct {
	service  *dashboard.Service
	quotes   *cache.Cache
	overview *cache.Cache
	session  *session.Manager
	log      zerolog.Logger
}

func newHandlers(service *dashboard.Service, quotes, overview *cache.Cache, sess *session.Manager, log zerolog.Logger) *handlers {
	return &handlers{
		service:  service,
		quotes:   quotes,
		overview: overview,
		session:  sess,
		log:      log.With().Str("handler", "api").Logger(),
	}
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

func (h *handlers) respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError maps the error taxonomy onto HTTP: auth failures are 401 (the
// renderer redirects to login), request-level failures keep the backend's
// status and detail, timeouts are 504, everything else is 502.
func (h *handlers) respondError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	detail := err.Error()

	var reqErr *api.RequestError
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		status = http.StatusUnauthorized
		detail = "session expired"
	case errors.Is(err, api.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.As(err, &reqErr):
		status = reqErr.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		detail = reqErr.Detail
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Detail: detail})
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLookupStock handles GET /api/stock/{symbol}
func (h *handlers) handleLookupStock(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		h.respondError(w, &api.RequestError{Status: http.StatusBadRequest, Detail: "symbol is required"})
		return
	}

	quote, err := h.service.LookupStock(r.Context(), symbol)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, quote)
}

// handleSearchStocks handles GET /api/stock/search?q=...
// Debouncing happens in the UI's keystroke loop; by the time a request
// reaches this endpoint it goes straight through.
func (h *handlers) handleSearchStocks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.respondError(w, &api.RequestError{Status: http.StatusBadRequest, Detail: "q is required"})
		return
	}

	matches, err := h.service.SearchStocks(r.Context(), query)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, matches)
}

// handleGetWatchlist handles GET /api/watchlist?force=true
func (h *handlers) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	items, err := h.service.LoadWatchlist(r.Context(), force)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, items)
}

// handleAddWatchItem handles POST /api/watchlist
func (h *handlers) handleAddWatchItem(w http.ResponseWriter, r *http.Request) {
	var item state.WatchItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		h.respondError(w, &api.RequestError{Status: http.StatusBadRequest, Detail: "invalid request body"})
		return
	}
	if item.Symbol == "" {
		h.respondError(w, &api.RequestError{Status: http.StatusBadRequest, Detail: "symbol is required"})
		return
	}

	created, err := h.service.AddWatchItem(r.Context(), item)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, created)
}

// handleRemoveWatchItem handles DELETE /api/watchlist/{symbol}
func (h *handlers) handleRemoveWatchItem(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if err := h.service.RemoveWatchItem(r.Context(), symbol); err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, nil)
}

// handleImportWatchlist handles POST /api/watchlist/import
func (h *handlers) handleImportWatchlist(w http.ResponseWriter, r *http.Request) {
	var items []state.WatchItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		h.respondError(w, &api.RequestError{Status: http.StatusBadRequest, Detail: "invalid request body"})
		return
	}

	imported, err := h.service.ImportWatchlist(r.Context(), items)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int{"imported": imported})
}

// handleGetPortfolio handles GET /api/portfolio?force=true
func (h *handlers) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	portfolio, err := h.service.LoadPortfolio(r.Context(), force)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, portfolio)
}

// handleGetTags handles GET /api/tags?force=true
func (h *handlers) handleGetTags(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	tags, err := h.service.LoadTags(r.Context(), force)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, tags)
}

// handleGetMarketOverview handles GET /api/market/overview
func (h *handlers) handleGetMarketOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.LoadMarketOverview(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, overview)
}

// handleCacheStats handles GET /api/cache/stats
func (h *handlers) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]cache.Stats{
		"quotes":   h.quotes.Stats(),
		"overview": h.overview.Stats(),
	})
}

// handleCacheClear handles POST /api/cache/clear
func (h *handlers) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	h.service.ClearCaches()
	h.respond(w, http.StatusOK, nil)
}

// handleLogout handles POST /api/logout
func (h *handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if h.session != nil {
		h.session.Logout()
	}
	h.respond(w, http.StatusOK, nil)
}
