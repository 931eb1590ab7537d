package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketlens/marketlens/internal/api"
	"github.com/marketlens/marketlens/internal/cache"
	"github.com/marketlens/marketlens/internal/dashboard"
	"github.com/marketlens/marketlens/internal/state"
)

// fakeBackend returns canned bodies keyed by "METHOD /path".
type fakeBackend struct {
	responses map[string]string
	status    map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		responses: make(map[string]string),
		status:    make(map[string]int),
	}
}

func (b *fakeBackend) respond(method, path, body string) {
	b.responses[method+" "+path] = body
}

func (b *fakeBackend) respondStatus(method, path string, status int, body string) {
	b.responses[method+" "+path] = body
	b.status[method+" "+path] = status
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	body, ok := b.responses[key]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"detail":"no route"}`))
		return
	}
	if status := b.status[key]; status != 0 {
		w.WriteHeader(status)
	}
	w.Write([]byte(body))
}

func newTestServer(t *testing.T, backend *fakeBackend) (*Server, *state.Store) {
	t.Helper()

	upstream := httptest.NewServer(backend)
	t.Cleanup(upstream.Close)

	client := api.NewClient(upstream.URL, nil, 5*time.Second, zerolog.Nop())
	store := state.New(nil, zerolog.Nop())
	quotes := cache.New(cache.TTLQuote)
	overview := cache.New(cache.TTLMarketOverview)

	svc := dashboard.New(dashboard.Config{
		API:      client,
		Quotes:   quotes,
		Overview: overview,
		Store:    store,
		Log:      zerolog.Nop(),
	})
	t.Cleanup(svc.Close)

	srv := New(Config{
		Port:     0,
		Log:      zerolog.Nop(),
		Service:  svc,
		Store:    store,
		Quotes:   quotes,
		Overview: overview,
	})
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, newFakeBackend())

	rec, env := doJSON(t, srv, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestLookupStock_ReturnsQuoteAndUpdatesState(t *testing.T) {
	backend := newFakeBackend()
	backend.respond("GET", "/stock/AAPL", `{"success":true,"data":{"symbol":"AAPL","price":150}}`)
	srv, store := newTestServer(t, backend)

	rec, env := doJSON(t, srv, http.MethodGet, "/api/stock/aapl", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var quote state.Quote
	require.NoError(t, json.Unmarshal(data, &quote))
	assert.Equal(t, "AAPL", quote.Symbol)

	require.NotNil(t, store.CurrentStock())
	assert.Equal(t, []string{"AAPL"}, store.SearchHistory())
}

func TestLookupStock_BackendFailurePropagatesDetail(t *testing.T) {
	backend := newFakeBackend()
	backend.respondStatus("GET", "/stock/BAD", http.StatusNotFound,
		`{"success":false,"detail":"symbol not found"}`)
	srv, _ := newTestServer(t, backend)

	rec, env := doJSON(t, srv, http.MethodGet, "/api/stock/BAD", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "symbol not found", env.Detail)
}

func TestLookupStock_UnauthorizedMapsTo401(t *testing.T) {
	backend := newFakeBackend()
	backend.respondStatus("GET", "/stock/AAPL", http.StatusUnauthorized,
		`{"success":false,"detail":"token expired"}`)
	srv, _ := newTestServer(t, backend)

	rec, env := doJSON(t, srv, http.MethodGet, "/api/stock/AAPL", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "session expired", env.Detail)
}

func TestSearchStocks_RequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t, newFakeBackend())

	rec, env := doJSON(t, srv, http.MethodGet, "/api/stock/search", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestSearchStocks_ReturnsMatches(t *testing.T) {
	backend := newFakeBackend()
	backend.respond("GET", "/stock/search",
		`{"success":true,"data":[{"symbol":"AAPL","name":"Apple Inc."}]}`)
	srv, _ := newTestServer(t, backend)

	rec, env := doJSON(t, srv, http.MethodGet, "/api/stock/search?q=app", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var matches []api.SymbolMatch
	require.NoError(t, json.Unmarshal(data, &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "AAPL", matches[0].Symbol)
}

func TestAddWatchItem_RequiresSymbol(t *testing.T) {
	srv, _ := newTestServer(t, newFakeBackend())

	rec, env := doJSON(t, srv, http.MethodPost, "/api/watchlist", `{"note":"no symbol"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestAddWatchItem_ReturnsCanonicalRecord(t *testing.T) {
	backend := newFakeBackend()
	backend.respond("POST", "/watchlist",
		`{"success":true,"data":{"id":"42","symbol":"AAPL","asset_type":"stock"}}`)
	srv, store := newTestServer(t, backend)

	rec, env := doJSON(t, srv, http.MethodPost, "/api/watchlist", `{"symbol":"aapl"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)

	items := store.Watchlist()
	require.Len(t, items, 1)
	assert.Equal(t, "42", items[0].ID)
}

func TestWatchlist_LoadedFlagSkipsUpstream(t *testing.T) {
	backend := newFakeBackend()
	backend.respond("GET", "/watchlist", `{"success":true,"data":[{"id":"1","symbol":"AAPL"}]}`)
	srv, store := newTestServer(t, backend)

	_, env := doJSON(t, srv, http.MethodGet, "/api/watchlist", "")
	require.True(t, env.Success)
	require.True(t, store.WatchlistLoaded())

	// Upstream now answers with an empty list; the guard should keep the
	// already loaded copy.
	backend.respond("GET", "/watchlist", `{"success":true,"data":[]}`)
	_, env = doJSON(t, srv, http.MethodGet, "/api/watchlist", "")
	require.True(t, env.Success)
	assert.Len(t, store.Watchlist(), 1)

	_, env = doJSON(t, srv, http.MethodGet, "/api/watchlist?force=true", "")
	require.True(t, env.Success)
	assert.Len(t, store.Watchlist(), 0)
}

func TestCacheStatsAndClear(t *testing.T) {
	backend := newFakeBackend()
	backend.respond("GET", "/stock/AAPL", `{"success":true,"data":{"symbol":"AAPL","price":150}}`)
	srv, _ := newTestServer(t, backend)

	_, env := doJSON(t, srv, http.MethodGet, "/api/stock/AAPL", "")
	require.True(t, env.Success)

	rec, env := doJSON(t, srv, http.MethodGet, "/api/cache/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var stats map[string]cache.Stats
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, 1, stats["quotes"].Count)

	rec, _ = doJSON(t, srv, http.MethodPost, "/api/cache/clear", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	_, env = doJSON(t, srv, http.MethodGet, "/api/cache/stats", "")
	data, err = json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, 0, stats["quotes"].Count)
}
