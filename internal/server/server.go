// Package server exposes the client core to the rendering layer: data
// endpoints that run through the cache and state store, diagnostics for the
// caches, and a websocket stream of state changes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/marketlens/marketlens/internal/cache"
	"github.com/marketlens/marketlens/internal/dashboard"
	"github.com/marketlens/marketlens/internal/session"
	"github.com/marketlens/marketlens/internal/state"
)

// Config holds server configuration
type Config struct {
	Port     int
	Log      zerolog.Logger
	Service  *dashboard.Service
	Store    *state.Store
	Session  *session.Manager
	Quotes   *cache.Cache
	Overview *cache.Cache
	DevMode  bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	handlers := newHandlers(cfg.Service, cfg.Quotes, cfg.Overview, cfg.Session, cfg.Log)
	streamHandler := newStateStreamHandler(cfg.Store, cfg.Log)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.handleHealth)

		r.Get("/stock/search", handlers.handleSearchStocks)
		r.Get("/stock/{symbol}", handlers.handleLookupStock)

		r.Get("/watchlist", handlers.handleGetWatchlist)
		r.Post("/watchlist", handlers.handleAddWatchItem)
		r.Delete("/watchlist/{symbol}", handlers.handleRemoveWatchItem)
		r.Post("/watchlist/import", handlers.handleImportWatchlist)

		r.Get("/portfolio", handlers.handleGetPortfolio)
		r.Get("/tags", handlers.handleGetTags)
		r.Get("/market/overview", handlers.handleGetMarketOverview)

		r.Get("/cache/stats", handlers.handleCacheStats)
		r.Post("/cache/clear", handlers.handleCacheClear)

		r.Post("/logout", handlers.handleLogout)

		r.Get("/state/stream", streamHandler.ServeHTTP)
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Streaming endpoints manage their own deadlines
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Router returns the chi router (used by tests).
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening for requests. Blocks until Shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
