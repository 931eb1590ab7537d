// Package dashboard implements the view-facing data flows: a view asks for
// data, the service consults the TTL cache, fetches on miss, and pushes the
// canonical copy into the state store so every subscribed view re-renders.
package dashboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marketlens/marketlens/internal/api"
	"github.com/marketlens/marketlens/internal/cache"
	"github.com/marketlens/marketlens/internal/session"
	"github.com/marketlens/marketlens/internal/state"
)

// overviewCacheKey is the single key used in the market overview cache.
const overviewCacheKey = "overview"

// Service coordinates the cache, the state store and the backend client.
type Service struct {
	api      *api.Client
	quotes   *cache.Cache
	overview *cache.Cache
	store    *state.Store
	session  *session.Manager
	search   *Debouncer
	log      zerolog.Logger
}

// Config holds service dependencies.
type Config struct {
	API      *api.Client
	Quotes   *cache.Cache
	Overview *cache.Cache
	Store    *state.Store
	Session  *session.Manager
	Log      zerolog.Logger
}

// New creates the dashboard service.
func New(cfg Config) *Service {
	return &Service{
		api:      cfg.API,
		quotes:   cfg.Quotes,
		overview: cfg.Overview,
		store:    cfg.Store,
		session:  cfg.Session,
		search:   NewDebouncer(AutocompleteDelay),
		log:      cfg.Log.With().Str("component", "dashboard").Logger(),
	}
}

// fail translates errors at the boundary: an authentication failure forces
// logout; everything else is returned for the view to display. Nothing is
// retried here - retry is a user action.
func (s *Service) fail(err error) error {
	if errors.Is(err, api.ErrUnauthorized) && s.session != nil {
		s.session.HandleAuthFailure()
	}
	return err
}

// LookupStock returns the quote for a symbol, serving from the cache when a
// fresh entry exists. On a fetch the cache and the state store are both
// updated; on any failure the cache is left untouched, so stale-but-valid
// entries stay servable.
func (s *Service) LookupStock(ctx context.Context, symbol string) (*state.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if cached, ok := s.quotes.Get(symbol); ok {
		quote := cached.(*state.Quote)
		s.log.Debug().Str("symbol", symbol).Msg("Quote cache hit")
		s.store.SetCurrentStock(quote)
		return quote, nil
	}

	quote, err := s.api.GetQuote(ctx, symbol)
	if err != nil {
		return nil, s.fail(err)
	}

	s.quotes.Put(symbol, quote)
	s.store.SetCurrentStock(quote)
	return quote, nil
}

// SearchStocks issues an autocomplete lookup immediately.
func (s *Service) SearchStocks(ctx context.Context, query string) ([]api.SymbolMatch, error) {
	matches, err := s.api.SearchSymbols(ctx, query)
	if err != nil {
		return nil, s.fail(err)
	}
	return matches, nil
}

// SearchStocksDebounced schedules an autocomplete lookup to run once typing
// pauses. Each call cancels the previous pending lookup, so only the last
// query in a burst reaches the network. deliver runs off the caller's
// goroutine.
func (s *Service) SearchStocksDebounced(query string, deliver func([]api.SymbolMatch, error)) {
	s.search.Trigger(func() {
		matches, err := s.SearchStocks(context.Background(), query)
		deliver(matches, err)
	})
}

// LoadWatchlist returns the watchlist, skipping the network while the
// loaded flag is set. force bypasses the guard.
func (s *Service) LoadWatchlist(ctx context.Context, force bool) ([]state.WatchItem, error) {
	if !force && s.store.WatchlistLoaded() {
		return s.store.Watchlist(), nil
	}

	items, err := s.api.GetWatchlist(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	s.store.SetWatchlist(items)
	return items, nil
}

// AddWatchItem applies the optimistic-UI pattern: the item appears in the
// watchlist immediately under a client-generated id, then the server call
// runs. On success the optimistic entry is swapped for the canonical server
// record; on failure it is reverted and subscribers notified again.
func (s *Service) AddWatchItem(ctx context.Context, item state.WatchItem) (*state.WatchItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	item.Symbol = strings.ToUpper(item.Symbol)

	s.store.AddToWatchlist(item)

	created, err := s.api.AddWatchItem(ctx, item)
	if err != nil {
		s.store.RemoveFromWatchlistByID(item.ID)
		s.log.Warn().Err(err).Str("symbol", item.Symbol).Msg("Watchlist add rejected, optimistic entry reverted")
		return nil, s.fail(err)
	}

	s.store.ReplaceWatchItem(item.ID, *created)
	return created, nil
}

// RemoveWatchItem removes a symbol optimistically, then confirms with the
// server. On failure the removed items are restored (appended back; order
// within the list is not preserved) and subscribers notified again.
func (s *Service) RemoveWatchItem(ctx context.Context, symbol string) error {
	removed := s.store.RemoveFromWatchlist(symbol)

	if err := s.api.RemoveWatchItem(ctx, symbol); err != nil {
		for _, item := range removed {
			s.store.AddToWatchlist(item)
		}
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Watchlist remove rejected, optimistic removal reverted")
		return s.fail(err)
	}
	return nil
}

// ImportWatchlist bulk-adds items and invalidates the loaded flag so the
// next LoadWatchlist fetches the canonical list.
func (s *Service) ImportWatchlist(ctx context.Context, items []state.WatchItem) (int, error) {
	imported, err := s.api.ImportWatchlist(ctx, items)
	if err != nil {
		return 0, s.fail(err)
	}
	s.store.InvalidateWatchlist()
	return imported, nil
}

// LoadPortfolio populates the portfolio, skipping the network while the
// loaded flag is set.
func (s *Service) LoadPortfolio(ctx context.Context, force bool) (state.Portfolio, error) {
	if !force && s.store.PortfolioLoaded() {
		return s.store.Portfolio(), nil
	}

	resp, err := s.api.GetPortfolio(ctx)
	if err != nil {
		return state.Portfolio{}, s.fail(err)
	}
	s.store.SetPortfolio(state.PortfolioPatch{
		TW:      resp.TW,
		US:      resp.US,
		Summary: resp.Summary,
	})
	return s.store.Portfolio(), nil
}

// LoadTags populates tag definitions, skipping the network while the loaded
// flag is set.
func (s *Service) LoadTags(ctx context.Context, force bool) ([]state.Tag, error) {
	if !force && s.store.TagsLoaded() {
		return s.store.Tags(), nil
	}

	tags, err := s.api.GetTags(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	s.store.SetTags(tags)
	return tags, nil
}

// LoadMarketOverview refreshes the dashboard header (indices, sentiment,
// BTC price), served from its own cache instance with a longer TTL than
// quotes.
func (s *Service) LoadMarketOverview(ctx context.Context) (*api.MarketOverview, error) {
	if cached, ok := s.overview.Get(overviewCacheKey); ok {
		overview := cached.(*api.MarketOverview)
		s.applyOverview(overview)
		return overview, nil
	}

	overview, err := s.api.GetMarketOverview(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	s.overview.Put(overviewCacheKey, overview)
	s.applyOverview(overview)
	return overview, nil
}

func (s *Service) applyOverview(overview *api.MarketOverview) {
	s.store.SetMarketOverview(overview.Indices, overview.Sentiment, overview.BTCPrice)
}

// ClearCaches empties both response caches. Wired to the user-facing
// "clear cache" action.
func (s *Service) ClearCaches() {
	s.quotes.Clear()
	s.overview.Clear()
	s.log.Info().Msg("Response caches cleared")
}

// Close stops the autocomplete debouncer.
func (s *Service) Close() {
	s.search.Stop()
}
