package state

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSearchHistory_DedupeMostRecentFirst(t *testing.T) {
	s := newTestStore()

	s.SetCurrentStock(&Quote{Symbol: "AAPL"})
	s.SetCurrentStock(&Quote{Symbol: "MSFT"})
	s.SetCurrentStock(&Quote{Symbol: "AAPL"})

	assert.Equal(t, []string{"AAPL", "MSFT"}, s.SearchHistory())
}

func TestSearchHistory_CappedAtTen(t *testing.T) {
	s := newTestStore()

	for i := 1; i <= 11; i++ {
		s.SetCurrentStock(&Quote{Symbol: fmt.Sprintf("SYM%02d", i)})
	}

	history := s.SearchHistory()
	assert.Len(t, history, 10)
	assert.Equal(t, "SYM11", history[0])
	assert.Equal(t, "SYM02", history[9])
}

func TestSearchHistory_SymbolsUppercased(t *testing.T) {
	s := newTestStore()

	s.SetCurrentStock(&Quote{Symbol: "aapl"})

	assert.Equal(t, []string{"AAPL"}, s.SearchHistory())
}

func TestSearchHistory_PersistFailureIsSwallowed(t *testing.T) {
	persister := &fakePersister{saveErr: assert.AnError}
	s := New(persister, zerolog.Nop())

	assert.NotPanics(t, func() {
		s.SetCurrentStock(&Quote{Symbol: "AAPL"})
	})
	assert.Equal(t, []string{"AAPL"}, s.SearchHistory())
}

func TestSearchHistory_PersistedOnEveryChange(t *testing.T) {
	persister := &fakePersister{}
	s := New(persister, zerolog.Nop())

	s.SetCurrentStock(&Quote{Symbol: "AAPL"})
	s.SetCurrentStock(&Quote{Symbol: "MSFT"})

	assert.Len(t, persister.saved, 2)
	assert.Equal(t, []string{"MSFT", "AAPL"}, persister.saved[1])
}

func TestAddToWatchlist_VisibleImmediately(t *testing.T) {
	s := newTestStore()

	notifications := 0
	s.On(KeyWatchlist, func(newValue, oldValue interface{}) { notifications++ })

	s.AddToWatchlist(WatchItem{ID: "tmp-1", Symbol: "AAPL", AssetType: AssetTypeStock})

	list := s.Watchlist()
	assert.Len(t, list, 1)
	assert.Equal(t, "AAPL", list[0].Symbol)
	assert.Equal(t, 1, notifications)
}

func TestSetWatchlist_ReconcilesOptimisticEntries(t *testing.T) {
	s := newTestStore()

	// Optimistic add with a client-generated id
	s.AddToWatchlist(WatchItem{ID: "client-uuid", Symbol: "AAPL"})

	// Full reload with the canonical server list must fully replace the
	// optimistic entry - duplicates must never appear
	s.SetWatchlist([]WatchItem{{ID: "42", Symbol: "AAPL"}})

	list := s.Watchlist()
	assert.Len(t, list, 1)
	assert.Equal(t, "42", list[0].ID)
	assert.True(t, s.WatchlistLoaded())
}

func TestRemoveFromWatchlist_FiltersBySymbolAndReturnsRemoved(t *testing.T) {
	s := newTestStore()

	s.SetWatchlist([]WatchItem{
		{ID: "1", Symbol: "AAPL"},
		{ID: "2", Symbol: "MSFT"},
	})

	removed := s.RemoveFromWatchlist("aapl")

	assert.Len(t, removed, 1)
	assert.Equal(t, "1", removed[0].ID)

	list := s.Watchlist()
	assert.Len(t, list, 1)
	assert.Equal(t, "MSFT", list[0].Symbol)
}

func TestRemoveFromWatchlist_UnknownSymbolNoNotification(t *testing.T) {
	s := newTestStore()
	s.SetWatchlist([]WatchItem{{ID: "1", Symbol: "AAPL"}})

	notifications := 0
	s.On(KeyWatchlist, func(newValue, oldValue interface{}) { notifications++ })

	removed := s.RemoveFromWatchlist("TSLA")

	assert.Nil(t, removed)
	assert.Equal(t, 0, notifications)
	assert.Len(t, s.Watchlist(), 1)
}

func TestSetPortfolio_ShallowMergesPartialFields(t *testing.T) {
	s := newTestStore()

	s.SetPortfolio(PortfolioPatch{
		TW: []Holding{{Symbol: "2330.TW", Quantity: 1000}},
	})
	s.SetPortfolio(PortfolioPatch{
		Summary: &PortfolioSummary{TotalValue: 50000},
	})

	portfolio := s.Portfolio()
	assert.Len(t, portfolio.TW, 1, "earlier TW holdings survive a summary-only patch")
	assert.NotNil(t, portfolio.Summary)
	assert.Equal(t, 50000.0, portfolio.Summary.TotalValue)
	assert.True(t, s.PortfolioLoaded())
}

func TestInvalidateWatchlist_ClearsLoadedFlag(t *testing.T) {
	s := newTestStore()

	s.SetWatchlist([]WatchItem{{ID: "1", Symbol: "AAPL"}})
	assert.True(t, s.WatchlistLoaded())

	s.InvalidateWatchlist()
	assert.False(t, s.WatchlistLoaded())

	// The list itself is untouched; only the fetch guard resets
	assert.Len(t, s.Watchlist(), 1)
}

func TestSetMarketOverview_UpdatesAllThreeFields(t *testing.T) {
	s := newTestStore()

	s.SetMarketOverview(
		[]MarketIndex{{Symbol: "^GSPC", Name: "S&P 500", Price: 5800}},
		"greed",
		64000,
	)

	indices, _ := s.Get(KeyMarketIndices).([]MarketIndex)
	assert.Len(t, indices, 1)
	assert.Equal(t, "greed", s.Get(KeySentiment))
	assert.Equal(t, 64000.0, s.Get(KeyBTCPrice))
}
