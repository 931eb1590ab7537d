package state

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestStore() *Store {
	return New(nil, zerolog.Nop())
}

func TestSet_NotifiesInRegistrationOrderBeforeReturning(t *testing.T) {
	s := newTestStore()

	var order []string
	s.On(KeySection, func(newValue, oldValue interface{}) {
		order = append(order, "first")
		assert.Equal(t, "dashboard", newValue)
		assert.Equal(t, "", oldValue)
	})
	s.On(KeySection, func(newValue, oldValue interface{}) {
		order = append(order, "second")
	})

	s.Set(KeySection, "dashboard")

	// Synchronous dispatch: both callbacks already ran
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "dashboard", s.Get(KeySection))
}

func TestSet_WildcardReceivesKeyNewOld(t *testing.T) {
	s := newTestStore()

	var gotKey Key
	var gotNew, gotOld interface{}
	s.OnAny(func(key Key, newValue, oldValue interface{}) {
		gotKey = key
		gotNew = newValue
		gotOld = oldValue
	})

	s.Set(KeyBTCPrice, 64000.0)

	assert.Equal(t, KeyBTCPrice, gotKey)
	assert.Equal(t, 64000.0, gotNew)
	assert.Equal(t, 0.0, gotOld)
}

func TestUnsubscribe_OnlyRemovesItsOwnCallback(t *testing.T) {
	s := newTestStore()

	calls := map[string]int{}
	unsubA := s.On(KeyLoading, func(newValue, oldValue interface{}) { calls["a"]++ })
	s.On(KeyLoading, func(newValue, oldValue interface{}) { calls["b"]++ })

	s.Set(KeyLoading, true)
	unsubA()
	s.Set(KeyLoading, false)

	assert.Equal(t, 1, calls["a"])
	assert.Equal(t, 2, calls["b"])

	// Double-unsubscribe is a no-op
	unsubA()
	s.Set(KeyLoading, true)
	assert.Equal(t, 1, calls["a"])
	assert.Equal(t, 3, calls["b"])
}

func TestOnce_FiresExactlyOnce(t *testing.T) {
	s := newTestStore()

	count := 0
	s.Once(KeySection, func(newValue, oldValue interface{}) { count++ })

	s.Set(KeySection, "search")
	s.Set(KeySection, "watchlist")
	s.Set(KeySection, "portfolio")

	assert.Equal(t, 1, count)
}

func TestOnce_CanBeCancelledBeforeFiring(t *testing.T) {
	s := newTestStore()

	count := 0
	unsub := s.Once(KeySection, func(newValue, oldValue interface{}) { count++ })
	unsub()

	s.Set(KeySection, "search")
	assert.Equal(t, 0, count)
}

func TestSet_PanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	s := newTestStore()

	var survived bool
	s.On(KeyLoading, func(newValue, oldValue interface{}) {
		panic("faulty listener")
	})
	s.On(KeyLoading, func(newValue, oldValue interface{}) {
		survived = true
	})

	assert.NotPanics(t, func() {
		s.Set(KeyLoading, true)
	})
	assert.True(t, survived)
	assert.Equal(t, true, s.Get(KeyLoading))
}

func TestSetMultiple_EachKeyNotifiesIndependently(t *testing.T) {
	s := newTestStore()

	notified := map[Key]int{}
	s.OnAny(func(key Key, newValue, oldValue interface{}) {
		notified[key]++
	})

	s.SetMultiple(map[Key]interface{}{
		KeySidebarOpen: true,
		KeyActiveModal: "addStock",
	})

	assert.Equal(t, 1, notified[KeySidebarOpen])
	assert.Equal(t, 1, notified[KeyActiveModal])
}

func TestReset_ClearsPerUserDataAndNotifies(t *testing.T) {
	s := newTestStore()

	s.SetUser(&User{ID: 1, Email: "a@b.c"})
	s.SetWatchlist([]WatchItem{{ID: "1", Symbol: "AAPL"}})
	s.SetPortfolio(PortfolioPatch{
		US:      []Holding{{Symbol: "AAPL", Quantity: 10}},
		Summary: &PortfolioSummary{TotalValue: 1500},
	})
	s.SetTags([]Tag{{ID: 1, Name: "growth"}})

	resetSeen := false
	s.OnAny(func(key Key, newValue, oldValue interface{}) {
		if key == KeyReset {
			resetSeen = true
		}
	})

	s.Reset()

	assert.Nil(t, s.User())
	assert.Empty(t, s.Watchlist())
	assert.False(t, s.WatchlistLoaded())
	assert.Equal(t, Portfolio{}, s.Portfolio())
	assert.False(t, s.PortfolioLoaded())
	assert.Empty(t, s.Tags())
	assert.False(t, s.TagsLoaded())
	assert.True(t, resetSeen, "wildcard reset notification should fire")
}

func TestReset_KeepsSearchHistoryAndUIState(t *testing.T) {
	s := newTestStore()

	s.SetCurrentStock(&Quote{Symbol: "AAPL", Price: 150})
	s.SetSection("portfolio")

	s.Reset()

	assert.Equal(t, []string{"AAPL"}, s.SearchHistory())
	assert.Equal(t, "portfolio", s.Get(KeySection))
}

// fakePersister records saves and serves a canned history.
type fakePersister struct {
	saved   [][]string
	load    []string
	loadErr error
	saveErr error
}

func (f *fakePersister) SaveSearchHistory(symbols []string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, symbols)
	return nil
}

func (f *fakePersister) LoadSearchHistory() ([]string, error) {
	return f.load, f.loadErr
}

func TestInit_RestoresPersistedHistory(t *testing.T) {
	persister := &fakePersister{load: []string{"TSLA", "AAPL"}}
	s := New(persister, zerolog.Nop())

	s.Init()

	assert.Equal(t, []string{"TSLA", "AAPL"}, s.SearchHistory())
}

func TestInit_StorageFailureMeansNoHistory(t *testing.T) {
	persister := &fakePersister{loadErr: assert.AnError}
	s := New(persister, zerolog.Nop())

	assert.NotPanics(t, func() { s.Init() })
	assert.Empty(t, s.SearchHistory())
}
