// Package state provides the observable application state store shared by
// every view of the dashboard: search, watchlist, portfolio and market
// overview all read and subscribe here instead of re-fetching from the
// network on navigation.
//
// Stores are constructed, not global, so tests can run independent
// instances side by side.
package state

import (
	"sync"

	"github.com/rs/zerolog"
)

// Key names a state field.
type Key string

// State field keys.
const (
	KeyUser            Key = "user"
	KeySection         Key = "currentSection"
	KeyCurrentStock    Key = "currentStock"
	KeyWatchlist       Key = "watchlist"
	KeyWatchlistLoaded Key = "watchlistLoaded"
	KeyPortfolio       Key = "portfolio"
	KeyPortfolioLoaded Key = "portfolioLoaded"
	KeyTags            Key = "tags"
	KeyTagsLoaded      Key = "tagsLoaded"
	KeyMarketIndices   Key = "marketIndices"
	KeySentiment       Key = "sentiment"
	KeyBTCPrice        Key = "btcPrice"
	KeySidebarOpen     Key = "sidebarOpen"
	KeyActiveModal     Key = "activeModal"
	KeyLoading         Key = "isLoading"
	KeySearchHistory   Key = "searchHistory"
)

// KeyReset is delivered on the wildcard channel when Reset clears per-user
// state (logout). It is not a settable field.
const KeyReset Key = "reset"

// Callback observes changes to a single key.
type Callback func(newValue, oldValue interface{})

// AnyCallback observes changes to every key (the wildcard channel).
type AnyCallback func(key Key, newValue, oldValue interface{})

// Unsubscribe deregisters the callback it was returned for. Calling it more
// than once is a no-op.
type Unsubscribe func()

// subscription is one registered key-level listener.
type subscription struct {
	id   uint64
	fn   Callback
	once bool
}

// anySubscription is one registered wildcard listener.
type anySubscription struct {
	id uint64
	fn AnyCallback
}

// HistoryPersister stores the search history between sessions. All calls are
// best-effort: failures are logged and swallowed, never surfaced.
type HistoryPersister interface {
	SaveSearchHistory(symbols []string) error
	LoadSearchHistory() ([]string, error)
}

// Store is the single source of truth for cross-view state.
//
// Set dispatches notifications synchronously, in registration order, before
// it returns: a caller that issues Set and then reads the field sees the new
// value, and every subscriber has already observed it. SetMultiple is NOT
// atomic across fields - each key notifies independently, so a subscriber
// reacting to the first key can observe the second key's old value.
type Store struct {
	mu      sync.Mutex
	fields  map[Key]interface{}
	subs    map[Key][]*subscription
	anySubs []*anySubscription
	nextID  uint64

	history HistoryPersister
	log     zerolog.Logger
}

// New creates an empty store. history may be nil to disable search history
// persistence.
func New(history HistoryPersister, log zerolog.Logger) *Store {
	return &Store{
		fields:  defaultFields(),
		subs:    make(map[Key][]*subscription),
		history: history,
		log:     log.With().Str("component", "state_store").Logger(),
	}
}

// defaultFields returns the initial value of every field.
func defaultFields() map[Key]interface{} {
	return map[Key]interface{}{
		KeyUser:            (*User)(nil),
		KeySection:         "",
		KeyCurrentStock:    (*Quote)(nil),
		KeyWatchlist:       []WatchItem(nil),
		KeyWatchlistLoaded: false,
		KeyPortfolio:       Portfolio{},
		KeyPortfolioLoaded: false,
		KeyTags:            []Tag(nil),
		KeyTagsLoaded:      false,
		KeyMarketIndices:   []MarketIndex(nil),
		KeySentiment:       "",
		KeyBTCPrice:        0.0,
		KeySidebarOpen:     false,
		KeyActiveModal:     "",
		KeyLoading:         false,
		KeySearchHistory:   []string(nil),
	}
}

// Init restores persisted search history. Corrupt or unavailable storage is
// treated as "no history", never fatal.
func (s *Store) Init() {
	if s.history == nil {
		return
	}
	symbols, err := s.history.LoadSearchHistory()
	if err != nil {
		s.log.Debug().Err(err).Msg("Failed to restore search history, starting empty")
		return
	}
	if len(symbols) > 0 {
		s.Set(KeySearchHistory, symbols)
	}
}

// Get returns the current value of a field. Callers must treat the returned
// value as a snapshot and never mutate it in place; updates go through Set
// or the domain setters.
func (s *Store) Get(key Key) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields[key]
}

// Set replaces the named field and notifies subscribers. Key-level
// subscribers receive (new, old); wildcard subscribers receive
// (key, new, old). All notifications complete before Set returns.
func (s *Store) Set(key Key, value interface{}) {
	s.mu.Lock()
	old := s.fields[key]
	s.fields[key] = value

	keySubs, anySubs := s.collectSubscribers(key)
	s.mu.Unlock()

	for _, sub := range keySubs {
		s.invoke(key, sub.fn, value, old)
	}
	for _, sub := range anySubs {
		s.invokeAny(sub.fn, key, value, old)
	}
}

// SetMultiple applies Set for each entry. Each key triggers its own
// independent notification; two fields can be momentarily inconsistent to a
// subscriber reacting to the first.
func (s *Store) SetMultiple(values map[Key]interface{}) {
	for key, value := range values {
		s.Set(key, value)
	}
}

// collectSubscribers snapshots the listener lists for dispatch and drops
// once-subscribers from the registry so they cannot fire twice even if a
// callback re-enters Set. Caller holds the lock.
func (s *Store) collectSubscribers(key Key) ([]*subscription, []*anySubscription) {
	current := s.subs[key]
	keySubs := make([]*subscription, len(current))
	copy(keySubs, current)

	hasOnce := false
	for _, sub := range current {
		if sub.once {
			hasOnce = true
			break
		}
	}
	if hasOnce {
		kept := current[:0]
		for _, sub := range current {
			if !sub.once {
				kept = append(kept, sub)
			}
		}
		s.subs[key] = kept
	}

	anySubs := make([]*anySubscription, len(s.anySubs))
	copy(anySubs, s.anySubs)
	return keySubs, anySubs
}

// invoke runs one key-level listener inside its own recover boundary so a
// panicking listener cannot block the rest or abort the triggering Set.
func (s *Store) invoke(key Key, fn Callback, newValue, oldValue interface{}) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("key", string(key)).
				Interface("panic", r).
				Msg("State subscriber panicked")
		}
	}()
	fn(newValue, oldValue)
}

// invokeAny runs one wildcard listener inside its own recover boundary.
func (s *Store) invokeAny(fn AnyCallback, key Key, newValue, oldValue interface{}) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("key", string(key)).
				Interface("panic", r).
				Msg("Wildcard state subscriber panicked")
		}
	}()
	fn(key, newValue, oldValue)
}

// On registers a callback for changes to key. Multiple callbacks per key are
// allowed; they run in registration order.
func (s *Store) On(key Key, fn Callback) Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sub := &subscription{id: s.nextID, fn: fn}
	s.subs[key] = append(s.subs[key], sub)
	return s.unsubscriber(key, sub.id)
}

// Once registers a callback that fires exactly once, then deregisters
// itself. The returned Unsubscribe can cancel it before it fires.
func (s *Store) Once(key Key, fn Callback) Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sub := &subscription{id: s.nextID, fn: fn, once: true}
	s.subs[key] = append(s.subs[key], sub)
	return s.unsubscriber(key, sub.id)
}

// OnAny registers a wildcard callback invoked for every key change and for
// the reset notification.
func (s *Store) OnAny(fn AnyCallback) Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sub := &anySubscription{id: s.nextID, fn: fn}
	s.anySubs = append(s.anySubs, sub)

	id := sub.id
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, candidate := range s.anySubs {
			if candidate.id == id {
				s.anySubs = append(s.anySubs[:i], s.anySubs[i+1:]...)
				return
			}
		}
	}
}

// unsubscriber builds the deregistration handle for a key-level
// subscription. Caller holds the lock.
func (s *Store) unsubscriber(key Key, id uint64) Unsubscribe {
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[key]
		for i, candidate := range subs {
			if candidate.id == id {
				s.subs[key] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Reset clears user-identifying and per-user collections at logout. Each
// cleared field notifies its own subscribers, then a single reset
// notification goes out on the wildcard channel for listeners that react to
// logout generically.
func (s *Store) Reset() {
	s.SetMultiple(map[Key]interface{}{
		KeyUser:            (*User)(nil),
		KeyWatchlist:       []WatchItem(nil),
		KeyWatchlistLoaded: false,
		KeyPortfolio:       Portfolio{},
		KeyPortfolioLoaded: false,
		KeyTags:            []Tag(nil),
		KeyTagsLoaded:      false,
	})

	s.mu.Lock()
	anySubs := make([]*anySubscription, len(s.anySubs))
	copy(anySubs, s.anySubs)
	s.mu.Unlock()

	for _, sub := range anySubs {
		s.invokeAny(sub.fn, KeyReset, nil, nil)
	}

	s.log.Info().Msg("State store reset")
}
