package state

import "strings"

// maxSearchHistory caps the recency list maintained by SetCurrentStock.
const maxSearchHistory = 10

// SetUser replaces the current user record.
func (s *Store) SetUser(user *User) {
	s.Set(KeyUser, user)
}

// User returns the current user, or nil when logged out.
func (s *Store) User() *User {
	user, _ := s.Get(KeyUser).(*User)
	return user
}

// SetSection records which view is active.
func (s *Store) SetSection(section string) {
	s.Set(KeySection, section)
}

// SetLoading toggles the global loading flag.
func (s *Store) SetLoading(loading bool) {
	s.Set(KeyLoading, loading)
}

// SetModal records the active modal name ("" = none).
func (s *Store) SetModal(modal string) {
	s.Set(KeyActiveModal, modal)
}

// SetCurrentStock replaces the displayed quote and maintains the search
// history: most-recent-first, deduplicated by symbol, capped at
// maxSearchHistory entries. The history is persisted best-effort; storage
// failures are swallowed.
func (s *Store) SetCurrentStock(quote *Quote) {
	s.Set(KeyCurrentStock, quote)

	if quote == nil || quote.Symbol == "" {
		return
	}
	symbol := strings.ToUpper(quote.Symbol)

	old, _ := s.Get(KeySearchHistory).([]string)
	history := make([]string, 0, len(old)+1)
	history = append(history, symbol)
	for _, prev := range old {
		if prev != symbol {
			history = append(history, prev)
		}
	}
	if len(history) > maxSearchHistory {
		history = history[:maxSearchHistory]
	}
	s.Set(KeySearchHistory, history)

	if s.history != nil {
		if err := s.history.SaveSearchHistory(history); err != nil {
			s.log.Debug().Err(err).Msg("Failed to persist search history")
		}
	}
}

// CurrentStock returns the displayed quote, or nil.
func (s *Store) CurrentStock() *Quote {
	quote, _ := s.Get(KeyCurrentStock).(*Quote)
	return quote
}

// SearchHistory returns a copy of the recent-symbol list.
func (s *Store) SearchHistory() []string {
	history, _ := s.Get(KeySearchHistory).([]string)
	out := make([]string, len(history))
	copy(out, history)
	return out
}

// SetWatchlist replaces the watchlist with the canonical server list and
// marks it loaded. A full reload through here reconciles any optimistic
// entries still carrying client-generated ids.
func (s *Store) SetWatchlist(items []WatchItem) {
	s.Set(KeyWatchlist, items)
	s.Set(KeyWatchlistLoaded, true)
}

// Watchlist returns a copy of the current watchlist.
func (s *Store) Watchlist() []WatchItem {
	items, _ := s.Get(KeyWatchlist).([]WatchItem)
	out := make([]WatchItem, len(items))
	copy(out, items)
	return out
}

// WatchlistLoaded reports whether the watchlist has been populated at least
// once since the last invalidation.
func (s *Store) WatchlistLoaded() bool {
	loaded, _ := s.Get(KeyWatchlistLoaded).(bool)
	return loaded
}

// InvalidateWatchlist forces the next load to hit the network (used after
// imports and bulk mutations).
func (s *Store) InvalidateWatchlist() {
	s.Set(KeyWatchlistLoaded, false)
}

// AddToWatchlist appends an item optimistically, before server
// confirmation. The caller reverts through RemoveFromWatchlist (or reloads)
// if the server rejects the add.
func (s *Store) AddToWatchlist(item WatchItem) {
	current, _ := s.Get(KeyWatchlist).([]WatchItem)
	updated := make([]WatchItem, 0, len(current)+1)
	updated = append(updated, current...)
	updated = append(updated, item)
	s.Set(KeyWatchlist, updated)
}

// RemoveFromWatchlist drops every item with the given symbol
// (case-insensitive) optimistically, before server confirmation. It returns
// the removed items so a failed server call can restore them.
func (s *Store) RemoveFromWatchlist(symbol string) []WatchItem {
	target := strings.ToUpper(symbol)

	current, _ := s.Get(KeyWatchlist).([]WatchItem)
	kept := make([]WatchItem, 0, len(current))
	var removed []WatchItem
	for _, item := range current {
		if strings.ToUpper(item.Symbol) == target {
			removed = append(removed, item)
		} else {
			kept = append(kept, item)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	s.Set(KeyWatchlist, kept)
	return removed
}

// RemoveFromWatchlistByID drops the single item with the given id. Used to
// revert a failed optimistic add without touching other entries for the
// same symbol. Returns false if no item matched.
func (s *Store) RemoveFromWatchlistByID(id string) bool {
	current, _ := s.Get(KeyWatchlist).([]WatchItem)
	kept := make([]WatchItem, 0, len(current))
	found := false
	for _, item := range current {
		if item.ID == id {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return false
	}
	s.Set(KeyWatchlist, kept)
	return true
}

// ReplaceWatchItem swaps the item with oldID for the canonical server
// record, keeping its position. Used when a confirmed optimistic add comes
// back with the server-assigned id.
func (s *Store) ReplaceWatchItem(oldID string, item WatchItem) bool {
	current, _ := s.Get(KeyWatchlist).([]WatchItem)
	updated := make([]WatchItem, len(current))
	copy(updated, current)
	for i := range updated {
		if updated[i].ID == oldID {
			updated[i] = item
			s.Set(KeyWatchlist, updated)
			return true
		}
	}
	return false
}

// SetPortfolio shallow-merges the patch into the existing portfolio and
// marks it loaded. Nil patch fields keep their current value.
func (s *Store) SetPortfolio(patch PortfolioPatch) {
	current, _ := s.Get(KeyPortfolio).(Portfolio)
	if patch.TW != nil {
		current.TW = patch.TW
	}
	if patch.US != nil {
		current.US = patch.US
	}
	if patch.Summary != nil {
		current.Summary = patch.Summary
	}
	s.Set(KeyPortfolio, current)
	s.Set(KeyPortfolioLoaded, true)
}

// Portfolio returns the current portfolio snapshot.
func (s *Store) Portfolio() Portfolio {
	portfolio, _ := s.Get(KeyPortfolio).(Portfolio)
	return portfolio
}

// PortfolioLoaded reports whether the portfolio has been populated at least
// once since the last invalidation.
func (s *Store) PortfolioLoaded() bool {
	loaded, _ := s.Get(KeyPortfolioLoaded).(bool)
	return loaded
}

// SetTags replaces the tag list and marks it loaded.
func (s *Store) SetTags(tags []Tag) {
	s.Set(KeyTags, tags)
	s.Set(KeyTagsLoaded, true)
}

// Tags returns a copy of the tag list.
func (s *Store) Tags() []Tag {
	tags, _ := s.Get(KeyTags).([]Tag)
	out := make([]Tag, len(tags))
	copy(out, tags)
	return out
}

// TagsLoaded reports whether tags have been populated at least once.
func (s *Store) TagsLoaded() bool {
	loaded, _ := s.Get(KeyTagsLoaded).(bool)
	return loaded
}

// SetMarketOverview updates the dashboard overview fields. Independent
// notifications per field, same as SetMultiple.
func (s *Store) SetMarketOverview(indices []MarketIndex, sentiment string, btcPrice float64) {
	s.Set(KeyMarketIndices, indices)
	s.Set(KeySentiment, sentiment)
	s.Set(KeyBTCPrice, btcPrice)
}
