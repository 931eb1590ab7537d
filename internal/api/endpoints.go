package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/marketlens/marketlens/internal/state"
)

// SymbolMatch is one autocomplete suggestion.
type SymbolMatch struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	AssetType string `json:"asset_type"`
}

// MarketOverview is the dashboard overview payload.
type MarketOverview struct {
	Indices   []state.MarketIndex `json:"indices"`
	Sentiment string              `json:"sentiment"`
	BTCPrice  float64             `json:"btc_price"`
}

// PortfolioResponse carries per-market holdings and the backend-computed
// summary.
type PortfolioResponse struct {
	TW      []state.Holding         `json:"tw"`
	US      []state.Holding         `json:"us"`
	Summary *state.PortfolioSummary `json:"summary"`
}

// GetQuote fetches the current quote for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*state.Quote, error) {
	var quote state.Quote
	path := "/stock/" + url.PathEscape(strings.ToUpper(symbol))
	if err := c.do(ctx, http.MethodGet, path, nil, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// SearchSymbols returns autocomplete matches for a partial name or ticker.
func (c *Client) SearchSymbols(ctx context.Context, query string) ([]SymbolMatch, error) {
	var matches []SymbolMatch
	path := "/stock/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// GetWatchlist fetches the canonical watchlist.
func (c *Client) GetWatchlist(ctx context.Context) ([]state.WatchItem, error) {
	var items []state.WatchItem
	if err := c.do(ctx, http.MethodGet, "/watchlist", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AddWatchItem creates a watch-item and returns the canonical server record
// (with the server-assigned id).
func (c *Client) AddWatchItem(ctx context.Context, item state.WatchItem) (*state.WatchItem, error) {
	var created state.WatchItem
	if err := c.do(ctx, http.MethodPost, "/watchlist", item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// RemoveWatchItem deletes every watch-item for the symbol.
func (c *Client) RemoveWatchItem(ctx context.Context, symbol string) error {
	path := "/watchlist/" + url.PathEscape(strings.ToUpper(symbol))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ImportWatchlist bulk-creates watch-items and returns how many the server
// accepted.
func (c *Client) ImportWatchlist(ctx context.Context, items []state.WatchItem) (int, error) {
	var result struct {
		Imported int `json:"imported"`
	}
	if err := c.do(ctx, http.MethodPost, "/watchlist/import", items, &result); err != nil {
		return 0, err
	}
	return result.Imported, nil
}

// GetPortfolio fetches holdings and summary for both markets.
func (c *Client) GetPortfolio(ctx context.Context) (*PortfolioResponse, error) {
	var portfolio PortfolioResponse
	if err := c.do(ctx, http.MethodGet, "/portfolio", nil, &portfolio); err != nil {
		return nil, err
	}
	return &portfolio, nil
}

// GetTags fetches the user's tag definitions.
func (c *Client) GetTags(ctx context.Context) ([]state.Tag, error) {
	var tags []state.Tag
	if err := c.do(ctx, http.MethodGet, "/tags", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// GetMarketOverview fetches indices, sentiment and the BTC price for the
// dashboard header.
func (c *Client) GetMarketOverview(ctx context.Context) (*MarketOverview, error) {
	var overview MarketOverview
	if err := c.do(ctx, http.MethodGet, "/market/overview", nil, &overview); err != nil {
		return nil, err
	}
	return &overview, nil
}
