package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/salesops/workflow/internal/config"
	"github.com/salesops/workflow/internal/metrics"
)

const stocksPath = "/api/mssql/inventory/stocks"

// Client calls the inventory catalog over HTTP, going through the cache when one is set.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
}

// NewClient creates a catalog client. cache may be nil.
func NewClient(cfg config.InventoryConfig, cache Cache) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
	}
}

// ListStocks returns the full catalog. Cache errors are logged and fall through to the catalog.
func (c *Client) ListStocks(ctx context.Context) ([]Stock, error) {
	if c.cache != nil {
		stocks, ok, err := c.cache.GetStocks(ctx)
		switch {
		case err != nil:
			metrics.InventoryLookupsTotal.WithLabelValues("cache", "error").Inc()
			slog.WarnContext(ctx, "inventory cache read failed", "error", err)
		case ok:
			metrics.InventoryLookupsTotal.WithLabelValues("cache", "hit").Inc()
			return stocks, nil
		default:
			metrics.InventoryLookupsTotal.WithLabelValues("cache", "miss").Inc()
		}
	}

	stocks, err := c.fetchStocks(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetStocks(ctx, stocks); err != nil {
			slog.WarnContext(ctx, "inventory cache write failed", "error", err)
		}
	}
	return stocks, nil
}

func (c *Client) fetchStocks(ctx context.Context) (stocks []Stock, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.InventoryLookupsTotal.WithLabelValues("remote", status).Inc()
		metrics.InventoryLookupDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+stocksPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build inventory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory catalog unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inventory catalog returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&stocks); err != nil {
		return nil, fmt.Errorf("failed to decode inventory response: %w", err)
	}
	if stocks == nil {
		stocks = []Stock{}
	}
	return stocks, nil
}

// SearchStocks filters the catalog by query and returns at most limit items (all when limit <= 0).
func (c *Client) SearchStocks(ctx context.Context, query string, limit int) ([]Stock, error) {
	stocks, err := c.ListStocks(ctx)
	if err != nil {
		return nil, err
	}
	matched := Filter(stocks, query)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// StockExists reports whether itemID is a catalog Id.
func (c *Client) StockExists(ctx context.Context, itemID string) (bool, error) {
	stocks, err := c.ListStocks(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range stocks {
		if string(s.ID) == itemID {
			return true, nil
		}
	}
	return false, nil
}
