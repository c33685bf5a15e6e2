// Package marketdata provides the in-process last-traded-price cache
// and its persistence: a msgpack file across restarts and a database
// table rewritten at each snapshot.
package marketdata

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// cacheFile is the on-disk msgpack layout
type cacheFile struct {
	Prices    map[string]float64 `msgpack:"prices"`
	UpdatedAt int64              `msgpack:"updated_at"`
}

// Cache is a concurrency-safe symbol -> last traded price map. It
// implements domain.PriceProvider for the valuation core.
type Cache struct {
	mu        sync.RWMutex
	prices    map[string]float64
	updatedAt time.Time
	path      string
	log       zerolog.Logger
}

// NewCache creates a price cache backed by the msgpack file at path.
// A missing or unreadable file starts the cache empty; prices are
// ephemeral data and are never worth refusing to start over.
func NewCache(path string, log zerolog.Logger) *Cache {
	c := &Cache{
		prices: make(map[string]float64),
		path:   path,
		log:    log.With().Str("component", "price_cache").Logger(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("path", path).Msg("Failed to read price cache file, starting empty")
		}
		return c
	}

	var f cacheFile
	if err := msgpack.Unmarshal(data, &f); err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("Corrupt price cache file, starting empty")
		return c
	}

	if f.Prices != nil {
		c.prices = f.Prices
	}
	c.updatedAt = time.Unix(f.UpdatedAt, 0).UTC()
	c.log.Info().Int("symbols", len(c.prices)).Msg("Price cache loaded")
	return c
}

// Price implements domain.PriceProvider
func (c *Cache) Price(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[symbol]
	return p, ok
}

// Set stores one symbol's last traded price. Non-positive prices are
// ignored rather than poisoning valuations.
func (c *Cache) Set(symbol string, price float64) {
	if price <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[symbol] = price
	c.updatedAt = time.Now().UTC()
}

// SetAll merges a batch of prices into the cache
func (c *Cache) SetAll(prices map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for symbol, price := range prices {
		if price > 0 {
			c.prices[symbol] = price
		}
	}
	c.updatedAt = time.Now().UTC()
}

// All returns a copy of the current price map
func (c *Cache) All() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]float64, len(c.prices))
	for symbol, price := range c.prices {
		out[symbol] = price
	}
	return out
}

// UpdatedAt returns when the cache last changed
func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// Flush persists the cache to its msgpack file. Written via a temp file
// and rename so a crash mid-write never truncates the previous state.
func (c *Cache) Flush() error {
	c.mu.RLock()
	f := cacheFile{
		Prices:    make(map[string]float64, len(c.prices)),
		UpdatedAt: c.updatedAt.Unix(),
	}
	for symbol, price := range c.prices {
		f.Prices[symbol] = price
	}
	c.mu.RUnlock()

	data, err := msgpack.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal price cache: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create price cache dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write price cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace price cache: %w", err)
	}

	c.log.Debug().Int("symbols", len(f.Prices)).Msg("Price cache flushed")
	return nil
}
