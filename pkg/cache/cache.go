// Package cache stores the expensive intermediate results of a flow build:
// oracle predictions and computed layouts.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON entry file per key, for the CLI
//   - [RedisCache]: shared cache for several workers
//
// # Keys
//
// A [Keyer] derives keys from content hashes, so identical inputs hit the
// same entry no matter which flow they belong to:
//
//	key := keyer.PredictionKey(oracleURL, frames.Digest(), interval)
//	key := keyer.LayoutKey(cache.AdjacencyHash(adj))
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/screenflow/screenflow/pkg/observability"
)

// Default time-to-live per entry type.
const (
	PredictionTTL = 7 * 24 * time.Hour
	LayoutTTL     = 30 * 24 * time.Hour
)

// Key types reported to cache hooks.
const (
	KeyTypePredictions = "predictions"
	KeyTypeLayout      = "layout"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// A TTL of zero means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// PredictionKey identifies the answer of the oracle at oracleURL for a
	// frame set.
	PredictionKey(oracleURL, framesDigest string, interval int) string
	// LayoutKey identifies the layout of an adjacency map.
	LayoutKey(adjacencyHash string) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PredictionKey returns "predictions:<hash>".
func (DefaultKeyer) PredictionKey(oracleURL, framesDigest string, interval int) string {
	return hashKey(KeyTypePredictions, oracleURL, framesDigest, interval)
}

// LayoutKey returns "layout:<hash>".
func (DefaultKeyer) LayoutKey(adjacencyHash string) string {
	return hashKey(KeyTypeLayout, adjacencyHash)
}

// GetJSON reads key and decodes it into v. A hit that fails to decode is
// treated as a miss. keyType is reported to the registered cache hooks.
func GetJSON(ctx context.Context, c Cache, keyType, key string, v any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || json.Unmarshal(data, v) != nil {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false, nil
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, keyType, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
	return nil
}
