package railwaydb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/railway"
)

const notFoundCacheValue = "N/A"

// CachedIndex keeps railway and station lookups of another index in Redis.
// Spatial queries go straight to the wrapped index.
type CachedIndex struct {
	railway.Index

	Cache *cache.Cache[string]
}

func NewCachedIndex(index railway.Index, client *redis.Client, expiration time.Duration) *CachedIndex {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &CachedIndex{
		Index: index,
		Cache: cache.New[string](redisStore),
	}
}

func (c *CachedIndex) RailwayByID(ctx context.Context, id railway.RailwayID) (*railway.Railway, error) {
	return cachedLookup(ctx, c.Cache, fmt.Sprintf("railtracker:railway:%s", id), func() (*railway.Railway, error) {
		return c.Index.RailwayByID(ctx, id)
	})
}

func (c *CachedIndex) StationByID(ctx context.Context, id railway.StationID) (*railway.Station, error) {
	return cachedLookup(ctx, c.Cache, fmt.Sprintf("railtracker:station:%s", id), func() (*railway.Station, error) {
		return c.Index.StationByID(ctx, id)
	})
}

func (c *CachedIndex) StationsForRailway(ctx context.Context, id railway.RailwayID) ([]*railway.Station, error) {
	stations, err := cachedLookup(ctx, c.Cache, fmt.Sprintf("railtracker:railwaystations:%s", id), func() (*[]*railway.Station, error) {
		stations, err := c.Index.StationsForRailway(ctx, id)
		if err != nil {
			return nil, err
		}
		return &stations, nil
	})
	if err != nil {
		return nil, err
	}

	return *stations, nil
}

func cachedLookup[T any](ctx context.Context, c *cache.Cache[string], key string, load func() (*T, error)) (*T, error) {
	cacheValue, err := c.Get(ctx, key)
	if err == nil {
		if cacheValue == notFoundCacheValue {
			return nil, fmt.Errorf("%s: %w", key, railway.ErrNotFound)
		}

		var value T
		if err := json.Unmarshal([]byte(cacheValue), &value); err == nil {
			return &value, nil
		}
		log.Warn().Str("key", key).Msg("Dropping unreadable railway cache entry")
	}

	value, err := load()
	if errors.Is(err, railway.ErrNotFound) {
		c.Set(ctx, key, notFoundCacheValue)
		return nil, err
	} else if err != nil {
		return nil, err
	}

	valueJSON, err := json.Marshal(value)
	if err == nil {
		if err := c.Set(ctx, key, string(valueJSON)); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to cache railway lookup")
		}
	}

	return value, nil
}
