package database

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sartorproj/stockcast/timeseries"
)

const historyKeyPrefix = "history:"

type cachedObservation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// HistoryCache is a Redis read-through cache in front of a HistorySource.
// It stores raw rows only. Redis failures fall through to the source.
type HistoryCache struct {
	source HistorySource
	redis  *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

// NewHistoryCache wraps source. A nil logger uses the standard logrus logger.
func NewHistoryCache(source HistorySource, client *redis.Client, ttl time.Duration, log *logrus.Entry) *HistoryCache {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &HistoryCache{
		source: source,
		redis:  client,
		ttl:    ttl,
		log:    log.WithField("component", "history_cache"),
	}
}

// HistoryKey returns the cache key for an item code.
func HistoryKey(itemCode string) string {
	return historyKeyPrefix + strings.ToLower(strings.TrimSpace(itemCode))
}

// MonthlyHistory serves from Redis when possible and fills it on a miss.
// Empty histories are not cached.
func (c *HistoryCache) MonthlyHistory(ctx context.Context, itemCode string) ([]timeseries.Observation, error) {
	key := HistoryKey(itemCode)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []cachedObservation
		if err := json.Unmarshal(data, &cached); err == nil {
			obs := make([]timeseries.Observation, len(cached))
			for i, o := range cached {
				obs[i] = timeseries.Observation{Date: o.Date, Value: o.Value}
			}
			return obs, nil
		}
		c.log.WithField("key", key).Warn("discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.WithError(err).WithField("key", key).Warn("cache read failed")
	}

	obs, err := c.source.MonthlyHistory(ctx, itemCode)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return obs, nil
	}

	cached := make([]cachedObservation, len(obs))
	for i, o := range obs {
		cached[i] = cachedObservation{Date: o.Date, Value: o.Value}
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		c.log.WithError(err).Warn("cache encode failed")
		return obs, nil
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return obs, nil
}
