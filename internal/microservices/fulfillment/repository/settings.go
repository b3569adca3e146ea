package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"restaurant-fulfillment/internal/domain"
)

type SettingsRepositoryInterface interface {
	// Load returns the snapshot for one restaurant: stored rows over defaults.
	Load(ctx context.Context, restaurantID uuid.UUID) (domain.Settings, error)
}

type SettingsRepository struct {
	db       *sql.DB
	defaults domain.Settings
}

func NewSettingsRepository(db *sql.DB, defaults domain.Settings) *SettingsRepository {
	return &SettingsRepository{db: db, defaults: defaults}
}

func (r *SettingsRepository) Load(ctx context.Context, restaurantID uuid.UUID) (domain.Settings, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM restaurant_settings WHERE restaurant_id=$1`, restaurantID)
	if err != nil {
		return r.defaults, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	kv := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return r.defaults, err
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return r.defaults, err
	}
	return domain.ApplyValues(r.defaults, kv)
}

// CachedSettings keeps snapshots in Redis for ttl. Redis failures fall
// through to the inner repository.
type CachedSettings struct {
	inner SettingsRepositoryInterface
	rdb   redis.Cmdable
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedSettings(inner SettingsRepositoryInterface, rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) *CachedSettings {
	return &CachedSettings{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func settingsKey(restaurantID uuid.UUID) string { return "settings:" + restaurantID.String() }

func (c *CachedSettings) Load(ctx context.Context, restaurantID uuid.UUID) (domain.Settings, error) {
	key := settingsKey(restaurantID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var s domain.Settings
		if jerr := json.Unmarshal(raw, &s); jerr == nil {
			return s, nil
		}
		c.log.Warn("settings_cache_corrupt", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("settings_cache_unavailable", zap.String("key", key), zap.Error(err))
	}

	s, err := c.inner.Load(ctx, restaurantID)
	if err != nil {
		return s, err
	}
	if b, jerr := json.Marshal(s); jerr == nil {
		if serr := c.rdb.Set(ctx, key, b, c.ttl).Err(); serr != nil {
			c.log.Debug("settings_cache_set_failed", zap.String("key", key), zap.Error(serr))
		}
	}
	return s, nil
}
