// Package dbcache keeps cache entries in the analytics_cache table so that
// every replica of the service shares them without running Redis.
package dbcache

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatlens/chatlens/pkg/apis/cache"
	"github.com/chatlens/chatlens/pkg/db"
	"github.com/chatlens/chatlens/pkg/db/models"
)

type Cache struct {
	dbc *db.DB
	now func() time.Time
}

func NewCache(dbc *db.DB) *Cache {
	return &Cache{dbc: dbc, now: time.Now}
}

// Get ignores rows whose expiry has passed, even if they have not been purged yet.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var entry models.AnalyticsCache
	err := c.dbc.DB.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", key, c.now()).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return entry.Payload, nil
}

// Set overwrites any entry with the same key and resets its expiry.
func (c *Cache) Set(ctx context.Context, key string, content []byte, duration time.Duration) error {
	now := c.now()
	entry := models.AnalyticsCache{
		Key:       key,
		Payload:   content,
		ExpiresAt: now.Add(duration),
		CreatedAt: now,
	}
	return c.dbc.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"cache_data", "expires_at", "created_at"}),
	}).Create(&entry).Error
}

// DeleteExpired purges rows past their expiry and returns how many were removed.
func (c *Cache) DeleteExpired(ctx context.Context) (int64, error) {
	res := c.dbc.DB.WithContext(ctx).
		Where("expires_at <= ?", c.now()).
		Delete(&models.AnalyticsCache{})
	if res.Error != nil {
		return 0, res.Error
	}
	log.WithField("rows", res.RowsAffected).Info("deleted expired cache entries")
	return res.RowsAffected, nil
}
