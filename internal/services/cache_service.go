package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"fulfillment-api/pkg/logging"
)

// CacheService wraps Redis for the two cache concerns the portal has:
// short-lived subscription snapshots and webhook replay protection.
type CacheService struct {
	client *redis.Client
	logger logging.Logger
}

// NewCacheService creates a cache service over an already connected client.
func NewCacheService(client *redis.Client, logger logging.Logger) *CacheService {
	return &CacheService{client: client, logger: logger}
}

const (
	subscriptionKeyPrefix = "subscription:"
	replayKeyPrefix       = "webhook_seen:"
	replayTTL             = 24 * time.Hour
)

// SetSubscription caches a JSON snapshot of a subscription view.
func (c *CacheService) SetSubscription(ctx context.Context, id string, value interface{}, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Errorf("Cache marshal failed for subscription %s: %v", id, err)
		return
	}
	if err := c.client.Set(ctx, subscriptionKeyPrefix+id, payload, ttl).Err(); err != nil {
		c.logger.Warnf("Cache write failed for subscription %s: %v", id, err)
	}
}

// GetSubscription loads a cached snapshot into out. Returns false on miss or
// any Redis failure; a broken cache must never break a read path.
func (c *CacheService) GetSubscription(ctx context.Context, id string, out interface{}) bool {
	payload, err := c.client.Get(ctx, subscriptionKeyPrefix+id).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		c.logger.Warnf("Cache decode failed for subscription %s: %v", id, err)
		return false
	}
	return true
}

// InvalidateSubscription drops the cached snapshot after a lifecycle change.
func (c *CacheService) InvalidateSubscription(ctx context.Context, id string) {
	if err := c.client.Del(ctx, subscriptionKeyPrefix+id).Err(); err != nil {
		c.logger.Warnf("Cache invalidate failed for subscription %s: %v", id, err)
	}
}

// FirstDelivery records a webhook operation id and reports whether this is
// the first time it was seen. SETNX keeps the check atomic across instances.
func (c *CacheService) FirstDelivery(ctx context.Context, operationID string) (bool, error) {
	return c.client.SetNX(ctx, replayKeyPrefix+operationID, time.Now().Unix(), replayTTL).Result()
}
