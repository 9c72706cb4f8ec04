package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chachabrian/carbid-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	BidUpdatesChannel     = "bid:updates"
	BookingUpdatesChannel = "booking:updates"
)

// InitRedis parses redisURL and checks the server is reachable.
func InitRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisCache caches the highest live bid per vehicle and publishes status
// updates for other subscribers.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func highestBidKey(vehicleID string) string {
	return "vehicle:highest_bid:" + vehicleID
}

// GetHighestBid reports hit=false on a cache miss. A cached "no bids" entry
// is a hit with a nil bid.
func (c *RedisCache) GetHighestBid(ctx context.Context, vehicleID string) (*models.PublicBid, bool, error) {
	data, err := c.client.Get(ctx, highestBidKey(vehicleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var bid *models.PublicBid
	if err := json.Unmarshal(data, &bid); err != nil {
		return nil, false, err
	}
	return bid, true, nil
}

func (c *RedisCache) SetHighestBid(ctx context.Context, vehicleID string, bid *models.PublicBid) error {
	data, err := json.Marshal(bid)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, highestBidKey(vehicleID), data, c.ttl).Err()
}

func (c *RedisCache) InvalidateHighestBid(ctx context.Context, vehicleID string) error {
	return c.client.Del(ctx, highestBidKey(vehicleID)).Err()
}

// Publish sends a status update on channel.
func (c *RedisCache) Publish(ctx context.Context, channel string, update StatusUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, channel, data).Err()
}

// StatusUpdate is the pub/sub payload for bid and booking changes.
type StatusUpdate struct {
	Event     string      `json:"event"`
	ID        string      `json:"id"`
	Status    string      `json:"status"`
	UserID    string      `json:"userId"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}
