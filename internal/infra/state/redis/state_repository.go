package redisstate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// seedScript raises a counter key to at least ARGV[1] without ever lowering
// it, so a concurrent INCR cannot be undone by a stale seed.
var seedScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local want = tonumber(ARGV[1])
if cur < want then
	redis.call('SET', KEYS[1], want)
end
return cur
`)

// RedisStateRepository is the Redis implementation of StateRepository.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "eh:"
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key Generation Helpers ---

func (r *RedisStateRepository) eventIDKey(worldID, series string) string {
	return fmt.Sprintf("%seventid:%s:%s", r.keyPrefix, worldID, series)
}

func (r *RedisStateRepository) connectionsKey() string {
	return r.keyPrefix + "connections"
}

func (r *RedisStateRepository) subscriptionKey(channelID, userID string) string {
	return fmt.Sprintf("%ssubs:%s:%s", r.keyPrefix, channelID, userID)
}

func (r *RedisStateRepository) readPointerKey(userID string) string {
	return fmt.Sprintf("%sread:%s", r.keyPrefix, userID)
}

// --- StateRepository Interface Implementation ---

func (r *RedisStateRepository) NextEventID(ctx context.Context, worldID, series string) (uint64, error) {
	key := r.eventIDKey(worldID, series)
	id, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to allocate event id on key %s: %w", key, err)
	}
	return uint64(id), nil
}

func (r *RedisStateRepository) SeedEventID(ctx context.Context, worldID, series string, value uint64) error {
	key := r.eventIDKey(worldID, series)
	err := seedScript.Run(ctx, r.client, []string{key}, value).Err()
	if err != nil {
		return fmt.Errorf("redis: failed to seed event id on key %s: %w", key, err)
	}
	logrus.WithFields(logrus.Fields{
		"world":  worldID,
		"series": series,
		"value":  value,
	}).Warn("Event id sequencer re-seeded")
	return nil
}

func (r *RedisStateRepository) RegisterConnection(ctx context.Context, label string) error {
	err := r.client.HIncrBy(ctx, r.connectionsKey(), label, 1).Err()
	if err != nil {
		return fmt.Errorf("redis: failed to register connection for label %s: %w", label, err)
	}
	return nil
}

func (r *RedisStateRepository) UnregisterConnection(ctx context.Context, label string) error {
	count, err := r.client.HIncrBy(ctx, r.connectionsKey(), label, -1).Result()
	if err != nil {
		return fmt.Errorf("redis: failed to unregister connection for label %s: %w", label, err)
	}
	if count <= 0 {
		// Drop the field so dead labels do not accumulate in the hash.
		if err := r.client.HDel(ctx, r.connectionsKey(), label).Err(); err != nil {
			return fmt.Errorf("redis: failed to clean up connection label %s: %w", label, err)
		}
	}
	return nil
}

func (r *RedisStateRepository) ConnectionCounts(ctx context.Context) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, r.connectionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to read connection counts: %w", err)
	}
	counts := make(map[string]int64, len(raw))
	for label, value := range raw {
		n, parseErr := strconv.ParseInt(value, 10, 64)
		if parseErr != nil {
			logrus.Warnf("redis: unparseable connection count '%s' for label %s", value, label)
			continue
		}
		if n > 0 {
			counts[label] = n
		}
	}
	return counts, nil
}

func (r *RedisStateRepository) TrackSubscription(ctx context.Context, channelID, userID, socketID string) error {
	key := r.subscriptionKey(channelID, userID)
	err := r.client.SAdd(ctx, key, socketID).Err()
	if err != nil {
		return fmt.Errorf("redis: failed to track subscription on key %s: %w", key, err)
	}
	return nil
}

func (r *RedisStateRepository) TrackUnsubscription(ctx context.Context, channelID, userID, socketID string) (int64, error) {
	key := r.subscriptionKey(channelID, userID)
	pipe := r.client.Pipeline()
	pipe.SRem(ctx, key, socketID)
	cardCmd := pipe.SCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis: failed to track unsubscription on key %s: %w", key, err)
	}
	return cardCmd.Val(), nil
}

func (r *RedisStateRepository) SubscriberCount(ctx context.Context, channelID, userID string) (int64, error) {
	key := r.subscriptionKey(channelID, userID)
	count, err := r.client.SCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to count subscribers on key %s: %w", key, err)
	}
	return count, nil
}

func (r *RedisStateRepository) SetReadPointer(ctx context.Context, userID, channelID string, eventID uint64) error {
	key := r.readPointerKey(userID)
	err := r.client.HSet(ctx, key, channelID, eventID).Err()
	if err != nil {
		return fmt.Errorf("redis: failed to set read pointer on key %s: %w", key, err)
	}
	return nil
}

func (r *RedisStateRepository) ReadPointers(ctx context.Context, userID string) (map[string]uint64, error) {
	key := r.readPointerKey(userID)
	raw, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to read pointers from key %s: %w", key, err)
	}
	pointers := make(map[string]uint64, len(raw))
	for channelID, value := range raw {
		id, parseErr := strconv.ParseUint(value, 10, 64)
		if parseErr != nil {
			logrus.Warnf("redis: unparseable read pointer '%s' for user %s channel %s", value, userID, channelID)
			continue
		}
		pointers[channelID] = id
	}
	return pointers, nil
}

// CheckRateLimit increments the counter behind key and reports whether the
// limit is now exceeded within the window. Callers pass logical keys; the
// repository owns the namespace prefix like it does for every other key.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	key = r.keyPrefix + key
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", key, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to get incr result for rate limit on key %s: %w", key, err)
	}
	return count > int64(limit), nil
}
