package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"collab-backend/internal/model"
)

// strokeTTL cached stroke logs expire a day after the last write
const strokeTTL = 24 * time.Hour

// RedisClient wraps the Redis client for stroke-log caching
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("[Redis] Connected to %s", addr)
	return &RedisClient{client: client}, nil
}

func strokeKey(roomID string) string {
	return "board:" + roomID + ":strokes"
}

// AppendPoints appends stroke points to the room's cached log
func (r *RedisClient) AppendPoints(ctx context.Context, roomID string, points []model.StrokePoint) error {
	if len(points) == 0 {
		return nil
	}

	key := strokeKey(roomID)

	values := make([]interface{}, 0, len(points))
	for _, p := range points {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		values = append(values, data)
	}

	if err := r.client.RPush(ctx, key, values...).Err(); err != nil {
		log.Printf("[Redis] Failed to append points: %v", err)
		return err
	}

	// Refresh TTL on every write
	r.client.Expire(ctx, key, strokeTTL)

	return nil
}

// GetPoints retrieves the cached stroke log for a room.
// A missing key returns (nil, redis.Nil-free) empty result; callers fall back to the DB.
func (r *RedisClient) GetPoints(ctx context.Context, roomID string) ([]model.StrokePoint, bool, error) {
	key := strokeKey(roomID)

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, false, err
	}
	if exists == 0 {
		return nil, false, nil
	}

	results, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, false, err
	}

	points := make([]model.StrokePoint, 0, len(results))
	for _, data := range results {
		var p model.StrokePoint
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			continue
		}
		points = append(points, p)
	}

	return points, true, nil
}

// ReplacePoints rewrites the cached log from a full snapshot (cache rebuild)
func (r *RedisClient) ReplacePoints(ctx context.Context, roomID string, points []model.StrokePoint) error {
	key := strokeKey(roomID)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	for _, p := range points {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.Expire(ctx, key, strokeTTL)

	_, err := pipe.Exec(ctx)
	return err
}

// DeleteRoom removes the cached stroke log for a room
func (r *RedisClient) DeleteRoom(ctx context.Context, roomID string) error {
	return r.client.Del(ctx, strokeKey(roomID)).Err()
}

// Health checks if Redis is healthy
func (r *RedisClient) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}
