package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis"

	"github.com/wricardo/telemetry-dashboard/board/counter"
)

// DefaultRedisKey is the key holding the snapshot when none is configured.
const DefaultRedisKey = "dashboard:snapshot"

// KeyValue is the subset of the redis client used by RedisStore.
type KeyValue interface {
	Get(key string) *redis.StringCmd
	Set(key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore implements SnapshotStore using a single redis key
type RedisStore struct {
	client KeyValue
	key    string
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(addr, password string, db int, key string) (*RedisStore, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return NewRedisStoreWithClient(client, key), client, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client KeyValue, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (rs *RedisStore) Save(ctx context.Context, snapshot *counter.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := rs.client.Set(rs.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

func (rs *RedisStore) Load(ctx context.Context) (*counter.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := rs.client.Get(rs.key).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	return DecodeSnapshot(data)
}
