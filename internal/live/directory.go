// Package live tracks which users currently hold a live connection. The
// directory is an injected service with an explicit lifecycle; lookups are
// best-effort and eventual consistency here is acceptable (delivery falls back
// to the durable notification record).
package live

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Directory maps a user identity to a reachable live handle.
type Directory interface {
	Register(ctx context.Context, userID int64, handle string) error
	Lookup(ctx context.Context, userID int64) (handle string, ok bool, err error)
	Unregister(ctx context.Context, userID int64) error
}

const (
	// keyConn is the per-user connection key: live:conn:{user_id} -> handle.
	keyConn = "live:conn:%d"
	// channelPrefix namespaces the per-handle pub/sub channels.
	channelPrefix = "live:push:"
)

// connTTL bounds how long a stale registration can shadow a dead connection.
var connTTL = 2 * time.Minute

// NewClient creates a Redis client for the directory.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// RedisDirectory is the Redis-backed Directory used in production.
type RedisDirectory struct {
	rdb *redis.Client
}

func NewRedisDirectory(rdb *redis.Client) *RedisDirectory {
	return &RedisDirectory{rdb: rdb}
}

func (d *RedisDirectory) Register(ctx context.Context, userID int64, handle string) error {
	if handle == "" {
		return errors.New("empty handle")
	}
	return d.rdb.Set(ctx, fmt.Sprintf(keyConn, userID), handle, connTTL).Err()
}

func (d *RedisDirectory) Lookup(ctx context.Context, userID int64) (string, bool, error) {
	handle, err := d.rdb.Get(ctx, fmt.Sprintf(keyConn, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return handle, true, nil
}

func (d *RedisDirectory) Unregister(ctx context.Context, userID int64) error {
	return d.rdb.Del(ctx, fmt.Sprintf(keyConn, userID)).Err()
}

// Push publishes a payload on the handle's channel. Subscribers (socket
// gateways) forward it to the actual connection.
func (d *RedisDirectory) Push(ctx context.Context, handle string, payload []byte) error {
	return d.rdb.Publish(ctx, channelPrefix+handle, payload).Err()
}
