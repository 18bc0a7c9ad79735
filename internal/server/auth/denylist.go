package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked access tokens by jti until they would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const denylistKeyPrefix = "catalog:denylist:"

// RedisDenylist keeps revocations in Redis so they are shared by all
// replicas and survive restarts. Entries expire together with the token.
type RedisDenylist struct {
	redis *redis.Client
	now   func() time.Time
}

func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{redis: client, now: time.Now}
}

func (d *RedisDenylist) key(jti string) string {
	return denylistKeyPrefix + jti
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.redis.Set(ctx, d.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.redis.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// MemoryDenylist is a process-local Denylist. Revocations are lost on
// restart and are not visible to other replicas.
type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{revoked: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDenylist) Revoke(_ context.Context, jti string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !until.After(now) {
		return nil
	}
	for k, exp := range d.revoked {
		if !exp.After(now) {
			delete(d.revoked, k)
		}
	}
	d.revoked[jti] = until
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.revoked[jti]
	if !ok {
		return false, nil
	}
	if !exp.After(d.now()) {
		delete(d.revoked, jti)
		return false, nil
	}
	return true, nil
}
