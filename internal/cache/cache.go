package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

// ErrMiss 表示缓存中没有对应的记录
var ErrMiss = errors.New("cache miss")

// RunCache 把优化记录缓存到 redis，结果较大，读取时优先走缓存
type RunCache struct {
	rdb       *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

func New(rdb *redis.Client, ttl, opTimeout time.Duration) *RunCache {
	return &RunCache{
		rdb:       rdb,
		ttl:       ttl,
		opTimeout: opTimeout,
	}
}

func runKey(id uuid.UUID) string {
	return fmt.Sprintf("optimization_run_%s", id)
}

func (c *RunCache) SetRun(ctx context.Context, run *domain.OptimizationRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	return c.rdb.Set(ctx, runKey(run.ID), data, c.ttl).Err()
}

// GetRun 在缓存未命中时返回 ErrMiss
func (c *RunCache) GetRun(ctx context.Context, id uuid.UUID) (*domain.OptimizationRun, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}

	run := &domain.OptimizationRun{}
	if err := json.Unmarshal(data, run); err != nil {
		return nil, fmt.Errorf("缓存中的优化记录无法解析: %w", err)
	}
	return run, nil
}

func (c *RunCache) DeleteRun(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	return c.rdb.Del(ctx, runKey(id)).Err()
}

func (c *RunCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	return c.rdb.Ping(ctx).Err()
}
