package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/JustynaSek/Fridge-To-Feast/internal/infrastructure/config"
	"github.com/JustynaSek/Fridge-To-Feast/internal/pkg/common"
)

// RedisCache 以 Redis 保存的緩存，多個實例可共用
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache 創建 Redis 緩存
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "fridge-to-feast:cache:"}
}

// Get 獲取緩存
func (s *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		common.LogCacheMiss("redis")
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	common.LogCacheHit("redis")
	return val, nil
}

// Set 設置緩存
func (s *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// GetStats 連線池統計
func (s *RedisCache) GetStats() map[string]interface{} {
	pool := s.client.PoolStats()
	return map[string]interface{}{
		"backend":     "redis",
		"ttl":         s.ttl.String(),
		"pool_hits":   pool.Hits,
		"pool_misses": pool.Misses,
		"timeouts":    pool.Timeouts,
		"total_conns": pool.TotalConns,
		"idle_conns":  pool.IdleConns,
	}
}

// Close 關閉連線
func (s *RedisCache) Close() error {
	return s.client.Close()
}

// NewRedisClient 依設定建立 Redis 連線並測試連接
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// New 依設定建立緩存；停用時回傳 nil，Redis 無法連線時退回記憶體緩存
func New(ctx context.Context, cfg *config.Config) Cache {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil
	}

	if cfg.Cache.Backend == "redis" {
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err == nil {
			common.LogInfo("使用 Redis 快取", zap.String("addr", cfg.Redis.Addr))
			return NewRedisCache(client, cfg.Cache.TTL)
		}
		common.LogWarn("Redis 快取無法連線，改用記憶體快取", zap.Error(err))
	}
	return NewManager(cfg.Cache)
}
