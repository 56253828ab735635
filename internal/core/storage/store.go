package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound 鍵不存在
var ErrNotFound = errors.New("storage: key not found")

// 儲存鍵
const (
	KeyPreferences  = "userPreferences"
	KeySavedRecipes = "savedRecipes"
)

// Store 鍵值儲存介面
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore 記憶體內的鍵值儲存
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get 讀取值
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set 寫入值
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Remove 刪除值，不存在時不視為錯誤
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// RedisStore 以 Redis 保存的鍵值儲存
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 創建 Redis 儲存
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "fridge-to-feast:store:"}
}

// Get 讀取值
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return val, nil
}

// Set 寫入值，不設過期時間
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Remove 刪除值
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

type scopedStore struct {
	base  Store
	scope string
}

// Scoped 以 scope 為前綴隔離不同客戶端的資料
func Scoped(base Store, scope string) Store {
	return &scopedStore{base: base, scope: scope}
}

func (s *scopedStore) key(key string) string {
	return "client:" + s.scope + ":" + key
}

func (s *scopedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.base.Get(ctx, s.key(key))
}

func (s *scopedStore) Set(ctx context.Context, key string, value []byte) error {
	return s.base.Set(ctx, s.key(key), value)
}

func (s *scopedStore) Remove(ctx context.Context, key string) error {
	return s.base.Remove(ctx, s.key(key))
}
