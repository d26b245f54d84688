package service

import (
	"context"
	"encoding/json"
	"errors"
	"examprep_backend/internal/util"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// SessionStore 保存进行中的考试和已计算的成绩，值以 JSON 存储
type SessionStore interface {
	// Get 读取 key 到 dst，key 不存在时返回 false
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

// RedisSessionStore 多实例部署时使用
type RedisSessionStore struct {
	Redis  *redis.Client
	Prefix string
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{Redis: rdb, Prefix: "examprep:"}
}

func (s *RedisSessionStore) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := s.Redis.Get(ctx, s.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.Redis.Set(ctx, s.Prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisSessionStore) Clear(ctx context.Context, key string) error {
	if err := s.Redis.Del(ctx, s.Prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}
	return nil
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessionStore 单实例或未启用 Redis 时使用，进程重启即丢失
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok && !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemorySessionStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Sweep 清理过期条目，由定时任务调用
func (s *MemorySessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
