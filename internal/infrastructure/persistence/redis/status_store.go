package redis

import (
	"context"
	"fmt"
	"time"

	"unibook-api/internal/domain/entity"
)

const defaultStatusKeyPrefix = "generation:status:"

// GenerationStatusStore 将生成状态快照保存在 Redis
type GenerationStatusStore struct {
	cache  *Cache
	prefix string
	ttl    time.Duration
}

// NewGenerationStatusStore 创建状态存储；ttl 为 0 表示不过期
func NewGenerationStatusStore(cache *Cache, prefix string, ttl time.Duration) *GenerationStatusStore {
	if prefix == "" {
		prefix = defaultStatusKeyPrefix
	}
	return &GenerationStatusStore{cache: cache, prefix: prefix, ttl: ttl}
}

func (s *GenerationStatusStore) key(bookID string) string {
	return s.prefix + bookID
}

// Load 读取快照，不存在时返回 (nil, nil)
func (s *GenerationStatusStore) Load(ctx context.Context, bookID string) (*entity.GenerationStatus, error) {
	var status entity.GenerationStatus
	found, err := s.cache.GetJSON(ctx, s.key(bookID), &status)
	if err != nil {
		return nil, fmt.Errorf("failed to load generation status: %w", err)
	}
	if !found {
		return nil, nil
	}
	if status.Logs == nil {
		status.Logs = []string{}
	}
	return &status, nil
}

// Save 写入快照并刷新过期时间
func (s *GenerationStatusStore) Save(ctx context.Context, bookID string, status entity.GenerationStatus) error {
	if err := s.cache.Set(ctx, s.key(bookID), status, s.ttl); err != nil {
		return fmt.Errorf("failed to save generation status: %w", err)
	}
	return nil
}

// Delete 删除快照
func (s *GenerationStatusStore) Delete(ctx context.Context, bookID string) error {
	if err := s.cache.Delete(ctx, s.key(bookID)); err != nil {
		return fmt.Errorf("failed to delete generation status: %w", err)
	}
	return nil
}
