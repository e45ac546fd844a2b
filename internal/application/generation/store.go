package generation

import (
	"context"
	"sync"
	"time"

	"unibook-api/internal/domain/entity"
)

// StatusStore 生成状态快照存储
type StatusStore interface {
	// Load 不存在时返回 (nil, nil)
	Load(ctx context.Context, bookID string) (*entity.GenerationStatus, error)
	Save(ctx context.Context, bookID string, status entity.GenerationStatus) error
	Delete(ctx context.Context, bookID string) error
}

// StepEvent 步骤变更事件
type StepEvent struct {
	BookID     string                  `json:"book_id"`
	Operation  string                  `json:"operation"`
	Status     entity.GenerationStatus `json:"status"`
	OccurredAt time.Time               `json:"occurred_at"`
}

// EventPublisher 步骤事件发布接口
type EventPublisher interface {
	PublishStep(ctx context.Context, event StepEvent) error
}

// MemoryStatusStore 进程内状态存储，用于测试及未接入 Redis 的本地运行
type MemoryStatusStore struct {
	mu       sync.RWMutex
	statuses map[string]entity.GenerationStatus
}

// NewMemoryStatusStore 创建进程内状态存储
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{statuses: make(map[string]entity.GenerationStatus)}
}

// Load 读取快照
func (s *MemoryStatusStore) Load(_ context.Context, bookID string) (*entity.GenerationStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[bookID]
	if !ok {
		return nil, nil
	}
	cp := st.Clone()
	return &cp, nil
}

// Save 写入快照
func (s *MemoryStatusStore) Save(_ context.Context, bookID string, status entity.GenerationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[bookID] = status.Clone()
	return nil
}

// Delete 删除快照
func (s *MemoryStatusStore) Delete(_ context.Context, bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, bookID)
	return nil
}
