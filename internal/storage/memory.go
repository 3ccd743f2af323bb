package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStorage keeps tasks in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewMemoryStorage returns an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{tasks: make(map[string]Task)}
}

func (s *MemoryStorage) CreateTask(_ context.Context, task Task) error {
	if err := validateTask(task); err != nil {
		return err
	}
	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) GetTask(_ context.Context, id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return task, nil
}

// ListTasks returns up to limit tasks, newest first. A non-positive limit means all.
func (s *MemoryStorage) ListTasks(_ context.Context, limit int) ([]Task, error) {
	s.mu.RLock()
	out := make([]Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, task)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStorage) Ping(context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
