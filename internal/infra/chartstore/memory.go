package chartstore

import (
	"context"
	"sync"

	"github.com/yanqian/telemetry-trend/internal/domain/trend"
)

// MemoryStorage keeps exported charts in memory for local development.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStorage constructs the storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

// Put implements trend.ChartStorage.
func (s *MemoryStorage) Put(_ context.Context, key, contentType string, data []byte) (trend.StoredObject, error) {
	copied := append([]byte(nil), data...)
	s.mu.Lock()
	s.objects[key] = memoryObject{data: copied, contentType: contentType}
	s.mu.Unlock()
	return trend.StoredObject{Key: key, ContentType: contentType, Size: int64(len(copied))}, nil
}

// Get returns a stored chart.
func (s *MemoryStorage) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), obj.data...), obj.contentType, true
}

var _ trend.ChartStorage = (*MemoryStorage)(nil)
