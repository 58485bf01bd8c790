package cache

import (
	"container/list"
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryStorage keeps values in process with LRU eviction. Contents do not
// survive a restart.
type MemoryStorage struct {
	mu       sync.Mutex
	items    map[string]*memoryItem
	lruList  *list.List
	maxItems int

	hits      int64
	misses    int64
	evictions int64

	logger *zap.Logger
}

type memoryItem struct {
	key        string
	value      []byte
	lruElement *list.Element
}

// Stats are MemoryStorage counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Items     int
}

// NewMemoryStorage creates a MemoryStorage holding at most maxItems values.
func NewMemoryStorage(maxItems int, logger *zap.Logger) *MemoryStorage {
	if maxItems <= 0 {
		maxItems = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStorage{
		items:    make(map[string]*memoryItem),
		lruList:  list.New(),
		maxItems: maxItems,
		logger:   logger,
	}
}

// Get returns a copy of the value under key.
func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		m.misses++
		return nil, false, nil
	}
	m.lruList.MoveToFront(item.lruElement)
	m.hits++

	value := make([]byte, len(item.value))
	copy(value, item.value)
	return value, true, nil
}

// Put stores a copy of data under key, evicting the least recently used
// entries when full.
func (m *MemoryStorage) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.items[key]; ok {
		m.removeItem(existing)
	}

	for len(m.items) >= m.maxItems && m.lruList.Len() > 0 {
		oldest := m.lruList.Back().Value.(*memoryItem)
		m.removeItem(oldest)
		m.evictions++
		m.logger.Debug("Evicted cache entry", zap.String("key", oldest.key))
	}

	item := &memoryItem{key: key, value: make([]byte, len(data))}
	copy(item.value, data)
	item.lruElement = m.lruList.PushFront(item)
	m.items[key] = item
	return nil
}

// Delete removes key.
func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[key]; ok {
		m.removeItem(item)
	}
	return nil
}

// must be called with the lock held
func (m *MemoryStorage) removeItem(item *memoryItem) {
	m.lruList.Remove(item.lruElement)
	delete(m.items, item.key)
}

// Stats returns the current counters.
func (m *MemoryStorage) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Hits:      m.hits,
		Misses:    m.misses,
		Evictions: m.evictions,
		Items:     len(m.items),
	}
}
