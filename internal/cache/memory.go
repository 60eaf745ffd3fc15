package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key       string
	payload   []byte
	expiresAt time.Time
}

// Memory is an in-process Store with lazy expiry and an optional LRU cap.
type Memory struct {
	mu         sync.Mutex
	maxEntries int
	items      map[string]*list.Element
	order      *list.List // front is most recently used
	now        func() time.Time
}

// NewMemory returns a Memory store. maxEntries <= 0 leaves it unbounded.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

// Get returns a copy of the payload stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if m.now().After(entry.expiresAt) {
		m.removeElement(el)
		return nil, false, nil
	}
	m.order.MoveToFront(el)
	return append([]byte(nil), entry.payload...), true, nil
}

// Put replaces any entry under key.
func (m *Memory) Put(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := &memoryEntry{
		key:       key,
		payload:   append([]byte(nil), payload...),
		expiresAt: m.now().Add(ttl),
	}
	if el, ok := m.items[key]; ok {
		el.Value = entry
		m.order.MoveToFront(el)
		return nil
	}
	m.items[key] = m.order.PushFront(entry)
	for m.maxEntries > 0 && m.order.Len() > m.maxEntries {
		m.removeElement(m.order.Back())
	}
	return nil
}

// Prune drops every entry expired at now and returns how many were removed.
func (m *Memory) Prune(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*memoryEntry).expiresAt) {
			m.removeElement(el)
			removed++
		}
		el = prev
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *Memory) removeElement(el *list.Element) {
	m.order.Remove(el)
	delete(m.items, el.Value.(*memoryEntry).key)
}
