// Package cache реализует потокобезопасный LRU кеш с TTL
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// entry элемент кеша
type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// LRUCache thread-safe LRU кеш с TTL на каждую запись
type LRUCache[V any] struct {
	capacity  int
	ttl       time.Duration
	items     map[string]*list.Element
	evictList *list.List
	mu        sync.Mutex
	now       func() time.Time

	// Метрики
	hits   uint64
	misses uint64
}

// NewLRUCache создает кеш. capacity <= 0 — без ограничения размера, ttl <= 0 — без истечения.
func NewLRUCache[V any](capacity int, ttl time.Duration) *LRUCache[V] {
	return &LRUCache[V]{
		capacity:  capacity,
		ttl:       ttl,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		now:       time.Now,
	}
}

// SetClock подменяет источник времени (для тестов потребителей кеша)
func (c *LRUCache[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get возвращает значение и продлевает его позицию в LRU
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}

	e := elem.Value.(*entry[V])
	if c.expired(e, c.now()) {
		c.removeElement(elem)
		c.misses++
		return zero, false
	}

	c.evictList.MoveToFront(elem)
	c.hits++
	return e.value, true
}

// Has проверяет наличие непросроченного ключа без изменения порядка LRU и статистики
func (c *LRUCache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	if c.expired(elem.Value.(*entry[V]), c.now()) {
		c.removeElement(elem)
		return false
	}
	return true
}

// Set добавляет или обновляет значение с TTL кеша
func (c *LRUCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL добавляет или обновляет значение с собственным TTL
func (c *LRUCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if elem, ok := c.items[key]; ok {
		c.evictList.MoveToFront(elem)
		e := elem.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		return
	}

	elem := c.evictList.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = elem

	if c.capacity > 0 && c.evictList.Len() > c.capacity {
		c.removeOldest()
	}
}

// Delete удаляет ключ. Возвращает true, если ключ был в кеше.
func (c *LRUCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if ok {
		c.removeElement(elem)
	}
	return ok
}

// Clear удаляет все записи
func (c *LRUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.evictList.Init()
}

// Size количество записей, включая еще не вычищенные просроченные
func (c *LRUCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Stats статистика попаданий
func (c *LRUCache[V]) Stats() (hits, misses uint64, hitRate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hits = c.hits
	misses = c.misses
	total := hits + misses
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return
}

// Clean удаляет просроченные записи, возвращает их количество
func (c *LRUCache[V]) Clean() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for elem := c.evictList.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*entry[V]), now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// StartCleaner периодически вызывает Clean до отмены ctx
func (c *LRUCache[V]) StartCleaner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Clean()
			}
		}
	}()
}

func (c *LRUCache[V]) expired(e *entry[V], now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// removeOldest удаляет самую старую запись
func (c *LRUCache[V]) removeOldest() {
	if elem := c.evictList.Back(); elem != nil {
		c.removeElement(elem)
	}
}

func (c *LRUCache[V]) removeElement(elem *list.Element) {
	delete(c.items, elem.Value.(*entry[V]).key)
	c.evictList.Remove(elem)
}
