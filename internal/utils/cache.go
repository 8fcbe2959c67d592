package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheItem 包装缓存数据和过期时间
type cacheItem[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache is a size-bounded LRU whose entries also expire after a TTL.
type Cache[V any] struct {
	lru *lru.Cache[string, cacheItem[V]]
	ttl time.Duration
	now func() time.Time
}

func NewCache[V any](size int, ttl time.Duration) (*Cache[V], error) {
	if size <= 0 {
		size = 500
	}
	l, err := lru.New[string, cacheItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: l, ttl: ttl, now: time.Now}, nil
}

func (c *Cache[V]) Set(key string, data V) {
	c.lru.Add(key, cacheItem[V]{
		data:      data,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Get 获取缓存，若不存在或已过期则返回 false
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}

	if c.now().After(val.expiresAt) {
		c.lru.Remove(key)
		return zero, false
	}

	return val.data, true
}

func (c *Cache[V]) Delete(key string) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}
