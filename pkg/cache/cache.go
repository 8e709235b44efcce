// Package cache holds rendered responses for a fixed time.
package cache

import (
	"sync"
	"time"
)

// Timed is a cache that invalidates entries a fixed time after they were
// stored. It is safe for concurrent use.
type Timed struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	value   []byte
	created time.Time
}

// NewTimed creates a cache whose entries expire after ttl.
func NewTimed(ttl time.Duration) *Timed {
	return &Timed{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Set stores val under key.
func (c *Timed) Set(key string, val []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: val, created: c.now()}
}

// Get returns the value for key. ok is false if there is none or it has
// expired.
func (c *Timed) Get(key string) (value []byte, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.created) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Fetch returns the cached value for key or stores the result of fill.
// Errors from fill are returned and not cached.
func (c *Timed) Fetch(key string, fill func() ([]byte, error)) ([]byte, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fill()
	if err != nil {
		return nil, err
	}
	c.Set(key, v)
	return v, nil
}

// Purge drops every entry.
func (c *Timed) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}
