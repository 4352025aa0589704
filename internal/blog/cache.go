package blog

import (
	"sync"
	"time"

	"github.com/donia1222/remix-crypto-sub000/internal/model"
)

// Cache holds the last good list of posts.
type Cache struct {
	mu        sync.RWMutex
	posts     []model.BlogPost
	updatedAt time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Handle replaces the cached posts. It satisfies poller.Handler.
func (c *Cache) Handle(posts []model.BlogPost) error {
	cp := make([]model.BlogPost, len(posts))
	copy(cp, posts)

	c.mu.Lock()
	c.posts = cp
	c.updatedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// Posts returns a copy of the cached posts and when they were stored.
// The time is zero if nothing has been fetched yet.
func (c *Cache) Posts() ([]model.BlogPost, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cp := make([]model.BlogPost, len(c.posts))
	copy(cp, c.posts)
	return cp, c.updatedAt
}
