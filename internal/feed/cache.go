package feed

import (
	"sync"

	"stringshare/internal/logging"
	"stringshare/internal/model"
)

// Cache is the addressable post collection the rendering layer reads from.
// Order is whatever the last ReplaceAll delivered; ReplaceOne never reorders.
type Cache struct {
	mu        sync.RWMutex
	posts     []model.Post
	index     map[string]int
	observers []func()
}

func NewCache() *Cache {
	return &Cache{index: map[string]int{}}
}

// ReplaceAll installs the result of a bulk fetch, discarding all prior content
// including unconfirmed optimistic edits.
func (c *Cache) ReplaceAll(posts []model.Post) {
	c.mu.Lock()
	c.posts = append([]model.Post(nil), posts...)
	c.index = make(map[string]int, len(posts))
	for i, p := range posts {
		c.index[p.ID] = i
	}
	c.mu.Unlock()
	c.notify()
}

// ReplaceOne substitutes the post with a matching id in place. A miss is a
// logged no-op; ReplaceOne never inserts.
func (c *Cache) ReplaceOne(post model.Post) bool {
	c.mu.Lock()
	i, ok := c.index[post.ID]
	if ok {
		c.posts[i] = post
	}
	c.mu.Unlock()
	if !ok {
		logging.Warn("replace_missing_post", map[string]any{"post_id": post.ID})
		return false
	}
	c.notify()
	return true
}

// Get returns the post with the given id.
func (c *Cache) Get(id string) (model.Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return model.Post{}, false
	}
	return c.posts[i], true
}

// Posts returns a snapshot of the cached sequence in display order.
func (c *Cache) Posts() []model.Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Post(nil), c.posts...)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.posts)
}

// Subscribe registers an observer called after every cache change.
func (c *Cache) Subscribe(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Cache) notify() {
	c.mu.RLock()
	obs := append([]func(){}, c.observers...)
	c.mu.RUnlock()
	for _, fn := range obs {
		fn()
	}
}
