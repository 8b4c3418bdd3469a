package bot

import "sync"

// CategoryCache remembers the last menu category each user browsed so the
// "More FAQs" button can reopen it. Entries live for the process lifetime;
// the map stays small because keys are active phone numbers.
type CategoryCache struct {
	mu   sync.RWMutex
	last map[string]string
}

// NewCategoryCache creates an empty cache.
func NewCategoryCache() *CategoryCache {
	return &CategoryCache{last: make(map[string]string)}
}

// Put records the category a user just browsed.
func (c *CategoryCache) Put(phoneNumber, categoryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[phoneNumber] = categoryID
}

// Get returns the user's last browsed category, defaulting to the report
// category when the user has not opened one yet.
func (c *CategoryCache) Get(phoneNumber string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cat, ok := c.last[phoneNumber]; ok {
		return cat
	}
	return CatReport
}
