package index

import (
	"sort"
	"sync"
)

// Cache remembers tables that are known to exist, so repeated writes to the
// same namespace skip the catalog. It is safe for concurrent use.
//
// Entries never expire: tables are never dropped by the store.
type Cache struct {
	data sync.Map
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Exists reports whether table has been recorded.
func (c *Cache) Exists(table string) bool {
	_, ok := c.data.Load(table)
	return ok
}

// Set records table as existing.
func (c *Cache) Set(table string) {
	c.data.Store(table, struct{}{})
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.data.Range(func(key, _ any) bool {
		c.data.Delete(key)
		return true
	})
}

// Keys returns the recorded tables in sorted order.
func (c *Cache) Keys() []string {
	var keys []string
	c.data.Range(func(key, _ any) bool {
		keys = append(keys, key.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}
