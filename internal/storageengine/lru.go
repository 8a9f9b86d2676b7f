// Package storage is the on-disk storage engine bound to a logmgr.LogManager.
package storage

import "container/list"

// LRUCache implements a Least Recently Used (LRU) cache for page eviction.
// It maintains the order of page access to identify cold pages for eviction.
type LRUCache struct {
	list    *list.List               // Doubly linked list for LRU ordering
	entries map[PageID]*list.Element // Map for O(1) lookup
}

// lruEntry represents an entry in the LRU cache.
type lruEntry struct {
	pageID PageID
}

// NewLRUCache creates a new LRU cache.
func NewLRUCache() *LRUCache {
	return &LRUCache{
		list:    list.New(),
		entries: make(map[PageID]*list.Element),
	}
}

// Access marks a page as recently accessed, moving it to the front of the list.
// If the page is not in the cache, it is added.
func (c *LRUCache) Access(pageID PageID) {
	if elem, exists := c.entries[pageID]; exists {
		// Move to front (most recently used)
		c.list.MoveToFront(elem)
		return
	}

	// Add new entry at front
	entry := &lruEntry{pageID: pageID}
	elem := c.list.PushFront(entry)
	c.entries[pageID] = elem
}

// Remove removes a page from the LRU cache.
func (c *LRUCache) Remove(pageID PageID) {
	if elem, exists := c.entries[pageID]; exists {
		c.list.Remove(elem)
		delete(c.entries, pageID)
	}
}

// GetLRUExcluding returns the least recently used page ID that is not in
// the excluded set; the buffer pool uses this to skip dirty pages when
// picking an automatic eviction candidate, since a dirty page must only
// leave the pool through an explicit, notified flush.
func (c *LRUCache) GetLRUExcluding(excluded map[PageID]bool) (PageID, bool) {
	// Iterate from back (LRU) to front (MRU)
	for elem := c.list.Back(); elem != nil; elem = elem.Prev() {
		entry := elem.Value.(*lruEntry)
		if !excluded[entry.pageID] {
			return entry.pageID, true
		}
	}
	return 0, false
}
