// Package storage is the on-disk storage engine bound to a logmgr.LogManager.
package storage

import (
	"errors"
	"sync"
)

// Buffer pool errors.
var (
	ErrBufferPoolFull  = errors.New("buffer pool is full: every cached page is dirty")
	ErrPageNotFound    = errors.New("page not found in buffer pool")
	ErrInvalidCapacity = errors.New("buffer pool capacity must be positive")
)

// BufferPage represents a page cached in the buffer pool.
type BufferPage struct {
	id    PageID
	data  []byte
	dirty bool
}

// ID returns the page ID.
func (bp *BufferPage) ID() PageID {
	return bp.id
}

// Data returns the page data.
func (bp *BufferPage) Data() []byte {
	return bp.data
}

// IsDirty returns true if the page has been modified.
func (bp *BufferPage) IsDirty() bool {
	return bp.dirty
}

// BufferPool manages a pool of cached pages with LRU eviction policy. It
// never silently writes a dirty page back to disk on its own account:
// automatic eviction (from Put, under caller-held pressure to make
// room) only ever discards clean pages, since a silent write-back
// would let a page reach storage without LogManager.PageFlushed ever
// running, breaking the WAL invariant the log manager depends on.
// Dirty pages leave the pool only through FlushPage/FlushAll, which
// run the flush notifier first.
type BufferPool struct {
	capacity   int
	pageSize   int
	pages      map[PageID]*BufferPage
	lru        *LRUCache
	dirtyPages map[PageID]bool
	mu         sync.RWMutex

	// flushCallback writes a page's bytes back to the page file.
	flushCallback func(pageID PageID, data []byte) error
	// flushNotifier runs before flushCallback on every dirty page that
	// leaves the pool through an explicit flush, so callers can update
	// WAL bookkeeping (LogManager.PageFlushed) before the bytes land.
	flushNotifier func(pageID PageID) error
}

// NewBufferPool creates a new buffer pool with the specified capacity and page size.
func NewBufferPool(capacity int, pageSize int) *BufferPool {
	if capacity <= 0 {
		capacity = 16 // Default capacity
	}
	if pageSize <= 0 {
		pageSize = PageSize // Default page size
	}

	return &BufferPool{
		capacity:   capacity,
		pageSize:   pageSize,
		pages:      make(map[PageID]*BufferPage),
		lru:        NewLRUCache(),
		dirtyPages: make(map[PageID]bool),
	}
}

// SetFlushCallback sets the callback function for flushing dirty pages.
// FlushPage and FlushAll invoke it, after the flush notifier, to write a
// dirty page back; eviction never invokes it, since it never evicts a
// dirty page.
func (bp *BufferPool) SetFlushCallback(callback func(pageID PageID, data []byte) error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.flushCallback = callback
}

// SetFlushNotifier sets the function run before flushCallback for each
// page flushed through FlushPage or FlushAll.
func (bp *BufferPool) SetFlushNotifier(notifier func(pageID PageID) error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.flushNotifier = notifier
}

// Get retrieves a page from the buffer pool.
// Returns the page and true if found, nil and false otherwise.
// Accessing a page marks it as recently used.
func (bp *BufferPool) Get(id PageID) (*BufferPage, bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	page, exists := bp.pages[id]
	if !exists {
		return nil, false
	}

	// Mark as recently accessed
	bp.lru.Access(id)

	return page, true
}

// Put adds or updates a page in the buffer pool.
// If the pool is at capacity, it will attempt to evict a page first.
// Returns the buffer page.
func (bp *BufferPool) Put(id PageID, data []byte) (*BufferPage, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	// Check if page already exists
	if page, exists := bp.pages[id]; exists {
		// Update existing page
		copy(page.data, data)
		bp.lru.Access(id)
		return page, nil
	}

	// Check if we need to evict
	if len(bp.pages) >= bp.capacity {
		if err := bp.evictOneLocked(); err != nil {
			return nil, err
		}
	}

	// Create new buffer page
	pageData := make([]byte, bp.pageSize)
	if len(data) > 0 {
		copy(pageData, data)
	}

	page := &BufferPage{
		id:    id,
		data:  pageData,
		dirty: false,
	}

	bp.pages[id] = page
	bp.lru.Access(id)

	return page, nil
}

// MarkDirty marks a page as dirty (modified).
func (bp *BufferPool) MarkDirty(id PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	page, exists := bp.pages[id]
	if !exists {
		return ErrPageNotFound
	}

	page.dirty = true
	bp.dirtyPages[id] = true
	return nil
}

// FlushAll writes all dirty pages using the flush callback.
func (bp *BufferPool) FlushAll() error {
	for _, id := range bp.GetDirtyPageIDs() {
		if err := bp.FlushPage(id); err != nil && !errors.Is(err, ErrPageNotFound) {
			return err
		}
	}
	return nil
}

// FlushPage writes a specific dirty page using the flush callback. The
// notifier and callback run without the pool lock held: the notifier
// re-enters the pool through LogManager.PageFlushed -> Engine.GetLSN ->
// Get, so holding the lock across it would self-deadlock.
func (bp *BufferPool) FlushPage(id PageID) error {
	bp.mu.Lock()
	page, exists := bp.pages[id]
	if !exists {
		bp.mu.Unlock()
		return ErrPageNotFound
	}
	if !page.dirty {
		bp.mu.Unlock()
		return nil
	}
	data := make([]byte, len(page.data))
	copy(data, page.data)
	notifier := bp.flushNotifier
	callback := bp.flushCallback
	bp.mu.Unlock()

	if notifier != nil {
		if err := notifier(id); err != nil {
			return err
		}
	}
	if callback != nil {
		if err := callback(id, data); err != nil {
			return err
		}
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()
	if page, exists := bp.pages[id]; exists {
		page.dirty = false
	}
	delete(bp.dirtyPages, id)
	return nil
}

// evictOneLocked makes room for one new page by discarding the least
// recently used CLEAN page. It never evicts a dirty page: that would
// write a page back to disk without running the flush notifier first,
// letting a page reach storage behind LogManager's back. If every
// cached page is dirty, it returns ErrBufferPoolFull; callers flush
// (FlushDirtyPages) to make room instead. Must be called with lock held.
func (bp *BufferPool) evictOneLocked() error {
	pageID, found := bp.lru.GetLRUExcluding(bp.dirtyPages)
	if !found {
		return ErrBufferPoolFull
	}
	if _, exists := bp.pages[pageID]; !exists {
		return ErrBufferPoolFull
	}

	delete(bp.pages, pageID)
	bp.lru.Remove(pageID)
	return nil
}

// Size returns the number of pages currently in the buffer pool.
func (bp *BufferPool) Size() int {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	return len(bp.pages)
}

// DirtyPageCount returns the number of dirty pages in the buffer pool.
func (bp *BufferPool) DirtyPageCount() int {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	return len(bp.dirtyPages)
}

// GetDirtyPageIDs returns all dirty page IDs.
func (bp *BufferPool) GetDirtyPageIDs() []PageID {
	bp.mu.RLock()
	defer bp.mu.RUnlock()

	ids := make([]PageID, 0, len(bp.dirtyPages))
	for id := range bp.dirtyPages {
		ids = append(ids, id)
	}
	return ids
}
