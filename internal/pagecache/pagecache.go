// Package pagecache implements a page-granular LRU read cache keyed by
// logical page address. It is pure optimisation — evicting any entry is
// always safe. Grounded on biscuit/src/fs/blk.go's BlkList_t, a
// container/list-backed ordered collection; generalized here into the
// standard container/list + map[key]*list.Element LRU idiom.
package pagecache

import (
	"container/list"

	"github.com/wondfs-go/flashfs/internal/flashpage"
	"github.com/wondfs-go/flashfs/internal/metrics"
)

// Capacity is the fixed number of cached pages.
const Capacity = 1024

type centry struct {
	lpa  flashpage.LPA
	page flashpage.Page
}

// PageCache is an LRU cache of individual pages.
type PageCache struct {
	order *list.List
	index map[flashpage.LPA]*list.Element
	met   *metrics.Set
}

// New returns an empty page cache bound to met for hit/miss counters.
func New(met *metrics.Set) *PageCache {
	return &PageCache{
		order: list.New(),
		index: make(map[flashpage.LPA]*list.Element, Capacity),
		met:   met,
	}
}

// Get returns the cached page for lpa, promoting it to most-recently-used
// on a hit.
func (c *PageCache) Get(lpa flashpage.LPA) (flashpage.Page, bool) {
	el, ok := c.index[lpa]
	if !ok {
		c.met.CacheMissTotal.Inc()
		return flashpage.Page{}, false
	}
	c.order.MoveToFront(el)
	c.met.CacheHitTotal.Inc()
	return el.Value.(*centry).page, true
}

// Put inserts or updates lpa's cached page and evicts the least-recently
// used entry if the cache is now over capacity.
func (c *PageCache) Put(lpa flashpage.LPA, page flashpage.Page) {
	if el, ok := c.index[lpa]; ok {
		el.Value.(*centry).page = page
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&centry{lpa: lpa, page: page})
	c.index[lpa] = el
	if len(c.index) > Capacity {
		c.evictOldest()
	}
}

// PutBlock populates all 128 entries of a logical block at once, used
// after a full-block read-through on a cache miss.
func (c *PageCache) PutBlock(block flashpage.BlockNo, pages [flashpage.PerBlock]flashpage.Page) {
	for i := 0; i < flashpage.PerBlock; i++ {
		c.Put(flashpage.LPAOf(block, i), pages[i])
	}
}

// Invalidate drops every cached entry belonging to block, used on erase.
func (c *PageCache) Invalidate(block flashpage.BlockNo) {
	for i := 0; i < flashpage.PerBlock; i++ {
		lpa := flashpage.LPAOf(block, i)
		if el, ok := c.index[lpa]; ok {
			c.order.Remove(el)
			delete(c.index, lpa)
		}
	}
}

func (c *PageCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.index, el.Value.(*centry).lpa)
}

// Len reports the current number of cached entries.
func (c *PageCache) Len() int { return len(c.index) }
