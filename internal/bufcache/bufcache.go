// Package bufcache implements the facade composing PageCache and
// TranslationLayer into the read/write/erase/write_block_direct API
// consumed by upper layers. Grounded on
// biscuit/src/ufs/ufs.go's Ufs_t, a thin facade exposing a narrow verb set
// over an underlying filesystem — BufCache plays the same structural role
// one layer down the stack, over PageCache+TranslationLayer instead of
// over fs.Fs_t.
package bufcache

import (
	"github.com/wondfs-go/flashfs/internal/flashpage"
	"github.com/wondfs-go/flashfs/internal/pagecache"
	"github.com/wondfs-go/flashfs/internal/translation"
)

// BufCache is the read/write/erase entry point consumed by the POSIX
// facade layer (out of scope for this module).
type BufCache struct {
	cache *pagecache.PageCache
	tl    *translation.TL
}

// New composes cache and tl into a BufCache facade.
func New(cache *pagecache.PageCache, tl *translation.TL) *BufCache {
	return &BufCache{cache: cache, tl: tl}
}

// Read returns the page at lpa, populating the cache from a full-block TL
// read on a miss.
func (b *BufCache) Read(lpa flashpage.LPA) (flashpage.Page, error) {
	if page, ok := b.cache.Get(lpa); ok {
		return page, nil
	}
	block := flashpage.BlockOf(lpa)
	pages, err := b.tl.Read(block)
	if err != nil {
		return flashpage.Page{}, err
	}
	b.cache.PutBlock(block, pages)
	return pages[flashpage.OffsetOf(lpa)], nil
}

// Write updates the cache then delegates to TL.Write.
func (b *BufCache) Write(lpa flashpage.LPA, page flashpage.Page) error {
	b.cache.Put(lpa, page)
	return b.tl.Write(lpa, page)
}

// WriteBlockDirect populates the cache for all 128 pages then delegates to
// TL.WriteBlockDirect.
func (b *BufCache) WriteBlockDirect(block flashpage.BlockNo, pages [flashpage.PerBlock]flashpage.Page) error {
	b.cache.PutBlock(block, pages)
	return b.tl.WriteBlockDirect(block, pages)
}

// Erase invalidates the block's 128 cache entries then delegates to
// TL.Erase.
func (b *BufCache) Erase(block flashpage.BlockNo) error {
	b.cache.Invalidate(block)
	return b.tl.Erase(block)
}
