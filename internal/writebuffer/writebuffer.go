// Package writebuffer implements the write-coalescing buffer. It holds
// at most Capacity pending page writes and signals sync-needed once full.
// Grounded on biscuit/src/fs/blk.go's BlkList_t (an ordered, remove-by-key
// list of in-flight blocks); generalized here into an LPA-keyed buffer with
// O(1) lookup via a side index, since callers need contains/get in addition
// to ordered drain.
package writebuffer

import (
	"container/list"

	"github.com/wondfs-go/flashfs/internal/flashpage"
)

// Capacity is the maximum number of distinct LPAs the buffer holds.
const Capacity = 32

type entry struct {
	lpa  flashpage.LPA
	page flashpage.Page
}

// WriteBuffer coalesces pending page writes in insertion order. It is not
// safe for concurrent use; the whole stack is single threaded and
// externally serialized.
type WriteBuffer struct {
	order *list.List
	index map[flashpage.LPA]*list.Element
}

// New returns an empty write buffer.
func New() *WriteBuffer {
	return &WriteBuffer{
		order: list.New(),
		index: make(map[flashpage.LPA]*list.Element, Capacity),
	}
}

// Put inserts or overwrites the entry for lpa. syncNeeded reports whether
// this call just brought the buffer to its 32nd distinct LPA.
func (wb *WriteBuffer) Put(lpa flashpage.LPA, page flashpage.Page) (syncNeeded bool) {
	if el, ok := wb.index[lpa]; ok {
		el.Value.(*entry).page = page
		return false
	}
	if len(wb.index) >= Capacity {
		panic("writebuffer: Put called while already full; caller must flush and clear first")
	}
	el := wb.order.PushBack(&entry{lpa: lpa, page: page})
	wb.index[lpa] = el
	return len(wb.index) == Capacity
}

// Get returns the buffered page for lpa, if present.
func (wb *WriteBuffer) Get(lpa flashpage.LPA) (flashpage.Page, bool) {
	el, ok := wb.index[lpa]
	if !ok {
		return flashpage.Page{}, false
	}
	return el.Value.(*entry).page, true
}

// Contains reports whether lpa currently has a pending write.
func (wb *WriteBuffer) Contains(lpa flashpage.LPA) bool {
	_, ok := wb.index[lpa]
	return ok
}

// Len reports the number of distinct pending LPAs.
func (wb *WriteBuffer) Len() int {
	return len(wb.index)
}

// Drain returns the buffered (lpa, page) pairs in insertion order without
// clearing the buffer; the caller calls Clear once the batch is durably
// written.
func (wb *WriteBuffer) Drain() []struct {
	LPA  flashpage.LPA
	Page flashpage.Page
} {
	out := make([]struct {
		LPA  flashpage.LPA
		Page flashpage.Page
	}, 0, wb.order.Len())
	for el := wb.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		out = append(out, struct {
			LPA  flashpage.LPA
			Page flashpage.Page
		}{LPA: e.lpa, Page: e.page})
	}
	return out
}

// Clear empties the buffer after a successful flush.
func (wb *WriteBuffer) Clear() {
	wb.order.Init()
	wb.index = make(map[flashpage.LPA]*list.Element, Capacity)
}

// Discard drops lpa's pending entry, if any, used on erase of its block.
func (wb *WriteBuffer) Discard(lpa flashpage.LPA) {
	el, ok := wb.index[lpa]
	if !ok {
		return
	}
	wb.order.Remove(el)
	delete(wb.index, lpa)
}
