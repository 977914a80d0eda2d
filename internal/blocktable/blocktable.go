// Package blocktable implements per-block utilisation, reservation
// cursor, age, and erase-count bookkeeping, plus the used-physical-block
// bitmap that backs spare selection.
package blocktable

import (
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/wondfs-go/flashfs/internal/flashpage"
)

// PageKind is the Clean|Dirty|Busy(ino) tagged union of a page's lifecycle.
type PageKind int

const (
	Clean PageKind = iota
	Dirty
	Busy
)

// PageState records a page's lifecycle state; Ino is meaningful only when
// Kind == Busy.
type PageState struct {
	Kind PageKind
	Ino  uint64
}

// BlockInfo is the per-block bookkeeping record.
type BlockInfo struct {
	BlockNo        flashpage.BlockNo
	ReservedOffset int // next free page within the block, append-only before erase
	PageStates     [flashpage.PerBlock]PageState
	LastEraseTime  time.Time
	EraseCount     uint64
	// AverageAge is the interval between the two most recent erases (zero
	// until the second erase), consulted by the GC classification cache
	// (hot/normal/cold).
	AverageAge time.Duration
}

// ReservedSize is the number of pages still free for append.
func (b *BlockInfo) ReservedSize() int {
	return flashpage.PerBlock - b.ReservedOffset
}

// UtilizeRatio is the fraction of pages currently Busy.
func (b *BlockInfo) UtilizeRatio() float64 {
	busy := 0
	for _, ps := range b.PageStates {
		if ps.Kind == Busy {
			busy++
		}
	}
	return float64(busy) / float64(flashpage.PerBlock)
}

// BlockTable owns the per-block records for every physical block on the
// medium, plus the bitmap of physical blocks currently in use (as a
// mapping replacement target, as the active table/signature block, or as
// an ordinary allocated user block).
type BlockTable struct {
	blocks []BlockInfo
	used   *bitset.BitSet
}

// New allocates bookkeeping for total physical blocks; never resized.
func New(total int) *BlockTable {
	bt := &BlockTable{
		blocks: make([]BlockInfo, total),
		used:   bitset.New(uint(total)),
	}
	for i := range bt.blocks {
		bt.blocks[i].BlockNo = flashpage.BlockNo(i)
	}
	return bt
}

// Block returns the record for block b.
func (bt *BlockTable) Block(b flashpage.BlockNo) *BlockInfo {
	return &bt.blocks[b]
}

// Total is the fixed number of physical blocks tracked.
func (bt *BlockTable) Total() int {
	return len(bt.blocks)
}

// MarkUsed records block b as occupied (reserved anchor or replacement).
func (bt *BlockTable) MarkUsed(b flashpage.BlockNo) {
	bt.used.Set(uint(b))
}

// MarkFree clears block b's occupied bit, e.g. after it is reclaimed.
func (bt *BlockTable) MarkFree(b flashpage.BlockNo) {
	bt.used.Clear(uint(b))
}

// IsUsed reports whether block b is currently marked occupied.
func (bt *BlockTable) IsUsed(b flashpage.BlockNo) bool {
	return bt.used.Test(uint(b))
}

// SetPage mutates the owning block's page-state array for lpa, advancing
// ReservedOffset on a Clean->Busy transition.
func (bt *BlockTable) SetPage(lpa flashpage.LPA, state PageState) {
	block := flashpage.BlockOf(lpa)
	off := flashpage.OffsetOf(lpa)
	bi := &bt.blocks[block]
	prev := bi.PageStates[off]
	bi.PageStates[off] = state
	if prev.Kind == Clean && state.Kind == Busy && off == bi.ReservedOffset {
		bi.ReservedOffset++
	}
}

// EraseBlock resets a block's page states, bumps its erase count, and
// records the erase time; safe to call repeatedly.
func (bt *BlockTable) EraseBlock(b flashpage.BlockNo, now time.Time) {
	bi := &bt.blocks[b]
	for i := range bi.PageStates {
		bi.PageStates[i] = PageState{}
	}
	bi.ReservedOffset = 0
	bi.EraseCount++
	if !bi.LastEraseTime.IsZero() {
		bi.AverageAge = now.Sub(bi.LastEraseTime)
	}
	bi.LastEraseTime = now
}

// FindSpareExcept scans reserved-region candidates [from, total), skipping
// excluded blocks, and returns the first unused block whose ReservedSize
// is at least minSize pages.
func (bt *BlockTable) FindSpareExcept(from, total int, exclude map[flashpage.BlockNo]bool, minSize int) (flashpage.BlockNo, bool) {
	for i := from; i < total; i++ {
		b := flashpage.BlockNo(i)
		if exclude[b] || bt.IsUsed(b) {
			continue
		}
		if bt.blocks[b].ReservedSize() >= minSize {
			return b, true
		}
	}
	return 0, false
}
