package gc

import (
	"github.com/wondfs-go/flashfs/internal/blocktable"
	"github.com/wondfs-go/flashfs/internal/flasherr"
	"github.com/wondfs-go/flashfs/internal/flashpage"
	"github.com/wondfs-go/flashfs/internal/metrics"
)

// Executor is the TL surface the plan executor needs: ordinary logical
// block reads, single-page writes, and erase. Each Move is a read followed
// by a write; the terminal Erase triggers the underlying erase.
// *translation.TL satisfies this. *bufcache.BufCache does not (its Read
// takes a single LPA), so a plan executed against the TL does not update or
// invalidate any page cache layered above it.
type Executor interface {
	Read(logical flashpage.BlockNo) ([flashpage.PerBlock]flashpage.Page, error)
	Write(lpa flashpage.LPA, page flashpage.Page) error
	Erase(logical flashpage.BlockNo) error
}

// Execute applies plan in order against tl and bt: each Move reads the
// source range through tl, writes it to the destination, and retires the
// source pages to Dirty while marking the destination Busy(ino); the
// terminal Erase calls tl.Erase, which itself retires the remapped
// physical block in bt (translation.TL.Erase already calls
// BlockTable.EraseBlock, so the executor must not call it a second time).
func Execute(plan Plan, tl Executor, bt *blocktable.BlockTable, met *metrics.Set) error {
	for _, ev := range plan {
		switch ev.Kind {
		case Move:
			if err := executeMove(ev, tl, bt, met); err != nil {
				return err
			}
		case Erase:
			if err := tl.Erase(ev.Victim); err != nil {
				return err
			}
			met.GCBlocksReclaimed.Inc()
		default:
			return flasherr.New(flasherr.AddressOutOfRange, "gc: unknown event kind %d", ev.Kind)
		}
	}
	return nil
}

func executeMove(ev Event, tl Executor, bt *blocktable.BlockTable, met *metrics.Set) error {
	srcBlock := flashpage.BlockOf(ev.Src)
	srcOffset := flashpage.OffsetOf(ev.Src)
	dstBlock := flashpage.BlockOf(ev.Dst)
	dstOffset := flashpage.OffsetOf(ev.Dst)

	srcPages, err := tl.Read(srcBlock)
	if err != nil {
		return err
	}
	for i := 0; i < ev.Size; i++ {
		page := srcPages[srcOffset+i]
		dstLPA := flashpage.LPAOf(dstBlock, dstOffset+i)
		if err := tl.Write(dstLPA, page); err != nil {
			return err
		}
		bt.SetPage(dstLPA, blocktable.PageState{Kind: blocktable.Busy, Ino: ev.Ino})
		srcLPA := flashpage.LPAOf(srcBlock, srcOffset+i)
		bt.SetPage(srcLPA, blocktable.PageState{Kind: blocktable.Dirty})
	}
	met.GCPagesMoved.Add(float64(ev.Size))
	return nil
}
