package translation

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wondfs-go/flashfs/internal/checkcenter"
	"github.com/wondfs-go/flashfs/internal/flasherr"
	"github.com/wondfs-go/flashfs/internal/flashpage"
)

// Read reads an entire logical block, overlaying any write-buffer-resident
// pages and verifying every on-disk page that isn't buffer-resident.
func (t *TL) Read(logical flashpage.BlockNo) ([flashpage.PerBlock]flashpage.Page, error) {
	var out [flashpage.PerBlock]flashpage.Page
	if int(logical) > t.cfg.UseMax {
		return out, flasherr.New(flasherr.AddressOutOfRange, "logical block %d exceeds use_max=%d", logical, t.cfg.UseMax)
	}

	shouldCheck := [flashpage.PerBlock]bool{}
	for i := 0; i < flashpage.PerBlock; i++ {
		lpa := flashpage.LPAOf(logical, i)
		shouldCheck[i] = !t.wb.Contains(lpa)
	}

	physical := t.remap(logical)
	data, err := t.dev.ReadBlock(physical)
	if err != nil {
		return out, err
	}
	out = data

	for i := 0; i < flashpage.PerBlock; i++ {
		lpa := flashpage.LPAOf(logical, i)
		if page, ok := t.wb.Get(lpa); ok {
			out[i] = page
		}
	}

	for i := 0; i < flashpage.PerBlock; i++ {
		if !shouldCheck[i] {
			continue
		}
		lpa := flashpage.LPAOf(logical, i)
		loc, ok := t.signOf[lpa]
		if !ok || out[i].IsZero() {
			continue
		}
		sig, err := t.readSignature(loc)
		if err != nil {
			return out, err
		}
		ok, _, repaired, err := checkcenter.Verify(&out[i], sig)
		if err != nil {
			return out, err
		}
		if ok {
			continue
		}
		if repaired != nil {
			out[i] = repaired.Page
			continue
		}
		t.met.CorruptionTotal.Inc()
		if rerr := t.handleBadBlock(logical); rerr != nil {
			return out, rerr
		}
		return out, nil
	}
	t.met.PagesReadTotal.Add(float64(flashpage.PerBlock))
	return out, nil
}

// readSignature loads the 128-byte signature at loc from the device.
func (t *TL) readSignature(loc sigLoc) ([checkcenter.SignatureSize]byte, error) {
	var sig [checkcenter.SignatureSize]byte
	slotsPerPage := flashpage.Size / checkcenter.SignatureSize
	page := loc.slot / slotsPerPage
	off := (loc.slot % slotsPerPage) * checkcenter.SignatureSize
	pages, err := t.dev.ReadBlock(loc.block)
	if err != nil {
		return sig, err
	}
	copy(sig[:], pages[page][off:off+checkcenter.SignatureSize])
	return sig, nil
}

// handleBadBlock remaps logical to a fresh spare and persists the mapping
// block.
func (t *TL) handleBadBlock(logical flashpage.BlockNo) error {
	spare, err := t.findNextSpare()
	if err != nil {
		return err
	}
	t.mapping[logical] = spare
	t.bt.MarkUsed(spare)
	t.errBlockNum++
	t.lastErrTime = time.Now()
	t.haveLastErrTime = true
	t.met.RemapTotal.Inc()
	t.log.WithFields(logrus.Fields{"logical": logical, "spare": spare}).Warn("remapped corrupted block to spare")
	return t.persistMappingBlock()
}

// Write buffers a page write, flushing the buffer once it reaches
// capacity.
func (t *TL) Write(lpa flashpage.LPA, page flashpage.Page) error {
	syncNeeded := t.wb.Put(lpa, page)
	if syncNeeded {
		if err := t.flush(); err != nil {
			return err
		}
		t.wb.Clear()
	}
	return nil
}

// flush performs the signed-batch write. It assumes the buffer holds
// exactly WriteBuffer.Capacity entries; WriteBlockDirect reuses it four
// times per 128-page block with the buffer pre-seeded.
func (t *TL) flush() error {
	entries := t.wb.Drain()
	scheme := t.selectScheme()

	var sigPage flashpage.Page
	for i, e := range entries {
		// Slot 0 of a signature block's first page carries the block magic:
		// either the block is fresh or the rollover below moves to one.
		firstOfBlock := i == 0 && (t.signBlockOffset == 0 || t.signBlockOffset/32 == 127)
		sig, err := checkcenter.Sign(&e.Page, e.LPA, scheme, firstOfBlock)
		if err != nil {
			return err
		}
		copy(sigPage[i*checkcenter.SignatureSize:(i+1)*checkcenter.SignatureSize], sig[:])
	}

	if t.signBlockOffset/32 == 127 {
		t.bt.MarkUsed(t.signBlock)
		spare, err := t.findNextSpare()
		if err != nil {
			return err
		}
		t.signBlock = spare
		t.signBlockOffset = 0
		t.met.SignBlockRollovers.Inc()
	}

	sigPageIdx := t.signBlockOffset / 32
	sigAddr := flashpage.LPAOf(t.signBlock, sigPageIdx)
	if err := t.dev.WritePage(sigAddr, sigPage); err != nil {
		return err
	}

	for i, e := range entries {
		t.signOf[e.LPA] = sigLoc{block: t.signBlock, slot: t.signBlockOffset + i}
	}
	t.signBlockOffset += 32

	for _, e := range entries {
		block := flashpage.BlockOf(e.LPA)
		off := flashpage.OffsetOf(e.LPA)
		addr := flashpage.LPAOf(t.remap(block), off)
		if err := t.dev.WritePage(addr, e.Page); err != nil {
			return err
		}
	}
	t.met.FlushTotal.Inc()
	t.met.PagesWrittenTotal.Add(float64(len(entries)))
	return nil
}

// WriteBlockDirect writes a whole logical block as four signed 32-page
// batches in order. Each batch is staged in the write buffer and flushed at
// once, so no page of the block is left pending. It returns an error, and
// writes nothing, if the buffer already holds pending writes.
func (t *TL) WriteBlockDirect(logical flashpage.BlockNo, pages [flashpage.PerBlock]flashpage.Page) error {
	if t.wb.Len() != 0 {
		return flasherr.New(flasherr.MediumWriteOnceViolation, "write_block_direct requires an empty write buffer")
	}
	for batch := 0; batch < flashpage.PerBlock/32; batch++ {
		for i := 0; i < 32; i++ {
			off := batch*32 + i
			lpa := flashpage.LPAOf(logical, off)
			t.wb.Put(lpa, pages[off])
		}
		if err := t.flush(); err != nil {
			t.wb.Clear()
			return err
		}
		t.wb.Clear()
	}
	return nil
}

// Erase discards any buffered writes and signature bookkeeping for
// logical's pages, then erases the remapped physical block.
func (t *TL) Erase(logical flashpage.BlockNo) error {
	for i := 0; i < flashpage.PerBlock; i++ {
		lpa := flashpage.LPAOf(logical, i)
		t.wb.Discard(lpa)
		delete(t.signOf, lpa)
	}
	physical := t.remap(logical)
	if err := t.dev.EraseBlock(physical); err != nil {
		return err
	}
	t.bt.EraseBlock(physical, time.Now())
	return nil
}
