package translation

import (
	"github.com/wondfs-go/flashfs/internal/checkcenter"
	"github.com/wondfs-go/flashfs/internal/flasherr"
	"github.com/wondfs-go/flashfs/internal/flashpage"
)

// Format initializes a fresh medium: writes an empty mapping block (stamped
// with volumeID) and an empty signature block into the first two reserved
// blocks, and marks every other reserved block free. Used by cmd/mkflash.
func (t *TL) Format(volumeID [volumeIDSize]byte) error {
	if t.cfg.UseMax+2 >= t.cfg.TotalBlocks {
		return flasherr.New(flasherr.NoSpareBlock, "reserved region too small: need at least 2 blocks beyond use_max=%d", t.cfg.UseMax)
	}
	t.tableBlock = flashpage.BlockNo(t.cfg.UseMax + 1)
	t.signBlock = flashpage.BlockNo(t.cfg.UseMax + 2)
	t.mapping = make(map[flashpage.BlockNo]flashpage.BlockNo)
	t.signOf = make(map[flashpage.LPA]sigLoc)
	t.signBlockOffset = 0
	t.errBlockNum = 0
	t.haveLastErrTime = false
	t.volumeID = volumeID

	for i := t.cfg.UseMax + 1; i < t.cfg.TotalBlocks; i++ {
		t.bt.MarkFree(flashpage.BlockNo(i))
	}
	t.bt.MarkUsed(t.tableBlock)
	t.bt.MarkUsed(t.signBlock)

	if err := t.persistMappingBlock(); err != nil {
		return err
	}
	if err := t.dev.EraseBlock(t.signBlock); err != nil {
		return err
	}
	return nil
}

// Replay reconstructs in-memory state by scanning the reserved region,
// dispatching each block by its magic header.
func (t *TL) Replay() error {
	t.mapping = make(map[flashpage.BlockNo]flashpage.BlockNo)
	t.signOf = make(map[flashpage.LPA]sigLoc)
	t.signBlockOffset = 0
	t.errBlockNum = 0
	t.haveLastErrTime = false

	for i := t.cfg.UseMax + 1; i < t.cfg.TotalBlocks; i++ {
		b := flashpage.BlockNo(i)
		pages, err := t.dev.ReadBlock(b)
		if err != nil {
			return err
		}
		page0 := pages[0]
		switch {
		case isMappingBlock(&page0):
			t.mapping = decodeMapping(&page0)
			t.volumeID = decodeVolumeID(&page0)
			t.tableBlock = b
			t.bt.MarkUsed(b)
			for _, pba := range t.mapping {
				t.bt.MarkUsed(pba)
			}
		case isSignatureBlockFirstPage(&pages):
			t.signBlock = b
			t.bt.MarkUsed(b)
			t.replaySignatureBlock(b, &pages)
		}
	}
	// Every existing mapping entry is evidence of a past corruption, so
	// the error count persists across restart.
	t.errBlockNum = len(t.mapping)
	return nil
}

// isSignatureBlockFirstPage reports whether slot 0 of pages[0] carries the
// signature-block magic.
func isSignatureBlockFirstPage(pages *[flashpage.PerBlock]flashpage.Page) bool {
	var sig [checkcenter.SignatureSize]byte
	copy(sig[:], pages[0][0:checkcenter.SignatureSize])
	return checkcenter.IsBlockMagic(sig)
}

// replaySignatureBlock iterates every 128-byte slot across a signature
// block's physical pages, recording non-zero slots into signOf and
// counting occupied slots to restore signBlockOffset.
func (t *TL) replaySignatureBlock(b flashpage.BlockNo, pages *[flashpage.PerBlock]flashpage.Page) {
	occupied := 0
	for page := 0; page < flashpage.PerBlock; page++ {
		for s := 0; s < flashpage.Size/checkcenter.SignatureSize; s++ {
			off := s * checkcenter.SignatureSize
			var sig [checkcenter.SignatureSize]byte
			copy(sig[:], pages[page][off:off+checkcenter.SignatureSize])
			if isZeroSig(sig) {
				continue
			}
			lpa := checkcenter.ExtractLPA(sig)
			slot := page*(flashpage.Size/checkcenter.SignatureSize) + s
			t.signOf[lpa] = sigLoc{block: b, slot: slot}
			occupied++
		}
	}
	t.signBlockOffset = occupied
}

func isZeroSig(sig [checkcenter.SignatureSize]byte) bool {
	for _, b := range sig {
		if b != 0 {
			return false
		}
	}
	return true
}
