package translation

import (
	"github.com/wondfs-go/flashfs/internal/flasherr"
	"github.com/wondfs-go/flashfs/internal/flashpage"
	"github.com/wondfs-go/flashfs/internal/flashutil"
)

// mappingMagic identifies a reserved-region block as the active mapping
// block.
var mappingMagic = [4]byte{0x22, 0x22, 0xFF, 0xFF}

// mappingHeaderSize is the 8-byte header (4-byte magic + 4 reserved bytes)
// preceding the first (lba,pba) pair; the magic itself occupies the first
// 4 bytes of that 8-byte header region — see DESIGN.md for the reasoning.
const mappingHeaderSize = 8
const mappingEntrySize = 8 // (lba_be32, pba_be32)

// volumeIDSize and volumeIDOffset place the image's 16-byte identity stamp
// near the end of the mapping block's first page, well past the largest
// table this reserved region can hold, so it never collides with (lba,pba)
// pairs.
const volumeIDSize = 16

var volumeIDOffset = flashpage.Size - volumeIDSize

// isMappingBlock reports whether page 0 of a candidate reserved block
// carries the mapping-block magic at offset 0.
func isMappingBlock(page0 *flashpage.Page) bool {
	return page0[0] == mappingMagic[0] && page0[1] == mappingMagic[1] &&
		page0[2] == mappingMagic[2] && page0[3] == mappingMagic[3]
}

// decodeMapping parses (lba,pba) pairs from a mapping block's first page
// until the (0,0) terminator, the volume-ID stamp region, or the page is
// exhausted.
func decodeMapping(page0 *flashpage.Page) map[flashpage.BlockNo]flashpage.BlockNo {
	m := make(map[flashpage.BlockNo]flashpage.BlockNo)
	off := mappingHeaderSize
	for off+mappingEntrySize <= volumeIDOffset {
		lba := flashutil.U32BE(page0[:], off)
		pba := flashutil.U32BE(page0[:], off+4)
		if lba == 0 && pba == 0 {
			break
		}
		m[flashpage.BlockNo(lba)] = flashpage.BlockNo(pba)
		off += mappingEntrySize
	}
	return m
}

// decodeVolumeID reads the 16-byte identity stamp from a mapping block's
// first page.
func decodeVolumeID(page0 *flashpage.Page) [volumeIDSize]byte {
	var id [volumeIDSize]byte
	copy(id[:], page0[volumeIDOffset:volumeIDOffset+volumeIDSize])
	return id
}

// encodeMappingPage0 serializes the header, every (lba,pba) pair, and the
// volume-ID stamp into a single page, the table terminated by (0,0); panics
// if the table runs into the stamp region (bounded by reserved-region size
// in practice, far below the page's ~500-entry capacity).
func encodeMappingPage0(m map[flashpage.BlockNo]flashpage.BlockNo, volumeID [volumeIDSize]byte) flashpage.Page {
	var page flashpage.Page
	copy(page[0:4], mappingMagic[:])
	off := mappingHeaderSize
	for lba, pba := range m {
		if off+mappingEntrySize+mappingEntrySize > volumeIDOffset {
			panic("translation: mapping table collides with volume-ID stamp")
		}
		flashutil.PutU32BE(page[:], off, uint32(lba))
		flashutil.PutU32BE(page[:], off+4, uint32(pba))
		off += mappingEntrySize
	}
	// terminator (0,0) is implicit: the rest of the page is already zero.
	copy(page[volumeIDOffset:volumeIDOffset+volumeIDSize], volumeID[:])
	return page
}

// persistMappingBlock erases and rewrites the active mapping block with
// the current in-memory table: erase, then rewrite all 128 pages with the
// header intact.
func (t *TL) persistMappingBlock() error {
	if err := t.dev.EraseBlock(t.tableBlock); err != nil {
		return err
	}
	page0 := encodeMappingPage0(t.mapping, t.volumeID)
	base := flashpage.LPAOf(t.tableBlock, 0)
	if err := t.dev.WritePage(base, page0); err != nil {
		return err
	}
	for i := 1; i < flashpage.PerBlock; i++ {
		if err := t.dev.WritePage(flashpage.LPAOf(t.tableBlock, i), flashpage.Page{}); err != nil {
			return err
		}
	}
	return nil
}

// findNextSpare scans the reserved region for a block that is neither
// tableBlock, signBlock, nor already marked used.
func (t *TL) findNextSpare() (flashpage.BlockNo, error) {
	exclude := map[flashpage.BlockNo]bool{t.tableBlock: true, t.signBlock: true}
	b, ok := t.bt.FindSpareExcept(t.cfg.UseMax+1, t.cfg.TotalBlocks, exclude, 0)
	if !ok {
		return 0, flasherr.New(flasherr.NoSpareBlock, "reserved region exhausted: no spare block available")
	}
	return b, nil
}
