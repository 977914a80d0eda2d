// Package translation implements the TranslationLayer, the centre of the
// design. It owns the device, the write buffer, the mapping table, the
// signature-location maps, and the two persistent-region cursors. Grounded
// structurally on biscuit/src/ufs/ufs.go's Ufs_t (a facade that owns
// disk+filesystem state and mediates every access) and on
// biscuit/src/fs/blk.go's Disk_i contract.
package translation

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wondfs-go/flashfs/internal/blocktable"
	"github.com/wondfs-go/flashfs/internal/checkcenter"
	"github.com/wondfs-go/flashfs/internal/device"
	"github.com/wondfs-go/flashfs/internal/flashpage"
	"github.com/wondfs-go/flashfs/internal/metrics"
	"github.com/wondfs-go/flashfs/internal/writebuffer"
)

// hotCorruptionWindow is the "last corruption < 12h ago" scheme-selection
// threshold.
const hotCorruptionWindow = 12 * time.Hour

// errRateThreshold is the "err_block_num / B > 2%" scheme-selection
// threshold.
const errRateThreshold = 0.02

// Config describes the fixed device geometry.
type Config struct {
	TotalBlocks int // B
	UseMax      int // last user block number (inclusive)
}

// sigLoc locates a persisted signature: its physical block and slot index
// within that block's signature stream, in [0, 32*128).
type sigLoc struct {
	block flashpage.BlockNo
	slot  int
}

// TL is the TranslationLayer.
type TL struct {
	cfg Config
	dev device.Device
	wb  *writebuffer.WriteBuffer
	bt  *blocktable.BlockTable
	met *metrics.Set
	log *logrus.Entry

	mapping map[flashpage.BlockNo]flashpage.BlockNo // LPA_block -> PBA_block
	signOf  map[flashpage.LPA]sigLoc

	tableBlock      flashpage.BlockNo
	signBlock       flashpage.BlockNo
	signBlockOffset int // occupied 128-byte slots in the current signature block
	errBlockNum     int
	lastErrTime     time.Time
	haveLastErrTime bool
	volumeID        [volumeIDSize]byte
}

// VolumeID returns the 16-byte identity stamp set at format time, preserved
// verbatim across Replay.
func (t *TL) VolumeID() [volumeIDSize]byte { return t.volumeID }

// New constructs a TL over dev using blocktable bt and metrics met. It does
// not format or replay the reserved region; call Format (fresh medium) or
// Replay (existing medium) before use.
func New(cfg Config, dev device.Device, bt *blocktable.BlockTable, met *metrics.Set) *TL {
	return &TL{
		cfg:    cfg,
		dev:    dev,
		wb:     writebuffer.New(),
		bt:     bt,
		met:    met,
		log:    logrus.WithField("component", "translation"),
		mapping: make(map[flashpage.BlockNo]flashpage.BlockNo),
		signOf:  make(map[flashpage.LPA]sigLoc),
	}
}

// WriteBuffer exposes the buffer for callers that need to check residency
// without routing through Read.
func (t *TL) WriteBuffer() *writebuffer.WriteBuffer { return t.wb }

// remap resolves a logical user block to its current physical block,
// defaulting to identity when no mapping entry exists.
func (t *TL) remap(logical flashpage.BlockNo) flashpage.BlockNo {
	if pba, ok := t.mapping[logical]; ok {
		return pba
	}
	return logical
}

// selectScheme implements the ECC/CRC-32 signature-scheme selection table.
func (t *TL) selectScheme() checkcenter.Scheme {
	if float64(t.errBlockNum)/float64(t.cfg.TotalBlocks) > errRateThreshold {
		t.met.SchemeECCTotal.Inc()
		return checkcenter.ECC
	}
	if t.haveLastErrTime && time.Since(t.lastErrTime) < hotCorruptionWindow {
		t.met.SchemeECCTotal.Inc()
		return checkcenter.ECC
	}
	t.met.SchemeCRCTotal.Inc()
	return checkcenter.CRC32
}
