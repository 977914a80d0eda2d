// Package device implements C1: the flat, NAND-like physical medium. Pages
// may be written only once between erases of their owning block; erase is
// the only operation that restores writability.
package device

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wondfs-go/flashfs/internal/flasherr"
	"github.com/wondfs-go/flashfs/internal/flashpage"
)

// Device is the contract every backend (virtual or real) must satisfy.
// Bounds violations and write-once violations are always fatal: callers
// above this layer are expected to have already erased before writing.
type Device interface {
	// ReadBlock always succeeds; unwritten pages read back as all-zero.
	ReadBlock(block flashpage.BlockNo) ([flashpage.PerBlock]flashpage.Page, error)
	// WritePage fails if the target page is not all-zero.
	WritePage(addr flashpage.LPA, page flashpage.Page) error
	// EraseBlock zeroes all 128 pages of block.
	EraseBlock(block flashpage.BlockNo) error
	// TotalBlocks reports the device's fixed geometry.
	TotalBlocks() int
}

// VirtualDevice is an in-memory backend, used by tests and by the GC/TL
// unit tests that need a fast, inspectable medium.
type VirtualDevice struct {
	mu     sync.Mutex
	blocks int
	pages  [][flashpage.Size]byte
	log    *logrus.Entry
}

// NewVirtual allocates an all-zero virtual medium of the given block count.
func NewVirtual(blocks int) *VirtualDevice {
	return &VirtualDevice{
		blocks: blocks,
		pages:  make([][flashpage.Size]byte, blocks*flashpage.PerBlock),
		log:    logrus.WithField("component", "device.virtual"),
	}
}

func (d *VirtualDevice) TotalBlocks() int { return d.blocks }

func (d *VirtualDevice) checkBlock(block flashpage.BlockNo) error {
	if int(block) < 0 || int(block) >= d.blocks {
		return flasherr.New(flasherr.AddressOutOfRange, "block %d out of range [0,%d)", block, d.blocks)
	}
	return nil
}

func (d *VirtualDevice) ReadBlock(block flashpage.BlockNo) ([flashpage.PerBlock]flashpage.Page, error) {
	var out [flashpage.PerBlock]flashpage.Page
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkBlock(block); err != nil {
		return out, err
	}
	base := int(block) * flashpage.PerBlock
	for i := 0; i < flashpage.PerBlock; i++ {
		out[i] = flashpage.Page(d.pages[base+i])
	}
	return out, nil
}

func (d *VirtualDevice) WritePage(addr flashpage.LPA, page flashpage.Page) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	block := flashpage.BlockOf(addr)
	if err := d.checkBlock(block); err != nil {
		return err
	}
	idx := int(block)*flashpage.PerBlock + flashpage.OffsetOf(addr)
	cur := flashpage.Page(d.pages[idx])
	if !cur.IsZero() {
		return flasherr.New(flasherr.MediumWriteOnceViolation, "page %d already written; erase block %d first", addr, block)
	}
	d.pages[idx] = [flashpage.Size]byte(page)
	return nil
}

func (d *VirtualDevice) EraseBlock(block flashpage.BlockNo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkBlock(block); err != nil {
		return err
	}
	base := int(block) * flashpage.PerBlock
	for i := 0; i < flashpage.PerBlock; i++ {
		d.pages[base+i] = [flashpage.Size]byte{}
	}
	d.log.WithField("block", block).Debug("erased block")
	return nil
}

// FileDevice is a host-file-backed medium, used by cmd/mkflash and
// cmd/flashctl to persist a device image across process runs. It enforces
// the same write-once discipline as VirtualDevice by reading back the
// target page before writing.
type FileDevice struct {
	mu     sync.Mutex
	f      *os.File
	blocks int
	log    *logrus.Entry
}

// OpenFile opens (or creates, sized to blocks*BlockBytes) a file-backed
// device image.
func OpenFile(path string, blocks int) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, wrapIOErr(err, "open device image")
	}
	size := int64(blocks) * flashpage.BlockBytes
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, wrapIOErr(err, "size device image")
	}
	return &FileDevice{f: f, blocks: blocks, log: logrus.WithField("component", "device.file")}, nil
}

func (d *FileDevice) TotalBlocks() int { return d.blocks }

func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f.Close()
}

func (d *FileDevice) checkBlock(block flashpage.BlockNo) error {
	if int(block) < 0 || int(block) >= d.blocks {
		return flasherr.New(flasherr.AddressOutOfRange, "block %d out of range [0,%d)", block, d.blocks)
	}
	return nil
}

func (d *FileDevice) ReadBlock(block flashpage.BlockNo) ([flashpage.PerBlock]flashpage.Page, error) {
	var out [flashpage.PerBlock]flashpage.Page
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkBlock(block); err != nil {
		return out, err
	}
	off := int64(block) * flashpage.BlockBytes
	buf := make([]byte, flashpage.BlockBytes)
	if _, err := d.f.ReadAt(buf, off); err != nil {
		return out, wrapIOErr(err, "read block")
	}
	for i := 0; i < flashpage.PerBlock; i++ {
		copy(out[i][:], buf[i*flashpage.Size:(i+1)*flashpage.Size])
	}
	return out, nil
}

func (d *FileDevice) WritePage(addr flashpage.LPA, page flashpage.Page) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	block := flashpage.BlockOf(addr)
	if err := d.checkBlock(block); err != nil {
		return err
	}
	off := int64(addr) * flashpage.Size
	cur := make([]byte, flashpage.Size)
	if _, err := d.f.ReadAt(cur, off); err != nil {
		return wrapIOErr(err, "read-before-write")
	}
	var curPage flashpage.Page
	copy(curPage[:], cur)
	if !curPage.IsZero() {
		return flasherr.New(flasherr.MediumWriteOnceViolation, "page %d already written; erase block %d first", addr, block)
	}
	if _, err := d.f.WriteAt(page[:], off); err != nil {
		return wrapIOErr(err, "write page")
	}
	return nil
}

func (d *FileDevice) EraseBlock(block flashpage.BlockNo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkBlock(block); err != nil {
		return err
	}
	zero := make([]byte, flashpage.BlockBytes)
	off := int64(block) * flashpage.BlockBytes
	if _, err := d.f.WriteAt(zero, off); err != nil {
		return wrapIOErr(err, "erase block")
	}
	d.log.WithField("block", block).Debug("erased block")
	return nil
}

func wrapIOErr(err error, msg string) error {
	return errors.Wrap(err, msg)
}
