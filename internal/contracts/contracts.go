// Package contracts declares the narrow interfaces the storage stack uses
// to talk to its out-of-scope collaborators: the POSIX semantics layer,
// the inode-to-block allocator, the compression codec, and the real
// hardware driver. None are implemented here, following
// biscuit/src/fs/blk.go's pattern of declaring small `*_i` interfaces at
// package boundaries (Blockmem_i, Block_cb_i, Disk_i) — a named contract
// with no in-tree implementation obligation.
package contracts

import "github.com/wondfs-go/flashfs/internal/flashpage"

// InodeAllocator is the inode-to-block allocator and its pin/unpin
// reference counting, owned by the layer above BufCache.
type InodeAllocator interface {
	Pin(ino uint64) error
	Unpin(ino uint64) error
	BlocksOf(ino uint64) ([]flashpage.BlockNo, error)
}

// CompressionCodec is the compression codec selection hook; the write
// path may run data through a codec before it reaches BufCache.Write.
type CompressionCodec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// HardwareDriver is the real-medium driver; Device implementations in
// internal/device stand in for it in this module (VirtualDevice for
// tests, FileDevice for a host-file-backed image).
type HardwareDriver interface {
	Open(path string) error
	Close() error
}

// PosixFacade is the lookup/mkdir/permission/path-resolution layer above
// BufCache; it is out of scope for this module.
type PosixFacade interface {
	Lookup(path string) (ino uint64, err error)
	Mkdir(path string, mode uint32) error
}
