// Package flashutil holds small generic helpers and on-disk codec
// primitives shared across the storage stack.
package flashutil

import (
	"encoding/binary"
	"hash/crc32"
)

// Int is satisfied by all built-in integer types.
type Int interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Min returns the smaller of a and b.
func Min[T Int](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Rounddown aligns v down to the nearest multiple of b.
func Rounddown[T Int](v, b T) T {
	return v - (v % b)
}

// Roundup aligns v up to the nearest multiple of b.
func Roundup[T Int](v, b T) T {
	return Rounddown(v+b-1, b)
}

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC-32C (Castagnoli) checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// PutU32BE writes v as a big-endian uint32 at b[off:off+4].
func PutU32BE(b []byte, off int, v uint32) {
	binary.BigEndian.PutUint32(b[off:off+4], v)
}

// U32BE reads a big-endian uint32 from b[off:off+4].
func U32BE(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off : off+4])
}
