// Package checkcenter implements stateless per-page signature compute,
// verify, and logical-address extraction.
package checkcenter

import (
	"github.com/wondfs-go/flashfs/internal/flasherr"
	"github.com/wondfs-go/flashfs/internal/flashpage"
	"github.com/wondfs-go/flashfs/internal/flashutil"
)

// Scheme selects the integrity checking algorithm for a page.
type Scheme uint8

const (
	// CRC32 is the implemented scheme: CRC-32C over the page payload.
	CRC32 Scheme = 0x00
	// ECC is reserved; sign/verify reject it with UnimplementedScheme.
	ECC Scheme = 0x01
)

// SignatureSize is the per-page integrity record size, persisted 32 to a
// physical page.
const SignatureSize = 128

const (
	offCRC        = 0
	offBlockMagic = 119
	offLPA        = 123
	offScheme     = 127
)

// blockMagic identifies the first signature slot of a signature block.
var blockMagic = [4]byte{0x33, 0x33, 0xAA, 0xAA}

// Sign computes the 128-byte signature for data at logical address lpa
// under scheme. firstOfBlock marks slot 0 of a signature block, which
// additionally carries the signature-block magic at bytes 119..123.
func Sign(data *flashpage.Page, lpa flashpage.LPA, scheme Scheme, firstOfBlock bool) ([SignatureSize]byte, error) {
	var sig [SignatureSize]byte
	if scheme == ECC {
		return sig, flasherr.New(flasherr.UnimplementedScheme, "ECC signing not implemented")
	}
	crc := flashutil.CRC32C(data[:])
	flashutil.PutU32BE(sig[:], offCRC, crc)
	if firstOfBlock {
		copy(sig[offBlockMagic:offBlockMagic+4], blockMagic[:])
	}
	flashutil.PutU32BE(sig[:], offLPA, uint32(lpa))
	sig[offScheme] = byte(scheme)
	return sig, nil
}

// Repair is a CRC-scheme no-op placeholder: CRC cannot reconstruct data,
// only detect corruption. ECC's promise of in-place repair is reserved for
// when the ECC path is implemented.
type Repair struct {
	Page flashpage.Page
}

// Verify checks data against its persisted signature. ok reports whether
// the checksum matched; repaired is non-nil only when the scheme both
// detected and corrected an error (never true for CRC-32).
func Verify(data *flashpage.Page, sig [SignatureSize]byte) (ok bool, scheme Scheme, repaired *Repair, err error) {
	scheme = Scheme(sig[offScheme])
	if scheme == ECC {
		return false, scheme, nil, flasherr.New(flasherr.UnimplementedScheme, "ECC verification not implemented")
	}
	stored := flashutil.U32BE(sig[:], offCRC)
	actual := flashutil.CRC32C(data[:])
	return stored == actual, scheme, nil, nil
}

// ExtractLPA reads the logical page address recorded in sig.
func ExtractLPA(sig [SignatureSize]byte) flashpage.LPA {
	return flashpage.LPA(flashutil.U32BE(sig[:], offLPA))
}

// IsBlockMagic reports whether sig carries the signature-block magic,
// identifying it as slot 0 of the first page of a signature block.
func IsBlockMagic(sig [SignatureSize]byte) bool {
	return sig[offBlockMagic] == blockMagic[0] && sig[offBlockMagic+1] == blockMagic[1] &&
		sig[offBlockMagic+2] == blockMagic[2] && sig[offBlockMagic+3] == blockMagic[3]
}
