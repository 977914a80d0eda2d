package device_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondfs-go/flashfs/internal/device"
	"github.com/wondfs-go/flashfs/internal/flasherr"
	"github.com/wondfs-go/flashfs/internal/flashpage"
)

func Test_VirtualDevice_WriteOnceThenEraseAllowsRewrite(t *testing.T) {
	t.Parallel()

	dev := device.NewVirtual(2)
	addr := flashpage.LPAOf(0, 0)
	var page flashpage.Page
	copy(page[:], "payload")

	require.NoError(t, dev.WritePage(addr, page))

	err := dev.WritePage(addr, page)
	require.Error(t, err)
	assert.True(t, flasherr.Is(err, flasherr.MediumWriteOnceViolation))

	require.NoError(t, dev.EraseBlock(0))
	require.NoError(t, dev.WritePage(addr, page))
}

func Test_VirtualDevice_ReadUnwrittenIsZero(t *testing.T) {
	t.Parallel()

	dev := device.NewVirtual(1)
	pages, err := dev.ReadBlock(0)
	require.NoError(t, err)
	assert.True(t, pages[0].IsZero())
}

func Test_VirtualDevice_OutOfRangeIsFatal(t *testing.T) {
	t.Parallel()

	dev := device.NewVirtual(1)
	_, err := dev.ReadBlock(5)
	require.Error(t, err)
	assert.True(t, flasherr.Is(err, flasherr.AddressOutOfRange))
	assert.True(t, flasherr.AddressOutOfRange.Fatal())
}

func Test_FileDevice_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "image.bin")

	dev, err := device.OpenFile(path, 2)
	require.NoError(t, err)

	addr := flashpage.LPAOf(0, 3)
	var page flashpage.Page
	copy(page[:], "durable")
	require.NoError(t, dev.WritePage(addr, page))
	require.NoError(t, dev.Close())

	reopened, err := device.OpenFile(path, 2)
	require.NoError(t, err)
	defer reopened.Close()

	pages, err := reopened.ReadBlock(0)
	require.NoError(t, err)
	assert.True(t, bytesHavePrefix(pages[3][:], []byte("durable")))
}

func Test_FileDevice_WriteOnceViolation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "image.bin")
	dev, err := device.OpenFile(path, 1)
	require.NoError(t, err)
	defer dev.Close()

	addr := flashpage.LPAOf(0, 0)
	var page flashpage.Page
	page[0] = 1
	require.NoError(t, dev.WritePage(addr, page))

	err = dev.WritePage(addr, page)
	require.Error(t, err)
	assert.True(t, flasherr.Is(err, flasherr.MediumWriteOnceViolation))
}

func bytesHavePrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
