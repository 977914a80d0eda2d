package translation_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondfs-go/flashfs/internal/blocktable"
	"github.com/wondfs-go/flashfs/internal/device"
	"github.com/wondfs-go/flashfs/internal/flashpage"
	"github.com/wondfs-go/flashfs/internal/metrics"
	"github.com/wondfs-go/flashfs/internal/translation"
	"github.com/wondfs-go/flashfs/internal/writebuffer"
)

func Test_Replay_ReconstructsVolumeIDAndData(t *testing.T) {
	t.Parallel()

	dev := device.NewVirtual(6)
	bt := blocktable.New(6)
	met := metrics.NewSet(prometheus.NewRegistry())
	tl := translation.New(translation.Config{TotalBlocks: 6, UseMax: 1}, dev, bt, met)

	var volumeID [16]byte
	copy(volumeID[:], "0123456789abcdef")
	require.NoError(t, tl.Format(volumeID))

	for i := 0; i < writebuffer.Capacity; i++ {
		require.NoError(t, tl.Write(flashpage.LPAOf(0, i), pageWith(byte(i+1))))
	}

	// A fresh TL over the same backing device, reconstructed purely from
	// what was persisted.
	bt2 := blocktable.New(6)
	tl2 := translation.New(translation.Config{TotalBlocks: 6, UseMax: 1}, dev, bt2, met)
	require.NoError(t, tl2.Replay())

	assert.Equal(t, volumeID, tl2.VolumeID())

	out, err := tl2.Read(0)
	require.NoError(t, err)
	for i := 0; i < writebuffer.Capacity; i++ {
		assert.Equal(t, byte(i+1), out[i][0])
	}
}

func Test_Replay_PreservesRemapAfterCorruption(t *testing.T) {
	t.Parallel()

	dev := device.NewVirtual(6)
	bt := blocktable.New(6)
	met := metrics.NewSet(prometheus.NewRegistry())
	tl := translation.New(translation.Config{TotalBlocks: 6, UseMax: 1}, dev, bt, met)
	require.NoError(t, tl.Format([16]byte{}))

	for i := 0; i < writebuffer.Capacity; i++ {
		require.NoError(t, tl.Write(flashpage.LPAOf(0, i), pageWith(byte(i+1))))
	}

	require.NoError(t, dev.EraseBlock(0))
	require.NoError(t, dev.WritePage(flashpage.LPAOf(0, 0), pageWith(0xFF)))
	_, err := tl.Read(0) // triggers the remap
	require.NoError(t, err)

	bt2 := blocktable.New(6)
	tl2 := translation.New(translation.Config{TotalBlocks: 6, UseMax: 1}, dev, bt2, met)
	require.NoError(t, tl2.Replay())

	out, err := tl2.Read(0)
	require.NoError(t, err)
	for i := range out {
		assert.True(t, out[i].IsZero(), "remap target is blank, and replay must resolve logical block 0 there")
	}
}
