package writebuffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondfs-go/flashfs/internal/flashpage"
	"github.com/wondfs-go/flashfs/internal/writebuffer"
)

func Test_Put_SignalsSyncOnlyAtCapacity(t *testing.T) {
	t.Parallel()

	wb := writebuffer.New()
	for i := 0; i < writebuffer.Capacity-1; i++ {
		syncNeeded := wb.Put(flashpage.LPA(i), flashpage.Page{})
		require.False(t, syncNeeded, "entry %d should not trigger sync", i)
	}

	syncNeeded := wb.Put(flashpage.LPA(writebuffer.Capacity-1), flashpage.Page{})
	assert.True(t, syncNeeded)
	assert.Equal(t, writebuffer.Capacity, wb.Len())
}

func Test_Put_OverwritingExistingLPA_DoesNotGrowOrResignal(t *testing.T) {
	t.Parallel()

	wb := writebuffer.New()
	wb.Put(1, flashpage.Page{0: 1})
	syncNeeded := wb.Put(1, flashpage.Page{0: 2})

	assert.False(t, syncNeeded)
	assert.Equal(t, 1, wb.Len())
	page, ok := wb.Get(1)
	require.True(t, ok)
	assert.Equal(t, byte(2), page[0])
}

func Test_Contains_And_Get(t *testing.T) {
	t.Parallel()

	wb := writebuffer.New()
	assert.False(t, wb.Contains(7))

	wb.Put(7, flashpage.Page{})
	assert.True(t, wb.Contains(7))

	_, ok := wb.Get(8)
	assert.False(t, ok)
}

func Test_Drain_PreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	wb := writebuffer.New()
	order := []flashpage.LPA{5, 2, 9, 1}
	for _, lpa := range order {
		wb.Put(lpa, flashpage.Page{})
	}

	entries := wb.Drain()
	require.Len(t, entries, len(order))
	for i, lpa := range order {
		assert.Equal(t, lpa, entries[i].LPA)
	}
	// Drain does not clear.
	assert.Equal(t, len(order), wb.Len())
}

func Test_Clear_EmptiesBuffer(t *testing.T) {
	t.Parallel()

	wb := writebuffer.New()
	wb.Put(1, flashpage.Page{})
	wb.Clear()

	assert.Equal(t, 0, wb.Len())
	assert.False(t, wb.Contains(1))
}

func Test_Discard_RemovesSingleEntry(t *testing.T) {
	t.Parallel()

	wb := writebuffer.New()
	wb.Put(1, flashpage.Page{})
	wb.Put(2, flashpage.Page{})

	wb.Discard(1)

	assert.False(t, wb.Contains(1))
	assert.True(t, wb.Contains(2))
	assert.Equal(t, 1, wb.Len())

	// Discarding an absent key is a no-op.
	wb.Discard(99)
	assert.Equal(t, 1, wb.Len())
}

func Test_Put_PanicsWhenFullAndUnflushed(t *testing.T) {
	t.Parallel()

	wb := writebuffer.New()
	for i := 0; i < writebuffer.Capacity; i++ {
		wb.Put(flashpage.LPA(i), flashpage.Page{})
	}

	assert.Panics(t, func() {
		wb.Put(flashpage.LPA(writebuffer.Capacity), flashpage.Page{})
	})
}
