package gc

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wondfs-go/flashfs/internal/blocktable"
	"github.com/wondfs-go/flashfs/internal/flasherr"
	"github.com/wondfs-go/flashfs/internal/flashpage"
	"github.com/wondfs-go/flashfs/internal/metrics"
)

// Policy selects which user block to reclaim next. All three policies
// share the same victim metric (minimise utilize_ratio); only their
// scheduling context and candidate scope differ.
type Policy int

const (
	// Forward runs on the critical path: victim = emptiest user block.
	Forward Policy = iota
	// BackgroundSimple runs off the critical path, same metric as Forward.
	BackgroundSimple
	// BackgroundCold restricts the candidate scope to the Cold bucket.
	BackgroundCold
)

// Manager observes BlockTable snapshots and never mutates them; callers
// apply the Plan it returns.
type Manager struct {
	bt       *blocktable.BlockTable
	useMax   int
	classify *classifyCache
	met      *metrics.Set
	log      *logrus.Entry
}

// New constructs a Manager over the user region [0, useMax].
func New(bt *blocktable.BlockTable, useMax int, met *metrics.Set) *Manager {
	return &Manager{
		bt:       bt,
		useMax:   useMax,
		classify: newClassifyCache(),
		met:      met,
		log:      logrus.WithField("component", "gc"),
	}
}

// MarkDirty requests the classification cache resync on next BackgroundCold
// victim selection, e.g. after blocks have aged or been erased.
func (m *Manager) MarkDirty() { m.classify.MarkDirty() }

// selectVictim implements the victim-selection logic, identical across
// policies except for candidate scope.
func (m *Manager) selectVictim(p Policy) (flashpage.BlockNo, bool) {
	if p == BackgroundCold {
		m.classify.sync(m.useMax, func(b flashpage.BlockNo) time.Duration {
			return m.bt.Block(b).AverageAge
		})
	}

	best := flashpage.BlockNo(0)
	bestRatio := 2.0 // above the [0,1] range of UtilizeRatio
	found := false
	for i := 0; i <= m.useMax; i++ {
		b := flashpage.BlockNo(i)
		if p == BackgroundCold && m.classify.classOf(b) != Cold {
			continue
		}
		ratio := m.bt.Block(b).UtilizeRatio()
		if ratio < bestRatio {
			bestRatio = ratio
			best = b
			found = true
		}
	}
	return best, found
}

// GeneratePlan picks a victim under policy and returns its reclamation
// plan.
func (m *Manager) GeneratePlan(p Policy) (Plan, error) {
	victim, ok := m.selectVictim(p)
	if !ok {
		return nil, flasherr.New(flasherr.NoSpareBlock, "gc: no victim candidate in user region")
	}
	return m.planFor(victim)
}

// planFor groups victim's 128 page states into contiguous same-ino Busy
// runs and emits one Move per run followed by a terminal Erase. It only
// observes BlockTable and mutates nothing itself; a provisional, plan-local
// reservation count per candidate destination keeps two records in the
// same plan from targeting the same not-yet-committed pages without
// writing through to BlockTable — the executor is the one that actually
// advances ReservedOffset, via BlockTable.SetPage.
func (m *Manager) planFor(victim flashpage.BlockNo) (Plan, error) {
	bi := m.bt.Block(victim)
	plan := make(Plan, 0, 8)
	index := 0
	provisional := make(map[flashpage.BlockNo]int)

	i := 0
	for i < flashpage.PerBlock {
		if bi.PageStates[i].Kind != blocktable.Busy {
			i++
			continue
		}
		ino := bi.PageStates[i].Ino
		start := i
		size := 0
		for i < flashpage.PerBlock && bi.PageStates[i].Kind == blocktable.Busy && bi.PageStates[i].Ino == ino {
			size++
			i++
		}
		dst, dstOffset, ok := m.findDestination(victim, size, provisional)
		if !ok {
			return nil, flasherr.New(flasherr.NoSpareBlock, "gc: no destination block with %d free pages", size)
		}
		srcLPA := flashpage.LPAOf(victim, start)
		dstLPA := flashpage.LPAOf(dst, dstOffset)
		plan = append(plan, Event{
			Index: index, Kind: Move, Ino: ino, Size: size,
			Src: srcLPA, Dst: dstLPA, Victim: victim,
		})
		index++
		provisional[dst] += size
	}
	plan = append(plan, Event{Index: index, Kind: Erase, Victim: victim})
	return plan, nil
}

// findDestination picks the first block (other than exclude) whose real
// ReservedSize, less any pages already provisionally committed to it
// earlier in this same plan, still covers size.
func (m *Manager) findDestination(exclude flashpage.BlockNo, size int, provisional map[flashpage.BlockNo]int) (flashpage.BlockNo, int, bool) {
	for i := 0; i <= m.useMax; i++ {
		b := flashpage.BlockNo(i)
		if b == exclude {
			continue
		}
		bi := m.bt.Block(b)
		avail := bi.ReservedSize() - provisional[b]
		if avail >= size {
			return b, bi.ReservedOffset + provisional[b], true
		}
	}
	return 0, 0, false
}
