package gc

import (
	"time"

	"github.com/wondfs-go/flashfs/internal/flashpage"
)

// Class buckets a block by its average age for BackgroundCold's victim
// scope.
type Class int

const (
	Normal Class = iota
	Hot
	Cold
)

const (
	hotThreshold  = 24 * time.Hour
	coldThreshold = 14 * 24 * time.Hour
)

// classifyCache lazily buckets blocks into hot/normal/cold, re-synced only
// when a dirty flag is set.
type classifyCache struct {
	classes  map[flashpage.BlockNo]Class
	needSync bool
}

func newClassifyCache() *classifyCache {
	return &classifyCache{classes: make(map[flashpage.BlockNo]Class), needSync: true}
}

// MarkDirty requests a resync on the next classification query.
func (c *classifyCache) MarkDirty() { c.needSync = true }

func classify(age time.Duration) Class {
	switch {
	case age >= coldThreshold:
		return Cold
	case age < hotThreshold:
		return Hot
	default:
		return Normal
	}
}

// ageFunc is supplied by the caller (BlockTable.Block(b).AverageAge) so this
// package stays independent of blocktable's concrete type.
type ageFunc func(flashpage.BlockNo) time.Duration

// sync recomputes every block's classification when dirty; a no-op
// otherwise.
func (c *classifyCache) sync(useMax int, age ageFunc) {
	if !c.needSync {
		return
	}
	for i := 0; i <= useMax; i++ {
		b := flashpage.BlockNo(i)
		c.classes[b] = classify(age(b))
	}
	c.needSync = false
}

// classOf returns b's cached classification; callers must sync first.
func (c *classifyCache) classOf(b flashpage.BlockNo) Class {
	return c.classes[b]
}
