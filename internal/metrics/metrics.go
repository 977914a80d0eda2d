// Package metrics registers the prometheus collectors exported by the
// storage stack. Components take a *Set (never the global registry
// directly) so tests can use metrics.NewSet(prometheus.NewRegistry()) in
// isolation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set bundles every collector the storage stack exports.
type Set struct {
	FlushTotal          prometheus.Counter
	PagesWrittenTotal   prometheus.Counter
	PagesReadTotal      prometheus.Counter
	CacheHitTotal       prometheus.Counter
	CacheMissTotal      prometheus.Counter
	CorruptionTotal     prometheus.Counter
	RemapTotal          prometheus.Counter
	SchemeECCTotal      prometheus.Counter
	SchemeCRCTotal      prometheus.Counter
	GCBlocksReclaimed   prometheus.Counter
	GCPagesMoved        prometheus.Counter
	SignBlockRollovers  prometheus.Counter
}

// NewSet constructs a fresh collector set and registers it with reg when
// reg is non-nil; a nil reg leaves the collectors unregistered.
// Passing prometheus.NewRegistry() (as tests do) keeps metrics isolated
// per test; passing prometheus.DefaultRegisterer wires them process-wide.
func NewSet(reg prometheus.Registerer) *Set {
	s := &Set{
		FlushTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_flush_total",
			Help: "Number of 32-page write-buffer flushes performed.",
		}),
		PagesWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_pages_written_total",
			Help: "Number of physical pages written to the device.",
		}),
		PagesReadTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_pages_read_total",
			Help: "Number of physical pages read from the device.",
		}),
		CacheHitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_cache_hit_total",
			Help: "Page cache hits.",
		}),
		CacheMissTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_cache_miss_total",
			Help: "Page cache misses.",
		}),
		CorruptionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_corruption_total",
			Help: "Signature verification failures observed.",
		}),
		RemapTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_remap_total",
			Help: "Logical blocks remapped to a spare due to corruption.",
		}),
		SchemeECCTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_scheme_ecc_total",
			Help: "Flushes for which ECC scheme was selected.",
		}),
		SchemeCRCTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_scheme_crc_total",
			Help: "Flushes for which CRC-32 scheme was selected.",
		}),
		GCBlocksReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_gc_blocks_reclaimed_total",
			Help: "Blocks erased by the garbage collector.",
		}),
		GCPagesMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_gc_pages_moved_total",
			Help: "Pages relocated by the garbage collector.",
		}),
		SignBlockRollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashfs_sign_block_rollovers_total",
			Help: "Signature block rotations to a fresh spare.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			s.FlushTotal, s.PagesWrittenTotal, s.PagesReadTotal,
			s.CacheHitTotal, s.CacheMissTotal, s.CorruptionTotal,
			s.RemapTotal, s.SchemeECCTotal, s.SchemeCRCTotal,
			s.GCBlocksReclaimed, s.GCPagesMoved, s.SignBlockRollovers,
		)
	}
	return s
}
