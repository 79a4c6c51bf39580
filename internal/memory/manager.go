// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package memory

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glowstack/glowd/internal/metrics"
)

// Strategy selects which memory tier an allocation is served from.
type Strategy int

const (
	// TierAOnly uses only the fast, limited tier. Fails when A is exhausted.
	TierAOnly Strategy = iota
	// TierBOnly uses only the large tier. Fails when B is absent or exhausted.
	TierBOnly
	// TierBPreferred tries the large tier first, then falls back to A.
	TierBPreferred
	// Auto picks a tier heuristically based on size and tier pressure.
	Auto
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case TierAOnly:
		return "tier-a-only"
	case TierBOnly:
		return "tier-b-only"
	case TierBPreferred:
		return "tier-b-preferred"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// LargeAllocThreshold is the size at or above which Auto prefers the
// large tier. Matches the firmware heuristic of routing big buffers
// (images, frame data) away from the fast tier.
const LargeAllocThreshold = 4096

// ErrExhausted is returned when no tier can satisfy an allocation.
var ErrExhausted = errors.New("memory: no tier can satisfy allocation")

// ErrTierUnavailable is returned by tier-restricted strategies when the
// requested tier is absent or too full.
var ErrTierUnavailable = errors.New("memory: requested tier unavailable")

// Tier identifies a memory pool.
type Tier int

const (
	// TierA is fast and limited (the firmware's internal SRAM).
	TierA Tier = iota
	// TierB is large and may be absent on some hardware (PSRAM).
	TierB
)

// String returns the tier name.
func (t Tier) String() string {
	if t == TierB {
		return "b"
	}
	return "a"
}

// Allocation is a live allocation handed out by the Manager. The buffer
// is owned by the caller until Free; the Manager only accounts for it.
type Allocation struct {
	id   uint64
	Buf  []byte
	tier Tier
}

// Tier reports which tier served the allocation.
func (a *Allocation) Tier() Tier { return a.tier }

// Size returns the allocation size in bytes.
func (a *Allocation) Size() int { return len(a.Buf) }

// record tracks a live allocation for leak detection and stats.
type record struct {
	size      int
	tier      Tier
	site      string
	timestamp time.Time
}

// Stats is a point-in-time aggregate over the allocation table.
type Stats struct {
	TotalAllocated    uint64
	PeakAllocated     uint64
	AllocationCount   uint32
	FailedAllocations uint32
	TierAFree         uint64
	TierBFree         uint64
	TierBAvailable    bool
}

// pool is one memory tier's capacity accounting.
type pool struct {
	capacity uint64
	used     uint64
	present  bool
}

func (p *pool) free() uint64 {
	if !p.present || p.used >= p.capacity {
		return 0
	}
	return p.capacity - p.used
}

// Manager is the two-tier resource manager. All methods are safe for
// concurrent use; the allocation table is one of the two structures in
// the system that require explicit mutual exclusion (the other is the
// object handle table).
type Manager struct {
	mu sync.Mutex

	tierA pool
	tierB pool

	records map[uint64]*record
	nextID  uint64

	totalAllocated uint64
	peakAllocated  uint64
	failed         uint32

	now func() time.Time
}

// Options configures the Manager.
type Options struct {
	// TierACapacity is the fast tier's size in bytes. Required.
	TierACapacity uint64
	// TierBCapacity is the large tier's size in bytes. Zero means the
	// tier is absent on this hardware.
	TierBCapacity uint64
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewManager creates a resource manager over the two tiers.
func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Manager{
		tierA:   pool{capacity: opts.TierACapacity, present: true},
		tierB:   pool{capacity: opts.TierBCapacity, present: opts.TierBCapacity > 0},
		records: make(map[uint64]*record),
		now:     opts.Now,
	}
	m.publishGauges()
	return m
}

// TierBAvailable reports whether the large tier exists on this hardware.
func (m *Manager) TierBAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tierB.present
}

// Allocate reserves size bytes using the given strategy and records the
// allocation under the site tag. Failure increments the failed counter
// exactly once and returns an error; it never panics. Callers own the
// fallback decision.
func (m *Manager) Allocate(size int, strategy Strategy, site string) (*Allocation, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memory: invalid allocation size %d", size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocateLocked(size, strategy, site)
}

// allocateLocked implements Allocate with m.mu held.
func (m *Manager) allocateLocked(size int, strategy Strategy, site string) (*Allocation, error) {
	tier, err := m.pickTier(size, strategy)
	if err != nil {
		m.failed++
		metrics.MemoryFailedAllocations.Inc()
		return nil, err
	}

	m.pools(tier).used += uint64(size)
	m.nextID++
	id := m.nextID
	m.records[id] = &record{
		size:      size,
		tier:      tier,
		site:      site,
		timestamp: m.now(),
	}
	m.totalAllocated += uint64(size)
	if m.totalAllocated > m.peakAllocated {
		m.peakAllocated = m.totalAllocated
	}
	m.publishGauges()

	return &Allocation{id: id, Buf: make([]byte, size), tier: tier}, nil
}

// pickTier resolves a strategy to a tier with room for size bytes.
// Must be called with m.mu held.
func (m *Manager) pickTier(size int, strategy Strategy) (Tier, error) {
	fitsA := m.tierA.free() >= uint64(size)
	fitsB := m.tierB.present && m.tierB.free() >= uint64(size)

	switch strategy {
	case TierAOnly:
		if fitsA {
			return TierA, nil
		}
		return 0, fmt.Errorf("%w: tier A full (%d bytes requested)", ErrTierUnavailable, size)
	case TierBOnly:
		if fitsB {
			return TierB, nil
		}
		return 0, fmt.Errorf("%w: tier B absent or full (%d bytes requested)", ErrTierUnavailable, size)
	case TierBPreferred:
		if fitsB {
			return TierB, nil
		}
		if fitsA {
			return TierA, nil
		}
		return 0, fmt.Errorf("%w: %d bytes", ErrExhausted, size)
	case Auto:
		preferB := size >= LargeAllocThreshold ||
			m.tierA.free() < 2*uint64(size)
		if preferB && fitsB {
			return TierB, nil
		}
		if fitsA {
			return TierA, nil
		}
		if fitsB {
			return TierB, nil
		}
		return 0, fmt.Errorf("%w: %d bytes", ErrExhausted, size)
	default:
		return 0, fmt.Errorf("memory: unknown strategy %d", strategy)
	}
}

// Free releases an allocation and removes its record. Freeing nil is a
// no-op; double frees are detected via the record table and ignored.
func (m *Manager) Free(a *Allocation) {
	if a == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[a.id]
	if !ok {
		return
	}
	delete(m.records, a.id)
	m.pools(rec.tier).used -= uint64(rec.size)
	m.totalAllocated -= uint64(rec.size)
	a.Buf = nil
	m.publishGauges()
}

// Reallocate resizes an allocation, modeled as remove-old/add-new. If
// the new allocation cannot be served the original record is restored so
// the stats never silently leak the surviving allocation.
func (m *Manager) Reallocate(a *Allocation, newSize int, strategy Strategy, site string) (*Allocation, error) {
	if a == nil {
		return m.Allocate(newSize, strategy, site)
	}
	if newSize <= 0 {
		m.Free(a)
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.records[a.id]
	if !ok {
		return nil, fmt.Errorf("memory: reallocate of unknown allocation")
	}

	// Remove the old record before sizing the new one so pickTier sees
	// the freed capacity.
	delete(m.records, a.id)
	m.pools(old.tier).used -= uint64(old.size)
	m.totalAllocated -= uint64(old.size)

	replacement, err := m.allocateLocked(newSize, strategy, site)
	if err != nil {
		// Restore tracking; the original allocation still stands.
		m.records[a.id] = old
		m.pools(old.tier).used += uint64(old.size)
		m.totalAllocated += uint64(old.size)
		m.publishGauges()
		return nil, err
	}

	copy(replacement.Buf, a.Buf)
	a.Buf = nil
	return replacement, nil
}

// Stats recomputes the aggregate statistics on demand.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		TotalAllocated:    m.totalAllocated,
		PeakAllocated:     m.peakAllocated,
		AllocationCount:   uint32(len(m.records)),
		FailedAllocations: m.failed,
		TierAFree:         m.tierA.free(),
		TierBFree:         m.tierB.free(),
		TierBAvailable:    m.tierB.present,
	}
}

// RecommendStrategy suggests a strategy for a planned allocation based
// on current tier pressure. Large requests, and requests that would
// leave tier A with less than double the requested size, go to the
// large tier when it exists.
func (m *Manager) RecommendStrategy(size int) Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()

	if size >= LargeAllocThreshold || m.tierA.free() < 2*uint64(size) {
		if m.tierB.present {
			return TierBPreferred
		}
		return TierAOnly
	}
	return TierAOnly
}

// LiveRecords returns the site tags of all live allocations, the
// authoritative leak-detection source. Intended for diagnostics output.
func (m *Manager) LiveRecords() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	sites := make(map[string]int, len(m.records))
	for _, rec := range m.records {
		sites[rec.site] += rec.size
	}
	return sites
}

// pools returns the pool for a tier. Must be called with m.mu held.
func (m *Manager) pools(t Tier) *pool {
	if t == TierB {
		return &m.tierB
	}
	return &m.tierA
}

// publishGauges mirrors the counters into Prometheus. Must be called
// with m.mu held.
func (m *Manager) publishGauges() {
	metrics.MemoryAllocatedBytes.Set(float64(m.totalAllocated))
	metrics.MemoryPeakBytes.Set(float64(m.peakAllocated))
	metrics.MemoryLiveAllocations.Set(float64(len(m.records)))
	metrics.MemoryTierFreeBytes.WithLabelValues(TierA.String()).Set(float64(m.tierA.free()))
	metrics.MemoryTierFreeBytes.WithLabelValues(TierB.String()).Set(float64(m.tierB.free()))
}
