// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package memory

import (
	"errors"
	"testing"
)

func newTestManager(aCap, bCap uint64) *Manager {
	return NewManager(Options{TierACapacity: aCap, TierBCapacity: bCap})
}

func TestAllocateStrategies(t *testing.T) {
	t.Run("tier A only fails when exhausted", func(t *testing.T) {
		m := newTestManager(1024, 0)

		a, err := m.Allocate(512, TierAOnly, "test")
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if a.Tier() != TierA {
			t.Errorf("tier = %v, want A", a.Tier())
		}

		if _, err := m.Allocate(1024, TierAOnly, "test"); !errors.Is(err, ErrTierUnavailable) {
			t.Errorf("expected ErrTierUnavailable, got %v", err)
		}
	})

	t.Run("tier B only fails when absent", func(t *testing.T) {
		m := newTestManager(1024, 0)
		if _, err := m.Allocate(16, TierBOnly, "test"); !errors.Is(err, ErrTierUnavailable) {
			t.Errorf("expected ErrTierUnavailable, got %v", err)
		}
	})

	t.Run("tier B preferred falls back to A", func(t *testing.T) {
		m := newTestManager(1024, 64)

		a, err := m.Allocate(512, TierBPreferred, "test")
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if a.Tier() != TierA {
			t.Errorf("tier = %v, want A fallback (B too small)", a.Tier())
		}
	})

	t.Run("auto routes large allocations to B", func(t *testing.T) {
		m := newTestManager(1<<20, 1<<20)

		a, err := m.Allocate(LargeAllocThreshold, Auto, "test")
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if a.Tier() != TierB {
			t.Errorf("tier = %v, want B for large request", a.Tier())
		}

		small, err := m.Allocate(64, Auto, "test")
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if small.Tier() != TierA {
			t.Errorf("tier = %v, want A for small request", small.Tier())
		}
	})

	t.Run("auto prefers B under tier A pressure", func(t *testing.T) {
		m := newTestManager(1000, 1<<20)

		// 600-byte request would leave A with less than 2x600 free.
		a, err := m.Allocate(600, Auto, "test")
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if a.Tier() != TierB {
			t.Errorf("tier = %v, want B under pressure", a.Tier())
		}
	})
}

func TestAutoFallsBackThenFailsOnce(t *testing.T) {
	// Tier B reports 0 free bytes; an 8 KiB Auto request must fall back
	// to tier A, and when A also fails the failed counter moves by
	// exactly one.
	m := newTestManager(16*1024, 8192)
	if _, err := m.Allocate(8192, TierBOnly, "fill-b"); err != nil {
		t.Fatalf("fill allocation failed: %v", err)
	}

	a, err := m.Allocate(8192, Auto, "test")
	if err != nil {
		t.Fatalf("expected fallback to tier A, got %v", err)
	}
	if a.Tier() != TierA {
		t.Fatalf("tier = %v, want A", a.Tier())
	}

	// Now exhaust A too.
	if _, err := m.Allocate(8192, TierAOnly, "fill-a"); err != nil {
		t.Fatalf("fill allocation failed: %v", err)
	}

	before := m.Stats().FailedAllocations
	if _, err := m.Allocate(8192, Auto, "test"); err == nil {
		t.Fatal("expected exhaustion error")
	}
	after := m.Stats().FailedAllocations
	if after != before+1 {
		t.Errorf("failed counter moved by %d, want 1", after-before)
	}
}

func TestFreeRemovesRecord(t *testing.T) {
	m := newTestManager(1024, 0)

	a, err := m.Allocate(256, TierAOnly, "widget")
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Stats().AllocationCount; got != 1 {
		t.Fatalf("live count = %d, want 1", got)
	}

	m.Free(a)

	st := m.Stats()
	if st.AllocationCount != 0 {
		t.Errorf("live count = %d, want 0", st.AllocationCount)
	}
	if st.TotalAllocated != 0 {
		t.Errorf("total = %d, want 0", st.TotalAllocated)
	}
	if st.TierAFree != 1024 {
		t.Errorf("tier A free = %d, want 1024", st.TierAFree)
	}

	// Double free is ignored.
	m.Free(a)
	if got := m.Stats().AllocationCount; got != 0 {
		t.Errorf("live count after double free = %d", got)
	}
}

func TestPeakTracking(t *testing.T) {
	m := newTestManager(4096, 0)

	a, _ := m.Allocate(1000, TierAOnly, "a")
	b, _ := m.Allocate(2000, TierAOnly, "b")
	m.Free(a)
	m.Free(b)

	st := m.Stats()
	if st.PeakAllocated != 3000 {
		t.Errorf("peak = %d, want 3000", st.PeakAllocated)
	}
	if st.TotalAllocated != 0 {
		t.Errorf("total = %d, want 0", st.TotalAllocated)
	}
}

func TestReallocate(t *testing.T) {
	t.Run("grows and preserves contents", func(t *testing.T) {
		m := newTestManager(4096, 0)

		a, err := m.Allocate(16, TierAOnly, "buf")
		if err != nil {
			t.Fatal(err)
		}
		copy(a.Buf, "hello")

		b, err := m.Reallocate(a, 64, TierAOnly, "buf")
		if err != nil {
			t.Fatalf("Reallocate failed: %v", err)
		}
		if string(b.Buf[:5]) != "hello" {
			t.Errorf("contents not preserved: %q", b.Buf[:5])
		}
		if got := m.Stats().AllocationCount; got != 1 {
			t.Errorf("live count = %d, want 1", got)
		}
		if got := m.Stats().TotalAllocated; got != 64 {
			t.Errorf("total = %d, want 64", got)
		}
	})

	t.Run("restores tracking on failure", func(t *testing.T) {
		m := newTestManager(1024, 0)

		a, err := m.Allocate(512, TierAOnly, "buf")
		if err != nil {
			t.Fatal(err)
		}

		if _, err := m.Reallocate(a, 4096, TierAOnly, "buf"); err == nil {
			t.Fatal("expected reallocation failure")
		}

		// Original allocation must still be tracked.
		st := m.Stats()
		if st.AllocationCount != 1 {
			t.Errorf("live count = %d, want 1 after failed realloc", st.AllocationCount)
		}
		if st.TotalAllocated != 512 {
			t.Errorf("total = %d, want 512 after failed realloc", st.TotalAllocated)
		}

		// And still freeable.
		m.Free(a)
		if got := m.Stats().AllocationCount; got != 0 {
			t.Errorf("live count = %d after free", got)
		}
	})

	t.Run("nil allocation behaves like allocate", func(t *testing.T) {
		m := newTestManager(1024, 0)
		a, err := m.Reallocate(nil, 128, TierAOnly, "buf")
		if err != nil {
			t.Fatalf("Reallocate(nil) failed: %v", err)
		}
		if a.Size() != 128 {
			t.Errorf("size = %d", a.Size())
		}
	})

	t.Run("zero size behaves like free", func(t *testing.T) {
		m := newTestManager(1024, 0)
		a, _ := m.Allocate(128, TierAOnly, "buf")
		b, err := m.Reallocate(a, 0, TierAOnly, "buf")
		if err != nil {
			t.Fatalf("Reallocate to 0 failed: %v", err)
		}
		if b != nil {
			t.Error("expected nil allocation")
		}
		if got := m.Stats().AllocationCount; got != 0 {
			t.Errorf("live count = %d", got)
		}
	})
}

func TestRecommendStrategy(t *testing.T) {
	t.Run("large with B available", func(t *testing.T) {
		m := newTestManager(1<<20, 1<<20)
		for _, size := range []int{LargeAllocThreshold, 8192, 1 << 16} {
			if got := m.RecommendStrategy(size); got != TierBPreferred {
				t.Errorf("RecommendStrategy(%d) = %v, want tier-b-preferred", size, got)
			}
		}
	})

	t.Run("large without B", func(t *testing.T) {
		m := newTestManager(1<<20, 0)
		for _, size := range []int{LargeAllocThreshold, 8192, 1 << 16} {
			if got := m.RecommendStrategy(size); got != TierAOnly {
				t.Errorf("RecommendStrategy(%d) = %v, want tier-a-only", size, got)
			}
		}
	})

	t.Run("small prefers A", func(t *testing.T) {
		m := newTestManager(1<<20, 1<<20)
		if got := m.RecommendStrategy(64); got != TierAOnly {
			t.Errorf("RecommendStrategy(64) = %v, want tier-a-only", got)
		}
	})
}

func TestLiveRecords(t *testing.T) {
	m := newTestManager(4096, 0)
	a, _ := m.Allocate(100, TierAOnly, "label")
	m.Allocate(200, TierAOnly, "label")
	m.Allocate(300, TierAOnly, "image")

	sites := m.LiveRecords()
	if sites["label"] != 300 {
		t.Errorf("label bytes = %d, want 300", sites["label"])
	}
	if sites["image"] != 300 {
		t.Errorf("image bytes = %d, want 300", sites["image"])
	}

	m.Free(a)
	if got := m.LiveRecords()["label"]; got != 200 {
		t.Errorf("label bytes after free = %d, want 200", got)
	}
}
