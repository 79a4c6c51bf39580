// Glowd - Supervisor for Scriptable Battery-Powered Display Appliances
// Copyright 2026 Glowstack Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowstack/glowd

package handles

import (
	"sync"

	"github.com/glowstack/glowd/internal/metrics"
)

// Handle is an opaque non-negative identifier for a native object,
// safe to pass across the script sandbox boundary. Invalid is returned
// when the table cannot accept another object.
//
// A handle encodes a slot index in the low bits and the slot's
// generation above them, so a handle that outlives its Release can never
// resolve to a successor object even if the slot is reused.
type Handle int64

// Invalid is the failure sentinel handed to scripts.
const Invalid Handle = -1

const (
	slotBits = 20
	slotMask = (1 << slotBits) - 1
)

// slot is one arena entry. generation increments on every Release so
// outstanding handles for previous occupants stop resolving.
type slot struct {
	occupied   bool
	generation int64
	obj        any
}

// Registry is the arena-style handle table shared between the script
// task and the supervisor loop. One mutex guards the whole scan/lookup/
// mutate cycle; callers must not hold calls into native object APIs
// inside the registry (all methods return before the caller touches the
// object).
type Registry struct {
	mu    sync.Mutex
	slots []slot
	cap   int
}

// NewRegistry creates a handle table. maxSlots bounds growth; zero or
// negative means the table can grow without limit.
func NewRegistry(maxSlots int) *Registry {
	return &Registry{cap: maxSlots}
}

// Store places obj in the first free slot, appending a new slot when
// none is free, and returns its handle. Returns Invalid when the table
// is at capacity. obj must be non-nil; the table holds a non-owning
// reference, the object's real lifetime is managed by its subsystem.
func (r *Registry) Store(obj any) Handle {
	if obj == nil {
		return Invalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		if !r.slots[i].occupied {
			r.slots[i].occupied = true
			r.slots[i].obj = obj
			metrics.HandleTableLive.Inc()
			return encode(i, r.slots[i].generation)
		}
	}

	if r.cap > 0 && len(r.slots) >= r.cap {
		return Invalid
	}
	if len(r.slots) >= slotMask {
		return Invalid
	}

	r.slots = append(r.slots, slot{occupied: true, obj: obj})
	metrics.HandleTableSize.Set(float64(len(r.slots)))
	metrics.HandleTableLive.Inc()
	return encode(len(r.slots)-1, 0)
}

// Get resolves a handle to its object. A handle that was never issued,
// has been released, or belongs to a previous occupant of a reused slot
// resolves to nil. It never panics and never returns stale data.
func (r *Registry) Get(h Handle) any {
	if h < 0 {
		return nil
	}
	idx, gen := decode(h)

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx >= len(r.slots) {
		return nil
	}
	s := &r.slots[idx]
	if !s.occupied || s.generation != gen {
		return nil
	}
	return s.obj
}

// Release clears a handle's slot, bumping its generation so the slot can
// be reused without resurrecting the old handle. Releasing an invalid or
// already-released handle is a no-op.
func (r *Registry) Release(h Handle) {
	if h < 0 {
		return
	}
	idx, gen := decode(h)

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx >= len(r.slots) {
		return
	}
	s := &r.slots[idx]
	if !s.occupied || s.generation != gen {
		return
	}
	s.occupied = false
	s.obj = nil
	s.generation++
	metrics.HandleTableLive.Dec()
}

// Len returns the number of occupied slots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := range r.slots {
		if r.slots[i].occupied {
			n++
		}
	}
	return n
}

func encode(idx int, gen int64) Handle {
	return Handle(gen<<slotBits | int64(idx))
}

func decode(h Handle) (idx int, gen int64) {
	return int(int64(h) & slotMask), int64(h) >> slotBits
}
