// Package checkpoint keeps a bounded, ordered history of snapshots for
// rollback and rollforward.
//
// The ring holds checkpoints oldest-first with a cursor at the active one.
// Taking a checkpoint after rolling back erases the diverged future: redo
// history is lost once a new checkpoint is committed.
package checkpoint

import (
	"fmt"

	"github.com/driftline/keepsake/ecs"
	"github.com/driftline/keepsake/registry"
	"github.com/driftline/keepsake/snapshot"
)

// Ring is the bounded checkpoint history. It stores snapshots only; pair it
// with State to drive capture and apply against a world.
type Ring struct {
	snapshots []*snapshot.Snapshot
	active    int
	hasActive bool
	capacity  int
}

// NewRing creates an empty ring retaining at most capacity checkpoints.
// A capacity of zero or less means unbounded.
func NewRing(capacity int) *Ring {
	return &Ring{capacity: capacity}
}

// Len returns the number of retained checkpoints.
func (r *Ring) Len() int { return len(r.snapshots) }

// IsEmpty reports whether no checkpoints have been taken.
func (r *Ring) IsEmpty() bool { return len(r.snapshots) == 0 }

// Active returns the snapshot at the cursor.
func (r *Ring) Active() (*snapshot.Snapshot, bool) {
	if !r.hasActive {
		return nil, false
	}
	return r.snapshots[r.active], true
}

// Checkpoint truncates any rolled-past future entries, appends the snapshot,
// moves the cursor to it, and evicts the oldest entries beyond capacity.
func (r *Ring) Checkpoint(s *snapshot.Snapshot) {
	if r.hasActive {
		r.snapshots = r.snapshots[:r.active+1]
	}
	r.snapshots = append(r.snapshots, s)

	if r.capacity > 0 {
		for len(r.snapshots) > r.capacity {
			r.snapshots = r.snapshots[1:]
		}
	}
	r.active = len(r.snapshots) - 1
	r.hasActive = true
}

// Rollback moves the cursor by delta (negative steps back, positive
// forward), clamped to the valid range, and returns the snapshot at the new
// cursor. It returns false when the ring is empty or the cursor did not
// move.
func (r *Ring) Rollback(delta int) (*snapshot.Snapshot, bool) {
	if !r.hasActive || delta == 0 {
		return nil, false
	}
	target := r.active + delta
	if target < 0 {
		target = 0
	}
	if max := len(r.snapshots) - 1; target > max {
		target = max
	}
	if target == r.active {
		return nil, false
	}
	r.active = target
	return r.snapshots[r.active], true
}

// State owns a Ring and drives it against a world: Checkpoint captures
// through a checkpoint-mode Builder, Rollback applies the selected snapshot
// back onto the world.
type State struct {
	world *ecs.World
	reg   *registry.Registry
	ring  *Ring

	// Capture overrides how checkpoints are built. The builder passed in is
	// already in checkpoint mode; the default extracts everything.
	Capture func(b *snapshot.Builder) *snapshot.Snapshot

	// Apply overrides how a rollback snapshot is applied. The default is a
	// plain additive apply.
	Apply func(w *ecs.World, s *snapshot.Snapshot) error
}

// NewState creates checkpoint state over the world with the given retention
// capacity (zero or less for unbounded).
func NewState(w *ecs.World, reg *registry.Registry, capacity int) *State {
	return &State{world: w, reg: reg, ring: NewRing(capacity)}
}

// Ring exposes the underlying history.
func (s *State) Ring() *Ring { return s.ring }

// Checkpoint captures the world and commits it to the ring. Types registered
// with IgnoreCheckpoint are excluded even though they are normally saveable.
func (s *State) Checkpoint() *snapshot.Snapshot {
	b := snapshot.NewBuilder(s.world, s.reg).Checkpoint()
	var snap *snapshot.Snapshot
	if s.Capture != nil {
		snap = s.Capture(b)
	} else {
		snap = b.ExtractAll().Build()
	}
	s.ring.Checkpoint(snap)
	return snap
}

// Rollback moves the cursor by delta and applies the snapshot at the new
// position. With no checkpoints, or a delta that clamps to no movement, it
// is a no-op.
func (s *State) Rollback(delta int) error {
	snap, ok := s.ring.Rollback(delta)
	if !ok {
		return nil
	}
	if s.Apply != nil {
		if err := s.Apply(s.world, snap); err != nil {
			return fmt.Errorf("checkpoint: rollback: %w", err)
		}
		return nil
	}
	if err := snap.Applier(s.world, s.reg).Apply(); err != nil {
		return fmt.Errorf("checkpoint: rollback: %w", err)
	}
	return nil
}
