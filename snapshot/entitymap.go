package snapshot

import (
	"github.com/driftline/keepsake/ecs"
)

// EntityMap is the bidirectional correspondence between snapshot-local and
// live entity identifiers for one apply operation. Once a snapshot entity is
// resolved its mapping is fixed for the remainder of the apply.
type EntityMap struct {
	toLive  map[ecs.Entity]ecs.Entity
	toLocal map[ecs.Entity]ecs.Entity
}

// NewEntityMap creates an empty EntityMap.
func NewEntityMap() *EntityMap {
	return &EntityMap{
		toLive:  make(map[ecs.Entity]ecs.Entity),
		toLocal: make(map[ecs.Entity]ecs.Entity),
	}
}

// Insert records that the snapshot-local identifier resolves to the live one.
// An existing mapping for the same local identifier is overwritten.
func (m *EntityMap) Insert(local, live ecs.Entity) {
	if old, ok := m.toLive[local]; ok {
		delete(m.toLocal, old)
	}
	m.toLive[local] = live
	m.toLocal[live] = local
}

// Live resolves a snapshot-local identifier to its live counterpart.
func (m *EntityMap) Live(local ecs.Entity) (ecs.Entity, bool) {
	e, ok := m.toLive[local]
	return e, ok
}

// Local resolves a live identifier back to its snapshot-local counterpart.
func (m *EntityMap) Local(live ecs.Entity) (ecs.Entity, bool) {
	e, ok := m.toLocal[live]
	return e, ok
}

// ContainsLive reports whether the live identifier was a mapping target.
func (m *EntityMap) ContainsLive(live ecs.Entity) bool {
	_, ok := m.toLocal[live]
	return ok
}

// Len returns the number of resolved mappings.
func (m *EntityMap) Len() int { return len(m.toLive) }

// worldMapper adapts an EntityMap to the registry.EntityMapper visitor,
// allocating a fresh live entity on first sight of an unmapped identifier.
// Allocation order follows visit order, which is deterministic because both
// the pre-pass and component iteration are ordered.
type worldMapper struct {
	m *EntityMap
	w *ecs.World
}

func (wm worldMapper) Map(local ecs.Entity) ecs.Entity {
	if live, ok := wm.m.Live(local); ok {
		return live
	}
	live := wm.w.Spawn()
	wm.m.Insert(local, live)
	return live
}
