// Package ecs provides a minimal entity-component-resource store used as the
// live state container for capture and restoration.
//
// Entities are opaque numeric identifiers grouping a set of typed components.
// Components and resources are keyed by a stable type path string (for
// example "game.Health") chosen at registration time. Identifiers are only
// meaningful within a single World; they are never stable across sessions.
package ecs

import "sort"

// Entity is an opaque identifier for an entity in a World.
//
// The zero value is never a live entity.
type Entity uint64

// NoEntity is the zero Entity. It never refers to a live entity.
const NoEntity Entity = 0

// World is a mutable store of entities, their components, and singleton
// resources.
//
// World is not safe for concurrent use. Callers adapting this to a
// multi-threaded host must hold exclusive access for the full duration of any
// capture or apply operation.
type World struct {
	next       Entity
	entities   map[Entity]map[string]any
	resources  map[string]any
	resOrder   []string
}

// NewWorld creates an empty World.
func NewWorld() *World {
	return &World{
		next:      1,
		entities:  make(map[Entity]map[string]any),
		resources: make(map[string]any),
	}
}

// Spawn allocates a new live entity with no components.
func (w *World) Spawn() Entity {
	e := w.next
	w.next++
	w.entities[e] = make(map[string]any)
	return e
}

// Despawn removes the entity and all of its components.
// Despawning a dead entity is a no-op.
func (w *World) Despawn(e Entity) {
	delete(w.entities, e)
}

// Alive reports whether the entity exists in the World.
func (w *World) Alive(e Entity) bool {
	_, ok := w.entities[e]
	return ok
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return len(w.entities)
}

// Entities returns all live entity identifiers in ascending order.
func (w *World) Entities() []Entity {
	out := make([]Entity, 0, len(w.entities))
	for e := range w.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Insert attaches a component value to the entity under the given type path,
// replacing any existing component of the same type. Inserting on a dead
// entity is a no-op.
func (w *World) Insert(e Entity, typePath string, value any) {
	comps, ok := w.entities[e]
	if !ok {
		return
	}
	comps[typePath] = value
}

// Get returns the component of the given type attached to the entity.
func (w *World) Get(e Entity, typePath string) (any, bool) {
	comps, ok := w.entities[e]
	if !ok {
		return nil, false
	}
	v, ok := comps[typePath]
	return v, ok
}

// Contains reports whether the entity has a component of the given type.
func (w *World) Contains(e Entity, typePath string) bool {
	_, ok := w.Get(e, typePath)
	return ok
}

// Remove detaches the component of the given type from the entity.
func (w *World) Remove(e Entity, typePath string) {
	if comps, ok := w.entities[e]; ok {
		delete(comps, typePath)
	}
}

// Components returns the type paths of the entity's components in ascending
// order.
func (w *World) Components(e Entity) []string {
	comps, ok := w.entities[e]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(comps))
	for p := range comps {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// InsertResource stores a singleton resource under the given type path,
// replacing any existing value.
func (w *World) InsertResource(typePath string, value any) {
	if _, ok := w.resources[typePath]; !ok {
		w.resOrder = append(w.resOrder, typePath)
	}
	w.resources[typePath] = value
}

// Resource returns the singleton resource of the given type.
func (w *World) Resource(typePath string) (any, bool) {
	v, ok := w.resources[typePath]
	return v, ok
}

// RemoveResource deletes the singleton resource of the given type.
func (w *World) RemoveResource(typePath string) {
	if _, ok := w.resources[typePath]; !ok {
		return
	}
	delete(w.resources, typePath)
	for i, p := range w.resOrder {
		if p == typePath {
			w.resOrder = append(w.resOrder[:i], w.resOrder[i+1:]...)
			break
		}
	}
}

// Resources returns the type paths of all resources in insertion order.
func (w *World) Resources() []string {
	out := make([]string, len(w.resOrder))
	copy(out, w.resOrder)
	return out
}

// View returns a read-only view of the entity.
func (w *World) View(e Entity) View {
	return View{w: w, e: e}
}

// View is a read-only handle to a single entity.
type View struct {
	w *World
	e Entity
}

// Entity returns the identifier this view refers to.
func (v View) Entity() Entity { return v.e }

// Alive reports whether the viewed entity exists.
func (v View) Alive() bool { return v.w.Alive(v.e) }

// Contains reports whether the entity has a component of the given type.
func (v View) Contains(typePath string) bool { return v.w.Contains(v.e, typePath) }

// Get returns the component of the given type.
func (v View) Get(typePath string) (any, bool) { return v.w.Get(v.e, typePath) }

// Components returns the entity's component type paths in ascending order.
func (v View) Components() []string { return v.w.Components(v.e) }
