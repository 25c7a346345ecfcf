// Package snapshot captures live world state into a serializable value graph
// and re-hydrates it back into a world.
//
// A Builder walks a world and produces a Snapshot; an Applier consumes a
// Snapshot and mutates a world to match it, remapping entity identities and
// rebuilding derived relationship components along the way. Serialization of
// a Snapshot to bytes goes through a pluggable format (see Write and Read).
package snapshot

import (
	"errors"

	"github.com/driftline/keepsake/ecs"
	"github.com/driftline/keepsake/node"
	"github.com/driftline/keepsake/registry"
)

var (
	// ErrSerialize wraps failures while writing a snapshot to bytes.
	ErrSerialize = errors.New("snapshot: serialization failed")

	// ErrDeserialize wraps failures while reading a snapshot from bytes,
	// including unknown type identities and malformed wire values.
	ErrDeserialize = errors.New("snapshot: deserialization failed")

	// ErrUnmappedEntity is returned by strict appliers when a snapshot
	// entity has no seeded mapping. The default policy allocates instead.
	ErrUnmappedEntity = errors.New("snapshot: entity not present in entity map")
)

// Value is one captured component or resource: a type identity, the schema
// version it was recorded at, and its value graph.
//
// An empty Version means the value was captured at the type's current,
// unversioned schema.
type Value struct {
	TypePath string
	Version  string
	Node     node.Node
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	c := Value{TypePath: v.TypePath, Version: v.Version}
	if v.Node != nil {
		c.Node = v.Node.Clone()
	}
	return c
}

// Equal reports whether both values have the same identity, version and
// graph.
func (v Value) Equal(o Value) bool {
	if v.TypePath != o.TypePath || v.Version != o.Version {
		return false
	}
	if v.Node == nil || o.Node == nil {
		return v.Node == nil && o.Node == nil
	}
	return v.Node.Equal(o.Node)
}

// Captured is one entity's capture: its snapshot-local identifier and its
// components. Component type paths are unique within one Captured.
type Captured struct {
	Entity     ecs.Entity
	Components []Value
}

// Component returns the captured component with the given type path.
func (c *Captured) Component(typePath string) (Value, bool) {
	for _, v := range c.Components {
		if v.TypePath == typePath {
			return v, true
		}
	}
	return Value{}, false
}

// Clone returns a deep copy of the captured entity.
func (c Captured) Clone() Captured {
	out := Captured{Entity: c.Entity, Components: make([]Value, len(c.Components))}
	for i, v := range c.Components {
		out.Components[i] = v.Clone()
	}
	return out
}

// Snapshot is a point-in-time capture of resources and entities.
//
// Entity identifiers inside a Snapshot are snapshot-local: they carry no
// meaning outside of it and are remapped on apply. A Snapshot is immutable
// once built except through the explicit Clone/Filter-style operations.
type Snapshot struct {
	Entities  []Captured
	Resources []Value
}

// Entity returns the captured entity with the given snapshot-local id.
func (s *Snapshot) Entity(e ecs.Entity) (*Captured, bool) {
	for i := range s.Entities {
		if s.Entities[i].Entity == e {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

// Resource returns the captured resource with the given type path.
func (s *Snapshot) Resource(typePath string) (Value, bool) {
	for _, v := range s.Resources {
		if v.TypePath == typePath {
			return v, true
		}
	}
	return Value{}, false
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Entities:  make([]Captured, len(s.Entities)),
		Resources: make([]Value, len(s.Resources)),
	}
	for i, c := range s.Entities {
		out.Entities[i] = c.Clone()
	}
	for i, v := range s.Resources {
		out.Resources[i] = v.Clone()
	}
	return out
}

// Equal reports whether both snapshots capture the same entities, components
// and resources in the same order.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if len(s.Entities) != len(o.Entities) || len(s.Resources) != len(o.Resources) {
		return false
	}
	for i, c := range s.Entities {
		oc := o.Entities[i]
		if c.Entity != oc.Entity || len(c.Components) != len(oc.Components) {
			return false
		}
		for j, v := range c.Components {
			if !v.Equal(oc.Components[j]) {
				return false
			}
		}
	}
	for i, v := range s.Resources {
		if !v.Equal(o.Resources[i]) {
			return false
		}
	}
	return true
}

// Applier starts configuring an apply of this snapshot onto the world.
func (s *Snapshot) Applier(w *ecs.World, reg *registry.Registry) *Applier {
	return NewApplier(s, w, reg)
}
