// Package registry holds the open-world table of saveable types.
//
// The set of concrete component and resource types is an application
// extension point, so the registry is a capability map keyed by a stable type
// path string rather than a closed union. Each registration carries explicit
// encode/decode functions over value graph nodes (a visitor contract, not
// runtime introspection), capability flags, optional relationship metadata
// and an optional migration chain.
package registry

import (
	"errors"
	"fmt"

	"github.com/driftline/keepsake/ecs"
	"github.com/driftline/keepsake/migrate"
	"github.com/driftline/keepsake/node"
)

var (
	// ErrDuplicate is returned when a type path is registered twice.
	ErrDuplicate = errors.New("registry: type already registered")

	// ErrNotRegistered is returned when a type path has no registration.
	ErrNotRegistered = errors.New("registry: type not registered")
)

// EncodeFunc lowers a live value into a value graph node.
type EncodeFunc func(value any) (node.Node, error)

// DecodeFunc rebuilds a live value from a value graph node. Decoded values
// should be pointers so entity remapping can mutate them in place.
type DecodeFunc func(n node.Node) (any, error)

// EntityMapper resolves snapshot-local entity identifiers to live ones,
// allocating live identifiers for references not yet seen.
type EntityMapper interface {
	Map(ecs.Entity) ecs.Entity
}

// MapsEntities is implemented by component or resource values containing
// cross-entity references. MapEntities must replace every held identifier
// with the mapped one.
type MapsEntities interface {
	MapEntities(m EntityMapper)
}

// Relationship marks a registration as a relationship source: its value
// points at one other entity, and a derived component of TargetPath on the
// pointed-at entity mirrors the link.
type Relationship struct {
	// TargetPath is the type path of the derived relationship target.
	TargetPath string

	// TargetEntity extracts the pointed-at entity from a source value.
	TargetEntity func(value any) ecs.Entity
}

// RelationshipTarget marks a registration as wholly derived from a
// relationship source type. Target values are never captured or read from a
// snapshot; they are rebuilt from source components after apply.
type RelationshipTarget struct {
	// SourcePath is the type path of the relationship source.
	SourcePath string

	// Rebuild constructs the target value from the entities holding source
	// components that point at the target entity, in ascending order.
	Rebuild func(sources []ecs.Entity) any
}

// Registration describes one saveable type.
type Registration struct {
	// TypePath is the stable identity of the type, e.g. "game.Health".
	TypePath string

	// Encode and Decode convert between live values and graph nodes.
	Encode EncodeFunc
	Decode DecodeFunc

	// Ignore excludes the type from snapshots entirely.
	Ignore bool

	// IgnoreCheckpoint excludes the type from checkpoints while keeping it
	// in ordinary snapshots.
	IgnoreCheckpoint bool

	// Relationship is set on relationship source types.
	Relationship *Relationship

	// Target is set on derived relationship target types.
	Target *RelationshipTarget

	// Migrator is the type's schema version chain. A nil Migrator means the
	// type has a single, unversioned schema.
	Migrator *migrate.Migrator
}

// CurrentVersion returns the type's current schema version tag, or the empty
// string for unversioned types.
func (r *Registration) CurrentVersion() string {
	if r.Migrator == nil {
		return ""
	}
	return r.Migrator.Current()
}

// Registry is the capability table consulted during capture and apply.
// Populate it once at startup; it is read-only afterwards.
type Registry struct {
	byPath map[string]*Registration
	order  []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byPath: make(map[string]*Registration)}
}

// Register adds a type. The type path must be unique and, unless the type is
// ignored, both codec functions must be present.
func (r *Registry) Register(reg Registration) error {
	if reg.TypePath == "" {
		return errors.New("registry: empty type path")
	}
	if _, ok := r.byPath[reg.TypePath]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, reg.TypePath)
	}
	if !reg.Ignore && (reg.Encode == nil || reg.Decode == nil) {
		return fmt.Errorf("registry: %q needs both Encode and Decode", reg.TypePath)
	}
	stored := reg
	r.byPath[reg.TypePath] = &stored
	r.order = append(r.order, reg.TypePath)
	return nil
}

// MustRegister is Register for startup wiring, panicking on error.
func (r *Registry) MustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// Get returns the registration for a type path.
func (r *Registry) Get(typePath string) (*Registration, bool) {
	reg, ok := r.byPath[typePath]
	return reg, ok
}

// Types returns all registered type paths in registration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registrations.
func (r *Registry) Len() int { return len(r.order) }
