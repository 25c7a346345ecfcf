package snapshot

import (
	"sort"

	"github.com/driftline/keepsake/ecs"
	"github.com/driftline/keepsake/registry"
)

// Builder extracts entities and resources from a world into a Snapshot.
//
// Extraction is a read-only, best-effort pass: unregistered, ignored or
// filtered types are silently omitted, and extraction itself never fails.
// Call at least one Extract method or the built snapshot will be empty.
//
//	snap := snapshot.NewBuilder(world, reg).
//		ExtractAll().
//		ClearEmpty().
//		Build()
type Builder struct {
	world      *ecs.World
	reg        *registry.Registry
	filter     typeFilter
	checkpoint bool

	entities  map[ecs.Entity][]Value
	resources map[string]Value
	resOrder  []string
}

// NewBuilder creates a Builder over the world using the given registry.
func NewBuilder(w *ecs.World, reg *registry.Registry) *Builder {
	return &Builder{
		world:     w,
		reg:       reg,
		filter:    newTypeFilter(),
		entities:  make(map[ecs.Entity][]Value),
		resources: make(map[string]Value),
	}
}

// Checkpoint switches the builder into checkpoint mode: types registered
// with IgnoreCheckpoint are excluded even though they are normally saveable.
func (b *Builder) Checkpoint() *Builder {
	b.checkpoint = true
	return b
}

// Allow includes the type in the extraction filter. Inverse of Deny.
func (b *Builder) Allow(typePath string) *Builder {
	b.filter.allow(typePath)
	return b
}

// Deny excludes the type from extraction regardless of other calls.
// Inverse of Allow.
func (b *Builder) Deny(typePath string) *Builder {
	b.filter.deny(typePath)
	return b
}

// AllowAll resets the filter so that types may be selectively denied.
func (b *Builder) AllowAll() *Builder {
	b.filter.allowAll()
	return b
}

// DenyAll resets the filter so that types may be selectively allowed.
func (b *Builder) DenyAll() *Builder {
	b.filter.denyAll()
	return b
}

// captures reports whether the type participates in extraction and returns
// its registration when it does.
func (b *Builder) captures(typePath string) (*registry.Registration, bool) {
	reg, ok := b.reg.Get(typePath)
	if !ok || reg.Ignore {
		return nil, false
	}
	// Relationship targets are derived from their source on apply and must
	// never be independently captured.
	if reg.Target != nil {
		return nil, false
	}
	if b.checkpoint && reg.IgnoreCheckpoint {
		return nil, false
	}
	if !b.filter.allowed(typePath) {
		return nil, false
	}
	return reg, true
}

// ExtractEntity extracts a single entity from the world.
func (b *Builder) ExtractEntity(e ecs.Entity) *Builder {
	return b.ExtractEntities(e)
}

// ExtractEntities extracts the given entities. Dead identifiers are skipped;
// live ones are captured even if none of their components survive filtering.
func (b *Builder) ExtractEntities(ids ...ecs.Entity) *Builder {
	for _, e := range ids {
		if !b.world.Alive(e) {
			continue
		}
		comps := make([]Value, 0)
		for _, typePath := range b.world.Components(e) {
			reg, ok := b.captures(typePath)
			if !ok {
				continue
			}
			value, _ := b.world.Get(e, typePath)
			n, err := reg.Encode(value)
			if err != nil {
				// Extraction is omission-based; a value that cannot be
				// encoded is left out of the capture.
				continue
			}
			comps = append(comps, Value{
				TypePath: typePath,
				Version:  reg.CurrentVersion(),
				Node:     n,
			})
		}
		b.entities[e] = comps
	}
	return b
}

// ExtractEntitiesMatching extracts every live entity the predicate selects.
func (b *Builder) ExtractEntitiesMatching(pred func(ecs.View) bool) *Builder {
	for _, e := range b.world.Entities() {
		if pred(b.world.View(e)) {
			b.ExtractEntity(e)
		}
	}
	return b
}

// ExtractAllEntities extracts every live entity.
func (b *Builder) ExtractAllEntities() *Builder {
	return b.ExtractEntities(b.world.Entities()...)
}

// ExtractPrefab captures blueprint entities: for every live entity holding
// the marker component, the extractor produces a single captured value that
// replaces the entity's component list in the snapshot. Entities the
// extractor declines are left out.
func (b *Builder) ExtractPrefab(markerPath string, extract func(ecs.View) (Value, bool)) *Builder {
	for _, e := range b.world.Entities() {
		if !b.world.Contains(e, markerPath) {
			continue
		}
		v, ok := extract(b.world.View(e))
		if !ok {
			continue
		}
		b.entities[e] = []Value{v}
	}
	return b
}

// ExtractResource captures the singleton resource of the given type.
func (b *Builder) ExtractResource(typePath string) *Builder {
	return b.extractResource(typePath)
}

// ExtractAllResources captures every registered resource present in the
// world, in registry registration order.
func (b *Builder) ExtractAllResources() *Builder {
	for _, typePath := range b.reg.Types() {
		b.extractResource(typePath)
	}
	return b
}

// ExtractAll extracts all entities and all resources.
func (b *Builder) ExtractAll() *Builder {
	return b.ExtractAllEntities().ExtractAllResources()
}

func (b *Builder) extractResource(typePath string) *Builder {
	reg, ok := b.captures(typePath)
	if !ok {
		return b
	}
	value, ok := b.world.Resource(typePath)
	if !ok {
		return b
	}
	n, err := reg.Encode(value)
	if err != nil {
		return b
	}
	if _, captured := b.resources[typePath]; !captured {
		b.resOrder = append(b.resOrder, typePath)
	}
	b.resources[typePath] = Value{
		TypePath: typePath,
		Version:  reg.CurrentVersion(),
		Node:     n,
	}
	return b
}

// ClearEntities drops all extracted entities.
func (b *Builder) ClearEntities() *Builder {
	b.entities = make(map[ecs.Entity][]Value)
	return b
}

// ClearResources drops all extracted resources.
func (b *Builder) ClearResources() *Builder {
	b.resources = make(map[string]Value)
	b.resOrder = nil
	return b
}

// ClearEmpty drops extracted entities that have no captured components.
// Resources are unaffected.
func (b *Builder) ClearEmpty() *Builder {
	for e, comps := range b.entities {
		if len(comps) == 0 {
			delete(b.entities, e)
		}
	}
	return b
}

// Clear drops all extracted entities and resources.
func (b *Builder) Clear() *Builder {
	return b.ClearEntities().ClearResources()
}

// Build assembles the extracted state into a Snapshot. Entities are ordered
// by ascending identifier so repeated captures of the same world diff
// cleanly.
func (b *Builder) Build() *Snapshot {
	ids := make([]ecs.Entity, 0, len(b.entities))
	for e := range b.entities {
		ids = append(ids, e)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s := &Snapshot{
		Entities:  make([]Captured, 0, len(ids)),
		Resources: make([]Value, 0, len(b.resOrder)),
	}
	for _, e := range ids {
		s.Entities = append(s.Entities, Captured{Entity: e, Components: b.entities[e]})
	}
	for _, typePath := range b.resOrder {
		s.Resources = append(s.Resources, b.resources[typePath])
	}
	return s
}
