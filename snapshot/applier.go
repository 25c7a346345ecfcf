package snapshot

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/driftline/keepsake/ecs"
	"github.com/driftline/keepsake/migrate"
	"github.com/driftline/keepsake/node"
	"github.com/driftline/keepsake/registry"
)

// Hook runs once per applied entity, after its captured components have been
// written. Hooks may inspect the entity and queue further mutations,
// including despawning it. Hooks have no error channel; a panicking hook is
// fatal to the whole apply.
type Hook func(view ecs.View, cmds *ecs.EntityCommands)

// PrefabSpawn re-creates a blueprint entity from its captured value. The
// target entity already exists (and is mapped) when the spawn runs.
type PrefabSpawn func(v Value, target ecs.Entity, w *ecs.World) error

// Applier configures and runs the application of a Snapshot onto a world.
//
// Apply is best-effort, not transactional: mutations made before a failure
// remain visible. Configure everything, then call Apply exactly once.
//
//	err := snap.Applier(world, reg).
//		Despawn(snapshot.All).
//		Hook(attachToRoot).
//		Apply()
type Applier struct {
	snap  *Snapshot
	world *ecs.World
	reg   *registry.Registry

	entityMap *EntityMap
	strict    bool
	despawns  []func(ecs.View) bool
	hooks     []Hook
	prefabs   map[string]PrefabSpawn
	lenient   bool
	logger    *slog.Logger
}

// All matches every entity. Useful with Despawn to fully replace world
// contents with the snapshot's.
func All(ecs.View) bool { return true }

// NewApplier creates an Applier for the snapshot and world.
func NewApplier(s *Snapshot, w *ecs.World, reg *registry.Registry) *Applier {
	return &Applier{
		snap:      s,
		world:     w,
		reg:       reg,
		entityMap: NewEntityMap(),
		prefabs:   make(map[string]PrefabSpawn),
	}
}

// EntityMap seeds known snapshot-local to live mappings, e.g. for stable
// cross-session identifiers. Snapshot entities absent from the map are
// allocated fresh live identifiers on first encounter. The map is mutated
// during apply and afterwards holds every resolved mapping.
func (a *Applier) EntityMap(m *EntityMap) *Applier {
	if m != nil {
		a.entityMap = m
	}
	return a
}

// Strict rejects snapshot entities that have no seeded mapping with
// ErrUnmappedEntity instead of allocating live identifiers for them.
func (a *Applier) Strict() *Applier {
	a.strict = true
	return a
}

// Despawn registers a live-entity filter: any live entity matching it that
// was not a mapping target of this apply is removed at the end. Without any
// Despawn call the apply is purely additive.
func (a *Applier) Despawn(filter func(ecs.View) bool) *Applier {
	a.despawns = append(a.despawns, filter)
	return a
}

// Hook registers a callback invoked once per applied entity, in snapshot
// iteration order.
func (a *Applier) Hook(h Hook) *Applier {
	a.hooks = append(a.hooks, h)
	return a
}

// Prefab routes captured values of the given type through a spawn function
// instead of the ordinary decode-and-insert path.
func (a *Applier) Prefab(typePath string, spawn PrefabSpawn) *Applier {
	a.prefabs[typePath] = spawn
	return a
}

// Lenient switches per-value failures (unknown types, migration and decode
// errors) from fatal to skip-and-warn on the given logger. Passing nil uses
// slog.Default().
func (a *Applier) Lenient(logger *slog.Logger) *Applier {
	a.lenient = true
	if logger == nil {
		logger = slog.Default()
	}
	a.logger = logger
	return a
}

type pendingPrefab struct {
	value  Value
	target ecs.Entity
}

// SpawnPrefab queues re-creating a blueprint value on a freshly spawned
// entity, outside of any snapshot apply. The entity identifier is returned
// immediately; the spawn function runs when the commands are flushed.
func SpawnPrefab(cmds *ecs.Commands, v Value, spawn PrefabSpawn) ecs.Entity {
	e := cmds.Spawn()
	cmds.Queue(func(w *ecs.World) {
		if err := spawn(v, e, w); err != nil {
			w.Despawn(e)
		}
	})
	return e
}

// Apply mutates the world to match the snapshot.
//
// Entities are resolved through the entity map (allocating as needed),
// captured components are migrated to their current schema, decoded, entity
// references remapped, and relationship targets rebuilt from their sources.
// Resources are applied after all entities. Registered despawn filters run
// last.
func (a *Applier) Apply() error {
	mapper := worldMapper{m: a.entityMap, w: a.world}

	// Resolve every snapshot entity up front so cross-entity references
	// always land on the right live entity regardless of apply order.
	for _, captured := range a.snap.Entities {
		if _, ok := a.entityMap.Live(captured.Entity); !ok && a.strict {
			return fmt.Errorf("%w: %d", ErrUnmappedEntity, captured.Entity)
		}
		mapper.Map(captured.Entity)
	}

	var prefabs []pendingPrefab

	for _, captured := range a.snap.Entities {
		live, _ := a.entityMap.Live(captured.Entity)

		for _, v := range captured.Components {
			// Prefab values route through their spawn function and need no
			// registration of their own.
			if _, ok := a.prefabs[v.TypePath]; ok {
				prefabs = append(prefabs, pendingPrefab{value: v, target: live})
				continue
			}
			reg, ok := a.reg.Get(v.TypePath)
			if !ok {
				if a.fail(fmt.Errorf("%w: unregistered type %q", ErrDeserialize, v.TypePath), v.TypePath) {
					continue
				}
				return fmt.Errorf("%w: unregistered type %q", ErrDeserialize, v.TypePath)
			}
			// Ignored types and derived relationship targets are never read
			// from a snapshot.
			if reg.Ignore || reg.Target != nil {
				continue
			}

			value, keep, err := a.decodeValue(reg, v)
			if err != nil {
				if a.fail(err, v.TypePath) {
					continue
				}
				return err
			}
			if !keep {
				continue
			}
			if mv, ok := value.(registry.MapsEntities); ok {
				mv.MapEntities(mapper)
			}
			a.world.Insert(live, v.TypePath, value)
		}
	}

	a.rebuildRelationshipTargets()

	for _, v := range a.snap.Resources {
		reg, ok := a.reg.Get(v.TypePath)
		if !ok {
			if a.fail(fmt.Errorf("%w: unregistered type %q", ErrDeserialize, v.TypePath), v.TypePath) {
				continue
			}
			return fmt.Errorf("%w: unregistered type %q", ErrDeserialize, v.TypePath)
		}
		if reg.Ignore || reg.Target != nil {
			continue
		}
		value, keep, err := a.decodeValue(reg, v)
		if err != nil {
			if a.fail(err, v.TypePath) {
				continue
			}
			return err
		}
		if !keep {
			continue
		}
		if mv, ok := value.(registry.MapsEntities); ok {
			mv.MapEntities(mapper)
		}
		a.world.InsertResource(v.TypePath, value)
	}

	for _, p := range prefabs {
		spawn := a.prefabs[p.value.TypePath]
		if err := spawn(p.value, p.target, a.world); err != nil {
			return fmt.Errorf("snapshot: prefab %q: %w", p.value.TypePath, err)
		}
	}

	if len(a.hooks) > 0 {
		cmds := ecs.NewCommands(a.world)
		for _, captured := range a.snap.Entities {
			live, _ := a.entityMap.Live(captured.Entity)
			for _, hook := range a.hooks {
				hook(a.world.View(live), cmds.Entity(live))
			}
		}
		cmds.Flush()
	}

	if len(a.despawns) > 0 {
		for _, e := range a.world.Entities() {
			if a.entityMap.ContainsLive(e) {
				continue
			}
			view := a.world.View(e)
			for _, filter := range a.despawns {
				if filter(view) {
					a.world.Despawn(e)
					break
				}
			}
		}
	}

	return nil
}

// decodeValue migrates a captured value to its current schema and decodes it
// into a live value. The bool is false when a migration step dropped the
// value.
func (a *Applier) decodeValue(reg *registry.Registration, v Value) (any, bool, error) {
	n, keep, err := migrateValue(reg, v)
	if err != nil {
		return nil, false, err
	}
	if !keep {
		return nil, false, nil
	}
	value, err := reg.Decode(n)
	if err != nil {
		return nil, false, fmt.Errorf("%w: decode %q: %v", ErrDeserialize, v.TypePath, err)
	}
	return value, true, nil
}

// migrateValue brings a captured value to the registration's current version.
// A value with no recorded version is assumed current; a recorded version on
// a type with no migration chain is unknown by definition.
func migrateValue(reg *registry.Registration, v Value) (node.Node, bool, error) {
	current := reg.CurrentVersion()
	if v.Version == "" || v.Version == current {
		return v.Node, true, nil
	}
	if reg.Migrator == nil {
		return nil, false, fmt.Errorf("%w: %q recorded at %q but type is unversioned",
			migrate.ErrUnknownVersion, v.TypePath, v.Version)
	}
	n, keep, err := reg.Migrator.Migrate(v.Node, v.Version)
	if err != nil {
		return nil, false, fmt.Errorf("snapshot: migrate %q: %w", v.TypePath, err)
	}
	return n, keep, nil
}

// fail reports whether a per-value error should be skipped under the lenient
// policy, logging it when so.
func (a *Applier) fail(err error, typePath string) bool {
	if !a.lenient {
		return false
	}
	a.logger.Warn("skipping value",
		slog.String("type", typePath),
		slog.String("error", err.Error()))
	return true
}

// rebuildRelationshipTargets re-derives every relationship target component
// from the source components currently in the world. Targets are never read
// from a snapshot, so a full rebuild after all sources are resolved keeps
// them consistent without any order dependence.
func (a *Applier) rebuildRelationshipTargets() {
	for _, typePath := range a.reg.Types() {
		targetReg, _ := a.reg.Get(typePath)
		if targetReg.Target == nil {
			continue
		}
		sourcePath := targetReg.Target.SourcePath
		sourceReg, ok := a.reg.Get(sourcePath)
		if !ok || sourceReg.Relationship == nil {
			continue
		}

		groups := make(map[ecs.Entity][]ecs.Entity)
		for _, e := range a.world.Entities() {
			value, ok := a.world.Get(e, sourcePath)
			if !ok {
				continue
			}
			target := sourceReg.Relationship.TargetEntity(value)
			if target == ecs.NoEntity || !a.world.Alive(target) {
				continue
			}
			groups[target] = append(groups[target], e)
		}

		for _, e := range a.world.Entities() {
			sources, ok := groups[e]
			if !ok {
				a.world.Remove(e, typePath)
				continue
			}
			sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
			a.world.Insert(e, typePath, targetReg.Target.Rebuild(sources))
		}
	}
}
