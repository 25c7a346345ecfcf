package snapshot

import (
	"fmt"

	"github.com/driftline/keepsake/ecs"
	"github.com/driftline/keepsake/migrate"
	"github.com/driftline/keepsake/node"
	"github.com/driftline/keepsake/registry"
)

// Test component set: a health stat, a versioned position, a parent link with
// its derived children list, an ignored cache, and a score resource.

type health struct {
	Current int64
	Max     int64
}

type position struct {
	X float64
	Y float64
}

type childOf struct {
	Parent ecs.Entity
}

func (c *childOf) MapEntities(m registry.EntityMapper) {
	c.Parent = m.Map(c.Parent)
}

type children struct {
	Entities []ecs.Entity
}

type velocity struct {
	DX float64
	DY float64
}

type score struct {
	Points int64
}

func intField(n *node.Struct, name string) (int64, error) {
	f, ok := n.Field(name)
	if !ok {
		return 0, fmt.Errorf("missing field %q", name)
	}
	v, ok := f.(*node.Opaque).Int()
	if !ok {
		return 0, fmt.Errorf("field %q is not an integer", name)
	}
	return v, nil
}

func floatField(n *node.Struct, name string) (float64, error) {
	f, ok := n.Field(name)
	if !ok {
		return 0, fmt.Errorf("missing field %q", name)
	}
	v, ok := f.(*node.Opaque).Float()
	if !ok {
		return 0, fmt.Errorf("field %q is not a float", name)
	}
	return v, nil
}

func encodeHealth(v any) (node.Node, error) {
	h := v.(*health)
	return node.NewStruct().
		Set("current", node.Int(h.Current)).
		Set("max", node.Int(h.Max)), nil
}

func decodeHealth(n node.Node) (any, error) {
	s, ok := n.(*node.Struct)
	if !ok {
		return nil, fmt.Errorf("expected struct, got %v", n.Kind())
	}
	var h health
	var err error
	if h.Current, err = intField(s, "current"); err != nil {
		return nil, err
	}
	if h.Max, err = intField(s, "max"); err != nil {
		return nil, err
	}
	return &h, nil
}

func encodePosition(v any) (node.Node, error) {
	p := v.(*position)
	return node.NewStruct().
		Set("x", node.Float(p.X)).
		Set("y", node.Float(p.Y)), nil
}

func decodePosition(n node.Node) (any, error) {
	s, ok := n.(*node.Struct)
	if !ok {
		return nil, fmt.Errorf("expected struct, got %v", n.Kind())
	}
	var p position
	var err error
	if p.X, err = floatField(s, "x"); err != nil {
		return nil, err
	}
	if p.Y, err = floatField(s, "y"); err != nil {
		return nil, err
	}
	return &p, nil
}

func encodeChildOf(v any) (node.Node, error) {
	c := v.(*childOf)
	return node.Uint(uint64(c.Parent)), nil
}

func decodeChildOf(n node.Node) (any, error) {
	v, ok := n.(*node.Opaque).Uint()
	if !ok {
		return nil, fmt.Errorf("expected entity id")
	}
	return &childOf{Parent: ecs.Entity(v)}, nil
}

func encodeVelocity(v any) (node.Node, error) {
	vel := v.(*velocity)
	return node.NewStruct().
		Set("dx", node.Float(vel.DX)).
		Set("dy", node.Float(vel.DY)), nil
}

func decodeVelocity(n node.Node) (any, error) {
	s := n.(*node.Struct)
	var vel velocity
	var err error
	if vel.DX, err = floatField(s, "dx"); err != nil {
		return nil, err
	}
	if vel.DY, err = floatField(s, "dy"); err != nil {
		return nil, err
	}
	return &vel, nil
}

func encodeScore(v any) (node.Node, error) {
	return node.Int(v.(*score).Points), nil
}

func decodeScore(n node.Node) (any, error) {
	v, ok := n.(*node.Opaque).Int()
	if !ok {
		return nil, fmt.Errorf("expected integer score")
	}
	return &score{Points: v}, nil
}

// positionMigrator renames the legacy "pos_x"/"pos_y" fields.
func positionMigrator() *migrate.Migrator {
	return migrate.NewMigrator("0.1.0").
		Version("0.2.0", func(n node.Node) (node.Node, error) {
			return n.(*node.Struct).Rename("pos_x", "x").Rename("pos_y", "y"), nil
		})
}

// newDroppedRegistration is a type whose only migration step removes the
// value from the schema entirely.
func newDroppedRegistration() registry.Registration {
	return registry.Registration{
		TypePath: "game.Deprecated",
		Encode: func(v any) (node.Node, error) {
			return node.Int(v.(int64)), nil
		},
		Decode: func(n node.Node) (any, error) {
			v, _ := n.(*node.Opaque).Int()
			return v, nil
		},
		Migrator: migrate.NewMigrator("0.1.0").
			Version("0.2.0", func(node.Node) (node.Node, error) {
				return nil, nil
			}),
	}
}

func testRegistry() *registry.Registry {
	r := registry.New()
	r.MustRegister(registry.Registration{
		TypePath: "game.Health",
		Encode:   encodeHealth,
		Decode:   decodeHealth,
	})
	r.MustRegister(registry.Registration{
		TypePath: "game.Position",
		Encode:   encodePosition,
		Decode:   decodePosition,
		Migrator: positionMigrator(),
	})
	r.MustRegister(registry.Registration{
		TypePath: "game.ChildOf",
		Encode:   encodeChildOf,
		Decode:   decodeChildOf,
		Relationship: &registry.Relationship{
			TargetPath: "game.Children",
			TargetEntity: func(v any) ecs.Entity {
				return v.(*childOf).Parent
			},
		},
	})
	r.MustRegister(registry.Registration{
		TypePath: "game.Children",
		Encode: func(any) (node.Node, error) {
			return nil, fmt.Errorf("derived type must not be encoded")
		},
		Decode: func(node.Node) (any, error) {
			return nil, fmt.Errorf("derived type must not be decoded")
		},
		Target: &registry.RelationshipTarget{
			SourcePath: "game.ChildOf",
			Rebuild: func(sources []ecs.Entity) any {
				return &children{Entities: sources}
			},
		},
	})
	r.MustRegister(registry.Registration{
		TypePath:         "game.Velocity",
		Encode:           encodeVelocity,
		Decode:           decodeVelocity,
		IgnoreCheckpoint: true,
	})
	r.MustRegister(registry.Registration{
		TypePath: "game.SessionCache",
		Ignore:   true,
	})
	r.MustRegister(registry.Registration{
		TypePath: "game.Score",
		Encode:   encodeScore,
		Decode:   decodeScore,
	})
	return r
}
