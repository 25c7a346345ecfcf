// Package pipeline connects the pieces: how a world is captured, which
// format lowers the snapshot to bytes, and which backend keeps them.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/driftline/keepsake/backend"
	"github.com/driftline/keepsake/ecs"
	"github.com/driftline/keepsake/format"
	"github.com/driftline/keepsake/registry"
	"github.com/driftline/keepsake/snapshot"
)

// Pipeline defines how an application saves and loads.
//
// Capture and Apply default to a full extraction and a plain additive apply;
// override them for partial saves, despawn policies, hooks or entity-map
// seeding.
type Pipeline struct {
	Backend  backend.Backend
	Format   format.Format
	Registry *registry.Registry

	// Capture builds the snapshot to be saved. Nil means ExtractAll.
	Capture func(b *snapshot.Builder) *snapshot.Snapshot

	// Apply applies a loaded snapshot to the world. Nil means a plain
	// additive apply.
	Apply func(w *ecs.World, s *snapshot.Snapshot) error

	// Logger, when set, records saves and loads. Nil disables logging.
	Logger *slog.Logger
}

// Default returns a pipeline persisting MessagePack files under dir.
func Default(reg *registry.Registry, dir string) *Pipeline {
	return &Pipeline{
		Backend:  backend.NewFile(dir),
		Format:   format.Msgpack{},
		Registry: reg,
	}
}

// Debug returns a pipeline persisting pretty-printed JSON files under dir,
// for saves meant to be read or edited by hand.
func Debug(reg *registry.Registry, dir string) *Pipeline {
	return &Pipeline{
		Backend:  backend.NewFile(dir),
		Format:   format.PrettyJSON(),
		Registry: reg,
	}
}

func (p *Pipeline) storageKey(key string) string {
	return key + p.Format.Extension()
}

// Save captures the world and persists it under the key. The format's
// extension is appended to the key before it reaches the backend.
func (p *Pipeline) Save(ctx context.Context, key string, w *ecs.World) error {
	b := snapshot.NewBuilder(w, p.Registry)
	var snap *snapshot.Snapshot
	if p.Capture != nil {
		snap = p.Capture(b)
	} else {
		snap = b.ExtractAll().Build()
	}

	var buf bytes.Buffer
	if err := snapshot.Write(&buf, p.Format, snap); err != nil {
		return fmt.Errorf("pipeline: save %q: %w", key, err)
	}
	if err := p.Backend.Save(ctx, p.storageKey(key), buf.Bytes()); err != nil {
		return fmt.Errorf("pipeline: save %q: %w", key, err)
	}
	if p.Logger != nil {
		p.Logger.Info("saved snapshot",
			slog.String("key", key),
			slog.Int("entities", len(snap.Entities)),
			slog.Int("bytes", buf.Len()))
	}
	return nil
}

// Load reads the snapshot stored under the key, migrates it, and applies it
// to the world.
func (p *Pipeline) Load(ctx context.Context, key string, w *ecs.World) error {
	data, err := p.Backend.Load(ctx, p.storageKey(key))
	if err != nil {
		return fmt.Errorf("pipeline: load %q: %w", key, err)
	}
	snap, err := snapshot.Read(bytes.NewReader(data), p.Format, p.Registry)
	if err != nil {
		return fmt.Errorf("pipeline: load %q: %w", key, err)
	}
	if p.Apply != nil {
		err = p.Apply(w, snap)
	} else {
		err = snap.Applier(w, p.Registry).Apply()
	}
	if err != nil {
		return fmt.Errorf("pipeline: load %q: %w", key, err)
	}
	if p.Logger != nil {
		p.Logger.Info("loaded snapshot",
			slog.String("key", key),
			slog.Int("entities", len(snap.Entities)),
			slog.Int("bytes", len(data)))
	}
	return nil
}
