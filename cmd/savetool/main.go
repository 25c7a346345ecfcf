// Command savetool inspects, converts and verifies save files without
// loading them into a world.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/driftline/keepsake/backend"
	"github.com/driftline/keepsake/format"
	"github.com/driftline/keepsake/registry"
	"github.com/driftline/keepsake/snapshot"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		usage()
		return fmt.Errorf("missing command")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	switch os.Args[1] {
	case "inspect":
		return runInspect(os.Args[2:], logger)
	case "convert":
		return runConvert(os.Args[2:], logger)
	case "verify":
		return runVerify(os.Args[2:], logger)
	default:
		usage()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: savetool <command> [flags]

commands:
  inspect   print a summary of a save file
  convert   rewrite a save file in another format
  verify    decode a save file and report whether it is intact`)
}

// config selects and configures the storage backend. All fields are
// optional; an empty config means plain files in the current directory.
type config struct {
	Backend struct {
		Type string `yaml:"type"` // file, sqlite, badger, redis
		Dir  string `yaml:"dir"`
		Path string `yaml:"path"`
		Addr string `yaml:"addr"`
	} `yaml:"backend"`
	KeyPrefix string `yaml:"key_prefix"`
	Checksum  bool   `yaml:"checksum"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	cfg.Backend.Type = "file"
	cfg.Backend.Dir = "."
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Backend.Type == "" {
		cfg.Backend.Type = "file"
	}
	return cfg, nil
}

func openBackend(ctx context.Context, cfg config) (backend.Backend, func(), error) {
	var (
		b       backend.Backend
		cleanup = func() {}
	)
	switch cfg.Backend.Type {
	case "file":
		dir := cfg.Backend.Dir
		if dir == "" {
			dir = "."
		}
		b = backend.NewFile(dir)
	case "sqlite":
		db, err := backend.NewSQLite(ctx, cfg.Backend.Path)
		if err != nil {
			return nil, nil, err
		}
		b = db
		cleanup = func() { _ = db.Close() }
	case "badger":
		db, err := backend.NewBadger(backend.BadgerConfig{Path: cfg.Backend.Path})
		if err != nil {
			return nil, nil, err
		}
		b = db
		cleanup = func() { _ = db.Close() }
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Backend.Addr})
		b = backend.NewRedis(client, cfg.KeyPrefix, 0)
		cleanup = func() { _ = client.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown backend type %q", cfg.Backend.Type)
	}
	if cfg.Checksum {
		b = backend.WithChecksum(b)
	}
	return b, cleanup, nil
}

// formatFor picks a format from the key's extension chain, outermost
// middleware last: "slot.sav.zst" is zstd-compressed MessagePack.
func formatFor(key, passphrase string) (format.Format, error) {
	switch {
	case strings.HasSuffix(key, ".zst"):
		inner, err := formatFor(strings.TrimSuffix(key, ".zst"), passphrase)
		if err != nil {
			return nil, err
		}
		return format.Compress(inner), nil
	case strings.HasSuffix(key, ".enc"):
		inner, err := formatFor(strings.TrimSuffix(key, ".enc"), passphrase)
		if err != nil {
			return nil, err
		}
		if passphrase == "" {
			return nil, fmt.Errorf("%s: encrypted save, set -passphrase", key)
		}
		return format.Encrypt(inner, []byte(passphrase), []byte("keepsake-savetool"))
	case strings.HasSuffix(key, ".json"):
		return format.PrettyJSON(), nil
	case strings.HasSuffix(key, ".gob"):
		return format.Gob{}, nil
	case strings.HasSuffix(key, ".sav"):
		return format.Msgpack{}, nil
	default:
		return nil, fmt.Errorf("%s: unknown save extension", key)
	}
}

func readSave(ctx context.Context, b backend.Backend, key, passphrase string) (*snapshot.Snapshot, int, error) {
	f, err := formatFor(key, passphrase)
	if err != nil {
		return nil, 0, err
	}
	data, err := b.Load(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	// An empty registry decodes nothing ahead of time; values pass
	// through untouched, which is all inspection needs.
	snap, err := snapshot.Read(bytes.NewReader(data), f, registry.New())
	if err != nil {
		return nil, 0, err
	}
	return snap, len(data), nil
}

func runInspect(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	var (
		key        = fs.String("key", "", "Save key, extension included")
		configPath = fs.String("config", getEnv("SAVETOOL_CONFIG", ""), "YAML config path")
		passphrase = fs.String("passphrase", getEnv("SAVETOOL_PASSPHRASE", ""), "Passphrase for encrypted saves")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("inspect: -key is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	b, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	snap, size, err := readSave(ctx, b, *key, *passphrase)
	if err != nil {
		return err
	}

	fmt.Printf("save:      %s (%d bytes)\n", *key, size)
	fmt.Printf("entities:  %d\n", len(snap.Entities))
	fmt.Printf("resources: %d\n", len(snap.Resources))
	counts := map[string]int{}
	var order []string
	for _, e := range snap.Entities {
		for _, c := range e.Components {
			if counts[c.TypePath] == 0 {
				order = append(order, c.TypePath)
			}
			counts[c.TypePath]++
		}
	}
	for _, tp := range order {
		fmt.Printf("  %-40s x%d\n", tp, counts[tp])
	}
	for _, r := range snap.Resources {
		fmt.Printf("  resource %s (version %q)\n", r.TypePath, r.Version)
	}
	logger.Info("inspected save", slog.String("key", *key), slog.Int("entities", len(snap.Entities)))
	return nil
}

func runConvert(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	var (
		in         = fs.String("in", "", "Source key")
		out        = fs.String("out", "", "Destination key, format inferred from extension")
		configPath = fs.String("config", getEnv("SAVETOOL_CONFIG", ""), "YAML config path")
		passphrase = fs.String("passphrase", getEnv("SAVETOOL_PASSPHRASE", ""), "Passphrase for encrypted saves")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return fmt.Errorf("convert: -in and -out are required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	b, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	snap, _, err := readSave(ctx, b, *in, *passphrase)
	if err != nil {
		return err
	}
	outFormat, err := formatFor(*out, *passphrase)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := snapshot.Write(&buf, outFormat, snap); err != nil {
		return err
	}
	if err := b.Save(ctx, *out, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("converted save", slog.String("in", *in), slog.String("out", *out))
	return nil
}

func runVerify(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var (
		key        = fs.String("key", "", "Save key, extension included")
		configPath = fs.String("config", getEnv("SAVETOOL_CONFIG", ""), "YAML config path")
		passphrase = fs.String("passphrase", getEnv("SAVETOOL_PASSPHRASE", ""), "Passphrase for encrypted saves")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("verify: -key is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	b, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	snap, size, err := readSave(ctx, b, *key, *passphrase)
	if err != nil {
		return fmt.Errorf("verify %s: %w", *key, err)
	}
	fmt.Printf("ok: %s (%d bytes, %d entities, %d resources)\n", *key, size, len(snap.Entities), len(snap.Resources))
	logger.Info("verified save", slog.String("key", *key))
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
