// Package migrate steps captured values forward through registered schema
// versions.
//
// Each migratable type registers a Migrator: an ordered chain of version tags
// with a transform between every adjacent pair. A value recorded at an older
// version is stepped through the remaining transforms until it reaches the
// chain's current (last) version. Transforms are type-local pure functions
// over a single value graph node; they never see sibling values.
package migrate

import (
	"errors"
	"fmt"

	"github.com/driftline/keepsake/node"
)

var (
	// ErrUnknownVersion is returned when a value's recorded version is not
	// present in the type's migration chain.
	ErrUnknownVersion = errors.New("migrate: unknown source version")

	// ErrIncompleteChain is returned when a version is registered without a
	// transform from its predecessor.
	ErrIncompleteChain = errors.New("migrate: incomplete migration chain")
)

// Transform converts a value from one schema version to the next.
//
// Returning a nil node (with a nil error) means the value no longer exists in
// the new schema and should be dropped rather than applied.
type Transform func(node.Node) (node.Node, error)

type step struct {
	version   string
	transform Transform
}

// Migrator is an ordered chain of schema versions for a single type. The last
// registered version is the type's current version.
//
// Build one with NewMigrator and chain Version calls:
//
//	migrate.NewMigrator("0.1.0").
//		Version("0.2.0", renameHP).
//		Version("1.0.0", splitPosition)
type Migrator struct {
	steps []step
}

// NewMigrator starts a chain at the given initial version.
func NewMigrator(initial string) *Migrator {
	return &Migrator{steps: []step{{version: initial}}}
}

// Version appends a schema version reached from the previous one by the given
// transform. A nil transform records the version but marks the chain as
// incomplete at that step; migrating across it fails with ErrIncompleteChain.
func (m *Migrator) Version(version string, transform Transform) *Migrator {
	m.steps = append(m.steps, step{version: version, transform: transform})
	return m
}

// Current returns the chain's current (latest) version tag.
func (m *Migrator) Current() string {
	return m.steps[len(m.steps)-1].version
}

// Versions returns every version tag in chain order, oldest first.
func (m *Migrator) Versions() []string {
	out := make([]string, len(m.steps))
	for i, s := range m.steps {
		out[i] = s.version
	}
	return out
}

// Migrate steps the value from the recorded version to the current version.
//
// An empty from tag means the value predates versioning and is assumed
// current. The returned bool is false when a transform dropped the value;
// callers must then discard it instead of applying it.
func (m *Migrator) Migrate(n node.Node, from string) (node.Node, bool, error) {
	if from == "" || from == m.Current() {
		return n, true, nil
	}

	start := -1
	for i, s := range m.steps {
		if s.version == from {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownVersion, from)
	}

	for i := start + 1; i < len(m.steps); i++ {
		s := m.steps[i]
		if s.transform == nil {
			return nil, false, fmt.Errorf("%w: no transform from %q to %q",
				ErrIncompleteChain, m.steps[i-1].version, s.version)
		}
		out, err := s.transform(n)
		if err != nil {
			return nil, false, fmt.Errorf("migrate: step to %q: %w", s.version, err)
		}
		if out == nil {
			return nil, false, nil
		}
		n = out
	}
	return n, true, nil
}
