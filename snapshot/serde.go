package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/driftline/keepsake/ecs"
	"github.com/driftline/keepsake/format"
	"github.com/driftline/keepsake/node"
	"github.com/driftline/keepsake/registry"
)

// SchemaVersion is the current persisted envelope layout version. Documents
// carrying an older (or absent) version are decoded through the legacy path;
// newer versions are rejected.
const SchemaVersion = 1

// Write serializes the snapshot to the writer using the given format.
//
// The envelope records the layout version, a fresh snapshot identifier and
// the node encoding, so a reader can decode the document without knowing
// which format wrote it.
func Write(w io.Writer, f format.Format, s *Snapshot) error {
	enc := f.Encoding()
	doc := map[string]any{
		"version":     int64(SchemaVersion),
		"snapshot_id": uuid.NewString(),
		"encoding":    int64(enc),
		"snapshot":    encodeBody(s, enc),
	}
	if err := f.Serialize(w, doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return nil
}

// Read deserializes one snapshot from the reader.
//
// Every captured value recorded at an older schema version is migrated to
// its type's current version through the registry's migration chains; values
// a migration drops are omitted. Unknown type identities are not an error
// here — they surface when the snapshot is applied — but unknown or
// incomplete version chains are.
func Read(r io.Reader, f format.Format, reg *registry.Registry) (*Snapshot, error) {
	raw, err := f.Deserialize(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	doc, err := toStringMap(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialize, err)
	}

	version := int64(0)
	if v, ok := doc["version"]; ok {
		if version, err = toInt64(v); err != nil {
			return nil, fmt.Errorf("%w: version: %v", ErrDeserialize, err)
		}
	}
	if version > SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrDeserialize, version)
	}
	// Version 0 documents predate the envelope version field but share the
	// v1 body layout; they decode through the same path.

	enc := f.Encoding()
	if v, ok := doc["encoding"]; ok {
		e, err := toInt64(v)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding: %v", ErrDeserialize, err)
		}
		enc = node.Encoding(e)
	}

	s, err := decodeBody(doc["snapshot"], enc)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		if err := migrateSnapshot(s, reg); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// migrateSnapshot steps every captured value forward to its type's current
// schema version, in place. Unregistered types pass through untouched.
func migrateSnapshot(s *Snapshot, reg *registry.Registry) error {
	for i := range s.Entities {
		captured := &s.Entities[i]
		kept := captured.Components[:0]
		for _, v := range captured.Components {
			r, ok := reg.Get(v.TypePath)
			if !ok {
				kept = append(kept, v)
				continue
			}
			n, keep, err := migrateValue(r, v)
			if err != nil {
				return err
			}
			if !keep {
				continue
			}
			kept = append(kept, Value{TypePath: v.TypePath, Version: r.CurrentVersion(), Node: n})
		}
		captured.Components = kept
	}

	kept := s.Resources[:0]
	for _, v := range s.Resources {
		r, ok := reg.Get(v.TypePath)
		if !ok {
			kept = append(kept, v)
			continue
		}
		n, keep, err := migrateValue(r, v)
		if err != nil {
			return err
		}
		if !keep {
			continue
		}
		kept = append(kept, Value{TypePath: v.TypePath, Version: r.CurrentVersion(), Node: n})
	}
	s.Resources = kept
	return nil
}

func encodeBody(s *Snapshot, enc node.Encoding) any {
	if enc == node.Compact {
		entities := make([]any, len(s.Entities))
		for i, c := range s.Entities {
			comps := make([]any, len(c.Components))
			for j, v := range c.Components {
				comps[j] = []any{v.TypePath, v.Version, node.Encode(v.Node, enc)}
			}
			entities[i] = []any{uint64(c.Entity), comps}
		}
		resources := make([]any, len(s.Resources))
		for i, v := range s.Resources {
			resources[i] = []any{v.TypePath, v.Version, node.Encode(v.Node, enc)}
		}
		return []any{entities, resources}
	}

	entities := make([]any, len(s.Entities))
	for i, c := range s.Entities {
		comps := make([]any, len(c.Components))
		for j, v := range c.Components {
			comps[j] = taggedValue(v, enc)
		}
		entities[i] = map[string]any{
			"entity":     uint64(c.Entity),
			"components": comps,
		}
	}
	resources := make([]any, len(s.Resources))
	for i, v := range s.Resources {
		resources[i] = taggedValue(v, enc)
	}
	return map[string]any{"entities": entities, "resources": resources}
}

func taggedValue(v Value, enc node.Encoding) map[string]any {
	out := map[string]any{"type": v.TypePath, "value": node.Encode(v.Node, enc)}
	if v.Version != "" {
		out["version"] = v.Version
	}
	return out
}

func decodeBody(raw any, enc node.Encoding) (*Snapshot, error) {
	if enc == node.Compact {
		return decodeCompactBody(raw)
	}
	return decodeTaggedBody(raw)
}

func decodeTaggedBody(raw any) (*Snapshot, error) {
	body, err := toStringMap(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrDeserialize, err)
	}
	s := &Snapshot{}

	entities, err := toSlice(body["entities"])
	if err != nil {
		return nil, fmt.Errorf("%w: entities: %v", ErrDeserialize, err)
	}
	for _, ev := range entities {
		em, err := toStringMap(ev)
		if err != nil {
			return nil, fmt.Errorf("%w: entity: %v", ErrDeserialize, err)
		}
		id, err := toUint64(em["entity"])
		if err != nil {
			return nil, fmt.Errorf("%w: entity id: %v", ErrDeserialize, err)
		}
		captured := Captured{Entity: ecs.Entity(id)}
		comps, err := toSlice(em["components"])
		if err != nil {
			return nil, fmt.Errorf("%w: components: %v", ErrDeserialize, err)
		}
		for _, cv := range comps {
			v, err := decodeTaggedValue(cv)
			if err != nil {
				return nil, err
			}
			captured.Components = append(captured.Components, v)
		}
		s.Entities = append(s.Entities, captured)
	}

	resources, err := toSlice(body["resources"])
	if err != nil {
		return nil, fmt.Errorf("%w: resources: %v", ErrDeserialize, err)
	}
	for _, rv := range resources {
		v, err := decodeTaggedValue(rv)
		if err != nil {
			return nil, err
		}
		s.Resources = append(s.Resources, v)
	}
	return s, nil
}

func decodeTaggedValue(raw any) (Value, error) {
	m, err := toStringMap(raw)
	if err != nil {
		return Value{}, fmt.Errorf("%w: value: %v", ErrDeserialize, err)
	}
	typePath, ok := m["type"].(string)
	if !ok {
		return Value{}, fmt.Errorf("%w: value type %T", ErrDeserialize, m["type"])
	}
	v := Value{TypePath: typePath}
	if ver, ok := m["version"].(string); ok {
		v.Version = ver
	}
	n, err := node.Decode(m["value"], node.Tagged)
	if err != nil {
		return Value{}, fmt.Errorf("%w: value %q: %v", ErrDeserialize, typePath, err)
	}
	v.Node = n
	return v, nil
}

func decodeCompactBody(raw any) (*Snapshot, error) {
	parts, err := toSlice(raw)
	if err != nil || len(parts) != 2 {
		return nil, fmt.Errorf("%w: body", ErrDeserialize)
	}
	s := &Snapshot{}

	entities, err := toSlice(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: entities: %v", ErrDeserialize, err)
	}
	for _, ev := range entities {
		pair, err := toSlice(ev)
		if err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("%w: entity", ErrDeserialize)
		}
		id, err := toUint64(pair[0])
		if err != nil {
			return nil, fmt.Errorf("%w: entity id: %v", ErrDeserialize, err)
		}
		captured := Captured{Entity: ecs.Entity(id)}
		comps, err := toSlice(pair[1])
		if err != nil {
			return nil, fmt.Errorf("%w: components: %v", ErrDeserialize, err)
		}
		for _, cv := range comps {
			v, err := decodeCompactValue(cv)
			if err != nil {
				return nil, err
			}
			captured.Components = append(captured.Components, v)
		}
		s.Entities = append(s.Entities, captured)
	}

	resources, err := toSlice(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: resources: %v", ErrDeserialize, err)
	}
	for _, rv := range resources {
		v, err := decodeCompactValue(rv)
		if err != nil {
			return nil, err
		}
		s.Resources = append(s.Resources, v)
	}
	return s, nil
}

func decodeCompactValue(raw any) (Value, error) {
	triple, err := toSlice(raw)
	if err != nil || len(triple) != 3 {
		return Value{}, fmt.Errorf("%w: value record", ErrDeserialize)
	}
	typePath, ok := triple[0].(string)
	if !ok {
		return Value{}, fmt.Errorf("%w: value type %T", ErrDeserialize, triple[0])
	}
	version, ok := triple[1].(string)
	if !ok {
		return Value{}, fmt.Errorf("%w: value version %T", ErrDeserialize, triple[1])
	}
	n, err := node.Decode(triple[2], node.Compact)
	if err != nil {
		return Value{}, fmt.Errorf("%w: value %q: %v", ErrDeserialize, typePath, err)
	}
	return Value{TypePath: typePath, Version: version, Node: n}, nil
}

func toStringMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("map key %T", k)
			}
			out[ks] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected map, got %T", v)
	}
}

func toSlice(v any) ([]any, error) {
	s, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected slice, got %T", v)
	}
	return s, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case int:
		return uint64(n), nil
	case int8:
		return uint64(n), nil
	case int16:
		return uint64(n), nil
	case int32:
		return uint64(n), nil
	case int64:
		return uint64(n), nil
	case float64:
		return uint64(n), nil
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	default:
		return 0, fmt.Errorf("expected unsigned integer, got %T", v)
	}
}
