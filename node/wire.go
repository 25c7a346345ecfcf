package node

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Encoding selects how nodes are lowered to wire values.
//
// Tagged is self-describing: every node carries its kind as a named field,
// which keeps human-readable formats diffable. Compact is positional and
// trades readability for size, intended for binary formats.
type Encoding int

const (
	Tagged Encoding = iota
	Compact
)

// ErrMalformed is returned when a wire value cannot be decoded into a node.
var ErrMalformed = errors.New("node: malformed wire value")

// Scalar type tags used inside opaque leaves on the wire.
const (
	tagNil    = "z"
	tagBool   = "b"
	tagInt    = "i"
	tagUint   = "u"
	tagFloat  = "f"
	tagString = "s"
	tagBytes  = "y"
)

// Encode lowers a node into a tree of wire values (maps, slices and scalars)
// suitable for any byte format.
func Encode(n Node, enc Encoding) any {
	if enc == Compact {
		return encodeCompact(n)
	}
	return encodeTagged(n)
}

// Decode rebuilds a node from a tree of wire values. It is tolerant of the
// numeric representations different formats produce (json.Number, float64,
// sized integers).
func Decode(v any, enc Encoding) (Node, error) {
	if enc == Compact {
		return decodeCompact(v)
	}
	return decodeTagged(v)
}

func scalarWire(v any) []any {
	switch s := v.(type) {
	case nil:
		return []any{tagNil}
	case bool:
		return []any{tagBool, s}
	case int64:
		return []any{tagInt, s}
	case uint64:
		return []any{tagUint, s}
	case float64:
		return []any{tagFloat, s}
	case string:
		return []any{tagString, s}
	case []byte:
		return []any{tagBytes, base64.StdEncoding.EncodeToString(s)}
	default:
		// Unnormalized opaque values are a caller bug; encode as string so
		// the failure is visible rather than silent.
		return []any{tagString, fmt.Sprint(s)}
	}
}

func scalarFromWire(w []any) (any, error) {
	if len(w) == 0 {
		return nil, fmt.Errorf("%w: empty scalar", ErrMalformed)
	}
	tag, ok := w[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: scalar tag %T", ErrMalformed, w[0])
	}
	if tag == tagNil {
		return nil, nil
	}
	if len(w) != 2 {
		return nil, fmt.Errorf("%w: scalar %q arity %d", ErrMalformed, tag, len(w))
	}
	switch tag {
	case tagBool:
		b, ok := w[1].(bool)
		if !ok {
			return nil, fmt.Errorf("%w: scalar bool %T", ErrMalformed, w[1])
		}
		return b, nil
	case tagInt:
		return asInt64(w[1])
	case tagUint:
		return asUint64(w[1])
	case tagFloat:
		return asFloat64(w[1])
	case tagString:
		s, ok := w[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: scalar string %T", ErrMalformed, w[1])
		}
		return s, nil
	case tagBytes:
		switch b := w[1].(type) {
		case []byte:
			return b, nil
		case string:
			raw, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				return nil, fmt.Errorf("%w: scalar bytes: %v", ErrMalformed, err)
			}
			return raw, nil
		default:
			return nil, fmt.Errorf("%w: scalar bytes %T", ErrMalformed, w[1])
		}
	default:
		return nil, fmt.Errorf("%w: unknown scalar tag %q", ErrMalformed, tag)
	}
}

func encodeTagged(n Node) any {
	switch t := n.(type) {
	case *Opaque:
		out := map[string]any{"kind": "opaque", "value": scalarWire(t.Value)}
		if t.TypePath != "" {
			out["type"] = t.TypePath
		}
		return out
	case *Struct:
		fields := make([]any, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = []any{f.Name, encodeTagged(f.Value)}
		}
		return map[string]any{"kind": "struct", "fields": fields}
	case *Seq:
		elems := make([]any, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = encodeTagged(e)
		}
		return map[string]any{"kind": "seq", "elems": elems}
	case *Map:
		entries := make([]any, len(t.Entries))
		for i, e := range t.Entries {
			entries[i] = []any{encodeTagged(e.Key), encodeTagged(e.Value)}
		}
		return map[string]any{"kind": "map", "entries": entries}
	case *Enum:
		out := map[string]any{"kind": "enum", "variant": t.Variant}
		if t.Payload != nil {
			out["payload"] = encodeTagged(t.Payload)
		}
		return out
	default:
		return nil
	}
}

func decodeTagged(v any) (Node, error) {
	m, err := asStringMap(v)
	if err != nil {
		return nil, err
	}
	kind, _ := m["kind"].(string)
	switch kind {
	case "opaque":
		n := &Opaque{}
		if tp, ok := m["type"].(string); ok {
			n.TypePath = tp
		}
		w, err := asSlice(m["value"])
		if err != nil {
			return nil, err
		}
		if n.Value, err = scalarFromWire(w); err != nil {
			return nil, err
		}
		return n, nil
	case "struct":
		raw, err := asSlice(m["fields"])
		if err != nil {
			return nil, err
		}
		n := &Struct{Fields: make([]Field, 0, len(raw))}
		for _, fv := range raw {
			pair, err := asSlice(fv)
			if err != nil {
				return nil, err
			}
			if len(pair) != 2 {
				return nil, fmt.Errorf("%w: struct field arity %d", ErrMalformed, len(pair))
			}
			name, ok := pair[0].(string)
			if !ok {
				return nil, fmt.Errorf("%w: struct field name %T", ErrMalformed, pair[0])
			}
			val, err := decodeTagged(pair[1])
			if err != nil {
				return nil, err
			}
			n.Fields = append(n.Fields, Field{Name: name, Value: val})
		}
		return n, nil
	case "seq":
		raw, err := asSlice(m["elems"])
		if err != nil {
			return nil, err
		}
		n := &Seq{Elems: make([]Node, 0, len(raw))}
		for _, ev := range raw {
			e, err := decodeTagged(ev)
			if err != nil {
				return nil, err
			}
			n.Elems = append(n.Elems, e)
		}
		return n, nil
	case "map":
		raw, err := asSlice(m["entries"])
		if err != nil {
			return nil, err
		}
		n := &Map{Entries: make([]Entry, 0, len(raw))}
		for _, ev := range raw {
			pair, err := asSlice(ev)
			if err != nil {
				return nil, err
			}
			if len(pair) != 2 {
				return nil, fmt.Errorf("%w: map entry arity %d", ErrMalformed, len(pair))
			}
			k, err := decodeTagged(pair[0])
			if err != nil {
				return nil, err
			}
			val, err := decodeTagged(pair[1])
			if err != nil {
				return nil, err
			}
			n.Entries = append(n.Entries, Entry{Key: k, Value: val})
		}
		return n, nil
	case "enum":
		variant, ok := m["variant"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: enum variant %T", ErrMalformed, m["variant"])
		}
		n := &Enum{Variant: variant}
		if p, ok := m["payload"]; ok && p != nil {
			if n.Payload, err = decodeTagged(p); err != nil {
				return nil, err
			}
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformed, kind)
	}
}

func encodeCompact(n Node) any {
	switch t := n.(type) {
	case *Opaque:
		w := scalarWire(t.Value)
		out := []any{int64(KindOpaque), t.TypePath, w[0]}
		if len(w) == 2 {
			out = append(out, w[1])
		}
		return out
	case *Struct:
		flat := make([]any, 0, len(t.Fields)*2)
		for _, f := range t.Fields {
			flat = append(flat, f.Name, encodeCompact(f.Value))
		}
		return []any{int64(KindStruct), flat}
	case *Seq:
		elems := make([]any, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = encodeCompact(e)
		}
		return []any{int64(KindSeq), elems}
	case *Map:
		flat := make([]any, 0, len(t.Entries)*2)
		for _, e := range t.Entries {
			flat = append(flat, encodeCompact(e.Key), encodeCompact(e.Value))
		}
		return []any{int64(KindMap), flat}
	case *Enum:
		if t.Payload == nil {
			return []any{int64(KindEnum), t.Variant}
		}
		return []any{int64(KindEnum), t.Variant, encodeCompact(t.Payload)}
	default:
		return nil
	}
}

func decodeCompact(v any) (Node, error) {
	w, err := asSlice(v)
	if err != nil {
		return nil, err
	}
	if len(w) < 2 {
		return nil, fmt.Errorf("%w: node arity %d", ErrMalformed, len(w))
	}
	code, err := asInt64(w[0])
	if err != nil {
		return nil, err
	}
	switch Kind(code) {
	case KindOpaque:
		if len(w) < 3 || len(w) > 4 {
			return nil, fmt.Errorf("%w: opaque arity %d", ErrMalformed, len(w))
		}
		tp, ok := w[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: opaque type %T", ErrMalformed, w[1])
		}
		value, err := scalarFromWire(w[2:])
		if err != nil {
			return nil, err
		}
		return &Opaque{TypePath: tp, Value: value}, nil
	case KindStruct:
		flat, err := asSlice(w[1])
		if err != nil {
			return nil, err
		}
		if len(flat)%2 != 0 {
			return nil, fmt.Errorf("%w: struct pairs %d", ErrMalformed, len(flat))
		}
		n := &Struct{Fields: make([]Field, 0, len(flat)/2)}
		for i := 0; i < len(flat); i += 2 {
			name, ok := flat[i].(string)
			if !ok {
				return nil, fmt.Errorf("%w: struct field name %T", ErrMalformed, flat[i])
			}
			val, err := decodeCompact(flat[i+1])
			if err != nil {
				return nil, err
			}
			n.Fields = append(n.Fields, Field{Name: name, Value: val})
		}
		return n, nil
	case KindSeq:
		raw, err := asSlice(w[1])
		if err != nil {
			return nil, err
		}
		n := &Seq{Elems: make([]Node, 0, len(raw))}
		for _, ev := range raw {
			e, err := decodeCompact(ev)
			if err != nil {
				return nil, err
			}
			n.Elems = append(n.Elems, e)
		}
		return n, nil
	case KindMap:
		flat, err := asSlice(w[1])
		if err != nil {
			return nil, err
		}
		if len(flat)%2 != 0 {
			return nil, fmt.Errorf("%w: map pairs %d", ErrMalformed, len(flat))
		}
		n := &Map{Entries: make([]Entry, 0, len(flat)/2)}
		for i := 0; i < len(flat); i += 2 {
			k, err := decodeCompact(flat[i])
			if err != nil {
				return nil, err
			}
			val, err := decodeCompact(flat[i+1])
			if err != nil {
				return nil, err
			}
			n.Entries = append(n.Entries, Entry{Key: k, Value: val})
		}
		return n, nil
	case KindEnum:
		variant, ok := w[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: enum variant %T", ErrMalformed, w[1])
		}
		n := &Enum{Variant: variant}
		if len(w) == 3 {
			if n.Payload, err = decodeCompact(w[2]); err != nil {
				return nil, err
			}
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformed, code)
	}
}

func asStringMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%w: map key %T", ErrMalformed, k)
			}
			out[ks] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected map, got %T", ErrMalformed, v)
	}
}

func asSlice(v any) ([]any, error) {
	s, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected slice, got %T", ErrMalformed, v)
	}
	return s, nil
}

func asInt64(v any) (int64, error) {
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
	case uint:
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
	case float32:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("%w: expected integer, got %T", ErrMalformed, v)
	}
}

func asUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
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
	case float32:
		return uint64(n), nil
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	case string:
		return strconv.ParseUint(n, 10, 64)
	default:
		return 0, fmt.Errorf("%w: expected unsigned integer, got %T", ErrMalformed, v)
	}
}

func asFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("%w: expected float, got %T", ErrMalformed, v)
	}
}
