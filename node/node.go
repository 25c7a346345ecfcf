// Package node defines the dynamically-typed value graph used as the
// intermediate form between live values and serialized bytes.
//
// A Node is a tree: struct fields, sequence elements, map entries, enum
// payloads, and opaque leaves. Cross-entity references are encoded as plain
// identifier leaves, never as graph edges, so cloning is always a deep copy.
package node

import "bytes"

// Kind discriminates the node variants.
type Kind uint8

const (
	KindOpaque Kind = iota
	KindStruct
	KindSeq
	KindMap
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindOpaque:
		return "opaque"
	case KindStruct:
		return "struct"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	case KindEnum:
		return "enum"
	default:
		return "invalid"
	}
}

// Node is a single value in the graph.
type Node interface {
	Kind() Kind

	// Clone returns a deep structural copy.
	Clone() Node

	// Equal reports whether the other node has the same shape and values.
	Equal(Node) bool
}

// Opaque is a leaf holding a scalar value, optionally tagged with the type
// path it was captured from.
//
// Value is restricted to nil, bool, int64, uint64, float64, string or []byte.
// Use the constructor helpers to get normalized values.
type Opaque struct {
	TypePath string
	Value    any
}

// Struct is an ordered sequence of named fields.
type Struct struct {
	Fields []Field
}

// Field is a single named member of a Struct.
type Field struct {
	Name  string
	Value Node
}

// Seq is an ordered sequence of elements.
type Seq struct {
	Elems []Node
}

// Map is an ordered sequence of key/value entries.
type Map struct {
	Entries []Entry
}

// Entry is a single key/value pair of a Map.
type Entry struct {
	Key   Node
	Value Node
}

// Enum is a named variant with an optional payload.
type Enum struct {
	Variant string
	Payload Node
}

func (*Opaque) Kind() Kind { return KindOpaque }
func (*Struct) Kind() Kind { return KindStruct }
func (*Seq) Kind() Kind    { return KindSeq }
func (*Map) Kind() Kind    { return KindMap }
func (*Enum) Kind() Kind   { return KindEnum }

func (n *Opaque) Clone() Node {
	c := &Opaque{TypePath: n.TypePath, Value: n.Value}
	if b, ok := n.Value.([]byte); ok {
		c.Value = append([]byte(nil), b...)
	}
	return c
}

func (n *Struct) Clone() Node {
	c := &Struct{Fields: make([]Field, len(n.Fields))}
	for i, f := range n.Fields {
		c.Fields[i] = Field{Name: f.Name, Value: f.Value.Clone()}
	}
	return c
}

func (n *Seq) Clone() Node {
	c := &Seq{Elems: make([]Node, len(n.Elems))}
	for i, e := range n.Elems {
		c.Elems[i] = e.Clone()
	}
	return c
}

func (n *Map) Clone() Node {
	c := &Map{Entries: make([]Entry, len(n.Entries))}
	for i, e := range n.Entries {
		c.Entries[i] = Entry{Key: e.Key.Clone(), Value: e.Value.Clone()}
	}
	return c
}

func (n *Enum) Clone() Node {
	c := &Enum{Variant: n.Variant}
	if n.Payload != nil {
		c.Payload = n.Payload.Clone()
	}
	return c
}

func (n *Opaque) Equal(other Node) bool {
	o, ok := other.(*Opaque)
	if !ok || n.TypePath != o.TypePath {
		return false
	}
	if a, ok := n.Value.([]byte); ok {
		b, ok := o.Value.([]byte)
		return ok && bytes.Equal(a, b)
	}
	return n.Value == o.Value
}

func (n *Struct) Equal(other Node) bool {
	o, ok := other.(*Struct)
	if !ok || len(n.Fields) != len(o.Fields) {
		return false
	}
	for i, f := range n.Fields {
		if f.Name != o.Fields[i].Name || !f.Value.Equal(o.Fields[i].Value) {
			return false
		}
	}
	return true
}

func (n *Seq) Equal(other Node) bool {
	o, ok := other.(*Seq)
	if !ok || len(n.Elems) != len(o.Elems) {
		return false
	}
	for i, e := range n.Elems {
		if !e.Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

func (n *Map) Equal(other Node) bool {
	o, ok := other.(*Map)
	if !ok || len(n.Entries) != len(o.Entries) {
		return false
	}
	for i, e := range n.Entries {
		if !e.Key.Equal(o.Entries[i].Key) || !e.Value.Equal(o.Entries[i].Value) {
			return false
		}
	}
	return true
}

func (n *Enum) Equal(other Node) bool {
	o, ok := other.(*Enum)
	if !ok || n.Variant != o.Variant {
		return false
	}
	if n.Payload == nil || o.Payload == nil {
		return n.Payload == nil && o.Payload == nil
	}
	return n.Payload.Equal(o.Payload)
}

// Field returns the named field's value.
func (n *Struct) Field(name string) (Node, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the named field, appending it if absent. It returns the
// receiver so migration transforms can chain calls.
func (n *Struct) Set(name string, value Node) *Struct {
	for i, f := range n.Fields {
		if f.Name == name {
			n.Fields[i].Value = value
			return n
		}
	}
	n.Fields = append(n.Fields, Field{Name: name, Value: value})
	return n
}

// Remove deletes the named field if present and returns the receiver.
func (n *Struct) Remove(name string) *Struct {
	for i, f := range n.Fields {
		if f.Name == name {
			n.Fields = append(n.Fields[:i], n.Fields[i+1:]...)
			return n
		}
	}
	return n
}

// Rename changes a field's name, keeping its position, and returns the
// receiver.
func (n *Struct) Rename(from, to string) *Struct {
	for i, f := range n.Fields {
		if f.Name == from {
			n.Fields[i].Name = to
			return n
		}
	}
	return n
}

// Nil returns an opaque nil leaf.
func Nil() *Opaque { return &Opaque{} }

// Bool returns an opaque boolean leaf.
func Bool(v bool) *Opaque { return &Opaque{Value: v} }

// Int returns an opaque signed integer leaf.
func Int(v int64) *Opaque { return &Opaque{Value: v} }

// Uint returns an opaque unsigned integer leaf.
func Uint(v uint64) *Opaque { return &Opaque{Value: v} }

// Float returns an opaque float leaf.
func Float(v float64) *Opaque { return &Opaque{Value: v} }

// String returns an opaque string leaf.
func String(v string) *Opaque { return &Opaque{Value: v} }

// Bytes returns an opaque byte-slice leaf.
func Bytes(v []byte) *Opaque { return &Opaque{Value: v} }

// NewStruct returns an empty struct node.
func NewStruct() *Struct { return &Struct{} }

// NewSeq returns a sequence node over the given elements.
func NewSeq(elems ...Node) *Seq { return &Seq{Elems: elems} }

// NewEnum returns an enum node with the given variant and optional payload.
func NewEnum(variant string, payload Node) *Enum {
	return &Enum{Variant: variant, Payload: payload}
}
