package node

// Accessors coerce an opaque leaf's scalar back into a concrete Go type.
// They accept the numeric representation variance introduced by wire formats,
// so codecs and migration transforms can read leaves without caring which
// format produced them.

// Bool returns the leaf as a bool.
func (n *Opaque) Bool() (bool, bool) {
	b, ok := n.Value.(bool)
	return b, ok
}

// Int returns the leaf as a signed integer.
func (n *Opaque) Int() (int64, bool) {
	v, err := asInt64(n.Value)
	return v, err == nil
}

// Uint returns the leaf as an unsigned integer.
func (n *Opaque) Uint() (uint64, bool) {
	v, err := asUint64(n.Value)
	return v, err == nil
}

// Float returns the leaf as a float.
func (n *Opaque) Float() (float64, bool) {
	v, err := asFloat64(n.Value)
	return v, err == nil
}

// String returns the leaf as a string.
func (n *Opaque) String() (string, bool) {
	s, ok := n.Value.(string)
	return s, ok
}

// Bytes returns the leaf as a byte slice.
func (n *Opaque) Bytes() ([]byte, bool) {
	b, ok := n.Value.([]byte)
	return b, ok
}

// IsNil reports whether the leaf holds no value.
func (n *Opaque) IsNil() bool { return n.Value == nil }
