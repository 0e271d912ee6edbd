package rfc2217

// CodeTable is a two-way mapping between a domain value and its wire byte.
// Several domain values may share one wire byte; Decode then returns the
// value registered first for that byte.
type CodeTable[V comparable] struct {
	name    string
	toWire  map[V]byte
	toValue map[byte]V
}

// NewCodeTable creates an empty table. The name is used in error messages.
func NewCodeTable[V comparable](name string) *CodeTable[V] {
	return &CodeTable[V]{
		name:    name,
		toWire:  make(map[V]byte),
		toValue: make(map[byte]V),
	}
}

// Add registers a value and its wire byte. Returns the table for chaining.
func (t *CodeTable[V]) Add(v V, wire byte) *CodeTable[V] {
	t.toWire[v] = wire
	if _, ok := t.toValue[wire]; !ok {
		t.toValue[wire] = v
	}
	return t
}

// Encode returns the wire byte for v.
func (t *CodeTable[V]) Encode(v V) (byte, bool) {
	b, ok := t.toWire[v]
	return b, ok
}

// Decode returns the domain value for a wire byte, or a MalformedMessageError
// naming the unmapped value.
func (t *CodeTable[V]) Decode(wire byte) (V, error) {
	v, ok := t.toValue[wire]
	if !ok {
		var zero V
		return zero, malformed("unmapped "+t.name, int(wire))
	}
	return v, nil
}

// Contains reports whether the wire byte is mapped.
func (t *CodeTable[V]) Contains(wire byte) bool {
	_, ok := t.toValue[wire]
	return ok
}
