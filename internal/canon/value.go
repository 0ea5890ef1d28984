package canon

import "sort"

// Value is a sealed interface over the structured value grammar.
// Only Null, Bool, Int, Float, String, Sequence, and Mapping implement it.
type Value interface {
	value() // sealed
}

// Null represents the null scalar.
type Null struct{}

func (Null) value() {}

// Bool represents a boolean scalar.
type Bool bool

func (Bool) value() {}

// Int represents an integer scalar. Always int64.
type Int int64

func (Int) value() {}

// Float represents a floating-point scalar. Must be finite; the encoder
// rejects NaN and infinities.
type Float float64

func (Float) value() {}

// String represents a text scalar.
type String string

func (String) value() {}

// Sequence is an ordered list of values. Element order is semantically
// meaningful and preserved by the encoder.
type Sequence []Value

func (Sequence) value() {}

// Mapping maps string keys to values. Insertion order carries no meaning;
// use SortedKeys for deterministic iteration.
type Mapping map[string]Value

func (Mapping) value() {}

// SortedKeys returns the mapping keys in byte-wise UTF-8 order, the key
// order used by the canonical encoding.
func (m Mapping) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Pair is a key-value pair for literal Mapping construction.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for Pair.
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// Map builds a Mapping from pairs.
// Example: Map(P("actor", String("agent")), P("seq", Int(3)))
func Map(pairs ...Pair) Mapping {
	m := make(Mapping, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Value
	}
	return m
}

// Seq builds a Sequence from values.
func Seq(vals ...Value) Sequence {
	return Sequence(vals)
}
