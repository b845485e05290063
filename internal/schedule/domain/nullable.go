package domain

import (
	"bytes"
	"encoding/json"
)

// Nullable is a patch field that tells "absent" apart from an explicit null.
//
// Set reports whether the field appeared in the payload at all; Valid is false
// when it appeared as null.
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// NullableOf returns a Nullable carrying v.
func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Valid: true, Value: v}
}

// Null returns a Nullable that clears the field.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		n.Valid = false
		n.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Set || !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Apply merges the field onto dst: absent keeps dst, null clears it.
func (n Nullable[T]) Apply(dst **T) {
	if !n.Set {
		return
	}
	if !n.Valid {
		*dst = nil
		return
	}
	v := n.Value
	*dst = &v
}
