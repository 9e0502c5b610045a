package types

import (
	"bytes"

	json "github.com/nyxcord/nyxcord/internal/json"
)

// Nullable distinguishes "value present" from "explicit null" for fields
// that are always present on the wire but may carry null.
type Nullable[T any] struct {
	valid bool
	value T
}

func NullableNull[T any]() Nullable[T] { return Nullable[T]{} }

func NullableOf[T any](v T) Nullable[T] { return Nullable[T]{valid: true, value: v} }

func (n Nullable[T]) IsNull() bool  { return !n.valid }
func (n Nullable[T]) IsValue() bool { return n.valid }

func (n Nullable[T]) Value() (T, bool) { return n.value, n.valid }

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.valid = false
		var zero T
		n.value = zero
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.valid = true
	n.value = v
	return nil
}

// patchState is the three-way state of a Patch[T].
type patchState int

const (
	patchOmitted patchState = iota
	patchNull
	patchValue
)

// Patch represents an update-request field with three possibilities:
// omitted (do not send the key at all), null (send explicit JSON null,
// clearing the server-side field), or value(v) (send v). encoding/json has
// no hook that lets a single field's MarshalJSON suppress the surrounding
// key, so Patch fields must be written out through BuildPatchObject
// rather than passed to json.Marshal on the containing struct directly.
type Patch[T any] struct {
	state patchState
	value T
}

func PatchOmitted[T any]() Patch[T] { return Patch[T]{state: patchOmitted} }
func PatchNull[T any]() Patch[T]    { return Patch[T]{state: patchNull} }
func PatchValue[T any](v T) Patch[T] {
	return Patch[T]{state: patchValue, value: v}
}

func (p Patch[T]) IsOmitted() bool { return p.state == patchOmitted }
func (p Patch[T]) IsNull() bool    { return p.state == patchNull }
func (p Patch[T]) IsValue() bool   { return p.state == patchValue }

func (p Patch[T]) Value() (T, bool) { return p.value, p.state == patchValue }

// UnmarshalJSON is only ever invoked when the key was present in the source
// object (encoding/json never calls Unmarshaler for an absent key), so it
// need only distinguish null from value; the omitted state is recovered at
// the struct level by leaving the field at its zero value (Patch[T]{} is
// Omitted by construction) and only unmarshaling into fields whose keys
// were actually present.
func (p *Patch[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		p.state = patchNull
		var zero T
		p.value = zero
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.state = patchValue
	p.value = v
	return nil
}

// MarshalJSON intentionally errors on Omitted: callers must route patch
// fields through PatchField/BuildPatchObject instead of a bare
// json.Marshal call on the containing struct, or they will observe this
// error during development rather than silently losing the omit semantics.
func (p Patch[T]) MarshalJSON() ([]byte, error) {
	switch p.state {
	case patchNull:
		return []byte("null"), nil
	case patchValue:
		return json.Marshal(p.value)
	default:
		return nil, errOmittedPatchMarshaled
	}
}

var errOmittedPatchMarshaled = patchMarshalError{}

type patchMarshalError struct{}

func (patchMarshalError) Error() string {
	return "nyxcord: Patch in the Omitted state cannot be serialized directly; build the request body through PatchField/BuildPatchObject"
}

// PatchField is one entry for BuildPatchObject: the wire key and the patch
// value it should (or should not) contribute. Value is only read when the
// patch is in the Value state (callers pass a closure because Go cannot
// express "marshal my generic parameter" through a non-generic interface
// method set).
type PatchField struct {
	Key   string
	Patch interface {
		IsOmitted() bool
		IsNull() bool
	}
	Value func() (interface{}, error)
}

// BuildPatchObject assembles a JSON object from a base set of always-present
// fields plus a list of patch fields, omitting any field whose Patch is in
// the Omitted state and emitting null or the marshaled value otherwise.
func BuildPatchObject(base map[string]json.RawMessage, fields []PatchField) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(base)+len(fields))
	for k, v := range base {
		out[k] = v
	}
	for _, f := range fields {
		if f.Patch.IsOmitted() {
			continue
		}
		if f.Patch.IsNull() {
			out[f.Key] = json.RawMessage("null")
			continue
		}
		v, err := f.Value()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[f.Key] = raw
	}
	return json.Marshal(out)
}
