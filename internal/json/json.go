// Package json is the single seam through which every other package
// encodes and decodes wire JSON. Keeping the call sites away from
// encoding/json directly means the encoder can be swapped without
// touching callers, mirroring how the upstream client library isolates
// its own json subpackage behind this same import path shape.
package json

import (
	jsoniter "github.com/json-iterator/go"
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// RawMessage is a drop-in for encoding/json.RawMessage.
type RawMessage = jsoniter.RawMessage

func Marshal(v interface{}) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v interface{}) error {
	return api.Unmarshal(data, v)
}

func Valid(data []byte) bool {
	return api.Valid(data)
}
