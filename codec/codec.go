// Package codec is the container format for checkpoints: a minimal
// self-describing binary value model (unsigned and negative integers, byte
// and text strings, arrays, maps, bool, null, 64-bit float) with compact
// length headers.
//
// The format is CBOR (RFC 8949). The encoder uses Core Deterministic
// Encoding: map keys sorted by their encoded bytes, smallest integer and
// length headers, no indefinite-length items. The same logical value
// always produces identical bytes.
//
// The decoder is strict: every read is bounds-checked, truncated input and
// unknown headers fail immediately, duplicate map keys and trailing bytes
// are rejected.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec

import (
	"math"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
		// Object tables are indexed by 32-bit ids, so arrays and maps
		// may legitimately be far larger than the library defaults.
		MaxArrayElements: math.MaxInt32,
		MaxMapPairs:      math.MaxInt32,
		MaxNestedLevels:  1024,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// RawMessage is an encoded value whose decoding is deferred.
type RawMessage = cbor.RawMessage

// Marshal encodes v using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes exactly one value from data into v. Trailing bytes
// are an error.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Wellformed reports whether data is exactly one well-formed value.
func Wellformed(data []byte) error {
	return decMode.Wellformed(data)
}

// Diagnose returns the RFC 8949 §8 diagnostic notation for data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
