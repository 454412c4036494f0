// Package metadata implements the minimal property-list codec that
// PLAIN's INITIATE and READY command bodies carry. It is not the
// general, mechanism-agnostic metadata framework ZMTP defines for all
// security mechanisms — spec.md treats that framework as an external
// collaborator referenced only by contract. This package implements
// exactly the wire format PLAIN needs.
package metadata

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned by Decode when a property's name or value
// length runs past the end of the input.
var ErrTruncated = errors.New("zmtp/metadata: truncated property list")

// Property is one name/value pair in encode order.
type Property struct {
	Name  string
	Value string
}

// EncodeOrdered serializes props in the given order. Each property is
// written as: u8 name_len, name, u32-BE value_len, value.
func EncodeOrdered(props []Property) []byte {
	size := 0
	for _, p := range props {
		size += 1 + len(p.Name) + 4 + len(p.Value)
	}
	out := make([]byte, 0, size)
	for _, p := range props {
		out = append(out, byte(len(p.Name)))
		out = append(out, p.Name...)
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(p.Value)))
		out = append(out, lenBuf[:]...)
		out = append(out, p.Value...)
	}
	return out
}

// Encode serializes props with unspecified order. Callers that need
// deterministic output (e.g. for tests) should use EncodeOrdered.
func Encode(props map[string]string) []byte {
	ordered := make([]Property, 0, len(props))
	for k, v := range props {
		ordered = append(ordered, Property{Name: k, Value: v})
	}
	return EncodeOrdered(ordered)
}

// Decode parses a property list, returning ErrTruncated on any entry
// whose declared name or value length runs past the end of data.
func Decode(data []byte) (map[string]string, error) {
	props := make(map[string]string)
	pos := 0
	for pos < len(data) {
		if pos+1 > len(data) {
			return nil, ErrTruncated
		}
		nameLen := int(data[pos])
		pos++
		if pos+nameLen > len(data) {
			return nil, ErrTruncated
		}
		name := string(data[pos : pos+nameLen])
		pos += nameLen

		if pos+4 > len(data) {
			return nil, ErrTruncated
		}
		valueLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if valueLen < 0 || pos+valueLen > len(data) {
			return nil, ErrTruncated
		}
		value := string(data[pos : pos+valueLen])
		pos += valueLen

		props[name] = value
	}
	return props, nil
}
