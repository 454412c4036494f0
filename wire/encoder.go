package wire

import "encoding/binary"

// EncodeFrame renders one ZMTP v2 frame: a flags byte (carrying the
// LARGE bit transport-side, never part of Flags) followed by a 1- or
// 8-byte big-endian size header and the payload itself. The decoder's
// Decode method is this function's inverse.
func EncodeFrame(flags Flags, payload []byte) []byte {
	size := len(payload)
	if size <= 255 {
		out := make([]byte, 2+size)
		out[0] = byte(flags)
		out[1] = byte(size)
		copy(out[2:], payload)
		return out
	}

	out := make([]byte, 9+size)
	out[0] = byte(flags) | flagLarge
	binary.BigEndian.PutUint64(out[1:9], uint64(size))
	copy(out[9:], payload)
	return out
}
