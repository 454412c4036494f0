package wire

import "errors"

// ErrTooLarge is returned by Decoder.Decode when a frame's declared size
// exceeds the configured MaxMsgSize, or overflows the platform's
// addressable length.
var ErrTooLarge = errors.New("zmtp/wire: message exceeds maximum size")

// ErrOutOfMemory is returned by Decoder.Decode when allocating an owned
// payload fails.
var ErrOutOfMemory = errors.New("zmtp/wire: out of memory allocating message payload")

// errUninitialized is a programmer-error panic value, not an error kind
// from spec.md §7 — it never crosses the Decode/Message API as a
// returned error.
const errUninitialized = "zmtp/wire: message re-initialized without Close"
