package wire

// Flags is the bit set carried by a Message, mirroring the flags byte
// on the wire (spec.md §3, §4.1). Only the bits a Message actually
// keeps after decoding are named here; the LARGE bit only selects the
// size header width and never survives into a Message's flag set.
type Flags uint8

const (
	// FlagMore marks that further frames belonging to the same
	// logical multi-part message follow.
	FlagMore Flags = 1 << 0
	// FlagCommand marks a frame as a protocol command rather than
	// application data.
	FlagCommand Flags = 1 << 2
)

type payloadKind uint8

const (
	kindUninitialized payloadKind = iota
	kindOwned
	kindShared
)

// Message is the in-memory representation of one frame: its flag bits
// plus a payload that is either an exclusive allocation ("owned") or a
// refcounted view into an Arena ("shared"). The zero value is
// uninitialized and must be brought to owned/shared/empty with one of
// the Init* methods before Data/Size are meaningful.
type Message struct {
	kind   payloadKind
	flags  Flags
	owned  []byte
	arena  *Arena
	offset int
	size   int
}

// InitEmpty initializes the message as an owned, zero-length payload.
// Panics if the message is not currently uninitialized.
func (m *Message) InitEmpty() {
	m.requireUninitialized()
	m.kind = kindOwned
	m.owned = nil
	m.flags = 0
}

// InitSize initializes the message as an owned payload of exactly n
// bytes. Panics if the message is not currently uninitialized.
func (m *Message) InitSize(n int) error {
	m.requireUninitialized()
	if n < 0 {
		return ErrOutOfMemory
	}
	m.kind = kindOwned
	m.owned = make([]byte, n)
	m.flags = 0
	return nil
}

// InitShared initializes the message as a zero-copy view of size bytes
// at offset within arena, and takes one reference on the arena.
// Panics if the message is not currently uninitialized.
func (m *Message) InitShared(arena *Arena, offset, size int) {
	m.requireUninitialized()
	m.kind = kindShared
	m.arena = arena
	m.offset = offset
	m.size = size
	m.flags = 0
	arena.IncRef()
}

// Close releases the message's payload (decrementing the arena's
// refcount if shared) and returns it to the uninitialized state, ready
// to be reused by a subsequent Init* call. Closing an already-
// uninitialized message is a no-op.
func (m *Message) Close() {
	if m.kind == kindShared && m.arena != nil {
		m.arena.DecRef()
	}
	*m = Message{}
}

// Flags returns the message's flag bits.
func (m *Message) Flags() Flags {
	return m.flags
}

// SetFlags replaces the message's flag bits.
func (m *Message) SetFlags(f Flags) {
	m.flags = f
}

// Data returns the message's payload. The returned slice aliases the
// arena's buffer for shared messages and must not be retained past the
// message's Close.
func (m *Message) Data() []byte {
	switch m.kind {
	case kindOwned:
		return m.owned
	case kindShared:
		return m.arena.Buffer()[m.offset : m.offset+m.size]
	default:
		return nil
	}
}

// Size returns the payload length in bytes.
func (m *Message) Size() int {
	switch m.kind {
	case kindOwned:
		return len(m.owned)
	case kindShared:
		return m.size
	default:
		return 0
	}
}

// IsShared reports whether the message's payload is a zero-copy view
// into an Arena rather than an owned allocation.
func (m *Message) IsShared() bool {
	return m.kind == kindShared
}

// Initialized reports whether the message currently holds a payload
// (owned, shared, or empty) as opposed to the zero value.
func (m *Message) Initialized() bool {
	return m.kind != kindUninitialized
}

func (m *Message) requireUninitialized() {
	if m.kind != kindUninitialized {
		panic(errUninitialized)
	}
}
