package wire

import (
	"encoding/binary"
	"math"
)

// flagLarge selects an 8-byte (rather than 1-byte) size header on the
// wire. It never survives into a Message's Flags — it is consumed
// entirely by the decoder while parsing the frame header.
const flagLarge byte = 0x02

type stage uint8

const (
	stageAwaitFlags stage = iota
	stageAwaitSize1
	stageAwaitSize8
	stageAwaitPayload
)

// DecodeStatus reports what Decoder.Decode produced.
type DecodeStatus uint8

const (
	// StatusNeedMore means all of the supplied input was consumed and
	// no message completed; call Decode again once more bytes arrive.
	StatusNeedMore DecodeStatus = iota
	// StatusReady means a message completed; the returned Message is
	// non-nil and consumed may be less than len(input).
	StatusReady
)

// DecoderOptions configures a Decoder.
type DecoderOptions struct {
	// MaxMsgSize bounds a single frame's payload size. Negative means
	// unlimited (spec.md §3's "unlimited" sentinel).
	MaxMsgSize int64
	// ZeroCopy enables handing out arena-backed views instead of
	// copying payload bytes, when SetInputArena has been called and
	// the payload fits the arena's currently readable window.
	ZeroCopy bool
}

// Decoder turns an inbound ZMTP v2 byte stream into discrete Messages.
// It is a three-stage state machine (await flags, await size, await
// payload) driven one Decode call at a time by a single-threaded
// reactor; see spec.md §4.1 and §5.
type Decoder struct {
	opts DecoderOptions

	stage        stage
	pendingFlags Flags
	inProgress   Message

	scratch     [8]byte
	scratchFill int
	scratchWant int

	payloadWant int
	payloadOff  int

	inputArena     *Arena
	inputArenaBase int
}

// NewDecoder creates a Decoder ready to decode a fresh stream, starting
// in the await-flags stage.
func NewDecoder(opts DecoderOptions) *Decoder {
	return &Decoder{opts: opts, stage: stageAwaitFlags, scratchWant: 1}
}

// SetInputArena tells the decoder that the next call to Decode will
// receive a slice that is itself a view into arena, starting at
// readPos within arena.Buffer(). When set, zero-copy messages may
// reference arena directly instead of copying. Pass arena == nil to
// disable zero-copy for the next call (e.g. when the transport had to
// assemble input from multiple sources).
func (d *Decoder) SetInputArena(arena *Arena, readPos int) {
	d.inputArena = arena
	d.inputArenaBase = readPos
}

// Reset returns the decoder to its initial await-flags state, closing
// any message currently under construction. Callers may use this to
// recover after a terminal per-frame error without tearing down the
// whole session, if their policy allows it (spec.md §7).
func (d *Decoder) Reset() {
	d.inProgress.Close()
	d.stage = stageAwaitFlags
	d.scratchFill = 0
	d.scratchWant = 1
	d.payloadWant = 0
	d.payloadOff = 0
}

// Decode consumes a prefix of input, advancing the decoder's internal
// state machine. It returns the number of bytes consumed and one of:
// StatusNeedMore (all of input was used, no message yet), StatusReady
// (msg is the completed message; consumed may be less than len(input),
// and the caller must call Decode again to continue), or a non-nil err
// (the current frame failed; see spec.md §7 for recoverability).
func (d *Decoder) Decode(input []byte) (consumed int, msg *Message, status DecodeStatus, err error) {
	pos := 0

	for {
		switch d.stage {
		case stageAwaitFlags:
			if pos >= len(input) {
				return pos, nil, StatusNeedMore, nil
			}
			b := input[pos]
			pos++

			var f Flags
			if b&byte(FlagMore) != 0 {
				f |= FlagMore
			}
			if b&byte(FlagCommand) != 0 {
				f |= FlagCommand
			}
			d.pendingFlags = f

			if b&flagLarge != 0 {
				d.stage = stageAwaitSize8
				d.scratchWant = 8
			} else {
				d.stage = stageAwaitSize1
				d.scratchWant = 1
			}
			d.scratchFill = 0

		case stageAwaitSize1, stageAwaitSize8:
			for d.scratchFill < d.scratchWant {
				if pos >= len(input) {
					return pos, nil, StatusNeedMore, nil
				}
				d.scratch[d.scratchFill] = input[pos]
				d.scratchFill++
				pos++
			}

			var msgSize uint64
			if d.stage == stageAwaitSize1 {
				msgSize = uint64(d.scratch[0])
			} else {
				msgSize = binary.BigEndian.Uint64(d.scratch[:8])
			}

			newPos, sizeErr := d.sizeReady(msgSize, input, pos)
			pos = newPos
			if sizeErr != nil {
				d.stage = stageAwaitFlags
				d.scratchFill = 0
				d.scratchWant = 1
				return pos, nil, StatusNeedMore, sizeErr
			}
			d.stage = stageAwaitPayload

		case stageAwaitPayload:
			for d.payloadOff < d.payloadWant {
				if pos >= len(input) {
					return pos, nil, StatusNeedMore, nil
				}
				n := d.payloadWant - d.payloadOff
				if avail := len(input) - pos; avail < n {
					n = avail
				}
				copy(d.inProgress.Data()[d.payloadOff:], input[pos:pos+n])
				d.payloadOff += n
				pos += n
			}

			ready := d.inProgress
			d.inProgress = Message{}
			d.stage = stageAwaitFlags
			d.scratchFill = 0
			d.scratchWant = 1
			d.payloadWant = 0
			d.payloadOff = 0
			return pos, &ready, StatusReady, nil
		}
	}
}

// sizeReady is the internal transition described in spec.md §4.1 step
// 3 — not a stage of its own. It validates msgSize, decides owned vs.
// zero-copy, initializes in_progress accordingly, and (for zero-copy)
// advances pos past the payload bytes that are already in place.
func (d *Decoder) sizeReady(msgSize uint64, input []byte, pos int) (int, error) {
	d.inProgress.Close()

	if d.opts.MaxMsgSize >= 0 && msgSize > uint64(d.opts.MaxMsgSize) {
		d.inProgress.InitEmpty()
		return pos, ErrTooLarge
	}
	if msgSize > uint64(math.MaxInt) {
		d.inProgress.InitEmpty()
		return pos, ErrTooLarge
	}
	size := int(msgSize)

	fitsCurrentWindow := pos+size <= len(input)

	if d.opts.ZeroCopy && d.inputArena != nil && fitsCurrentWindow {
		offset := d.inputArenaBase + pos
		d.inProgress.InitShared(d.inputArena, offset, size)
		d.inProgress.SetFlags(d.pendingFlags)
		d.payloadWant = 0
		d.payloadOff = 0
		return pos + size, nil
	}

	if err := d.inProgress.InitSize(size); err != nil {
		d.inProgress.InitEmpty()
		return pos, ErrOutOfMemory
	}
	d.inProgress.SetFlags(d.pendingFlags)
	d.payloadWant = size
	d.payloadOff = 0
	return pos, nil
}
