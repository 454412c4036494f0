package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_ScenarioOneSmallFrame(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: -1})
	input := []byte{0x00, 0x05, 'H', 'e', 'l', 'l', 'o'}

	consumed, msg, status, err := d.Decode(input)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, len(input), consumed)
	assert.Equal(t, Flags(0), msg.Flags())
	assert.Equal(t, "Hello", string(msg.Data()))
}

func TestDecoder_ScenarioTwoMessagesBackToBack(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: -1})
	input := []byte{0x01, 0x03, 'A', 'B', 'C', 0x00, 0x02, 'D', 'E'}

	consumed1, msg1, status1, err := d.Decode(input)
	require.NoError(t, err)
	require.Equal(t, StatusReady, status1)
	assert.Equal(t, FlagMore, msg1.Flags())
	assert.Equal(t, "ABC", string(msg1.Data()))

	consumed2, msg2, status2, err := d.Decode(input[consumed1:])
	require.NoError(t, err)
	require.Equal(t, StatusReady, status2)
	assert.Equal(t, Flags(0), msg2.Flags())
	assert.Equal(t, "DE", string(msg2.Data()))
	assert.Equal(t, len(input), consumed1+consumed2)
}

func TestDecoder_ScenarioThreeLargeForm(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: -1})
	input := []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05, 'H', 'e', 'l', 'l', 'o'}

	consumed, msg, status, err := d.Decode(input)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, len(input), consumed)
	assert.Equal(t, Flags(0), msg.Flags())
	assert.Equal(t, "Hello", string(msg.Data()))
}

func TestDecoder_ScenarioFourCommandFrame(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: -1})
	input := []byte{0x04, 0x01, 0x2a}

	consumed, msg, status, err := d.Decode(input)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, len(input), consumed)
	assert.Equal(t, FlagCommand, msg.Flags())
	assert.Equal(t, []byte{0x2a}, msg.Data())
}

func TestDecoder_ScenarioEightTooLargeThenResettable(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: 4})
	input := []byte{0x00, 0x05, 'H', 'e', 'l', 'l', 'o'}

	_, _, _, err := d.Decode(input)
	assert.ErrorIs(t, err, ErrTooLarge)

	d.Reset()
	ok := []byte{0x00, 0x03, 'A', 'B', 'C'}
	consumed, msg, status, err := d.Decode(ok)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, len(ok), consumed)
	assert.Equal(t, "ABC", string(msg.Data()))
}

func TestDecoder_MaxMsgSizeBoundaryAccepted(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: 3})
	input := []byte{0x00, 0x03, 'A', 'B', 'C'}

	_, msg, status, err := d.Decode(input)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, "ABC", string(msg.Data()))
}

func TestDecoder_MaxMsgSizeBoundaryExceeded(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: 3})
	input := []byte{0x00, 0x04, 'A', 'B', 'C', 'D'}

	_, _, _, err := d.Decode(input)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDecoder_ZeroLengthMessage(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: -1})
	input := []byte{0x00, 0x00}

	consumed, msg, status, err := d.Decode(input)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, 2, consumed)
	assert.Equal(t, 0, msg.Size())
}

func TestDecoder_SizeTwoFiftyFiveWithLargeCleared(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: -1})
	payload := make([]byte, 255)
	for i := range payload {
		payload[i] = byte(i)
	}
	input := append([]byte{0x00, 0xff}, payload...)

	_, msg, status, err := d.Decode(input)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, payload, msg.Data())
}

func TestDecoder_ByteAtATimeNeedsMoreUntilComplete(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: -1})
	input := []byte{0x00, 0x03, 'A', 'B', 'C'}

	for i := 0; i < len(input)-1; i++ {
		consumed, msg, status, err := d.Decode(input[i : i+1])
		require.NoError(t, err)
		assert.Equal(t, StatusNeedMore, status)
		assert.Nil(t, msg)
		assert.Equal(t, 1, consumed)
	}

	consumed, msg, status, err := d.Decode(input[len(input)-1:])
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, 1, consumed)
	assert.Equal(t, "ABC", string(msg.Data()))
}

func TestDecoder_EmptyInputReturnsNeedMore(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: -1})
	consumed, msg, status, err := d.Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, StatusNeedMore, status)
	assert.Nil(t, msg)
	assert.Equal(t, 0, consumed)
}

func TestDecoder_ZeroCopyServesSharedMessageWhenFitsWindow(t *testing.T) {
	arena := NewArena(64)
	n := copy(arena.Buffer(), []byte{0x00, 0x05, 'H', 'e', 'l', 'l', 'o'})
	arena.AdvanceContent(n)

	d := NewDecoder(DecoderOptions{MaxMsgSize: -1, ZeroCopy: true})
	d.SetInputArena(arena, 0)

	consumed, msg, status, err := d.Decode(arena.Buffer()[:n])
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, n, consumed)
	assert.True(t, msg.IsShared())
	assert.Equal(t, "Hello", string(msg.Data()))
	assert.EqualValues(t, 2, arena.RefCount())

	msg.Close()
}

func TestDecoder_ZeroCopyFallsBackToOwnedWhenPayloadExceedsWindow(t *testing.T) {
	arena := NewArena(64)
	full := []byte{0x00, 0x05, 'H', 'e', 'l', 'l', 'o'}
	n := copy(arena.Buffer(), full)
	arena.AdvanceContent(n)

	d := NewDecoder(DecoderOptions{MaxMsgSize: -1, ZeroCopy: true})
	d.SetInputArena(arena, 0)

	// Only hand the decoder the header plus 2 payload bytes: the
	// payload doesn't fit inside the currently readable window, so it
	// must fall back to an owned allocation instead of an arena view.
	consumed, msg, status, err := d.Decode(arena.Buffer()[:4])
	require.NoError(t, err)
	assert.Equal(t, StatusNeedMore, status)
	assert.Nil(t, msg)
	assert.Equal(t, 4, consumed)
	// The arena was never shared for this frame.
	assert.EqualValues(t, refSentinel, arena.RefCount())

	consumed2, msg2, status2, err := d.Decode(arena.Buffer()[4:n])
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status2)
	assert.Equal(t, n-4, consumed2)
	assert.False(t, msg2.IsShared())
	assert.Equal(t, "Hello", string(msg2.Data()))
}

func TestDecoder_ZeroCopyDisabledAlwaysCopies(t *testing.T) {
	arena := NewArena(64)
	n := copy(arena.Buffer(), []byte{0x00, 0x05, 'H', 'e', 'l', 'l', 'o'})
	arena.AdvanceContent(n)

	d := NewDecoder(DecoderOptions{MaxMsgSize: -1, ZeroCopy: false})
	d.SetInputArena(arena, 0)

	_, msg, status, err := d.Decode(arena.Buffer()[:n])
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.False(t, msg.IsShared())
	assert.EqualValues(t, refSentinel, arena.RefCount())
}

func TestDecoder_ResetClosesInProgressMessage(t *testing.T) {
	d := NewDecoder(DecoderOptions{MaxMsgSize: -1})
	// Start a frame but don't complete it.
	_, _, status, err := d.Decode([]byte{0x00, 0x05, 'H', 'e'})
	require.NoError(t, err)
	require.Equal(t, StatusNeedMore, status)

	d.Reset()

	consumed, msg, status, err := d.Decode([]byte{0x00, 0x01, 'X'})
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, 3, consumed)
	assert.Equal(t, "X", string(msg.Data()))
}
