package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_InitEmpty(t *testing.T) {
	var m Message
	m.InitEmpty()
	assert.True(t, m.Initialized())
	assert.Equal(t, 0, m.Size())
	assert.False(t, m.IsShared())
	assert.Nil(t, m.Data())
}

func TestMessage_InitSize(t *testing.T) {
	var m Message
	require.NoError(t, m.InitSize(5))
	assert.Equal(t, 5, m.Size())
	assert.Len(t, m.Data(), 5)
	assert.False(t, m.IsShared())
}

func TestMessage_InitSizeNegativeFails(t *testing.T) {
	var m Message
	err := m.InitSize(-1)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestMessage_ReinitializeWithoutClosePanics(t *testing.T) {
	var m Message
	m.InitEmpty()
	assert.Panics(t, func() { m.InitEmpty() })
}

func TestMessage_CloseAllowsReuse(t *testing.T) {
	var m Message
	m.InitEmpty()
	m.Close()
	assert.False(t, m.Initialized())
	require.NoError(t, m.InitSize(3))
	assert.Equal(t, 3, m.Size())
}

func TestMessage_FlagsRoundTrip(t *testing.T) {
	var m Message
	m.InitEmpty()
	m.SetFlags(FlagMore | FlagCommand)
	assert.Equal(t, FlagMore|FlagCommand, m.Flags())
}

func TestMessage_InitSharedTakesArenaReference(t *testing.T) {
	arena := NewArena(16)
	copy(arena.Buffer(), []byte("hello world!!!!!"))

	var m Message
	m.InitShared(arena, 0, 5)
	assert.True(t, m.IsShared())
	assert.Equal(t, "hello", string(m.Data()))
	assert.EqualValues(t, 2, arena.RefCount())

	m.Close()
	// The arena's own decoder-side hold (the other half of the initial
	// 2-count jump) is still outstanding until Discard.
	assert.EqualValues(t, 1, arena.RefCount())

	arena.Discard()
	assert.EqualValues(t, refSentinel, arena.RefCount())
}

func TestMessage_CloseOnUninitializedIsNoop(t *testing.T) {
	var m Message
	m.Close()
	assert.False(t, m.Initialized())
}
