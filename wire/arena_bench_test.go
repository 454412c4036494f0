package wire

import "testing"

func BenchmarkArenaIncRefDecRef(b *testing.B) {
	arena := NewArena(4096)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		arena.IncRef()
		arena.DecRef()
	}
}

func BenchmarkArenaAllocateAndDiscard(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		arena := NewArena(4096)
		arena.Discard()
	}
}
