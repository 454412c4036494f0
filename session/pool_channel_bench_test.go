package session

import (
	"context"
	"testing"

	"github.com/go-zmtp/zmtp/internal/testutils"
)

func newBenchConnection() (*Connection, error) {
	return newMockConnection(testutils.NewConnectionMock()), nil
}

// BenchmarkPoolAcquireCreation benchmarks acquiring a connection when
// the pool is empty (the dial/construct path).
func BenchmarkPoolAcquireCreation(b *testing.B) {
	ctx := context.Background()
	constructor := func(ctx context.Context) (*Connection, error) {
		return newBenchConnection()
	}

	for b.Loop() {
		pool, err := NewChannelPool(constructor, 1)
		if err != nil {
			b.Fatal(err)
		}
		res, err := pool.Acquire(ctx)
		if err != nil {
			b.Fatal(err)
		}
		res.Destroy()
		pool.Close()
	}
}

// BenchmarkPoolAcquireFastPath benchmarks acquiring an already-idle
// connection.
func BenchmarkPoolAcquireFastPath(b *testing.B) {
	ctx := context.Background()
	constructor := func(ctx context.Context) (*Connection, error) {
		return newBenchConnection()
	}

	pool, err := NewChannelPool(constructor, 1)
	if err != nil {
		b.Fatal(err)
	}
	defer pool.Close()

	res, err := pool.Acquire(ctx)
	if err != nil {
		b.Fatal(err)
	}
	res.Release()

	b.ResetTimer()
	for b.Loop() {
		res, err := pool.Acquire(ctx)
		if err != nil {
			b.Fatal(err)
		}
		res.Release()
	}
}

// BenchmarkPoolAcquireReleaseCycle benchmarks a full acquire-release
// cycle against a pool large enough to never block.
func BenchmarkPoolAcquireReleaseCycle(b *testing.B) {
	ctx := context.Background()
	constructor := func(ctx context.Context) (*Connection, error) {
		return newBenchConnection()
	}

	pool, err := NewChannelPool(constructor, 10)
	if err != nil {
		b.Fatal(err)
	}
	defer pool.Close()

	b.ResetTimer()
	for b.Loop() {
		res, err := pool.Acquire(ctx)
		if err != nil {
			b.Fatal(err)
		}
		res.Release()
	}
}

// BenchmarkPoolHighContention benchmarks the pool under high
// concurrency against a small pool size.
func BenchmarkPoolHighContention(b *testing.B) {
	ctx := context.Background()
	constructor := func(ctx context.Context) (*Connection, error) {
		return newBenchConnection()
	}

	pool, err := NewChannelPool(constructor, 2)
	if err != nil {
		b.Fatal(err)
	}
	defer pool.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			res, err := pool.Acquire(ctx)
			if err != nil {
				b.Fatal(err)
			}
			res.Release()
		}
	})
}
