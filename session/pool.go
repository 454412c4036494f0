package session

import (
	"context"
	"errors"
)

var (
	ErrPoolClosed = errors.New("zmtp/session: pool closed")
)

// Pool manages a bounded set of Connections to one ZMTP endpoint.
// NewChannelPool is the only implementation; it evicts connections
// that went stale or broke while idle (see channelPool.Acquire)
// instead of handing them back out.
type Pool interface {
	// Acquire returns a Connection for exclusive use, blocking until
	// one is available, a new one can be created, or ctx is done.
	Acquire(ctx context.Context) (Resource, error)

	// AcquireAllIdle returns every currently idle Connection, removing
	// them from the pool's idle set. Used for health checks.
	AcquireAllIdle() []Resource

	// Stats returns a snapshot of pool statistics.
	Stats() PoolStats

	// Close closes every idle connection the pool holds. A connection
	// still on loan is closed when it is released or destroyed.
	Close()
}

// Resource is one Connection on loan from a Pool. Exactly one of
// Release, ReleaseUnused, or Destroy must be called when the caller
// is done with it.
type Resource interface {
	// Value returns the leased Connection.
	Value() *Connection

	// Release returns a healthy Connection to the pool's idle set.
	Release()

	// ReleaseUnused returns the Connection to the pool's idle set
	// without refreshing its last-used time, for health-check probes
	// that shouldn't reset the idle clock.
	ReleaseUnused()

	// Destroy closes the Connection and removes it from the pool
	// rather than returning it, for connections that failed.
	Destroy()
}
