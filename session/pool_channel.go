package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-zmtp/zmtp/internal/coarsetime"
)

// maxIdleAge bounds how long a connection may sit in the idle set
// between acquires. A PLAIN-authenticated ZMTP peer is free to close
// an idle connection on its own schedule (unlike a stateless memcache
// server, there is no keepalive command in this protocol's vocabulary
// to probe with), so the pool has no way to tell a silently-dropped
// peer from a live one without trying it; instead it discards
// anything that has sat idle long enough that a drop is likely and
// lets the caller pay for one fresh dial and handshake instead of one
// failed write.
const maxIdleAge = 2 * time.Minute

// NewChannelPool creates a channel-based connection pool. This is the
// only Pool implementation: Acquire discards idle connections that
// are closed or have aged past maxIdleAge instead of handing a
// half-dead connection to the caller.
func NewChannelPool(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error) {
	return &channelPool{
		constructor: constructor,
		maxSize:     maxSize,
		resources:   make(chan *channelResource, maxSize),
	}, nil
}

type channelResource struct {
	conn         *Connection
	pool         *channelPool
	creationTime time.Time
	lastUsedTime time.Time
}

func (r *channelResource) Value() *Connection { return r.conn }

func (r *channelResource) Release() {
	r.lastUsedTime = coarsetime.Now()
	r.pool.put(r)
}

func (r *channelResource) ReleaseUnused() {
	r.pool.put(r)
}

func (r *channelResource) Destroy() {
	r.conn.Close()
	r.pool.removeResource()
}

// channelPool is a simple, allocation-optimized connection pool using
// a buffered Go channel as its idle set.
type channelPool struct {
	constructor func(ctx context.Context) (*Connection, error)
	maxSize     int32

	mu        sync.Mutex
	resources chan *channelResource
	size      int32
	closed    bool

	stats poolStatsCollector
}

func (p *channelPool) Acquire(ctx context.Context) (Resource, error) {
	p.stats.recordAcquire()

	var waitStart time.Time
	for {
		if res := p.acquireIdleNonBlocking(); res != nil {
			if !waitStart.IsZero() {
				p.stats.recordAcquireWait(time.Since(waitStart))
			}
			return res, nil
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			p.stats.recordAcquireError()
			return nil, ErrPoolClosed
		}

		if p.size < p.maxSize {
			p.size++
			p.mu.Unlock()

			res, err := p.dial(ctx)
			if err != nil {
				p.mu.Lock()
				p.size--
				p.mu.Unlock()
				p.stats.recordAcquireError()
				return nil, err
			}
			return res, nil
		}
		p.mu.Unlock()

		if waitStart.IsZero() {
			waitStart = coarsetime.Now()
		}

		// The pool is at maxSize with nothing immediately idle. Wait
		// for a release, a discard that frees a slot, or ctx — then
		// loop back to the top: a connection that lands here stale
		// must free up a dial slot rather than being waited on again.
		select {
		case res := <-p.resources:
			if res == nil {
				p.stats.recordAcquireError()
				return nil, ErrPoolClosed
			}
			if p.discardIfStale(res) {
				continue
			}
			p.stats.recordAcquireWait(time.Since(waitStart))
			p.stats.recordAcquireFromIdle()
			return res, nil
		case <-ctx.Done():
			p.stats.recordAcquireError()
			return nil, ctx.Err()
		}
	}
}

// acquireIdleNonBlocking drains the idle set for a usable connection
// without blocking, discarding any that are closed or have aged past
// maxIdleAge along the way. It returns nil (not an error) when the
// idle set is empty or held nothing usable, leaving the caller to
// fall back to dialing or waiting.
func (p *channelPool) acquireIdleNonBlocking() *channelResource {
	for {
		select {
		case res := <-p.resources:
			if res == nil {
				return nil
			}
			if p.discardIfStale(res) {
				continue
			}
			p.stats.recordAcquireFromIdle()
			return res
		default:
			return nil
		}
	}
}

// discardIfStale closes and drops res if its Connection is already
// closed or has been idle longer than maxIdleAge, reporting true so
// the caller keeps looking rather than handing out a connection a
// write is likely to fail on. A connection with a nonzero InFlight
// count still has a request a caller hasn't finished reading the
// reply to — Release was called early, or a goroutine leaked mid-
// exchange — so it is left alone rather than closed out from under
// whoever still owns that request.
func (p *channelPool) discardIfStale(res *channelResource) bool {
	if res.conn.InFlight() > 0 {
		return false
	}
	if res.conn.IsClosed() || coarsetime.Now().Sub(res.lastUsedTime) > maxIdleAge {
		res.conn.Close()
		p.removeResource()
		return true
	}
	return false
}

// dial creates a new Connection via the pool's constructor and wraps
// it as a freshly-activated Resource. Callers must already have
// incremented p.size before calling dial.
func (p *channelPool) dial(ctx context.Context) (*channelResource, error) {
	conn, err := p.constructor(ctx)
	if err != nil {
		return nil, err
	}

	p.stats.recordCreate()
	p.stats.recordActivate()

	now := coarsetime.Now()
	return &channelResource{
		conn:         conn,
		pool:         p,
		creationTime: now,
		lastUsedTime: now,
	}, nil
}

func (p *channelPool) put(res *channelResource) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		res.conn.Close()
		return
	}
	p.mu.Unlock()

	select {
	case p.resources <- res:
		p.stats.recordRelease()
	default:
		res.conn.Close()
		p.removeResource()
	}
}

func (p *channelPool) removeResource() {
	p.mu.Lock()
	p.size--
	p.mu.Unlock()
	p.stats.recordDestroy()
}

func (p *channelPool) AcquireAllIdle() []Resource {
	var idle []Resource
	for {
		select {
		case res := <-p.resources:
			if res == nil {
				return idle
			}
			idle = append(idle, res)
		default:
			return idle
		}
	}
}

func (p *channelPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	close(p.resources)
	for res := range p.resources {
		res.conn.Close()
	}
}

func (p *channelPool) Stats() PoolStats {
	return p.stats.snapshot()
}
