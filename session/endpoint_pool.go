package session

import (
	"context"

	"github.com/sony/gobreaker/v2"

	"github.com/go-zmtp/zmtp/wire"
)

// EndpointPool wraps a Pool for one ZMTP endpoint with an optional
// circuit breaker, mirroring the teacher's ServerPool.
type EndpointPool struct {
	addr           string
	pool           Pool
	circuitBreaker *gobreaker.CircuitBreaker[*wire.Message]
}

// NewEndpointPool builds an EndpointPool for addr, dialing and
// handshaking new connections with constructor.
func NewEndpointPool(addr string, constructor func(ctx context.Context) (*Connection, error), poolFactory PoolFactory, maxSize int32, newCircuitBreaker func(string) *gobreaker.CircuitBreaker[*wire.Message]) (*EndpointPool, error) {
	if poolFactory == nil {
		poolFactory = NewChannelPool
	}
	pool, err := poolFactory(constructor, maxSize)
	if err != nil {
		return nil, err
	}

	ep := &EndpointPool{addr: addr, pool: pool}
	if newCircuitBreaker != nil {
		ep.circuitBreaker = newCircuitBreaker(addr)
	}
	return ep, nil
}

// Address returns the endpoint's address.
func (ep *EndpointPool) Address() string {
	return ep.addr
}

// Stats returns a snapshot of the endpoint's pool and circuit breaker
// state.
func (ep *EndpointPool) Stats() EndpointStats {
	stats := EndpointStats{Addr: ep.addr, PoolStats: ep.pool.Stats()}
	if ep.circuitBreaker != nil {
		stats.CircuitBreakerState = ep.circuitBreaker.State()
		stats.CircuitBreakerCounts = ep.circuitBreaker.Counts()
	}
	return stats
}

// Execute sends one message and waits for the response, acquiring a
// connection from the pool and releasing or destroying it based on
// whether send failed. The whole exchange is wrapped by the
// endpoint's circuit breaker when one is configured.
func (ep *EndpointPool) Execute(ctx context.Context, send func(conn *Connection) (*wire.Message, error)) (*wire.Message, error) {
	if ep.circuitBreaker == nil {
		return ep.executeDirect(ctx, send)
	}
	return ep.circuitBreaker.Execute(func() (*wire.Message, error) {
		return ep.executeDirect(ctx, send)
	})
}

func (ep *EndpointPool) executeDirect(ctx context.Context, send func(conn *Connection) (*wire.Message, error)) (*wire.Message, error) {
	resource, err := ep.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	conn := resource.Value()
	resp, err := send(conn)
	if err != nil {
		resource.Destroy()
		return nil, err
	}

	resource.Release()
	return resp, nil
}

// Close closes the endpoint's pool.
func (ep *EndpointPool) Close() {
	ep.pool.Close()
}
