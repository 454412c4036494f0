package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-zmtp/zmtp/wire"
)

var ErrNoEndpoints = errors.New("zmtp/session: no endpoints configured")

// Client is a ZMTP client authenticating with PLAIN, spreading
// traffic across one or more endpoints via an EndpointSelector. It
// mirrors the teacher's multi-server Client, with one EndpointPool in
// place of one serverPool per memcache server.
type Client struct {
	endpoints      []string
	endpointPools  []*EndpointPool
	selectEndpoint EndpointSelector

	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient builds a Client for every endpoint in config.Endpoints,
// each with its own bounded connection pool and (if configured)
// circuit breaker.
func NewClient(config Config) (*Client, error) {
	if len(config.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if config.MaxSize <= 0 {
		return nil, fmt.Errorf("zmtp/session: MaxSize must be > 0")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	selectEndpoint := config.SelectEndpoint
	if selectEndpoint == nil {
		selectEndpoint = DefaultEndpointSelector
	}

	c := &Client{
		endpoints:      append([]string(nil), config.Endpoints...),
		selectEndpoint: selectEndpoint,
		logger:         logger,
	}

	decoderOptions := config.DecoderOptions
	if decoderOptions == (wire.DecoderOptions{}) {
		decoderOptions.MaxMsgSize = -1
	}

	for _, addr := range c.endpoints {
		addr := addr
		constructor := func(ctx context.Context) (*Connection, error) {
			dialCtx := ctx
			if config.DialTimeout > 0 {
				var cancel context.CancelFunc
				dialCtx, cancel = context.WithTimeout(ctx, config.DialTimeout)
				defer cancel()
			}
			conn, err := NewConnection(dialCtx, config.Dialer, addr, decoderOptions, logger)
			if err != nil {
				return nil, err
			}

			handshakeCtx := ctx
			if config.HandshakeTimeout > 0 {
				var cancel context.CancelFunc
				handshakeCtx, cancel = context.WithTimeout(ctx, config.HandshakeTimeout)
				defer cancel()
			}
			if err := conn.Handshake(handshakeCtx, config.Username, config.Password); err != nil {
				conn.Close()
				return nil, err
			}
			return conn, nil
		}

		ep, err := NewEndpointPool(addr, constructor, config.Pool, config.MaxSize, config.NewCircuitBreaker)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.endpointPools = append(c.endpointPools, ep)
	}

	return c, nil
}

// Send transmits msg to the endpoint selected for key and returns the
// peer's reply.
func (c *Client) Send(ctx context.Context, key string, msg *wire.Message) (*wire.Message, error) {
	ep := c.endpointPools[c.selectEndpoint(key, len(c.endpointPools))]
	return ep.Execute(ctx, func(conn *Connection) (*wire.Message, error) {
		if err := conn.WriteMessage(ctx, msg); err != nil {
			return nil, err
		}
		return conn.ReadMessage(ctx)
	})
}

// Stats returns a snapshot of every endpoint's pool and circuit
// breaker state.
func (c *Client) Stats() []EndpointStats {
	stats := make([]EndpointStats, len(c.endpointPools))
	for i, ep := range c.endpointPools {
		stats[i] = ep.Stats()
	}
	return stats
}

// Close closes every endpoint's pool.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, ep := range c.endpointPools {
		ep.Close()
	}
}
