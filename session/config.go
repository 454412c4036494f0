package session

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/go-zmtp/zmtp/wire"
)

// EndpointSelector picks which endpoint, by index into a Client's
// configured endpoint list, should serve a given routing key.
// ZMTP itself has no notion of sharding; this is an application-level
// convention for spreading traffic across multiple PLAIN-secured
// endpoints the same way memcache keys route to the teacher's
// servers.
type EndpointSelector func(key string, endpointCount int) int

// PoolFactory builds a Pool bounded at maxSize, dialing new
// connections with constructor.
type PoolFactory func(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error)

// Config configures a Client.
type Config struct {
	// Endpoints are the ZMTP endpoint addresses ("host:port") to
	// connect to, in tcp://-stripped form.
	Endpoints []string

	// Username and Password authenticate every connection's PLAIN
	// handshake.
	Username string
	Password string

	// MaxSize is the maximum number of pooled connections per
	// endpoint. Required: must be > 0.
	MaxSize int32

	// DialTimeout bounds each TCP dial. Zero means no timeout.
	DialTimeout time.Duration

	// HandshakeTimeout bounds the PLAIN handshake following a dial.
	// Zero means no timeout.
	HandshakeTimeout time.Duration

	// Dialer is the net.Dialer used to create new connections. If
	// nil, a default net.Dialer using DialTimeout is used.
	Dialer *net.Dialer

	// Pool is the connection pool factory. If nil, uses
	// NewChannelPool.
	Pool PoolFactory

	// SelectEndpoint picks an endpoint by routing key. If nil, uses
	// DefaultEndpointSelector (Jump Consistent Hash over xxh3).
	SelectEndpoint EndpointSelector

	// NewCircuitBreaker creates a circuit breaker for an endpoint
	// address. Called once per endpoint when the client is built. If
	// nil, no circuit breaker wraps endpoint traffic.
	NewCircuitBreaker func(endpointAddr string) *gobreaker.CircuitBreaker[*wire.Message]

	// DecoderOptions configures the wire.Decoder each Connection
	// constructs for itself. Zero value means unlimited message size
	// with zero-copy disabled.
	DecoderOptions wire.DecoderOptions

	// Logger receives structured diagnostics (handshake failures,
	// connection churn). If nil, slog.Default() is used.
	Logger *slog.Logger
}
