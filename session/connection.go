package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/go-zmtp/zmtp/plain"
	"github.com/go-zmtp/zmtp/wire"
)

var ErrConnectionClosed = errors.New("zmtp/session: connection closed")

// readArenaSize is the capacity of each Arena a Connection reads into.
// Chosen generously enough that most PLAIN handshake commands and
// small application messages arrive inside a single arena, making
// zero-copy the common case.
const readArenaSize = 64 * 1024

// Connection owns one net.Conn and the ZMTP v2 decoding state for it.
// It is not safe for concurrent use by multiple goroutines; a Pool
// hands out exclusive access to one caller at a time.
type Connection struct {
	addr    string
	conn    net.Conn
	decoder *wire.Decoder
	logger  *slog.Logger

	arena   *wire.Arena
	readPos int
	readLen int

	mu       sync.Mutex
	inFlight int
	lastUsed time.Time
	closed   bool
}

// NewConnection dials addr and wraps the resulting net.Conn. It does
// not perform the PLAIN handshake; call Handshake separately so a
// Pool's constructor can retry dialing without repeating failed
// handshakes.
func NewConnection(ctx context.Context, dialer *net.Dialer, addr string, opts wire.DecoderOptions, logger *slog.Logger) (*Connection, error) {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		addr:     addr,
		conn:     conn,
		decoder:  wire.NewDecoder(opts),
		logger:   logger,
		arena:    wire.NewArena(readArenaSize),
		lastUsed: time.Now(),
	}, nil
}

// Addr returns the remote endpoint address this connection was dialed
// against.
func (c *Connection) Addr() string {
	return c.addr
}

// handshakeFailureLogger adapts *slog.Logger to plain.FailureSink.
type handshakeFailureLogger struct {
	logger *slog.Logger
	addr   string
}

func (h handshakeFailureLogger) ReportHandshakeFailure(endpoint string, kind plain.ErrorKind) {
	h.logger.Warn("zmtp plain handshake failed", "endpoint", endpoint, "kind", kind.String())
}

// Handshake drives a plain.Client through HELLO/WELCOME/INITIATE/READY
// against this connection's peer, authenticating as username/password.
// It blocks until the handshake reaches a terminal state or ctx is
// done. A successful return means the connection is ready to exchange
// application messages.
func (c *Connection) Handshake(ctx context.Context, username, password string) error {
	client, err := plain.NewClient(username, password, c.addr, handshakeFailureLogger{logger: c.logger, addr: c.addr})
	if err != nil {
		return err
	}

	for client.Status() == plain.StatusHandshaking {
		var out wire.Message
		if err := client.NextHandshakeCommand(&out); err != nil {
			if !errors.Is(err, plain.ErrWouldBlock) {
				return err
			}
		} else {
			frame := wire.EncodeFrame(out.Flags(), out.Data())
			out.Close()
			if err := c.writeFrame(ctx, frame); err != nil {
				return err
			}
		}

		if client.Status() != plain.StatusHandshaking {
			break
		}

		msg, err := c.readFrame(ctx)
		if err != nil {
			return err
		}
		if err := client.ProcessHandshakeCommand(msg); err != nil {
			return err
		}
	}

	if client.Status() == plain.StatusError {
		return fmt.Errorf("zmtp/session: handshake rejected: %s", client.LastErrorReason())
	}
	return nil
}

// WriteMessage sends one application frame. It marks the connection
// as having one more request in flight until the matching ReadMessage
// returns, so a caller doing simple request/response exchanges never
// has its own outstanding send/receive pair counted as idle.
func (c *Connection) WriteMessage(ctx context.Context, msg *wire.Message) error {
	frame := wire.EncodeFrame(msg.Flags(), msg.Data())
	if err := c.writeFrame(ctx, frame); err != nil {
		return err
	}
	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()
	return nil
}

// ReadMessage receives the next application frame, blocking until one
// arrives or ctx is done. It decrements InFlight regardless of
// outcome: a failed read resolves the outstanding request just as
// much as a successful one does.
func (c *Connection) ReadMessage(ctx context.Context) (*wire.Message, error) {
	msg, err := c.readFrame(ctx)
	c.mu.Lock()
	if c.inFlight > 0 {
		c.inFlight--
	}
	c.mu.Unlock()
	return msg, err
}

func (c *Connection) writeFrame(ctx context.Context, frame []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}
	if _, err := c.conn.Write(frame); err != nil {
		c.markClosed()
		return err
	}
	c.mu.Lock()
	c.lastUsed = time.Now()
	c.mu.Unlock()
	return nil
}

// readFrame decodes the next complete message out of the connection's
// arena-backed read buffer, topping it up from the socket as needed.
func (c *Connection) readFrame(ctx context.Context) (*wire.Message, error) {
	for {
		if c.readPos < c.readLen {
			c.decoder.SetInputArena(c.arena, c.readPos)
			consumed, msg, status, err := c.decoder.Decode(c.arena.Buffer()[c.readPos:c.readLen])
			c.readPos += consumed
			if err != nil {
				return nil, err
			}
			if status == wire.StatusReady {
				c.mu.Lock()
				c.lastUsed = time.Now()
				c.mu.Unlock()
				return msg, nil
			}
		}

		if c.readLen >= c.arena.Cap() {
			c.arena.Discard()
			c.arena = wire.NewArena(readArenaSize)
			c.readPos = 0
			c.readLen = 0
		}

		if deadline, ok := ctx.Deadline(); ok {
			c.conn.SetReadDeadline(deadline)
		} else {
			c.conn.SetReadDeadline(time.Time{})
		}

		n, err := c.conn.Read(c.arena.Buffer()[c.readLen:])
		if err != nil {
			c.markClosed()
			return nil, err
		}
		c.readLen += n
	}
}

// InFlight returns the number of requests sent via WriteMessage whose
// matching ReadMessage hasn't returned yet. discardIfStale checks this
// before evicting an idle connection, the same way the teacher's
// least-in-flight pool selection reads Connection.InFlight there.
func (c *Connection) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// LastUsed returns when the connection last completed a read or
// write.
func (c *Connection) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

// IsClosed reports whether the connection has been closed, including
// by an I/O error.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the underlying net.Conn.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.markClosedLocked()
	return c.conn.Close()
}

func (c *Connection) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.markClosedLocked()
	c.conn.Close()
}

func (c *Connection) markClosedLocked() {
	c.closed = true
}
