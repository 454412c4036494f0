// Package plain implements the client side of the PLAIN security
// mechanism's handshake: HELLO/WELCOME/INITIATE/READY/ERROR (spec.md
// §4). It never touches a socket; NextHandshakeCommand and
// ProcessHandshakeCommand are driven by a session the way wire.Decoder
// is driven by a transport — see spec.md §5 and §6.
package plain

import (
	"bytes"
	"fmt"

	"github.com/go-zmtp/zmtp/metadata"
	"github.com/go-zmtp/zmtp/wire"
)

// State is the client's position in the handshake sequence (spec.md
// §4.2). Ready and ErrorReceived are absorbing: once reached, further
// calls return ErrWouldBlock / re-report the same terminal condition.
type State uint8

const (
	StateSendingHello State = iota
	StateAwaitingWelcome
	StateSendingInitiate
	StateAwaitingReady
	StateReady
	StateErrorReceived
)

func (s State) String() string {
	switch s {
	case StateSendingHello:
		return "sending-hello"
	case StateAwaitingWelcome:
		return "awaiting-welcome"
	case StateSendingInitiate:
		return "sending-initiate"
	case StateAwaitingReady:
		return "awaiting-ready"
	case StateReady:
		return "ready"
	case StateErrorReceived:
		return "error-received"
	default:
		return "unknown"
	}
}

// Status summarizes State for callers that only care about the coarse
// outcome (spec.md §4.3).
type Status uint8

const (
	StatusHandshaking Status = iota
	StatusReady
	StatusError
)

var (
	helloName    = []byte("\x05HELLO")
	welcomeName  = []byte("\x07WELCOME")
	initiateName = []byte("\x08INITIATE")
	readyName    = []byte("\x05READY")
	errorName    = []byte("\x05ERROR")
)

// Client drives one PLAIN handshake as the connecting peer. It is not
// safe for concurrent use; a session owns one Client per connection,
// the same way it owns one wire.Decoder per connection.
type Client struct {
	username string
	password string
	endpoint string
	sink     FailureSink

	properties []metadata.Property

	state           State
	lastErrorReason string
}

// Option configures optional Client behavior.
type Option func(*Client)

// WithProperties attaches application metadata to carry in INITIATE.
// PLAIN itself requires none; callers that need to advertise a
// socket-type or identity property (per the general ZMTP metadata
// framework spec.md references as an external collaborator) supply
// them here.
func WithProperties(props []metadata.Property) Option {
	return func(c *Client) {
		c.properties = props
	}
}

// NewClient creates a PLAIN client for one handshake attempt against
// endpoint, authenticating as username/password. sink receives
// ReportHandshakeFailure calls for protocol-level failures; pass
// NopFailureSink{} to ignore them. Returns ErrCredentialTooLong if
// either credential is 256 bytes or longer — PLAIN's 1-byte length
// prefix cannot represent more (spec.md §4.3).
func NewClient(username, password, endpoint string, sink FailureSink, opts ...Option) (*Client, error) {
	if len(username) >= 256 || len(password) >= 256 {
		return nil, ErrCredentialTooLong
	}
	if sink == nil {
		sink = NopFailureSink{}
	}
	c := &Client{
		username: username,
		password: password,
		endpoint: endpoint,
		sink:     sink,
		state:    StateSendingHello,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the client's current handshake state.
func (c *Client) State() State {
	return c.state
}

// Status summarizes State into handshaking/ready/error.
func (c *Client) Status() Status {
	switch c.state {
	case StateReady:
		return StatusReady
	case StateErrorReceived:
		return StatusError
	default:
		return StatusHandshaking
	}
}

// LastErrorReason returns the reason text carried by the most recently
// received ERROR command, or "" if none has been received. This is
// new surface beyond the original library's plain_client_t: the
// original only tracked that an error occurred, not why, because its
// caller read the reason straight out of the wire message. Here the
// message is consumed by ProcessHandshakeCommand, so the reason has to
// live somewhere the caller can still reach it afterward.
func (c *Client) LastErrorReason() string {
	return c.lastErrorReason
}

// NextHandshakeCommand fills msg with the next command this client
// must send, and advances state accordingly. Returns ErrWouldBlock
// when the client has nothing to send right now (it is waiting on a
// peer command, or the handshake has already concluded).
func (c *Client) NextHandshakeCommand(msg *wire.Message) error {
	switch c.state {
	case StateSendingHello:
		if err := c.produceHello(msg); err != nil {
			return err
		}
		c.state = StateAwaitingWelcome
		return nil
	case StateSendingInitiate:
		if err := c.produceInitiate(msg); err != nil {
			return err
		}
		c.state = StateAwaitingReady
		return nil
	default:
		return ErrWouldBlock
	}
}

// ProcessHandshakeCommand consumes a command frame received from the
// peer, dispatching on its command name, and advances state
// accordingly. On success it closes msg and re-initializes it as an
// empty message, so the caller can reuse it. On failure msg is left
// untouched so the caller
// can inspect or log it before closing it.
func (c *Client) ProcessHandshakeCommand(msg *wire.Message) error {
	data := msg.Data()

	var err error
	switch {
	case len(data) >= len(welcomeName) && bytes.Equal(data[:len(welcomeName)], welcomeName):
		err = c.processWelcome(data)
	case len(data) >= len(readyName) && bytes.Equal(data[:len(readyName)], readyName):
		err = c.processReady(data)
	case len(data) >= len(errorName) && bytes.Equal(data[:len(errorName)], errorName):
		err = c.processError(data)
	default:
		c.sink.ReportHandshakeFailure(c.endpoint, ErrorUnexpectedCommand)
		err = fmt.Errorf("%w: unrecognized command", ErrUnexpectedCommand)
	}
	if err != nil {
		return err
	}
	msg.Close()
	msg.InitEmpty()
	return nil
}

func (c *Client) produceHello(msg *wire.Message) error {
	size := len(helloName) + 1 + len(c.username) + 1 + len(c.password)
	if err := msg.InitSize(size); err != nil {
		return err
	}
	data := msg.Data()
	off := copy(data, helloName)
	data[off] = byte(len(c.username))
	off++
	off += copy(data[off:], c.username)
	data[off] = byte(len(c.password))
	off++
	copy(data[off:], c.password)
	msg.SetFlags(wire.FlagCommand)
	return nil
}

func (c *Client) processWelcome(data []byte) error {
	if c.state != StateAwaitingWelcome {
		c.sink.ReportHandshakeFailure(c.endpoint, ErrorUnexpectedCommand)
		return fmt.Errorf("%w: WELCOME in state %s", ErrUnexpectedCommand, c.state)
	}
	if len(data) != len(welcomeName) {
		c.sink.ReportHandshakeFailure(c.endpoint, ErrorMalformedWelcome)
		return fmt.Errorf("%w: unexpected length %d", ErrMalformedWelcome, len(data))
	}
	c.state = StateSendingInitiate
	return nil
}

func (c *Client) produceInitiate(msg *wire.Message) error {
	body := metadata.EncodeOrdered(c.properties)
	size := len(initiateName) + len(body)
	if err := msg.InitSize(size); err != nil {
		return err
	}
	data := msg.Data()
	off := copy(data, initiateName)
	copy(data[off:], body)
	msg.SetFlags(wire.FlagCommand)
	return nil
}

func (c *Client) processReady(data []byte) error {
	if c.state != StateAwaitingReady {
		c.sink.ReportHandshakeFailure(c.endpoint, ErrorUnexpectedCommand)
		return fmt.Errorf("%w: READY in state %s", ErrUnexpectedCommand, c.state)
	}
	if _, err := metadata.Decode(data[len(readyName):]); err != nil {
		c.sink.ReportHandshakeFailure(c.endpoint, ErrorInvalidMetadata)
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	c.state = StateReady
	return nil
}

// processError handles an ERROR command. Per the reference
// implementation it is accepted in either AwaitingWelcome or
// AwaitingReady — the peer may reject credentials before or after
// INITIATE — and a well-formed ERROR is not itself a Go error: the
// handshake failed, but the frame was parsed correctly, so
// ProcessHandshakeCommand returns nil and the caller observes the
// failure via Status/LastErrorReason.
func (c *Client) processError(data []byte) error {
	if c.state != StateAwaitingWelcome && c.state != StateAwaitingReady {
		c.sink.ReportHandshakeFailure(c.endpoint, ErrorUnexpectedCommand)
		return fmt.Errorf("%w: ERROR in state %s", ErrUnexpectedCommand, c.state)
	}
	if len(data) < len(errorName)+1 {
		c.sink.ReportHandshakeFailure(c.endpoint, ErrorMalformedError)
		return fmt.Errorf("%w: too short for reason length", ErrMalformedError)
	}
	reasonLen := int(data[len(errorName)])
	reasonStart := len(errorName) + 1
	if reasonStart+reasonLen > len(data) {
		c.sink.ReportHandshakeFailure(c.endpoint, ErrorMalformedError)
		return fmt.Errorf("%w: reason length %d exceeds frame", ErrMalformedError, reasonLen)
	}
	c.lastErrorReason = string(data[reasonStart : reasonStart+reasonLen])
	c.state = StateErrorReceived
	return nil
}
