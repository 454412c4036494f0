package plain

import "errors"

// ErrorKind enumerates the handshake protocol errors PLAIN reports to
// its session's FailureSink, per spec.md §7.
type ErrorKind int

const (
	ErrorUnexpectedCommand ErrorKind = iota
	ErrorMalformedWelcome
	ErrorMalformedError
	ErrorInvalidMetadata
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorUnexpectedCommand:
		return "unexpected-command"
	case ErrorMalformedWelcome:
		return "malformed-welcome"
	case ErrorMalformedError:
		return "malformed-error"
	case ErrorInvalidMetadata:
		return "invalid-metadata"
	default:
		return "unknown"
	}
}

// Sentinel errors returned by ProcessHandshakeCommand/NextHandshakeCommand,
// one per ErrorKind plus ErrWouldBlock. Callers distinguish them with
// errors.Is.
var (
	ErrUnexpectedCommand = errors.New("zmtp/plain: unexpected handshake command")
	ErrMalformedWelcome  = errors.New("zmtp/plain: malformed WELCOME command")
	ErrMalformedError    = errors.New("zmtp/plain: malformed ERROR command")
	ErrInvalidMetadata   = errors.New("zmtp/plain: invalid READY metadata")

	// ErrWouldBlock is returned by NextHandshakeCommand when the
	// client isn't in a state that produces an outbound command.
	ErrWouldBlock = errors.New("zmtp/plain: would block")

	// ErrCredentialTooLong is a programmer error: username or
	// password is 256 bytes or longer (spec.md §4.3 "Constraints").
	ErrCredentialTooLong = errors.New("zmtp/plain: username or password must be shorter than 256 bytes")
)

// FailureSink is the narrow event interface the PLAIN client reports
// handshake failures to (spec.md §4.3, §6). Mirrors the teacher
// repo's ShouldCloseConnection-style error classification, but here
// the session decides what to do with the kind — PLAIN only reports.
type FailureSink interface {
	ReportHandshakeFailure(endpoint string, kind ErrorKind)
}

// NopFailureSink discards handshake failure reports. Useful for tests
// and callers that only care about the returned error.
type NopFailureSink struct{}

func (NopFailureSink) ReportHandshakeFailure(endpoint string, kind ErrorKind) {}
