// Package captureerr defines the capture engine's error taxonomy and its
// mapping onto HTTP status codes. DecodeError never reaches this package;
// it is swallowed into the stats aggregate's error counter at the point of
// decode.
package captureerr

import "github.com/pkg/errors"

// Kind classifies an Error for the HTTP adapter's status-code mapping.
type Kind int

const (
	// Config covers a missing interface, an invalid buffer size, or an
	// unknown filter.
	Config Kind = iota
	// Capture covers an interface that can't be opened, a filter that
	// can't be applied, or an OS permission denial.
	Capture
	// State covers start-while-running, stop-while-idle, and a setter
	// call while running.
	State
	// Timeout covers a bounded operation that exceeded its deadline.
	Timeout
	// IO covers a broken channel, a closed session, or a socket error in
	// the HTTP/WebSocket adapter.
	IO
	// NotFound covers a query for a packet id that isn't in the store.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "ConfigError"
	case Capture:
		return "CaptureError"
	case State:
		return "StateError"
	case Timeout:
		return "TimeoutError"
	case IO:
		return "IoError"
	case NotFound:
		return "NotFound"
	default:
		return "Error"
	}
}

// Error is a kinded, wrapped error surfaced from the Capture Manager's
// public operations.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps msg as an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Wrap wraps err as an Error of the given kind, formatting msg as a
// pkg/errors context line the way the rest of this codebase does.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Err: errors.Wrap(err, msg)}
}

// Wrapf is Wrap with fmt-style formatting of msg.
func Wrapf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: errors.Wrapf(err, format, args...)}
}

// As reports whether err (or something it wraps) is a *Error, and if so
// returns it.
func As(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

var (
	// ErrAlreadyRunning is returned by start() when the manager is not Idle.
	ErrAlreadyRunning = New(State, "capture is already running")
	// ErrNotRunning is returned by stop() when the manager is Idle.
	ErrNotRunning = New(State, "capture is not running")
	// ErrNoInterface is returned by start() when Config.Interface is unset.
	ErrNoInterface = New(Config, "no interface configured")
	// ErrSetterWhileRunning is returned by setters called outside Idle.
	ErrSetterWhileRunning = New(State, "cannot change configuration while capture is running")
	// ErrNotFound is returned when a queried packet id doesn't exist.
	ErrNotFound = New(NotFound, "not found")
)
