package netstack

// Errno is the numeric code carried by every socket error, so that the
// system-call layer can keep its signed success/error channel: a failed
// operation surfaces to userland as the negated code.
type Errno int

// Socket error codes.
const (
	ErrnoInvalidDomain Errno = iota + 1
	ErrnoInvalidType
	ErrnoInvalidProtocol
	ErrnoInvalidTypeProtocol
	ErrnoInvalidFd
	ErrnoInvalidPacketFd
	ErrnoInvalidPacketDescriptor
	ErrnoNotConnected
	ErrnoNotListen
	ErrnoNoInterface
	ErrnoTimeout
	ErrnoUnimplemented
)

// Error is a tagged socket error. All fallible operations of the
// network subsystem return one of the sentinel values below; callers
// compare with errors.Is.
type Error struct {
	Code Errno
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Msg }

// Sentinel socket errors.
var (
	// ErrInvalidDomain is returned when the socket domain is not supported.
	ErrInvalidDomain = &Error{ErrnoInvalidDomain, "invalid socket domain"}
	// ErrInvalidType is returned when the socket type is invalid for the operation.
	ErrInvalidType = &Error{ErrnoInvalidType, "invalid socket type"}
	// ErrInvalidProtocol is returned when the socket protocol is not supported.
	ErrInvalidProtocol = &Error{ErrnoInvalidProtocol, "invalid socket protocol"}
	// ErrInvalidTypeProtocol is returned when the type/protocol combination
	// violates the compatibility matrix.
	ErrInvalidTypeProtocol = &Error{ErrnoInvalidTypeProtocol, "invalid socket type/protocol combination"}
	// ErrInvalidFd is returned when the socket handle does not exist.
	ErrInvalidFd = &Error{ErrnoInvalidFd, "invalid socket handle"}
	// ErrInvalidPacketFd is returned when the packet handle does not exist.
	ErrInvalidPacketFd = &Error{ErrnoInvalidPacketFd, "invalid packet handle"}
	// ErrInvalidPacketDescriptor is returned when the packet descriptor does
	// not fit the socket protocol.
	ErrInvalidPacketDescriptor = &Error{ErrnoInvalidPacketDescriptor, "invalid packet descriptor"}
	// ErrNotConnected is returned when the operation needs a connected stream socket.
	ErrNotConnected = &Error{ErrnoNotConnected, "socket not connected"}
	// ErrNotListen is returned when the operation needs a listening socket.
	ErrNotListen = &Error{ErrnoNotListen, "socket not listening"}
	// ErrNoInterface is returned when no network interface exists.
	ErrNoInterface = &Error{ErrnoNoInterface, "no network interface available"}
	// ErrTimeout is returned when a bounded wait elapses. Callers may retry.
	ErrTimeout = &Error{ErrnoTimeout, "operation timed out"}
	// ErrUnimplemented is returned for protocols with no handler.
	ErrUnimplemented = &Error{ErrnoUnimplemented, "unimplemented protocol"}
)

// ErrnoOf extracts the numeric code from err, or 0 if err is not a
// socket error.
func ErrnoOf(err error) Errno {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return 0
}
