package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a failed remote call so the caller can pick per-kind
// behavior without parsing error strings.
type Kind int

const (
	// KindValidation means required input was missing; no request was sent.
	KindValidation Kind = iota
	// KindTransport means the request could not be sent or completed.
	KindTransport
	// KindServer means the service answered with a non-success status.
	KindServer
	// KindNotFound is the server failure for an unknown phone or letter id.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error is the uniform failure type surfaced by every gateway operation.
type Error struct {
	Kind   Kind
	Op     string // operation name, e.g. "register"
	Status int    // HTTP status for KindServer/KindNotFound, 0 otherwise
	Err    error  // underlying cause, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case KindTransport:
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	case KindNotFound:
		return fmt.Sprintf("%s: not found (HTTP %d)", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: server error (HTTP %d)", e.Op, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err. Errors that did not come from
// the gateway report as transport failures.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindTransport
}

// IsNotFound reports whether err is the unknown-phone/unknown-letter failure.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
