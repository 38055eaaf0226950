package api

import (
	"errors"
	"fmt"
)

// Kind classifies a transport failure. The session manager branches on kinds,
// never on raw status codes.
type Kind int

const (
	// KindUnreachable is a network-level failure. Retrying is the caller's
	// decision, never the session manager's.
	KindUnreachable Kind = iota + 1
	// KindInvalidCredentials is a 401 on login. Terminal, user-visible.
	KindInvalidCredentials
	// KindMalformedRequest is a 400 on login. Terminal, user-visible.
	KindMalformedRequest
	// KindTokenExpired is a 401 on validate. Triggers the refresh cascade.
	KindTokenExpired
	// KindRefreshFailed means the refresh endpoint rejected the refresh
	// token. Forces logout.
	KindRefreshFailed
	// KindDuplicateAccount is a 409 on register.
	KindDuplicateAccount
	// KindInvalidInput is a 400 on register.
	KindInvalidInput
	// KindServerError is any 5xx. Surfaced to the caller, no automatic retry.
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindMalformedRequest:
		return "malformed request"
	case KindTokenExpired:
		return "token expired"
	case KindRefreshFailed:
		return "refresh failed"
	case KindDuplicateAccount:
		return "duplicate account"
	case KindInvalidInput:
		return "invalid input"
	case KindServerError:
		return "server error"
	default:
		return "unknown"
	}
}

// Error carries the classified kind, the HTTP status when one was received,
// and the backend's error message when the response body had one.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// KindOf extracts the Kind from err, or 0 if err is not a transport error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
