package client

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call. Transport failures and HTTP failures are
// distinct kinds so callers never have to inspect message text.
type Kind int

const (
	// KindNetwork means the request never produced an HTTP response.
	KindNetwork Kind = iota + 1
	// KindOffline means the call was refused locally because the client is offline.
	KindOffline
	KindValidation
	KindBadRequest
	KindNotFound
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindOffline:
		return "offline"
	case KindValidation:
		return "validation"
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

const (
	networkMessage = "Unable to reach the server. Please check your connection and try again."
	offlineMessage = "You are offline. Changes cannot be saved until the connection is restored."
)

type Error struct {
	Kind Kind
	// Status is the HTTP status code, zero for network and offline errors.
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String() + ": " + e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the copy shown to a person for this failure.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindNetwork:
		return networkMessage
	case KindOffline:
		return offlineMessage
	}
	if e.Message != "" {
		return e.Message
	}
	return "Something went wrong. Please try again."
}

// ErrOffline is returned for calls refused while offline.
var ErrOffline = &Error{Kind: KindOffline, Message: "offline"}

// KindOf reports the kind of err if it is, or wraps, an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
