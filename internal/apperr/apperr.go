package apperr

import "errors"

// Kind classifies an application error so transports can map it
// to a status code without inspecting message text.
type Kind string

const (
	// KindUnauthorized means no valid session, or the session lacks
	// access to the resource (e.g. not a room member).
	KindUnauthorized Kind = "unauthorized"
	// KindInvalidInput means the request was malformed or violated a
	// validation rule (empty body, oversized content).
	KindInvalidInput Kind = "invalid_input"
	// KindNotFound means the referenced entity does not exist.
	KindNotFound Kind = "not_found"
	// KindStorage means the persistence layer failed.
	KindStorage Kind = "storage_error"
	// KindDeliveryFault means a subscriber could not accept an event
	// during fan-out. It is recovered inside the bus and never
	// surfaced to callers; the constant exists for logging.
	KindDeliveryFault Kind = "delivery_fault"
)

// Error carries a kind alongside a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, or returns the empty string
// when err carries no kind.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
