package domain

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindConflict
	KindAuth
	KindNotFound
	KindSignature
	KindPersistence
	KindGateway
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindSignature:
		return "signature"
	case KindPersistence:
		return "persistence"
	case KindGateway:
		return "gateway"
	default:
		return "unknown"
	}
}

// Error is returned by every service operation. Message is safe to show to
// clients; Err keeps the underlying cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationError(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func ConflictError(msg string) error   { return &Error{Kind: KindConflict, Message: msg} }
func AuthError(msg string) error       { return &Error{Kind: KindAuth, Message: msg} }
func NotFoundError(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }
func SignatureError(msg string) error  { return &Error{Kind: KindSignature, Message: msg} }

func PersistenceError(msg string, err error) error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// GatewayError hides the upstream message from clients.
func GatewayError(err error) error {
	return &Error{Kind: KindGateway, Message: "payment gateway error", Err: err}
}

func UnknownError(err error) error {
	return &Error{Kind: KindUnknown, Message: "server error", Err: err}
}

// KindOf returns the taxonomy kind of err, KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
