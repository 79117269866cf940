// Package apperr defines the error taxonomy shared by the delivery, tracking,
// webhook and identity services.
//
// Setup-phase errors (Authentication, Configuration, Validation, NotFound)
// abort a whole request. Delivery errors belong to one recipient or one
// webhook attempt and are collected by the caller instead of propagated.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthentication
	KindConfiguration
	KindValidation
	KindNotFound
	KindDelivery
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindAuthentication: "authentication",
	KindConfiguration:  "configuration",
	KindValidation:     "validation",
	KindNotFound:       "not_found",
	KindDelivery:       "delivery",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is a classified error. Msg is safe to show to API callers.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind-only sentinels for errors.Is.
var (
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrConfiguration  = &Error{Kind: KindConfiguration}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
)

// Authentication reports a missing or invalid caller credential.
func Authentication(msg string) error { return &Error{Kind: KindAuthentication, Msg: msg} }

// Configuration reports missing provider credentials or settings.
func Configuration(msg string, err error) error {
	return &Error{Kind: KindConfiguration, Msg: msg, Err: err}
}

// Validation reports malformed input for a single call.
func Validation(msg string) error { return &Error{Kind: KindValidation, Msg: msg} }

// NotFound reports an unknown or foreign resource.
func NotFound(msg string) error { return &Error{Kind: KindNotFound, Msg: msg} }

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return KindDelivery
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}

// MaxBodyLen bounds response bodies captured in errors and delivery logs.
const MaxBodyLen = 1000

// DeliveryError is a non-2xx answer (or transport failure, Status 0) from a
// provider or webhook endpoint.
type DeliveryError struct {
	Status int
	Body   string
	Err    error
}

// NewDeliveryError builds a DeliveryError with the body truncated to MaxBodyLen.
func NewDeliveryError(status int, body string) *DeliveryError {
	return &DeliveryError{Status: status, Body: Truncate(body, MaxBodyLen)}
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.Status)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
