package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a user-facing failure.
type Kind string

const (
	KindInput    Kind = "input_error"
	KindFetch    Kind = "fetch_error"
	KindConfig   Kind = "config_error"
	KindFormat   Kind = "format_error"
	KindUpstream Kind = "upstream_error"
	KindUnknown  Kind = "internal_error"
)

// Error is a classified failure carrying the message shown to the user.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Input reports a rejected user input (wrong file type, empty URL, wrong phase).
func Input(msg string) *Error {
	return &Error{Kind: KindInput, Msg: msg}
}

// Fetch reports a website or document extraction failure.
func Fetch(msg string, err error) *Error {
	return &Error{Kind: KindFetch, Msg: msg, Err: err}
}

// Config reports missing or invalid configuration.
func Config(msg string) *Error {
	return &Error{Kind: KindConfig, Msg: msg}
}

// Format reports a completion that violated the response contract.
func Format(msg string, err error) *Error {
	return &Error{Kind: KindFormat, Msg: msg, Err: err}
}

// Upstream reports a rejected or failed completion call.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
