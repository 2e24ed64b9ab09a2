package errors

import (
	"errors"
	"fmt"
)

// Kind classifies failures along the lines the pipeline reacts to
type Kind string

const (
	// KindNetwork is a transport failure: DNS, connect, timeout, reset
	KindNetwork Kind = "network"
	// KindStatus is a response with an unexpected HTTP status
	KindStatus Kind = "status"
	// KindParsing is a response body that is not the JSON we expect
	KindParsing Kind = "parsing"
	// KindUnresolvable means an identity has no usable key or picture
	KindUnresolvable Kind = "unresolvable"
	// KindRedirect is a redirect response where none is allowed
	KindRedirect Kind = "redirect"
	// KindStorage is a local filesystem failure
	KindStorage Kind = "storage"
)

// Error carries the failure kind alongside the operation and URL involved
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Code int
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Code)
	}
	if e.URL != "" {
		msg += " for " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error
func New(kind Kind, op, url string, err error) *Error {
	return &Error{Kind: kind, Op: op, URL: url, Err: err}
}

// Status builds a KindStatus error for an unexpected response code
func Status(op, url string, code int) *Error {
	return &Error{Kind: KindStatus, Op: op, URL: url, Code: code}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain holds an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
