package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Kind is the coarse failure category assigned to a request error. It drives
// retry eligibility (only network and timeout failures are transient) and the
// user-facing notification title.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindServer     Kind = "server"
	KindUnknown    Kind = "unknown"
)

// APIError is the normalized form of any failure produced by the request
// engine. It is constructed once at the boundary where the failure is first
// caught; downstream code inspects Kind instead of re-parsing messages.
type APIError struct {
	Kind    Kind
	Message string
	Status  int // HTTP status, 0 if the failure happened below HTTP
	Err     error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

func (e *APIError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *APIError) Transient() bool {
	return e.Kind == KindNetwork || e.Kind == KindTimeout
}

// Title returns a short user-facing heading for notifications.
func (e *APIError) Title() string {
	switch e.Kind {
	case KindNetwork:
		return "Connection Problem"
	case KindTimeout:
		return "Request Timed Out"
	case KindAuth:
		return "Not Authorized"
	case KindValidation:
		return "Invalid Request"
	case KindServer:
		return "Server Error"
	default:
		return "Unexpected Error"
	}
}

// FromStatus builds an APIError from an HTTP status code and a message taken
// from the response body (or a generic fallback).
func FromStatus(status int, message string) *APIError {
	if message == "" {
		message = fmt.Sprintf("HTTP error %d", status)
	}
	return &APIError{Kind: classifyStatus(status), Message: message, Status: status}
}

func classifyStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 422:
		return KindValidation
	case status >= 400:
		return KindServer
	default:
		return KindUnknown
	}
}

// Normalize converts an arbitrary transport failure into an APIError.
//
// The offline predicate is consulted so that a failure while the machine is
// known to be disconnected classifies as a network error even when the
// underlying error is ambiguous. Context cancellation by the caller is not an
// API error and must be filtered out before calling Normalize.
func Normalize(err error, offline func() bool) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	kind := KindUnknown
	switch {
	case isTimeoutError(err):
		kind = KindTimeout
	case isNetError(err):
		kind = KindNetwork
	case offline != nil && offline():
		kind = KindNetwork
	case strings.Contains(strings.ToLower(err.Error()), "timeout"):
		// Last-resort hint for errors that reach us as bare strings.
		kind = KindTimeout
	}

	return &APIError{Kind: kind, Message: err.Error(), Err: err}
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
