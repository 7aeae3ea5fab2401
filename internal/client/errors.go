package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. APIError values with status 401 also match ErrUnauthorized
// under errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrOffline      = errors.New("offline")
	ErrQueued       = errors.New("offline - queued for later")
)

// Kind classifies a failed call for the caller's error handling.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindConflict
	KindRateLimited
	KindServer
	KindNetwork
	KindQueued
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindQueued:
		return "queued"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Kind classifies the response status.
func (e *APIError) Kind() Kind {
	switch {
	case e.Status == http.StatusBadRequest:
		return KindValidation
	case e.Status == http.StatusUnauthorized:
		return KindUnauthorized
	case e.Status == http.StatusNotFound:
		return KindNotFound
	case e.Status == http.StatusConflict:
		return KindConflict
	case e.Status == http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindServer
	}
}

// NetworkError is a transport-level failure: the request never produced a
// response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Classify maps any error returned by Client onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrQueued) {
		return KindQueued
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind()
	}
	var netErr *NetworkError
	if errors.Is(err, ErrOffline) || errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindServer
}

// IsNetwork reports whether err is a connectivity failure, queued or not.
func IsNetwork(err error) bool {
	k := Classify(err)
	return k == KindNetwork || k == KindQueued
}
