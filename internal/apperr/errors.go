package apperr

import (
	"errors"
	"fmt"
)

// Invalid is returned when the input fails domain validation.
var Invalid = errors.New("invalid input")

// MethodNotAllowed is an Invalid request that targets an existing route with the wrong method (HTTP 405).
var MethodNotAllowed = fmt.Errorf("%w: method not allowed", Invalid)

// Conflict indicates a uniqueness or state conflict (HTTP 409).
var Conflict = errors.New("conflict")

// NotFound indicates that the requested resource does not exist.
var NotFound = errors.New("not found")

// Unauthorized indicates rejected or missing credentials (HTTP 401/403).
var Unauthorized = errors.New("unauthorized")

// RateLimited indicates the platform throttled the request (HTTP 429).
var RateLimited = errors.New("rate limited")

// Unavailable indicates a server-side failure (HTTP 5xx or an open circuit).
var Unavailable = errors.New("service unavailable")

// Transport indicates the request never produced an HTTP response.
var Transport = errors.New("transport failure")

// Transient reports whether err is worth retrying later.
func Transient(err error) bool {
	return errors.Is(err, RateLimited) ||
		errors.Is(err, Unavailable) ||
		errors.Is(err, Transport)
}
