package workers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/domain"
)

// APIError is a non-2xx answer from the platform. It unwraps to one of the
// apperr kinds so callers can use errors.Is.
type APIError struct {
	Op         string
	Status     int
	Code       string
	ErrorCode  int
	Message    string
	Cause      string
	Request    string
	RetryAfter time.Duration

	kind error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "workers api: %s: %d", e.Op, e.Status)
	if e.Code != "" {
		b.WriteString(" " + e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Cause != "" {
		b.WriteString(" (" + e.Cause + ")")
	}
	return b.String()
}

// Unwrap returns the error kind.
func (e *APIError) Unwrap() error { return e.kind }

// RetryAfter extracts the server-requested delay from err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var ae *APIError
	if errors.As(err, &ae) && ae.RetryAfter > 0 {
		return ae.RetryAfter, true
	}
	return 0, false
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return apperr.NotFound
	case status == http.StatusConflict:
		return apperr.Conflict
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return apperr.Unauthorized
	case status == http.StatusTooManyRequests:
		return apperr.RateLimited
	case status >= 400 && status < 500:
		return apperr.Invalid
	default:
		return apperr.Unavailable
	}
}

func newAPIError(op string, resp *http.Response, body []byte, now time.Time) *APIError {
	e := &APIError{
		Op:         op,
		Status:     resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), now),
		kind:       kindForStatus(resp.StatusCode),
	}
	var eb domain.ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && (eb.Code != "" || eb.Message.Message != "") {
		e.Code = eb.Code
		e.ErrorCode = eb.Message.Error
		e.Message = eb.Message.Message
		e.Cause = eb.Message.CauseText()
		e.Request = eb.Message.Request
		return e
	}
	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0
		}
		return time.Duration(n) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
