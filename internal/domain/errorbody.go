package domain

import (
	"encoding/json"
	"strings"
)

// Platform error codes carried in ErrorDetail.Error.
const (
	ErrorAuthentication  = 1000
	ErrorInvalidArgument = 2000
	ErrorTooManyRequests = 2300
	ErrorNotFound        = 2400
	ErrorConflict        = 2402
	ErrorInternal        = 3000
	ErrorUnavailable     = 3001
)

// ErrorBody is the JSON envelope the platform returns on failure.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message ErrorDetail `json:"message"`
}

// ErrorDetail describes a single failure.
type ErrorDetail struct {
	Error   int             `json:"error"`
	Message string          `json:"message"`
	Cause   json.RawMessage `json:"cause,omitempty"`
	Request string          `json:"request,omitempty"`
}

// CauseText returns the cause as plain text whether it was sent as a string or an object.
func (d ErrorDetail) CauseText() string {
	if len(d.Cause) == 0 || string(d.Cause) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(d.Cause, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(d.Cause))
}

// NewErrorBody builds an envelope with a string cause.
func NewErrorBody(code string, num int, msg, cause, request string) ErrorBody {
	body := ErrorBody{
		Code: code,
		Message: ErrorDetail{
			Error:   num,
			Message: msg,
			Request: request,
		},
	}
	if cause != "" {
		body.Message.Cause, _ = json.Marshal(cause)
	}
	return body
}
