package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/logx"
)

func reqID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return "-"
}

func writeJSON(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Warn("json encode error",
			logx.String("req_id", reqID(r.Context())),
			logx.Err(err),
		)
	}
}

// errorKind maps an error to the platform status, code and error number.
func errorKind(err error) (int, string, int) {
	switch {
	case errors.Is(err, apperr.MethodNotAllowed):
		return http.StatusMethodNotAllowed, "InvalidArgument", domain.ErrorInvalidArgument
	case errors.Is(err, apperr.Invalid):
		return http.StatusBadRequest, "InvalidArgument", domain.ErrorInvalidArgument
	case errors.Is(err, apperr.Unauthorized):
		return http.StatusUnauthorized, "AuthenticationError", domain.ErrorAuthentication
	case errors.Is(err, apperr.NotFound):
		return http.StatusNotFound, "ResourceNotFound", domain.ErrorNotFound
	case errors.Is(err, apperr.Conflict):
		return http.StatusConflict, "Conflict", domain.ErrorConflict
	case errors.Is(err, apperr.RateLimited):
		return http.StatusTooManyRequests, "TooManyRequests", domain.ErrorTooManyRequests
	case errors.Is(err, apperr.Unavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "ServiceUnavailable", domain.ErrorUnavailable
	default:
		return http.StatusInternalServerError, "InternalServerError", domain.ErrorInternal
	}
}

func writeError(logger logx.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, code, num := errorKind(err)
	id := reqID(r.Context())

	msg := http.StatusText(status)
	cause := ""
	if status < http.StatusInternalServerError {
		cause = err.Error()
	}

	fields := []logx.Field{
		logx.String("req_id", id),
		logx.Int("status", status),
		logx.String("path", r.URL.Path),
		logx.Err(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("http error", fields...)
	} else {
		logger.Info("http error", fields...)
	}
	writeJSON(logger, w, r, status, domain.NewErrorBody(code, num, msg, cause, id))
}

const (
	bodyLimit = 1 << 20
)

func decodeJSON[T any](logger logx.Logger, w http.ResponseWriter, r *http.Request, dst *T) bool {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(logger, w, r, fmt.Errorf("%w: invalid json: %v", apperr.Invalid, err))
		return false
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		writeError(logger, w, r, fmt.Errorf("%w: invalid json: trailing data", apperr.Invalid))
		return false
	}
	return true
}

func idFromURL(r *http.Request, name string) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, name))
	if id == "" {
		return "", fmt.Errorf("%w: invalid id", apperr.Invalid)
	}
	return id, nil
}
