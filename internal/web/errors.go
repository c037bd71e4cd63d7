package web

// errors.go turns service errors into responses.
//
// Every error is logged with its technical text and the request ID, then
// mapped through core.MapError to a user message with a support code.
// HTMX requests receive an HTML alert fragment, everything else JSON.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/staffimport/internal/core"
	"github.com/JonMunkholm/staffimport/internal/delimited"
	"github.com/JonMunkholm/staffimport/internal/web/templates"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	errNoFile      = errors.New("no file provided")
	errRateLimited = errors.New("rate limit exceeded")
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// Detail names what exactly was wrong with the file, e.g. the missing
	// columns. Set only for structural errors.
	Detail string `json:"detail,omitempty"`

	// Errors lists every row error of a rejected import.
	Errors []delimited.RowError `json:"errors,omitempty"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrRowsInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case delimited.IsStructural(err), errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if delimited.IsStructural(err) {
		resp.Detail = err.Error()
	}
	var invalid *core.InvalidRowsError
	if errors.As(err, &invalid) {
		resp.Errors = invalid.Preview.Errors
	}

	if isHTMX(r) {
		renderHTML(w, r, status, templates.ErrorAlert(alertParams(resp)))
		return
	}
	writeJSON(w, status, resp)
}

func respondRateLimited(w http.ResponseWriter, r *http.Request) {
	msg := core.MapError(errRateLimited)
	slog.Warn("rate limited", "path", r.URL.Path, "ip", clientIP(r))
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
