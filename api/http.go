// Package api is the HTTP/WebSocket adapter over the Capture Manager. It
// owns routing, JSON encoding, request parsing, and the filter-descriptor
// registry; none of this lives in the core.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang/gddo/httputil/header"

	"github.com/netshark/netshark/captureerr"
	"github.com/netshark/netshark/printer"
)

// EnsureJSONEncodedRequestBody returns a non-nil HTTPResponse if request
// does not carry a application/json Content-Type.
func EnsureJSONEncodedRequestBody(request *http.Request) *HTTPResponse {
	contentType := ""
	if request.Header.Get("Content-Type") != "" {
		contentType, _ = header.ParseValueAndParams(request.Header, "Content-Type")
	}
	if contentType != "application/json" {
		httpErr := NewHTTPError(nil, http.StatusUnsupportedMediaType, "Content-Type header is not \"application/json\"")
		return &httpErr
	}
	return nil
}

// HTTPResponse is a status code plus a pre-serialized JSON body.
type HTTPResponse struct {
	StatusCode int
	Body       []byte
}

func (r *HTTPResponse) ResponseBody() []byte {
	return r.Body
}

func (r *HTTPResponse) ResponseHeaders() (int, map[string]string) {
	return r.StatusCode, map[string]string{
		"Content-Type": "application/json; charset=utf-8",
	}
}

func (r *HTTPResponse) Write(writer http.ResponseWriter) {
	status, headers := r.ResponseHeaders()
	for k, v := range headers {
		writer.Header().Set(k, v)
	}
	writer.WriteHeader(status)
	writer.Write(r.ResponseBody())
}

// NewHTTPResponse serializes body as JSON. A serialization failure is
// logged and downgraded to an empty 500.
func NewHTTPResponse(status int, body interface{}) HTTPResponse {
	var bodyJSON []byte
	if body != nil {
		var err error
		if bodyJSON, err = json.Marshal(body); err != nil {
			printer.Errorf("api: failed to serialize response body: %v\n", err)
			return NewHTTPResponse(http.StatusInternalServerError, nil)
		}
	}
	return HTTPResponse{StatusCode: status, Body: bodyJSON}
}

// NewHTTPError maps err onto an HTTPResponse. If err wraps a
// *captureerr.Error, its Kind determines the status code per the core's
// taxonomy (§7) and the status/message arguments are ignored.
func NewHTTPError(err error, status int, message string) HTTPResponse {
	if ce, ok := captureerr.As(err); ok {
		return NewHTTPResponse(statusForKind(ce.Kind), errorBody{Message: ce.Kind.String(), Detail: ce.Err.Error()})
	}

	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return NewHTTPResponse(status, errorBody{Message: message, Detail: detail})
}

type errorBody struct {
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// statusForKind implements the core's error-kind-to-HTTP-status mapping.
func statusForKind(kind captureerr.Kind) int {
	switch kind {
	case captureerr.State:
		return http.StatusConflict
	case captureerr.Config:
		return http.StatusBadRequest
	case captureerr.Capture:
		return http.StatusInternalServerError
	case captureerr.Timeout:
		return http.StatusServiceUnavailable
	case captureerr.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// requestHandler produces an HTTPResponse from an *http.Request.
type requestHandler func(*http.Request) HTTPResponse

// asHandler wraps a requestHandler as an http.Handler.
func asHandler(h requestHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := h(r)
		resp.Write(w)
	})
}

// timed bounds h to timeout, matching the core's own per-operation
// deadlines (10s for start/stop, 2-5s for read queries per §5). A handler
// that overruns its deadline never leaves the core inconsistent: every
// core write lives inside an operation that is itself bounded.
func timed(timeout time.Duration, h requestHandler) requestHandler {
	return func(r *http.Request) HTTPResponse {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		done := make(chan HTTPResponse, 1)
		go func() { done <- h(r) }()

		select {
		case resp := <-done:
			return resp
		case <-ctx.Done():
			return NewHTTPError(
				captureerr.New(captureerr.Timeout, "request exceeded its deadline"),
				http.StatusServiceUnavailable, "request timed out")
		}
	}
}
