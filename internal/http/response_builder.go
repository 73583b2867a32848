// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing API responses:
// JSON bodies on success, short plain-text messages on failure.

package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
	err        error
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the response body. Encoding failures turn the response
// into a 500 when written.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		b.err = err
		return b
	}
	b.headers["Content-Type"] = contentTypeJSON
	b.body = buf.Bytes()
	return b
}

// Text sets a plain-text body.
func (b *ResponseBuilder) Text(msg string) *ResponseBuilder {
	b.headers["Content-Type"] = contentTypeText
	b.body = []byte(msg)
	return b
}

// Body sets a raw body with the given content type.
func (b *ResponseBuilder) Body(contentType string, content []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.body = content
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		slog.Error("Failed to encode response", "error", b.err)
		w.Header().Set("Content-Type", contentTypeText)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.headers["Content-Type"] == contentTypeText {
		w.Header().Set("X-Content-Type-Options", "nosniff")
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a plain-text error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).Text(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").
		Header("Allow", allowedMethods)
}

// TooManyRequestsError creates a 429 response; Retry-After is set by the limiter.
func TooManyRequestsError() *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// WriteJSON writes v as a 200 JSON response.
func WriteJSON(w http.ResponseWriter, v any) {
	NewResponse().JSON(v).Write(w)
}
