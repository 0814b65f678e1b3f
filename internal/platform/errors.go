package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorKind classifies a failed remote call.
type ErrorKind string

const (
	KindTransient  ErrorKind = "transient"
	KindNotFound   ErrorKind = "not-found"
	KindBadRequest ErrorKind = "bad-request"
	KindFailure    ErrorKind = "failure"
)

// RemoteError is returned by every Graph call that does not succeed.
type RemoteError struct {
	Method  string
	Path    string
	Status  int // 0 when no response was received
	Kind    ErrorKind
	Code    string // Graph error.code
	Message string // Graph error.message, or the raw body
	Err     error  // transport error, if any
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s: %s", e.Method, e.Path, e.Status, e.Code, truncate(e.Message, 400))
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, truncate(e.Message, 400))
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a remote error, or KindFailure for any other error.
func KindOf(err error) ErrorKind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindFailure
}

// IsNotFound reports whether err is a 404 from Graph.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

// graphErrorBody is the standard Graph error envelope.
type graphErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newStatusError builds a RemoteError from a non-2xx response.
func newStatusError(method, path string, status int, body []byte) *RemoteError {
	re := &RemoteError{
		Method:  method,
		Path:    path,
		Status:  status,
		Kind:    kindForStatus(status),
		Message: string(body),
	}
	var ge graphErrorBody
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		re.Code = ge.Error.Code
		re.Message = ge.Error.Message
	}
	return re
}

// newTransportError builds a RemoteError for a request that got no response.
func newTransportError(method, path string, err error) *RemoteError {
	kind := KindFailure
	if isTransientTransport(err) {
		kind = KindTransient
	}
	return &RemoteError{Method: method, Path: path, Kind: kind, Err: err}
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindTransient
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return KindBadRequest
	}
	return KindFailure
}

func isTransientTransport(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, token := range transientMessageTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"temporar",
	"connection reset",
	"connection refused",
	"broken pipe",
	"server closed idle connection",
	"unexpected eof",
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
