package moodle

import (
	"fmt"
	"strings"
)

// TransportError reports a failure below the application protocol: the
// request never completed, the response status was not success, or a success
// body could not be parsed. StatusCode is zero when no response arrived.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil && e.StatusCode == 0 {
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, snippet(e.Body, 300))
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is an in-band exception from the LMS: the HTTP exchange
// succeeded but the response body carried the web service's error marker.
type RemoteError struct {
	Op        string
	Exception string
	ErrorCode string
	Message   string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.ErrorCode)
	}
	return fmt.Sprintf("%s: remote exception %s (%s)", e.Op, e.Exception, e.ErrorCode)
}

// EncodeError reports that a request could not be constructed on the client
// side; nothing was sent.
type EncodeError struct {
	Op     string
	Field  string
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s: cannot encode %q: %s", e.Op, e.Field, e.Reason)
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
