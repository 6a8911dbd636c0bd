// Package response decodes wire-level query responses and maps server error
// responses onto the driver's error taxonomy.
package response

import (
	"encoding/json"
	"fmt"

	"reqldriver/internal/proto"
	"reqldriver/internal/reqlerr"
)

// Response is a parsed server response envelope: response type, result
// batch, and (for error types) a message and backtrace.
type Response struct {
	Type      proto.ResponseType `json:"t"`
	Results   []json.RawMessage  `json:"r"`
	Backtrace []interface{}      `json:"b,omitempty"`
	Profile   json.RawMessage    `json:"p,omitempty"`
}

// Parse unmarshals a raw JSON payload into a Response.
func Parse(data []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("response: parse: %w", err)
	}
	return &r, nil
}

// MapError converts an error response (CLIENT_ERROR, COMPILE_ERROR,
// RUNTIME_ERROR) into the corresponding typed error, attaching term as the
// offending root term. Returns nil for non-error response types.
func MapError(resp *Response, term interface{}) error {
	if !resp.Type.IsError() {
		return nil
	}
	msg := extractMessage(resp.Results)
	switch resp.Type {
	case proto.ResponseClientError:
		return reqlerr.NewClientError(msg, term, resp.Backtrace)
	case proto.ResponseCompileError:
		return reqlerr.NewCompileError(msg, term, resp.Backtrace)
	case proto.ResponseRuntimeError:
		return reqlerr.NewRuntimeError(msg, term, resp.Backtrace)
	default:
		return fmt.Errorf("response: unknown error response type %d: %s", resp.Type, msg)
	}
}

// extractMessage returns the first string result from the results array.
func extractMessage(results []json.RawMessage) string {
	if len(results) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(results[0], &s); err != nil {
		return string(results[0])
	}
	return s
}
