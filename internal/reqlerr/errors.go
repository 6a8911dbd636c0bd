// Package reqlerr defines the driver's error taxonomy, shared by every
// internal package that can originate one of these errors, so the public
// reqldriver package can re-export them without an import cycle.
package reqlerr

import (
	"fmt"
	"strings"
)

// DriverError reports a local invariant or protocol violation: bad
// arguments, an unknown response type, an unexpected token, a handshake
// failure, use of a closed connection, or a pseudo-type conversion option
// the server's payload can't satisfy. It never originates on the server.
type DriverError struct {
	Msg string
}

func (e *DriverError) Error() string { return e.Msg }

// NewDriverError constructs a DriverError from a format string.
func NewDriverError(format string, args ...interface{}) *DriverError {
	return &DriverError{Msg: fmt.Sprintf(format, args...)}
}

// ErrNoMoreRows is the sentinel a cursor returns, repeatedly, once it has
// been fully drained.
var ErrNoMoreRows = &DriverError{Msg: "No more rows in the cursor."}

// ReqlError is the common shape of the three server-reported error kinds: a
// message plus the backtrace frames and root term the server attributed the
// failure to.
type ReqlError struct {
	Msg       string
	Term      interface{}
	Backtrace []interface{}
}

func (e *ReqlError) Error() string {
	if len(e.Backtrace) == 0 {
		return e.Msg
	}
	frames := make([]string, len(e.Backtrace))
	for i, f := range e.Backtrace {
		frames[i] = fmt.Sprintf("%v", f)
	}
	return fmt.Sprintf("%s\nBacktrace: %s", e.Msg, strings.Join(frames, ", "))
}

// CompileError reports a server-side COMPILE_ERROR: the query failed to
// compile.
type CompileError struct{ ReqlError }

// ClientError reports a server-side CLIENT_ERROR: the server rejected the
// query as a client protocol fault (e.g. malformed query envelope).
type ClientError struct{ ReqlError }

// RuntimeError reports a server-side RUNTIME_ERROR: the query compiled but
// failed during execution.
type RuntimeError struct{ ReqlError }

// NewCompileError constructs a CompileError from a response's first result,
// root term, and backtrace.
func NewCompileError(msg string, term interface{}, backtrace []interface{}) *CompileError {
	return &CompileError{ReqlError{Msg: msg, Term: term, Backtrace: backtrace}}
}

// NewClientError constructs a ClientError from a response's first result,
// root term, and backtrace.
func NewClientError(msg string, term interface{}, backtrace []interface{}) *ClientError {
	return &ClientError{ReqlError{Msg: msg, Term: term, Backtrace: backtrace}}
}

// NewRuntimeError constructs a RuntimeError from a response's first result,
// root term, and backtrace.
func NewRuntimeError(msg string, term interface{}, backtrace []interface{}) *RuntimeError {
	return &RuntimeError{ReqlError{Msg: msg, Term: term, Backtrace: backtrace}}
}
