package reqldriver

import "reqldriver/internal/reqlerr"

// The driver's error taxonomy. DriverError reports a local invariant or
// protocol violation; CompileError, ClientError, and RuntimeError report the
// server's three error response kinds, each carrying the offending root
// term and backtrace. Defined in internal/reqlerr and re-exported here so
// the internal packages that construct one of these (pseudo, response)
// share a single definition with this package's cursor and connection
// without importing this package.
type (
	DriverError  = reqlerr.DriverError
	CompileError = reqlerr.CompileError
	ClientError  = reqlerr.ClientError
	RuntimeError = reqlerr.RuntimeError
)

var (
	newDriverError  = reqlerr.NewDriverError
	newCompileError = reqlerr.NewCompileError
	newClientError  = reqlerr.NewClientError
	newRuntimeError = reqlerr.NewRuntimeError
	errNoMoreRows   = reqlerr.ErrNoMoreRows
)
