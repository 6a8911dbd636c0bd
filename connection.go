package reqldriver

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"

	"reqldriver/internal/pseudo"
	"reqldriver/internal/proto"
	"reqldriver/internal/response"
	"reqldriver/internal/term"
	"reqldriver/internal/wire"
)

// connState is the connection's lifecycle state.
type connState int32

const (
	stateInit connState = iota
	stateHandshaking
	stateOpen
	stateClosing
	stateClosed
)

// pendingQuery is the registry entry kept for a token from the moment a
// query is started until its cursor reaches a terminal, idle state.
type pendingQuery struct {
	cursor *Cursor
	first  chan *response.Response // non-nil only until the first response arrives
}

// Connection is a single connection to a server, multiplexing any number of
// concurrent queries over one socket by token. A background goroutine reads
// frames and dispatches each to the cursor (or first-response waiter)
// registered for its token.
type Connection struct {
	addr    string
	authKey string
	opts    ConnectOpts

	nc      net.Conn
	writeMu sync.Mutex

	token atomic.Uint64

	mu      sync.Mutex
	state   connState
	pending map[uint64]*pendingQuery
	done    chan struct{}

	debug bool
}

// ConnectOpts configures a Connection.
type ConnectOpts struct {
	Host     string // default "localhost"
	Port     int    // default 28015
	AuthKey  string
	Database string // default db injected into global_optargs when a query omits one

	// TimeFormat, GroupFormat, and BinaryFormat select how pseudo-type
	// objects ($reql_type$) convert to native Go values: "native" (default)
	// or "raw".
	TimeFormat   string
	GroupFormat  string
	BinaryFormat string
}

func (o ConnectOpts) addr() string {
	host := o.Host
	if host == "" {
		host = "localhost"
	}
	port := o.Port
	if port == 0 {
		port = 28015
	}
	return fmt.Sprintf("%s:%d", host, port)
}

func (o ConnectOpts) pseudoOpts() pseudo.Options {
	return pseudo.Options{
		TimeFormat:   o.TimeFormat,
		GroupFormat:  o.GroupFormat,
		BinaryFormat: o.BinaryFormat,
	}
}

// Connect dials a server, performs the handshake, and returns an open
// Connection. ctx governs the dial and handshake only; once established the
// connection outlives ctx.
func Connect(ctx context.Context, opts ConnectOpts) (*Connection, error) {
	addr := opts.addr()
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("reqldriver: dial %s: %w", addr, err)
	}

	c := &Connection{
		addr:    addr,
		authKey: opts.AuthKey,
		opts:    opts,
		nc:      nc,
		pending: make(map[uint64]*pendingQuery),
		done:    make(chan struct{}),
		debug:   os.Getenv("REQLDRIVER_DEBUG") == "wire",
		state:   stateHandshaking,
	}

	type hsResult struct{ err error }
	hsC := make(chan hsResult, 1)
	go func() { hsC <- hsResult{err: c.handshake()} }()

	select {
	case <-ctx.Done():
		_ = nc.Close()
		<-hsC
		return nil, fmt.Errorf("reqldriver: handshake %s: %w", addr, ctx.Err())
	case res := <-hsC:
		if res.err != nil {
			_ = nc.Close()
			return nil, fmt.Errorf("reqldriver: handshake %s: %w", addr, res.err)
		}
	}

	c.mu.Lock()
	c.state = stateOpen
	c.mu.Unlock()

	go c.readLoop()
	return c, nil
}

// IsConnection reports whether x is a *Connection that is currently open.
func IsConnection(x interface{}) bool {
	c, ok := x.(*Connection)
	return ok && c != nil && c.isOpen()
}

func (c *Connection) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

// handshake performs the V0_3 magic-number plus pre-shared auth-key
// handshake and verifies the server's NUL-terminated status reply.
func (c *Connection) handshake() error {
	req := wire.BuildHandshake(c.authKey)
	if _, err := c.nc.Write(req); err != nil {
		return fmt.Errorf("write handshake: %w", err)
	}
	status, err := wire.ReadStatus(c.nc)
	if err != nil {
		return fmt.Errorf("read handshake status: %w", err)
	}
	if status != "SUCCESS" {
		return newDriverError("Server dropped connection with message: '%s'", status)
	}
	return nil
}

// nextToken returns the next query token. Tokens start at 1 and never repeat
// for the lifetime of the connection.
func (c *Connection) nextToken() uint64 {
	return c.token.Add(1)
}

// Start runs root against the server and returns a Cursor over its result.
// opts carries per-query global options (e.g. "time_format"); Database, if
// set on the connection and not already present in opts, is injected as
// "db".
func (c *Connection) Start(root term.Term, opts map[string]interface{}) (*Cursor, error) {
	c.mu.Lock()
	if c.state != stateOpen {
		c.mu.Unlock()
		return nil, newDriverError("connection is not open")
	}
	c.mu.Unlock()

	termValue, err := root.Build()
	if err != nil {
		return nil, err
	}

	globalOpts := c.mergedOpts(opts)

	token := c.nextToken()
	payload, err := buildQueryEnvelope(proto.QueryStart, termValue, globalOpts)
	if err != nil {
		return nil, err
	}

	first := make(chan *response.Response, 1)
	entry := &pendingQuery{first: first}
	c.mu.Lock()
	if c.state != stateOpen {
		c.mu.Unlock()
		return nil, newDriverError("connection is not open")
	}
	c.pending[token] = entry
	c.mu.Unlock()

	if err := c.writeFrame(token, payload); err != nil {
		c.mu.Lock()
		delete(c.pending, token)
		c.mu.Unlock()
		return nil, err
	}

	resp, err := c.awaitFirst(token, first)
	if err != nil {
		return nil, err
	}
	if resp.Type.IsError() {
		c.dropIfIdle(token, nil)
		return nil, response.MapError(resp, termValue)
	}

	cur := newCursor(token, c, c.opts.pseudoOpts(), termValue, resp)
	c.mu.Lock()
	entry.cursor = cur
	c.mu.Unlock()
	c.dropIfIdle(token, cur)
	return cur, nil
}

// mergedOpts copies opts (never mutating the caller's map) and injects the
// connection's default database under "db" when neither is already set.
func (c *Connection) mergedOpts(opts map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(opts)+1)
	for k, v := range opts {
		merged[k] = v
	}
	if _, ok := merged["db"]; !ok && c.opts.Database != "" {
		dbTerm, _ := term.DB(c.opts.Database).Build()
		merged["db"] = dbTerm
	}
	return merged
}

// buildQueryEnvelope assembles [query_type, term, global_optargs?].
// global_optargs is omitted entirely when empty.
func buildQueryEnvelope(qt proto.QueryType, termValue interface{}, globalOpts map[string]interface{}) ([]byte, error) {
	var parts []interface{}
	if termValue == nil && len(globalOpts) == 0 {
		parts = []interface{}{int(qt)}
	} else if len(globalOpts) == 0 {
		parts = []interface{}{int(qt), termValue}
	} else {
		parts = []interface{}{int(qt), termValue, globalOpts}
	}
	data, err := json.Marshal(parts)
	if err != nil {
		return nil, fmt.Errorf("reqldriver: encode query: %w", err)
	}
	return data, nil
}

// continueQuery sends a CONTINUE for token. Implements the streamer
// interface consumed by Cursor.
func (c *Connection) continueQuery(token uint64) error {
	payload, err := buildQueryEnvelope(proto.QueryContinue, nil, nil)
	if err != nil {
		return err
	}
	return c.writeFrame(token, payload)
}

// stopQuery sends a STOP for token. Implements the streamer interface
// consumed by Cursor. The server's reply (if any) is discarded by readLoop
// once the cursor has no outstanding registry entry to deliver it to.
func (c *Connection) stopQuery(token uint64) error {
	payload, err := buildQueryEnvelope(proto.QueryStop, nil, nil)
	if err != nil {
		return err
	}
	return c.writeFrame(token, payload)
}

// NoreplyWait blocks until every query issued with noreply so far has been
// processed by the server, per the NOREPLY_WAIT query type.
func (c *Connection) NoreplyWait(ctx context.Context) error {
	token := c.nextToken()
	payload, err := buildQueryEnvelope(proto.QueryNoreplyWait, nil, nil)
	if err != nil {
		return err
	}

	first := make(chan *response.Response, 1)
	c.mu.Lock()
	if c.state != stateOpen {
		c.mu.Unlock()
		return newDriverError("connection is not open")
	}
	c.pending[token] = &pendingQuery{first: first}
	c.mu.Unlock()

	if err := c.writeFrame(token, payload); err != nil {
		c.mu.Lock()
		delete(c.pending, token)
		c.mu.Unlock()
		return err
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, token)
		c.mu.Unlock()
		return ctx.Err()
	case resp := <-first:
		c.dropIfIdle(token, nil)
		if resp == nil {
			return newDriverError("connection closed while waiting for noreply_wait")
		}
		if resp.Type.IsError() {
			return response.MapError(resp, nil)
		}
		return nil
	}
}

// CloseOpts controls Connection.Close.
type CloseOpts struct {
	// NoreplyWait, if true (the default callers should usually pass),
	// drains outstanding noreply queries before the socket is closed.
	NoreplyWait bool
}

// Close waits (if requested) for outstanding noreply queries to finish,
// then shuts down the socket and unblocks every open cursor with an error.
func (c *Connection) Close(opts CloseOpts) error {
	if opts.NoreplyWait {
		ctx, cancel := context.WithCancel(context.Background())
		_ = c.NoreplyWait(ctx)
		cancel()
	}
	return c.Cancel()
}

// Cancel immediately closes the socket without waiting for anything,
// unblocking every pending cursor and in-flight call with an error.
func (c *Connection) Cancel() error {
	c.mu.Lock()
	if c.state == stateClosed || c.state == stateClosing {
		c.mu.Unlock()
		return nil
	}
	c.state = stateClosing
	c.mu.Unlock()

	err := c.nc.Close()
	<-c.done
	return err
}

// Use changes the default database injected into subsequent queries that
// do not set their own "db" optarg.
func (c *Connection) Use(db string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Database = db
}

// Reconnect closes c (discarding it, however it is currently doing) and
// dials a fresh connection with the same options, retrying with exponential
// backoff until ctx is done. It does not mutate c; callers replace their
// reference with the returned Connection.
func (c *Connection) Reconnect(ctx context.Context, noreplyWait bool) (*Connection, error) {
	_ = c.Close(CloseOpts{NoreplyWait: noreplyWait})

	c.mu.Lock()
	opts := c.opts
	c.mu.Unlock()

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0 // bounded only by ctx

	var fresh *Connection
	operation := func() error {
		conn, err := Connect(ctx, opts)
		if err != nil {
			return err
		}
		fresh = conn
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("reqldriver: reconnect: %w", err)
	}
	return fresh, nil
}

// writeFrame serializes writes so concurrent Start/continueQuery/stopQuery
// calls never interleave their bytes on the wire.
func (c *Connection) writeFrame(token uint64, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.debug {
		fmt.Fprintf(os.Stderr, "reqldriver: wire out token=%d len=%d\n%s", token, len(payload), hex.Dump(payload))
	}
	return wire.WriteFrame(c.nc, token, payload)
}

// awaitFirst waits for the first response to token, whether it arrives
// through readLoop or the connection dies first.
func (c *Connection) awaitFirst(token uint64, ch chan *response.Response) (*response.Response, error) {
	resp, ok := <-ch
	if !ok || resp == nil {
		return nil, newDriverError("connection closed before a response for token %d arrived", token)
	}
	return resp, nil
}

// dropIfIdle removes token's registry entry once its cursor (if any) has
// reached a terminal state with no outstanding CONTINUE. A nil cursor
// (NOREPLY_WAIT, or an immediate error on Start) always drops.
func (c *Connection) dropIfIdle(token uint64, cur *Cursor) {
	if cur != nil && !cur.terminalIdle() {
		return
	}
	c.mu.Lock()
	delete(c.pending, token)
	c.mu.Unlock()
}

// readLoop decodes frames and dispatches each to the registry entry for its
// token: the first-response channel if the query hasn't produced one yet,
// or the live cursor afterward. Unknown tokens are silently dropped, since
// a STOP's reply can race the cursor's own registry cleanup.
func (c *Connection) readLoop() {
	defer c.shutdown()
	for {
		token, payload, err := wire.ReadFrame(c.nc)
		if err != nil {
			return
		}
		if c.debug {
			fmt.Fprintf(os.Stderr, "reqldriver: wire in token=%d len=%d\n%s", token, len(payload), hex.Dump(payload))
		}
		resp, err := response.Parse(payload)
		if err != nil {
			continue
		}
		c.dispatch(token, resp)
	}
}

func (c *Connection) dispatch(token uint64, resp *response.Response) {
	c.mu.Lock()
	entry, ok := c.pending[token]
	if !ok {
		c.mu.Unlock()
		return
	}
	first := entry.first
	entry.first = nil
	cur := entry.cursor
	c.mu.Unlock()

	if first != nil {
		select {
		case first <- resp:
		default:
		}
		close(first)
		return
	}

	if cur != nil {
		cur.AddResponse(resp)
		c.dropIfIdle(token, cur)
	}
}

// shutdown closes the socket (idempotent) and unblocks every pending
// waiter and cursor with a closed-connection error.
func (c *Connection) shutdown() {
	_ = c.nc.Close()

	c.mu.Lock()
	c.state = stateClosed
	pending := c.pending
	c.pending = make(map[uint64]*pendingQuery)
	c.mu.Unlock()

	for _, entry := range pending {
		if entry.first != nil {
			close(entry.first)
		}
		if cur := entry.cursor; cur != nil {
			cur.mu.Lock()
			cur.contFlag = false
			cur.endFlag = true
			if cur.err == nil {
				cur.err = newDriverError("connection closed")
			}
			cur.cond.Broadcast()
			cur.mu.Unlock()
		}
	}
	close(c.done)
}
