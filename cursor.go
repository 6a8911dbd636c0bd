package reqldriver

import (
	"encoding/json"
	"fmt"
	"sync"

	"reqldriver/internal/pseudo"
	"reqldriver/internal/proto"
	"reqldriver/internal/response"
)

// streamer is the narrow slice of Connection a Cursor needs: requesting more
// rows or telling the server to abandon the query early. A Cursor never
// touches the socket itself.
type streamer interface {
	continueQuery(token uint64) error
	stopQuery(token uint64) error
}

// Cursor iterates over the results of a query. Atom and sequence responses
// arrive already complete; partial responses are fetched lazily, one batch
// at a time, by sending a CONTINUE for the cursor's token. A changefeed
// cursor (IsFeed true) never reaches end of stream on its own; only Close
// or a connection failure stops it.
type Cursor struct {
	token    uint64
	conn     streamer
	opts     pseudo.Options
	rootTerm interface{}
	isFeed   bool

	mu      sync.Mutex
	cond    *sync.Cond
	batches [][]json.RawMessage // FIFO queue of undelivered batches
	pos     int                 // read offset into batches[0]

	endFlag  bool  // a terminal (non-PARTIAL, non-FEED) response has been seen
	contFlag bool  // a CONTINUE is outstanding; at most one at a time
	err      error // sticky: once set, returned from every subsequent Next

	waitCompleteSeen     bool
	waitCompleteDelivered bool

	closed bool
}

// newCursor builds a Cursor for token, seeded with the first response
// already decoded. conn is used to request further batches or to stop the
// query early.
func newCursor(token uint64, conn streamer, opts pseudo.Options, rootTerm interface{}, first *response.Response) *Cursor {
	c := &Cursor{
		token:    token,
		conn:     conn,
		opts:     opts,
		rootTerm: rootTerm,
	}
	c.cond = sync.NewCond(&c.mu)
	c.isFeed = first.Type == proto.ResponseSuccessFeed
	c.ingest(first)
	return c
}

// AddResponse is called by the connection's read loop, under no lock of its
// own, whenever a frame tagged with this cursor's token arrives. It pushes
// the batch onto the FIFO queue and wakes any blocked Next call.
func (c *Cursor) AddResponse(resp *response.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingest(resp)
	c.cond.Broadcast()
}

// ingest applies resp to cursor state. Called with mu held.
func (c *Cursor) ingest(resp *response.Response) {
	c.contFlag = false

	if resp.Type == proto.ResponseWaitComplete {
		c.waitCompleteSeen = true
		c.endFlag = true
		return
	}

	if resp.Type.IsError() {
		if c.err == nil {
			c.err = response.MapError(resp, c.rootTerm)
		}
		c.endFlag = true
		return
	}

	if len(resp.Results) > 0 {
		c.batches = append(c.batches, resp.Results)
	}
	if resp.Type.IsTerminal() {
		c.endFlag = true
	}
}

// Next blocks until a row is available, the cursor is exhausted, or an
// error (including a sticky error from a previous response) is ready to be
// reported. It returns (nil, reqlerr.ErrNoMoreRows) at end of stream, mirroring
// io.EOF-style iteration without importing io for a single sentinel.
func (c *Cursor) Next() (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.err != nil {
			return nil, c.err
		}
		if c.waitCompleteSeen && !c.waitCompleteDelivered {
			c.waitCompleteDelivered = true
			return nil, nil
		}
		if row, ok := c.popLocked(); ok {
			var raw interface{}
			if err := json.Unmarshal(row, &raw); err != nil {
				return nil, fmt.Errorf("cursor: decode row: %w", err)
			}
			converted, err := pseudo.Convert(raw, c.opts)
			if err != nil {
				return nil, err
			}
			return converted, nil
		}
		if c.endFlag {
			return nil, errNoMoreRows
		}
		if c.contFlag {
			c.cond.Wait()
			continue
		}
		if err := c.requestMoreLocked(); err != nil {
			return nil, err
		}
	}
}

// popLocked removes and returns the next raw row, if any is buffered.
func (c *Cursor) popLocked() (json.RawMessage, bool) {
	for len(c.batches) > 0 {
		batch := c.batches[0]
		if c.pos < len(batch) {
			row := batch[c.pos]
			c.pos++
			return row, true
		}
		c.batches = c.batches[1:]
		c.pos = 0
	}
	return nil, false
}

// requestMoreLocked sends CONTINUE and marks contFlag so only one is ever
// in flight. Called with mu held; the actual write happens without mu, via
// conn.continueQuery, which writes the CONTINUE frame and does not wait
// for the response (the response arrives later through AddResponse).
func (c *Cursor) requestMoreLocked() error {
	c.contFlag = true
	c.mu.Unlock()
	err := c.conn.continueQuery(c.token)
	c.mu.Lock()
	if err != nil {
		c.contFlag = false
		c.err = err
		return err
	}
	return nil
}

// Each calls fn with each row in order until the cursor is exhausted, fn
// returns an error, or an error arrives from the server. It always closes
// the cursor before returning.
func (c *Cursor) Each(fn func(interface{}) error) error {
	defer c.Close()
	for {
		row, err := c.Next()
		if err == errNoMoreRows {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// ToArray drains the cursor into a slice. It is not supported for
// changefeeds, which never terminate on their own.
func (c *Cursor) ToArray() ([]interface{}, error) {
	c.mu.Lock()
	isFeed := c.isFeed
	c.mu.Unlock()
	if isFeed {
		return nil, newDriverError("`to_array` is not available for feeds.")
	}
	defer c.Close()
	var all []interface{}
	for {
		row, err := c.Next()
		if err == errNoMoreRows {
			return all, nil
		}
		if err != nil {
			return all, err
		}
		all = append(all, row)
	}
}

// Close stops the query on the server, if it has not already run to
// completion, and wakes any blocked Next call with an end-of-stream error.
func (c *Cursor) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	needStop := !c.endFlag
	if c.err == nil {
		c.err = errNoMoreRows
	}
	c.mu.Unlock()
	c.cond.Broadcast()

	if needStop {
		return c.conn.stopQuery(c.token)
	}
	return nil
}

// IsFeed reports whether this cursor streams an unbounded changefeed.
func (c *Cursor) IsFeed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isFeed
}

// terminalIdle reports whether the cursor has reached a terminal state
// (end of stream or a sticky error) with no CONTINUE outstanding — the
// condition under which the connection's token registry entry can be
// dropped.
func (c *Cursor) terminalIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (c.endFlag || c.err != nil) && !c.contFlag
}
