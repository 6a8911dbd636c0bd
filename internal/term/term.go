// Package term builds the small, JSON-serializable term trees the connection
// engine hands to Connection.Start. Query expression construction (the
// fluent term algebra) is an external collaborator with a narrow contract
// here: construct a tree, then Build it. This package does not attempt to
// cover the full query language -- only what the connection engine and its
// tests need to exercise db/table selection, inserts, and changefeeds.
package term

import (
	"encoding/json"

	"reqldriver/internal/proto"
)

// Term represents a query expression node.
// termType == 0 means the term is a raw datum (string, number, bool, nil).
type Term struct {
	termType proto.TermType
	datum    interface{}
	args     []Term
	opts     map[string]interface{}
}

// Datum wraps a raw Go value as a term.
func Datum(v interface{}) Term {
	return Term{datum: v}
}

// toTerm converts v to a Term: passes through existing Terms, wraps others in Datum.
func toTerm(v interface{}) Term {
	if t, ok := v.(Term); ok {
		return t
	}
	return Datum(v)
}

// Array creates a MAKE_ARRAY term ([2, [items...]]).
func Array(items ...interface{}) Term {
	args := make([]Term, len(items))
	for i, item := range items {
		args[i] = toTerm(item)
	}
	return Term{termType: proto.TermMakeArray, args: args}
}

// DB creates a DB term ([14, [name]]).
func DB(name string) Term {
	return Term{termType: proto.TermDB, args: []Term{Datum(name)}}
}

// DBCreate creates a DB_CREATE term ([57, [name]]).
func DBCreate(name string) Term {
	return Term{termType: proto.TermDBCreate, args: []Term{Datum(name)}}
}

// OptArgs is a map of optional arguments passed as the last element to terms like TableCreate.
type OptArgs map[string]interface{}

// TableCreate creates a TABLE_CREATE term ([60, [db, name]], opts?) chained on a DB term.
func (t Term) TableCreate(name string, opts ...OptArgs) Term {
	term := Term{termType: proto.TermTableCreate, args: []Term{t, Datum(name)}}
	if len(opts) > 0 {
		term.opts = opts[0]
	}
	return term
}

// Table creates a TABLE term chained on a DB term ([15, [db, name]]).
func (t Term) Table(name string) Term {
	return Term{termType: proto.TermTable, args: []Term{t, Datum(name)}}
}

// Insert creates an INSERT term ([56, [table, doc]], opts?).
func (t Term) Insert(doc interface{}, opts ...OptArgs) Term {
	term := Term{termType: proto.TermInsert, args: []Term{t, toTerm(doc)}}
	if len(opts) > 0 {
		term.opts = opts[0]
	}
	return term
}

// And creates an AND term ([67, [term, other]]).
func (t Term) And(other Term) Term {
	return Term{termType: proto.TermAnd, args: []Term{t, other}}
}

// Changes creates a CHANGES term ([152, [term]], opts?).
// Optional OptArgs can specify options like {"include_initial": true}.
func (t Term) Changes(opts ...OptArgs) Term {
	term := Term{termType: proto.TermChanges, args: []Term{t}}
	if len(opts) > 0 {
		term.opts = opts[0]
	}
	return term
}

// Now creates a NOW term ([103, []]).
func Now() Term {
	return Term{termType: proto.TermNow}
}

// MarshalJSON serializes the term to the driver's wire format.
// Datum terms serialize as their raw value; compound terms as [type, [args...], opts?].
func (t Term) MarshalJSON() ([]byte, error) {
	if t.termType == 0 {
		return json.Marshal(t.datum)
	}
	args := t.args
	if args == nil {
		args = []Term{}
	}
	parts := []interface{}{int(t.termType), args}
	if len(t.opts) > 0 {
		parts = append(parts, t.opts)
	}
	return json.Marshal(parts)
}

// Build returns a JSON-serializable representation of the term tree. This
// is the narrow contract the connection engine relies on when encoding a
// START query: it never inspects term internals, only calls Build (or,
// transitively, MarshalJSON) on the result.
func (t Term) Build() (interface{}, error) {
	return t, nil
}
