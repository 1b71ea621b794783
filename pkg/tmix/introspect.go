package tmix

import (
	"errors"
)

// ListEvent tells a list callback what kind of delivery it's looking at
type ListEvent int

const (
	ListItem ListEvent = iota
	ListEnd
	ListError
)

// ListResult is one callback delivery for a list query: an item, the end of the list,
// or the error that ended it
type ListResult[T any] struct {
	Event ListEvent
	Item  T
	Err   error
}

// Introspector issues read-only list queries against a Connection
type Introspector struct {
	conn *Connection
}

const (
	querySinks      = "sinks"
	querySinkInputs = "sink inputs"
)

// ListSinks requests every sink. cb runs during loop steps, once per sink in server order,
// then once with ListEnd (or once with ListError)
func (in *Introspector) ListSinks(cb func(ListResult[SinkRecord])) *Operation {
	return issueList(in.conn, querySinks, in.conn.backend.ListSinks, cb)
}

// ListSinkInputs requests every sink input, delivered the same way as ListSinks
func (in *Introspector) ListSinkInputs(cb func(ListResult[SinkInputRecord])) *Operation {
	return issueList(in.conn, querySinkInputs, in.conn.backend.ListSinkInputs, cb)
}

func issueList[T any](c *Connection, name string, fetch func() ([]T, error), cb func(ListResult[T])) *Operation {
	op := &Operation{name: name, state: OperationRunning}

	if c.state != ContextReady {
		c.logger.Debugw("Not issuing query on a connection that isn't ready", "query", name, "state", c.state)
		op.state = OperationCancelled
		return op
	}

	c.ops[op] = struct{}{}

	go func() {
		items, err := fetch()

		c.loop.post(func() {
			delete(c.ops, op)

			// cancelled while the request was in flight
			if op.state != OperationRunning {
				return
			}

			if err != nil {
				if errors.Is(err, ErrConnectionLost) {
					op.cancel()
					c.fail(err)
					return
				}

				cb(ListResult[T]{Event: ListError, Err: &QueryError{Query: name, Err: err}})
				op.finish()
				return
			}

			for _, item := range items {
				cb(ListResult[T]{Event: ListItem, Item: item})
			}

			cb(ListResult[T]{Event: ListEnd})
			op.finish()
		})
	}()

	return op
}

// ListRequest accumulates the results of one list query into a buffer it owns.
// The buffer is only filled during loop steps, and must only be read once State is terminal
type ListRequest[T any] struct {
	op    *Operation
	items []T
	err   error
}

// NewSinkListRequest issues a sink list query on conn
func NewSinkListRequest(conn *Connection) *ListRequest[SinkRecord] {
	r := &ListRequest[SinkRecord]{}
	r.op = conn.Introspect().ListSinks(r.collect)
	return r
}

// NewSinkInputListRequest issues a sink input list query on conn
func NewSinkInputListRequest(conn *Connection) *ListRequest[SinkInputRecord] {
	r := &ListRequest[SinkInputRecord]{}
	r.op = conn.Introspect().ListSinkInputs(r.collect)
	return r
}

func (r *ListRequest[T]) collect(res ListResult[T]) {
	switch res.Event {
	case ListItem:
		r.items = append(r.items, res.Item)
	case ListError:
		r.err = res.Err
	}
}

// State returns the state of the underlying operation
func (r *ListRequest[T]) State() OperationState {
	return r.op.State()
}

// Items returns everything delivered so far, in server order
func (r *ListRequest[T]) Items() []T {
	return r.items
}

// Err returns the *QueryError the server reported, if any
func (r *ListRequest[T]) Err() error {
	return r.err
}
