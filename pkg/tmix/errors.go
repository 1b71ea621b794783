package tmix

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelClosed is returned when sending to a RecordChannel whose consumer has gone away
	ErrChannelClosed = errors.New("record channel closed")

	// ErrConnectionLost is returned by the backend when the server socket went away mid-request
	ErrConnectionLost = errors.New("connection to audio server lost")

	errLoopQuit         = errors.New("mainloop quit")
	errAlreadyConnected = errors.New("connect called twice")
)

// ConnectionError is fatal to the Connection that produced it. The connection has to be
// shut down, and a fresh one may be created to retry
type ConnectionError struct {
	State ContextState
	Err   error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("audio server connection %s", e.State)
	}

	return fmt.Sprintf("audio server connection %s: %s", e.State, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError is reported when the server fails a single list query. It's never fatal
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %s", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
