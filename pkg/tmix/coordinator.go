package tmix

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Stepper advances an event loop by one bounded step
type Stepper interface {
	Iterate() error
}

// Pollable is anything whose progress can be checked without blocking
type Pollable interface {
	State() OperationState
}

// QueryResult is what one round of queries produced. Errors holds the non-fatal
// *QueryError values reported by the server along the way
type QueryResult struct {
	Sinks  []SinkRecord
	Inputs []SinkInputRecord
	Errors []error
}

// QueryCoordinator turns asynchronous list queries into a blocking call
type QueryCoordinator struct {
	logger *zap.SugaredLogger

	conn *Connection
	loop Stepper
}

// NewQueryCoordinator creates a coordinator issuing its queries on conn
func NewQueryCoordinator(logger *zap.SugaredLogger, conn *Connection) *QueryCoordinator {
	logger = logger.Named("coordinator")

	qc := &QueryCoordinator{
		logger: logger,
		conn:   conn,
		loop:   conn,
	}

	logger.Debug("Created query coordinator instance")

	return qc
}

// AwaitAll steps the loop until every request is done or cancelled, however many there are.
// It only returns early when the loop fails or ctx is done
func (qc *QueryCoordinator) AwaitAll(ctx context.Context, requests ...Pollable) error {
	steps := 0

	for {
		if allTerminal(requests) {
			return nil
		}

		if err := ctx.Err(); err != nil {
			qc.logger.Debugw("Gave up waiting on requests", "steps", steps, "error", err)
			return fmt.Errorf("await requests: %w", err)
		}

		if err := qc.loop.Iterate(); err != nil {
			return err
		}

		steps++
	}
}

// PendingQuery is one round of sink and sink input queries. It may outlive a single wait
type PendingQuery struct {
	sinks  *ListRequest[SinkRecord]
	inputs *ListRequest[SinkInputRecord]
}

// Issue starts listing sinks and sink inputs concurrently without waiting for either
func (qc *QueryCoordinator) Issue() *PendingQuery {
	return &PendingQuery{
		sinks:  NewSinkListRequest(qc.conn),
		inputs: NewSinkInputListRequest(qc.conn),
	}
}

// Collect waits for both queries of pending. If ctx ends first, pending is left running and
// can be collected again later. Cancelled queries leave their part of the result empty
func (qc *QueryCoordinator) Collect(ctx context.Context, pending *PendingQuery) (QueryResult, error) {
	if err := qc.AwaitAll(ctx, pending.sinks, pending.inputs); err != nil {
		return QueryResult{}, err
	}

	// a lost socket cancels everything in flight, which AwaitAll happily accepts
	if state := qc.conn.State(); state != ContextReady {
		return QueryResult{}, &ConnectionError{State: state, Err: qc.conn.lastErr}
	}

	result := QueryResult{
		Sinks:  pending.sinks.Items(),
		Inputs: pending.inputs.Items(),
	}

	for _, err := range []error{pending.sinks.Err(), pending.inputs.Err()} {
		if err != nil {
			qc.logger.Warnw("Audio server failed a query", "error", err)
			result.Errors = append(result.Errors, err)
		}
	}

	return result, nil
}

// Query lists sinks and sink inputs concurrently and waits for both
func (qc *QueryCoordinator) Query(ctx context.Context) (QueryResult, error) {
	return qc.Collect(ctx, qc.Issue())
}

func allTerminal(requests []Pollable) bool {
	for _, r := range requests {
		if !r.State().Terminal() {
			return false
		}
	}

	return true
}
