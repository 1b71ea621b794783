package tmix

import (
	"sync"
	"time"
)

// OperationState is the progress of one outstanding asynchronous request
type OperationState int

const (
	OperationRunning OperationState = iota
	OperationDone
	OperationCancelled
)

func (s OperationState) String() string {
	switch s {
	case OperationRunning:
		return "running"
	case OperationDone:
		return "done"
	case OperationCancelled:
		return "cancelled"
	}

	return "unknown"
}

// Terminal reports whether the operation will never change state again
func (s OperationState) Terminal() bool {
	return s == OperationDone || s == OperationCancelled
}

// Operation is a handle on one request issued against a Connection.
// Its state only changes inside a mainloop step, so it's only meant to be read
// from the goroutine that steps the loop
type Operation struct {
	name  string
	state OperationState

	onCancel func()
}

// State returns the current state without blocking
func (op *Operation) State() OperationState {
	return op.state
}

func (op *Operation) String() string {
	return "<operation " + op.name + ": " + op.state.String() + ">"
}

func (op *Operation) finish() {
	if op.state == OperationRunning {
		op.state = OperationDone
	}
}

func (op *Operation) cancel() {
	if op.state != OperationRunning {
		return
	}

	op.state = OperationCancelled

	if op.onCancel != nil {
		op.onCancel()
	}
}

// mainloop serializes every request completion onto the goroutine that steps it.
// Workers post closures, iterate runs them. Nothing posted ever runs concurrently
// with another posted closure or with the stepping goroutine's own code
type mainloop struct {
	pending chan func()

	quitChannel chan struct{}
	quitOnce    sync.Once

	// longest time a single step waits for the first completion
	stepWait time.Duration
}

const (
	defaultStepWait       = 10 * time.Millisecond
	mainloopQueueCapacity = 64
)

func newMainloop(stepWait time.Duration) *mainloop {
	if stepWait <= 0 {
		stepWait = defaultStepWait
	}

	return &mainloop{
		pending:     make(chan func(), mainloopQueueCapacity),
		quitChannel: make(chan struct{}),
		stepWait:    stepWait,
	}
}

// post queues f to run during a later step. It returns false if the loop has quit,
// in which case f will never run
func (ml *mainloop) post(f func()) bool {
	select {
	case <-ml.quitChannel:
		return false
	default:
	}

	select {
	case ml.pending <- f:
		return true
	case <-ml.quitChannel:
		return false
	}
}

// iterate performs one step: it waits up to stepWait for a completion, then runs it and
// every other completion that's already queued. It returns the number of closures it ran
func (ml *mainloop) iterate() (int, error) {
	if ml.quitted() {
		return 0, errLoopQuit
	}

	timer := time.NewTimer(ml.stepWait)
	defer timer.Stop()

	dispatched := 0

	select {
	case f := <-ml.pending:
		f()
		dispatched++
	case <-timer.C:
		return 0, nil
	case <-ml.quitChannel:
		return 0, errLoopQuit
	}

	for {
		select {
		case f := <-ml.pending:
			f()
			dispatched++
		default:
			return dispatched, nil
		}
	}
}

func (ml *mainloop) quit() {
	ml.quitOnce.Do(func() {
		close(ml.quitChannel)
	})
}

func (ml *mainloop) quitted() bool {
	select {
	case <-ml.quitChannel:
		return true
	default:
		return false
	}
}
