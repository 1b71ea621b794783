package tmix

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeBackend serves canned lists. A non-nil gate makes every call wait until it's closed
type fakeBackend struct {
	mu sync.Mutex

	dialErr   error
	sinks     []SinkRecord
	inputs    []SinkInputRecord
	sinksErr  error
	inputsErr error

	gate chan struct{}

	dials      int
	closes     int
	sinkCalls  int
	inputCalls int
}

func (fb *fakeBackend) wait() {
	fb.mu.Lock()
	gate := fb.gate
	fb.mu.Unlock()

	if gate != nil {
		<-gate
	}
}

func (fb *fakeBackend) Dial(server string, appName string) error {
	fb.wait()

	fb.mu.Lock()
	defer fb.mu.Unlock()

	fb.dials++
	return fb.dialErr
}

func (fb *fakeBackend) ListSinks() ([]SinkRecord, error) {
	fb.mu.Lock()
	fb.sinkCalls++
	fb.mu.Unlock()

	fb.wait()

	fb.mu.Lock()
	defer fb.mu.Unlock()

	if fb.sinksErr != nil {
		return nil, fb.sinksErr
	}
	return append([]SinkRecord(nil), fb.sinks...), nil
}

func (fb *fakeBackend) ListSinkInputs() ([]SinkInputRecord, error) {
	fb.mu.Lock()
	fb.inputCalls++
	fb.mu.Unlock()

	fb.wait()

	fb.mu.Lock()
	defer fb.mu.Unlock()

	if fb.inputsErr != nil {
		return nil, fb.inputsErr
	}
	return append([]SinkInputRecord(nil), fb.inputs...), nil
}

func (fb *fakeBackend) Close() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	fb.closes++
	return nil
}

func (fb *fakeBackend) closeCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	return fb.closes
}

func (fb *fakeBackend) listCalls() (int, int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	return fb.sinkCalls, fb.inputCalls
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func newTestConnection(fb *fakeBackend) *Connection {
	return newConnection(testLogger(), ConnectionOptions{StepWait: time.Millisecond}, fb)
}

// connectedConnection returns a Ready connection over fb, failing the test otherwise
func connectedConnection(t *testing.T, fb *fakeBackend) *Connection {
	t.Helper()

	conn := newTestConnection(fb)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	return conn
}

// stepUntil iterates conn until op is no longer running
func stepUntil(t *testing.T, conn *Connection, op *Operation) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for op.State() == OperationRunning {
		if time.Now().After(deadline) {
			t.Fatalf("operation %s still running after 1s", op)
		}

		if err := conn.Iterate(); err != nil {
			return
		}
	}
}

func sink(index uint32, name string, percent int) SinkRecord {
	return SinkRecord{
		Index:  index,
		Name:   name,
		Volume: volumeAt(percent),
	}
}

func sinkInput(index uint32, sinkIndex uint32, percent int) SinkInputRecord {
	return SinkInputRecord{
		Index:  index,
		Sink:   sinkIndex,
		Volume: volumeAt(percent),
	}
}

func volumeAt(percent int) ChannelVolumes {
	v := Volume(uint64(VolumeNorm) * uint64(percent) / 100)
	return ChannelVolumes{Values: []Volume{v, v}, Map: []ChannelPosition{1, 2}}
}
