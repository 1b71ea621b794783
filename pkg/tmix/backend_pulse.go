package tmix

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/jfreymuth/pulse/proto"
	"go.uber.org/zap"
)

type pulseBackend struct {
	logger *zap.SugaredLogger

	mu     sync.Mutex
	client *proto.Client
	conn   net.Conn
}

func newPulseBackend(logger *zap.SugaredLogger) *pulseBackend {
	return &pulseBackend{
		logger: logger.Named("pulse"),
	}
}

func (b *pulseBackend) Dial(server string, appName string) error {
	client, conn, err := proto.Connect(server)
	if err != nil {
		b.logger.Warnw("Failed to establish PulseAudio connection", "server", server, "error", err)
		return fmt.Errorf("establish PulseAudio connection: %w", err)
	}

	request := proto.SetClientName{
		Props: proto.PropList{
			"application.name": proto.PropListString(appName),
		},
	}
	reply := proto.SetClientNameReply{}

	if err := client.Request(&request, &reply); err != nil {
		b.logger.Warnw("Failed to set client name", "error", err)
		conn.Close()
		return fmt.Errorf("set client name: %w", err)
	}

	b.mu.Lock()
	b.client = client
	b.conn = conn
	b.mu.Unlock()

	b.logger.Debugw("Connected to PulseAudio", "server", server, "appName", appName)

	return nil
}

func (b *pulseBackend) ListSinks() ([]SinkRecord, error) {
	client, err := b.currentClient()
	if err != nil {
		return nil, err
	}

	request := proto.GetSinkInfoList{}
	reply := proto.GetSinkInfoListReply{}

	if err := client.Request(&request, &reply); err != nil {
		return nil, b.wrapRequestError("get sink list", err)
	}

	sinks := make([]SinkRecord, 0, len(reply))
	for _, info := range reply {
		if info == nil {
			continue
		}

		sinks = append(sinks, sinkRecordFromReply(info))
	}

	return sinks, nil
}

func (b *pulseBackend) ListSinkInputs() ([]SinkInputRecord, error) {
	client, err := b.currentClient()
	if err != nil {
		return nil, err
	}

	request := proto.GetSinkInputInfoList{}
	reply := proto.GetSinkInputInfoListReply{}

	if err := client.Request(&request, &reply); err != nil {
		return nil, b.wrapRequestError("get sink input list", err)
	}

	inputs := make([]SinkInputRecord, 0, len(reply))
	for _, info := range reply {
		if info == nil {
			continue
		}

		inputs = append(inputs, sinkInputRecordFromReply(info))
	}

	return inputs, nil
}

func (b *pulseBackend) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.client = nil
	b.mu.Unlock()

	if conn == nil {
		return nil
	}

	if err := conn.Close(); err != nil {
		b.logger.Warnw("Failed to close PulseAudio connection", "error", err)
		return fmt.Errorf("close PulseAudio connection: %w", err)
	}

	b.logger.Debug("Closed PulseAudio connection")

	return nil
}

func (b *pulseBackend) currentClient() (*proto.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return nil, ErrConnectionLost
	}

	return b.client, nil
}

// socket-level failures mean the connection is gone for good, anything else is the server
// refusing this one request
func (b *pulseBackend) wrapRequestError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("%s: %w (%s)", what, ErrConnectionLost, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w (%s)", what, ErrConnectionLost, err)
	}

	return fmt.Errorf("%s: %w", what, err)
}
