package tmix

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	eventsource "github.com/stalexteam/eventsource_go"
	"go.uber.org/zap"
)

// RelayServer publishes every level the poller sees as a server-sent event stream,
// so remote meters (e.g. an ESP32 mixer display) can follow along
type RelayServer struct {
	logger *zap.SugaredLogger
	server *http.Server

	stopChannel chan bool
	running     int32 // 1 = running, 0 = stopped

	manager *eventsource.ConnectionManager

	// event counter for the SSE id field
	eventID int64

	// latest state per event id, replayed to clients when they connect
	states     map[string]relayState
	statesLock sync.RWMutex
}

type relayState struct {
	ID    string  `json:"id"`
	Name  string  `json:"name,omitempty"`
	Value float32 `json:"value"`
	Muted bool    `json:"muted"`
}

const (
	relayRetryTimeout = 30000 // ms
	relayPingInterval = 10 * time.Second
	relayStopTimeout  = 5 * time.Second
)

// NewRelayServer creates a relay server. It doesn't listen until Start is called
func NewRelayServer(logger *zap.SugaredLogger) *RelayServer {
	logger = logger.Named("relay")

	manager := eventsource.NewConnectionManager()

	manager.SetOnConnect(func(encoder *eventsource.Encoder) {
		logger.Infow("New relay client connected",
			"remote", encoder.RemoteAddr(),
			"path", encoder.Path())
	})

	manager.SetOnDisconnect(func(encoder *eventsource.Encoder) {
		logger.Debugw("Relay client disconnected",
			"remote", encoder.RemoteAddr(),
			"path", encoder.Path())
	})

	srv := &RelayServer{
		logger:      logger,
		stopChannel: make(chan bool),
		manager:     manager,
		states:      make(map[string]relayState),
	}

	logger.Debug("Created relay server instance")

	return srv
}

// Start listens on port and serves the event stream on every path
func (srv *RelayServer) Start(port int) error {
	if port <= 0 {
		srv.logger.Debug("Relay port not configured, server will not start")
		return nil
	}

	if !atomic.CompareAndSwapInt32(&srv.running, 0, 1) {
		return fmt.Errorf("relay: already running")
	}

	handler := eventsource.HandlerV2(func(
		info *eventsource.ConnectionInfo,
		encoder *eventsource.Encoder,
		stop <-chan bool,
	) {
		if err := encoder.SetRetry(relayRetryTimeout); err != nil {
			srv.logger.Debugw("Error sending retry field", "error", err)
			return
		}

		// new clients get everything we know right away
		for _, state := range srv.knownStates() {
			if err := srv.encodeState(encoder, state); err != nil {
				if eventsource.IsConnectionError(err) {
					srv.logger.Debugw("Error sending state, connection closed", "error", err)
				} else {
					srv.logger.Debugw("Error sending state event", "error", err)
				}
				return
			}
		}

		select {
		case <-stop:
		case <-srv.stopChannel:
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/", eventsource.HandlerWithManager(srv.manager, handler).ServeHTTP)

	addr := fmt.Sprintf(":%d", port)
	srv.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		srv.logger.Infow("Starting relay server", "addr", addr)
		if err := srv.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srv.logger.Errorw("Relay server error", "error", err)
			if atomic.CompareAndSwapInt32(&srv.running, 1, 0) {
				close(srv.stopChannel)
			}
		}
	}()

	go srv.pingLoop()

	return nil
}

// Stop closes every client connection and shuts the HTTP server down
func (srv *RelayServer) Stop() {
	if !atomic.CompareAndSwapInt32(&srv.running, 1, 0) {
		return
	}

	srv.logger.Debug("Stopping relay server")
	close(srv.stopChannel)

	srv.manager.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), relayStopTimeout)
	defer cancel()

	if err := srv.server.Shutdown(ctx); err != nil {
		srv.logger.Warnw("Error during relay server shutdown", "error", err)
		srv.server.Close()
	}

	srv.logger.Info("Relay server stopped")
}

// Observe implements RecordObserver: it remembers the record's level and broadcasts it
func (srv *RelayServer) Observe(record Record) {
	state := relayStateFromRecord(record)

	srv.statesLock.Lock()
	previous, known := srv.states[state.ID]
	srv.states[state.ID] = state
	srv.statesLock.Unlock()

	// don't spam clients with identical states every poll
	if known && previous == state {
		return
	}

	if atomic.LoadInt32(&srv.running) == 0 {
		return
	}

	if err := srv.broadcast("state", state); err != nil {
		srv.logger.Debugw("Failed to broadcast state", "id", state.ID, "error", err)
	}
}

func relayStateFromRecord(record Record) relayState {
	switch r := record.(type) {
	case SinkRecord:
		return relayState{
			ID:    fmt.Sprintf("sink-%d", r.Index),
			Name:  r.DisplayName(),
			Value: roundedPercent(r.Volume),
			Muted: r.Muted,
		}
	case SinkInputRecord:
		return relayState{
			ID:    fmt.Sprintf("sink_input-%d", r.Index),
			Name:  r.Name,
			Value: roundedPercent(r.Volume),
			Muted: r.Muted,
		}
	}

	return relayState{ID: fmt.Sprintf("unknown-%d", record.RecordIndex())}
}

// whole percent, rounded the same way the meters and the text listing show it
func roundedPercent(volume ChannelVolumes) float32 {
	return float32(math.Round(float64(volume.Percent())))
}

func (srv *RelayServer) knownStates() []relayState {
	srv.statesLock.RLock()
	defer srv.statesLock.RUnlock()

	states := make([]relayState, 0, len(srv.states))
	for _, state := range srv.states {
		states = append(states, state)
	}

	return states
}

func (srv *RelayServer) encodeState(encoder *eventsource.Encoder, state relayState) error {
	event, err := srv.newEvent("state", state)
	if err != nil {
		return err
	}

	return encoder.Encode(event)
}

func (srv *RelayServer) broadcast(eventType string, payload interface{}) error {
	event, err := srv.newEvent(eventType, payload)
	if err != nil {
		return err
	}

	// the manager drops connections that fail on its own
	if err := srv.manager.Broadcast(event); err != nil && !eventsource.IsConnectionError(err) {
		return fmt.Errorf("broadcast %s event: %w", eventType, err)
	}

	return nil
}

func (srv *RelayServer) newEvent(eventType string, payload interface{}) (eventsource.Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return eventsource.Event{}, fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	return eventsource.Event{
		ID:   fmt.Sprintf("%d", atomic.AddInt64(&srv.eventID, 1)),
		Type: eventType,
		Data: data,
	}, nil
}

func (srv *RelayServer) pingLoop() {
	ticker := time.NewTicker(relayPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-srv.stopChannel:
			return
		case <-ticker.C:
			ping := map[string]interface{}{
				"title":   "tmix",
				"clients": srv.manager.Count(),
			}

			if err := srv.broadcast("ping", ping); err != nil {
				srv.logger.Debugw("Failed to broadcast ping", "error", err)
			}
		}
	}
}
