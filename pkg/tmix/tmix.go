// Package tmix provides a terminal volume mixer that polls a PulseAudio server for its
// sinks and the streams playing into them, and hands point-in-time snapshots to a renderer
package tmix

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stalexteam/tmix/pkg/tmix/util"
)

const (
	// how long Stop waits for the poll loop to notice it's been cancelled
	pollerStopTimeout = 2 * time.Second
)

// Tmix is the main entity managing access to all sub-components
type Tmix struct {
	logger   *zap.SugaredLogger
	notifier Notifier
	config   *CanonicalConfig

	conn    *Connection
	channel *RecordChannel
	cache   *Cache
	poller  *Poller
	relay   *RelayServer

	cancelPoller context.CancelFunc
	pollerDone   chan struct{}
	pollerErr    error // written before pollerDone closes, read only after
	stopTimeout  time.Duration

	stopChannel chan struct{}
	stopping    sync.Once
	stopped     sync.Once

	version string
	verbose bool
}

// NewTmix creates a Tmix instance
func NewTmix(logger *zap.SugaredLogger, verbose bool) (*Tmix, error) {
	logger = logger.Named("tmix")

	config, err := NewConfig(logger)
	if err != nil {
		logger.Errorw("Failed to create Config", "error", err)
		return nil, fmt.Errorf("create new Config: %w", err)
	}

	notifier, err := NewToastNotifier(logger, config.NotificationsEnabled)
	if err != nil {
		logger.Errorw("Failed to create ToastNotifier", "error", err)
		return nil, fmt.Errorf("create new ToastNotifier: %w", err)
	}
	config.notifier = notifier

	t := &Tmix{
		logger:      logger,
		notifier:    notifier,
		config:      config,
		relay:       NewRelayServer(logger),
		pollerDone:  make(chan struct{}),
		stopTimeout: pollerStopTimeout,
		stopChannel: make(chan struct{}),
		verbose:     verbose,
	}

	logger.Debug("Created tmix instance")

	return t, nil
}

// Config returns the configuration, so callers can point it at a file or bind flags before Initialize
func (t *Tmix) Config() *CanonicalConfig {
	return t.config
}

// SetVersion records the version string reported in logs
func (t *Tmix) SetVersion(version string) {
	t.version = version
}

// Verbose returns a boolean indicating whether tmix is running in verbose mode
func (t *Tmix) Verbose() bool {
	return t.verbose
}

// Initialize loads the config and connects to the audio server. A connection failure here
// aborts startup: it's returned as a *ConnectionError after notifying the user
func (t *Tmix) Initialize(ctx context.Context) error {
	t.logger.Debugw("Initializing", "version", t.version)

	if err := t.config.Load(); err != nil {
		t.logger.Errorw("Failed to load config during initialization", "error", err)
		return fmt.Errorf("load config during init: %w", err)
	}

	values := t.config.Values()

	t.conn = NewConnection(t.logger, ConnectionOptions{
		Server:          values.Server,
		ApplicationName: values.ApplicationName,
		StepWait:        values.StepWait,
	})

	if err := t.conn.Connect(ctx); err != nil {
		t.conn.Shutdown()

		t.logger.Errorw("Failed to connect to audio server", "error", err)
		t.notifier.Notify("Can't connect to the audio server!", "Make sure PulseAudio (or pipewire-pulse) is running.")

		return fmt.Errorf("connect to audio server: %w", err)
	}

	t.channel = NewRecordChannel(values.ChannelCapacity)
	t.cache = NewCache(t.logger, t.channel, values.UpdateWait)
	t.poller = NewPoller(t.logger, t.conn, t.channel, PollerOptions{
		Interval:     values.PollInterval,
		QueryTimeout: values.QueryTimeout,
	})
	t.poller.AddObserver(t.relay)

	return nil
}

// Cache returns the render-side view of the polled data. It's only valid after Initialize,
// and must only be used from a single goroutine
func (t *Tmix) Cache() *Cache {
	return t.cache
}

// Start runs the poll loop and the supporting components in the background
func (t *Tmix) Start() error {
	t.logger.Info("Starting")

	values := t.config.Values()

	if err := t.relay.Start(values.RelayPort); err != nil {
		t.logger.Warnw("Failed to start relay server", "error", err)
		return fmt.Errorf("start relay server: %w", err)
	}

	// watch the config file for changes
	go t.config.WatchConfigFileChanges()
	t.setupOnConfigReload()

	t.setupInterruptHandler()

	ctx, cancel := context.WithCancel(context.Background())
	t.cancelPoller = cancel

	// the poller owns the connection from here on
	go func() {
		defer close(t.pollerDone)

		if err := t.poller.Run(ctx); err != nil {
			t.pollerErr = err
			t.notifier.Notify("Lost connection to the audio server!", "tmix will now exit.")
		}

		t.signalStop()
	}()

	return nil
}

// Done is closed once tmix should shut down: on interrupt, or when the poll loop ends
func (t *Tmix) Done() <-chan struct{} {
	return t.stopChannel
}

// Err returns the error that ended the poll loop, if any. It's nil while the loop is still running
func (t *Tmix) Err() error {
	select {
	case <-t.pollerDone:
		return t.pollerErr
	default:
		return nil
	}
}

// Stop shuts every component down. It's safe to call more than once
func (t *Tmix) Stop() error {
	t.stopped.Do(func() {
		t.logger.Info("Stopping")

		t.signalStop()

		if t.cache != nil {
			t.cache.Close()
		}

		if t.cancelPoller != nil {
			t.cancelPoller()

			select {
			case <-t.pollerDone:
				t.logger.Debug("Poll loop stopped")
			case <-time.After(t.stopTimeout):
				t.logger.Warn("Poll loop did not stop within timeout, proceeding anyway")
			}
		} else if t.conn != nil {
			// initialized but never started, so the connection is still ours
			t.conn.Shutdown()
		}

		t.relay.Stop()
		t.config.StopWatchingConfigFile()

		// attempt to sync on exit - this won't necessarily work but can't harm
		t.logger.Sync()
	})

	return t.Err()
}

func (t *Tmix) signalStop() {
	t.stopping.Do(func() {
		t.logger.Debug("Signalling stop channel")
		close(t.stopChannel)
	})
}

func (t *Tmix) setupInterruptHandler() {
	interruptChannel := util.SetupCloseHandler()
	dumpChannel := util.SetupDumpHandler()

	go func() {
		for {
			select {
			case signal := <-interruptChannel:
				t.logger.Debugw("Interrupted", "signal", signal)
				t.signalStop()
				return
			case <-dumpChannel:
				if t.verbose {
					util.DumpAllGoroutines(t.logger)
				}
			case <-t.stopChannel:
				return
			}
		}
	}()
}

func (t *Tmix) setupOnConfigReload() {
	configReloadedChannel := t.config.SubscribeToChanges()

	go func() {
		for {
			if _, ok := <-configReloadedChannel; !ok {
				t.logger.Debug("Config reload channel closed, exiting handler")
				return
			}

			values := t.config.Values()
			t.logger.Info("Detected config reload, applying poll interval")
			t.poller.SetInterval(values.PollInterval)
		}
	}()
}

// TakeSnapshot connects, runs a single round of queries and disconnects
func TakeSnapshot(ctx context.Context, logger *zap.SugaredLogger, opts ConnectionOptions) (Snapshot, error) {
	conn := NewConnection(logger, opts)
	defer conn.Shutdown()

	if err := conn.Connect(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("connect to audio server: %w", err)
	}

	result, err := NewQueryCoordinator(logger, conn).Query(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query audio server: %w", err)
	}

	return BuildSnapshot(result.Sinks, result.Inputs), nil
}
