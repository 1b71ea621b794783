package tmix

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ContextState is the state of the protocol context owned by a Connection
type ContextState int

const (
	ContextUnconnected ContextState = iota
	ContextConnecting
	ContextReady
	ContextFailed
	ContextTerminated
)

func (s ContextState) String() string {
	switch s {
	case ContextUnconnected:
		return "unconnected"
	case ContextConnecting:
		return "connecting"
	case ContextReady:
		return "ready"
	case ContextFailed:
		return "failed"
	case ContextTerminated:
		return "terminated"
	}

	return "unknown"
}

// ConnectionOptions controls how a Connection reaches the audio server
type ConnectionOptions struct {
	// Server is the PulseAudio server address, empty for the default local socket
	Server string

	// ApplicationName is announced to the server as application.name
	ApplicationName string

	// StepWait bounds how long a single loop step waits for a completion
	StepWait time.Duration
}

// Connection owns the mainloop and the protocol context. It must only be used from one
// goroutine at a time: that goroutine is the only one that steps the loop, and every
// request callback runs on it
type Connection struct {
	logger *zap.SugaredLogger
	opts   ConnectionOptions

	backend backend
	loop    *mainloop

	state   ContextState
	lastErr error

	ops      map[*Operation]struct{}
	shutdown bool
}

const defaultApplicationName = "tmix"

// NewConnection creates an unconnected Connection talking to PulseAudio
func NewConnection(logger *zap.SugaredLogger, opts ConnectionOptions) *Connection {
	return newConnection(logger, opts, newPulseBackend(logger))
}

func newConnection(logger *zap.SugaredLogger, opts ConnectionOptions, b backend) *Connection {
	logger = logger.Named("connection")

	if opts.ApplicationName == "" {
		opts.ApplicationName = defaultApplicationName
	}

	c := &Connection{
		logger:  logger,
		opts:    opts,
		backend: b,
		loop:    newMainloop(opts.StepWait),
		state:   ContextUnconnected,
		ops:     make(map[*Operation]struct{}),
	}

	logger.Debug("Created connection instance")

	return c
}

// Connect opens the context and steps the loop until it's ready or has failed.
// Each step waits at most StepWait, so ctx cancellation is noticed promptly
func (c *Connection) Connect(ctx context.Context) error {
	if c.state != ContextUnconnected {
		return &ConnectionError{State: c.state, Err: errAlreadyConnected}
	}

	c.logger.Debugw("Connecting to audio server", "server", c.opts.Server)
	c.setState(ContextConnecting)

	go func() {
		err := c.backend.Dial(c.opts.Server, c.opts.ApplicationName)

		posted := c.loop.post(func() {
			if c.state != ContextConnecting {

				// we gave up on this attempt while it was dialing
				if err == nil {
					c.backend.Close()
				}
				return
			}

			if err != nil {
				c.fail(err)
				return
			}

			c.setState(ContextReady)
		})

		if !posted && err == nil {
			c.backend.Close()
		}
	}()

	for {
		switch c.state {
		case ContextReady:
			c.logger.Infow("Connected to audio server", "server", c.opts.Server)
			return nil
		case ContextFailed, ContextTerminated:
			c.logger.Warnw("Failed to connect to audio server", "state", c.state, "error", c.lastErr)
			return &ConnectionError{State: c.state, Err: c.lastErr}
		}

		if err := ctx.Err(); err != nil {
			c.fail(err)
			continue
		}

		if _, err := c.loop.iterate(); err != nil {
			c.fail(err)
		}
	}
}

// State returns the current context state
func (c *Connection) State() ContextState {
	return c.state
}

// Iterate steps the loop once, running any request callbacks whose results have arrived.
// It returns a *ConnectionError once the context has failed or was shut down
func (c *Connection) Iterate() error {
	if c.state == ContextFailed || c.state == ContextTerminated {
		return &ConnectionError{State: c.state, Err: c.lastErr}
	}

	if _, err := c.loop.iterate(); err != nil {
		return &ConnectionError{State: c.state, Err: err}
	}

	if c.state == ContextFailed {
		return &ConnectionError{State: c.state, Err: c.lastErr}
	}

	return nil
}

// Introspect returns the read-only query interface of this connection
func (c *Connection) Introspect() *Introspector {
	return &Introspector{conn: c}
}

// Shutdown cancels outstanding requests, disconnects and stops the loop.
// Calling it more than once does nothing
func (c *Connection) Shutdown() {
	if c.shutdown {
		return
	}
	c.shutdown = true

	c.logger.Debug("Shutting down connection")

	c.cancelAll()

	if err := c.backend.Close(); err != nil {
		c.logger.Warnw("Failed to close audio server connection", "error", err)
	}

	c.loop.quit()
	c.setState(ContextTerminated)
}

func (c *Connection) fail(err error) {
	if c.state == ContextFailed || c.state == ContextTerminated {
		return
	}

	c.lastErr = err
	c.setState(ContextFailed)
	c.cancelAll()
}

func (c *Connection) cancelAll() {
	for op := range c.ops {
		op.cancel()
		delete(c.ops, op)
	}
}

func (c *Connection) setState(state ContextState) {
	if c.state == state {
		return
	}

	c.logger.Debugw("Context state changed", "from", c.state, "to", state)
	c.state = state
}
