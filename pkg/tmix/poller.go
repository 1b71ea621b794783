package tmix

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	defaultQueryTimeout = 2 * time.Second
)

// RecordObserver gets a copy of every record the poller produces. Observe must not block
type RecordObserver interface {
	Observe(record Record)
}

// PollerOptions controls the poll cadence
type PollerOptions struct {
	Interval time.Duration

	// QueryTimeout bounds one round of queries, 0 waits for as long as the server takes
	QueryTimeout time.Duration
}

// Poller repeatedly queries the audio server and pushes every record through a RecordChannel.
// It owns its Connection from the moment Run is called and shuts it down when Run returns
type Poller struct {
	logger *zap.SugaredLogger

	conn        *Connection
	coordinator *QueryCoordinator
	out         *RecordChannel
	observers   []RecordObserver

	interval        time.Duration
	queryTimeout    time.Duration
	intervalChanges chan time.Duration

	// the round that timed out last cycle, awaited again instead of issuing a new one
	pending *PendingQuery
}

// NewPoller creates a poller over an already connected conn
func NewPoller(logger *zap.SugaredLogger, conn *Connection, out *RecordChannel, opts PollerOptions) *Poller {
	logger = logger.Named("poller")

	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}

	if opts.QueryTimeout < 0 {
		opts.QueryTimeout = 0
	}

	p := &Poller{
		logger:          logger,
		conn:            conn,
		coordinator:     NewQueryCoordinator(logger, conn),
		out:             out,
		interval:        opts.Interval,
		queryTimeout:    opts.QueryTimeout,
		intervalChanges: make(chan time.Duration, 1),
	}

	logger.Debug("Created poller instance")

	return p
}

// AddObserver registers an observer. Only call this before Run
func (p *Poller) AddObserver(observer RecordObserver) {
	p.observers = append(p.observers, observer)
}

// SetInterval changes the poll cadence of a running poller
func (p *Poller) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}

	select {
	case p.intervalChanges <- interval:
	default:
		// a change is already pending, replace it
		select {
		case <-p.intervalChanges:
		default:
		}
		p.intervalChanges <- interval
	}
}

// Run polls until ctx is done, the consumer closes the channel, or the connection fails.
// Only a connection failure is returned as an error
func (p *Poller) Run(ctx context.Context) error {
	defer p.conn.Shutdown()

	p.logger.Infow("Poll loop starting", "interval", p.interval, "queryTimeout", p.queryTimeout)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.poll(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Debug("Poll loop cancelled")
				return nil
			}

			if errors.Is(err, ErrChannelClosed) {
				p.logger.Info("Record consumer went away, stopping poll loop")
				return nil
			}

			var connErr *ConnectionError
			if errors.As(err, &connErr) {
				p.logger.Warnw("Lost audio server connection, stopping poll loop", "error", err)
				return err
			}

			// most likely a query timeout. try again next cycle
			p.logger.Warnw("Poll cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Debug("Poll loop cancelled")
			return nil
		case interval := <-p.intervalChanges:
			p.logger.Infow("Changing poll interval", "from", p.interval, "to", interval)
			p.interval = interval
			ticker.Reset(interval)
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	queryCtx := ctx
	if p.queryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, p.queryTimeout)
		defer cancel()
	}

	if p.pending == nil {
		p.pending = p.coordinator.Issue()
	} else {
		p.logger.Debug("Previous query round still outstanding, waiting on it again")
	}

	result, err := p.coordinator.Collect(queryCtx, p.pending)
	if err != nil {
		// only a timed out round is worth waiting on again
		if queryCtx.Err() == nil || ctx.Err() != nil {
			p.pending = nil
		}
		return err
	}
	p.pending = nil

	for _, sink := range result.Sinks {
		if err := p.publish(ctx, sink); err != nil {
			return err
		}
	}

	for _, input := range result.Inputs {
		if err := p.publish(ctx, input); err != nil {
			return err
		}
	}

	return nil
}

func (p *Poller) publish(ctx context.Context, record Record) error {
	for _, observer := range p.observers {
		observer.Observe(record)
	}

	return p.out.Send(ctx, record)
}
