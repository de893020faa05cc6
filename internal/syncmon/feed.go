package syncmon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// feedFrame is the wire format of the remote state feed.
type feedFrame struct {
	Type    string `json:"type"`              // "state"
	State   string `json:"state,omitempty"`   // disconnected, syncing, connected, error
	Message string `json:"message,omitempty"` // human-readable, set on error
}

// triggerFrame requests a replication cycle from the remote service.
type triggerFrame struct {
	Type string `json:"type"` // "sync"
}

// FeedConfig configures the remote state-feed connection.
type FeedConfig struct {
	// URL is the websocket endpoint of the replication service.
	URL string
	// AuthToken, when non-empty, is sent as a bearer token.
	AuthToken string
	// ReconnectDelay is the base backoff between reconnect attempts.
	// Zero means one second; the delay doubles up to 30s.
	ReconnectDelay time.Duration

	Logger *slog.Logger
}

// Feed maintains the websocket connection to the replication
// service's state feed and forwards transitions into a Monitor.
type Feed struct {
	cfg     FeedConfig
	monitor *Monitor
	logger  *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	cancel context.CancelFunc
	done   chan struct{}
}

// NewFeed wires a feed to the monitor. Call Start to connect; the
// feed also serves as the monitor's Trigger.
func NewFeed(cfg FeedConfig, monitor *Monitor) *Feed {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		cfg:     cfg,
		monitor: monitor,
		logger:  logger.With("component", "syncfeed"),
	}
}

// Start launches the read loop. It returns immediately; connection
// failures show up as disconnected state and are retried with
// backoff until Stop.
func (f *Feed) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)
	f.done = make(chan struct{})
	go f.run(ctx)
}

// Stop tears the connection down and waits for the read loop to exit.
func (f *Feed) Stop() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
}

// TriggerSync sends a fire-and-forget sync request frame. Completion
// or failure of the cycle itself arrives through the state feed.
func (f *Feed) TriggerSync(ctx context.Context) error {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("sync feed not connected")
	}

	data, err := json.Marshal(triggerFrame{Type: "sync"})
	if err != nil {
		return fmt.Errorf("failed to marshal sync request: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send sync request: %w", err)
	}
	return nil
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)

	delay := f.cfg.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	backoff := delay

	for {
		if ctx.Err() != nil {
			return
		}

		dialed, err := f.readOnce(ctx)
		if err != nil && ctx.Err() == nil {
			f.logger.Debug("state feed disconnected", "error", err)
			f.monitor.Apply(StateDisconnected, "")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, delay, dialed)
	}
}

// nextBackoff doubles the reconnect delay up to 30s while dials keep
// failing and resets to the base after any session that connected.
func nextBackoff(current, base time.Duration, dialed bool) time.Duration {
	if dialed {
		return base
	}
	if current < 30*time.Second {
		current *= 2
		if current > 30*time.Second {
			current = 30 * time.Second
		}
	}
	return current
}

// readOnce dials the feed and pumps frames until the connection
// drops or ctx is cancelled. The first return reports whether the
// dial itself succeeded.
func (f *Feed) readOnce(ctx context.Context) (bool, error) {
	opts := &websocket.DialOptions{}
	if f.cfg.AuthToken != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + f.cfg.AuthToken}}
	}

	conn, _, err := websocket.Dial(ctx, f.cfg.URL, opts)
	if err != nil {
		return false, fmt.Errorf("failed to dial state feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return true, err
		}

		var frame feedFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			f.logger.Warn("malformed feed frame", "error", err)
			continue
		}
		if frame.Type != "state" {
			continue
		}

		switch State(frame.State) {
		case StateDisconnected, StateSyncing, StateConnected, StateError:
			f.monitor.Apply(State(frame.State), frame.Message)
		default:
			f.logger.Warn("unknown feed state", "state", frame.State)
		}
	}
}
