package feed

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pool-status-backend/config"
)

// subscribeAll is the literal subscription request the feed expects. The feed
// has no per-facility filter; filtering happens client-side.
const subscribeAll = "all"

// Client maintains a best-effort continuous connection to the occupancy feed,
// decodes snapshots for one named facility and recovers from transient
// disconnection with a bounded number of retries.
type Client struct {
	cfg    config.FeedConfig
	dialer *websocket.Dialer

	mu             sync.Mutex
	conn           *websocket.Conn
	gen            int // connection generation; stale read loops are ignored
	status         Status
	attempts       int
	exhausted      bool
	snapshot       *Snapshot
	reconnectTimer *time.Timer
	heartbeatTimer *time.Timer
	observers      []func(Snapshot)
	closed         bool
}

// NewClient creates a feed client. Call Connect to start it.
func NewClient(cfg config.FeedConfig) *Client {
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		status: StatusDisconnected,
	}
}

// Subscribe registers an observer invoked on every accepted snapshot.
// Observers must be registered before Connect.
func (c *Client) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the current connection state and the latest snapshot.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Status:            c.status,
		ReconnectAttempts: c.attempts,
		RetryExhausted:    c.exhausted,
		Snapshot:          c.snapshot,
	}
}

// Connect opens a new connection, discarding any prior one, and sends the
// subscription request. The reconnect counter is reset only on first message
// receipt, not here: a connection that opens but never delivers data is not
// yet healthy.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("feed client is closed")
	}
	c.stopTimersLocked()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.gen++
	gen := c.gen
	c.status = StatusConnecting
	url := c.cfg.URL
	c.mu.Unlock()

	conn, _, err := c.dialer.Dial(url, nil)
	if err != nil {
		log.Printf("feed: dial %s failed: %v", url, err)
		c.handleFailure(gen)
		return err
	}

	c.mu.Lock()
	if c.closed || gen != c.gen {
		// Torn down or superseded while dialing.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.status = StatusConnected
	if err := conn.WriteMessage(websocket.TextMessage, []byte(subscribeAll)); err != nil {
		c.mu.Unlock()
		log.Printf("feed: subscription request failed: %v", err)
		c.handleFailure(gen)
		return err
	}
	c.scheduleHeartbeatLocked(gen)
	c.mu.Unlock()

	go c.readLoop(conn, gen)
	return nil
}

// Reconnect is the manual retry affordance used once automatic retries are
// exhausted. It resets the counter and dials again.
func (c *Client) Reconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("feed client is closed")
	}
	c.attempts = 0
	c.exhausted = false
	c.mu.Unlock()
	return c.Connect()
}

// Close tears the client down: it closes the active connection and cancels
// all pending timers. Safe to call from any state, and more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimersLocked()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.status = StatusDisconnected
}

// readLoop consumes frames serially until the connection fails. Each message
// is processed to completion before the next is read.
func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.closed || gen != c.gen
			c.mu.Unlock()
			if !stale {
				log.Printf("feed: connection lost: %v", err)
			}
			c.handleFailure(gen)
			return
		}
		c.handleMessage(raw, gen)
	}
}

// handleMessage decodes one feed frame. Malformed or unmatched payloads are
// dropped and the prior snapshot is retained.
func (c *Client) handleMessage(raw []byte, gen int) {
	snap, err := decodeSnapshot(raw, c.cfg.Facility, time.Now())
	if err != nil {
		log.Printf("feed: dropping message: %v", err)
		return
	}

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.snapshot = snap
	c.attempts = 0
	c.exhausted = false
	observers := make([]func(Snapshot), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(*snap)
	}
}

// handleFailure transitions to Disconnected and schedules a bounded retry.
// The attempt counter is incremented before the timer is armed, so concurrent
// failures cannot schedule past the cap.
func (c *Client) handleFailure(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		return
	}
	c.status = StatusDisconnected
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.heartbeatTimer != nil {
		c.heartbeatTimer.Stop()
		c.heartbeatTimer = nil
	}

	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.exhausted = true
		log.Printf("feed: retry cap of %d reached, waiting for manual reconnect", c.cfg.MaxReconnectAttempts)
		return
	}
	if c.reconnectTimer != nil {
		return
	}
	c.attempts++
	log.Printf("feed: reconnecting in %s (attempt %d/%d)", c.cfg.ReconnectDelay, c.attempts, c.cfg.MaxReconnectAttempts)
	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		c.Connect()
	})
}

// scheduleHeartbeatLocked arms the application-level heartbeat: while
// connected, the subscription request is re-sent at a fixed interval. The
// timer reschedules itself and is cancelled on disconnect and on Close.
func (c *Client) scheduleHeartbeatLocked(gen int) {
	c.heartbeatTimer = time.AfterFunc(c.cfg.HeartbeatInterval, func() {
		c.mu.Lock()
		if c.closed || gen != c.gen || c.status != StatusConnected || c.conn == nil {
			c.mu.Unlock()
			return
		}
		err := c.conn.WriteMessage(websocket.TextMessage, []byte(subscribeAll))
		if err == nil {
			c.scheduleHeartbeatLocked(gen)
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		log.Printf("feed: heartbeat failed: %v", err)
		c.handleFailure(gen)
	})
}

// stopTimersLocked cancels any pending reconnect and heartbeat timers.
func (c *Client) stopTimersLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.heartbeatTimer != nil {
		c.heartbeatTimer.Stop()
		c.heartbeatTimer = nil
	}
}
