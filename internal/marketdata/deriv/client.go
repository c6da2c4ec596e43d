// Package deriv maintains the WebSocket subscription to the Deriv tick feed
// and publishes every tick to the event bus. The client reconnects forever
// with jittered exponential backoff and resubscribes all symbols after each
// reconnect; candle alignment downstream does not depend on connection
// continuity.
package deriv

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quantpulse/internal/bus"
	"quantpulse/internal/model"
)

// Config controls the broker connection.
type Config struct {
	URL     string
	AppID   string
	Symbols []string

	ReconnectBaseDelay float64 // seconds
	ReconnectMaxDelay  float64 // seconds
	HeartbeatInterval  float64 // seconds
}

func (c *Config) defaults() {
	if c.URL == "" {
		c.URL = "wss://ws.derivws.com/websockets/v3"
	}
	if c.AppID == "" {
		c.AppID = "1089"
	}
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"R_100"}
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = 1.0
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = 60.0
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30.0
	}
}

// Stats is a snapshot of connection counters.
type Stats struct {
	TicksReceived     uint64  `json:"ticks_received"`
	ReconnectAttempts uint64  `json:"reconnect_attempts"`
	LastTickTime      float64 `json:"last_tick_time"`
	ConnectedSince    float64 `json:"connected_since"`
	Connected         bool    `json:"connected"`
}

// Client ingests ticks from the broker feed into the bus.
type Client struct {
	cfg Config
	bus *bus.Bus

	// OnReconnect is called once per successful (re)connection.
	OnReconnect func()

	mu    sync.Mutex
	stats Stats
}

// New creates a Client. Zero-valued Config fields take defaults.
func New(cfg Config, b *bus.Bus) *Client {
	cfg.defaults()
	return &Client{cfg: cfg, bus: b}
}

// Run connects and ingests until ctx is cancelled, reconnecting on any
// failure with jittered exponential backoff.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		err := c.runOnce(ctx, &attempt)
		if ctx.Err() != nil {
			log.Printf("[deriv] shutting down")
			return ctx.Err()
		}
		c.mu.Lock()
		c.stats.ReconnectAttempts++
		c.stats.Connected = false
		c.mu.Unlock()

		delay := backoffDelay(attempt, c.cfg.ReconnectBaseDelay, c.cfg.ReconnectMaxDelay)
		log.Printf("[deriv] connection lost (%v), reconnecting in %.1fs (attempt %d)", err, delay, attempt+1)
		attempt++

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(delay * float64(time.Second))):
		}
	}
}

func (c *Client) runOnce(ctx context.Context, attempt *int) error {
	url := c.cfg.URL + "?app_id=" + c.cfg.AppID
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[deriv] connected to %s", url)

	*attempt = 0
	c.mu.Lock()
	c.stats.Connected = true
	c.stats.ConnectedSince = float64(time.Now().Unix())
	c.mu.Unlock()
	if c.OnReconnect != nil {
		c.OnReconnect()
	}

	// Writes come from the subscribe loop and the heartbeat goroutine.
	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	for _, sym := range c.cfg.Symbols {
		if err := writeJSON(map[string]any{"ticks": sym, "subscribe": 1}); err != nil {
			return err
		}
		log.Printf("[deriv] subscribed to %s", sym)
	}

	// Close the connection when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		ticker := time.NewTicker(time.Duration(c.cfg.HeartbeatInterval * float64(time.Second)))
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := writeJSON(map[string]any{"ping": 1}); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleFrame(data)
	}
}

// frame is the subset of the broker envelope the pipeline cares about.
type frame struct {
	Tick *struct {
		Symbol string   `json:"symbol"`
		Epoch  float64  `json:"epoch"`
		Quote  float64  `json:"quote"`
		Bid    *float64 `json:"bid"`
		Ask    *float64 `json:"ask"`
	} `json:"tick"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	MsgType string `json:"msg_type"`
}

func (c *Client) handleFrame(data []byte) {
	t, err := parseTick(data)
	if err != nil {
		log.Printf("[deriv] unparseable frame: %v", err)
		return
	}
	if t == nil {
		return
	}
	c.mu.Lock()
	c.stats.TicksReceived++
	c.stats.LastTickTime = t.Epoch
	c.mu.Unlock()
	c.bus.Publish(bus.TopicTick, *t)
}

// parseTick extracts a tick from a broker frame. Returns (nil, nil) for
// non-tick frames such as pongs and subscription acks; broker error
// envelopes are logged and also yield (nil, nil).
func parseTick(data []byte) (*model.Tick, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Error != nil {
		log.Printf("[deriv] broker error %s: %s", f.Error.Code, f.Error.Message)
		return nil, nil
	}
	if f.Tick == nil {
		return nil, nil
	}
	if f.Tick.Symbol == "" {
		return nil, errors.New("tick frame without symbol")
	}
	return &model.Tick{
		Symbol: f.Tick.Symbol,
		Epoch:  f.Tick.Epoch,
		Quote:  f.Tick.Quote,
		Bid:    f.Tick.Bid,
		Ask:    f.Tick.Ask,
	}, nil
}

// backoffDelay returns base*2^attempt capped at max, plus up to 30% jitter.
func backoffDelay(attempt int, base, max float64) float64 {
	delay := base * math.Pow(2, float64(attempt))
	if delay > max {
		delay = max
	}
	return delay + rand.Float64()*0.3*delay
}

// Stats returns a snapshot of the connection counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
