// cmd/tickserver - demo WebSocket tick server.
// Speaks enough of the Deriv tick protocol to run the engine without real
// broker connectivity: clients subscribe per symbol and receive tick frames,
// pings are answered with pongs, unknown symbols get an error envelope.
//
// Frame shapes match the live feed:
//
//	{"tick":{"symbol":"R_100","epoch":1700000000.123,"quote":623.45,"bid":623.40,"ask":623.50},"msg_type":"tick"}
//
// Config (env vars):
//
//	TICK_SERVER_ADDR  - listen address  (default: ":9001")
//	TICK_SYMBOLS      - comma-separated symbols (default: "R_100,R_50")
//	TICK_INTERVAL_MS  - tick interval milliseconds (default: "500")
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// tickFrame mirrors the broker tick envelope.
type tickFrame struct {
	Tick    tickBody `json:"tick"`
	MsgType string   `json:"msg_type"`
}

type tickBody struct {
	Symbol string  `json:"symbol"`
	Epoch  float64 `json:"epoch"`
	Quote  float64 `json:"quote"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

type errorFrame struct {
	Error   errorBody `json:"error"`
	MsgType string    `json:"msg_type"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// client holds one connection and its subscription set.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu   sync.Mutex
	subs map[string]bool
}

func (c *client) subscribed(symbol string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[symbol]
}

func (c *client) subscribe(symbol string) {
	c.mu.Lock()
	c.subs[symbol] = true
	c.mu.Unlock()
}

type hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
}

func newHub() *hub {
	return &hub{clients: make(map[*client]bool)}
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// broadcast sends a tick frame to every client subscribed to its symbol.
func (h *hub) broadcast(symbol string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.subscribed(symbol) {
			continue
		}
		select {
		case c.send <- msg:
		default: // slow client, drop tick
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func wsHandler(h *hub, known map[string]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[tickserver] upgrade error: %v", err)
			return
		}
		log.Printf("[tickserver] client connected: %s", r.RemoteAddr)

		c := &client{conn: conn, send: make(chan []byte, 256), subs: make(map[string]bool)}
		h.register(c)

		// Write pump.
		go func() {
			for msg := range c.send {
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		defer func() {
			h.unregister(c)
			conn.Close()
			log.Printf("[tickserver] client disconnected: %s", r.RemoteAddr)
		}()

		// Read pump: subscriptions and pings.
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req struct {
				Ticks     string `json:"ticks"`
				Subscribe int    `json:"subscribe"`
				Ping      int    `json:"ping"`
			}
			if err := json.Unmarshal(data, &req); err != nil {
				continue
			}
			switch {
			case req.Ping == 1:
				c.send <- []byte(`{"msg_type":"ping","ping":"pong"}`)
			case req.Ticks != "":
				if !known[req.Ticks] {
					msg, _ := json.Marshal(errorFrame{
						Error:   errorBody{Code: "InvalidSymbol", Message: "Symbol " + req.Ticks + " invalid."},
						MsgType: "error",
					})
					c.send <- msg
					continue
				}
				c.subscribe(req.Ticks)
				log.Printf("[tickserver] %s subscribed to %s", r.RemoteAddr, req.Ticks)
			}
		}
	}
}

// walkPrice applies a tiny random walk (±0.1%) to simulate price movement.
func walkPrice(price float64) float64 {
	pct := (rand.Float64()*0.2 - 0.1) / 100.0
	next := price * (1 + pct)
	if next < 0.01 {
		next = 0.01
	}
	return next
}

func runGenerator(h *hub, prices map[string]float64, intervalMs int) {
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		now := float64(time.Now().UnixNano()) / 1e9
		for symbol := range prices {
			prices[symbol] = walkPrice(prices[symbol])
			quote := prices[symbol]
			spread := quote * 0.0001
			msg, err := json.Marshal(tickFrame{
				Tick: tickBody{
					Symbol: symbol,
					Epoch:  now,
					Quote:  round5(quote),
					Bid:    round5(quote - spread),
					Ask:    round5(quote + spread),
				},
				MsgType: "tick",
			})
			if err != nil {
				continue
			}
			h.broadcast(symbol, msg)
		}
	}
}

func round5(v float64) float64 {
	return float64(int64(v*100000+0.5)) / 100000
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[tickserver] starting demo tick server...")

	addr := envOrDefault("TICK_SERVER_ADDR", ":9001")
	symbolsEnv := envOrDefault("TICK_SYMBOLS", "R_100,R_50")
	intervalMs := envIntOrDefault("TICK_INTERVAL_MS", 500)

	prices := parseSymbols(symbolsEnv)
	if len(prices) == 0 {
		log.Fatalf("[tickserver] no symbols configured via TICK_SYMBOLS")
	}
	known := make(map[string]bool, len(prices))
	for s := range prices {
		known[s] = true
	}
	log.Printf("[tickserver] symbols: %v", known)
	log.Printf("[tickserver] tick interval: %dms", intervalMs)

	h := newHub()
	go runGenerator(h, prices, intervalMs)

	// Same path as the live feed so BROKER_WS_URL only swaps host.
	http.HandleFunc("/websockets/v3", wsHandler(h, known))
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"tickserver"}`)
	})

	log.Printf("[tickserver] listening on %s (WebSocket: ws://localhost%s/websockets/v3)", addr, addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("[tickserver] server error: %v", err)
	}
}

func parseSymbols(s string) map[string]float64 {
	// Rough starting quotes per synthetic index.
	defaults := map[string]float64{
		"R_100":   623.45,
		"R_50":    180.12,
		"R_25":    2544.80,
		"1HZ100V": 701.30,
	}
	prices := make(map[string]float64)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		price := defaults[part]
		if price == 0 {
			price = 100.0
		}
		prices[part] = price
	}
	return prices
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
