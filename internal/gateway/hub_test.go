package gateway

import (
	"encoding/json"
	"errors"
	"testing"

	"quantpulse/internal/model"
)

type fakeController struct {
	tf  string
	err error
}

func (f *fakeController) SetActiveTimeframe(tf string) error {
	if f.err != nil {
		return f.err
	}
	f.tf = tf
	return nil
}

func (f *fakeController) ActiveTimeframe() string { return f.tf }

func TestBroadcastEnvelope(t *testing.T) {
	h := NewHub(&fakeController{tf: "5m"})
	c := &Client{send: make(chan []byte, 4)}
	h.register(c)

	h.Broadcast("tick", model.Tick{Symbol: "R_100", Epoch: 1, Quote: 100})

	select {
	case msg := <-c.send:
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if env.Type != "tick" {
			t.Errorf("Type = %q, want tick", env.Type)
		}
		var tick model.Tick
		if err := json.Unmarshal(env.Data, &tick); err != nil || tick.Symbol != "R_100" {
			t.Errorf("Data = %s (%v)", env.Data, err)
		}
	default:
		t.Fatal("no message broadcast")
	}
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	h := NewHub(&fakeController{})
	slow := &Client{send: make(chan []byte, 1)}
	h.register(slow)

	// Second broadcast must not block even though the queue is full.
	h.Broadcast("tick", 1)
	h.Broadcast("tick", 2)

	if len(slow.send) != 1 {
		t.Errorf("slow client queue = %d, want 1 (second event dropped)", len(slow.send))
	}
}

func TestSetTimeframeCommand(t *testing.T) {
	ctrl := &fakeController{tf: "5m"}
	h := NewHub(ctrl)

	reply := h.handleCommand([]byte(`{"action":"set_timeframe","timeframe":"15m"}`))
	var env envelope
	if err := json.Unmarshal(reply, &env); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if env.Type != "timeframe_changed" || env.Data != "15m" {
		t.Errorf("reply = %+v", env)
	}
	if ctrl.tf != "15m" {
		t.Errorf("controller timeframe = %q, want 15m", ctrl.tf)
	}
}

func TestSetTimeframeCommandError(t *testing.T) {
	h := NewHub(&fakeController{err: errors.New("unknown timeframe")})
	reply := h.handleCommand([]byte(`{"action":"set_timeframe","timeframe":"7m"}`))
	var env envelope
	json.Unmarshal(reply, &env)
	if env.Type != "error" {
		t.Errorf("reply type = %q, want error", env.Type)
	}
}

func TestUnknownCommandRejected(t *testing.T) {
	h := NewHub(&fakeController{})
	var env envelope
	json.Unmarshal(h.handleCommand([]byte(`{"action":"dance"}`)), &env)
	if env.Type != "error" {
		t.Errorf("reply type = %q, want error", env.Type)
	}
	json.Unmarshal(h.handleCommand([]byte(`nonsense`)), &env)
	if env.Type != "error" {
		t.Errorf("reply type = %q, want error", env.Type)
	}
}

func TestReplyAfterUnregisterDoesNotPanic(t *testing.T) {
	h := NewHub(&fakeController{tf: "5m"})
	c := &Client{send: make(chan []byte, 1)}
	h.register(c)

	// A failed write unregisters the client and closes its send channel; a
	// command reply arriving after that must be dropped, not sent.
	h.unregister(c)
	h.sendTo(c, h.handleCommand([]byte(`{"action":"get_timeframe"}`)))

	if _, ok := <-c.send; ok {
		t.Error("reply queued for unregistered client")
	}
}

func TestGetTimeframeCommand(t *testing.T) {
	h := NewHub(&fakeController{tf: "30m"})
	var env envelope
	json.Unmarshal(h.handleCommand([]byte(`{"action":"get_timeframe"}`)), &env)
	if env.Type != "timeframe" || env.Data != "30m" {
		t.Errorf("reply = %+v", env)
	}
}
