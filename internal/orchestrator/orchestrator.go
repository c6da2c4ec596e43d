// Package orchestrator is the single consumer of the tick topic. It drives
// the whole pipeline in a fixed order per tick, which is what guarantees
// per-symbol event ordering end to end: state update, trade evaluation,
// candle building, timeframe aggregation, indicators, S/R, signals, trade
// creation.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"

	"quantpulse/internal/bus"
	"quantpulse/internal/indicator"
	"quantpulse/internal/marketdata/candlebuilder"
	"quantpulse/internal/marketdata/tfagg"
	"quantpulse/internal/marketstate"
	"quantpulse/internal/model"
	"quantpulse/internal/sim"
	"quantpulse/internal/signal"
	"quantpulse/internal/sr"
	"quantpulse/internal/stats"
)

// Deps collects the engines the orchestrator drives.
type Deps struct {
	Bus        *bus.Bus
	State      *marketstate.Manager
	Builder    *candlebuilder.Builder
	TFAgg      *tfagg.Aggregator
	Indicators *indicator.Engine
	SR         *sr.Engine
	Signals    *signal.Engine
	Sim        *sim.Simulator
	Stats      *stats.Engine
}

// Orchestrator sequences the pipeline. Only the active-timeframe selector
// is mutable from outside; everything else is driven by Run.
type Orchestrator struct {
	d Deps

	mu       sync.RWMutex
	activeTF string

	processed uint64
}

// New creates an Orchestrator with the given active timeframe.
func New(d Deps, activeTF string) (*Orchestrator, error) {
	o := &Orchestrator{d: d}
	if err := o.SetActiveTimeframe(activeTF); err != nil {
		return nil, err
	}
	return o, nil
}

// ActiveTimeframe returns the timeframe signals are evaluated on.
func (o *Orchestrator) ActiveTimeframe() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.activeTF
}

// SetActiveTimeframe switches signal evaluation to tf. The change applies
// from the next timeframe-candle closure.
func (o *Orchestrator) SetActiveTimeframe(tf string) error {
	for _, known := range o.d.TFAgg.Timeframes() {
		if known == tf {
			o.mu.Lock()
			o.activeTF = tf
			o.mu.Unlock()
			log.Printf("[orchestrator] active timeframe set to %s", tf)
			return nil
		}
	}
	return fmt.Errorf("unknown timeframe %q", tf)
}

// Processed returns how many ticks have been fully processed.
func (o *Orchestrator) Processed() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.processed
}

// Run consumes ticks from tickCh until ctx is cancelled or the channel
// closes. Non-tick payloads are skipped with a log line.
func (o *Orchestrator) Run(ctx context.Context, tickCh <-chan any) {
	log.Printf("[orchestrator] started")
	for {
		select {
		case <-ctx.Done():
			log.Printf("[orchestrator] stopped after %d ticks", o.Processed())
			return
		case payload, ok := <-tickCh:
			if !ok {
				log.Printf("[orchestrator] tick channel closed")
				return
			}
			t, ok := payload.(model.Tick)
			if !ok {
				log.Printf("[orchestrator] unexpected payload type %T on tick topic", payload)
				continue
			}
			o.processTick(t)
		}
	}
}

// processTick runs the full per-tick sequence. A panic in any engine is
// contained here so one poisoned tick cannot take the pipeline down.
func (o *Orchestrator) processTick(t model.Tick) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[orchestrator] recovered while processing %s tick at %.3f: %v", t.Symbol, t.Epoch, r)
		}
	}()

	o.d.State.UpdateTick(t)

	if closed := o.d.Sim.EvaluateTick(t.Symbol, t.Quote, t.Epoch); closed != nil {
		o.d.Bus.Publish(bus.TopicTradeClosed, closed)
		o.d.Stats.OnTradeClosed(closed)
	}

	if base := o.d.Builder.ProcessTick(t); base != nil {
		o.d.State.AddCandle(*base)
		o.d.Bus.Publish(bus.TopicCandle, *base)
		for _, tfc := range o.d.TFAgg.ProcessCandle(*base) {
			o.onTFCandle(tfc)
		}
	}

	o.mu.Lock()
	o.processed++
	o.mu.Unlock()
	o.d.Bus.Publish(bus.TopicTickProcessed, t)
}

func (o *Orchestrator) onTFCandle(tfc model.Candle) {
	o.d.State.AddTFCandle(tfc)
	o.d.Bus.Publish(bus.TopicTFCandle, tfc)

	snap := o.d.Indicators.Update(tfc)
	if snap.Ready() {
		o.d.Bus.Publish(bus.TopicTFIndicators, snap)
	}

	if tfc.Timeframe != o.ActiveTimeframe() {
		return
	}

	buf := o.d.State.TFCandles(tfc.Symbol, tfc.Timeframe, 0)
	o.d.SR.Update(tfc, buf)

	sig := o.d.Signals.Evaluate(tfc, snap, buf)
	if sig == nil {
		return
	}
	o.d.Bus.Publish(bus.TopicSignal, *sig)

	if trade := o.d.Sim.OpenTrade(sig); trade != nil {
		o.d.Bus.Publish(bus.TopicTradeOpened, trade)
	}
}
