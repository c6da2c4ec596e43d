package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"quantpulse/config"
	"quantpulse/internal/bus"
	"quantpulse/internal/gateway"
	"quantpulse/internal/indicator"
	"quantpulse/internal/logger"
	"quantpulse/internal/marketdata/candlebuilder"
	"quantpulse/internal/marketdata/deriv"
	"quantpulse/internal/marketdata/tfagg"
	"quantpulse/internal/marketstate"
	"quantpulse/internal/metrics"
	"quantpulse/internal/model"
	"quantpulse/internal/orchestrator"
	"quantpulse/internal/sim"
	sigengine "quantpulse/internal/signal"
	"quantpulse/internal/sr"
	"quantpulse/internal/stats"
	redisstore "quantpulse/internal/store/redis"
	sqlitestore "quantpulse/internal/store/sqlite"
	"quantpulse/internal/tradestate"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	slogger := logger.Init("engine", logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	slogger.Info("starting")

	cfg := config.Load()
	symbols := cfg.ParseSymbols()
	timeframes := cfg.ParseTimeframes()
	log.Printf("[engine] symbols=%v timeframes=%v active=%s", symbols, timeframes, cfg.ActiveTimeframe)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetSymbols(symbols)
	health.SetActiveTimeframe(cfg.ActiveTimeframe)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Event bus ----
	b := bus.New(cfg.BusMaxQueueSize)
	b.OnDrop = func(topic, consumer string) {
		prom.BusDropsTotal.WithLabelValues(topic, consumer).Inc()
	}

	// ---- SQLite journal (off hot path) ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	journal, err := sqlitestore.New(sqlitestore.JournalConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[engine] sqlite init failed: %v", err)
	}
	defer journal.Close()
	log.Println("[engine] sqlite journal ready")

	// ---- Redis publisher (optional) ----
	var publisher *redisstore.Publisher
	publisher, err = redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[engine] WARNING: redis init failed: %v (continuing without redis)", err)
		publisher = nil
	} else {
		log.Println("[engine] redis publisher ready")
	}

	if publisher != nil {
		health.StartLivenessChecker(ctx, publisher.Client(), journal.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, journal.DB(), 10*time.Second)
	}

	// ---- Engines ----
	state := marketstate.New(cfg.MaxCandlesBuffer)
	builder := candlebuilder.New(cfg.CandleIntervalSeconds)
	aggregator := tfagg.New(timeframes)
	indicators := indicator.NewEngine(cfg.EMAFastPeriod, cfg.EMASlowPeriod, cfg.RSIPeriod)
	srEngine := sr.New(sr.Config{
		MaxLevels:             cfg.SRMaxLevels,
		TolerancePct:          cfg.SRTolerancePct,
		BreakoutRangeMult:     cfg.BreakoutRangeMult,
		ConsolidationLookback: cfg.ConsolidationLookback,
		ConsolidationMaxMult:  cfg.ConsolidationMaxMult,
	})

	var enabled map[string]bool
	if conds := cfg.ParseConditions(); conds != nil {
		enabled = make(map[string]bool, len(conds))
		for _, c := range conds {
			enabled[c] = true
		}
	}
	signals := sigengine.New(sigengine.Config{
		MinConfirmations: cfg.MinConfirmations,
		RRRatio:          cfg.RRRatio,
		MinRR:            cfg.MinRR,
		RSIOversold:      cfg.RSIOversold,
		RSIOverbought:    cfg.RSIOverbought,
		MinSLPct:         cfg.MinSLPct,
		CooldownCandles:  cfg.CooldownCandles,
		Enabled:          enabled,
	}, srEngine)

	trades := tradestate.New(cfg.MaxTradeHistory)
	simulator := sim.New(trades, cfg.MaxTradeDurationSeconds)
	statsEngine := stats.New(trades)

	orch, err := orchestrator.New(orchestrator.Deps{
		Bus:        b,
		State:      state,
		Builder:    builder,
		TFAgg:      aggregator,
		Indicators: indicators,
		SR:         srEngine,
		Signals:    signals,
		Sim:        simulator,
		Stats:      statsEngine,
	}, cfg.ActiveTimeframe)
	if err != nil {
		log.Fatalf("[engine] orchestrator init failed: %v", err)
	}

	// ---- Orchestrator (single tick consumer) ----
	tickCh := b.Subscribe(bus.TopicTick, "orchestrator")
	go orch.Run(ctx, tickCh)

	// ---- Persistence listener ----
	go journal.Run(ctx,
		b.Subscribe(bus.TopicSignal, "sqlite"),
		b.Subscribe(bus.TopicTradeClosed, "sqlite"),
	)

	// ---- Redis mirroring ----
	if publisher != nil {
		for _, topic := range []string{
			bus.TopicCandle, bus.TopicTFCandle, bus.TopicTFIndicators,
			bus.TopicSignal, bus.TopicTradeOpened, bus.TopicTradeClosed,
		} {
			go publisher.RunTopic(ctx, topic, b.Subscribe(topic, "redis"))
		}
	}

	// ---- Gateway (WS streaming + control) ----
	hub := gateway.NewHub(timeframeControl{orch, health})
	for _, topic := range []string{
		bus.TopicTick, bus.TopicCandle, bus.TopicTFCandle, bus.TopicTFIndicators,
		bus.TopicSignal, bus.TopicTradeOpened, bus.TopicTradeClosed,
	} {
		go hub.RunTopic(ctx, topic, b.Subscribe(topic, "gateway"))
	}
	gwMux := http.NewServeMux()
	gwMux.HandleFunc("/ws", hub.ServeWS)
	gwSrv := &http.Server{Addr: cfg.GatewayAddr, Handler: gwMux}
	go func() {
		log.Printf("[engine] gateway listening on %s", cfg.GatewayAddr)
		if err := gwSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[engine] gateway error: %v", err)
		}
	}()

	// ---- Metrics pump: translate bus traffic into Prometheus counters ----
	go runMetricsPump(ctx, b, prom, health)
	go runSaturationGauge(ctx, b, prom)

	// ---- Broker feed ----
	client := deriv.New(deriv.Config{
		URL:                cfg.BrokerWSURL,
		AppID:              cfg.BrokerAppID,
		Symbols:            symbols,
		ReconnectBaseDelay: cfg.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.ReconnectMaxDelay,
		HeartbeatInterval:  cfg.HeartbeatInterval,
	}, b)
	client.OnReconnect = func() {
		prom.WSReconnects.Inc()
		health.SetWSConnected(true)
	}
	go func() {
		if err := client.Run(ctx); err != nil {
			log.Printf("[engine] broker client stopped: %v", err)
		}
		health.SetWSConnected(false)
	}()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				health.SetWSConnected(client.Stats().Connected)
			}
		}
	}()

	log.Println("[engine] pipeline ready")

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[engine] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	gwSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	if publisher != nil {
		publisher.Close()
	}
	log.Println("[engine] shutdown complete.")
}

// timeframeControl adapts the orchestrator for the gateway and keeps the
// health snapshot in sync with timeframe switches.
type timeframeControl struct {
	orch   *orchestrator.Orchestrator
	health *metrics.HealthStatus
}

func (t timeframeControl) SetActiveTimeframe(tf string) error {
	if err := t.orch.SetActiveTimeframe(tf); err != nil {
		return err
	}
	t.health.SetActiveTimeframe(tf)
	return nil
}

func (t timeframeControl) ActiveTimeframe() string {
	return t.orch.ActiveTimeframe()
}

// runMetricsPump consumes monitoring subscriptions and feeds the Prometheus
// counters, keeping instrumentation off the engines themselves.
func runMetricsPump(ctx context.Context, b *bus.Bus, prom *metrics.Metrics, health *metrics.HealthStatus) {
	tickCh := b.Subscribe(bus.TopicTickProcessed, "metrics")
	candleCh := b.Subscribe(bus.TopicCandle, "metrics")
	tfCh := b.Subscribe(bus.TopicTFCandle, "metrics")
	indCh := b.Subscribe(bus.TopicTFIndicators, "metrics")
	sigCh := b.Subscribe(bus.TopicSignal, "metrics")
	openedCh := b.Subscribe(bus.TopicTradeOpened, "metrics")
	closedCh := b.Subscribe(bus.TopicTradeClosed, "metrics")

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-tickCh:
			prom.TicksTotal.Inc()
			if t, ok := payload.(model.Tick); ok {
				health.SetLastTickTime(time.Unix(int64(t.Epoch), 0))
			}
		case <-candleCh:
			prom.CandlesTotal.Inc()
		case payload := <-tfCh:
			if c, ok := payload.(model.Candle); ok {
				prom.TFCandlesTotal.WithLabelValues(c.Timeframe).Inc()
			}
		case <-indCh:
			prom.IndicatorsTotal.Inc()
		case payload := <-sigCh:
			if s, ok := payload.(model.Signal); ok {
				prom.SignalsTotal.WithLabelValues(s.Direction).Inc()
			}
		case <-openedCh:
			prom.TradesOpened.Inc()
		case payload := <-closedCh:
			if t, ok := payload.(*model.SimulatedTrade); ok {
				prom.TradesClosed.WithLabelValues(string(t.Status)).Inc()
			}
		}
	}
}

// runSaturationGauge samples subscriber queue occupancy every few seconds.
func runSaturationGauge(ctx context.Context, b *bus.Bus, prom *metrics.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range b.ChannelStats() {
				if s.Cap > 0 {
					pct := float64(s.Len) / float64(s.Cap) * 100
					prom.ChannelSaturationPct.WithLabelValues(s.Topic, s.Consumer).Set(pct)
				}
			}
		}
	}
}
