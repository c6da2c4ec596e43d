package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Broker connection
	BrokerWSURL string
	BrokerAppID string
	Symbols     string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string

	// Candle pipeline
	CandleIntervalSeconds int
	Timeframes            string
	ActiveTimeframe       string
	MaxCandlesBuffer      int

	// WebSocket resilience
	ReconnectBaseDelay float64
	ReconnectMaxDelay  float64
	HeartbeatInterval  float64

	// Event bus
	BusMaxQueueSize int

	// Indicators
	EMAFastPeriod int
	EMASlowPeriod int
	RSIPeriod     int

	// Support/resistance
	SRTolerancePct        float64
	SRMaxLevels           int
	BreakoutRangeMult     float64
	ConsolidationLookback int
	ConsolidationMaxMult  float64

	// Signal engine
	MinConfirmations int
	RRRatio          float64
	MinRR            float64
	RSIOversold      float64
	RSIOverbought    float64
	MinSLPct         float64
	CooldownCandles  int
	Conditions       string

	// Trade simulator
	MaxTradeDurationSeconds float64
	MaxTradeHistory         int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		BrokerWSURL: getEnv("BROKER_WS_URL", "wss://ws.derivws.com/websockets/v3"),
		BrokerAppID: getEnv("BROKER_APP_ID", "1089"),
		Symbols:     getEnv("SYMBOLS", "R_100"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/trades.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),

		CandleIntervalSeconds: getInt("CANDLE_INTERVAL_SECONDS", 5),
		Timeframes:            getEnv("TIMEFRAMES", "5m,15m,30m,1h"),
		ActiveTimeframe:       getEnv("ACTIVE_TIMEFRAME", "5m"),
		MaxCandlesBuffer:      getInt("MAX_CANDLES_BUFFER", 200),

		ReconnectBaseDelay: getFloat("WS_RECONNECT_BASE_DELAY", 1.0),
		ReconnectMaxDelay:  getFloat("WS_RECONNECT_MAX_DELAY", 60.0),
		HeartbeatInterval:  getFloat("WS_HEARTBEAT_INTERVAL", 30.0),

		BusMaxQueueSize: getInt("BUS_MAX_QUEUE_SIZE", 10000),

		EMAFastPeriod: getInt("EMA_FAST_PERIOD", 9),
		EMASlowPeriod: getInt("EMA_SLOW_PERIOD", 21),
		RSIPeriod:     getInt("RSI_PERIOD", 14),

		SRTolerancePct:        getFloat("SR_TOLERANCE_PCT", 0.0015),
		SRMaxLevels:           getInt("SR_MAX_LEVELS", 10),
		BreakoutRangeMult:     getFloat("BREAKOUT_RANGE_MULT", 1.2),
		ConsolidationLookback: getInt("CONSOLIDATION_LOOKBACK", 10),
		ConsolidationMaxMult:  getFloat("CONSOLIDATION_MAX_MULT", 2.0),

		MinConfirmations: getInt("MIN_CONFIRMATIONS", 2),
		RRRatio:          getFloat("RR_RATIO", 2.0),
		MinRR:            getFloat("MIN_RR", 1.0),
		RSIOversold:      getFloat("RSI_OVERSOLD", 35.0),
		RSIOverbought:    getFloat("RSI_OVERBOUGHT", 65.0),
		MinSLPct:         getFloat("MIN_SL_PCT", 0.0002),
		CooldownCandles:  getInt("COOLDOWN_CANDLES", 3),
		Conditions:       getEnv("SIGNAL_CONDITIONS", ""),

		MaxTradeDurationSeconds: getFloat("MAX_TRADE_DURATION_SECONDS", 1800.0),
		MaxTradeHistory:         getInt("MAX_TRADE_HISTORY", 500),
	}
}

// ParseSymbols splits the Symbols string into a cleaned slice.
func (c *Config) ParseSymbols() []string {
	return splitList(c.Symbols)
}

// ParseTimeframes splits the Timeframes string into a cleaned slice,
// e.g. "5m,15m" -> ["5m", "15m"].
func (c *Config) ParseTimeframes() []string {
	return splitList(c.Timeframes)
}

// ParseConditions returns the enabled signal-condition names, or nil when
// the value is empty (nil means all conditions enabled).
func (c *Config) ParseConditions() []string {
	out := splitList(c.Conditions)
	if len(out) == 0 {
		return nil
	}
	return out
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s: %q, using default %g", key, v, fallback)
		return fallback
	}
	return f
}
