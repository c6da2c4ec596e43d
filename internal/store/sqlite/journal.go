// Package sqlite persists signals and closed trades to a local SQLite
// database so sessions can be analysed after the engine stops.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"quantpulse/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// JournalConfig configures the SQLite journal.
type JournalConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/trades.db"
}

// Journal is a single-writer SQLite store for signals and trades.
// It implements model.TradeJournal.
type Journal struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// New creates a Journal, initializing the database with WAL mode and schema.
func New(cfg JournalConfig) (*Journal, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Journal{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id            TEXT PRIMARY KEY,
			symbol        TEXT NOT NULL,
			direction     TEXT NOT NULL,
			timeframe     TEXT NOT NULL,
			entry         REAL NOT NULL,
			stop_loss     REAL NOT NULL,
			take_profit   REAL NOT NULL,
			rr            REAL NOT NULL,
			confidence    INTEGER NOT NULL,
			conditions    TEXT NOT NULL,
			candle_ts     REAL NOT NULL,
			created_at    REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS trades (
			id             TEXT PRIMARY KEY,
			signal_id      TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			direction      TEXT NOT NULL,
			status         TEXT NOT NULL,
			signal_entry   REAL NOT NULL,
			entry_price    REAL NOT NULL,
			close_price    REAL NOT NULL,
			stop_loss      REAL NOT NULL,
			take_profit    REAL NOT NULL,
			pnl_percent    REAL NOT NULL,
			open_ts        REAL NOT NULL,
			close_ts       REAL NOT NULL,
			duration_secs  REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals (symbol, created_at);
		CREATE INDEX IF NOT EXISTS idx_trades_symbol  ON trades (symbol, close_ts);
	`)
	return err
}

// SaveSignal persists an emitted signal.
func (j *Journal) SaveSignal(ctx context.Context, sig model.Signal) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO signals
			(id, symbol, direction, timeframe, entry, stop_loss, take_profit, rr, confidence, conditions, candle_ts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, sig.Symbol, sig.Direction, sig.Timeframe,
		sig.Entry, sig.StopLoss, sig.TakeProfit, sig.RR,
		sig.Confidence, strings.Join(sig.Conditions, ","),
		sig.CandleTimestamp, sig.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite insert signal: %w", err)
	}
	return nil
}

// SaveTrade persists a trade, replacing any earlier row for the same ID so
// the final terminal state wins.
func (j *Journal) SaveTrade(ctx context.Context, t *model.SimulatedTrade) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trades
			(id, signal_id, symbol, direction, status, signal_entry, entry_price, close_price,
			 stop_loss, take_profit, pnl_percent, open_ts, close_ts, duration_secs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SignalID, t.Symbol, t.Direction, string(t.Status),
		t.SignalEntry, t.EntryPrice, t.ClosePrice,
		t.StopLoss, t.TakeProfit, t.PnlPercent,
		t.OpenTS, t.CloseTS, t.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("sqlite insert trade: %w", err)
	}
	return nil
}

// Run consumes signal and closed-trade events from the bus until ctx is
// cancelled or both channels close. Persistence failures are logged, never
// surfaced to the pipeline.
func (j *Journal) Run(ctx context.Context, signalCh, tradeCh <-chan any) {
	for signalCh != nil || tradeCh != nil {
		select {
		case <-ctx.Done():
			return

		case payload, ok := <-signalCh:
			if !ok {
				signalCh = nil
				continue
			}
			sig, ok := payload.(model.Signal)
			if !ok {
				log.Printf("[sqlite] unexpected payload type %T on signal topic", payload)
				continue
			}
			if err := j.SaveSignal(ctx, sig); err != nil {
				log.Printf("[sqlite] save signal %s: %v", sig.ID, err)
			}

		case payload, ok := <-tradeCh:
			if !ok {
				tradeCh = nil
				continue
			}
			trade, ok := payload.(*model.SimulatedTrade)
			if !ok {
				log.Printf("[sqlite] unexpected payload type %T on trade topic", payload)
				continue
			}
			if err := j.SaveTrade(ctx, trade); err != nil {
				log.Printf("[sqlite] save trade %s: %v", trade.ID, err)
			}
		}
	}
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
