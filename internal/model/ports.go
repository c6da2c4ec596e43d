package model

import "context"

// TradeJournal persists signals and closed trades. Implemented by the
// SQLite store; the persistence listener depends on this interface so tests
// can substitute a fake.
type TradeJournal interface {
	SaveSignal(ctx context.Context, sig Signal) error
	SaveTrade(ctx context.Context, trade *SimulatedTrade) error
}

// EventPublisher mirrors pipeline events to an external channel (Redis
// PubSub in production). Implementations must never block the pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}
