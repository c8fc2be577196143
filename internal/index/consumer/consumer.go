// Package consumer reacts to index-updated events from Kafka by reloading the
// active index snapshot, and lets publishers announce new index data.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/boolean-proximity-search/pkg/kafka"
)

// IndexUpdatedEvent announces that a source holds new index data.
type IndexUpdatedEvent struct {
	Source    string    `json:"source"`
	Reason    string    `json:"reason,omitempty"`
	Terms     int       `json:"terms"`
	Timestamp time.Time `json:"timestamp"`
}

// Reloader swaps in a freshly loaded snapshot.
type Reloader interface {
	ReloadIndex(ctx context.Context) (index.Stats, error)
}

// Publisher is the subset of the Kafka producer used to announce updates.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// HandleMessage returns a Kafka MessageHandler that reloads the index for
// every decodable event. A failed reload is returned so the message is not
// committed and gets redelivered.
func HandleMessage(r Reloader) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[IndexUpdatedEvent](value)
		if err != nil {
			logger.Error("failed to decode index-updated event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		logger.Info("index update announced",
			"source", event.Source,
			"reason", event.Reason,
			"terms", event.Terms,
		)
		stats, err := r.ReloadIndex(ctx)
		if err != nil {
			return fmt.Errorf("reloading index after update from %s: %w", event.Source, err)
		}
		logger.Info("index reloaded from event",
			"terms", stats.Terms,
			"documents", stats.Documents,
		)
		return nil
	}
}

// Notify publishes an IndexUpdatedEvent keyed by source.
func Notify(ctx context.Context, p Publisher, event IndexUpdatedEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := p.Publish(ctx, kafka.Event{Key: event.Source, Value: event}); err != nil {
		return fmt.Errorf("announcing index update: %w", err)
	}
	return nil
}
