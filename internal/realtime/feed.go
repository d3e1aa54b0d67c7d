// Package realtime pushes full-state snapshots of stored records to
// subscribers. Every Change carries the complete record, so consumers
// replace their copy instead of patching it.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

type Topic string

const (
	TopicComplaints    Topic = "complaints"
	TopicNotifications Topic = "notifications"
)

type Change struct {
	ID          string          `json:"id"`
	Topic       Topic           `json:"topic"`
	RecordID    string          `json:"record_id"`
	RecipientID string          `json:"recipient_id,omitempty"`
	Snapshot    json.RawMessage `json:"snapshot"`
	WrittenAt   time.Time       `json:"written_at"`
}

// Filter selects changes for one subscription. Since is the last change id
// the subscriber has seen; empty means only new changes.
type Filter struct {
	Topic       Topic
	RecipientID string
	Since       string
}

func (f Filter) Match(c Change) bool {
	if f.Topic != "" && f.Topic != c.Topic {
		return false
	}
	if f.RecipientID != "" && f.RecipientID != c.RecipientID {
		return false
	}
	return true
}

// Feed is implemented by MemoryFeed and RedisFeed. Delivery is at least
// once: a subscriber that reconnects with Since may see a change twice.
type Feed interface {
	Publish(ctx context.Context, c Change) (Change, error)
	// Subscribe returns a channel closed when ctx ends or the subscriber
	// falls too far behind.
	Subscribe(ctx context.Context, f Filter) (<-chan Change, error)
	Close() error
}

func SubscribeComplaints(ctx context.Context, feed Feed, since string) (<-chan Change, error) {
	return feed.Subscribe(ctx, Filter{Topic: TopicComplaints, Since: since})
}

func SubscribeNotifications(ctx context.Context, feed Feed, recipientID, since string) (<-chan Change, error) {
	return feed.Subscribe(ctx, Filter{Topic: TopicNotifications, RecipientID: recipientID, Since: since})
}

// Publisher marshals records after a successful write. Failures are logged;
// the write has already been committed.
type Publisher struct {
	feed   Feed
	logger *slog.Logger
}

func NewPublisher(feed Feed, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{feed: feed, logger: logger}
}

func (p *Publisher) Snapshot(ctx context.Context, topic Topic, recordID, recipientID string, record any) {
	if p == nil || p.feed == nil {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		p.logger.ErrorContext(ctx, "realtime snapshot marshal failed", "topic", topic, "record_id", recordID, "error", err)
		return
	}
	if _, err := p.feed.Publish(ctx, Change{
		Topic:       topic,
		RecordID:    recordID,
		RecipientID: recipientID,
		Snapshot:    raw,
	}); err != nil {
		p.logger.ErrorContext(ctx, "realtime publish failed", "topic", topic, "record_id", recordID, "error", err)
	}
}
