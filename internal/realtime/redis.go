package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Stream    string        // stream key shared by every API instance
	MaxLen    int64         // approximate trim length
	Block     time.Duration // XREAD block per poll
	BatchSize int64
}

// RedisFeed fans changes out across instances through one Redis stream.
// Stream ids are assigned by the server, so every subscriber sees changes
// in server write order.
type RedisFeed struct {
	client *redis.Client
	cfg    RedisConfig
	logger *slog.Logger
}

func NewRedisFeed(client *redis.Client, cfg RedisConfig, logger *slog.Logger) *RedisFeed {
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisFeed{client: client, cfg: cfg, logger: logger}
}

func (f *RedisFeed) Publish(ctx context.Context, c Change) (Change, error) {
	id, err := f.client.XAdd(ctx, &redis.XAddArgs{
		Stream: f.cfg.Stream,
		MaxLen: f.cfg.MaxLen,
		Approx: true,
		Values: changeValues(c),
	}).Result()
	if err != nil {
		return Change{}, fmt.Errorf("xadd (stream=%s): %w", f.cfg.Stream, err)
	}

	c.ID = id
	c.WrittenAt = streamIDTime(id)
	return c, nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, filter Filter) (<-chan Change, error) {
	last := filter.Since
	if last != "" && !validStreamID(last) {
		return nil, fmt.Errorf("realtime: invalid since id %q", last)
	}
	if last == "" {
		tail, err := f.tailID(ctx)
		if err != nil {
			return nil, err
		}
		last = tail
	}

	out := make(chan Change, defaultBufferSize)
	go f.poll(ctx, filter, last, out)
	return out, nil
}

// tailID pins "$" to a concrete id so nothing written between polls is lost.
func (f *RedisFeed) tailID(ctx context.Context) (string, error) {
	msgs, err := f.client.XRevRangeN(ctx, f.cfg.Stream, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("xrevrange (stream=%s): %w", f.cfg.Stream, err)
	}
	if len(msgs) == 0 {
		return "0-0", nil
	}
	return msgs[0].ID, nil
}

func (f *RedisFeed) poll(ctx context.Context, filter Filter, last string, out chan<- Change) {
	defer close(out)

	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := f.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{f.cfg.Stream, last},
			Count:   f.cfg.BatchSize,
			Block:   f.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			f.logger.ErrorContext(ctx, "realtime xread failed", "stream", f.cfg.Stream, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				last = msg.ID
				c, err := parseChange(msg)
				if err != nil {
					f.logger.ErrorContext(ctx, "failed to parse change", "error", err, "raw_message_id", msg.ID)
					continue
				}
				if !filter.Match(c) {
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

func changeValues(c Change) map[string]any {
	return map[string]any{
		"topic":        string(c.Topic),
		"record_id":    c.RecordID,
		"recipient_id": c.RecipientID,
		"snapshot":     string(c.Snapshot),
	}
}

func parseChange(msg redis.XMessage) (Change, error) {
	topic, ok := msg.Values["topic"].(string)
	if !ok || topic == "" {
		return Change{}, fmt.Errorf("missing topic")
	}
	recordID, _ := msg.Values["record_id"].(string)
	recipientID, _ := msg.Values["recipient_id"].(string)
	snapshot, _ := msg.Values["snapshot"].(string)

	return Change{
		ID:          msg.ID,
		Topic:       Topic(topic),
		RecordID:    recordID,
		RecipientID: recipientID,
		Snapshot:    []byte(snapshot),
		WrittenAt:   streamIDTime(msg.ID),
	}, nil
}

// streamIDTime reads the millisecond prefix of a "<ms>-<seq>" stream id.
func streamIDTime(id string) time.Time {
	ms, _, _ := strings.Cut(id, "-")
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(n).UTC()
}

// validStreamID accepts the "<ms>" and "<ms>-<seq>" forms XREAD takes.
func validStreamID(id string) bool {
	ms, seq, hasSeq := strings.Cut(id, "-")
	if _, err := strconv.ParseUint(ms, 10, 64); err != nil {
		return false
	}
	if !hasSeq {
		return true
	}
	_, err := strconv.ParseUint(seq, 10, 64)
	return err == nil
}
