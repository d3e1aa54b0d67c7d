package realtime

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

var ErrFeedClosed = errors.New("realtime: feed closed")

const (
	defaultReplaySize = 1024
	defaultBufferSize = 64
)

type subscriber struct {
	filter Filter
	ch     chan Change
}

// MemoryFeed serves a single process. Change ids are decimal sequence
// numbers; a bounded log is kept for Since replays.
type MemoryFeed struct {
	mu         sync.Mutex
	seq        uint64
	log        []Change
	logSeq     []uint64
	replaySize int
	bufferSize int
	subs       map[*subscriber]struct{}
	closed     bool
	logger     *slog.Logger
}

func NewMemoryFeed(replaySize, bufferSize int, logger *slog.Logger) *MemoryFeed {
	if replaySize <= 0 {
		replaySize = defaultReplaySize
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryFeed{
		replaySize: replaySize,
		bufferSize: bufferSize,
		subs:       make(map[*subscriber]struct{}),
		logger:     logger,
	}
}

func (f *MemoryFeed) Publish(ctx context.Context, c Change) (Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return Change{}, ErrFeedClosed
	}

	f.seq++
	c.ID = strconv.FormatUint(f.seq, 10)
	if c.WrittenAt.IsZero() {
		c.WrittenAt = time.Now().UTC()
	}

	f.log = append(f.log, c)
	f.logSeq = append(f.logSeq, f.seq)
	if over := len(f.log) - f.replaySize; over > 0 {
		f.log = f.log[over:]
		f.logSeq = f.logSeq[over:]
	}

	for sub := range f.subs {
		if !sub.filter.Match(c) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			// slow subscriber; it resumes with Since after reconnecting
			close(sub.ch)
			delete(f.subs, sub)
			f.logger.WarnContext(ctx, "realtime subscriber dropped", "topic", sub.filter.Topic, "recipient_id", sub.filter.RecipientID)
		}
	}

	return c, nil
}

func (f *MemoryFeed) Subscribe(ctx context.Context, filter Filter) (<-chan Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrFeedClosed
	}

	var replay []Change
	if filter.Since != "" {
		since, err := strconv.ParseUint(filter.Since, 10, 64)
		if err != nil {
			return nil, errors.New("realtime: invalid since id")
		}
		for i, c := range f.log {
			if f.logSeq[i] > since && filter.Match(c) {
				replay = append(replay, c)
			}
		}
	}

	sub := &subscriber{filter: filter, ch: make(chan Change, f.bufferSize+len(replay))}
	for _, c := range replay {
		sub.ch <- c
	}
	f.subs[sub] = struct{}{}

	go func() {
		<-ctx.Done()
		f.remove(sub)
	}()

	return sub.ch, nil
}

func (f *MemoryFeed) remove(sub *subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub]; ok {
		delete(f.subs, sub)
		close(sub.ch)
	}
}

func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for sub := range f.subs {
		close(sub.ch)
		delete(f.subs, sub)
	}
	return nil
}
