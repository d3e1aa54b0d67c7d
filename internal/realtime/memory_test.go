package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok, "channel closed")
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

func TestMemoryFeed_FiltersByTopicAndRecipient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := NewMemoryFeed(10, 10, nil)

	complaints, err := SubscribeComplaints(ctx, feed, "")
	require.NoError(t, err)
	mine, err := SubscribeNotifications(ctx, feed, "stu-1", "")
	require.NoError(t, err)

	_, err = feed.Publish(ctx, Change{Topic: TopicNotifications, RecordID: "n-0", RecipientID: "stu-2"})
	require.NoError(t, err)
	_, err = feed.Publish(ctx, Change{Topic: TopicNotifications, RecordID: "n-1", RecipientID: "stu-1"})
	require.NoError(t, err)
	_, err = feed.Publish(ctx, Change{Topic: TopicComplaints, RecordID: "c-1", Snapshot: []byte(`{"id":"c-1"}`)})
	require.NoError(t, err)

	assert.Equal(t, "n-1", recv(t, mine).RecordID)
	got := recv(t, complaints)
	assert.Equal(t, "c-1", got.RecordID)
	assert.JSONEq(t, `{"id":"c-1"}`, string(got.Snapshot))
	assert.False(t, got.WrittenAt.IsZero())
}

func TestMemoryFeed_ResumeSince(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := NewMemoryFeed(10, 10, nil)

	first, _ := feed.Publish(ctx, Change{Topic: TopicComplaints, RecordID: "a"})
	_, _ = feed.Publish(ctx, Change{Topic: TopicComplaints, RecordID: "b"})
	_, _ = feed.Publish(ctx, Change{Topic: TopicComplaints, RecordID: "c"})

	ch, err := SubscribeComplaints(ctx, feed, first.ID)
	require.NoError(t, err)

	assert.Equal(t, "b", recv(t, ch).RecordID)
	assert.Equal(t, "c", recv(t, ch).RecordID)
}

func TestMemoryFeed_InvalidSince(t *testing.T) {
	feed := NewMemoryFeed(10, 10, nil)
	_, err := SubscribeComplaints(context.Background(), feed, "not-a-number")
	assert.Error(t, err)
}

func TestMemoryFeed_DropsSlowSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := NewMemoryFeed(10, 1, nil)

	ch, err := SubscribeComplaints(ctx, feed, "")
	require.NoError(t, err)

	_, _ = feed.Publish(ctx, Change{Topic: TopicComplaints, RecordID: "a"})
	_, _ = feed.Publish(ctx, Change{Topic: TopicComplaints, RecordID: "b"})

	assert.Equal(t, "a", recv(t, ch).RecordID)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestMemoryFeed_CancelClosesChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := NewMemoryFeed(10, 10, nil)

	ch, err := SubscribeComplaints(ctx, feed, "")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMemoryFeed_PublishAfterClose(t *testing.T) {
	feed := NewMemoryFeed(10, 10, nil)
	require.NoError(t, feed.Close())

	_, err := feed.Publish(context.Background(), Change{Topic: TopicComplaints})
	assert.ErrorIs(t, err, ErrFeedClosed)
}

func TestPublisher_Snapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := NewMemoryFeed(10, 10, nil)
	ch, _ := SubscribeNotifications(ctx, feed, "w-1", "")

	NewPublisher(feed, nil).Snapshot(ctx, TopicNotifications, "n-9", "w-1", map[string]any{"is_read": false})

	got := recv(t, ch)
	assert.Equal(t, "n-9", got.RecordID)
	assert.JSONEq(t, `{"is_read":false}`, string(got.Snapshot))
}
