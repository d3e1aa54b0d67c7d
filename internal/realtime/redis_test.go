package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChange_RoundTripsValues(t *testing.T) {
	in := Change{Topic: TopicNotifications, RecordID: "n-1", RecipientID: "stu-1", Snapshot: []byte(`{"a":1}`)}
	values := changeValues(in)

	out, err := parseChange(redis.XMessage{ID: "1700000000123-0", Values: values})
	require.NoError(t, err)

	assert.Equal(t, "1700000000123-0", out.ID)
	assert.Equal(t, TopicNotifications, out.Topic)
	assert.Equal(t, "stu-1", out.RecipientID)
	assert.JSONEq(t, `{"a":1}`, string(out.Snapshot))
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), out.WrittenAt)
}

func TestParseChange_MissingTopic(t *testing.T) {
	_, err := parseChange(redis.XMessage{ID: "1-0", Values: map[string]any{"record_id": "x"}})
	assert.Error(t, err)
}

func TestStreamIDTime_Invalid(t *testing.T) {
	assert.True(t, streamIDTime("garbage").IsZero())
}

func TestValidStreamID(t *testing.T) {
	for _, id := range []string{"0", "0-0", "1700000000123", "1700000000123-7"} {
		assert.True(t, validStreamID(id), id)
	}
	for _, id := range []string{"$", ">", "-", "+", "abc", "12-", "-3", "12-x", "1-2-3", " 12"} {
		assert.False(t, validStreamID(id), id)
	}
}

func TestRedisFeed_InvalidSince(t *testing.T) {
	// rejected before any command reaches the server
	feed := NewRedisFeed(nil, RedisConfig{Stream: "unused"}, nil)
	_, err := SubscribeComplaints(context.Background(), feed, "not-an-id")
	assert.Error(t, err)

	_, err = SubscribeNotifications(context.Background(), feed, "stu-1", "$")
	assert.Error(t, err)
}

// Runs against a real server only when REDIS_URL is set.
func TestRedisFeed_PublishSubscribe(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	stream := "test:" + t.Name()
	defer client.Del(context.Background(), stream)

	feed := NewRedisFeed(client, RedisConfig{Stream: stream, MaxLen: 100, Block: 200 * time.Millisecond}, nil)
	defer feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := SubscribeNotifications(ctx, feed, "stu-1", "")
	require.NoError(t, err)

	_, err = feed.Publish(ctx, Change{Topic: TopicNotifications, RecordID: "n-other", RecipientID: "stu-2"})
	require.NoError(t, err)
	published, err := feed.Publish(ctx, Change{Topic: TopicNotifications, RecordID: "n-1", RecipientID: "stu-1", Snapshot: []byte(`{}`)})
	require.NoError(t, err)

	got := recv(t, ch)
	assert.Equal(t, published.ID, got.ID)
	assert.Equal(t, "n-1", got.RecordID)
}
