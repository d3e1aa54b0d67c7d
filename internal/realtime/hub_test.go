package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hostelcare/internal/domain/user"
	"hostelcare/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHub(t *testing.T) (*Hub, *MemoryFeed, *jwt.Service, *httptest.Server) {
	gin.SetMode(gin.TestMode)
	feed := NewMemoryFeed(100, 16, nil)
	j := jwt.New("ws-secret", time.Hour)

	// only records whose snapshot names the actor as owner are visible
	visible := func(actor user.Actor, c Change) bool {
		var snap struct {
			ReporterID string `json:"reporter_id"`
		}
		_ = json.Unmarshal(c.Snapshot, &snap)
		return actor.Role == user.RoleWarden || snap.ReporterID == actor.ID
	}

	hub := NewHub(feed, j, visible, nil, nil)
	r := gin.New()
	r.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, feed, j, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) WSEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev WSEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHub_RejectsMissingToken(t *testing.T) {
	_, _, _, srv := setupHub(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_DeliversVisibleChangesOnly(t *testing.T) {
	_, feed, j, srv := setupHub(t)
	token, _ := j.GenerateToken("stu-1", "Dana", "student")
	conn := dial(t, srv, "token="+token)

	// let the subscription register before publishing
	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	_, _ = feed.Publish(ctx, Change{Topic: TopicComplaints, RecordID: "c-other", Snapshot: []byte(`{"reporter_id":"stu-2"}`)})
	_, _ = feed.Publish(ctx, Change{Topic: TopicComplaints, RecordID: "c-mine", Snapshot: []byte(`{"reporter_id":"stu-1"}`)})
	_, _ = feed.Publish(ctx, Change{Topic: TopicNotifications, RecordID: "n-1", RecipientID: "stu-1", Snapshot: []byte(`{}`)})

	// topics are forwarded independently, so only the set is fixed
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		ev := readEvent(t, conn)
		assert.Equal(t, EventChange, ev.Type)
		got[ev.Change.RecordID] = true
	}
	assert.Equal(t, map[string]bool{"c-mine": true, "n-1": true}, got)
}

func TestHub_ResumesFromSince(t *testing.T) {
	_, feed, j, srv := setupHub(t)
	ctx := context.Background()

	seen, _ := feed.Publish(ctx, Change{Topic: TopicComplaints, RecordID: "c-1", Snapshot: []byte(`{}`)})
	_, _ = feed.Publish(ctx, Change{Topic: TopicComplaints, RecordID: "c-2", Snapshot: []byte(`{}`)})

	token, _ := j.GenerateToken("w-1", "Aigerim", "warden")
	conn := dial(t, srv, "token="+token+"&since="+seen.ID)

	ev := readEvent(t, conn)
	assert.Equal(t, "c-2", ev.Change.RecordID)
}

func TestHub_TracksConnections(t *testing.T) {
	hub, _, j, srv := setupHub(t)
	assert.Equal(t, 0, hub.Connected())

	token, _ := j.GenerateToken("stu-1", "Dana", "student")
	conn := dial(t, srv, "token="+token)
	assert.Eventually(t, func() bool { return hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connected() == 0 }, 2*time.Second, 10*time.Millisecond)
}
