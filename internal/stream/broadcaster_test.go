package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/stagehand/internal/pose"
)

func dialTest(t *testing.T, b *Broadcaster) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(b.Handler())
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcaster_DeliversPose(t *testing.T) {
	b := NewBroadcaster(zerolog.Nop())
	defer b.Close()

	conn := dialTest(t, b)

	// Registration happens on the upgrade path; give it a moment.
	require.Eventually(t, func() bool { return b.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	sent := pose.Pose{MouthOpen: 0.7, MouthWide: 0.4, Blink: 0.1}
	b.PublishPose(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg PoseMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "pose", msg.Type)
	assert.Equal(t, sent, msg.Pose)
}

func TestBroadcaster_DropsClosedClients(t *testing.T) {
	b := NewBroadcaster(zerolog.Nop())
	defer b.Close()

	conn := dialTest(t, b)
	require.Eventually(t, func() bool { return b.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()

	// Either the reader loop or a failed write should reap the client.
	assert.Eventually(t, func() bool {
		b.PublishPose(pose.Neutral())
		return b.ClientCount() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBroadcaster_PublishWithoutClients(t *testing.T) {
	b := NewBroadcaster(zerolog.Nop())
	defer b.Close()

	// Must be safe with nobody listening.
	b.PublishPose(pose.Neutral())
	assert.Equal(t, 0, b.ClientCount())
}
