package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWSServer(t *testing.T, ctx context.Context, b *Broadcaster) (*httptest.Server, chan struct{}) {
	t.Helper()
	finished := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ServeWS(ctx, conn, b, r.URL.Query().Get("vehicle"))
		finished <- struct{}{}
	}))
	t.Cleanup(srv.Close)
	return srv, finished
}

func dial(t *testing.T, srv *httptest.Server, vehicle string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?vehicle=" + vehicle
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitForSubscribers(t *testing.T, b *Broadcaster, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return b.SubscriberCount() == n }, time.Second, 5*time.Millisecond)
}

func TestServeWS_DeliversKeyedEvents(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, finished := newWSServer(t, ctx, b)

	conn := dial(t, srv, "v1")
	waitForSubscribers(t, b, 1)

	b.Publish("v2", NewEvent(KindMessage, "not for you"))
	b.Publish("v1", NewEvent(KindMessage, "hello v1"))

	var ev struct {
		Kind    Kind   `json:"kind"`
		Payload string `json:"payload"`
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, KindMessage, ev.Kind)
	assert.Equal(t, "hello v1", ev.Payload)

	conn.Close()
	<-finished
	waitForSubscribers(t, b, 0)
}

func TestServeWS_ClosesWithBroadcaster(t *testing.T) {
	b := NewBroadcaster()
	srv, finished := newWSServer(t, context.Background(), b)

	conn := dial(t, srv, "v1")
	defer conn.Close()
	waitForSubscribers(t, b, 1)

	b.Close()
	<-finished

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}

func TestServeWS_StopsOnContextCancel(t *testing.T) {
	b := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	srv, finished := newWSServer(t, ctx, b)

	conn := dial(t, srv, "v1")
	defer conn.Close()
	waitForSubscribers(t, b, 1)

	cancel()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("ServeWS did not return after cancel")
	}
	assert.Equal(t, 0, b.SubscriberCount())
}
