package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	readLimit  = 4096
)

// Upgrader accepts any origin; CORS is enforced by the router.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS pushes every event published for key to conn until the client
// disconnects, ctx ends or the broadcaster closes. It closes conn on return.
func ServeWS(ctx context.Context, conn *websocket.Conn, b *Broadcaster, key string) {
	id, events := b.Subscribe(key)
	logger := zap.L().With(zap.String("key", key), zap.Uint64("subscriber", id))
	logger.Info("stream client connected", zap.Int("total_clients", b.SubscriberCount()))

	readDone := make(chan struct{})
	go readPump(conn, readDone)

	defer func() {
		b.Unsubscribe(id)
		conn.Close()
		<-readDone
		logger.Info("stream client disconnected", zap.Int("total_clients", b.SubscriberCount()))
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			writeClose(conn, websocket.CloseGoingAway)
			return
		case <-readDone:
			return
		case ev, ok := <-events:
			if !ok {
				writeClose(conn, websocket.CloseGoingAway)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug("stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.Debug("stream ping failed", zap.Error(err))
				return
			}
		}
	}
}

// readPump discards client frames; it exists to process pongs and notice
// the peer going away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeClose(conn *websocket.Conn, code int) {
	msg := websocket.FormatCloseMessage(code, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
