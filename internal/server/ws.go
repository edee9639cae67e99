package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/unkn0wn-root/sessioncache"
	"github.com/unkn0wn-root/sessioncache/internal/realtime"
)

// expiredMessage is what websocket clients receive for every expired session.
type expiredMessage struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	ExpiredAt time.Time `json:"expiredAt"`
}

func encodeExpired(sess sessioncache.Session, at time.Time) ([]byte, error) {
	return json.Marshal(expiredMessage{ID: sess.ID, Username: sess.Username, ExpiredAt: at.UTC()})
}

// wsClient implements realtime.Client by wrapping a websocket connection.
// Broadcasts may come from several goroutines; gorilla allows one writer at a time.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Send(message []byte) bool {
	if c == nil || c.conn == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, message) == nil
}

func (c *wsClient) Close() {
	if c != nil && c.conn != nil {
		_ = c.conn.Close()
	}
}

var _ realtime.Client = (*wsClient)(nil)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamExpiries serves GET /sessions/events. ?id= narrows the stream to one session.
func (s *Server) streamExpiries(c *gin.Context) {
	topic := c.Query("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", sessioncache.Fields{"err": err})
		return
	}

	client := &wsClient{conn: conn}
	s.hub.Register(topic, client)

	// Heartbeat: periodic pings; the reader loop exits on the first failure
	pingTicker := time.NewTicker(30 * time.Second)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()
	defer func() {
		close(done)
		pingTicker.Stop()
		s.hub.Unregister(topic, client)
		client.Close()
	}()

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
