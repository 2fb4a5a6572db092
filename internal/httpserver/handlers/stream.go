package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marksync/internal/hub"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

const (
	pongWait  = 60 * time.Second
	writeWait = 10 * time.Second
)

type clientMessage struct {
	Type string `json:"type"`
}

type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) Write(message []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

func (w *wsWriter) Close() error {
	return w.conn.Close()
}

// checkOrigin accepts same-host pages and non-browser clients (no Origin)
func checkOrigin(allowedHosts []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if u.Host == r.Host {
			return true
		}
		for _, h := range allowedHosts {
			if u.Host == h {
				return true
			}
		}
		return false
	}
}

// Stream upgrades to a websocket that pushes invalidation messages:
// {"type":"collection","version":N} and {"type":"session","status":...}.
func Stream(d deps.Deps) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin(d.AllowedHosts)}

	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			d.Logger.Debug("websocket upgrade failed", logger.Error(err))
			return
		}

		writer := &wsWriter{conn: ws}
		conn := &hub.Connection{
			Topics: []string{hub.TopicCollection, hub.TopicSession},
			Writer: writer,
		}
		d.Hub.Register(conn)
		defer func() {
			d.Hub.Unregister(conn)
			_ = ws.Close()
		}()

		// Initial state so the client does not wait for the first change
		_ = writer.Write(hub.SessionMessage(d.Session()))
		_ = writer.Write(hub.CollectionMessage(d.Collection.Version()))

		ws.SetReadLimit(64 * 1024)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})

		done := make(chan struct{})
		defer close(done)

		go func() {
			ticker := time.NewTicker((pongWait * 9) / 10)
			defer ticker.Stop()

			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
						_ = ws.Close()
						return
					}
				}
			}
		}()

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}

			var msg clientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}

			switch msg.Type {
			case "ping":
				out, _ := json.Marshal(clientMessage{Type: "pong"})
				_ = writer.Write(out)
			case "refresh":
				d.Refresh()
			}
		}
	}
}
