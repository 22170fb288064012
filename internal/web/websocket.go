// internal/web/websocket.go
package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"hatoview/internal/view"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// WSClient forwards rendered models to one websocket connection.
type WSClient struct {
	id          string
	conn        *websocket.Conn
	models      <-chan view.Model
	unsubscribe func()
	initial     []WSMessage
	server      *Server
}

func (s *Server) handleWebSocket(c *gin.Context) {
	// Subscribe before the handshake completes so no render slips between.
	id, models, unsubscribe := s.dashboard.Subscribe()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		unsubscribe()
		logrus.WithError(err).Error("Failed to upgrade websocket")
		return
	}

	client := &WSClient{
		id:          id,
		conn:        conn,
		models:      models,
		unsubscribe: unsubscribe,
		server:      s,
	}
	for _, kind := range view.Kinds {
		v, err := s.dashboard.View(kind)
		if err != nil {
			continue
		}
		if m, ok := v.Model(); ok {
			client.initial = append(client.initial, WSMessage{Type: "view", Data: m})
		}
	}

	s.register(client)

	go client.writePump()
	go client.readPump()
}

func (s *Server) register(c *WSClient) {
	s.mu.Lock()
	s.wsClients[c] = true
	s.mu.Unlock()
	s.metrics.RecordWebSocketConnection(1)
	logrus.WithField("client", c.id).Debug("Websocket client connected")
}

func (s *Server) unregister(c *WSClient) {
	s.mu.Lock()
	_, ok := s.wsClients[c]
	delete(s.wsClients, c)
	s.mu.Unlock()
	if ok {
		s.metrics.RecordWebSocketConnection(-1)
		logrus.WithField("client", c.id).Debug("Websocket client disconnected")
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.unsubscribe()
		c.conn.Close()
		c.server.unregister(c)
	}()

	for _, message := range c.initial {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteJSON(message); err != nil {
			return
		}
	}
	c.initial = nil

	for {
		select {
		case model, ok := <-c.models:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(WSMessage{Type: "view", Data: model}); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames. A read error ends the subscription,
// which in turn stops writePump.
func (c *WSClient) readPump() {
	defer c.unsubscribe()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
	}
}
