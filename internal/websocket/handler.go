package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection for sessionID, queues the initial frame and
// blocks until the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string, initial []byte) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Send: make(chan []byte, sendBuffer)}
	if initial != nil {
		client.Send <- initial
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
