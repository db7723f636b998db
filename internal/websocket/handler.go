package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs handles websocket requests from an authenticated clinician.
func ServeWs(hub *Hub, c *websocket.Conn, clinicianID uuid.UUID) {
	client := &Client{Hub: hub, Conn: c, ClinicianID: clinicianID, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
