package stream

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SnapshotFunc returns the current state of a live session, if there is one.
type SnapshotFunc func(sessionID string) (any, bool)

// RegisterRoutes mounts the live event websocket. A client joining a live session
// first receives a "snapshot" event with its current state.
func RegisterRoutes(r fiber.Router, hub *Hub, snapshot SnapshotFunc) {
	r.Get("/ws/:sessionID", websocket.New(func(c *websocket.Conn) {
		sessionID := c.Params("sessionID")
		client := hub.Register(sessionID)
		defer hub.Unregister(client)

		if snapshot != nil {
			if state, ok := snapshot(sessionID); ok {
				payload, err := json.Marshal(Event{Type: "snapshot", SessionID: sessionID, At: time.Now().UnixMilli(), Data: state})
				if err == nil {
					_ = c.WriteMessage(websocket.TextMessage, payload)
				}
			}
		}

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
