package predictionHandler

import (
	"reflect"
	"time"

	"CXRaide/internal/api/prediction"

	"github.com/gofiber/websocket/v2"
)

// handleStatusWebSocket pushes the model statuses every time they change and
// closes the connection once every model has settled.
func (h *PredictionHandler) handleStatusWebSocket(c *websocket.Conn) {
	h.log.Info("Model status WebSocket client connected")
	defer h.log.Info("Model status WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	// Reading is only needed to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Errorf("Model status WebSocket error: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(h.statusInterval)
	defer ticker.Stop()

	var last *prediction.ModelStatusListResponse
	for {
		current := h.predictionService.ModelStatuses()
		if last == nil || !reflect.DeepEqual(*last, current) {
			if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				h.log.Errorf("Error setting write deadline: %v", err)
				return
			}
			if err := c.WriteJSON(current); err != nil {
				h.log.Errorf("Error writing model status: %v", err)
				return
			}
			last = &current
		}

		if current.Settled {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "models settled")
			if err := c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second)); err != nil {
				h.log.Debugf("Error sending close frame: %v", err)
			}
			return
		}

		select {
		case <-closed:
			return
		case <-ticker.C:
		}
	}
}
