package rest

import (
	"io"
	"net/http"

	"github.com/dfryer1193/postboard/api"
	"github.com/dfryer1193/postboard/blog/events"
	"github.com/gin-gonic/gin"
)

type EventsHandler struct {
	broadcaster *events.Broadcaster
}

func NewEventsHandler(broadcaster *events.Broadcaster) *EventsHandler {
	return &EventsHandler{
		broadcaster: broadcaster,
	}
}

// Stream sends every post event as a Server-Sent Event until the client leaves
// or the broadcaster shuts down.
func (h *EventsHandler) Stream(c *gin.Context) {
	ch, cancel := h.broadcaster.Subscribe(0)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(evt.Kind), api.EventFromDomain(evt))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
