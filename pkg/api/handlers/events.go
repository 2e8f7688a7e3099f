package handlers

import (
	"io"

	"scrape-stream-go/pkg/events"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

// Events streams hub events to the client as server-sent events. An
// optional ?session=<id> query restricts the stream to one session.
// The subscription ends when the client disconnects or the hub drops a
// slow consumer; neither affects the crawl or other subscribers.
func Events(hub *events.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := hub.Subscribe(c.Query("session"))
		defer sub.Close()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		ctx := c.Request.Context()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case ev, ok := <-sub.C:
				if !ok {
					return false
				}
				sse.Encode(w, sse.Event{
					Event: string(ev.Type),
					Data:  ev,
				})
				return true
			}
		})
	}
}
