package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// createWebsocketHandler streams solver events until the client goes away.
func createWebsocketHandler(solver *Solver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			http.Error(w, fmt.Sprintf("websocket upgrade failed: %s", err), http.StatusInternalServerError)
			return
		}
		defer c.Close(websocket.StatusInternalError, "closing")

		unsub, ch := solver.Subscribe()
		defer unsub()

		// We never expect messages from the client; this also notices when
		// it disconnects.
		ctx := c.CloseRead(r.Context())

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-ch:
				if !ok {
					c.Close(websocket.StatusGoingAway, "server shutting down")
					return
				}
				if err := writeTimeout(ctx, 5*time.Second, c, event); err != nil {
					httpLog.Debug().Err(err).Msg("Websocket write failed")
					return
				}
			}
		}
	}
}

func writeTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return wsjson.Write(ctx, c, msg)
}
