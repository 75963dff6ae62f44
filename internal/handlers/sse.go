package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// streamSSE forwards a subscription channel to the client as Server-Sent
// Events until the client disconnects or the stream closes. The disposer is
// always invoked so the underlying listeners are released.
func streamSSE[T any](c echo.Context, ch <-chan T, dispose func()) error {
	defer dispose()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case value, ok := <-ch:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(value)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(res, "data: %s\n\n", payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
